package errz

// Kind classifies a script exception.
type Kind int

const (
	// Unknown is used for native faults that were not translated and for
	// runtime errors that have no dedicated kind.
	Unknown Kind = iota
	// DivideByZero is raised by integer or float division or modulo by zero.
	DivideByZero
	// NullPointerAccess is raised by a property access, method call or
	// subscript on a null handle.
	NullPointerAccess
	// IndexOutOfBounds is raised by an array access outside its length.
	IndexOutOfBounds
	// HostTranslated is raised when a host function or translator set the
	// exception message with SetException.
	HostTranslated
	// StackOverflow is raised when the call depth exceeds the engine limit.
	StackOverflow
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case DivideByZero:
		return "DivideByZero"
	case NullPointerAccess:
		return "NullPointerAccess"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case HostTranslated:
		return "HostTranslated"
	case StackOverflow:
		return "StackOverflow"
	default:
		return "Unknown"
	}
}

// Message returns the message reported for exceptions of this kind. Host
// translated exceptions carry their own message.
func (k Kind) Message() string {
	switch k {
	case DivideByZero:
		return "Divide by zero"
	case NullPointerAccess:
		return "Null pointer access"
	case IndexOutOfBounds:
		return "Index out of bounds"
	case StackOverflow:
		return "Stack overflow"
	default:
		return "Unknown exception"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
