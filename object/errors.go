package object

import (
	"errors"
	"fmt"
)

// Errors returned by operations on objects. The execution context classifies
// them into script exceptions.
var (
	ErrDivideByZero     = errors.New("divide by zero")
	ErrNullPointer      = errors.New("null pointer access")
	ErrIndexOutOfBounds = errors.New("index out of bounds")
)

// TypeError is returned when an operation is applied to operands of the
// wrong type.
type TypeError struct {
	message string
}

func (e *TypeError) Error() string {
	return e.message
}

// TypeErrorf returns a new TypeError with a formatted message.
func TypeErrorf(format string, args ...interface{}) *TypeError {
	return &TypeError{message: "type error: " + fmt.Sprintf(format, args...)}
}
