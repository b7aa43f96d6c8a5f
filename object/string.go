package object

import (
	"fmt"
)

// String is a reference counted, immutable string value.
type String struct {
	refCount
	value string
}

func (s *String) Type() Type {
	return STRING
}

func (s *String) Value() string {
	return s.value
}

func (s *String) Inspect() string {
	return fmt.Sprintf("%q", s.value)
}

func (s *String) String() string {
	return s.value
}

func (s *String) Interface() interface{} {
	return s.value
}

func (s *String) Equals(other Object) bool {
	o, ok := other.(*String)
	return ok && o.value == s.value
}

func (s *String) IsTruthy() bool {
	return s.value != ""
}

func (s *String) Compare(other Object) (int, error) {
	o, ok := other.(*String)
	if !ok {
		return 0, TypeErrorf("unable to compare string and %s", typeName(other))
	}
	return compareOrdered(s.value, o.value), nil
}

// Len returns the length of the string in bytes.
func (s *String) Len() int {
	return len(s.value)
}
