package object

import (
	"strings"
)

// Array is a reference counted, growable sequence. Each element owns one
// reference to the object it holds.
type Array struct {
	refCount
	items []Object
}

func (a *Array) Type() Type {
	return ARRAY
}

func (a *Array) Inspect() string {
	var sb strings.Builder
	sb.WriteString("{")
	for i, item := range a.items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(item.Inspect())
	}
	sb.WriteString("}")
	return sb.String()
}

func (a *Array) String() string {
	return a.Inspect()
}

func (a *Array) Interface() interface{} {
	values := make([]interface{}, 0, len(a.items))
	for _, item := range a.items {
		values = append(values, item.Interface())
	}
	return values
}

func (a *Array) Equals(other Object) bool {
	o, ok := other.(*Array)
	if !ok || len(o.items) != len(a.items) {
		return false
	}
	for i, item := range a.items {
		if !item.Equals(o.items[i]) {
			return false
		}
	}
	return true
}

func (a *Array) IsTruthy() bool {
	return len(a.items) > 0
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.items)
}

// Get returns the element at index without adding a reference.
func (a *Array) Get(index int64) (Object, error) {
	if index < 0 || index >= int64(len(a.items)) {
		return nil, ErrIndexOutOfBounds
	}
	return a.items[index], nil
}

// Set stores value at index, taking over the caller's reference. The
// previous element is returned so that the caller can release it.
func (a *Array) Set(index int64, value Object) (Object, error) {
	if index < 0 || index >= int64(len(a.items)) {
		return nil, ErrIndexOutOfBounds
	}
	old := a.items[index]
	a.items[index] = value
	return old, nil
}

// Append adds value to the end, taking over the caller's reference.
func (a *Array) Append(value Object) {
	a.items = append(a.items, value)
}

// Pop removes the last element and hands its reference to the caller.
func (a *Array) Pop() (Object, error) {
	if len(a.items) == 0 {
		return nil, ErrIndexOutOfBounds
	}
	last := a.items[len(a.items)-1]
	a.items = a.items[:len(a.items)-1]
	return last, nil
}
