// Package object provides the runtime values scripts operate on.
//
// Primitive values (*Int, *Float, *Bool and Null) are immutable and carry no
// reference count. Strings, arrays and script class instances are reference
// counted and allocated through a [Heap], which frees them when their last
// reference is released.
//
// For example:
//
//	switch obj := obj.(type) {
//	case *object.String:
//		// do something with obj.Value()
//	case *object.Instance:
//		// do something with obj.Class()
//	}
package object

// Type of an object as a string.
type Type string

// Type constants
const (
	ARRAY    Type = "array"
	BOOL     Type = "bool"
	FLOAT    Type = "float"
	INSTANCE Type = "instance"
	INT      Type = "int"
	NULL     Type = "null"
	STRING   Type = "string"
)

// Object is the interface that all runtime values implement.
type Object interface {
	// Type of the object.
	Type() Type

	// Inspect returns a string representation of the given object.
	Inspect() string

	// Interface converts the given object to a native Go value.
	Interface() interface{}

	// Returns true if the given object is equal to this object.
	Equals(other Object) bool

	// IsTruthy returns true if the object is considered "truthy".
	IsTruthy() bool
}

// RefCounted is implemented by heap objects. Every holder of a reference
// (a local slot, an operand stack entry, a field or an array element) owns
// exactly one count.
type RefCounted interface {
	Object

	// AddRef increments the reference count and returns the new count.
	AddRef() int

	// RefCount returns the current reference count.
	RefCount() int

	decRef() int
}

// Comparable is an interface used to compare two objects.
//
//	-1 if this < other
//	 0 if this == other
//	 1 if this > other
type Comparable interface {
	Compare(other Object) (int, error)
}

// AddRef increments the reference count of obj if it is reference counted.
// It returns obj for convenience.
func AddRef(obj Object) Object {
	if rc, ok := obj.(RefCounted); ok {
		rc.AddRef()
	}
	return obj
}

// IsNull returns true if obj is nil or the Null object.
func IsNull(obj Object) bool {
	return obj == nil || obj == Null
}

type refCount struct {
	refs int
}

func (r *refCount) AddRef() int {
	r.refs++
	return r.refs
}

func (r *refCount) RefCount() int {
	return r.refs
}

func (r *refCount) decRef() int {
	r.refs--
	return r.refs
}
