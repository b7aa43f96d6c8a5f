package object

import (
	"fmt"
	"strings"

	"github.com/risor-io/vmctx/bytecode"
)

// Instance is a reference counted script class instance. Each field owns one
// reference to the object it holds.
type Instance struct {
	refCount
	class     *bytecode.Class
	fields    []Object
	finalized bool
}

func (o *Instance) Type() Type {
	return INSTANCE
}

// Class returns the class the instance was created from.
func (o *Instance) Class() *bytecode.Class {
	return o.class
}

func (o *Instance) Inspect() string {
	var sb strings.Builder
	sb.WriteString(o.class.Name())
	sb.WriteString("{")
	for i, f := range o.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s: %s", o.class.FieldAt(i).Name, f.Inspect())
	}
	sb.WriteString("}")
	return sb.String()
}

func (o *Instance) String() string {
	return o.Inspect()
}

func (o *Instance) Interface() interface{} {
	return o
}

// Equals compares identity; two instances are equal only if they are the
// same object.
func (o *Instance) Equals(other Object) bool {
	i, ok := other.(*Instance)
	return ok && i == o
}

func (o *Instance) IsTruthy() bool {
	return true
}

// FieldCount returns the number of fields.
func (o *Instance) FieldCount() int {
	return len(o.fields)
}

// Field returns the named field without adding a reference.
func (o *Instance) Field(name string) (Object, bool) {
	idx, ok := o.class.FieldIndex(name)
	if !ok {
		return nil, false
	}
	return o.fields[idx], true
}

// FieldAt returns the field at index without adding a reference.
func (o *Instance) FieldAt(index int) Object {
	return o.fields[index]
}

// SetField stores value in the named field, taking over the caller's
// reference. The previous value is returned so that the caller can release it.
func (o *Instance) SetField(name string, value Object) (Object, error) {
	idx, ok := o.class.FieldIndex(name)
	if !ok {
		return nil, TypeErrorf("%s has no field %q", o.class.Name(), name)
	}
	old := o.fields[idx]
	o.fields[idx] = value
	return old, nil
}

// Finalized returns true once the instance's destructor has been run.
func (o *Instance) Finalized() bool {
	return o.finalized
}
