package vm

import (
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/object"
)

// Ownership records whether a slot holds a reference it must release.
type Ownership uint8

const (
	// Value slots hold primitives that carry no reference count.
	Value Ownership = iota
	// Owned slots hold one reference that is released exactly once, when the
	// slot is overwritten or its frame is popped.
	Owned
	// Addressed slots refer to an object owned by someone else, such as the
	// object given to SetObject or an argument bound to a reference
	// parameter. They are never released by the context.
	Addressed
)

// String returns the name of the ownership tag.
func (o Ownership) String() string {
	switch o {
	case Owned:
		return "owned"
	case Addressed:
		return "addressed"
	default:
		return "value"
	}
}

// Slot is one local variable, argument or object slot of a frame.
type Slot struct {
	Value     object.Object
	Ownership Ownership
}

func (s Slot) isSet() bool {
	return s.Value != nil
}

// frame is one function activation.
type frame struct {
	fn     *bytecode.Function
	code   *code
	module *moduleState

	// ip is the offset of the next instruction; opIP is the offset of the
	// instruction being executed, used for line lookups.
	ip   int
	opIP int

	// base is the operand stack height when the frame was entered.
	base int

	// locals holds the object (for members), then the parameters, then the
	// remaining local variables.
	locals []Slot

	// constructing holds the reference to the instance a constructor frame
	// is initializing. It becomes the call result on return and is released
	// if the frame is unwound.
	constructing *object.Instance
}

func newFrame(fn *bytecode.Function, c *code, mod *moduleState, base int) *frame {
	return &frame{
		fn:     fn,
		code:   c,
		module: mod,
		base:   base,
		locals: make([]Slot, fn.LocalCount()),
	}
}

// argCount returns the number of slots holding the object and arguments.
func (f *frame) argCount() int {
	n := f.fn.ParamSlot(f.fn.ParamCount())
	if n > len(f.locals) {
		n = len(f.locals)
	}
	return n
}

// location returns the source location of the instruction being executed.
func (f *frame) location() bytecode.SourceLocation {
	return f.code.LocationAt(f.opIP)
}
