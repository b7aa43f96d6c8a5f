package vm

import (
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/object"
)

// code wraps a *bytecode.Code with its constants converted to runtime
// objects. String constants are not converted: each load allocates a fresh
// string so that the reference belongs to whoever loaded it.
type code struct {
	*bytecode.Code
	Constants []object.Object
	Strings   []string
}

func wrapCode(bc *bytecode.Code) *code {
	c := &code{
		Code:      bc,
		Constants: make([]object.Object, bc.ConstantCount()),
		Strings:   make([]string, bc.ConstantCount()),
	}
	for i := 0; i < bc.ConstantCount(); i++ {
		switch value := bc.ConstantAt(i).(type) {
		case int64:
			c.Constants[i] = object.NewInt(value)
		case float64:
			c.Constants[i] = object.NewFloat(value)
		case bool:
			c.Constants[i] = object.NewBool(value)
		case string:
			c.Strings[i] = value
		}
	}
	return c
}

// loadConstant returns the constant at index, with a reference owned by the
// caller.
func (c *code) loadConstant(heap *object.Heap, index int) object.Object {
	if obj := c.Constants[index]; obj != nil {
		return obj
	}
	return heap.NewString(c.Strings[index])
}
