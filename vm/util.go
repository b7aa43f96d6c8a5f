package vm

import (
	"errors"
	"fmt"

	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/object"
)

func checkCallArgs(fn *bytecode.Function, argc int) error {
	paramsCount := fn.ParamCount()
	if argc == paramsCount {
		return nil
	}
	msg := fmt.Sprintf("args error: function %q", fn.QualifiedName())
	switch paramsCount {
	case 0:
		msg = fmt.Sprintf("%s takes 0 arguments (%d given)", msg, argc)
	case 1:
		msg = fmt.Sprintf("%s takes 1 argument (%d given)", msg, argc)
	default:
		msg = fmt.Sprintf("%s takes %d arguments (%d given)", msg, paramsCount, argc)
	}
	return errors.New(msg)
}

// ownershipOf returns the ownership a slot holding obj should have when the
// slot received its own reference.
func ownershipOf(obj object.Object) Ownership {
	if _, ok := obj.(object.RefCounted); ok {
		return Owned
	}
	return Value
}
