package object

import (
	"math"

	"github.com/risor-io/vmctx/op"
)

// Compare two objects using the given comparison operator. An error is
// returned if either of the objects is not comparable.
func Compare(opType op.CompareOpType, a, b Object) (Object, error) {
	switch opType {
	case op.Equal:
		return NewBool(equals(a, b)), nil
	case op.NotEqual:
		return NewBool(!equals(a, b)), nil
	}

	comparable, ok := a.(Comparable)
	if !ok {
		return nil, TypeErrorf("expected a comparable object (got %s)", typeName(a))
	}
	value, err := comparable.Compare(b)
	if err != nil {
		return nil, err
	}

	switch opType {
	case op.LessThan:
		return NewBool(value < 0), nil
	case op.LessThanOrEqual:
		return NewBool(value <= 0), nil
	case op.GreaterThan:
		return NewBool(value > 0), nil
	case op.GreaterThanOrEqual:
		return NewBool(value >= 0), nil
	default:
		return nil, TypeErrorf("unknown comparison operator: %d", opType)
	}
}

func equals(a, b Object) bool {
	if IsNull(a) {
		return IsNull(b)
	}
	return a.Equals(b)
}

// BinaryOp performs a binary operation on two objects, given an operator.
// Results that are heap objects are allocated on h and carry one reference
// owned by the caller. The operands are not released.
func BinaryOp(h *Heap, opType op.BinaryOpType, a, b Object) (Object, error) {
	switch a := a.(type) {
	case *Int:
		switch b := b.(type) {
		case *Int:
			return intOp(opType, a.value, b.value)
		case *Float:
			return floatOp(opType, float64(a.value), b.value)
		}
	case *Float:
		switch b := b.(type) {
		case *Int:
			return floatOp(opType, a.value, float64(b.value))
		case *Float:
			return floatOp(opType, a.value, b.value)
		}
	case *String:
		if opType == op.Add {
			return h.NewString(a.value + toString(b)), nil
		}
	}
	if s, ok := b.(*String); ok && opType == op.Add && !IsNull(a) {
		return h.NewString(toString(a) + s.value), nil
	}
	if IsNull(a) || IsNull(b) {
		return nil, ErrNullPointer
	}
	return nil, TypeErrorf("unsupported operation for %s: %s on type %s",
		typeName(a), opType, typeName(b))
}

func intOp(opType op.BinaryOpType, a, b int64) (Object, error) {
	switch opType {
	case op.Add:
		return NewInt(a + b), nil
	case op.Subtract:
		return NewInt(a - b), nil
	case op.Multiply:
		return NewInt(a * b), nil
	case op.Divide:
		if b == 0 {
			return nil, ErrDivideByZero
		}
		return NewInt(a / b), nil
	case op.Modulo:
		if b == 0 {
			return nil, ErrDivideByZero
		}
		return NewInt(a % b), nil
	}
	return nil, TypeErrorf("unsupported operation for int: %s", opType)
}

func floatOp(opType op.BinaryOpType, a, b float64) (Object, error) {
	switch opType {
	case op.Add:
		return NewFloat(a + b), nil
	case op.Subtract:
		return NewFloat(a - b), nil
	case op.Multiply:
		return NewFloat(a * b), nil
	case op.Divide:
		if b == 0 {
			return nil, ErrDivideByZero
		}
		return NewFloat(a / b), nil
	case op.Modulo:
		if b == 0 {
			return nil, ErrDivideByZero
		}
		return NewFloat(math.Mod(a, b)), nil
	}
	return nil, TypeErrorf("unsupported operation for float: %s", opType)
}

// Negate returns the arithmetic negation of a number.
func Negate(obj Object) (Object, error) {
	switch obj := obj.(type) {
	case *Int:
		return NewInt(-obj.value), nil
	case *Float:
		return NewFloat(-obj.value), nil
	}
	return nil, TypeErrorf("bad operand type for unary -: %s", typeName(obj))
}

func toString(obj Object) string {
	if s, ok := obj.(interface{ String() string }); ok {
		return s.String()
	}
	return obj.Inspect()
}
