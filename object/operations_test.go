package object

import (
	"testing"

	"github.com/risor-io/vmctx/op"
	"github.com/stretchr/testify/require"
)

func TestBinaryOp(t *testing.T) {
	h := NewHeap()
	tests := []struct {
		name     string
		opType   op.BinaryOpType
		a, b     Object
		expected Object
	}{
		{"int add", op.Add, NewInt(2), NewInt(3), NewInt(5)},
		{"int sub", op.Subtract, NewInt(2), NewInt(3), NewInt(-1)},
		{"int mul", op.Multiply, NewInt(2), NewInt(3), NewInt(6)},
		{"int div", op.Divide, NewInt(7), NewInt(2), NewInt(3)},
		{"int mod", op.Modulo, NewInt(7), NewInt(2), NewInt(1)},
		{"mixed", op.Add, NewInt(1), NewFloat(0.5), NewFloat(1.5)},
		{"float div", op.Divide, NewFloat(1), NewFloat(4), NewFloat(0.25)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := BinaryOp(h, tt.opType, tt.a, tt.b)
			require.NoError(t, err)
			require.True(t, tt.expected.Equals(result), "got %s", result.Inspect())
		})
	}
}

func TestBinaryOpStrings(t *testing.T) {
	h := NewHeap()
	a := h.NewString("a")
	result, err := BinaryOp(h, op.Add, a, NewInt(1))
	require.NoError(t, err)
	require.Equal(t, "a1", result.(*String).Value())
	require.Equal(t, 1, result.(*String).RefCount())

	result, err = BinaryOp(h, op.Add, NewInt(2), a)
	require.NoError(t, err)
	require.Equal(t, "2a", result.(*String).Value())
}

func TestBinaryOpErrors(t *testing.T) {
	h := NewHeap()
	_, err := BinaryOp(h, op.Divide, NewInt(10), NewInt(0))
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = BinaryOp(h, op.Modulo, NewInt(10), NewInt(0))
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = BinaryOp(h, op.Divide, NewFloat(1), NewInt(0))
	require.ErrorIs(t, err, ErrDivideByZero)

	_, err = BinaryOp(h, op.Add, Null, NewInt(1))
	require.ErrorIs(t, err, ErrNullPointer)

	_, err = BinaryOp(h, op.Subtract, h.NewString("a"), NewInt(1))
	var typeErr *TypeError
	require.ErrorAs(t, err, &typeErr)

	// Logical operators are compiled as jumps, never as binary operations.
	_, err = BinaryOp(h, op.Add, True, False)
	require.ErrorAs(t, err, &typeErr)
}

func TestCompare(t *testing.T) {
	h := NewHeap()
	tests := []struct {
		opType   op.CompareOpType
		a, b     Object
		expected bool
	}{
		{op.LessThan, NewInt(1), NewInt(2), true},
		{op.LessThanOrEqual, NewInt(2), NewFloat(2), true},
		{op.GreaterThan, NewFloat(2.5), NewInt(2), true},
		{op.GreaterThanOrEqual, NewInt(1), NewInt(2), false},
		{op.Equal, h.NewString("a"), h.NewString("a"), true},
		{op.NotEqual, NewInt(1), NewInt(1), false},
		{op.Equal, Null, nil, true},
		{op.Equal, Null, NewInt(0), false},
		{op.LessThan, h.NewString("a"), h.NewString("b"), true},
	}
	for _, tt := range tests {
		result, err := Compare(tt.opType, tt.a, tt.b)
		require.NoError(t, err)
		require.Equal(t, NewBool(tt.expected), result,
			"%s %s %s", tt.a.Inspect(), tt.opType, tt.b)
	}

	_, err := Compare(op.LessThan, Null, NewInt(1))
	require.Error(t, err)
	_, err = Compare(op.LessThan, NewInt(1), h.NewString("x"))
	require.Error(t, err)
}

func TestNegate(t *testing.T) {
	result, err := Negate(NewInt(3))
	require.NoError(t, err)
	require.Equal(t, int64(-3), result.(*Int).Value())

	_, err = Negate(True)
	require.Error(t, err)
}

func TestArrayBounds(t *testing.T) {
	h := NewHeap()
	arr := h.NewArray([]Object{NewInt(1)})
	_, err := arr.Get(1)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
	_, err = arr.Get(-1)
	require.ErrorIs(t, err, ErrIndexOutOfBounds)
	old, err := arr.Set(0, NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(1), old.(*Int).Value())
	arr.Append(NewInt(3))
	require.Equal(t, 2, arr.Len())
	last, err := arr.Pop()
	require.NoError(t, err)
	require.Equal(t, int64(3), last.(*Int).Value())
	require.Equal(t, "{2}", arr.Inspect())
}
