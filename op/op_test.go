package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(CallMethod)
	require.Equal(t, "CALL_METHOD", info.Name)
	require.Equal(t, 2, info.OperandCount)
	require.Equal(t, CallMethod, info.Code)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
	}{
		{Nop, "NOP", 0},
		{Call, "CALL", 2},
		{CallNative, "CALL_NATIVE", 2},
		{New, "NEW", 2},
		{ReturnValue, "RETURN_VALUE", 0},
		{Return, "RETURN", 0},
		{Jump, "JUMP", 1},
		{PopJumpIfFalse, "POP_JUMP_IF_FALSE", 1},
		{PopJumpIfTrue, "POP_JUMP_IF_TRUE", 1},
		{LoadAttr, "LOAD_ATTR", 1},
		{LoadFast, "LOAD_FAST", 1},
		{LoadGlobal, "LOAD_GLOBAL", 1},
		{LoadConst, "LOAD_CONST", 1},
		{StoreAttr, "STORE_ATTR", 1},
		{StoreFast, "STORE_FAST", 1},
		{StoreGlobal, "STORE_GLOBAL", 1},
		{BinaryOp, "BINARY_OP", 1},
		{CompareOp, "COMPARE_OP", 1},
		{BuildArray, "BUILD_ARRAY", 1},
		{BinarySubscr, "BINARY_SUBSCR", 0},
		{StoreSubscr, "STORE_SUBSCR", 0},
		{Length, "LENGTH", 0},
		{Copy, "COPY", 1},
		{PopTop, "POP_TOP", 0},
		{Null, "NULL", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
		})
	}
}

func TestGetInfoUnknown(t *testing.T) {
	require.Equal(t, "", GetInfo(Code(250)).Name)
	require.Equal(t, Info{}, GetInfo(Code(9999)))
}

func TestOperatorStrings(t *testing.T) {
	require.Equal(t, "/", Divide.String())
	require.Equal(t, "%", Modulo.String())
	require.Equal(t, "", BinaryOpType(99).String())
	require.Equal(t, "<=", LessThanOrEqual.String())
	require.Equal(t, "", CompareOpType(99).String())
}
