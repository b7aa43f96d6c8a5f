package bytecode

import (
	"testing"

	"github.com/risor-io/vmctx/op"
	"github.com/stretchr/testify/require"
)

func TestBuilderLocations(t *testing.T) {
	b := NewBuilder("ExecuteString").SetSource("test.as", "int a = 0;\nint b = 1 / a;")
	a := b.DeclareLocal("a")
	b.SetLine(1)
	b.EmitConst(0)
	b.Emit(op.StoreFast, a)
	b.SetLine(2)
	pos := b.EmitConst(int64(1))
	b.Emit(op.LoadFast, a)
	b.Emit(op.BinaryOp, uint16(op.Divide))
	code := b.Build()

	require.Equal(t, 4, pos)
	require.Equal(t, 10, code.InstructionCount())
	require.Equal(t, code.InstructionCount(), code.LocationCount())
	require.Equal(t, 1, code.LocationAt(0).Line)
	require.Equal(t, 1, code.LocationAt(3).Line)
	require.Equal(t, 2, code.LocationAt(9).Line)
	require.Equal(t, SourceLocation{}, code.LocationAt(100))
	require.Equal(t, "int b = 1 / a;", code.GetSourceLine(2))
	require.Equal(t, "", code.GetSourceLine(3))
	require.Equal(t, 1, code.LocalCount())
	require.Equal(t, "a", code.LocalNameAt(0))
}

func TestBuilderConstantsAndNames(t *testing.T) {
	b := NewBuilder("f")
	require.Equal(t, uint16(0), b.AddConstant(1))
	require.Equal(t, uint16(0), b.AddConstant(int64(1)))
	require.Equal(t, uint16(1), b.AddConstant("x"))
	require.Equal(t, uint16(2), b.AddConstant(1.5))
	require.Equal(t, uint16(3), b.AddConstant(true))
	require.Panics(t, func() { b.AddConstant(struct{}{}) })

	require.Equal(t, uint16(0), b.AddName("print"))
	require.Equal(t, uint16(1), b.AddName("Test"))
	require.Equal(t, uint16(0), b.AddName("print"))

	code := b.Build()
	require.Equal(t, int64(1), code.ConstantAt(0))
	require.Equal(t, "x", code.ConstantAt(1))
	require.Equal(t, 2, code.NameCount())
}

func TestBuilderPatch(t *testing.T) {
	b := NewBuilder("f")
	jump := b.Emit(op.PopJumpIfFalse, 0)
	b.Emit(op.Nop)
	b.Patch(jump, 0, uint16(b.Offset()))
	code := b.Build()
	require.Equal(t, op.Code(3), code.InstructionAt(1))
}

func TestInstructionIter(t *testing.T) {
	b := NewBuilder("f")
	b.EmitConst(int64(7))
	b.Emit(op.CallNative, b.AddName("print"), 1)
	b.Emit(op.Return)
	iter := NewInstructionIter(b.Build())

	var offsets []int
	var opcodes []op.Code
	for {
		offset := iter.Offset()
		instr, ok := iter.Next()
		if !ok {
			break
		}
		offsets = append(offsets, offset)
		opcodes = append(opcodes, instr[0])
	}
	require.Equal(t, []int{0, 2, 5}, offsets)
	require.Equal(t, []op.Code{op.LoadConst, op.CallNative, op.Return}, opcodes)
}

func TestModuleStats(t *testing.T) {
	b := NewBuilder("main")
	b.Emit(op.Return)
	mod := NewModule(ModuleParams{
		Name: "test",
		Functions: []*Function{
			NewFunction(FunctionParams{Name: "main", Code: b.Build()}),
			NewFunction(FunctionParams{Name: "host"}),
		},
		Globals: []Global{{Name: "g", Type: TypeRef{Name: TypeInt}}},
	})
	stats := ModuleStats(mod)
	require.Equal(t, 1, stats.FunctionCount)
	require.Equal(t, 1, stats.InstructionCount)
	require.Equal(t, 1, stats.GlobalCount)
	require.Nil(t, mod.FunctionAt(5))
	require.NotNil(t, mod.FunctionByDecl("void main()"))
}
