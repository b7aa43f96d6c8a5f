package compiler

import (
	"context"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/op"
	"github.com/risor-io/vmctx/parser"
	"github.com/stretchr/testify/require"
)

func compileModule(t *testing.T, source string) *bytecode.Module {
	t.Helper()
	program, err := parser.Parse(context.Background(), source, parser.WithFilename("test.as"))
	require.Nil(t, err)
	mod, err := Compile([]Section{{Name: "test.as", Source: source, Program: program}}, &Config{ModuleName: "test"})
	require.Nil(t, err)
	return mod
}

func compileErrors(t *testing.T, source string, cfg *Config) []*errz.CompileError {
	t.Helper()
	program, err := parser.Parse(context.Background(), source, parser.WithFilename("test.as"))
	require.Nil(t, err)
	_, err = Compile([]Section{{Name: "test.as", Source: source, Program: program}}, cfg)
	require.NotNil(t, err)
	merr, ok := err.(*multierror.Error)
	require.True(t, ok)
	var result []*errz.CompileError
	for _, e := range merr.Errors {
		ce, ok := e.(*errz.CompileError)
		require.True(t, ok)
		result = append(result, ce)
	}
	return result
}

func instructions(code *bytecode.Code) [][]op.Code {
	var result [][]op.Code
	iter := bytecode.NewInstructionIter(code)
	for {
		instr, ok := iter.Next()
		if !ok {
			return result
		}
		result = append(result, instr)
	}
}

func findOp(code *bytecode.Code, target op.Code) int {
	iter := bytecode.NewInstructionIter(code)
	for {
		offset := iter.Offset()
		instr, ok := iter.Next()
		if !ok {
			return -1
		}
		if instr[0] == target {
			return offset
		}
	}
}

func countOp(code *bytecode.Code, target op.Code) int {
	n := 0
	for _, instr := range instructions(code) {
		if instr[0] == target {
			n++
		}
	}
	return n
}

func TestCompileFunction(t *testing.T) {
	source := "int a = 0;\na = 10/a;"
	body, err := parser.ParseBody(context.Background(), source)
	require.Nil(t, err)
	fn, err := CompileFunction(nil, "ExecuteString", body, &Config{Filename: "ExecuteString", Source: source})
	require.Nil(t, err)

	require.Equal(t, "void ExecuteString()", fn.Declaration())
	require.Equal(t, "", fn.Module())
	require.Equal(t, bytecode.KindFunction, fn.Kind())

	code := fn.Code()
	require.Equal(t, [][]op.Code{
		{op.LoadConst, 0},
		{op.StoreFast, 0},
		{op.LoadConst, 1},
		{op.LoadFast, 0},
		{op.BinaryOp, op.Code(op.Divide)},
		{op.Copy, 0},
		{op.StoreFast, 0},
		{op.PopTop},
	}, instructions(code))
	require.Equal(t, int64(0), code.ConstantAt(0))
	require.Equal(t, int64(10), code.ConstantAt(1))

	div := findOp(code, op.BinaryOp)
	require.Equal(t, 2, code.LocationAt(div).Line)
	require.Equal(t, "ExecuteString", code.Filename())
	require.Equal(t, "a = 10/a;", code.GetSourceLine(2))
}

func TestCompileFunctionAgainstModule(t *testing.T) {
	mod := compileModule(t, `
class A {
  void Test(string c) {}
}
int counter = 1;
void bump() { counter++; }
`)
	source := "A a; a.Test(\"x\"); bump(); counter = 5;"
	body, err := parser.ParseBody(context.Background(), source)
	require.Nil(t, err)
	fn, err := CompileFunction(mod, "ExecuteString", body, &Config{Source: source})
	require.Nil(t, err)
	require.Equal(t, "test", fn.Module())

	code := fn.Code()
	require.Equal(t, 1, countOp(code, op.New))
	require.Equal(t, 1, countOp(code, op.CallMethod))
	require.Equal(t, 1, countOp(code, op.Call))
	require.Equal(t, 1, countOp(code, op.StoreGlobal))
}

func TestModuleStructure(t *testing.T) {
	mod := compileModule(t, `
class A {
  string name = 'a';
  A() {}
  A(int n) {}
  ~A() {}
  void Test(string c) { int a = 0, b = 0; a = a/b; }
}
class B { int x = 1; }
A g;
B @h;
int count = 3;
void main() { A a; a.Test("x"); }
`)
	require.Equal(t, "test", mod.Name())
	require.Equal(t, 1, mod.FunctionCount())
	require.Equal(t, "void main()", mod.FunctionAt(0).Declaration())

	a := mod.ClassByName("A")
	require.NotNil(t, a)
	require.Equal(t, 2, a.ConstructorCount())
	require.NotNil(t, a.Destructor())
	require.Equal(t, "~A()", a.Destructor().Declaration())
	test := a.Method("Test", 1)
	require.NotNil(t, test)
	require.Equal(t, "void Test(string c)", test.Declaration())
	require.Equal(t, "A::Test", test.QualifiedName())
	require.True(t, test.HasThis())

	b := mod.ClassByName("B")
	require.NotNil(t, b)
	require.Equal(t, 1, b.ConstructorCount())
	ctor := b.ConstructorAt(0)
	require.Equal(t, "B", ctor.Name())
	require.Equal(t, bytecode.KindConstructor, ctor.Kind())
	require.Nil(t, b.Destructor())

	require.Equal(t, 3, mod.GlobalCount())
	idx, ok := mod.GlobalIndex("h")
	require.True(t, ok)
	require.True(t, mod.GlobalAt(idx).Type.Handle)

	init := mod.Init()
	require.NotNil(t, init)
	require.Equal(t, InitFunctionName, init.Name())
	// g is created and count is set; h starts out null.
	require.Equal(t, 1, countOp(init.Code(), op.New))
	require.Equal(t, 2, countOp(init.Code(), op.StoreGlobal))
}

func TestNoInitWithoutInitializers(t *testing.T) {
	mod := compileModule(t, "int a; string s; void f() {}")
	require.Nil(t, mod.Init())
	require.Equal(t, 2, mod.GlobalCount())
}

func TestDefaultConstructorFieldInitializers(t *testing.T) {
	mod := compileModule(t, "class Test { string mem = 'hello'; int a = 0; int b = 10/a; }")
	class := mod.ClassByName("Test")
	require.Equal(t, 1, class.ConstructorCount())
	ctor := class.ConstructorAt(0)
	require.Equal(t, "Test", ctor.Name())
	require.Equal(t, "Test()", ctor.Declaration())

	code := ctor.Code()
	require.Equal(t, [][]op.Code{
		{op.LoadConst, 0},
		{op.LoadFast, 0},
		{op.StoreAttr, 0},
		{op.LoadConst, 1},
		{op.LoadFast, 0},
		{op.StoreAttr, 1},
		{op.LoadConst, 2},
		{op.LoadFast, 0},
		{op.LoadAttr, 1},
		{op.BinaryOp, op.Code(op.Divide)},
		{op.LoadFast, 0},
		{op.StoreAttr, 2},
	}, instructions(code))
	require.Equal(t, "mem", code.NameAt(0))
	require.Equal(t, "a", code.NameAt(1))
	require.Equal(t, "b", code.NameAt(2))
}

func TestDeclaredConstructorRunsFieldInitializers(t *testing.T) {
	mod := compileModule(t, `
class P {
  int x = 7;
  P(int v) { x = v; }
}`)
	ctor := mod.ClassByName("P").Constructor(1)
	require.NotNil(t, ctor)
	code := ctor.Code()
	// The initializer comes first, then the assignment from the body.
	require.Equal(t, 2, countOp(code, op.StoreAttr))
	require.Equal(t, []op.Code{op.LoadConst, 0}, instructions(code)[0])
	require.Equal(t, int64(7), code.ConstantAt(0))
}

func TestCallResolution(t *testing.T) {
	mod := compileModule(t, `
class C {
  int n;
  int get() { return n; }
  int twice() { return get() + this.get(); }
}
int helper(int a) { return a; }
void main() {
  C c;
  helper(1);
  c.twice();
  print("x");
}`)
	main := mod.FunctionByName("main")
	code := main.Code()
	require.Equal(t, 1, countOp(code, op.New))
	require.Equal(t, 1, countOp(code, op.Call))
	require.Equal(t, 1, countOp(code, op.CallMethod))
	require.Equal(t, 1, countOp(code, op.CallNative))
	native := findOp(code, op.CallNative)
	require.Equal(t, "print", code.NameAt(int(code.InstructionAt(native+1))))

	twice := mod.ClassByName("C").Method("twice", 0)
	require.Equal(t, 2, countOp(twice.Code(), op.CallMethod))
}

func TestBlockReleasesReferences(t *testing.T) {
	mod := compileModule(t, `
class R {}
void f() {
  {
    int i = 1;
    R r;
    R @h = r;
  }
}`)
	code := mod.FunctionByName("f").Code()
	instrs := instructions(code)
	// h (slot 2) then r (slot 1) are cleared, i is left alone.
	n := len(instrs)
	require.Equal(t, [][]op.Code{
		{op.Null},
		{op.StoreFast, 2},
		{op.Null},
		{op.StoreFast, 1},
	}, instrs[n-4:])
}

func TestShortCircuit(t *testing.T) {
	mod := compileModule(t, "bool f(bool a, bool b) { return a && b; }")
	require.Equal(t, [][]op.Code{
		{op.LoadFast, 0},
		{op.Copy, 0},
		{op.PopJumpIfFalse, 9},
		{op.PopTop},
		{op.LoadFast, 1},
		{op.ReturnValue},
	}, instructions(mod.FunctionByName("f").Code()))
}

func TestWhileLoop(t *testing.T) {
	mod := compileModule(t, "void f() { int i = 0; while (i < 3) i++; }")
	code := mod.FunctionByName("f").Code()
	jump := findOp(code, op.PopJumpIfFalse)
	require.True(t, jump > 0)
	// The loop exits past the end of the function.
	require.Equal(t, op.Code(code.InstructionCount()), code.InstructionAt(jump+1))
	back := findOp(code, op.Jump)
	require.Equal(t, op.Code(4), code.InstructionAt(back+1))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		errMsg string
	}{
		{
			name:   "undeclared identifier",
			input:  "void f() {\n  x = 1;\n}",
			errMsg: "compile error: x is not declared (test.as:2:3)",
		},
		{
			name:   "unknown type",
			input:  "void f() { Foo a; }",
			errMsg: "compile error: unknown type Foo (test.as:1:12)",
		},
		{
			name:   "void variable",
			input:  "void f() { void a; }",
			errMsg: "compile error: invalid use of void (test.as:1:12)",
		},
		{
			name:   "handle to primitive",
			input:  "int@ g;",
			errMsg: "compile error: handle to int is not allowed (test.as:1:6)",
		},
		{
			name:   "missing return value",
			input:  "int f() { return; }",
			errMsg: "compile error: f must return a value (test.as:1:11)",
		},
		{
			name:   "unexpected return value",
			input:  "void f() { return 1; }",
			errMsg: "compile error: f cannot return a value (test.as:1:12)",
		},
		{
			name:   "duplicate function",
			input:  "void f() {}\nvoid f() {}",
			errMsg: "compile error: function f taking 0 arguments is already declared (test.as:2:1)",
		},
		{
			name:   "duplicate local",
			input:  "void f() { int a; int a; }",
			errMsg: "compile error: a is already declared (test.as:1:23)",
		},
		{
			name:   "no such constructor",
			input:  "class A { A(int x) {} }\nvoid f() { A a; }",
			errMsg: "compile error: A has no constructor taking 0 arguments (test.as:2:14)",
		},
		{
			name:   "this outside class",
			input:  "void f() { this; }",
			errMsg: "compile error: this is only available in class members (test.as:1:12)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := compileErrors(t, tt.input, &Config{})
			require.Equal(t, tt.errMsg, errs[0].Error())
		})
	}
}

func TestErrorSourceLine(t *testing.T) {
	errs := compileErrors(t, "void f() {\n  int b = y;\n}", nil)
	require.Len(t, errs, 1)
	require.Equal(t, "  int b = y;", errs[0].Location.Source)
	require.Equal(t, "test.as", errs[0].Location.Filename)
}

func TestErrorsAcrossFunctions(t *testing.T) {
	errs := compileErrors(t, "void f() { a = 1; }\nvoid g() { b = 2; }", nil)
	require.Len(t, errs, 2)
	require.Equal(t, 1, errs[0].Location.Line)
	require.Equal(t, 2, errs[1].Location.Line)
}

func TestHostFunctionLookup(t *testing.T) {
	cfg := &Config{
		HostFunction: func(name string, argc int) bool {
			return name == "print" && argc == 1
		},
	}
	errs := compileErrors(t, "void f() { missing(); }", cfg)
	require.Equal(t, "no function named missing", errs[0].Message)

	errs = compileErrors(t, "void g(int a) {}\nvoid f() { g(); }", cfg)
	require.Equal(t, "no matching signature for g taking 0 arguments", errs[0].Message)

	mod := compileModule(t, "void f() { print('ok'); }")
	require.Equal(t, 1, countOp(mod.FunctionByName("f").Code(), op.CallNative))
}

func TestMultipleSections(t *testing.T) {
	src1 := "class A { ~A() { helper(); } }"
	src2 := "void helper() {}\nvoid test() { A a; }"
	p1, err := parser.Parse(context.Background(), src1, parser.WithFilename("script1"))
	require.Nil(t, err)
	p2, err := parser.Parse(context.Background(), src2, parser.WithFilename("script2"))
	require.Nil(t, err)
	mod, err := Compile([]Section{
		{Name: "script1", Source: src1, Program: p1},
		{Name: "script2", Source: src2, Program: p2},
	}, &Config{ModuleName: "test"})
	require.Nil(t, err)
	require.Equal(t, 2, mod.FunctionCount())
	require.Equal(t, "script1", mod.ClassByName("A").Destructor().Code().Filename())
	require.Equal(t, "script2", mod.FunctionByName("test").Code().Filename())
}
