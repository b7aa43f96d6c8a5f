package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/ast"
	"github.com/risor-io/vmctx/errz"
	"github.com/stretchr/testify/require"
)

func parseExpr(t *testing.T, input string) ast.Expr {
	t.Helper()
	block, err := ParseBody(context.Background(), input+";")
	require.NoError(t, err)
	require.Len(t, block.Stmts, 1)
	stmt, ok := block.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok, "expected an expression statement, got %T", block.Stmts[0])
	return stmt.X
}

func compileErrors(t *testing.T, err error) []*errz.CompileError {
	t.Helper()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr), "expected a multierror, got %T", err)
	var result []*errz.CompileError
	for _, e := range merr.Errors {
		var ce *errz.CompileError
		require.True(t, errors.As(e, &ce))
		result = append(result, ce)
	}
	return result
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a = 10/a", "a = (10 / a)"},
		{"a = b = 3", "a = b = 3"},
		{"x += y * 2", "x += (y * 2)"},
		{"-a.b", "(-a.b)"},
		{"!a && b || c", "(((!a) && b) || c)"},
		{"a || b && c", "(a || (b && c))"},
		{"a !is null", "(a !is null)"},
		{"a is b == true", "((a is b) == true)"},
		{"i < a.GetCount()", "(i < a.GetCount())"},
		{"i++", "(i++)"},
		{"++i", "(++i)"},
		{"list[1]", "list[1]"},
		{"this.nullptr.A = 100", "this.nullptr.A = 100"},
		{"a % 3 - 1 >= 0", "(((a % 3) - 1) >= 0)"},
		{"print('destruct')", `print("destruct")`},
		{"f(1, g(2), 3.5)", "f(1, g(2), 3.5)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.expected, parseExpr(t, tt.input).String())
		})
	}
}

func TestInvalidAssignmentTarget(t *testing.T) {
	for _, input := range []string{"1 = 2;", "f() = 1;", "3++;"} {
		_, err := ParseBody(context.Background(), input)
		require.Error(t, err, input)
		require.Contains(t, err.Error(), "cannot assign")
	}
}

func TestLiterals(t *testing.T) {
	x := parseExpr(t, "3.14f")
	f, ok := x.(*ast.Float)
	require.True(t, ok)
	require.InDelta(t, 3.14, f.Value, 1e-9)

	i, ok := parseExpr(t, "42").(*ast.Int)
	require.True(t, ok)
	require.Equal(t, int64(42), i.Value)

	s, ok := parseExpr(t, `'it\'s'`).(*ast.String)
	require.True(t, ok)
	require.Equal(t, "it's", s.Value)

	b, ok := parseExpr(t, "false").(*ast.Bool)
	require.True(t, ok)
	require.False(t, b.Value)

	_, ok = parseExpr(t, "null").(*ast.Null)
	require.True(t, ok)

	_, ok = parseExpr(t, "this").(*ast.This)
	require.True(t, ok)
}

func TestVarDeclarations(t *testing.T) {
	block, err := ParseBody(context.Background(), `
int a = 0, b;
A @h = null;
string[] list = {'something', 'else'};
const float f = 1.5;
A obj(1, 'x');
`)
	require.NoError(t, err)
	require.Len(t, block.Stmts, 5)

	decl := block.Stmts[0].(*ast.Var)
	require.Equal(t, "int", decl.Type.Name)
	require.Len(t, decl.Vars, 2)
	require.Equal(t, "a", decl.Vars[0].Name.Name)
	require.Equal(t, "0", decl.Vars[0].Value.String())
	require.Nil(t, decl.Vars[1].Value)
	require.Equal(t, 2, decl.Pos().LineNumber())

	handle := block.Stmts[1].(*ast.Var)
	require.True(t, handle.Type.Handle)
	require.Equal(t, "A@ h = null;", handle.String())

	list := block.Stmts[2].(*ast.Var)
	require.True(t, list.Type.Array)
	init, ok := list.Vars[0].Value.(*ast.InitList)
	require.True(t, ok)
	require.Len(t, init.Items, 2)

	f := block.Stmts[3].(*ast.Var)
	require.True(t, f.Type.Const)
	require.Equal(t, "const float f = 1.5;", f.String())

	obj := block.Stmts[4].(*ast.Var)
	require.True(t, obj.Vars[0].HasArgs)
	require.Len(t, obj.Vars[0].Args, 2)
}

func TestConstructorCallStatement(t *testing.T) {
	block, err := ParseBody(context.Background(), "SomeClassA a; SomeClassB(a);")
	require.NoError(t, err)
	require.Len(t, block.Stmts, 2)
	_, ok := block.Stmts[0].(*ast.Var)
	require.True(t, ok)
	stmt, ok := block.Stmts[1].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := stmt.X.(*ast.Call)
	require.True(t, ok)
	require.Equal(t, "SomeClassB", call.Fn.String())
}

func TestFunctionDeclaration(t *testing.T) {
	program, err := Parse(context.Background(), `
string post_score(int x, const string &in name, int &out result, A@ h)
{
	string[] list={'something'};
	return list[1];
}
void main(void) {}
`)
	require.NoError(t, err)
	require.Len(t, program.Stmts, 2)

	fn := program.Stmts[0].(*ast.Func)
	require.Equal(t, ast.FuncFree, fn.Kind)
	require.Equal(t, "post_score", fn.Name.Name)
	require.Equal(t, "string", fn.Returns.Name)
	require.Equal(t, 2, fn.Pos().LineNumber())
	require.Len(t, fn.Params, 4)
	require.Equal(t, "", fn.Params[0].Mode)
	require.Equal(t, "&in", fn.Params[1].Mode)
	require.True(t, fn.Params[1].Type.Const)
	require.Equal(t, "&out", fn.Params[2].Mode)
	require.True(t, fn.Params[3].Type.Handle)
	require.Len(t, fn.Body.Stmts, 2)

	main := program.Stmts[1].(*ast.Func)
	require.Empty(t, main.Params)
	require.Empty(t, main.Body.Stmts)
}

func TestClassDeclaration(t *testing.T) {
	program, err := Parse(context.Background(), `
class SomeClassB
{
	SomeClassA@ nullptr;
	int a = 0, b = 10/a;
	SomeClassB(SomeClassA@ aPtr)
	{
		this.nullptr.A=100;
	}
	~SomeClassB() { print('destruct'); }
	int GetCount() { return a; }
}
`)
	require.NoError(t, err)
	require.Len(t, program.Stmts, 1)

	class := program.Stmts[0].(*ast.Class)
	require.Equal(t, "SomeClassB", class.Name.Name)
	require.Len(t, class.Fields, 2)
	require.True(t, class.Fields[0].Type.Handle)
	require.Equal(t, "b = (10 / a)", class.Fields[1].Vars[1].String())

	require.Len(t, class.Methods, 3)
	require.Equal(t, ast.FuncConstructor, class.Methods[0].Kind)
	require.Nil(t, class.Methods[0].Returns)
	require.Len(t, class.Methods[0].Params, 1)
	require.Equal(t, ast.FuncDestructor, class.Methods[1].Kind)
	require.Equal(t, 10, class.Methods[1].Pos().LineNumber())
	require.Equal(t, ast.FuncMethod, class.Methods[2].Kind)
	require.Equal(t, "int", class.Methods[2].Returns.Name)
}

func TestDestructorErrors(t *testing.T) {
	_, err := Parse(context.Background(), "class A { ~B() {} }")
	require.Error(t, err)
	require.Contains(t, err.Error(), "does not match")

	_, err = Parse(context.Background(), "class A { ~A(int x) {} }")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot take parameters")
}

func TestControlFlow(t *testing.T) {
	block, err := ParseBody(context.Background(), `
for( int i=0; i < a.GetCount(); i++ ) { x += i; }
for (;;) ;
while (n > 0) n--;
if (a is null) return; else { b = 1; }
`)
	require.NoError(t, err)
	require.Len(t, block.Stmts, 4)

	loop := block.Stmts[0].(*ast.For)
	require.IsType(t, &ast.Var{}, loop.Init)
	require.Equal(t, "(i < a.GetCount())", loop.Cond.String())
	require.Len(t, loop.Post, 1)
	require.Equal(t, 2, loop.Pos().LineNumber())

	forever := block.Stmts[1].(*ast.For)
	require.Nil(t, forever.Init)
	require.Nil(t, forever.Cond)
	require.Empty(t, forever.Post)

	while := block.Stmts[2].(*ast.While)
	require.Equal(t, "(n > 0)", while.Cond.String())

	cond := block.Stmts[3].(*ast.If)
	require.IsType(t, &ast.Return{}, cond.Then)
	require.IsType(t, &ast.Block{}, cond.Else)
}

func TestErrorLocation(t *testing.T) {
	_, err := Parse(context.Background(), "int a = 0;\nint b = ;", WithFilename("main.as"))
	require.Error(t, err)
	errs := compileErrors(t, err)
	require.Len(t, errs, 1)
	require.Equal(t, "main.as", errs[0].Location.Filename)
	require.Equal(t, 2, errs[0].Location.Line)
	require.Equal(t, 9, errs[0].Location.Column)
	require.Equal(t, "int b = ;", errs[0].Location.Source)
}

func TestMultipleErrors(t *testing.T) {
	_, err := Parse(context.Background(), "int a = ;\nint b = ;\nint c = 1;")
	require.Error(t, err)
	require.Len(t, compileErrors(t, err), 2)
}

func TestLexerError(t *testing.T) {
	program, err := Parse(context.Background(), "int a = 'open")
	require.Nil(t, program)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated string")
}

func TestTopLevelStatementRejected(t *testing.T) {
	_, err := Parse(context.Background(), "return 1;")
	require.Error(t, err)
	require.Contains(t, err.Error(), "top level")
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, "int a = 1;")
	require.ErrorIs(t, err, context.Canceled)
}

func TestMaxDepth(t *testing.T) {
	input := strings.Repeat("(", 50) + "1" + strings.Repeat(")", 50)
	_, err := ParseBody(context.Background(), input+";", WithMaxDepth(20))
	require.Error(t, err)
	require.Contains(t, err.Error(), "maximum nesting depth")

	_, err = ParseBody(context.Background(), input+";")
	require.NoError(t, err)
}

func TestProgramString(t *testing.T) {
	program, err := Parse(context.Background(), "int a = 0;\nvoid f() { a = a + 1; }")
	require.NoError(t, err)
	require.Equal(t, "int a = 0;\nvoid f() {\n\ta = (a + 1);\n}", program.String())
}
