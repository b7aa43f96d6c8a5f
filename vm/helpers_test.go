package vm

import (
	"context"
	"testing"

	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/compiler"
	"github.com/risor-io/vmctx/object"
	"github.com/risor-io/vmctx/parser"
	"github.com/stretchr/testify/require"
)

func hostLookup(e *Engine) func(string, int) bool {
	return func(name string, argc int) bool {
		_, ok := e.Function(name, argc)
		return ok
	}
}

// build compiles source as a module and adds it to the engine.
func build(t *testing.T, e *Engine, name, source string) *bytecode.Module {
	t.Helper()
	program, err := parser.Parse(context.Background(), source, parser.WithFilename(name))
	require.Nil(t, err)
	mod, err := compiler.Compile([]compiler.Section{{Name: name, Source: source, Program: program}},
		&compiler.Config{ModuleName: name, HostFunction: hostLookup(e)})
	require.Nil(t, err)
	require.Nil(t, e.AddModule(context.Background(), mod))
	return mod
}

// snippet compiles statements into a function named ExecuteString.
func snippet(t *testing.T, e *Engine, mod *bytecode.Module, source string) *bytecode.Function {
	t.Helper()
	body, err := parser.ParseBody(context.Background(), source, parser.WithFilename("ExecuteString"))
	require.Nil(t, err)
	fn, err := compiler.CompileFunction(mod, "ExecuteString", body,
		&compiler.Config{Filename: "ExecuteString", Source: source, HostFunction: hostLookup(e)})
	require.Nil(t, err)
	return fn
}

// run prepares fn on a new context and executes it.
func run(t *testing.T, e *Engine, fn *bytecode.Function) (*Context, Outcome) {
	t.Helper()
	xctx := e.CreateContext()
	require.Nil(t, xctx.Prepare(fn))
	outcome, err := xctx.Execute(context.Background())
	require.Nil(t, err)
	return xctx, outcome
}

// recorder is a host function that records the strings it is called with.
type recorder struct {
	calls []string
}

func (r *recorder) register(t *testing.T, e *Engine, name string) {
	t.Helper()
	require.Nil(t, e.RegisterFunction("void "+name+"(const string &in)",
		func(ctx *Context, args []object.Object) (object.Object, error) {
			r.calls = append(r.calls, args[0].(*object.String).Value())
			return nil, nil
		}))
}
