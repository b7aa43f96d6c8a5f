package vm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
	"github.com/stretchr/testify/require"
)

func TestDivideByZero(t *testing.T) {
	e := NewEngine()
	fn := snippet(t, e, nil, "int a = 0;\na = 10/a;")
	xctx, outcome := run(t, e, fn)
	defer xctx.Release()

	require.Equal(t, OutcomeException, outcome)
	require.Equal(t, StateFinished, xctx.State())
	require.Equal(t, 0, xctx.CallstackSize())

	msg, ok := xctx.ExceptionString()
	require.True(t, ok)
	require.Equal(t, "Divide by zero", msg)
	excFn, ok := xctx.ExceptionFunction()
	require.True(t, ok)
	require.Equal(t, "void ExecuteString()", excFn.Declaration())
	line, ok := xctx.ExceptionLineNumber()
	require.True(t, ok)
	require.Equal(t, 2, line)

	exc := xctx.ExceptionInfo()
	require.Equal(t, errz.DivideByZero, exc.Kind)
	require.Equal(t, "a = 10/a;", exc.Location.Source)
	require.Equal(t, "ExecuteString", exc.Location.Filename)
	require.True(t, errors.Is(exc, object.ErrDivideByZero))

	// Exception information lasts until the next Prepare.
	require.Nil(t, xctx.Prepare(fn))
	require.Nil(t, xctx.ExceptionInfo())
	_, ok = xctx.ExceptionString()
	require.False(t, ok)
}

func TestFaultKinds(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		kind    errz.Kind
		message string
	}{
		{
			name:    "divide by zero",
			source:  "float f = 0; f = 1.5 / f;",
			kind:    errz.DivideByZero,
			message: "Divide by zero",
		},
		{
			name:    "modulo by zero",
			source:  "int a = 0; a = 5 % a;",
			kind:    errz.DivideByZero,
			message: "Divide by zero",
		},
		{
			name:    "index out of bounds",
			source:  "string[] list = {'something'}; string s = list[1];",
			kind:    errz.IndexOutOfBounds,
			message: "Index out of bounds",
		},
		{
			name:    "negative index",
			source:  "int[] list = {1}; list[-1] = 2;",
			kind:    errz.IndexOutOfBounds,
			message: "Index out of bounds",
		},
		{
			name:    "remove from empty array",
			source:  "int[] list; list.removeLast();",
			kind:    errz.IndexOutOfBounds,
			message: "Index out of bounds",
		},
		{
			name:    "null subscript",
			source:  "int[]@ list; int x = list[0];",
			kind:    errz.NullPointerAccess,
			message: "Null pointer access",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine()
			xctx, outcome := run(t, e, snippet(t, e, nil, tt.source))
			require.Equal(t, OutcomeException, outcome)
			exc := xctx.ExceptionInfo()
			require.Equal(t, tt.kind, exc.Kind)
			require.Equal(t, tt.message, exc.Message)
			xctx.Release()
			require.Nil(t, e.Shutdown())
		})
	}
}

func TestNullPointerAccess(t *testing.T) {
	e := NewEngine()
	mod := build(t, e, "test", `
class A {
  int count;
  int GetCount() { return count; }
}
void run() {
  A @a = null;
  for (int i = 0; i < a.GetCount(); i++) {}
}
`)
	xctx, outcome := run(t, e, mod.FunctionByName("run"))
	defer xctx.Release()
	require.Equal(t, OutcomeException, outcome)
	msg, _ := xctx.ExceptionString()
	require.Equal(t, "Null pointer access", msg)
	line, _ := xctx.ExceptionLineNumber()
	require.Equal(t, 8, line)
}

type exceptionHandler struct {
	calls int
	state State
	fn    string
	line  int
	depth int
	msg   string
}

func (h *exceptionHandler) OnException(ctx *Context) {
	h.calls++
	h.state = ctx.State()
	if fn, ok := ctx.FunctionAt(0); ok {
		h.fn = fn.Name()
	}
	h.line, _ = ctx.LineNumberAt(0)
	h.depth = ctx.CallstackSize()
	h.msg, _ = ctx.ExceptionString()
}

const callbackScript = `
void inner(int[] list) {
  int x = list[5];
}
void outer() {
  int[] list = {1, 2};
  inner(list);
}
`

func TestExceptionCallback(t *testing.T) {
	e := NewEngine()
	mod := build(t, e, "test", callbackScript)
	h := &exceptionHandler{}

	xctx := e.CreateContext()
	xctx.SetExceptionCallback(h.OnException)
	require.Nil(t, xctx.Prepare(mod.FunctionByName("outer")))
	outcome, err := xctx.Execute(context.Background())
	require.Nil(t, err)
	require.Equal(t, OutcomeException, outcome)

	// The callback sees the frames before they are unwound.
	require.Equal(t, 1, h.calls)
	require.Equal(t, StateExceptionRaised, h.state)
	require.Equal(t, "inner", h.fn)
	require.Equal(t, 3, h.line)
	require.Equal(t, 2, h.depth)
	require.Equal(t, "Index out of bounds", h.msg)

	exc := xctx.ExceptionInfo()
	require.Len(t, exc.Stack, 2)
	require.Equal(t, "inner", exc.Stack[0].Function)
	require.Equal(t, "outer", exc.Stack[1].Function)
	require.Equal(t, 7, exc.Stack[1].Location.Line)

	xctx.Release()
	require.Nil(t, e.Shutdown())
}

func TestEngineExceptionCallback(t *testing.T) {
	calls := 0
	e := NewEngine(WithExceptionCallback(func(*Context) { calls++ }))
	mod := build(t, e, "test", callbackScript)

	xctx, outcome := run(t, e, mod.FunctionByName("outer"))
	require.Equal(t, OutcomeException, outcome)
	require.Equal(t, 1, calls)

	// A nil context callback disables the engine callback.
	xctx.SetExceptionCallback(nil)
	require.Nil(t, xctx.Prepare(mod.FunctionByName("outer")))
	outcome, err := xctx.Execute(context.Background())
	require.Nil(t, err)
	require.Equal(t, OutcomeException, outcome)
	require.Equal(t, 1, calls)
	xctx.Release()
}

func TestPanickingCallback(t *testing.T) {
	e := NewEngine(WithExceptionCallback(func(*Context) { panic("callback bug") }))
	mod := build(t, e, "test", callbackScript)
	xctx, outcome := run(t, e, mod.FunctionByName("outer"))
	require.Equal(t, OutcomeException, outcome)
	msg, _ := xctx.ExceptionString()
	require.Equal(t, "Index out of bounds", msg)
	xctx.Release()
	require.Nil(t, e.Shutdown())
}

func TestNativeFaults(t *testing.T) {
	boom := errors.New("boom")
	register := func(t *testing.T, e *Engine) {
		require.Nil(t, e.RegisterFunction("void ThrowError()", func(*Context, []object.Object) (object.Object, error) {
			return nil, boom
		}))
		require.Nil(t, e.RegisterFunction("void Panic()", func(*Context, []object.Object) (object.Object, error) {
			panic("kaboom")
		}))
		require.Nil(t, e.RegisterFunction("void Raise()", func(ctx *Context, _ []object.Object) (object.Object, error) {
			require.Nil(t, ctx.SetException("raised by host"))
			return nil, nil
		}))
	}
	translator := func(ctx *Context, fault any) {
		ctx.SetException(fmt.Sprintf("translated: %v", fault))
	}

	t.Run("untranslated error", func(t *testing.T) {
		e := NewEngine()
		register(t, e)
		xctx, outcome := run(t, e, snippet(t, e, nil, "ThrowError();"))
		require.Equal(t, OutcomeException, outcome)
		exc := xctx.ExceptionInfo()
		require.Equal(t, errz.Unknown, exc.Kind)
		require.Equal(t, "Unknown exception", exc.Message)
		require.True(t, errors.Is(exc, boom))
		xctx.Release()
	})

	t.Run("untranslated panic", func(t *testing.T) {
		e := NewEngine()
		register(t, e)
		xctx, outcome := run(t, e, snippet(t, e, nil, "Panic();"))
		require.Equal(t, OutcomeException, outcome)
		require.Equal(t, "Unknown exception", xctx.ExceptionInfo().Message)
		xctx.Release()
	})

	t.Run("context translator", func(t *testing.T) {
		e := NewEngine()
		register(t, e)
		xctx := e.CreateContext()
		defer xctx.Release()
		xctx.SetTranslateNativeExceptionCallback(translator)

		require.Nil(t, xctx.Prepare(snippet(t, e, nil, "ThrowError();")))
		outcome, err := xctx.Execute(context.Background())
		require.Nil(t, err)
		require.Equal(t, OutcomeException, outcome)
		exc := xctx.ExceptionInfo()
		require.Equal(t, errz.HostTranslated, exc.Kind)
		require.Equal(t, "translated: boom", exc.Message)

		require.Nil(t, xctx.Prepare(snippet(t, e, nil, "Panic();")))
		outcome, err = xctx.Execute(context.Background())
		require.Nil(t, err)
		require.Equal(t, OutcomeException, outcome)
		require.Equal(t, "translated: kaboom", xctx.ExceptionInfo().Message)
	})

	t.Run("engine translator", func(t *testing.T) {
		e := NewEngine(WithTranslator(translator))
		register(t, e)
		xctx, outcome := run(t, e, snippet(t, e, nil, "ThrowError();"))
		require.Equal(t, OutcomeException, outcome)
		require.Equal(t, "translated: boom", xctx.ExceptionInfo().Message)
		xctx.Release()
	})

	t.Run("translator that sets nothing", func(t *testing.T) {
		e := NewEngine(WithTranslator(func(*Context, any) {}))
		register(t, e)
		xctx, outcome := run(t, e, snippet(t, e, nil, "ThrowError();"))
		require.Equal(t, OutcomeException, outcome)
		require.Equal(t, "Unknown exception", xctx.ExceptionInfo().Message)
		xctx.Release()
	})

	t.Run("set exception", func(t *testing.T) {
		e := NewEngine()
		register(t, e)
		xctx, outcome := run(t, e, snippet(t, e, nil, "int x = 1;\nRaise();"))
		require.Equal(t, OutcomeException, outcome)
		exc := xctx.ExceptionInfo()
		require.Equal(t, errz.HostTranslated, exc.Kind)
		require.Equal(t, "raised by host", exc.Message)
		require.Equal(t, 2, exc.Location.Line)
		require.True(t, errors.Is(xctx.SetException("outside"), errz.ErrInvalidState))
		xctx.Release()
	})
}

func TestStackOverflow(t *testing.T) {
	e := NewEngine(WithMaxFrameDepth(20))
	mod := build(t, e, "test", "int f(int n) { return f(n + 1); }")
	xctx, outcome := run(t, e, mod.FunctionByName("f"))
	require.Equal(t, OutcomeException, outcome)
	exc := xctx.ExceptionInfo()
	require.Equal(t, errz.StackOverflow, exc.Kind)
	require.Equal(t, "Stack overflow", exc.Message)
	require.Len(t, exc.Stack, 20)
	require.Equal(t, 0, xctx.CallstackSize())
	xctx.Release()
}

func TestNestedCall(t *testing.T) {
	e := NewEngine()
	var callErr error
	require.Nil(t, e.RegisterFunction("void callInner()", func(ctx *Context, args []object.Object) (object.Object, error) {
		fn := ctx.Engine().Module("test").FunctionByName("inner")
		_, callErr = ctx.Call(fn)
		// The error is dropped on purpose: the exception still propagates.
		return nil, nil
	}))
	require.Nil(t, e.RegisterFunction("int useTwice()", func(ctx *Context, args []object.Object) (object.Object, error) {
		fn := ctx.Engine().Module("test").FunctionByName("twice")
		return ctx.Call(fn, object.NewInt(21))
	}))
	mod := build(t, e, "test", `
void inner() { int z = 0; int y = 1 / z; }
void outer() { callInner(); }
int twice(int n) { return n * 2; }
int viaHost() { return useTwice(); }
`)

	calls := 0
	xctx := e.CreateContext()
	defer xctx.Release()
	xctx.SetExceptionCallback(func(*Context) { calls++ })

	require.Nil(t, xctx.Prepare(mod.FunctionByName("outer")))
	outcome, err := xctx.Execute(context.Background())
	require.Nil(t, err)
	require.Equal(t, OutcomeException, outcome)
	require.Equal(t, 1, calls)
	var exc *errz.Exception
	require.True(t, errors.As(callErr, &exc))
	require.Same(t, exc, xctx.ExceptionInfo())
	fn, _ := xctx.ExceptionFunction()
	require.Equal(t, "inner", fn.Name())

	require.Nil(t, xctx.Prepare(mod.FunctionByName("viaHost")))
	outcome, err = xctx.Execute(context.Background())
	require.Nil(t, err)
	require.Equal(t, OutcomeFinished, outcome)
	require.Equal(t, int64(42), xctx.ReturnValue().(*object.Int).Value())

	_, err = xctx.Call(mod.FunctionByName("twice"), object.NewInt(1))
	require.True(t, errors.Is(err, errz.ErrInvalidState))
}

type recordingObserver struct {
	NoOpObserver
	calls      []string
	returns    []string
	exceptions []string
}

func (o *recordingObserver) OnCall(ev CallEvent) bool {
	o.calls = append(o.calls, ev.Function.Name())
	return true
}

func (o *recordingObserver) OnReturn(ev ReturnEvent) bool {
	o.returns = append(o.returns, ev.Function.Name())
	return true
}

func (o *recordingObserver) OnException(ev ExceptionEvent) {
	o.exceptions = append(o.exceptions, ev.Exception.Message)
}

func TestObserver(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(WithObserver(obs))
	mod := build(t, e, "test", `
int one() { return 1; }
int two() { return one() + one(); }
void fail() { int z = two() - 2; int y = 1 / z; }
`)
	xctx, outcome := run(t, e, mod.FunctionByName("fail"))
	require.Equal(t, OutcomeException, outcome)
	require.Equal(t, []string{"fail", "two", "one", "one"}, obs.calls)
	require.Equal(t, []string{"one", "one", "two"}, obs.returns)
	require.Equal(t, []string{"Divide by zero"}, obs.exceptions)
	xctx.Release()
}

type stoppingObserver struct {
	NoOpObserver
	steps int
}

func (o *stoppingObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (o *stoppingObserver) OnStep(StepEvent) bool {
	o.steps++
	return o.steps < 10
}

func TestObserverAbort(t *testing.T) {
	obs := &stoppingObserver{}
	e := NewEngine(WithObserver(obs))
	mod := build(t, e, "test", "void spin() { while (true) {} }")
	xctx, outcome := run(t, e, mod.FunctionByName("spin"))
	require.Equal(t, OutcomeAborted, outcome)
	require.Equal(t, 10, obs.steps)
	xctx.Release()
}
