package vm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gofrs/uuid"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
	"github.com/rs/zerolog"
)

// State of a Context.
type State int

const (
	StateUninitialized State = iota
	StatePrepared
	StateActive
	StateSuspended
	StateExceptionRaised
	StateFinished
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePrepared:
		return "prepared"
	case StateActive:
		return "active"
	case StateSuspended:
		return "suspended"
	case StateExceptionRaised:
		return "exception"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Outcome is the result of a call to Execute.
type Outcome int

const (
	// OutcomeFinished means the function returned normally.
	OutcomeFinished Outcome = iota + 1
	// OutcomeSuspended means execution stopped at a safe point after Suspend
	// was called. Calling Execute again resumes it.
	OutcomeSuspended
	// OutcomeException means a script exception was raised. The exception
	// is available through ExceptionInfo until the next Prepare or Unprepare.
	OutcomeException
	// OutcomeAborted means execution was stopped by Abort or by cancellation
	// of the context.Context given to Execute.
	OutcomeAborted
)

// String returns the name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeFinished:
		return "finished"
	case OutcomeSuspended:
		return "suspended"
	case OutcomeException:
		return "exception"
	case OutcomeAborted:
		return "aborted"
	default:
		return "none"
	}
}

var (
	errSuspended = errors.New("execution suspended")
	errAborted   = errors.New("execution aborted")
)

// Context prepares a function call, runs it and reports its outcome. A
// context runs one call at a time on the goroutine that calls Execute.
// Suspend and Abort may be called from any goroutine; everything else must be
// serialized by the host.
type Context struct {
	engine *Engine
	id     uuid.UUID
	logger zerolog.Logger
	state  State

	// fn is the prepared function and args its staged object and arguments,
	// laid out like the frame's leading slots.
	fn   *bytecode.Function
	args []Slot

	frames []*frame
	stack  []object.Object

	exception   *errz.Exception
	returnValue object.Object

	callback      ExceptionCallback
	hasCallback   bool
	translator    Translator
	hasTranslator bool

	suspendRequested atomic.Bool
	abortRequested   atomic.Bool
	unprepareOnExit  bool
	released         bool

	goCtx            context.Context
	instructionCount int
	backEdge         bool
	obs              *observation

	// nativeDepth counts host function calls in progress; SetException is
	// only allowed inside one.
	nativeDepth     int
	pendingMessage  string
	hasPending      bool
	nestedDepth     int
	destructorDepth int

	destructorFaults []error
}

func newContext(e *Engine) *Context {
	id := uuid.Must(uuid.NewV4())
	return &Context{
		engine: e,
		id:     id,
		logger: e.logger.With().Str("context_id", id.String()).Logger(),
		goCtx:  context.Background(),
	}
}

// ID returns the unique identifier of the context.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// Engine returns the engine that created the context.
func (c *Context) Engine() *Engine {
	return c.engine
}

// State returns the current state.
func (c *Context) State() State {
	return c.state
}

// Prepare binds fn as the function the next Execute will call. Any previous
// call is unprepared first and its exception information is cleared.
func (c *Context) Prepare(fn *bytecode.Function) error {
	switch c.state {
	case StateActive, StateSuspended, StateExceptionRaised:
		return fmt.Errorf("%w: prepare while %s", errz.ErrInvalidState, c.state)
	}
	if fn == nil {
		return fmt.Errorf("%w: prepare called with nil function", errz.ErrNoFunction)
	}
	if fn.Code() == nil {
		return fmt.Errorf("%w: %s has no script body", errz.ErrNoFunction, fn.Declaration())
	}
	c.Unprepare()
	c.fn = fn
	c.args = make([]Slot, fn.ParamSlot(fn.ParamCount()))
	c.suspendRequested.Store(false)
	c.abortRequested.Store(false)
	c.state = StatePrepared
	c.logger.Debug().Str("function", fn.Declaration()).Msg("prepared")
	return nil
}

// Function returns the prepared function, or nil.
func (c *Context) Function() *bytecode.Function {
	return c.fn
}

// SetArgument binds the argument for parameter i. How the context holds it
// depends on the parameter: primitives are stored by value, by-value
// parameters of heap types receive a copy owned by the context, handle
// parameters gain a reference owned by the context, and reference parameters
// (&in, &out, &inout) store the object's address without taking ownership.
func (c *Context) SetArgument(i int, obj object.Object) error {
	if c.state != StatePrepared {
		return fmt.Errorf("%w: set argument while %s", errz.ErrInvalidState, c.state)
	}
	if i < 0 || i >= c.fn.ParamCount() {
		return fmt.Errorf("%w: %s has no parameter %d", errz.ErrTypeMismatch, c.fn.Declaration(), i)
	}
	param := c.fn.Param(i)
	converted, err := convertArgument(param.Type, obj)
	if err != nil {
		return fmt.Errorf("%w: parameter %d of %s: %s", errz.ErrTypeMismatch, i, c.fn.Declaration(), err)
	}
	var slot Slot
	switch {
	case param.Mode.IsReference():
		slot = Slot{Value: converted, Ownership: Addressed}
	case param.Mode == bytecode.ParamHandle || param.Type.Handle:
		slot = Slot{Value: object.AddRef(converted), Ownership: ownershipOf(converted)}
	default:
		copied := c.engine.heap.Copy(converted)
		slot = Slot{Value: copied, Ownership: ownershipOf(copied)}
	}
	idx := c.fn.ParamSlot(i)
	c.releaseSlot(c.args[idx])
	c.args[idx] = slot
	return nil
}

// SetArgInt binds an int argument.
func (c *Context) SetArgInt(i int, value int64) error {
	return c.SetArgument(i, object.NewInt(value))
}

// SetArgFloat binds a float argument.
func (c *Context) SetArgFloat(i int, value float64) error {
	return c.SetArgument(i, object.NewFloat(value))
}

// SetArgString binds a string argument. The context owns the string it
// allocates.
func (c *Context) SetArgString(i int, value string) error {
	s := c.engine.heap.NewString(value)
	defer c.engine.heap.Release(s, nil)
	return c.SetArgument(i, s)
}

// SetObject binds the object a method is called on. The context only records
// the address: it never releases the object, which remains owned by the
// caller.
func (c *Context) SetObject(obj object.Object) error {
	if c.state != StatePrepared {
		return fmt.Errorf("%w: set object while %s", errz.ErrInvalidState, c.state)
	}
	if !c.fn.HasThis() {
		return fmt.Errorf("%w: %s is not a method", errz.ErrInvalidState, c.fn.Declaration())
	}
	inst, ok := obj.(*object.Instance)
	if !ok || inst.Class().Name() != c.fn.ClassName() {
		return fmt.Errorf("%w: object for %s must be an instance of %s",
			errz.ErrTypeMismatch, c.fn.QualifiedName(), c.fn.ClassName())
	}
	c.releaseSlot(c.args[0])
	c.args[0] = Slot{Value: inst, Ownership: Addressed}
	return nil
}

// Execute runs the prepared function, or resumes a suspended one, until it
// returns, raises an exception, is suspended or is aborted. The returned
// error is non-nil only when the call could not be run (for example when
// nothing is prepared), when ctx was cancelled, or on an internal failure;
// script exceptions are reported through OutcomeException and
// ExceptionInfo.
func (c *Context) Execute(ctx context.Context) (outcome Outcome, err error) {
	entering := c.state == StatePrepared
	switch c.state {
	case StatePrepared:
		if err := c.enter(); err != nil {
			return 0, err
		}
	case StateSuspended:
	default:
		return 0, fmt.Errorf("%w: execute while %s", errz.ErrInvalidState, c.state)
	}
	c.state = StateActive
	c.goCtx = ctx
	c.instructionCount = 0
	c.obs = newObservation(c.engine.observer)

	stopWatch := c.watch(ctx)
	defer func() {
		stopWatch()
		c.goCtx = context.Background()
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("execution panicked")
			c.unwindTo(0)
			c.state = StateFinished
			outcome, err = OutcomeAborted, fmt.Errorf("panic: %v", r)
		}
		if c.unprepareOnExit {
			c.unprepareOnExit = false
			c.Unprepare()
			if c.released {
				c.engine.recycle(c)
			}
		}
	}()
	if entering && !c.obs.call(c, c.fn, c.fn.ParamCount(), bytecode.SourceLocation{}) {
		c.abortRequested.Store(true)
	}

	evalErr := c.eval(0)
	stopWatch()
	c.goCtx = context.Background()

	var exc *errz.Exception
	switch {
	case evalErr == nil:
		c.returnValue = c.pop()
		c.state = StateFinished
		outcome = OutcomeFinished
	case errors.Is(evalErr, errSuspended):
		c.state = StateSuspended
		outcome = OutcomeSuspended
	case errors.As(evalErr, &exc):
		c.unwindTo(0)
		c.state = StateFinished
		outcome = OutcomeException
	default:
		c.unwindTo(0)
		c.state = StateFinished
		outcome = OutcomeAborted
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}
	c.logger.Debug().Str("outcome", outcome.String()).Msg("execute finished")
	return outcome, err
}

// enter pushes the frame for the prepared call. Unset arguments receive the
// zero value of their type. Constructors called without an object get a new
// default instance.
func (c *Context) enter() error {
	fn := c.fn
	state := c.engine.moduleState(fn.Module())
	if state == nil {
		return fmt.Errorf("%w: module %q of %s is not loaded", errz.ErrNoFunction, fn.Module(), fn.Declaration())
	}
	var constructing *object.Instance
	if fn.HasThis() && !c.args[0].isSet() {
		if fn.Kind() != bytecode.KindConstructor {
			return fmt.Errorf("%w: no object set for %s", errz.ErrInvalidState, fn.QualifiedName())
		}
		class := state.mod.ClassByName(fn.ClassName())
		if class == nil {
			return fmt.Errorf("%w: class %q not found", errz.ErrNoFunction, fn.ClassName())
		}
		constructing = c.engine.heap.NewInstance(class)
		c.args[0] = Slot{Value: object.AddRef(constructing), Ownership: Owned}
	}
	for i := 0; i < fn.ParamCount(); i++ {
		idx := fn.ParamSlot(i)
		if !c.args[idx].isSet() {
			zero := c.engine.heap.Zero(fn.Param(i).Type)
			c.args[idx] = Slot{Value: zero, Ownership: ownershipOf(zero)}
		}
	}
	f := newFrame(fn, c.engine.loadCode(fn.Code()), state, len(c.stack))
	copy(f.locals, c.args)
	c.args = nil
	f.constructing = constructing
	c.pushFrame(f)
	return nil
}

// Unprepare releases everything the context holds for the prepared call:
// owned arguments that were never executed, frames of a suspended call, the
// return value and the exception information. Addresses bound with SetObject
// or to reference parameters are not released. Unprepare is idempotent.
//
// Called from a host function while the context is executing, it aborts the
// execution and completes when Execute returns.
func (c *Context) Unprepare() {
	switch c.state {
	case StateUninitialized:
		return
	case StateActive, StateExceptionRaised:
		c.unprepareOnExit = true
		c.abortRequested.Store(true)
		return
	case StateSuspended:
		c.unwindTo(0)
	}
	for i := range c.args {
		c.releaseSlot(c.args[i])
		c.args[i] = Slot{}
	}
	c.args = nil
	if c.returnValue != nil {
		rv := c.returnValue
		c.returnValue = nil
		c.release(rv)
	}
	c.fn = nil
	c.exception = nil
	c.destructorFaults = nil
	c.hasPending = false
	c.pendingMessage = ""
	c.state = StateUninitialized
}

// Release unprepares the context and returns it to the engine for reuse.
// The context must not be used afterwards.
func (c *Context) Release() {
	if c.released {
		return
	}
	c.released = true
	if c.state == StateActive || c.state == StateExceptionRaised {
		c.Unprepare()
		return
	}
	c.Unprepare()
	c.engine.recycle(c)
}

// Suspend asks the context to stop at the next safe point: a loop back-edge,
// a call or the return from a host function. Execute then returns
// OutcomeSuspended and can be called again to resume. Suspension waits until
// no host function is in progress.
func (c *Context) Suspend() {
	c.suspendRequested.Store(true)
}

// Abort asks the context to stop at the next safe point. The stack is
// unwound as for an exception and Execute returns OutcomeAborted. Aborting a
// suspended context unwinds it immediately.
func (c *Context) Abort() {
	c.abortRequested.Store(true)
	if c.state == StateSuspended {
		c.unwindTo(0)
		c.state = StateFinished
	}
}

// ReturnValue returns the value returned by the last call that finished
// normally. The reference is borrowed and valid until Unprepare.
func (c *Context) ReturnValue() object.Object {
	return c.returnValue
}

// CallstackSize returns the number of active frames.
func (c *Context) CallstackSize() int {
	return len(c.frames)
}

// FunctionAt returns the function of the frame at level, where level 0 is
// the innermost frame.
func (c *Context) FunctionAt(level int) (*bytecode.Function, bool) {
	f := c.frameAt(level)
	if f == nil {
		return nil, false
	}
	return f.fn, true
}

// LineNumberAt returns the line being executed by the frame at level, where
// level 0 is the innermost frame.
func (c *Context) LineNumberAt(level int) (int, bool) {
	f := c.frameAt(level)
	if f == nil {
		return 0, false
	}
	return f.location().Line, true
}

// DestructorFaults returns the exceptions raised by destructors since the
// last Prepare. They never change the outcome of Execute.
func (c *Context) DestructorFaults() []error {
	return c.destructorFaults
}

// Call runs fn as a nested evaluation on this context's stack and returns its
// result, with a reference owned by the caller. It may only be called by a
// host function running on this context. For members, args[0] is the object.
// The arguments remain owned by the caller.
//
// If fn raises an exception the nested frames are unwound and the exception
// is returned. The exception propagates to the script that called the host
// function even if the host function does not return it.
func (c *Context) Call(fn *bytecode.Function, args ...object.Object) (object.Object, error) {
	if c.nativeDepth == 0 {
		return nil, fmt.Errorf("%w: call outside of a host function", errz.ErrInvalidState)
	}
	if fn == nil || fn.Code() == nil {
		return nil, fmt.Errorf("%w: call needs a script function", errz.ErrNoFunction)
	}
	argc := len(args)
	if fn.HasThis() {
		argc--
	}
	if err := checkCallArgs(fn, argc); err != nil {
		return nil, fmt.Errorf("%w: %s", errz.ErrTypeMismatch, err)
	}
	slots := make([]Slot, len(args))
	for i, arg := range args {
		if arg == nil {
			arg = object.Null
		}
		slots[i] = Slot{Value: object.AddRef(arg), Ownership: ownershipOf(arg)}
	}
	return c.invoke(fn, slots)
}

func convertArgument(t bytecode.TypeRef, obj object.Object) (object.Object, error) {
	if obj == nil {
		return nil, errors.New("nil argument")
	}
	if t.Array {
		if _, ok := obj.(*object.Array); ok {
			return obj, nil
		}
		if t.Handle && object.IsNull(obj) {
			return object.Null, nil
		}
		return nil, fmt.Errorf("expected %s, got %s", t, obj.Type())
	}
	switch t.Name {
	case bytecode.TypeInt:
		switch v := obj.(type) {
		case *object.Int:
			return v, nil
		case *object.Float:
			return object.NewInt(int64(v.Value())), nil
		}
	case bytecode.TypeFloat:
		switch v := obj.(type) {
		case *object.Float:
			return v, nil
		case *object.Int:
			return object.NewFloat(float64(v.Value())), nil
		}
	case bytecode.TypeBool:
		if v, ok := obj.(*object.Bool); ok {
			return v, nil
		}
	case bytecode.TypeString:
		if v, ok := obj.(*object.String); ok {
			return v, nil
		}
	case bytecode.TypeVoid, "":
		return obj, nil
	default:
		if inst, ok := obj.(*object.Instance); ok && inst.Class().Name() == t.Name {
			return inst, nil
		}
		if t.Handle && object.IsNull(obj) {
			return object.Null, nil
		}
	}
	return nil, fmt.Errorf("expected %s, got %s", t, obj.Type())
}

// watch aborts the context when ctx is done. The returned function stops
// watching and may be called more than once.
func (c *Context) watch(ctx context.Context) func() {
	done := ctx.Done()
	if done == nil {
		return func() {}
	}
	stop := make(chan struct{})
	go func() {
		select {
		case <-done:
			c.abortRequested.Store(true)
		case <-stop:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(stop) })
	}
}
