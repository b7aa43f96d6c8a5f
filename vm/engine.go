// Package vm provides the script execution context: it runs compiled
// functions on an explicit frame stack, classifies runtime faults into script
// exceptions, unwinds the stack releasing every owned reference, and reports
// the fault location to the host.
package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
	"github.com/rs/zerolog"
)

const (
	// DefaultMaxFrameDepth is the default maximum call depth.
	DefaultMaxFrameDepth = 1024

	// DefaultContextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

// NativeFunction is a host function callable from script. Arguments are
// borrowed for the duration of the call. A returned heap object must carry a
// reference for the caller (a new object, or an argument after AddRef); nil
// is treated as null.
//
// A host function reports a failure by returning an error or by panicking.
// Either is a native fault and is passed to the translator. Calling
// ctx.SetException raises a script exception with the given message.
type NativeFunction func(ctx *Context, args []object.Object) (object.Object, error)

type nativeFunc struct {
	decl *bytecode.Function
	fn   NativeFunction
}

// moduleState is a module added to an engine with its global variables.
type moduleState struct {
	mod     *bytecode.Module
	globals []object.Object
}

// Engine holds what contexts share: host functions, modules, the heap and
// the engine-wide callbacks. Registration is safe for concurrent use;
// executing contexts concurrently requires the host to serialize access to
// the heap.
type Engine struct {
	mu      sync.RWMutex
	natives map[string][]*nativeFunc
	modules map[string]*moduleState
	codes   map[*bytecode.Code]*code
	heap    *object.Heap

	poolMu   sync.Mutex
	pool     []*Context
	contexts map[*Context]struct{}

	logger               zerolog.Logger
	callback             ExceptionCallback
	translator           Translator
	contextCheckInterval int
	maxFrameDepth        int
	observer             Observer
}

// NewEngine creates an Engine with the given options.
func NewEngine(options ...Option) *Engine {
	e := &Engine{
		natives:              map[string][]*nativeFunc{},
		modules:              map[string]*moduleState{},
		codes:                map[*bytecode.Code]*code{},
		heap:                 object.NewHeap(),
		contexts:             map[*Context]struct{}{},
		logger:               zerolog.Nop(),
		contextCheckInterval: DefaultContextCheckInterval,
		maxFrameDepth:        DefaultMaxFrameDepth,
	}
	for _, opt := range options {
		opt(e)
	}
	if e.maxFrameDepth <= 0 {
		e.maxFrameDepth = DefaultMaxFrameDepth
	}
	e.modules[""] = &moduleState{mod: bytecode.NewModule(bytecode.ModuleParams{})}
	return e
}

// Heap returns the heap that allocates the engine's objects.
func (e *Engine) Heap() *object.Heap {
	return e.heap
}

// Logger returns the engine logger.
func (e *Engine) Logger() zerolog.Logger {
	return e.logger
}

// RegisterFunction registers a host function under a declaration such as
// "void print(const string &in)". Functions may be overloaded by argument
// count.
func (e *Engine) RegisterFunction(decl string, fn NativeFunction) error {
	if fn == nil {
		return fmt.Errorf("%w: nil host function for %q", errz.ErrNoFunction, decl)
	}
	parsed, err := bytecode.ParseDeclaration(decl)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.natives[parsed.Name()] {
		if existing.decl.ParamCount() == parsed.ParamCount() {
			return fmt.Errorf("host function already registered: %s", existing.decl.Declaration())
		}
	}
	e.natives[parsed.Name()] = append(e.natives[parsed.Name()], &nativeFunc{decl: parsed, fn: fn})
	e.logger.Debug().Str("declaration", decl).Msg("registered host function")
	return nil
}

// Function returns the declaration of a registered host function.
func (e *Engine) Function(name string, argc int) (*bytecode.Function, bool) {
	nf, ok := e.native(name, argc)
	if !ok {
		return nil, false
	}
	return nf.decl, true
}

func (e *Engine) native(name string, argc int) (*nativeFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, nf := range e.natives[name] {
		if nf.decl.ParamCount() == argc {
			return nf, true
		}
	}
	return nil, false
}

// AddModule makes a module available to contexts. Its globals are set to
// their zero values and its initializer, if any, runs on a temporary
// context. An exception raised by the initializer is returned and the module
// is not added.
func (e *Engine) AddModule(ctx context.Context, mod *bytecode.Module) error {
	e.mu.Lock()
	if _, exists := e.modules[mod.Name()]; exists {
		e.mu.Unlock()
		return fmt.Errorf("module already exists: %q", mod.Name())
	}
	state := &moduleState{mod: mod, globals: make([]object.Object, mod.GlobalCount())}
	for i := range state.globals {
		state.globals[i] = e.heap.Zero(mod.GlobalAt(i).Type)
	}
	e.modules[mod.Name()] = state
	e.mu.Unlock()

	if mod.Init() == nil {
		return nil
	}
	xctx := e.CreateContext()
	defer xctx.Release()
	if err := xctx.Prepare(mod.Init()); err != nil {
		e.removeModule(mod.Name())
		return err
	}
	outcome, err := xctx.Execute(ctx)
	if err == nil && outcome == OutcomeException {
		err = xctx.ExceptionInfo()
	}
	if err != nil {
		e.removeModule(mod.Name())
		return fmt.Errorf("module %q: initializer failed: %w", mod.Name(), err)
	}
	return nil
}

func (e *Engine) removeModule(name string) {
	e.mu.RLock()
	state, ok := e.modules[name]
	e.mu.RUnlock()
	if !ok {
		return
	}
	// Modules stay registered while their globals are released.
	xctx := newContext(e)
	e.releaseGlobals(xctx, state)
	e.mu.Lock()
	delete(e.modules, name)
	e.mu.Unlock()
	for _, err := range xctx.destructorFaults {
		e.logger.Warn().Err(err).Str("module", name).Msg("destructor failed while discarding module")
	}
}

func (e *Engine) releaseGlobals(xctx *Context, state *moduleState) {
	for i, g := range state.globals {
		state.globals[i] = object.Null
		xctx.release(g)
	}
}

// DiscardModule removes a module and releases its globals, running
// destructors where needed. Contexts must not be executing functions of the
// module. It returns false if the module was not added.
func (e *Engine) DiscardModule(name string) bool {
	if name == "" || e.moduleState(name) == nil {
		return false
	}
	e.removeModule(name)
	e.logger.Debug().Str("module", name).Msg("discarded module")
	return true
}

// Module returns the named module, or nil if it has not been added.
func (e *Engine) Module(name string) *bytecode.Module {
	if state := e.moduleState(name); state != nil && name != "" {
		return state.mod
	}
	return nil
}

func (e *Engine) moduleState(name string) *moduleState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.modules[name]
}

// GlobalValue returns the current value of a module global. The reference
// is borrowed.
func (e *Engine) GlobalValue(module, name string) (object.Object, bool) {
	state := e.moduleState(module)
	if state == nil {
		return nil, false
	}
	idx, ok := state.mod.GlobalIndex(name)
	if !ok {
		return nil, false
	}
	return state.globals[idx], true
}

// loadCode returns the runtime wrapper for bc, creating it on first use.
func (e *Engine) loadCode(bc *bytecode.Code) *code {
	e.mu.RLock()
	c, ok := e.codes[bc]
	e.mu.RUnlock()
	if ok {
		return c
	}
	c = wrapCode(bc)
	e.mu.Lock()
	e.codes[bc] = c
	e.mu.Unlock()
	return c
}

// CreateContext returns a context in the Uninitialized state, reusing one
// that was released if possible.
func (e *Engine) CreateContext() *Context {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()
	var c *Context
	if n := len(e.pool); n > 0 {
		c = e.pool[n-1]
		e.pool = e.pool[:n-1]
		c.released = false
	} else {
		c = newContext(e)
	}
	e.contexts[c] = struct{}{}
	return c
}

func (e *Engine) recycle(c *Context) {
	e.poolMu.Lock()
	defer e.poolMu.Unlock()
	delete(e.contexts, c)
	c.callback, c.hasCallback = nil, false
	c.translator, c.hasTranslator = nil, false
	e.pool = append(e.pool, c)
}

// Shutdown releases the module globals, running destructors where needed,
// and reports contexts that were never released and objects that are still
// alive afterwards.
func (e *Engine) Shutdown() error {
	var result *multierror.Error

	e.poolMu.Lock()
	open := len(e.contexts)
	e.pool = nil
	e.poolMu.Unlock()
	if open > 0 {
		result = multierror.Append(result, fmt.Errorf("%d context(s) not released", open))
	}

	e.mu.RLock()
	modules := make(map[string]*moduleState, len(e.modules))
	for name, state := range e.modules {
		modules[name] = state
	}
	e.mu.RUnlock()

	// Modules stay registered while their globals are released.
	xctx := newContext(e)
	for name, state := range modules {
		e.releaseGlobals(xctx, state)
		e.logger.Debug().Str("module", name).Msg("released module globals")
	}
	e.mu.Lock()
	e.modules = map[string]*moduleState{}
	e.mu.Unlock()

	for _, err := range xctx.destructorFaults {
		result = multierror.Append(result, err)
	}
	if live := e.heap.Live(); live > 0 {
		result = multierror.Append(result, fmt.Errorf("%d object(s) still alive", live))
	}
	return result.ErrorOrNil()
}
