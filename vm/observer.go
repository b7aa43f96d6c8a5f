package vm

import (
	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/op"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	StepNone

	// StepSampled calls OnStep every N instructions.
	StepSampled

	// StepOnLine calls OnStep when the source line changes.
	StepOnLine
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool

	// ObserveExceptions enables OnException callbacks.
	ObserveExceptions bool
}

// NewObserverConfig creates a config that observes calls, returns and
// exceptions.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:          mode,
		SampleInterval:    1000,
		ObserveCalls:      true,
		ObserveReturns:    true,
		ObserveExceptions: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer receives execution events from every context of an engine. It
// can be used for tracing, profiling or coverage.
//
// Observer methods are called synchronously on the executing goroutine.
type Observer interface {
	// Config returns the observer's configuration. It is read once per
	// Execute call.
	Config() ObserverConfig

	// OnStep is called based on the StepMode in the observer's config.
	// Returns false to abort execution.
	OnStep(event StepEvent) bool

	// OnCall is called when a script function is entered.
	// Returns false to abort execution.
	OnCall(event CallEvent) bool

	// OnReturn is called when a script function returns normally.
	// Returns false to abort execution.
	OnReturn(event ReturnEvent) bool

	// OnException is called once per exception, after the exception
	// callback and before the stack is unwound.
	OnException(event ExceptionEvent)
}

// StepEvent contains information about a single instruction step.
type StepEvent struct {
	// IP is the instruction offset in the function's code.
	IP int

	// Opcode is the operation about to be executed.
	Opcode op.Code

	// OpcodeName is the human-readable name of the opcode.
	OpcodeName string

	// Function is the function being executed.
	Function *bytecode.Function

	// Location is the source location of the instruction.
	Location bytecode.SourceLocation

	// StackDepth is the current depth of the operand stack.
	StackDepth int

	// FrameDepth is the current depth of the call stack.
	FrameDepth int
}

// CallEvent contains information about a function call.
type CallEvent struct {
	// Function is the function being called.
	Function *bytecode.Function

	// ArgCount is the number of arguments passed, not counting the object.
	ArgCount int

	// Location is the source location of the call site. It is zero for the
	// function entered by Execute.
	Location bytecode.SourceLocation

	// FrameDepth is the call stack depth after the call.
	FrameDepth int
}

// ReturnEvent contains information about a function return.
type ReturnEvent struct {
	// Function is the function returning.
	Function *bytecode.Function

	// Location is the source location of the return.
	Location bytecode.SourceLocation

	// FrameDepth is the call stack depth after returning.
	FrameDepth int
}

// ExceptionEvent describes an exception at the point it was raised.
type ExceptionEvent struct {
	Exception  *errz.Exception
	FrameDepth int
}

// NoOpObserver is an Observer implementation that does nothing.
// Embed it to implement only the methods you need.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepNone)
}

func (NoOpObserver) OnStep(StepEvent) bool      { return true }
func (NoOpObserver) OnCall(CallEvent) bool      { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool  { return true }
func (NoOpObserver) OnException(ExceptionEvent) {}

var _ Observer = NoOpObserver{}

// observation is the observer state of one Execute call.
type observation struct {
	observer Observer
	config   ObserverConfig
	steps    int
	lastLine int
}

func newObservation(o Observer) *observation {
	if o == nil {
		return nil
	}
	return &observation{observer: o, config: NormalizeConfig(o.Config())}
}

// step reports an instruction according to the step mode. It returns false
// if the observer asked to stop.
func (ob *observation) step(c *Context, f *frame, opcode op.Code) bool {
	if ob == nil {
		return true
	}
	loc := f.code.LocationAt(f.ip)
	switch ob.config.StepMode {
	case StepNone:
		return true
	case StepSampled:
		ob.steps++
		if ob.steps < ob.config.SampleInterval {
			return true
		}
		ob.steps = 0
	case StepOnLine:
		if loc.Line == ob.lastLine {
			return true
		}
		ob.lastLine = loc.Line
	}
	return ob.observer.OnStep(StepEvent{
		IP:         f.ip,
		Opcode:     opcode,
		OpcodeName: op.GetInfo(opcode).Name,
		Function:   f.fn,
		Location:   loc,
		StackDepth: len(c.stack),
		FrameDepth: len(c.frames),
	})
}

func (ob *observation) call(c *Context, fn *bytecode.Function, argc int, site bytecode.SourceLocation) bool {
	if ob == nil || !ob.config.ObserveCalls {
		return true
	}
	return ob.observer.OnCall(CallEvent{
		Function:   fn,
		ArgCount:   argc,
		Location:   site,
		FrameDepth: len(c.frames),
	})
}

func (ob *observation) ret(c *Context, f *frame) bool {
	if ob == nil || !ob.config.ObserveReturns {
		return true
	}
	return ob.observer.OnReturn(ReturnEvent{
		Function:   f.fn,
		Location:   f.location(),
		FrameDepth: len(c.frames),
	})
}

func (ob *observation) exception(c *Context, exc *errz.Exception) {
	if ob == nil || !ob.config.ObserveExceptions {
		return
	}
	ob.observer.OnException(ExceptionEvent{Exception: exc, FrameDepth: len(c.frames)})
}
