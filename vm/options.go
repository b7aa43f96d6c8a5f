package vm

import "github.com/rs/zerolog"

// Option is a configuration function for an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine and its contexts. The
// default discards all output.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithExceptionCallback sets the engine-wide exception callback. Contexts
// use it unless they register their own with SetExceptionCallback.
func WithExceptionCallback(cb ExceptionCallback) Option {
	return func(e *Engine) {
		e.callback = cb
	}
}

// WithTranslator sets the engine-wide native exception translator. Contexts
// use it unless they register their own with
// SetTranslateNativeExceptionCallback.
func WithTranslator(tr Translator) Option {
	return func(e *Engine) {
		e.translator = tr
	}
}

// WithContextCheckInterval sets how often a context checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of
// 0 disables deterministic checking, relying only on the background goroutine
// that monitors the context. The default is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(e *Engine) {
		e.contextCheckInterval = interval
	}
}

// WithMaxFrameDepth sets the maximum call depth. Calls beyond it raise a
// stack overflow exception. The default is DefaultMaxFrameDepth.
func WithMaxFrameDepth(depth int) Option {
	return func(e *Engine) {
		e.maxFrameDepth = depth
	}
}

// WithObserver sets an observer for execution events.
// The observer receives callbacks for instruction steps, function calls,
// function returns and exceptions. Returning false from OnStep, OnCall or
// OnReturn aborts the execution.
func WithObserver(observer Observer) Option {
	return func(e *Engine) {
		e.observer = observer
	}
}
