package main

import (
	"github.com/risor-io/vmctx/vm"
	"github.com/rs/zerolog"
)

// traceObserver logs script calls, returns and exceptions.
type traceObserver struct {
	vm.NoOpObserver
	logger zerolog.Logger
}

func (o *traceObserver) Config() vm.ObserverConfig {
	return vm.NewObserverConfig(vm.StepNone)
}

func (o *traceObserver) OnCall(event vm.CallEvent) bool {
	o.logger.Debug().
		Str("function", event.Function.Declaration()).
		Int("line", event.Location.Line).
		Int("depth", event.FrameDepth).
		Msg("call")
	return true
}

func (o *traceObserver) OnReturn(event vm.ReturnEvent) bool {
	o.logger.Debug().
		Str("function", event.Function.Declaration()).
		Int("depth", event.FrameDepth).
		Msg("return")
	return true
}

func (o *traceObserver) OnException(event vm.ExceptionEvent) {
	o.logger.Debug().
		Str("exception", event.Exception.Message).
		Str("kind", event.Exception.Kind.String()).
		Int("depth", event.FrameDepth).
		Msg("exception")
}
