package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/risor-io/vmctx/builtins"
	"github.com/risor-io/vmctx/vm"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func newLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(viper.GetString("log-level"))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: viper.GetBool("no-color")}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// newEngine creates an engine with the builtin host functions writing to
// out.
func newEngine(out io.Writer, logger zerolog.Logger) (*vm.Engine, error) {
	opts := []vm.Option{
		vm.WithLogger(logger),
		vm.WithTranslator(builtins.Translator),
		vm.WithExceptionCallback(func(ctx *vm.Context) {
			msg, _ := ctx.ExceptionString()
			line, _ := ctx.ExceptionLineNumber()
			logger.Debug().
				Str("exception", msg).
				Int("line", line).
				Int("depth", ctx.CallstackSize()).
				Msg("exception raised")
		}),
	}
	if depth := viper.GetInt("max-depth"); depth > 0 {
		opts = append(opts, vm.WithMaxFrameDepth(depth))
	}
	if viper.GetBool("trace") {
		opts = append(opts, vm.WithObserver(&traceObserver{logger: logger}))
	}
	e := vm.NewEngine(opts...)
	if err := builtins.Register(e, out); err != nil {
		return nil, err
	}
	return e, nil
}

// executionContext returns a context cancelled on interrupt or after the
// configured timeout.
func executionContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signalContext(parent)
	timeout := viper.GetDuration("timeout")
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func shutdown(e *vm.Engine, logger zerolog.Logger) {
	if err := e.Shutdown(); err != nil {
		logger.Warn().Err(err).Msg("engine shutdown")
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}
