package vm

import (
	"errors"
	"fmt"

	"github.com/risor-io/vmctx/bytecode"
	"github.com/risor-io/vmctx/errz"
	"github.com/risor-io/vmctx/object"
)

var errStackOverflow = errors.New("stack overflow")

// nativeFault is a failure that escaped a host function, after translation.
type nativeFault struct {
	message    string
	translated bool
	cause      error
}

func (f *nativeFault) Error() string {
	return f.message
}

func (f *nativeFault) Unwrap() error {
	return f.cause
}

// classify maps a runtime error to an exception kind and message.
func classify(err error) (errz.Kind, string) {
	var nf *nativeFault
	var typeErr *object.TypeError
	switch {
	case errors.As(err, &nf):
		if nf.translated {
			return errz.HostTranslated, nf.message
		}
		return errz.Unknown, errz.Unknown.Message()
	case errors.Is(err, object.ErrDivideByZero):
		return errz.DivideByZero, errz.DivideByZero.Message()
	case errors.Is(err, object.ErrNullPointer):
		return errz.NullPointerAccess, errz.NullPointerAccess.Message()
	case errors.Is(err, object.ErrIndexOutOfBounds):
		return errz.IndexOutOfBounds, errz.IndexOutOfBounds.Message()
	case errors.Is(err, errStackOverflow):
		return errz.StackOverflow, errz.StackOverflow.Message()
	case errors.As(err, &typeErr):
		return errz.Unknown, typeErr.Error()
	default:
		return errz.Unknown, err.Error()
	}
}

// isControl reports whether err stops execution without being a fault.
func isControl(err error) bool {
	return errors.Is(err, errSuspended) || errors.Is(err, errAborted)
}

// newException builds an exception located at the innermost frame, with a
// stack trace of every active frame.
func (c *Context) newException(err error) *errz.Exception {
	kind, message := classify(err)
	var exc *errz.Exception
	if f := c.top(); f != nil {
		exc = errz.NewException(kind, f.fn, c.sourceLocation(f), c.captureStack())
	} else {
		exc = errz.NewException(kind, nil, errz.SourceLocation{}, nil)
	}
	exc.Message = message
	if kind != errz.StackOverflow {
		exc.Cause = err
	}
	return exc
}

func (c *Context) sourceLocation(f *frame) errz.SourceLocation {
	loc := f.location()
	return errz.SourceLocation{
		Filename: f.code.Filename(),
		Line:     loc.Line,
		Column:   loc.Column,
		Source:   f.code.GetSourceLine(loc.Line),
	}
}

// captureStack returns the active frames, innermost first.
func (c *Context) captureStack() []errz.StackFrame {
	stack := make([]errz.StackFrame, 0, len(c.frames))
	for i := len(c.frames) - 1; i >= 0; i-- {
		f := c.frames[i]
		stack = append(stack, errz.StackFrame{
			Function:    f.fn.QualifiedName(),
			Declaration: f.fn.Declaration(),
			Location:    c.sourceLocation(f),
		})
	}
	return stack
}

// raise turns a runtime error into the context's exception. The exception
// is recorded at the innermost frame, the exception callback runs with the
// frames still in place, and the exception is returned for the evaluation
// loop to propagate. Faults inside a destructor are only returned: they
// belong to the destructor's own scope and never become the context's
// exception.
func (c *Context) raise(err error) error {
	if isControl(err) {
		return err
	}
	var exc *errz.Exception
	if !errors.As(err, &exc) {
		exc = c.newException(err)
	}
	if c.destructorDepth > 0 || exc == c.exception {
		return exc
	}
	if c.exception != nil {
		// An unrelated exception while one is current, e.g. returned by a
		// host function from another context.
		c.suppress(exc)
		return c.exception
	}
	c.exception = exc
	c.state = StateExceptionRaised
	c.logger.Debug().
		Str("kind", exc.Kind.String()).
		Str("function", functionName(exc)).
		Int("line", exc.Location.Line).
		Msg("exception raised")
	c.dispatch()
	c.obs.exception(c, exc)
	return exc
}

// suppress records a fault raised while the stack was unwound.
func (c *Context) suppress(err error) {
	c.logger.Warn().Err(err).Msg("fault while unwinding")
	if c.exception != nil {
		c.exception.Suppress(err)
	}
}

func functionName(exc *errz.Exception) string {
	if exc.Function == nil {
		return ""
	}
	return exc.Function.QualifiedName()
}

// ExceptionInfo returns the exception raised by the last Execute, or nil.
// It is kept until the next Prepare or Unprepare.
func (c *Context) ExceptionInfo() *errz.Exception {
	return c.exception
}

// ExceptionString returns the message of the current exception.
func (c *Context) ExceptionString() (string, bool) {
	if c.exception == nil {
		return "", false
	}
	return c.exception.Message, true
}

// ExceptionLineNumber returns the line on which the current exception was
// raised.
func (c *Context) ExceptionLineNumber() (int, bool) {
	if c.exception == nil {
		return 0, false
	}
	return c.exception.Location.Line, true
}

// ExceptionFunction returns the function in which the current exception was
// raised.
func (c *Context) ExceptionFunction() (*bytecode.Function, bool) {
	if c.exception == nil || c.exception.Function == nil {
		return nil, false
	}
	return c.exception.Function, true
}

// SetException raises a script exception with the given message. It may
// only be called from a host function called by script, or from a
// translator, on the context that called it.
func (c *Context) SetException(message string) error {
	if c.nativeDepth == 0 {
		return fmt.Errorf("%w: set exception outside of a host function", errz.ErrInvalidState)
	}
	c.pendingMessage = message
	c.hasPending = true
	return nil
}
