package errz

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/risor-io/vmctx/bytecode"
)

// Exception describes a script fault: what happened, in which function and
// on which line. It is recorded once at the fault point and is not modified
// afterwards, except that faults raised by destructors while the stack is
// unwound are appended to Suppressed.
type Exception struct {
	Kind       Kind
	Message    string
	Function   *bytecode.Function
	Location   SourceLocation
	Stack      []StackFrame
	Suppressed *multierror.Error
	Cause      error
}

// NewException returns an Exception of the given kind with its default
// message.
func NewException(kind Kind, fn *bytecode.Function, loc SourceLocation, stack []StackFrame) *Exception {
	return &Exception{
		Kind:     kind,
		Message:  kind.Message(),
		Function: fn,
		Location: loc,
		Stack:    stack,
	}
}

// Error implements the error interface.
func (e *Exception) Error() string {
	fn := "<unknown>"
	if e.Function != nil {
		fn = e.Function.QualifiedName()
	}
	if e.Location.IsZero() {
		return fmt.Sprintf("exception: %s in %s", e.Message, fn)
	}
	return fmt.Sprintf("exception: %s in %s (%s)", e.Message, fn, e.Location.String())
}

// Unwrap returns the underlying cause of the exception.
func (e *Exception) Unwrap() error {
	return e.Cause
}

// WithCause wraps the exception with a cause.
func (e *Exception) WithCause(cause error) *Exception {
	e.Cause = cause
	return e
}

// Suppress records a fault that was raised after this one, while the stack
// was being unwound.
func (e *Exception) Suppress(err error) {
	e.Suppressed = multierror.Append(e.Suppressed, err)
}

// SuppressedErrors returns the faults recorded with Suppress.
func (e *Exception) SuppressedErrors() []error {
	if e.Suppressed == nil {
		return nil
	}
	return e.Suppressed.WrappedErrors()
}

// FriendlyErrorMessage returns a human-friendly error message with the
// source line and the stack trace.
func (e *Exception) FriendlyErrorMessage() string {
	var msg bytes.Buffer

	msg.WriteString(e.Error())
	msg.WriteString("\n")

	if e.Location.Source != "" {
		msg.WriteString(" | ")
		msg.WriteString(e.Location.Source)
		msg.WriteString("\n")
		if e.Location.Column > 0 {
			msg.WriteString(" | ")
			msg.WriteString(strings.Repeat(" ", e.Location.Column-1))
			msg.WriteString("^\n")
		}
	}

	if len(e.Stack) > 0 {
		msg.WriteString("\n")
		msg.WriteString(FormatStackTrace(e.Stack))
	}

	for _, err := range e.SuppressedErrors() {
		msg.WriteString("suppressed: ")
		msg.WriteString(err.Error())
		msg.WriteString("\n")
	}
	return msg.String()
}

// Report is a serializable view of an Exception.
type Report struct {
	Kind        Kind           `json:"kind"`
	Message     string         `json:"message"`
	Function    string         `json:"function,omitempty"`
	Declaration string         `json:"declaration,omitempty"`
	Module      string         `json:"module,omitempty"`
	Location    SourceLocation `json:"location"`
	Stack       []StackFrame   `json:"stack,omitempty"`
	Suppressed  []string       `json:"suppressed,omitempty"`
}

// Report returns a serializable view of the exception.
func (e *Exception) Report() Report {
	r := Report{
		Kind:     e.Kind,
		Message:  e.Message,
		Location: e.Location,
		Stack:    e.Stack,
	}
	if e.Function != nil {
		r.Function = e.Function.QualifiedName()
		r.Declaration = e.Function.Declaration()
		r.Module = e.Function.Module()
	}
	for _, err := range e.SuppressedErrors() {
		r.Suppressed = append(r.Suppressed, err.Error())
	}
	return r
}
