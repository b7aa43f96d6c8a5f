// Package errz defines the errors reported by the execution context and the
// compiler: script exceptions with their kind and location, API misuse
// sentinels and compile errors.
package errz

import (
	"errors"
	"fmt"
)

// API misuse errors. They are wrapped with context and surfaced immediately.
var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// context's current state, e.g. Execute without Prepare.
	ErrInvalidState = errors.New("invalid state")
	// ErrTypeMismatch is returned when an argument does not fit the
	// parameter it is bound to.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrNoFunction is returned when a function or method cannot be found.
	ErrNoFunction = errors.New("no function")
)

// FriendlyError is an interface for errors that have a human friendly message
// in addition to a the lower level default error message.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// CompileError is raised by the parser and compiler.
type CompileError struct {
	Message  string
	Location SourceLocation
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	if e.Location.IsZero() {
		return fmt.Sprintf("compile error: %s", e.Message)
	}
	return fmt.Sprintf("compile error: %s (%s)", e.Message, e.Location.String())
}

// FriendlyErrorMessage returns the error followed by the offending source
// line.
func (e *CompileError) FriendlyErrorMessage() string {
	msg := e.Error() + "\n"
	if e.Location.Source != "" {
		msg += " | " + e.Location.Source + "\n"
	}
	return msg
}

// CompileErrorf creates a new CompileError with a formatted message.
func CompileErrorf(loc SourceLocation, format string, args ...any) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...), Location: loc}
}
