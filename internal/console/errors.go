package console

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Console matches exactly one of
// these with errors.Is.
var (
	// ErrIoFailure indicates the host failed to read or write.
	ErrIoFailure = errors.New("console i/o failure")

	// ErrUnsupported indicates the backend cannot perform the request,
	// e.g. a color index outside its palette. Callers may continue.
	ErrUnsupported = errors.New("unsupported console operation")

	// ErrDisconnected indicates the backend was torn down.
	ErrDisconnected = errors.New("console disconnected")
)

// Error describes a failed console operation.
type Error struct {
	Op   string // Operation name (e.g., "print", "read_key")
	Kind error  // One of ErrIoFailure, ErrUnsupported, ErrDisconnected
	Err  error  // Underlying cause, may be nil
}

// NewError creates an Error of the given kind.
func NewError(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Unsupported returns an ErrUnsupported error for op.
func Unsupported(op string, format string, args ...any) *Error {
	return NewError(op, ErrUnsupported, fmt.Errorf(format, args...))
}

// Disconnected returns an ErrDisconnected error for op.
func Disconnected(op string, cause error) *Error {
	return NewError(op, ErrDisconnected, cause)
}

// IoFailure returns an ErrIoFailure error for op.
func IoFailure(op string, cause error) *Error {
	return NewError(op, ErrIoFailure, cause)
}

// IsRecoverable reports whether a session can continue after err.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnsupported)
}

// IsTerminal reports whether err ends the session.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrIoFailure) || errors.Is(err, ErrDisconnected)
}
