package basic

import (
	"errors"
	"fmt"
)

// Errors returned by the interpreter.
var (
	// ErrSyntax indicates a statement or expression that cannot be parsed.
	ErrSyntax = errors.New("syntax error")

	// ErrTypeMismatch indicates a value of the wrong type for a variable
	// or argument.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUndefinedLine indicates a jump to a line that does not exist.
	ErrUndefinedLine = errors.New("undefined line")

	// ErrStepLimit indicates a program ran more statements than allowed.
	ErrStepLimit = errors.New("step limit exceeded")

	// ErrNoDrive indicates a storage command without a configured drive.
	ErrNoDrive = errors.New("no storage drive")

	// ErrClosed indicates use of a closed interpreter.
	ErrClosed = errors.New("interpreter closed")
)

// errEnd stops a running program without error.
var errEnd = errors.New("end")

func syntaxErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSyntax, fmt.Sprintf(format, args...))
}

func typeMismatchf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTypeMismatch, fmt.Sprintf(format, args...))
}

// LineError attaches a program line number to an error.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
