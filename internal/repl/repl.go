// Package repl implements the read-eval-print driver that owns a console
// and feeds completed input lines to an interpreter.
//
// The driver is the only code that talks to the console. Interpreters
// never see it: they write to an Output recorder and the driver replays
// the recorded frame once execution finishes.
package repl

import (
	"context"
	"errors"
	"fmt"
)

// Driver errors.
var (
	// ErrAlreadyRunning indicates Run was called while the loop is active.
	ErrAlreadyRunning = errors.New("driver already running")

	// ErrStopped indicates Run was called on a driver that already stopped.
	ErrStopped = errors.New("driver stopped")
)

// Interpreter evaluates one input line at a time.
type Interpreter interface {
	// Exec runs line, writing any output to out. Returning an *ExitError
	// ends the session; any other error is reported to the user and the
	// session continues.
	Exec(ctx context.Context, line string, out Output) error
}

// InterpreterFunc adapts a function to the Interpreter interface.
type InterpreterFunc func(ctx context.Context, line string, out Output) error

// Exec calls f.
func (f InterpreterFunc) Exec(ctx context.Context, line string, out Output) error {
	return f(ctx, line, out)
}

// ExitError asks the driver to stop with a process exit code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// State is a driver state.
type State int

const (
	StateIdle State = iota
	StateReadingInput
	StateExecuting
	StateRenderingOutput
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReadingInput:
		return "reading-input"
	case StateExecuting:
		return "executing"
	case StateRenderingOutput:
		return "rendering-output"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}
