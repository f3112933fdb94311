package app

import (
	"context"
	"errors"

	"github.com/dshills/termrepl/internal/repl"
)

// Application errors.
var (
	// ErrAlreadyShutdown indicates the application was already shut down.
	ErrAlreadyShutdown = errors.New("application already shut down")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// FileError represents a program file error.
type FileError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return e.Op + " " + e.Path
	}
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// ExitInterrupted is the exit status after SIGINT or SIGTERM tore the
// session down.
const ExitInterrupted = 130

// ExitCode maps the result of a run to a process exit status: 0 for a
// clean end, the requested code for EXIT, ExitInterrupted when the run was
// cancelled and 1 for anything else, a lost console included.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exit *repl.ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	if Interrupted(err) {
		return ExitInterrupted
	}
	return 1
}

// Interrupted reports whether err ended a run because its context was
// cancelled.
func Interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
