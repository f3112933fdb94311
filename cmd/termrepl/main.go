// Package main is the entry point for termrepl.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/termrepl/internal/app"
	"github.com/dshills/termrepl/internal/repl"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// runError marks a failure after the command line was accepted.
type runError struct {
	err error
}

func (e *runError) Error() string { return e.err.Error() }
func (e *runError) Unwrap() error { return e.err }

// execute runs the command line and returns the process exit status:
// 2 for usage errors, the code passed to EXIT, app.ExitInterrupted after a
// signal and 1 for other failures.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var re *runError
	if !errors.As(err, &re) {
		fmt.Fprintf(stderr, "Usage error: %v\n", err)
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", root.CommandPath())
		return 2
	}

	var exit *repl.ExitError
	if !errors.As(err, &exit) && !app.Interrupted(re.err) {
		fmt.Fprintf(stderr, "Error: %v\n", re.err)
	}
	return app.ExitCode(re.err)
}
