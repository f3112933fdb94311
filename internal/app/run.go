package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dshills/termrepl/internal/basic"
	"github.com/dshills/termrepl/internal/console"
	"github.com/dshills/termrepl/internal/console/native"
	"github.com/dshills/termrepl/internal/console/web"
	"github.com/dshills/termrepl/internal/logging"
	"github.com/dshills/termrepl/internal/repl"
)

// RunREPL runs the interactive loop on the host terminal, or on the
// standard streams when they are not both a terminal. It returns nil when
// the user quits, *repl.ExitError when a program called EXIT and a
// console.ErrDisconnected error when the console went away or ctx was
// cancelled.
func (app *Application) RunREPL(ctx context.Context) error {
	c, closeConsole, err := app.openConsole()
	if err != nil {
		return err
	}
	defer closeConsole()

	interp := app.newInterpreter(app.logger)
	defer interp.Close()

	err = repl.RunLoop(ctx, c, interp, app.replOptions(app.logger)...)
	if errors.Is(err, console.ErrDisconnected) {
		app.logger.Debug("console closed: %v", err)
	}
	return err
}

// RunFile runs the program in path to completion, writing to the standard
// output.
func (app *Application) RunFile(ctx context.Context, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return &FileError{Op: "read", Path: path, Err: err}
	}

	log := app.logger.WithField("program", filepath.Base(path))
	out := repl.NewConsoleOutput(app.streamConsole(), func(err error) error {
		if console.IsRecoverable(err) {
			log.Warn("%v", err)
			return nil
		}
		return err
	})

	interp := app.newInterpreter(log)
	defer interp.Close()

	if err := interp.RunProgram(ctx, string(src), out); err != nil {
		var exit *repl.ExitError
		if errors.As(err, &exit) {
			return err
		}
		return &FileError{Op: "run", Path: path, Err: err}
	}
	return out.Err()
}

// WebServer creates the web console server. Each connection gets its own
// interpreter sharing the program drive.
func (app *Application) WebServer() *web.Server {
	c := app.store.Load()
	return web.NewServer(app.runSession,
		web.WithLogger(app.logger.WithComponent("web")),
		web.WithBuildInfo(app.opts.Version, app.opts.BuildID),
		web.WithAllowedOrigins(c.Web.AllowedOrigins...),
	)
}

// Serve runs the web console server until ctx is cancelled.
func (app *Application) Serve(ctx context.Context) error {
	return app.WebServer().ListenAndServe(ctx, app.store.Load().Web.Listen)
}

func (app *Application) runSession(ctx context.Context, id string, c console.Console) error {
	log := app.logger.WithField("session", id)
	interp := app.newInterpreter(log)
	defer interp.Close()

	err := repl.RunLoop(ctx, c, interp, app.replOptions(log)...)
	var exit *repl.ExitError
	if errors.As(err, &exit) {
		log.Info("program exited with code %d", exit.Code)
		return nil
	}
	return err
}

func (app *Application) newInterpreter(log *logging.Logger) *basic.Interpreter {
	return basic.New(
		basic.WithDrive(app.drive),
		basic.WithLogger(log),
		basic.WithStepLimit(app.store.Load().REPL.StepLimit),
	)
}

func (app *Application) replOptions(log *logging.Logger) []repl.Option {
	c := app.store.Load()
	opts := []repl.Option{
		repl.WithPromptFunc(app.store.Prompt),
		repl.WithHistoryLimit(c.REPL.HistoryLimit),
		repl.WithLogger(log),
	}
	if c.REPL.Banner {
		opts = append(opts, repl.WithBanner(app.banner()))
	}
	return opts
}

func (app *Application) banner() string {
	return fmt.Sprintf("termrepl %s\nType HELP for statements, Ctrl+D to quit.\n", app.opts.Version)
}

// openConsole picks the tcell terminal when both standard streams are
// terminals and a line stream otherwise.
func (app *Application) openConsole() (console.Console, func(), error) {
	in, inOK := app.opts.Stdin.(*os.File)
	out, outOK := app.opts.Stdout.(*os.File)
	if !inOK || !outOK || !native.IsTerminal(in) || !native.IsTerminal(out) {
		return app.streamConsole(), func() {}, nil
	}

	t, err := native.NewTerminal()
	if err != nil {
		return nil, nil, &InitError{Component: "terminal", Err: err}
	}
	// stderr shares the screen with tcell.
	if app.logFile == nil {
		app.logger.Disable()
	}
	return t, func() {
		if err := t.Close(); err != nil {
			app.logger.Warn("close terminal: %v", err)
		}
		app.logger.Enable()
	}, nil
}

func (app *Application) streamConsole() *native.Stream {
	return native.NewStream(app.opts.Stdin, app.opts.Stdout, native.WithANSI(isTerminal(app.opts.Stdout)))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && native.IsTerminal(f)
}
