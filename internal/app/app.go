// Package app wires configuration, logging, storage and the console
// adapters into the termrepl entry points: the native REPL, batch program
// runs and the web console server.
package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/config/watcher"
	"github.com/dshills/termrepl/internal/logging"
	"github.com/dshills/termrepl/internal/storage"
)

// Application holds the components shared by every entry point.
type Application struct {
	opts Options

	store   *config.Store
	logger  *logging.Logger
	logFile io.Closer
	watcher *watcher.Watcher

	drive      storage.Drive
	closeDrive func() error

	configPath string

	shutdownOnce sync.Once
}

// Options are command-line settings. Non-empty fields override the
// configuration file and the environment.
type Options struct {
	// ConfigPath is the configuration file. Empty means the per-user
	// default, which may be missing.
	ConfigPath string

	// ProgramsDir stores programs as .bas files in a directory.
	ProgramsDir string

	// ProgramsDB stores programs in a SQLite database.
	ProgramsDB string

	// LogLevel sets the logging verbosity.
	LogLevel string

	// LogFile receives log lines instead of stderr.
	LogFile string

	// Listen is the web server address.
	Listen string

	// Version and BuildID are shown in the banner and at /buildinfo.
	Version string
	BuildID string

	// Stdin, Stdout and Stderr default to the process streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Environ defaults to os.Environ.
	Environ []string
}

func (o *Options) setDefaults() {
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.Environ == nil {
		o.Environ = os.Environ()
	}
	if o.Version == "" {
		o.Version = "dev"
	}
	if o.BuildID == "" {
		o.BuildID = "unknown"
	}
}

// apply overlays the command-line settings onto c. A storage flag
// replaces the configured drive of the other kind.
func (o *Options) apply(c *config.Config) {
	if o.ProgramsDir != "" {
		c.Storage.Dir, c.Storage.Database = o.ProgramsDir, ""
	}
	if o.ProgramsDB != "" {
		c.Storage.Database, c.Storage.Dir = o.ProgramsDB, ""
	}
	if o.LogLevel != "" {
		c.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		c.Log.File = o.LogFile
	}
	if o.Listen != "" {
		c.Web.Listen = o.Listen
	}
}

// New creates an Application. On failure everything already opened is
// closed again.
func New(opts Options) (*Application, error) {
	opts.setDefaults()
	app := &Application{opts: opts}
	if err := newBootstrapper(app).bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// Config returns the active configuration.
func (app *Application) Config() *config.Config {
	return app.store.Load()
}

// Store returns the configuration store.
func (app *Application) Store() *config.Store {
	return app.store
}

// Logger returns the application logger.
func (app *Application) Logger() *logging.Logger {
	return app.logger
}

// Drive returns the program storage drive.
func (app *Application) Drive() storage.Drive {
	return app.drive
}

// Shutdown releases every resource in reverse initialization order.
func (app *Application) Shutdown() error {
	err := ErrAlreadyShutdown
	app.shutdownOnce.Do(func() {
		err = app.shutdown()
	})
	return err
}

func (app *Application) shutdown() error {
	var errs []error
	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close config watcher: %w", err))
		}
	}
	if app.closeDrive != nil {
		if err := app.closeDrive(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if app.logFile != nil {
		if app.logger != nil {
			app.logger.SetOutput(app.opts.Stderr)
		}
		if err := app.logFile.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close log file: %w", err))
		}
	}
	return errors.Join(errs...)
}
