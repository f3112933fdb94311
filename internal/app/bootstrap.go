package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/logging"
	"github.com/dshills/termrepl/internal/storage"
)

// openTimeout bounds opening the storage drive.
const openTimeout = 10 * time.Second

// bootstrapper handles component initialization with proper cleanup on failure.
type bootstrapper struct {
	app       *Application
	initOrder []string
}

func newBootstrapper(app *Application) *bootstrapper {
	return &bootstrapper{app: app}
}

// bootstrap initializes all components in dependency order.
// On failure, it cleans up already-initialized components.
func (b *bootstrapper) bootstrap() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"config", b.initConfig},
		{"logging", b.initLogging},
		{"storage", b.initStorage},
		{"watcher", b.initWatcher},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			b.cleanup()
			return err
		}
		b.initOrder = append(b.initOrder, step.name)
	}
	b.app.logger.Debug("initialized %v", b.initOrder)
	return nil
}

func (b *bootstrapper) cleanup() {
	_ = b.app.shutdown()
}

// initConfig loads the configuration. Without --config the per-user file
// is used when it exists.
func (b *bootstrapper) initConfig() error {
	path := b.app.opts.ConfigPath
	if path == "" {
		if def, err := config.DefaultPath(); err == nil {
			if _, err := os.Stat(def); err == nil {
				path = def
			}
		}
	}
	b.app.configPath = config.ExpandPath(path)

	c, err := b.app.loadConfig()
	if err != nil {
		return &InitError{Component: "config", Err: err}
	}
	b.app.store = config.NewStore(c)
	return nil
}

// loadConfig builds a Config from the defaults, the file, the
// environment and the command line, in that order.
func (app *Application) loadConfig() (*config.Config, error) {
	c := config.Default()
	if app.configPath != "" {
		if err := c.LoadFile(app.configPath); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyEnv(app.opts.Environ); err != nil {
		return nil, err
	}
	app.opts.apply(c)

	c.Storage.Dir = config.ExpandPath(c.Storage.Dir)
	c.Storage.Database = config.ExpandPath(c.Storage.Database)
	c.Log.File = config.ExpandPath(c.Log.File)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (b *bootstrapper) initLogging() error {
	c := b.app.store.Load()
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return &InitError{Component: "logging", Err: err}
	}

	out := b.app.opts.Stderr
	if c.Log.File != "" {
		f, err := logging.OpenFile(c.Log.File)
		if err != nil {
			return &InitError{Component: "logging", Err: err}
		}
		b.app.logFile = f
		out = f
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Output = out
	logger := logging.New(cfg)
	b.app.logger = logger

	b.app.store.OnChange(func(old, cur *config.Config) {
		if lvl, err := logging.ParseLevel(cur.Log.Level); err == nil {
			logger.SetLevel(lvl)
		}
		if old.Storage != cur.Storage || old.Log.File != cur.Log.File || old.Web.Listen != cur.Web.Listen {
			logger.Warn("storage, log file and listen address changes take effect after restart")
		}
	})
	return nil
}

func (b *bootstrapper) initStorage() error {
	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	drive, closeFn, err := openDrive(ctx, b.app.store.Load().Storage)
	if err != nil {
		return &InitError{Component: "storage", Err: err}
	}
	b.app.drive, b.app.closeDrive = drive, closeFn
	return nil
}

// openDrive opens the drive selected by c: a SQLite database, a directory
// of .bas files or, when neither is set, memory.
func openDrive(ctx context.Context, c config.StorageConfig) (storage.Drive, func() error, error) {
	switch {
	case c.Database != "":
		if c.Database != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(c.Database), 0o755); err != nil {
				return nil, nil, err
			}
		}
		d, err := storage.OpenSQLiteDrive(ctx, c.Database)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	case c.Dir != "":
		return storage.NewDirectoryDrive(c.Dir), nil, nil
	default:
		return storage.NewMemoryDrive(), nil, nil
	}
}

// initWatcher reloads the configuration file on change. Failing to watch
// only disables live reload.
func (b *bootstrapper) initWatcher() error {
	if b.app.configPath == "" {
		return nil
	}
	w, err := config.WatchFile(b.app.configPath, b.app.store, b.app.loadConfig, b.app.logger)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			b.app.logger.Debug("config live reload disabled: %v", err)
		} else {
			b.app.logger.Warn("config live reload disabled: %v", err)
		}
		return nil
	}
	b.app.watcher = w
	return nil
}
