package config

import (
	"github.com/dshills/termrepl/internal/config/watcher"
	"github.com/dshills/termrepl/internal/logging"
)

// WatchFile reloads the configuration into store whenever the file at
// path changes. load builds the new Config; nil means Load(path). A file
// that fails to load or validate is logged and the active configuration
// stays in place. Removing the file keeps the active configuration too.
func WatchFile(path string, store *Store, load func() (*Config, error), logger *logging.Logger, opts ...watcher.Option) (*watcher.Watcher, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	log := logger.WithComponent("config")
	if load == nil {
		load = func() (*Config, error) { return Load(path) }
	}

	reload := func(ev watcher.Event) {
		if ev.Op == watcher.OpRemove || ev.Op == watcher.OpRename {
			log.Warn("%s %s, keeping current settings", path, ev.Op)
			return
		}
		c, err := load()
		if err != nil {
			log.Warn("reload %s: %v", path, err)
			return
		}
		store.Replace(c)
		log.Info("reloaded %s", path)
	}

	opts = append([]watcher.Option{
		watcher.WithErrorHandler(func(err error) {
			log.Warn("watching %s: %v", path, err)
		}),
	}, opts...)
	return watcher.Watch(path, reload, opts...)
}
