package config

import (
	"sync"
	"sync/atomic"
)

// Store holds the active configuration. Readers never block and always
// see a complete Config.
type Store struct {
	cur atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []Listener
}

// Listener is called with the previous and the new configuration.
type Listener func(old, cur *Config)

// NewStore creates a store holding c.
func NewStore(c *Config) *Store {
	s := &Store{}
	s.cur.Store(c)
	return s
}

// Load returns the active configuration. Callers must not modify it.
func (s *Store) Load() *Config {
	return s.cur.Load()
}

// Replace installs c and notifies listeners.
func (s *Store) Replace(c *Config) {
	old := s.cur.Swap(c)

	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(old, c)
	}
}

// OnChange registers fn to run after every Replace.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Prompt returns the configured prompt.
func (s *Store) Prompt() string {
	return s.Load().REPL.Prompt
}
