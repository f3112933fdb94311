package repl

import (
	"github.com/dshills/termrepl/internal/logging"
)

// DefaultPrompt is printed before each input line.
const DefaultPrompt = "> "

// Option configures a Driver.
type Option func(*Driver)

// WithPrompt sets a fixed prompt.
func WithPrompt(prompt string) Option {
	return func(d *Driver) {
		d.prompt = func() string { return prompt }
	}
}

// WithPromptFunc sets a function consulted before each input line, so the
// prompt can follow configuration changes.
func WithPromptFunc(fn func() string) Option {
	return func(d *Driver) {
		if fn != nil {
			d.prompt = fn
		}
	}
}

// WithBanner sets text printed once when the loop starts.
func WithBanner(banner string) Option {
	return func(d *Driver) {
		d.banner = banner
	}
}

// WithLogger sets the driver logger.
func WithLogger(l *logging.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHistoryLimit bounds the session history.
func WithHistoryLimit(n int) Option {
	return func(d *Driver) {
		d.historyLimit = n
	}
}

// WithStateObserver registers fn to be called on every state change.
// It runs on the driver goroutine and must not call the console.
func WithStateObserver(fn func(from, to State)) Option {
	return func(d *Driver) {
		d.observer = fn
	}
}
