// Package web implements the console interface on top of an event-driven
// terminal widget, such as xterm.js running in a browser.
//
// The widget never blocks the caller: writes are queued for rendering and
// input arrives through callbacks on the widget's own goroutine. Adapter
// turns that model into the blocking Console contract by parking the
// reading goroutine on a channel until the next input callback fires.
package web

import (
	"context"
	"errors"
)

// ErrClosed is returned by widget operations after teardown.
var ErrClosed = errors.New("widget closed")

// Widget is the contract of an event-driven terminal emulator.
type Widget interface {
	// Write queues data, which may contain ANSI sequences, for rendering.
	// It does not wait for the renderer.
	Write(data string)

	// Commit waits until every earlier Write has reached the renderer.
	Commit(ctx context.Context) error

	// Size returns the current grid dimensions.
	Size() (rows, cols int)

	// OnResize registers fn to be called with the new dimensions after the
	// widget is resized. A later call replaces the hook.
	OnResize(fn func(rows, cols int))

	// NextInput registers a one-shot callback for the next chunk of input
	// data. If input arrived while nobody was listening, fn is called
	// immediately with the oldest chunk. The returned function
	// unregisters fn and reports true if it has not been claimed yet;
	// after a false result fn has been or will shortly be called.
	NextInput(fn func(data string)) (cancel func() bool)

	// Closed is closed when the widget is torn down.
	Closed() <-chan struct{}

	// Close tears the widget down.
	Close() error
}
