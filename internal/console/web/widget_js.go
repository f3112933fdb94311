//go:build js && wasm

package web

import (
	"context"
	"sync"
	"syscall/js"
)

// JSWidget is a Widget bound to an xterm.js Terminal object in the same
// page. Callbacks run on the JavaScript event loop.
type JSWidget struct {
	term  js.Value
	inbox inbox

	mu       sync.Mutex
	onResize func(rows, cols int)

	funcs     []js.Func
	disposers []js.Value
	pagehide  js.Func

	closed    chan struct{}
	closeOnce sync.Once
}

// NewJSWidget binds term, an xterm.js Terminal. The widget is torn down
// when the page fires pagehide.
func NewJSWidget(term js.Value) *JSWidget {
	w := &JSWidget{term: term, closed: make(chan struct{})}

	onData := w.fn(func(args []js.Value) {
		if len(args) > 0 {
			w.inbox.push(args[0].String())
		}
	})
	onResize := w.fn(func(args []js.Value) {
		if len(args) == 0 {
			return
		}
		rows, cols := args[0].Get("rows").Int(), args[0].Get("cols").Int()
		w.mu.Lock()
		fn := w.onResize
		w.mu.Unlock()
		if fn != nil {
			fn(rows, cols)
		}
	})
	w.pagehide = w.fn(func([]js.Value) { w.Close() })

	w.disposers = append(w.disposers,
		term.Call("onData", onData),
		term.Call("onResize", onResize),
	)
	js.Global().Call("addEventListener", "pagehide", w.pagehide)
	return w
}

func (w *JSWidget) fn(body func(args []js.Value)) js.Func {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		body(args)
		return nil
	})
	w.funcs = append(w.funcs, f)
	return f
}

func (w *JSWidget) isClosed() bool {
	select {
	case <-w.closed:
		return true
	default:
		return false
	}
}

func (w *JSWidget) Write(data string) {
	if w.isClosed() {
		return
	}
	w.term.Call("write", data)
}

// Commit uses the write callback, which xterm.js invokes once all earlier
// writes have been parsed.
func (w *JSWidget) Commit(ctx context.Context) error {
	if w.isClosed() {
		return ErrClosed
	}
	done := make(chan struct{})
	var once sync.Once
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		once.Do(func() { close(done) })
		return nil
	})
	defer cb.Release()

	w.term.Call("write", "", cb)
	select {
	case <-done:
		return nil
	case <-w.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *JSWidget) Size() (rows, cols int) {
	return w.term.Get("rows").Int(), w.term.Get("cols").Int()
}

func (w *JSWidget) OnResize(fn func(rows, cols int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = fn
}

func (w *JSWidget) NextInput(fn func(data string)) (cancel func() bool) {
	return w.inbox.next(fn)
}

func (w *JSWidget) Closed() <-chan struct{} {
	return w.closed
}

// Close detaches from the terminal and releases the callbacks. The
// terminal itself belongs to the page and is left open.
func (w *JSWidget) Close() error {
	w.closeOnce.Do(func() {
		close(w.closed)
		js.Global().Call("removeEventListener", "pagehide", w.pagehide)
		for _, d := range w.disposers {
			d.Call("dispose")
		}
		for _, f := range w.funcs {
			f.Release()
		}
	})
	return nil
}
