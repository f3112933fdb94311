package web

import (
	"context"
	"strings"
	"sync"
)

// fakeWidget records widget calls and lets tests inject input.
type fakeWidget struct {
	inbox inbox

	mu        sync.Mutex
	rows      int
	cols      int
	onResize  func(rows, cols int)
	ops       []string
	written   strings.Builder
	commitErr error

	closed chan struct{}
	once   sync.Once
}

func newFakeWidget(rows, cols int) *fakeWidget {
	return &fakeWidget{rows: rows, cols: cols, closed: make(chan struct{})}
}

func (w *fakeWidget) record(op string) {
	w.mu.Lock()
	w.ops = append(w.ops, op)
	w.mu.Unlock()
}

func (w *fakeWidget) Write(data string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ops = append(w.ops, "write")
	w.written.WriteString(data)
}

func (w *fakeWidget) Commit(ctx context.Context) error {
	w.record("commit")
	select {
	case <-w.closed:
		return ErrClosed
	default:
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commitErr
}

func (w *fakeWidget) Size() (rows, cols int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows, w.cols
}

func (w *fakeWidget) OnResize(fn func(rows, cols int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = fn
}

func (w *fakeWidget) NextInput(fn func(data string)) (cancel func() bool) {
	w.record("listen")
	return w.inbox.next(fn)
}

func (w *fakeWidget) Closed() <-chan struct{} {
	return w.closed
}

func (w *fakeWidget) Close() error {
	w.once.Do(func() { close(w.closed) })
	return nil
}

func (w *fakeWidget) send(data string) {
	w.inbox.push(data)
}

func (w *fakeWidget) resize(rows, cols int) {
	w.mu.Lock()
	w.rows, w.cols = rows, cols
	fn := w.onResize
	w.mu.Unlock()
	if fn != nil {
		fn(rows, cols)
	}
}

func (w *fakeWidget) output() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written.String()
}

func (w *fakeWidget) opLog() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.ops...)
}
