package web

import (
	"context"
	"sync"

	"golang.org/x/net/websocket"
)

// Frame types exchanged with the browser page.
const (
	FrameData   = "data"   // client -> server: input from onData
	FrameResize = "resize" // client -> server: new grid size
	FrameOutput = "output" // server -> client: data for term.write
)

// Frame is the JSON message carried over the socket.
type Frame struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Rows int    `json:"rows,omitempty"`
	Cols int    `json:"cols,omitempty"`
}

// Default grid size used until the page reports its own.
const (
	DefaultRows = 24
	DefaultCols = 80
)

// outgoing is an entry in the write queue: either data or a commit
// barrier.
type outgoing struct {
	data    string
	barrier chan struct{}
}

// SocketWidget is a Widget whose renderer is an xterm.js terminal on the
// other end of a WebSocket. A read pump feeds input and resize frames to
// the widget; a write pump sends output frames in order.
type SocketWidget struct {
	conn  *websocket.Conn
	inbox inbox

	mu       sync.Mutex
	rows     int
	cols     int
	onResize func(rows, cols int)

	out       chan outgoing
	closed    chan struct{}
	closeOnce sync.Once
}

// NewSocketWidget starts the pumps for conn.
func NewSocketWidget(conn *websocket.Conn) *SocketWidget {
	w := &SocketWidget{
		conn:   conn,
		rows:   DefaultRows,
		cols:   DefaultCols,
		out:    make(chan outgoing, 256),
		closed: make(chan struct{}),
	}
	go w.readPump()
	go w.writePump()
	return w
}

func (w *SocketWidget) readPump() {
	defer w.Close()
	for {
		var f Frame
		if err := websocket.JSON.Receive(w.conn, &f); err != nil {
			return
		}
		switch f.Type {
		case FrameData:
			w.inbox.push(f.Data)
		case FrameResize:
			w.setSize(f.Rows, f.Cols)
		}
	}
}

func (w *SocketWidget) writePump() {
	defer w.Close()
	for {
		select {
		case item := <-w.out:
			if item.barrier != nil {
				close(item.barrier)
				continue
			}
			if err := websocket.JSON.Send(w.conn, Frame{Type: FrameOutput, Data: item.data}); err != nil {
				return
			}
		case <-w.closed:
			return
		}
	}
}

func (w *SocketWidget) setSize(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		return
	}
	w.mu.Lock()
	w.rows, w.cols = rows, cols
	fn := w.onResize
	w.mu.Unlock()
	if fn != nil {
		fn(rows, cols)
	}
}

func (w *SocketWidget) Write(data string) {
	select {
	case w.out <- outgoing{data: data}:
	case <-w.closed:
	}
}

func (w *SocketWidget) Commit(ctx context.Context) error {
	barrier := make(chan struct{})
	select {
	case w.out <- outgoing{barrier: barrier}:
	case <-w.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-barrier:
		return nil
	case <-w.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *SocketWidget) Size() (rows, cols int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows, w.cols
}

func (w *SocketWidget) OnResize(fn func(rows, cols int)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onResize = fn
}

func (w *SocketWidget) NextInput(fn func(data string)) (cancel func() bool) {
	return w.inbox.next(fn)
}

func (w *SocketWidget) Closed() <-chan struct{} {
	return w.closed
}

// Close closes the socket. Pending commits and reads resolve with
// ErrClosed.
func (w *SocketWidget) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closed)
		err = w.conn.Close()
	})
	return err
}
