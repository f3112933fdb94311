package console

import (
	"context"
	"sync"
)

// DefaultPaletteSize is the palette size of the in-memory console.
const DefaultPaletteSize = 16

// Memory is a Console backed by a Buffer and a queue of scripted keys. It
// serves headless runs and tests. Keys may be fed from any goroutine.
type Memory struct {
	mu     sync.Mutex
	buf    *Buffer
	keys   []KeyEvent
	ready  chan struct{}
	closed chan struct{}
	once   sync.Once
	seq    Sequencer
	calls  int
}

// NewMemory creates an in-memory console of the given size.
func NewMemory(rows, cols int) *Memory {
	return &Memory{
		buf:    NewBuffer(rows, cols, DefaultPaletteSize),
		ready:  make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

// Feed queues keys for ReadKey.
func (m *Memory) Feed(keys ...KeyEvent) {
	m.mu.Lock()
	m.keys = append(m.keys, keys...)
	m.mu.Unlock()
	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// FeedString queues one key per rune of s, turning '\n' into Enter.
func (m *Memory) FeedString(s string) {
	keys := make([]KeyEvent, 0, len(s))
	for _, r := range s {
		if r == '\n' {
			keys = append(keys, SpecialKey(KeyEnter))
			continue
		}
		keys = append(keys, RuneKey(r))
	}
	m.Feed(keys...)
}

// Close disconnects the console. Pending and future ReadKey calls fail
// with ErrDisconnected once queued keys are drained.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

// Buffer returns the backing buffer. Callers must not use it while
// another goroutine drives the console.
func (m *Memory) Buffer() *Buffer {
	return m.buf
}

// Cursor returns the cursor position. It is not counted as a call.
func (m *Memory) Cursor() CursorPosition {
	return m.buf.Cursor()
}

// Calls returns how many Console operations were invoked.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) enter() {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
}

func (m *Memory) isClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}

func (m *Memory) Print(text string) error {
	m.enter()
	if m.isClosed() {
		return Disconnected("print", nil)
	}
	m.buf.Print(text)
	return nil
}

func (m *Memory) Clear() error {
	m.enter()
	if m.isClosed() {
		return Disconnected("clear", nil)
	}
	m.buf.Clear()
	return nil
}

func (m *Memory) MoveCursor(row, col int) error {
	m.enter()
	if m.isClosed() {
		return Disconnected("move_cursor", nil)
	}
	m.buf.MoveCursor(row, col)
	return nil
}

func (m *Memory) SetColor(fg, bg Color) error {
	m.enter()
	if m.isClosed() {
		return Disconnected("set_color", nil)
	}
	return m.buf.SetColor(fg, bg)
}

func (m *Memory) ReadKey(ctx context.Context) (KeyEvent, error) {
	m.enter()
	for {
		m.mu.Lock()
		if len(m.keys) > 0 {
			ev := m.keys[0]
			m.keys = m.keys[1:]
			ev = m.seq.Stamp(ev)
			m.mu.Unlock()
			return ev, nil
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-m.closed:
			return KeyEvent{}, Disconnected("read_key", nil)
		case <-ctx.Done():
			return KeyEvent{}, Disconnected("read_key", ctx.Err())
		}
	}
}

func (m *Memory) Size() (rows, cols int) {
	m.enter()
	return m.buf.Size()
}

// Resize simulates a viewport resize.
func (m *Memory) Resize(rows, cols int) {
	m.buf.Resize(rows, cols)
}
