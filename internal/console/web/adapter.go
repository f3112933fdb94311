package web

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mattn/go-runewidth"

	"github.com/dshills/termrepl/internal/console"
)

// Palette is the number of colors xterm-compatible widgets render.
const Palette = 256

const tabWidth = 8

// Adapter implements console.Console over a Widget. Output is translated
// to ANSI sequences and queued on the widget; the cursor position is
// tracked locally so MoveCursor can clamp without asking the widget.
type Adapter struct {
	widget Widget

	mu     sync.Mutex // guards rows, cols and cursor, which resize updates
	rows   int
	cols   int
	cursor cursorTracker

	fg, bg console.Color

	reading atomic.Bool
	pending []console.KeyEvent
	seq     console.Sequencer
}

// NewAdapter wraps w.
func NewAdapter(w Widget) *Adapter {
	rows, cols := w.Size()
	a := &Adapter{
		widget: w,
		rows:   rows,
		cols:   cols,
		fg:     console.ColorDefault,
		bg:     console.ColorDefault,
	}
	w.OnResize(a.resize)
	return a
}

func (a *Adapter) resize(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows, a.cols = rows, cols
	a.cursor.clamp(rows, cols)
}

func (a *Adapter) closed() bool {
	select {
	case <-a.widget.Closed():
		return true
	default:
		return false
	}
}

// Cursor returns the tracked cursor position.
func (a *Adapter) Cursor() console.CursorPosition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor.pos
}

func (a *Adapter) Print(text string) error {
	if a.closed() {
		return console.Disconnected("print", nil)
	}
	if text == "" {
		return nil
	}

	a.mu.Lock()
	a.cursor.advance(text, a.rows, a.cols)
	a.mu.Unlock()

	a.widget.Write(strings.ReplaceAll(text, "\n", "\r\n"))
	return nil
}

func (a *Adapter) Clear() error {
	if a.closed() {
		return console.Disconnected("clear", nil)
	}

	a.mu.Lock()
	a.cursor = cursorTracker{}
	a.mu.Unlock()

	// Blank with the default colors, then restore the active ones.
	data := console.ANSIReset + console.ANSIClear
	if a.fg != console.ColorDefault || a.bg != console.ColorDefault {
		data += console.ANSIColor(a.fg, a.bg)
	}
	a.widget.Write(data)
	return nil
}

func (a *Adapter) MoveCursor(row, col int) error {
	if a.closed() {
		return console.Disconnected("move_cursor", nil)
	}

	a.mu.Lock()
	pos := console.CursorPosition{Row: row, Col: col}.Clamp(a.rows, a.cols)
	a.cursor = cursorTracker{pos: pos}
	a.mu.Unlock()

	a.widget.Write(console.ANSICursorTo(pos))
	return nil
}

func (a *Adapter) SetColor(fg, bg console.Color) error {
	if a.closed() {
		return console.Disconnected("set_color", nil)
	}
	if !fg.Valid(Palette) {
		return console.Unsupported("set_color", "foreground %d outside palette of %d", fg, Palette)
	}
	if !bg.Valid(Palette) {
		return console.Unsupported("set_color", "background %d outside palette of %d", bg, Palette)
	}
	a.fg, a.bg = fg, bg
	a.widget.Write(console.ANSIColor(fg, bg))
	return nil
}

// ReadKey commits pending output, then parks the caller until the widget
// delivers input, the widget closes or ctx is done. Keys beyond the first
// in a chunk are returned by later calls.
func (a *Adapter) ReadKey(ctx context.Context) (console.KeyEvent, error) {
	if !a.reading.CompareAndSwap(false, true) {
		return console.KeyEvent{}, console.Unsupported("read_key", "another read is outstanding")
	}
	defer a.reading.Store(false)

	if len(a.pending) > 0 {
		return a.dequeue(), nil
	}
	if a.closed() {
		return console.KeyEvent{}, console.Disconnected("read_key", nil)
	}
	if err := ctx.Err(); err != nil {
		return console.KeyEvent{}, console.Disconnected("read_key", err)
	}

	if err := a.widget.Commit(ctx); err != nil {
		return console.KeyEvent{}, a.commitError("read_key", ctx, err)
	}

	for {
		ch := make(chan string, 1)
		cancel := a.widget.NextInput(func(data string) { ch <- data })

		select {
		case data := <-ch:
			a.pending = append(a.pending, Decode(data)...)
			if len(a.pending) > 0 {
				return a.dequeue(), nil
			}
		case <-a.widget.Closed():
			a.settle(cancel, ch)
			return console.KeyEvent{}, console.Disconnected("read_key", nil)
		case <-ctx.Done():
			a.settle(cancel, ch)
			return console.KeyEvent{}, console.Disconnected("read_key", ctx.Err())
		}
	}
}

// settle unregisters an abandoned input listener. A chunk the widget had
// already handed to it is queued for the next read.
func (a *Adapter) settle(cancel func() bool, ch <-chan string) {
	if cancel() {
		return
	}
	a.pending = append(a.pending, Decode(<-ch)...)
}

func (a *Adapter) dequeue() console.KeyEvent {
	ev := a.pending[0]
	a.pending = a.pending[1:]
	return a.seq.Stamp(ev)
}

func (a *Adapter) commitError(op string, ctx context.Context, err error) error {
	if errors.Is(err, ErrClosed) || ctx.Err() != nil {
		return console.Disconnected(op, err)
	}
	return console.IoFailure(op, err)
}

// Size returns the dimensions last reported by the widget.
func (a *Adapter) Size() (rows, cols int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rows, a.cols
}

// Flush waits until queued output has been rendered.
func (a *Adapter) Flush() error {
	if err := a.widget.Commit(context.Background()); err != nil {
		return a.commitError("flush", context.Background(), err)
	}
	return nil
}

// Close tears down the widget.
func (a *Adapter) Close() error {
	return a.widget.Close()
}

// cursorTracker follows the cursor through printed text the way an
// xterm-compatible renderer moves it.
type cursorTracker struct {
	pos         console.CursorPosition
	wrapPending bool
}

func (c *cursorTracker) advance(text string, rows, cols int) {
	for _, r := range text {
		switch r {
		case '\n':
			c.newline(rows)
		case '\r':
			c.pos.Col = 0
			c.wrapPending = false
		case '\b':
			if c.pos.Col > 0 {
				c.pos.Col--
			}
			c.wrapPending = false
		case '\t':
			c.pos.Col = min((c.pos.Col/tabWidth+1)*tabWidth, cols-1)
			c.wrapPending = false
		default:
			w := runewidth.RuneWidth(r)
			if w == 0 {
				continue
			}
			if c.wrapPending || c.pos.Col+w > cols {
				c.newline(rows)
			}
			c.pos.Col += w
			if c.pos.Col >= cols {
				c.pos.Col = cols - 1
				c.wrapPending = true
			}
		}
	}
}

func (c *cursorTracker) newline(rows int) {
	c.pos.Col = 0
	c.wrapPending = false
	if c.pos.Row < rows-1 {
		c.pos.Row++
	}
}

func (c *cursorTracker) clamp(rows, cols int) {
	c.pos = c.pos.Clamp(rows, cols)
	c.wrapPending = false
}
