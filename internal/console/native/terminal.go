// Package native implements the console interface for host terminals with
// synchronous, blocking I/O.
package native

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termrepl/internal/console"
)

// maxPalette caps the palette size reported by true-color terminals.
const maxPalette = 256

var errInterrupted = errors.New("read interrupted")

// Terminal implements console.Console using tcell. Every write updates an
// in-memory Buffer and is pushed to the screen before the call returns.
// ReadKey blocks the calling goroutine in tcell's event loop.
type Terminal struct {
	screen  tcell.Screen
	buf     *console.Buffer
	seq     console.Sequencer
	closed  atomic.Bool
	onClose func()
}

// NewTerminal creates a terminal backend on the controlling terminal.
func NewTerminal() (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, console.IoFailure("init", err)
	}
	return NewTerminalWithScreen(screen)
}

// NewTerminalWithScreen initializes screen and wraps it.
func NewTerminalWithScreen(screen tcell.Screen) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, console.IoFailure("init", err)
	}
	screen.HideCursor()

	cols, rows := screen.Size()
	t := &Terminal{
		screen: screen,
		buf:    console.NewBuffer(rows, cols, paletteSize(screen)),
	}
	t.sync()
	return t, nil
}

func paletteSize(screen tcell.Screen) int {
	n := screen.Colors()
	if n > maxPalette {
		return maxPalette
	}
	if n < 0 {
		return 0
	}
	return n
}

// Buffer returns the in-memory mirror of the screen.
func (t *Terminal) Buffer() *console.Buffer {
	return t.buf
}

// OnClose registers a function run once when the terminal is closed.
func (t *Terminal) OnClose(fn func()) {
	t.onClose = fn
}

func (t *Terminal) Print(text string) error {
	if t.closed.Load() {
		return console.Disconnected("print", nil)
	}
	t.refreshSize()
	t.buf.Print(text)
	t.sync()
	return nil
}

func (t *Terminal) Clear() error {
	if t.closed.Load() {
		return console.Disconnected("clear", nil)
	}
	t.refreshSize()
	t.buf.Clear()
	t.sync()
	return nil
}

func (t *Terminal) MoveCursor(row, col int) error {
	if t.closed.Load() {
		return console.Disconnected("move_cursor", nil)
	}
	t.refreshSize()
	t.buf.MoveCursor(row, col)
	t.showCursor()
	t.screen.Show()
	return nil
}

func (t *Terminal) SetColor(fg, bg console.Color) error {
	if t.closed.Load() {
		return console.Disconnected("set_color", nil)
	}
	return t.buf.SetColor(fg, bg)
}

// ReadKey blocks until a key press arrives. Resize events received while
// waiting update the buffer. Cancelling ctx or closing the terminal
// resolves the call with console.ErrDisconnected.
func (t *Terminal) ReadKey(ctx context.Context) (console.KeyEvent, error) {
	if t.closed.Load() {
		return console.KeyEvent{}, console.Disconnected("read_key", nil)
	}
	if err := ctx.Err(); err != nil {
		return console.KeyEvent{}, console.Disconnected("read_key", err)
	}

	stop := context.AfterFunc(ctx, func() {
		t.screen.PostEventWait(tcell.NewEventInterrupt(errInterrupted))
	})
	defer stop()

	for {
		ev := t.screen.PollEvent()
		switch e := ev.(type) {
		case nil:
			return console.KeyEvent{}, console.Disconnected("read_key", nil)
		case *tcell.EventInterrupt:
			if err := ctx.Err(); err != nil {
				return console.KeyEvent{}, console.Disconnected("read_key", err)
			}
			// Left over from an earlier, cancelled read.
		case *tcell.EventResize:
			cols, rows := e.Size()
			t.resize(rows, cols)
		case *tcell.EventKey:
			if key, ok := DecodeKey(e); ok {
				return t.seq.Stamp(key), nil
			}
		}
	}
}

// Size returns the latest terminal dimensions.
// Cursor returns the cursor position of the screen model.
func (t *Terminal) Cursor() console.CursorPosition {
	return t.buf.Cursor()
}

func (t *Terminal) Size() (rows, cols int) {
	t.refreshSize()
	return t.buf.Size()
}

// Close restores the terminal. Pending and later calls report
// console.ErrDisconnected.
func (t *Terminal) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.screen.Fini()
	if t.onClose != nil {
		t.onClose()
	}
	return nil
}

// refreshSize picks up a resize tcell has observed but not yet delivered.
func (t *Terminal) refreshSize() {
	cols, rows := t.screen.Size()
	if r, c := t.buf.Size(); r != rows || c != cols {
		t.resize(rows, cols)
	}
}

func (t *Terminal) resize(rows, cols int) {
	if rows <= 0 || cols <= 0 {
		return
	}
	t.buf.Resize(rows, cols)
	t.sync()
}

// sync copies the buffer to the screen and shows it.
func (t *Terminal) sync() {
	rows, cols := t.buf.Size()
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			cell := t.buf.Cell(y, x)
			if cell.Width == 0 {
				continue
			}
			runes := []rune(cell.Text)
			if len(runes) == 0 {
				runes = []rune{' '}
			}
			t.screen.SetContent(x, y, runes[0], runes[1:], convertStyle(cell.Fg, cell.Bg))
		}
	}
	t.showCursor()
	t.screen.Show()
}

func (t *Terminal) showCursor() {
	pos := t.buf.Cursor()
	t.screen.ShowCursor(pos.Col, pos.Row)
}

// convertStyle converts palette colors to a tcell style.
func convertStyle(fg, bg console.Color) tcell.Style {
	style := tcell.StyleDefault
	if fg != console.ColorDefault {
		style = style.Foreground(tcell.PaletteColor(int(fg)))
	}
	if bg != console.ColorDefault {
		style = style.Background(tcell.PaletteColor(int(bg)))
	}
	return style
}
