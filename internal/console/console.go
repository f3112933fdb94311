package console

import "context"

// Console is the set of operations a backend must provide. A Console is
// owned by exactly one driver at a time.
type Console interface {
	// Print writes text at the cursor position and advances the cursor.
	// '\n' moves to the start of the next row, '\r' to the start of the
	// current row and '\b' one column left. Output wraps at the last column
	// and scrolls at the last row.
	Print(text string) error

	// Clear blanks the screen with the default color and homes the cursor.
	// Calling it repeatedly leaves the same state as calling it once.
	Clear() error

	// MoveCursor positions the cursor. Coordinates outside the viewport are
	// clamped into it.
	MoveCursor(row, col int) error

	// SetColor sets the colors used by subsequent Print calls. Indexes
	// outside the backend palette fail with ErrUnsupported and leave the
	// previous colors in effect.
	SetColor(fg, bg Color) error

	// ReadKey suspends the caller until the next key is available. It fails
	// with ErrDisconnected once the backend is torn down or ctx is done.
	ReadKey(ctx context.Context) (KeyEvent, error)

	// Size returns the current viewport dimensions.
	Size() (rows, cols int)
}

// Flusher is implemented by consoles that buffer output between calls.
type Flusher interface {
	Flush() error
}

// CursorReporter is implemented by consoles that track where the cursor
// is. After output fills the last column the reported column stays there
// until the next character wraps.
type CursorReporter interface {
	Cursor() CursorPosition
}

// Color is an index into the backend palette.
type Color int

// ColorDefault selects the backend's default foreground or background.
const ColorDefault Color = -1

// Standard palette entries shared by all backends.
const (
	ColorBlack Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightBlack
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightMagenta
	ColorBrightCyan
	ColorBrightWhite
)

// Valid reports whether c can be used with a palette of the given size.
func (c Color) Valid(paletteSize int) bool {
	return c == ColorDefault || (c >= 0 && int(c) < paletteSize)
}

// CursorPosition is a zero-based row and column.
type CursorPosition struct {
	Row int
	Col int
}

// Clamp returns the position forced inside a rows x cols viewport.
func (p CursorPosition) Clamp(rows, cols int) CursorPosition {
	return CursorPosition{Row: clamp(p.Row, rows), Col: clamp(p.Col, cols)}
}

func clamp(v, limit int) int {
	if v >= limit {
		v = limit - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}
