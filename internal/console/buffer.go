package console

import (
	"strings"

	"github.com/rivo/uniseg"
)

// tabWidth is the distance between tab stops.
const tabWidth = 8

// Cell is one screen position. A wide grapheme occupies its own cell with
// Width 2 and a continuation cell with Width 0 to its right.
type Cell struct {
	Text  string
	Width int
	Fg    Color
	Bg    Color
}

// EmptyCell returns a blank cell with default colors.
func EmptyCell() Cell {
	return Cell{Text: " ", Width: 1, Fg: ColorDefault, Bg: ColorDefault}
}

// Buffer is an in-memory character grid implementing the cursor, wrap and
// scroll rules of Console.Print. It is not safe for concurrent use.
type Buffer struct {
	rows, cols  int
	palette     int
	cells       [][]Cell
	cursor      CursorPosition
	wrapPending bool
	fg, bg      Color
}

// NewBuffer creates a blank buffer. Sizes below 1 are raised to 1.
func NewBuffer(rows, cols, paletteSize int) *Buffer {
	b := &Buffer{
		rows:    max(rows, 1),
		cols:    max(cols, 1),
		palette: paletteSize,
		fg:      ColorDefault,
		bg:      ColorDefault,
	}
	b.cells = b.allocate(b.rows, b.cols)
	return b
}

func (b *Buffer) allocate(rows, cols int) [][]Cell {
	cells := make([][]Cell, rows)
	for y := range cells {
		cells[y] = blankRow(cols)
	}
	return cells
}

func blankRow(cols int) []Cell {
	row := make([]Cell, cols)
	for x := range row {
		row[x] = EmptyCell()
	}
	return row
}

// Size returns the buffer dimensions.
func (b *Buffer) Size() (rows, cols int) {
	return b.rows, b.cols
}

// PaletteSize returns the number of palette entries SetColor accepts.
func (b *Buffer) PaletteSize() int {
	return b.palette
}

// Cursor returns the cursor position.
func (b *Buffer) Cursor() CursorPosition {
	return b.cursor
}

// Colors returns the colors applied to printed text.
func (b *Buffer) Colors() (fg, bg Color) {
	return b.fg, b.bg
}

// Cell returns the cell at row, col or an empty cell when out of range.
func (b *Buffer) Cell(row, col int) Cell {
	if row < 0 || row >= b.rows || col < 0 || col >= b.cols {
		return EmptyCell()
	}
	return b.cells[row][col]
}

// Print writes text at the cursor.
func (b *Buffer) Print(text string) {
	state := -1
	for len(text) > 0 {
		var cluster string
		var width int
		cluster, text, width, state = uniseg.FirstGraphemeClusterInString(text, state)

		switch cluster {
		case "\n", "\r\n":
			b.newline()
		case "\r":
			b.cursor.Col = 0
			b.wrapPending = false
		case "\b":
			if b.wrapPending {
				b.wrapPending = false
			} else if b.cursor.Col > 0 {
				b.cursor.Col--
			}
		case "\t":
			spaces := tabWidth - b.cursor.Col%tabWidth
			for i := 0; i < spaces; i++ {
				b.put(" ", 1)
			}
		default:
			if width <= 0 {
				// Unprintable on its own.
				continue
			}
			b.put(cluster, width)
		}
	}
}

func (b *Buffer) put(cluster string, width int) {
	if width > b.cols {
		width = 1
	}
	if b.wrapPending || b.cursor.Col+width > b.cols {
		b.newline()
	}

	row := b.cells[b.cursor.Row]
	row[b.cursor.Col] = Cell{Text: cluster, Width: width, Fg: b.fg, Bg: b.bg}
	for i := 1; i < width; i++ {
		row[b.cursor.Col+i] = Cell{Width: 0, Fg: b.fg, Bg: b.bg}
	}

	if b.cursor.Col+width >= b.cols {
		b.cursor.Col = b.cols - 1
		b.wrapPending = true
		return
	}
	b.cursor.Col += width
}

func (b *Buffer) newline() {
	b.wrapPending = false
	b.cursor.Col = 0
	if b.cursor.Row+1 < b.rows {
		b.cursor.Row++
		return
	}
	b.scroll()
}

// scroll drops the top row and opens a blank row at the bottom.
func (b *Buffer) scroll() {
	copy(b.cells, b.cells[1:])
	b.cells[b.rows-1] = blankRow(b.cols)
}

// Clear blanks every cell and homes the cursor.
func (b *Buffer) Clear() {
	for y := range b.cells {
		b.cells[y] = blankRow(b.cols)
	}
	b.cursor = CursorPosition{}
	b.wrapPending = false
}

// MoveCursor clamps and sets the cursor position.
func (b *Buffer) MoveCursor(row, col int) {
	b.cursor = CursorPosition{Row: row, Col: col}.Clamp(b.rows, b.cols)
	b.wrapPending = false
}

// SetColor sets the colors used by Print.
func (b *Buffer) SetColor(fg, bg Color) error {
	if !fg.Valid(b.palette) {
		return Unsupported("set_color", "foreground %d outside palette of %d", fg, b.palette)
	}
	if !bg.Valid(b.palette) {
		return Unsupported("set_color", "background %d outside palette of %d", bg, b.palette)
	}
	b.fg, b.bg = fg, bg
	return nil
}

// Resize changes the dimensions, keeping the top-left content and
// clamping the cursor.
func (b *Buffer) Resize(rows, cols int) {
	rows, cols = max(rows, 1), max(cols, 1)
	if rows == b.rows && cols == b.cols {
		return
	}

	cells := b.allocate(rows, cols)
	for y := 0; y < min(rows, b.rows); y++ {
		copy(cells[y], b.cells[y][:min(cols, b.cols)])
	}

	b.cells = cells
	b.rows, b.cols = rows, cols
	b.cursor = b.cursor.Clamp(rows, cols)
	b.wrapPending = false
}

// Line returns the text of one row with trailing blanks removed.
func (b *Buffer) Line(row int) string {
	if row < 0 || row >= b.rows {
		return ""
	}
	var sb strings.Builder
	for _, c := range b.cells[row] {
		if c.Width == 0 {
			continue
		}
		sb.WriteString(c.Text)
	}
	return strings.TrimRight(sb.String(), " ")
}

// Lines returns every row, trailing blank rows removed.
func (b *Buffer) Lines() []string {
	lines := make([]string, b.rows)
	for y := range lines {
		lines[y] = b.Line(y)
	}
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return lines[:end]
}

// String returns the visible text with rows joined by newlines.
func (b *Buffer) String() string {
	return strings.Join(b.Lines(), "\n")
}
