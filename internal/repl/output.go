package repl

import (
	"github.com/dshills/termrepl/internal/console"
)

// Output is where an interpreter writes during Exec. Calls are recorded
// and rendered after Exec returns.
type Output interface {
	Print(text string)
	Clear()
	MoveCursor(row, col int)
	SetColor(fg, bg console.Color)
	Size() (rows, cols int)
}

// OpKind identifies a recorded output operation.
type OpKind int

const (
	OpPrint OpKind = iota
	OpClear
	OpMoveCursor
	OpSetColor
)

// Op is one recorded output operation.
type Op struct {
	Kind     OpKind
	Text     string
	Row, Col int
	Fg, Bg   console.Color
}

// Frame records the output of one execution.
type Frame struct {
	ops        []Op
	rows, cols int
}

// NewFrame creates an empty frame for a rows x cols console.
func NewFrame(rows, cols int) *Frame {
	return &Frame{rows: rows, cols: cols}
}

// Print records text. Consecutive prints are merged.
func (f *Frame) Print(text string) {
	if text == "" {
		return
	}
	if n := len(f.ops); n > 0 && f.ops[n-1].Kind == OpPrint {
		f.ops[n-1].Text += text
		return
	}
	f.ops = append(f.ops, Op{Kind: OpPrint, Text: text})
}

func (f *Frame) Clear() {
	f.ops = append(f.ops, Op{Kind: OpClear})
}

func (f *Frame) MoveCursor(row, col int) {
	f.ops = append(f.ops, Op{Kind: OpMoveCursor, Row: row, Col: col})
}

func (f *Frame) SetColor(fg, bg console.Color) {
	f.ops = append(f.ops, Op{Kind: OpSetColor, Fg: fg, Bg: bg})
}

func (f *Frame) Size() (rows, cols int) {
	return f.rows, f.cols
}

// Ops returns the recorded operations.
func (f *Frame) Ops() []Op {
	return f.ops
}

// Replay applies the frame to c in order. Errors for which check returns
// nil are skipped; the first other error stops the replay.
func (f *Frame) Replay(c console.Console, check func(error) error) error {
	for _, op := range f.ops {
		var err error
		switch op.Kind {
		case OpPrint:
			err = c.Print(op.Text)
		case OpClear:
			err = c.Clear()
		case OpMoveCursor:
			err = c.MoveCursor(op.Row, op.Col)
		case OpSetColor:
			err = c.SetColor(op.Fg, op.Bg)
		}
		if err == nil {
			continue
		}
		if err = check(err); err != nil {
			return err
		}
	}
	return nil
}

// ConsoleOutput writes straight to a console. It serves callers that run
// without a driver, such as batch program runs. Errors for which check
// returns nil are dropped; the first other error is kept and later calls
// do nothing.
type ConsoleOutput struct {
	c     console.Console
	check func(error) error
	err   error
}

// NewConsoleOutput creates an output for c. A nil check keeps every error.
func NewConsoleOutput(c console.Console, check func(error) error) *ConsoleOutput {
	if check == nil {
		check = func(err error) error { return err }
	}
	return &ConsoleOutput{c: c, check: check}
}

func (o *ConsoleOutput) do(fn func() error) {
	if o.err != nil {
		return
	}
	if err := fn(); err != nil {
		o.err = o.check(err)
	}
}

func (o *ConsoleOutput) Print(text string) {
	o.do(func() error { return o.c.Print(text) })
}

func (o *ConsoleOutput) Clear() {
	o.do(o.c.Clear)
}

func (o *ConsoleOutput) MoveCursor(row, col int) {
	o.do(func() error { return o.c.MoveCursor(row, col) })
}

func (o *ConsoleOutput) SetColor(fg, bg console.Color) {
	o.do(func() error { return o.c.SetColor(fg, bg) })
}

func (o *ConsoleOutput) Size() (rows, cols int) {
	return o.c.Size()
}

// Err returns the first kept error.
func (o *ConsoleOutput) Err() error {
	return o.err
}
