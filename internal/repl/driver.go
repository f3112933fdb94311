package repl

import (
	"context"
	"errors"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dshills/termrepl/internal/console"
	"github.com/dshills/termrepl/internal/logging"
)

// Driver runs the read-eval-print loop on a console it exclusively owns.
type Driver struct {
	console      console.Console
	interp       Interpreter
	logger       *logging.Logger
	prompt       func() string
	banner       string
	historyLimit int
	observer     func(from, to State)

	state   State
	started bool
	session *Session

	cursor console.CursorReporter // nil when the console does not track one
	anchor console.CursorPosition // where input starts after the prompt
}

// New creates a driver for c and interp.
func New(c console.Console, interp Interpreter, opts ...Option) *Driver {
	d := &Driver{
		console: c,
		interp:  interp,
		logger:  logging.Nop(),
		prompt:  func() string { return DefaultPrompt },
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithComponent("repl")
	d.cursor, _ = c.(console.CursorReporter)
	return d
}

// RunLoop creates a driver and runs it until the session ends.
func RunLoop(ctx context.Context, c console.Console, interp Interpreter, opts ...Option) error {
	return New(c, interp, opts...).Run(ctx)
}

// State returns the current state. It must be called from the driver
// goroutine or after Run returns.
func (d *Driver) State() State {
	return d.state
}

// Session returns the session of the current or last run.
func (d *Driver) Session() *Session {
	return d.session
}

func (d *Driver) setState(s State) {
	if d.state == s {
		return
	}
	from := d.state
	d.state = s
	if d.observer != nil {
		d.observer(from, s)
	}
}

// Run executes the loop until the user quits, the interpreter requests an
// exit or the console fails. It returns nil on a clean quit, an
// *ExitError when the interpreter asked to exit, and the console error
// otherwise.
func (d *Driver) Run(ctx context.Context) error {
	if d.started {
		if d.state == StateStopped {
			return ErrStopped
		}
		return ErrAlreadyRunning
	}
	d.started = true

	d.session = NewSession(d.historyLimit)
	d.session.Running = true
	log := d.logger.WithField("session", d.session.ID)
	log.Debug("session started")

	err := d.loop(ctx)

	d.session.Running = false
	d.setState(StateStopped)

	var exit *ExitError
	switch {
	case err == nil:
		log.Debug("session ended")
	case errors.As(err, &exit):
		log.Debug("session exited with code %d", exit.Code)
	case errors.Is(err, console.ErrIoFailure):
		log.Error("console failure: %v", err)
		if f, ok := d.console.(console.Flusher); ok {
			if ferr := f.Flush(); ferr != nil {
				log.Warn("flush after failure: %v", ferr)
			}
		}
	default:
		log.Info("session stopped: %v", err)
	}
	return err
}

func (d *Driver) loop(ctx context.Context) error {
	if d.banner != "" {
		if err := d.check(d.console.Print(d.banner)); err != nil {
			return err
		}
	}

	for {
		d.setState(StateIdle)

		line, ok, err := d.readLine(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		d.setState(StateExecuting)
		rows, cols := d.console.Size()
		frame := NewFrame(rows, cols)
		execErr := d.interp.Exec(ctx, line, frame)

		var exit *ExitError
		if execErr != nil && !errors.As(execErr, &exit) {
			if ctx.Err() != nil {
				return console.Disconnected("exec", ctx.Err())
			}
			d.logger.Debug("exec %q: %v", line, execErr)
			frame.Print("ERROR: " + execErr.Error() + "\n")
		}

		d.setState(StateRenderingOutput)
		if err := frame.Replay(d.console, d.check); err != nil {
			return err
		}

		d.session.AddHistory(line)
		d.session.ResetInput()

		if exit != nil {
			return exit
		}
	}
}

// check lets the loop continue past unsupported operations.
func (d *Driver) check(err error) error {
	if err == nil {
		return nil
	}
	if console.IsRecoverable(err) {
		d.logger.Warn("%v", err)
		return nil
	}
	return err
}

// print writes text, absorbing recoverable errors.
func (d *Driver) print(text string) error {
	return d.check(d.console.Print(text))
}

// readLine collects keys until Enter. It returns ok=false when the user
// ends the session with Ctrl+D on an empty line.
func (d *Driver) readLine(ctx context.Context) (line string, ok bool, err error) {
	d.setState(StateReadingInput)
	s := d.session
	s.ResetInput()

	prompt := d.prompt()
	if err := d.startLine(prompt); err != nil {
		return "", false, err
	}

	for {
		ev, err := d.console.ReadKey(ctx)
		if err != nil {
			if err = d.check(err); err != nil {
				return "", false, err
			}
			continue
		}

		switch {
		case ev.Key == console.KeyEnter:
			return s.Line(), true, d.print("\n")

		case ev.IsCtrl('c'):
			if err := d.startLine("^C\n" + prompt); err != nil {
				return "", false, err
			}
			s.ResetInput()

		case ev.IsCtrl('d'):
			if len(s.Buffer) == 0 {
				return "", false, d.print("\n")
			}

		case ev.IsCtrl('l'):
			if err := d.check(d.console.Clear()); err != nil {
				return "", false, err
			}
			if err := d.startLine(prompt); err != nil {
				return "", false, err
			}
			if err := d.print(s.Line()); err != nil {
				return "", false, err
			}

		case ev.Key == console.KeyBackspace:
			line := []rune(s.Line())
			if _, ok := s.Backspace(); ok {
				if err := d.eraseTail(line, 1); err != nil {
					return "", false, err
				}
			}

		case ev.Key == console.KeyUp, ev.Key == console.KeyDown:
			old := []rune(s.Line())
			moved := s.Previous
			if ev.Key == console.KeyDown {
				moved = s.Next
			}
			if moved() {
				if err := d.eraseTail(old, len(old)); err != nil {
					return "", false, err
				}
				if err := d.print(s.Line()); err != nil {
					return "", false, err
				}
			}

		case ev.IsChar():
			s.Insert(ev.Rune)
			if err := d.print(string(ev.Rune)); err != nil {
				return "", false, err
			}
		}
	}
}

// startLine prints the prompt text and records where input begins.
func (d *Driver) startLine(prompt string) error {
	if err := d.print(prompt); err != nil {
		return err
	}
	if d.cursor != nil {
		d.anchor = d.cursor.Cursor()
	}
	return nil
}

// eraseTail blanks the last n runes of line and leaves the cursor where
// the first of them was. Consoles that report the cursor are erased by
// position, which also crosses wrapped rows; others get backspaces.
func (d *Driver) eraseTail(line []rune, n int) error {
	if n <= 0 || n > len(line) {
		return nil
	}
	if d.cursor == nil {
		return d.print(erase(runewidth.StringWidth(string(line[len(line)-n:]))))
	}

	_, cols := d.console.Size()
	cells, lastRow := layoutLine(line, d.anchor.Col, cols)
	// A cursor above the expected row means the screen scrolled.
	if cur := d.cursor.Cursor(); cur.Row < d.anchor.Row+lastRow {
		d.anchor.Row = cur.Row - lastRow
	}
	moveTo := func(p console.CursorPosition) error {
		return d.check(d.console.MoveCursor(d.anchor.Row+p.Row, p.Col))
	}

	first := len(line) - n
	for i := first; i < len(line); i++ {
		if err := moveTo(cells[i]); err != nil {
			return err
		}
		if err := d.print(strings.Repeat(" ", runewidth.RuneWidth(line[i]))); err != nil {
			return err
		}
	}
	return moveTo(cells[first])
}

// layoutLine returns the row offset and column at which each rune of line
// lands when printed from column start, and the row offset of the last
// one. Runes wrap the way Print wraps them.
func layoutLine(line []rune, start, cols int) (cells []console.CursorPosition, lastRow int) {
	row, col, full := 0, start, false
	cells = make([]console.CursorPosition, len(line))
	for i, r := range line {
		w := runewidth.RuneWidth(r)
		if w > 0 && (full || col+w > cols) {
			row, col, full = row+1, 0, false
		}
		cells[i] = console.CursorPosition{Row: row, Col: col}
		col += w
		if col >= cols {
			col, full = cols-1, true
		}
	}
	return cells, row
}

// erase returns the sequence removing width columns left of the cursor on
// the current row.
func erase(width int) string {
	if width <= 0 {
		return ""
	}
	back := strings.Repeat("\b", width)
	return back + strings.Repeat(" ", width) + back
}
