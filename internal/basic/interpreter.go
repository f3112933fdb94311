// Package basic is a small BASIC interpreter for the REPL.
//
// Statements are parsed here; expressions are rewritten to Lua and
// evaluated in a sandboxed gopher-lua state with only the base, table,
// string and math libraries. Numbered lines form a program that RUN
// executes and SAVE and LOAD move to and from a storage drive.
package basic

import (
	"context"
	"strings"
	"sync"

	"github.com/dshills/termrepl/internal/logging"
	"github.com/dshills/termrepl/internal/repl"
	"github.com/dshills/termrepl/internal/storage"
)

// DefaultStepLimit bounds the statements one Exec may run.
const DefaultStepLimit = 1_000_000

// Interpreter implements repl.Interpreter. It is safe for concurrent use
// but executes one line at a time.
type Interpreter struct {
	mu       sync.Mutex
	eng      *engine
	program  *Program
	drive    storage.Drive
	logger   *logging.Logger
	maxSteps int
	closed   bool
}

var _ repl.Interpreter = (*Interpreter)(nil)

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithDrive sets the drive used by SAVE, LOAD, DIR and DEL.
func WithDrive(d storage.Drive) Option {
	return func(in *Interpreter) {
		in.drive = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithStepLimit bounds the statements one Exec may run. Zero disables
// the limit.
func WithStepLimit(n int) Option {
	return func(in *Interpreter) {
		in.maxSteps = n
	}
}

// New creates an interpreter with an empty program.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		eng:      newEngine(),
		program:  NewProgram(),
		logger:   logging.Nop(),
		maxSteps: DefaultStepLimit,
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = in.logger.WithComponent("basic")
	return in
}

// Exec runs one line of input. A line starting with a number edits the
// stored program; anything else runs immediately.
func (in *Interpreter) Exec(ctx context.Context, line string, out repl.Output) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return ErrClosed
	}
	text := strings.TrimSpace(line)
	if text == "" {
		return nil
	}

	num, rest, ok, err := splitLineNumber(text)
	if err != nil {
		return err
	}
	if ok {
		if rest == "" {
			in.program.Delete(num)
		} else {
			in.program.Set(num, rest)
		}
		return nil
	}

	m := &machine{
		in:    in,
		out:   out,
		lines: []compiledLine{{number: -1, stmts: splitStatements(text)}},
	}
	return in.run(ctx, m)
}

// RunProgram replaces the stored program with src and runs it.
func (in *Interpreter) RunProgram(ctx context.Context, src string, out repl.Output) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return ErrClosed
	}
	p, err := ParseProgram(src)
	if err != nil {
		return err
	}
	in.program = p
	in.resetEngine(ctx, out)

	m := &machine{in: in, out: out}
	m.enterProgram()
	return in.run(ctx, m)
}

func (in *Interpreter) run(ctx context.Context, m *machine) error {
	in.bind(ctx, m.out)
	defer in.unbind()

	err := m.run(ctx)
	if err != nil {
		in.logger.Debug("run failed after %d steps: %v", m.steps, err)
	}
	return err
}

func (in *Interpreter) bind(ctx context.Context, out repl.Output) {
	in.eng.out = out
	in.eng.L.SetContext(ctx)
}

func (in *Interpreter) unbind() {
	in.eng.out = nil
	in.eng.L.RemoveContext()
}

// resetEngine discards all variables.
func (in *Interpreter) resetEngine(ctx context.Context, out repl.Output) {
	in.eng.close()
	in.eng = newEngine()
	in.bind(ctx, out)
}

// Program returns the stored program.
func (in *Interpreter) Program() *Program {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.program
}

// Close releases the Lua state.
func (in *Interpreter) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return nil
	}
	in.closed = true
	in.eng.close()
	return nil
}
