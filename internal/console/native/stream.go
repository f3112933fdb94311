package native

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/dshills/termrepl/internal/console"
)

// Default stream dimensions when neither the environment nor the
// terminal report a size.
const (
	DefaultRows = 24
	DefaultCols = 80
)

// streamPalette is the palette size accepted by stream consoles.
const streamPalette = 256

// Stream implements console.Console over a plain reader and writer, for
// when stdin is not a terminal. Reads block a dedicated goroutine; writes
// go straight to the writer. Cursor and color sequences are written only
// when ANSI output is enabled.
type Stream struct {
	in   *bufio.Reader
	out  io.Writer
	ansi bool
	buf  *console.Buffer
	seq  console.Sequencer

	startOnce sync.Once
	runes     chan readResult
	pending   *readResult
	lastCR    bool
	lineOpen  bool
	eofSent   bool
}

type readResult struct {
	r   rune
	err error
}

// StreamOption configures a Stream.
type StreamOption func(*streamConfig)

type streamConfig struct {
	ansi       bool
	rows, cols int
}

// WithANSI enables cursor and color escape sequences on the output.
func WithANSI(enabled bool) StreamOption {
	return func(c *streamConfig) {
		c.ansi = enabled
	}
}

// WithSize fixes the stream dimensions.
func WithSize(rows, cols int) StreamOption {
	return func(c *streamConfig) {
		c.rows, c.cols = rows, cols
	}
}

// NewStream creates a stream console.
func NewStream(in io.Reader, out io.Writer, opts ...StreamOption) *Stream {
	cfg := streamConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.rows <= 0 || cfg.cols <= 0 {
		cfg.rows, cfg.cols = detectSize(out)
	}

	return &Stream{
		in:    bufio.NewReader(in),
		out:   out,
		ansi:  cfg.ansi,
		buf:   console.NewBuffer(cfg.rows, cfg.cols, streamPalette),
		runes: make(chan readResult, 64),
	}
}

// NewStdio creates a stream console on the process's stdin and stdout,
// enabling ANSI output when stdout is a terminal.
func NewStdio() *Stream {
	return NewStream(os.Stdin, os.Stdout, WithANSI(IsTerminal(os.Stdout)))
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// detectSize reads LINES and COLUMNS, then the terminal size, then falls
// back to the defaults.
func detectSize(out io.Writer) (rows, cols int) {
	rows, cols = envInt("LINES"), envInt("COLUMNS")
	if rows > 0 && cols > 0 {
		return rows, cols
	}
	if f, ok := out.(*os.File); ok && IsTerminal(f) {
		if w, h, err := term.GetSize(int(f.Fd())); err == nil && w > 0 && h > 0 {
			return h, w
		}
	}
	return DefaultRows, DefaultCols
}

func envInt(name string) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil {
		return 0
	}
	return n
}

// Buffer returns the in-memory mirror of everything written.
func (s *Stream) Buffer() *console.Buffer {
	return s.buf
}

func (s *Stream) write(op, data string) error {
	if data == "" {
		return nil
	}
	if _, err := io.WriteString(s.out, data); err != nil {
		return console.IoFailure(op, err)
	}
	return nil
}

func (s *Stream) Print(text string) error {
	s.buf.Print(text)
	return s.write("print", text)
}

func (s *Stream) Clear() error {
	s.buf.Clear()
	if !s.ansi {
		return nil
	}
	return s.write("clear", console.ANSIClear)
}

func (s *Stream) MoveCursor(row, col int) error {
	s.buf.MoveCursor(row, col)
	if !s.ansi {
		return nil
	}
	return s.write("move_cursor", console.ANSICursorTo(s.buf.Cursor()))
}

func (s *Stream) SetColor(fg, bg console.Color) error {
	if err := s.buf.SetColor(fg, bg); err != nil {
		return err
	}
	if !s.ansi {
		return nil
	}
	return s.write("set_color", console.ANSIColor(fg, bg))
}

// ReadKey blocks until the next decodable rune. End of input is reported
// once as Ctrl+D and afterwards as console.ErrDisconnected. A final line
// with no newline is completed with Enter before the Ctrl+D.
func (s *Stream) ReadKey(ctx context.Context) (console.KeyEvent, error) {
	s.startOnce.Do(func() { go s.pump() })

	for {
		res, err := s.next(ctx)
		if err != nil {
			return console.KeyEvent{}, err
		}

		if res.err != nil {
			if errors.Is(res.err, io.EOF) {
				if s.eofSent {
					return console.KeyEvent{}, console.Disconnected("read_key", io.EOF)
				}
				if s.lineOpen {
					// Input ended mid-line; submit it before end of input.
					s.lineOpen = false
					return s.seq.Stamp(console.SpecialKey(console.KeyEnter)), nil
				}
				s.eofSent = true
				return s.seq.Stamp(console.CtrlKey('d')), nil
			}
			return console.KeyEvent{}, console.IoFailure("read_key", res.err)
		}

		// Treat CRLF as a single Enter.
		wasCR := s.lastCR
		s.lastCR = res.r == '\r'
		if wasCR && res.r == '\n' {
			continue
		}

		if key, ok := DecodeByte(res.r); ok {
			switch {
			case key.IsChar():
				s.lineOpen = true
			case key.Key == console.KeyEnter, key.IsCtrl('c'):
				s.lineOpen = false
			}
			return s.seq.Stamp(key), nil
		}
	}
}

// next returns the next read result, keeping the terminal one so repeated
// reads after an error see it again.
func (s *Stream) next(ctx context.Context) (readResult, error) {
	if s.pending != nil {
		return *s.pending, nil
	}
	select {
	case res := <-s.runes:
		if res.err != nil {
			s.pending = &res
		}
		return res, nil
	case <-ctx.Done():
		return readResult{}, console.Disconnected("read_key", ctx.Err())
	}
}

// pump reads runes until the first error.
func (s *Stream) pump() {
	for {
		r, _, err := s.in.ReadRune()
		if err != nil {
			s.runes <- readResult{err: err}
			return
		}
		s.runes <- readResult{r: r}
	}
}

func (s *Stream) Size() (rows, cols int) {
	return s.buf.Size()
}
