package repl

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/termrepl/internal/console"
	"github.com/dshills/termrepl/internal/console/native"
	"github.com/dshills/termrepl/internal/console/web"
)

// calcInterpreter understands "PRINT 1+1" and a few test commands.
type calcInterpreter struct {
	lines []string
}

func (c *calcInterpreter) Exec(ctx context.Context, line string, out Output) error {
	c.lines = append(c.lines, line)
	switch line {
	case "PRINT 1+1":
		out.Print("2\n")
	case "BOOM":
		return errors.New("boom")
	case "BYE":
		out.Print("bye\n")
		return &ExitError{Code: 3}
	case "COLOR":
		out.SetColor(console.ColorRed, console.ColorDefault)
		out.SetColor(console.Color(99), console.ColorDefault)
		out.Print("ok\n")
	default:
		out.Print(line + "\n")
	}
	return nil
}

func runDriver(t *testing.T, c console.Console, interp Interpreter, opts ...Option) (*Driver, error) {
	t.Helper()
	d := New(c, interp, opts...)
	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()

	select {
	case err := <-errc:
		return d, err
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
		return nil, nil
	}
}

func TestDriverPrintScenario(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("PRINT 1+1\n")
	m.Feed(console.CtrlKey('d'))

	interp := &calcInterpreter{}
	d, err := runDriver(t, m, interp)
	if err != nil {
		t.Fatalf("Run = %v", err)
	}

	if got := m.Buffer().String(); got != "> PRINT 1+1\n2\n>" {
		t.Errorf("screen = %q", got)
	}
	if h := d.Session().History; len(h) != 1 || h[0] != "PRINT 1+1" {
		t.Errorf("history = %q", h)
	}
	if d.State() != StateStopped || d.Session().Running {
		t.Errorf("state = %v, running = %v", d.State(), d.Session().Running)
	}
}

func TestDriverStateTransitions(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("x\n")
	m.Feed(console.CtrlKey('d'))

	var states []string
	_, err := runDriver(t, m, &calcInterpreter{}, WithStateObserver(func(from, to State) {
		states = append(states, to.String())
	}))
	if err != nil {
		t.Fatal(err)
	}

	want := "reading-input executing rendering-output idle reading-input stopped"
	if got := strings.Join(states, " "); got != want {
		t.Errorf("states = %q, expected %q", got, want)
	}
}

// countingConsole counts console calls made after the first
// ErrDisconnected.
type countingConsole struct {
	console.Console
	mu           sync.Mutex
	disconnected bool
	after        int
}

func (c *countingConsole) note(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected {
		c.after++
	}
	if errors.Is(err, console.ErrDisconnected) {
		c.disconnected = true
	}
	return err
}

func (c *countingConsole) Print(text string) error { return c.note(c.Console.Print(text)) }
func (c *countingConsole) Clear() error            { return c.note(c.Console.Clear()) }
func (c *countingConsole) MoveCursor(r, col int) error {
	return c.note(c.Console.MoveCursor(r, col))
}
func (c *countingConsole) SetColor(fg, bg console.Color) error {
	return c.note(c.Console.SetColor(fg, bg))
}
func (c *countingConsole) ReadKey(ctx context.Context) (console.KeyEvent, error) {
	ev, err := c.Console.ReadKey(ctx)
	return ev, c.note(err)
}

// closingWidget is a minimal web.Widget for driving the web adapter.
type closingWidget struct {
	closed chan struct{}
	once   sync.Once
	listen chan struct{}
}

func newClosingWidget() *closingWidget {
	return &closingWidget{closed: make(chan struct{}), listen: make(chan struct{}, 1)}
}

func (w *closingWidget) Write(string)                 {}
func (w *closingWidget) Commit(context.Context) error { return nil }
func (w *closingWidget) Size() (int, int)             { return 24, 80 }
func (w *closingWidget) OnResize(func(int, int))      {}
func (w *closingWidget) Closed() <-chan struct{}      { return w.closed }

func (w *closingWidget) Close() error {
	w.once.Do(func() { close(w.closed) })
	return nil
}

func (w *closingWidget) NextInput(func(string)) (cancel func() bool) {
	select {
	case w.listen <- struct{}{}:
	default:
	}
	return func() bool { return true }
}

func TestDriverWebTeardownStops(t *testing.T) {
	w := newClosingWidget()
	c := &countingConsole{Console: web.NewAdapter(w)}

	var last State
	d := New(c, &calcInterpreter{}, WithStateObserver(func(_, to State) { last = to }))
	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background()) }()

	select {
	case <-w.listen:
	case <-time.After(time.Second):
		t.Fatal("driver never waited for input")
	}
	w.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, console.ErrDisconnected) {
			t.Errorf("Run = %v, expected ErrDisconnected", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop after teardown")
	}

	if last != StateStopped {
		t.Errorf("final state = %v", last)
	}
	if c.after != 0 {
		t.Errorf("%d console calls after disconnect", c.after)
	}
}

func TestDriverMemoryCloseStops(t *testing.T) {
	m := console.NewMemory(24, 80)
	c := &countingConsole{Console: m}

	errc := make(chan error, 1)
	go func() { errc <- RunLoop(context.Background(), c, &calcInterpreter{}) }()

	time.Sleep(20 * time.Millisecond)
	m.Close()

	select {
	case err := <-errc:
		if !errors.Is(err, console.ErrDisconnected) {
			t.Errorf("RunLoop = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}
	if c.after != 0 {
		t.Errorf("%d console calls after disconnect", c.after)
	}
}

func TestDriverUnsupportedColorContinues(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("COLOR\nPRINT 1+1\n")
	m.Feed(console.CtrlKey('d'))

	d, err := runDriver(t, m, &calcInterpreter{})
	if err != nil {
		t.Fatalf("Run = %v", err)
	}

	if got := m.Buffer().Line(1); got != "ok" {
		t.Errorf("line 1 = %q", got)
	}
	if c := m.Buffer().Cell(1, 0); c.Fg != console.ColorRed {
		t.Errorf("ok printed with fg %d, expected previous red", c.Fg)
	}
	if len(d.Session().History) != 2 {
		t.Errorf("history = %q", d.Session().History)
	}
}

func TestDriverLineEditing(t *testing.T) {
	tests := []struct {
		name   string
		keys   []console.KeyEvent
		want   []string
		screen string
	}{
		{
			name: "backspace",
			keys: []console.KeyEvent{
				console.RuneKey('A'), console.RuneKey('B'), console.SpecialKey(console.KeyBackspace),
				console.RuneKey('C'), console.SpecialKey(console.KeyEnter),
			},
			want:   []string{"AC"},
			screen: "> AC\nAC\n>",
		},
		{
			name: "backspace on empty line",
			keys: []console.KeyEvent{
				console.SpecialKey(console.KeyBackspace), console.RuneKey('x'), console.SpecialKey(console.KeyEnter),
			},
			want:   []string{"x"},
			screen: "> x\nx\n>",
		},
		{
			name: "ctrl-c abandons line",
			keys: []console.KeyEvent{
				console.RuneKey('a'), console.RuneKey('b'), console.CtrlKey('c'),
				console.RuneKey('x'), console.SpecialKey(console.KeyEnter),
			},
			want:   []string{"x"},
			screen: "> ab^C\n> x\nx\n>",
		},
		{
			name: "ctrl-d ignored with input",
			keys: []console.KeyEvent{
				console.RuneKey('a'), console.CtrlKey('d'), console.SpecialKey(console.KeyEnter),
			},
			want:   []string{"a"},
			screen: "> a\na\n>",
		},
		{
			name: "empty lines skip execution",
			keys: []console.KeyEvent{
				console.SpecialKey(console.KeyEnter), console.RuneKey(' '), console.SpecialKey(console.KeyEnter),
			},
			want:   nil,
			screen: ">\n>\n>",
		},
		{
			name: "ignored keys",
			keys: []console.KeyEvent{
				console.SpecialKey(console.KeyF5), console.KeyEvent{Key: console.KeyRune, Rune: 'q', Mod: console.ModAlt},
				console.RuneKey('z'), console.SpecialKey(console.KeyEnter),
			},
			want:   []string{"z"},
			screen: "> z\nz\n>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := console.NewMemory(24, 80)
			m.Feed(tt.keys...)
			m.Feed(console.CtrlKey('d'))

			interp := &calcInterpreter{}
			if _, err := runDriver(t, m, interp); err != nil {
				t.Fatalf("Run = %v", err)
			}
			if strings.Join(interp.lines, "|") != strings.Join(tt.want, "|") {
				t.Errorf("executed %q, expected %q", interp.lines, tt.want)
			}
			if got := m.Buffer().String(); got != tt.screen {
				t.Errorf("screen = %q, expected %q", got, tt.screen)
			}
		})
	}
}

func TestDriverEraseAcrossWrap(t *testing.T) {
	tests := []struct {
		name   string
		rows   int
		keys   []console.KeyEvent
		want   []string
		screen string
	}{
		{
			name: "backspace onto previous row",
			rows: 5,
			keys: append(runeKeys("abcdefghi"),
				console.SpecialKey(console.KeyBackspace),
				console.SpecialKey(console.KeyBackspace),
				console.SpecialKey(console.KeyEnter),
			),
			want:   []string{"abcdefg"},
			screen: "> abcdefg\nabcdefg\n>",
		},
		{
			name: "history replaces wrapped line",
			rows: 8,
			keys: append(append(runeKeys("abcdefghij\n"), runeKeys("xxxxxxxxx")...),
				console.SpecialKey(console.KeyUp),
				console.SpecialKey(console.KeyEnter),
			),
			want:   []string{"abcdefghij", "abcdefghij"},
			screen: "> abcdefgh\nij\nabcdefghij\n> abcdefgh\nij\nabcdefghij\n>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := console.NewMemory(tt.rows, 10)
			m.Feed(tt.keys...)
			m.Feed(console.CtrlKey('d'))

			interp := &calcInterpreter{}
			if _, err := runDriver(t, m, interp); err != nil {
				t.Fatalf("Run = %v", err)
			}
			if strings.Join(interp.lines, "|") != strings.Join(tt.want, "|") {
				t.Errorf("executed %q, expected %q", interp.lines, tt.want)
			}
			if got := m.Buffer().String(); got != tt.screen {
				t.Errorf("screen = %q, expected %q", got, tt.screen)
			}
		})
	}
}

func runeKeys(s string) []console.KeyEvent {
	keys := make([]console.KeyEvent, 0, len(s))
	for _, r := range s {
		if r == '\n' {
			keys = append(keys, console.SpecialKey(console.KeyEnter))
			continue
		}
		keys = append(keys, console.RuneKey(r))
	}
	return keys
}

func TestDriverStreamFinalLineWithoutNewline(t *testing.T) {
	var out strings.Builder
	s := native.NewStream(strings.NewReader("PRINT 1+1"), &out, native.WithSize(24, 80))

	interp := &calcInterpreter{}
	if _, err := runDriver(t, s, interp); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if got := strings.Join(interp.lines, "|"); got != "PRINT 1+1" {
		t.Errorf("executed %q", got)
	}
	if !strings.Contains(out.String(), "2\n") {
		t.Errorf("output %q lacks the result", out.String())
	}
}

func TestDriverCtrlLClears(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("PRINT 1+1\nab")
	m.Feed(console.CtrlKey('l'), console.SpecialKey(console.KeyEnter), console.CtrlKey('d'))

	interp := &calcInterpreter{}
	if _, err := runDriver(t, m, interp); err != nil {
		t.Fatal(err)
	}
	if got := m.Buffer().String(); got != "> ab\nab\n>" {
		t.Errorf("screen = %q", got)
	}
	if got := strings.Join(interp.lines, ","); got != "PRINT 1+1,ab" {
		t.Errorf("executed %q", got)
	}
}

func TestDriverHistoryRecall(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("one\ntwo\n")
	m.Feed(
		console.SpecialKey(console.KeyUp),
		console.SpecialKey(console.KeyUp),
		console.SpecialKey(console.KeyEnter),
		console.SpecialKey(console.KeyUp),
		console.SpecialKey(console.KeyDown),
		console.RuneKey('x'),
		console.SpecialKey(console.KeyEnter),
		console.CtrlKey('d'),
	)

	interp := &calcInterpreter{}
	d, err := runDriver(t, m, interp)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(interp.lines, ","); got != "one,two,one,x" {
		t.Errorf("executed %q", got)
	}
	if got := strings.Join(d.Session().History, ","); got != "one,two,one,x" {
		t.Errorf("history %q", got)
	}
}

func TestDriverInterpreterError(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("BOOM\nPRINT 1+1\n")
	m.Feed(console.CtrlKey('d'))

	if _, err := runDriver(t, m, &calcInterpreter{}); err != nil {
		t.Fatal(err)
	}
	if got := m.Buffer().Line(1); got != "ERROR: boom" {
		t.Errorf("line 1 = %q", got)
	}
	if got := m.Buffer().Line(3); got != "2" {
		t.Errorf("loop did not continue: %q", m.Buffer().String())
	}
}

func TestDriverExitError(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("BYE\nPRINT 1+1\n")

	interp := &calcInterpreter{}
	d, err := runDriver(t, m, interp)

	var exit *ExitError
	if !errors.As(err, &exit) || exit.Code != 3 {
		t.Fatalf("Run = %v, expected exit 3", err)
	}
	if got := m.Buffer().Line(1); got != "bye" {
		t.Errorf("output before exit = %q", got)
	}
	if len(interp.lines) != 1 || d.State() != StateStopped {
		t.Errorf("ran %q, state %v", interp.lines, d.State())
	}
}

// failingConsole fails every print with an I/O error.
type failingConsole struct {
	*console.Memory
	flushed bool
}

func (f *failingConsole) Print(string) error {
	return console.IoFailure("print", errors.New("broken pipe"))
}

func (f *failingConsole) Flush() error {
	f.flushed = true
	return nil
}

func TestDriverIoFailureStops(t *testing.T) {
	f := &failingConsole{Memory: console.NewMemory(24, 80)}

	_, err := runDriver(t, f, &calcInterpreter{})
	if !errors.Is(err, console.ErrIoFailure) {
		t.Fatalf("Run = %v, expected ErrIoFailure", err)
	}
	if !f.flushed {
		t.Error("console not flushed after failure")
	}
}

func TestDriverContextCancel(t *testing.T) {
	m := console.NewMemory(24, 80)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- RunLoop(ctx, m, &calcInterpreter{}) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, console.ErrDisconnected) {
			t.Errorf("RunLoop = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver ignored cancellation")
	}
}

func TestDriverBannerAndPrompt(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("x\n")
	m.Feed(console.CtrlKey('d'))

	n := 0
	_, err := runDriver(t, m, &calcInterpreter{},
		WithBanner("Welcome\n"),
		WithPromptFunc(func() string {
			n++
			if n == 1 {
				return "Ready\n"
			}
			return "Again\n"
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Buffer().String(); got != "Welcome\nReady\nx\nx\nAgain" {
		t.Errorf("screen = %q", got)
	}
}

func TestDriverRunTwice(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.Feed(console.CtrlKey('d'))

	d, err := runDriver(t, m, &calcInterpreter{})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("second Run = %v", err)
	}
}

func TestDriverHistoryLimit(t *testing.T) {
	m := console.NewMemory(24, 80)
	m.FeedString("a\nb\nc\n")
	m.Feed(console.CtrlKey('d'))

	d, err := runDriver(t, m, &calcInterpreter{}, WithHistoryLimit(2))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(d.Session().History, ","); got != "b,c" {
		t.Errorf("history = %q", got)
	}
}
