package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/websocket"

	"github.com/dshills/termrepl/internal/config"
	"github.com/dshills/termrepl/internal/console"
	"github.com/dshills/termrepl/internal/console/web"
	"github.com/dshills/termrepl/internal/repl"
	"github.com/dshills/termrepl/internal/storage"
)

// newTestApp creates an application on in-memory streams with no
// per-user config file and the banner off.
func newTestApp(t *testing.T, input string, opts Options) (*Application, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader(input)
	}
	opts.Stdout = &out
	opts.Stderr = &errOut
	if opts.Environ == nil {
		opts.Environ = []string{"TERMREPL_REPL_BANNER=false"}
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = writeConfig(t, "empty.toml", "")
	}
	app, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { app.Shutdown() })
	return app, &out
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, 0},
		{"exit", &repl.ExitError{Code: 4}, 4},
		{"wrapped exit", fmt.Errorf("run: %w", &repl.ExitError{Code: 7}), 7},
		{"disconnected", console.Disconnected("read_key", nil), 1},
		{"interrupted", console.Disconnected("read_key", context.Canceled), ExitInterrupted},
		{"deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), ExitInterrupted},
		{"io failure", console.IoFailure("print", errors.New("broken pipe")), 1},
		{"other", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, expected %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	path := writeConfig(t, "c.toml", `
[repl]
prompt = "file> "
history_limit = 5

[log]
level = "warn"
`)
	app, _ := newTestApp(t, "", Options{
		ConfigPath: path,
		Environ:    []string{"TERMREPL_REPL_PROMPT=env> ", "TERMREPL_LOG_LEVEL=debug"},
		LogLevel:   "error",
	})

	c := app.Config()
	if c.REPL.Prompt != "env> " {
		t.Errorf("prompt = %q, expected env value", c.REPL.Prompt)
	}
	if c.REPL.HistoryLimit != 5 {
		t.Errorf("history limit = %d, expected file value", c.REPL.HistoryLimit)
	}
	if c.Log.Level != "error" {
		t.Errorf("log level = %q, expected flag value", c.Log.Level)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"parse error", Options{ConfigPath: writeConfig(t, "bad.toml", "[repl\n")}},
		{"missing explicit file", Options{ConfigPath: filepath.Join(t.TempDir(), "none.toml")}},
		{"bad level", Options{LogLevel: "shout"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.Stderr = &bytes.Buffer{}
			tt.opts.Environ = []string{}
			if tt.opts.ConfigPath == "" {
				tt.opts.ConfigPath = writeConfig(t, "c.toml", "")
			}
			_, err := New(tt.opts)
			var ierr *InitError
			if !errors.As(err, &ierr) || ierr.Component != "config" {
				t.Errorf("New = %v", err)
			}
		})
	}
}

func TestStorageSelection(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"memory", Options{}, "*storage.MemoryDrive"},
		{"directory", Options{ProgramsDir: filepath.Join(dir, "progs")}, "*storage.DirectoryDrive"},
		{"sqlite", Options{ProgramsDB: filepath.Join(dir, "db", "programs.db")}, "*storage.SQLiteDrive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := newTestApp(t, "", tt.opts)
			if got := fmt.Sprintf("%T", app.Drive()); got != tt.want {
				t.Errorf("drive = %s, expected %s", got, tt.want)
			}
		})
	}
}

func TestStorageFlagReplacesConfiguredDrive(t *testing.T) {
	path := writeConfig(t, "c.toml", "[storage]\ndatabase = \":memory:\"\n")
	app, _ := newTestApp(t, "", Options{ConfigPath: path, ProgramsDir: t.TempDir()})
	if _, ok := app.Drive().(*storage.DirectoryDrive); !ok {
		t.Errorf("drive = %T", app.Drive())
	}
}

func TestRunREPLOnStreams(t *testing.T) {
	app, out := newTestApp(t, "PRINT 6*7\nX = 2\nPRINT X + 1\n", Options{})
	if err := app.RunREPL(context.Background()); err != nil {
		t.Fatalf("RunREPL = %v", err)
	}
	got := out.String()
	for _, want := range []string{"> PRINT 6*7\n42\n", "3\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q missing %q", got, want)
		}
	}
}

func TestRunREPLBanner(t *testing.T) {
	app, out := newTestApp(t, "", Options{Environ: []string{}, Version: "1.2.3"})
	if err := app.RunREPL(context.Background()); err != nil {
		t.Fatalf("RunREPL = %v", err)
	}
	if !strings.HasPrefix(out.String(), "termrepl 1.2.3\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunREPLExit(t *testing.T) {
	app, _ := newTestApp(t, "EXIT 3\nPRINT 1\n", Options{})
	err := app.RunREPL(context.Background())
	if code := ExitCode(err); code != 3 {
		t.Errorf("RunREPL = %v, exit code %d", err, code)
	}
}

func TestRunREPLFinalLineWithoutNewline(t *testing.T) {
	app, out := newTestApp(t, "PRINT 6*7", Options{})
	if err := app.RunREPL(context.Background()); err != nil {
		t.Fatalf("RunREPL = %v", err)
	}
	if !strings.Contains(out.String(), "42\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunREPLInterrupted(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { pw.Close() })
	app, _ := newTestApp(t, "", Options{Stdin: pr})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- app.RunREPL(ctx) }()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if !errors.Is(err, console.ErrDisconnected) {
			t.Errorf("RunREPL = %v, expected ErrDisconnected", err)
		}
		if code := ExitCode(err); code != ExitInterrupted {
			t.Errorf("exit code = %d, expected %d", code, ExitInterrupted)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunREPL ignored cancellation")
	}
}

func TestSaveThroughDirectoryDrive(t *testing.T) {
	dir := t.TempDir()
	app, _ := newTestApp(t, "10 PRINT \"hi\"\nSAVE \"greet\"\n", Options{ProgramsDir: dir})
	if err := app.RunREPL(context.Background()); err != nil {
		t.Fatalf("RunREPL = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "greet"+storage.Extension))
	if err != nil {
		t.Fatalf("saved program: %v", err)
	}
	if string(data) != "10 PRINT \"hi\"\n" {
		t.Errorf("saved = %q", data)
	}
}

func TestRunFile(t *testing.T) {
	prog := writeConfig(t, "count.bas", "FOR I = 1 TO 3\nPRINT I;\nNEXT\nPRINT\n")
	app, out := newTestApp(t, "", Options{})
	if err := app.RunFile(context.Background(), prog); err != nil {
		t.Fatalf("RunFile = %v", err)
	}
	if out.String() != "123\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunFileErrors(t *testing.T) {
	app, _ := newTestApp(t, "", Options{})

	err := app.RunFile(context.Background(), filepath.Join(t.TempDir(), "none.bas"))
	var ferr *FileError
	if !errors.As(err, &ferr) || ferr.Op != "read" {
		t.Errorf("missing file = %v", err)
	}

	bad := writeConfig(t, "bad.bas", "10 PRINT 1\n20 GOTO 99\n")
	err = app.RunFile(context.Background(), bad)
	if !errors.As(err, &ferr) || ferr.Op != "run" {
		t.Errorf("bad program = %v", err)
	}
	if ExitCode(err) != 1 {
		t.Errorf("exit code = %d", ExitCode(err))
	}

	exit := writeConfig(t, "exit.bas", "PRINT 1\nEXIT 5\n")
	if code := ExitCode(app.RunFile(context.Background(), exit)); code != 5 {
		t.Errorf("EXIT 5 exit code = %d", code)
	}
}

func TestLogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "termrepl.log")
	app, _ := newTestApp(t, "", Options{LogFile: logPath, LogLevel: "debug"})
	app.Logger().Info("hello from test")
	if err := app.Shutdown(); err != nil {
		t.Fatalf("Shutdown = %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log = %q", data)
	}
	if err := app.Shutdown(); !errors.Is(err, ErrAlreadyShutdown) {
		t.Errorf("second Shutdown = %v", err)
	}
}

func TestConfigReloadUpdatesPrompt(t *testing.T) {
	path := writeConfig(t, "c.toml", "[repl]\nprompt = \"a> \"\n")
	app, _ := newTestApp(t, "", Options{ConfigPath: path})
	if app.Store().Prompt() != "a> " {
		t.Fatalf("prompt = %q", app.Store().Prompt())
	}

	if err := os.WriteFile(path, []byte("[repl]\nprompt = \"b> \"\n[log]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for app.Store().Prompt() != "b> " {
		if time.Now().After(deadline) {
			t.Fatal("config not reloaded")
		}
		time.Sleep(20 * time.Millisecond)
	}
	if app.Logger().Level().String() != "DEBUG" {
		t.Errorf("log level = %v", app.Logger().Level())
	}
	// Environment overrides survive a reload.
	if app.Config().REPL.Banner {
		t.Error("banner re-enabled by reload")
	}
}

func TestWebSession(t *testing.T) {
	app, _ := newTestApp(t, "", Options{})
	s := app.WebServer()
	srv := httptest.NewServer(s)
	defer srv.Close()
	defer s.Shutdown()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := websocket.JSON.Send(conn, web.Frame{Type: web.FrameData, Data: "PRINT 2+3\r"}); err != nil {
		t.Fatal(err)
	}

	conn.SetDeadline(time.Now().Add(5 * time.Second))
	var got strings.Builder
	for !strings.Contains(got.String(), "5\r\n") {
		var f web.Frame
		if err := websocket.JSON.Receive(conn, &f); err != nil {
			t.Fatalf("receive after %q: %v", got.String(), err)
		}
		if f.Type == web.FrameOutput {
			got.WriteString(f.Data)
		}
	}
	if !strings.HasPrefix(got.String(), "> ") {
		t.Errorf("output = %q", got.String())
	}
}

func TestDefaultConfigPathIgnoredWhenMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	app, err := New(Options{Stderr: &bytes.Buffer{}, Environ: []string{}})
	if err != nil {
		t.Fatalf("New = %v", err)
	}
	defer app.Shutdown()
	if app.Config().REPL.Prompt != config.Default().REPL.Prompt {
		t.Errorf("prompt = %q", app.Config().REPL.Prompt)
	}
}
