package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TERMREPL_REPL_BANNER", "false")
	var out, errOut bytes.Buffer
	code = execute(args, strings.NewReader(stdin), &out, &errOut)
	return code, out.String(), errOut.String()
}

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.bas")
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHelp(t *testing.T) {
	code, out, _ := run(t, "", "--help")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, phrase := range []string{
		"termrepl",
		"--config",
		"--programs-dir",
		"--programs-db",
		"--log-level",
		"--log-file",
		"--version",
		"serve",
	} {
		if !strings.Contains(out, phrase) {
			t.Errorf("help output should contain %q", phrase)
		}
	}
}

func TestServeHelp(t *testing.T) {
	code, out, _ := run(t, "", "serve", "--help")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, phrase := range []string{"--listen", "/buildinfo", "/ws"} {
		if !strings.Contains(out, phrase) {
			t.Errorf("serve help should contain %q", phrase)
		}
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := run(t, "", "--version")
	if code != 0 || !strings.HasPrefix(out, "termrepl dev") {
		t.Errorf("code = %d, output = %q", code, out)
	}
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"too many args", []string{"a.bas", "b.bas"}},
		{"serve args", []string{"serve", "extra"}},
		{"exclusive storage", []string{"--programs-dir", dir, "--programs-db", filepath.Join(dir, "p.db")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := run(t, "", tt.args...)
			if code != 2 {
				t.Errorf("exit code = %d, expected 2", code)
			}
			if !strings.HasPrefix(errOut, "Usage error: ") {
				t.Errorf("stderr = %q", errOut)
			}
		})
	}
}

func TestRunProgramFile(t *testing.T) {
	path := writeProgram(t, "10 PRINT \"hello\"\n20 PRINT 1+2\n")
	code, out, errOut := run(t, "", path)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %q", code, errOut)
	}
	if out != "hello\n3\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRunProgramExitCode(t *testing.T) {
	path := writeProgram(t, "PRINT \"bye\"\nEXIT 42\n")
	code, out, errOut := run(t, "", path)
	if code != 42 {
		t.Errorf("exit code = %d", code)
	}
	if out != "bye\n" || errOut != "" {
		t.Errorf("stdout = %q, stderr = %q", out, errOut)
	}
}

func TestRunProgramFailure(t *testing.T) {
	path := writeProgram(t, "10 GOTO 500\n")
	code, _, errOut := run(t, "", path)
	if code != 1 {
		t.Errorf("exit code = %d", code)
	}
	if !strings.HasPrefix(errOut, "Error: run "+path) {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestInteractiveSession(t *testing.T) {
	code, out, _ := run(t, "PRINT 2^10\n", "--log-level", "error")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(out, "1024\n") {
		t.Errorf("output = %q", out)
	}
}

func TestBadConfigFails(t *testing.T) {
	code, _, errOut := run(t, "", "--config", filepath.Join(t.TempDir(), "missing.toml"))
	if code != 1 {
		t.Errorf("exit code = %d", code)
	}
	if !strings.Contains(errOut, "config file not found") {
		t.Errorf("stderr = %q", errOut)
	}
}
