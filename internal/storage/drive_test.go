package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func drives(t *testing.T) map[string]Drive {
	t.Helper()
	sq, err := OpenSQLiteDrive(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLiteDrive: %v", err)
	}
	t.Cleanup(func() { sq.Close() })

	return map[string]Drive{
		"memory":    NewMemoryDrive(),
		"directory": NewDirectoryDrive(filepath.Join(t.TempDir(), "programs")),
		"sqlite":    sq,
	}
}

func TestDrivePutGet(t *testing.T) {
	ctx := context.Background()
	for name, d := range drives(t) {
		t.Run(name, func(t *testing.T) {
			if err := d.Put(ctx, "hello", "10 PRINT \"hi\"\n"); err != nil {
				t.Fatalf("Put: %v", err)
			}
			got, err := d.Get(ctx, "hello")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got != "10 PRINT \"hi\"\n" {
				t.Errorf("Get = %q", got)
			}

			if err := d.Put(ctx, "hello", "replaced"); err != nil {
				t.Fatalf("Put replace: %v", err)
			}
			if got, _ := d.Get(ctx, "hello"); got != "replaced" {
				t.Errorf("Get after replace = %q", got)
			}
		})
	}
}

func TestDriveNotFound(t *testing.T) {
	ctx := context.Background()
	for name, d := range drives(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := d.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get = %v, expected ErrNotFound", err)
			}
			if err := d.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Delete = %v, expected ErrNotFound", err)
			}
		})
	}
}

func TestDriveEnumerate(t *testing.T) {
	ctx := context.Background()
	for name, d := range drives(t) {
		t.Run(name, func(t *testing.T) {
			empty, err := d.Enumerate(ctx)
			if err != nil {
				t.Fatalf("Enumerate empty: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("Enumerate empty = %v", empty)
			}

			before := time.Now().Add(-time.Minute)
			for _, e := range []struct{ name, content string }{
				{"zeta", "abc"},
				{"alpha", "héllo"},
			} {
				if err := d.Put(ctx, e.name, e.content); err != nil {
					t.Fatalf("Put %s: %v", e.name, err)
				}
			}

			entries, err := d.Enumerate(ctx)
			if err != nil {
				t.Fatalf("Enumerate: %v", err)
			}
			names := Names(entries)
			if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
				t.Fatalf("names = %v", names)
			}
			if entries["alpha"].Length != int64(len("héllo")) {
				t.Errorf("alpha length = %d", entries["alpha"].Length)
			}
			if entries["zeta"].Length != 3 {
				t.Errorf("zeta length = %d", entries["zeta"].Length)
			}
			if entries["zeta"].Date.Before(before) {
				t.Errorf("zeta date = %v", entries["zeta"].Date)
			}
		})
	}
}

func TestDriveDelete(t *testing.T) {
	ctx := context.Background()
	for name, d := range drives(t) {
		t.Run(name, func(t *testing.T) {
			d.Put(ctx, "a", "1")
			d.Put(ctx, "b", "2")
			if err := d.Delete(ctx, "a"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := d.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get deleted = %v", err)
			}
			entries, _ := d.Enumerate(ctx)
			if _, ok := entries["b"]; !ok || len(entries) != 1 {
				t.Errorf("entries = %v", entries)
			}
		})
	}
}

func TestDriveRejectsInvalidNames(t *testing.T) {
	ctx := context.Background()
	for name, d := range drives(t) {
		t.Run(name, func(t *testing.T) {
			for _, bad := range []string{"", "  ", "../x", "a/b", `a\b`, ".."} {
				if err := d.Put(ctx, bad, "x"); !errors.Is(err, ErrInvalidName) {
					t.Errorf("Put(%q) = %v", bad, err)
				}
			}
		})
	}
}

func TestDriveHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, d := range drives(t) {
		t.Run(name, func(t *testing.T) {
			if err := d.Put(ctx, "x", "y"); err == nil {
				t.Error("Put with canceled context succeeded")
			}
		})
	}
}

func TestDirectoryDriveLayout(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "programs")
	d := NewDirectoryDrive(dir)

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("directory exists before first Put: %v", err)
	}
	if err := d.Put(ctx, "game", "10 END"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "game.bas"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "10 END" {
		t.Errorf("file content = %q", data)
	}

	// Files without the extension are not entries.
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	entries, err := d.Enumerate(ctx)
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %v", entries)
	}
}

func TestSQLiteDrivePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "programs.db")

	d, err := OpenSQLiteDrive(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLiteDrive: %v", err)
	}
	if err := d.Put(ctx, "keep", "10 PRINT 1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	d.Close()

	d, err = OpenSQLiteDrive(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	if got, err := d.Get(ctx, "keep"); err != nil || got != "10 PRINT 1" {
		t.Errorf("Get = %q, %v", got, err)
	}
}

func TestPathErrorMessage(t *testing.T) {
	err := notFound("get", "demo")
	if err.Error() != "get demo: entry not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}
