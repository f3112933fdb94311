// Package storage provides drives that hold saved programs.
//
// A Drive is a flat namespace of named programs. Three backends are
// available: MemoryDrive for tests and throwaway sessions, DirectoryDrive
// for a directory of .bas files and SQLiteDrive for a single database file.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the named entry does not exist.
	ErrNotFound = errors.New("entry not found")

	// ErrInvalidName indicates a name that cannot be stored.
	ErrInvalidName = errors.New("invalid entry name")
)

// Metadata describes a stored entry.
type Metadata struct {
	Date   time.Time
	Length int64
}

// Drive stores programs by name.
type Drive interface {
	// Delete removes name.
	Delete(ctx context.Context, name string) error

	// Enumerate returns every entry keyed by name.
	Enumerate(ctx context.Context) (map[string]Metadata, error)

	// Get returns the content of name.
	Get(ctx context.Context, name string) (string, error)

	// Put creates or replaces name.
	Put(ctx context.Context, name, content string) error
}

// PathError records a failed drive operation on a named entry.
type PathError struct {
	Op   string
	Name string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

func notFound(op, name string) error {
	return &PathError{Op: op, Name: name, Err: ErrNotFound}
}

// ValidateName rejects names that are empty or could escape a directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return &PathError{Op: "validate", Name: name, Err: fmt.Errorf("%w: empty", ErrInvalidName)}
	case strings.ContainsAny(name, `/\`+"\x00"):
		return &PathError{Op: "validate", Name: name, Err: fmt.Errorf("%w: contains a path separator", ErrInvalidName)}
	case name == "." || name == "..":
		return &PathError{Op: "validate", Name: name, Err: ErrInvalidName}
	}
	return nil
}

// Names returns the entry names of m in sorted order.
func Names(m map[string]Metadata) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
