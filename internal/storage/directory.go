package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Extension is appended to entry names on a DirectoryDrive.
const Extension = ".bas"

// DirectoryDrive stores each entry as a file in a directory. The
// directory is created on the first Put.
type DirectoryDrive struct {
	dir string
}

// NewDirectoryDrive creates a drive rooted at dir.
func NewDirectoryDrive(dir string) *DirectoryDrive {
	return &DirectoryDrive{dir: dir}
}

var _ Drive = (*DirectoryDrive)(nil)

// Dir returns the root directory.
func (d *DirectoryDrive) Dir() string {
	return d.dir
}

func (d *DirectoryDrive) path(name string) string {
	return filepath.Join(d.dir, name+Extension)
}

func (d *DirectoryDrive) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.Remove(d.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return notFound("delete", name)
		}
		return &PathError{Op: "delete", Name: name, Err: err}
	}
	return nil
}

func (d *DirectoryDrive) Enumerate(ctx context.Context) (map[string]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]Metadata{}, nil
		}
		return nil, &PathError{Op: "enumerate", Name: d.dir, Err: err}
	}

	out := make(map[string]Metadata, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		name := strings.TrimSuffix(e.Name(), Extension)
		out[name] = Metadata{Date: info.ModTime(), Length: info.Size()}
	}
	return out, nil
}

func (d *DirectoryDrive) Get(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	data, err := os.ReadFile(d.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound("get", name)
		}
		return "", &PathError{Op: "get", Name: name, Err: err}
	}
	return string(data), nil
}

func (d *DirectoryDrive) Put(ctx context.Context, name, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return &PathError{Op: "put", Name: name, Err: err}
	}

	// Write to a temp file and rename so readers never see a partial entry.
	tmp, err := os.CreateTemp(d.dir, "."+name+".*")
	if err != nil {
		return &PathError{Op: "put", Name: name, Err: err}
	}
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return &PathError{Op: "put", Name: name, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return &PathError{Op: "put", Name: name, Err: err}
	}
	if err := os.Rename(tmp.Name(), d.path(name)); err != nil {
		os.Remove(tmp.Name())
		return &PathError{Op: "put", Name: name, Err: err}
	}
	return nil
}
