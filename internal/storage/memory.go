package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryDrive keeps entries in memory. It is safe for concurrent use.
type MemoryDrive struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	content string
	modTime time.Time
}

// NewMemoryDrive creates an empty drive.
func NewMemoryDrive() *MemoryDrive {
	return &MemoryDrive{
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

var _ Drive = (*MemoryDrive)(nil)

func (d *MemoryDrive) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.entries[name]; !ok {
		return notFound("delete", name)
	}
	delete(d.entries, name)
	return nil
}

func (d *MemoryDrive) Enumerate(ctx context.Context) (map[string]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]Metadata, len(d.entries))
	for name, e := range d.entries {
		out[name] = Metadata{Date: e.modTime, Length: int64(len(e.content))}
	}
	return out, nil
}

func (d *MemoryDrive) Get(ctx context.Context, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	e, ok := d.entries[name]
	if !ok {
		return "", notFound("get", name)
	}
	return e.content, nil
}

func (d *MemoryDrive) Put(ctx context.Context, name, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries[name] = memEntry{content: content, modTime: d.now()}
	return nil
}
