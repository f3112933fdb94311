package web

import "sync"

// inbox holds input chunks for a widget and hands them to at most one
// one-shot listener at a time.
type inbox struct {
	mu       sync.Mutex
	backlog  []string
	listener func(string)
	token    uint64
}

// push delivers data to the registered listener, or keeps it for the next
// one.
func (b *inbox) push(data string) {
	b.mu.Lock()
	fn := b.listener
	if fn == nil {
		b.backlog = append(b.backlog, data)
		b.mu.Unlock()
		return
	}
	b.listener = nil
	b.mu.Unlock()
	fn(data)
}

// next registers fn for the next chunk. cancel unregisters fn and reports
// whether it did; false means fn has been or is about to be called.
func (b *inbox) next(fn func(string)) (cancel func() bool) {
	b.mu.Lock()
	if len(b.backlog) > 0 {
		data := b.backlog[0]
		b.backlog = b.backlog[1:]
		b.mu.Unlock()
		fn(data)
		return func() bool { return false }
	}

	b.token++
	token := b.token
	b.listener = fn
	b.mu.Unlock()

	return func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.token != token || b.listener == nil {
			return false
		}
		b.listener = nil
		return true
	}
}
