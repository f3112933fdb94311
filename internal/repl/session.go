package repl

import (
	"github.com/google/uuid"
)

// DefaultHistoryLimit bounds the history kept by a session.
const DefaultHistoryLimit = 1000

// Session is the state of one driver run. It is created when the loop
// starts, changed only by the driver and dropped when the loop exits.
type Session struct {
	ID      string
	Buffer  []rune
	History []string
	Running bool

	limit  int
	cursor int // history index while browsing; len(History) when editing
	draft  []rune
}

// NewSession creates a session keeping at most limit history entries. A
// limit of zero or less keeps DefaultHistoryLimit.
func NewSession(limit int) *Session {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &Session{ID: uuid.NewString(), limit: limit}
}

// Line returns the input buffer as a string.
func (s *Session) Line() string {
	return string(s.Buffer)
}

// Insert appends r to the input buffer.
func (s *Session) Insert(r rune) {
	s.Buffer = append(s.Buffer, r)
}

// Backspace removes and returns the last rune of the buffer.
func (s *Session) Backspace() (rune, bool) {
	if len(s.Buffer) == 0 {
		return 0, false
	}
	r := s.Buffer[len(s.Buffer)-1]
	s.Buffer = s.Buffer[:len(s.Buffer)-1]
	return r, true
}

// ResetInput clears the buffer and stops history browsing.
func (s *Session) ResetInput() {
	s.Buffer = s.Buffer[:0]
	s.cursor = len(s.History)
	s.draft = nil
}

// AddHistory appends line, dropping the oldest entries beyond the limit.
func (s *Session) AddHistory(line string) {
	s.History = append(s.History, line)
	if over := len(s.History) - s.limit; over > 0 {
		s.History = append(s.History[:0:0], s.History[over:]...)
	}
	s.cursor = len(s.History)
}

// Previous replaces the buffer with the previous history entry. It
// reports false when there is none.
func (s *Session) Previous() bool {
	if s.cursor == 0 {
		return false
	}
	if s.cursor == len(s.History) {
		s.draft = append([]rune(nil), s.Buffer...)
	}
	s.cursor--
	s.Buffer = []rune(s.History[s.cursor])
	return true
}

// Next moves forward through history, restoring the line being edited
// after the newest entry.
func (s *Session) Next() bool {
	if s.cursor >= len(s.History) {
		return false
	}
	s.cursor++
	if s.cursor == len(s.History) {
		s.Buffer = append([]rune(nil), s.draft...)
		s.draft = nil
		return true
	}
	s.Buffer = []rune(s.History[s.cursor])
	return true
}
