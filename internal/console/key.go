package console

import (
	"strings"
	"unicode"
)

// Key identifies a keyboard key. Character keys use KeyRune and carry the
// character in KeyEvent.Rune; control chords are KeyRune with ModCtrl.
type Key uint16

const (
	KeyNone Key = iota
	KeyRune
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12
)

var keyNames = map[Key]string{
	KeyNone:      "None",
	KeyRune:      "Rune",
	KeyEscape:    "Esc",
	KeyEnter:     "Enter",
	KeyTab:       "Tab",
	KeyBackspace: "Backspace",
	KeyDelete:    "Delete",
	KeyInsert:    "Insert",
	KeyHome:      "Home",
	KeyEnd:       "End",
	KeyPageUp:    "PageUp",
	KeyPageDown:  "PageDown",
	KeyUp:        "Up",
	KeyDown:      "Down",
	KeyLeft:      "Left",
	KeyRight:     "Right",
	KeyF1:        "F1",
	KeyF2:        "F2",
	KeyF3:        "F3",
	KeyF4:        "F4",
	KeyF5:        "F5",
	KeyF6:        "F6",
	KeyF7:        "F7",
	KeyF8:        "F8",
	KeyF9:        "F9",
	KeyF10:       "F10",
	KeyF11:       "F11",
	KeyF12:       "F12",
}

// String returns the key name.
func (k Key) String() string {
	if name, ok := keyNames[k]; ok {
		return name
	}
	return "Unknown"
}

// FunctionKey returns F1..F12 for n in 1..12 and KeyNone otherwise.
func FunctionKey(n int) Key {
	if n < 1 || n > 12 {
		return KeyNone
	}
	return KeyF1 + Key(n-1)
}

// Modifier is a bit set of modifier keys.
type Modifier uint8

const (
	ModNone  Modifier = 0
	ModShift Modifier = 1 << (iota - 1)
	ModCtrl
	ModAlt
	ModMeta
)

// Has reports whether m contains mod.
func (m Modifier) Has(mod Modifier) bool {
	return m&mod != 0
}

// KeyEvent is a decoded key press. Seq is assigned by the adapter that
// produced the event and increases by one per event.
type KeyEvent struct {
	Key  Key
	Rune rune
	Mod  Modifier
	Seq  uint64
}

// RuneKey returns the event for a plain character.
func RuneKey(r rune) KeyEvent {
	return KeyEvent{Key: KeyRune, Rune: r}
}

// CtrlKey returns the event for Ctrl plus a letter.
func CtrlKey(letter rune) KeyEvent {
	return KeyEvent{Key: KeyRune, Rune: unicode.ToLower(letter), Mod: ModCtrl}
}

// SpecialKey returns the event for a non-character key.
func SpecialKey(k Key) KeyEvent {
	return KeyEvent{Key: k}
}

// IsChar reports whether the event inserts a printable character.
func (e KeyEvent) IsChar() bool {
	return e.Key == KeyRune && e.Rune != 0 && !e.Mod.Has(ModCtrl) && !e.Mod.Has(ModAlt) &&
		unicode.IsPrint(e.Rune)
}

// IsCtrl reports whether the event is Ctrl plus the given letter.
func (e KeyEvent) IsCtrl(letter rune) bool {
	return e.Key == KeyRune && e.Mod.Has(ModCtrl) && unicode.ToLower(e.Rune) == unicode.ToLower(letter)
}

// Equal compares two events ignoring their sequence numbers.
func (e KeyEvent) Equal(other KeyEvent) bool {
	return e.Key == other.Key && e.Rune == other.Rune && e.Mod == other.Mod
}

// String renders the event the way key bindings are written: "a",
// "C-c", "A-x", "S-Up", "Enter".
func (e KeyEvent) String() string {
	var parts []string
	if e.Mod.Has(ModCtrl) {
		parts = append(parts, "C")
	}
	if e.Mod.Has(ModAlt) {
		parts = append(parts, "A")
	}
	if e.Mod.Has(ModMeta) {
		parts = append(parts, "M")
	}
	if e.Mod.Has(ModShift) && e.Key != KeyRune {
		parts = append(parts, "S")
	}

	name := e.Key.String()
	if e.Key == KeyRune {
		if e.Rune == ' ' {
			name = "Space"
		} else {
			name = string(e.Rune)
		}
	}
	parts = append(parts, name)
	return strings.Join(parts, "-")
}

// Sequencer stamps events with increasing sequence numbers.
// The zero value starts at 1.
type Sequencer struct {
	last uint64
}

// Stamp returns ev with the next sequence number.
func (s *Sequencer) Stamp(ev KeyEvent) KeyEvent {
	s.last++
	ev.Seq = s.last
	return ev
}
