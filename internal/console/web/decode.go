package web

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dshills/termrepl/internal/console"
)

const esc = 0x1b

// Decode converts a chunk of terminal input, as delivered by xterm.js
// onData, into key events. A chunk may hold several keys when the user
// pastes text or presses a key that produces an escape sequence.
// Unrecognized escape sequences are dropped.
func Decode(data string) []console.KeyEvent {
	var keys []console.KeyEvent
	for i := 0; i < len(data); {
		if data[i] == esc {
			key, n, ok := decodeEscape(data[i:])
			if ok {
				keys = append(keys, key)
			}
			i += n
			continue
		}

		r, size := utf8.DecodeRuneInString(data[i:])
		i += size
		if r == '\r' && i < len(data) && data[i] == '\n' {
			i++
		}
		if key, ok := decodeRune(r); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// decodeRune converts a single non-escape rune.
func decodeRune(r rune) (console.KeyEvent, bool) {
	switch {
	case r == utf8.RuneError:
		return console.KeyEvent{}, false
	case r == '\r' || r == '\n':
		return console.SpecialKey(console.KeyEnter), true
	case r == '\t':
		return console.SpecialKey(console.KeyTab), true
	case r == 0x7f || r == 0x08:
		return console.SpecialKey(console.KeyBackspace), true
	case r >= 0x01 && r <= 0x1a:
		return console.CtrlKey('a' + r - 1), true
	case r < 0x20:
		return console.KeyEvent{}, false
	}
	return console.RuneKey(r), true
}

// decodeEscape decodes the sequence at the start of s, which begins with
// ESC. It returns the number of bytes consumed.
func decodeEscape(s string) (key console.KeyEvent, n int, ok bool) {
	if len(s) == 1 {
		return console.SpecialKey(console.KeyEscape), 1, true
	}

	switch s[1] {
	case '[':
		return decodeCSI(s)
	case 'O':
		if len(s) < 3 {
			return console.KeyEvent{Key: console.KeyRune, Rune: 'O', Mod: console.ModAlt}, 2, true
		}
		k := finalKey(s[2])
		if k == console.KeyNone {
			return console.KeyEvent{}, 3, false
		}
		return console.SpecialKey(k), 3, true
	case esc:
		return console.SpecialKey(console.KeyEscape), 1, true
	}

	// ESC followed by a character is Alt+character.
	r, size := utf8.DecodeRuneInString(s[1:])
	inner, ok := decodeRune(r)
	if !ok {
		return console.KeyEvent{}, 1 + size, false
	}
	inner.Mod |= console.ModAlt
	return inner, 1 + size, true
}

// decodeCSI decodes ESC [ params final.
func decodeCSI(s string) (key console.KeyEvent, n int, ok bool) {
	end := 2
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == ';') {
		end++
	}
	if end >= len(s) {
		// Truncated sequence.
		return console.KeyEvent{}, len(s), false
	}

	final := s[end]
	n = end + 1
	params := parseParams(s[2:end])
	mods := modifierParam(params)

	if final == '~' {
		if len(params) == 0 {
			return console.KeyEvent{}, n, false
		}
		k := tildeKey(params[0])
		if k == console.KeyNone {
			return console.KeyEvent{}, n, false
		}
		return console.KeyEvent{Key: k, Mod: mods}, n, true
	}
	if final == 'Z' {
		return console.KeyEvent{Key: console.KeyTab, Mod: console.ModShift}, n, true
	}

	k := finalKey(final)
	if k == console.KeyNone {
		return console.KeyEvent{}, n, false
	}
	return console.KeyEvent{Key: k, Mod: mods}, n, true
}

func parseParams(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	params := make([]int, len(parts))
	for i, p := range parts {
		params[i], _ = strconv.Atoi(p)
	}
	return params
}

// modifierParam decodes the xterm modifier parameter, which is one plus a
// bit mask of shift, alt, ctrl and meta.
func modifierParam(params []int) console.Modifier {
	if len(params) < 2 || params[1] < 2 {
		return console.ModNone
	}
	bits := params[1] - 1
	var mods console.Modifier
	if bits&1 != 0 {
		mods |= console.ModShift
	}
	if bits&2 != 0 {
		mods |= console.ModAlt
	}
	if bits&4 != 0 {
		mods |= console.ModCtrl
	}
	if bits&8 != 0 {
		mods |= console.ModMeta
	}
	return mods
}

// finalKey maps the final byte of CSI and SS3 sequences.
func finalKey(b byte) console.Key {
	switch b {
	case 'A':
		return console.KeyUp
	case 'B':
		return console.KeyDown
	case 'C':
		return console.KeyRight
	case 'D':
		return console.KeyLeft
	case 'H':
		return console.KeyHome
	case 'F':
		return console.KeyEnd
	case 'P':
		return console.KeyF1
	case 'Q':
		return console.KeyF2
	case 'R':
		return console.KeyF3
	case 'S':
		return console.KeyF4
	}
	return console.KeyNone
}

// tildeKey maps the first parameter of ESC [ n ~ sequences.
func tildeKey(n int) console.Key {
	switch n {
	case 1, 7:
		return console.KeyHome
	case 2:
		return console.KeyInsert
	case 3:
		return console.KeyDelete
	case 4, 8:
		return console.KeyEnd
	case 5:
		return console.KeyPageUp
	case 6:
		return console.KeyPageDown
	case 11, 12, 13, 14, 15:
		return console.FunctionKey(n - 10)
	case 17, 18, 19, 20, 21:
		return console.FunctionKey(n - 11)
	case 23, 24:
		return console.FunctionKey(n - 12)
	}
	return console.KeyNone
}
