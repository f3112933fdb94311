package native

import (
	"github.com/gdamore/tcell/v2"

	"github.com/dshills/termrepl/internal/console"
)

// DecodeKey converts a tcell key event into a console key event. The
// result depends only on the event's key, rune and modifiers. Events with
// no console equivalent report ok=false.
func DecodeKey(ev *tcell.EventKey) (key console.KeyEvent, ok bool) {
	mods := convertMod(ev.Modifiers())
	k := ev.Key()

	switch {
	case k == tcell.KeyRune:
		return console.KeyEvent{Key: console.KeyRune, Rune: ev.Rune(), Mod: mods}, true
	case k == tcell.KeyEnter || k == tcell.KeyLF:
		return console.KeyEvent{Key: console.KeyEnter, Mod: mods &^ console.ModCtrl}, true
	case k == tcell.KeyTab:
		return console.KeyEvent{Key: console.KeyTab, Mod: mods &^ console.ModCtrl}, true
	case k == tcell.KeyBacktab:
		return console.KeyEvent{Key: console.KeyTab, Mod: mods | console.ModShift}, true
	case k == tcell.KeyBackspace || k == tcell.KeyBackspace2:
		return console.KeyEvent{Key: console.KeyBackspace, Mod: mods &^ console.ModCtrl}, true
	case k == tcell.KeyEscape:
		return console.KeyEvent{Key: console.KeyEscape, Mod: mods &^ console.ModCtrl}, true
	case k >= tcell.KeyCtrlA && k <= tcell.KeyCtrlZ:
		return console.KeyEvent{Key: console.KeyRune, Rune: 'a' + rune(k-tcell.KeyCtrlA), Mod: mods | console.ModCtrl}, true
	case k >= tcell.KeySOH && k <= tcell.KeySUB:
		// Raw control bytes not folded into KeyCtrl* by tcell.
		return console.KeyEvent{Key: console.KeyRune, Rune: 'a' + rune(k-tcell.KeySOH), Mod: mods | console.ModCtrl}, true
	}

	if special := convertKey(k); special != console.KeyNone {
		return console.KeyEvent{Key: special, Mod: mods}, true
	}
	return console.KeyEvent{}, false
}

// convertKey converts the tcell navigation and function keys.
func convertKey(k tcell.Key) console.Key {
	switch k {
	case tcell.KeyDelete:
		return console.KeyDelete
	case tcell.KeyInsert:
		return console.KeyInsert
	case tcell.KeyHome:
		return console.KeyHome
	case tcell.KeyEnd:
		return console.KeyEnd
	case tcell.KeyPgUp:
		return console.KeyPageUp
	case tcell.KeyPgDn:
		return console.KeyPageDown
	case tcell.KeyUp:
		return console.KeyUp
	case tcell.KeyDown:
		return console.KeyDown
	case tcell.KeyLeft:
		return console.KeyLeft
	case tcell.KeyRight:
		return console.KeyRight
	}
	if k >= tcell.KeyF1 && k <= tcell.KeyF12 {
		return console.FunctionKey(int(k-tcell.KeyF1) + 1)
	}
	return console.KeyNone
}

// convertMod converts tcell modifier mask to console modifiers.
func convertMod(m tcell.ModMask) console.Modifier {
	var result console.Modifier
	if m&tcell.ModShift != 0 {
		result |= console.ModShift
	}
	if m&tcell.ModCtrl != 0 {
		result |= console.ModCtrl
	}
	if m&tcell.ModAlt != 0 {
		result |= console.ModAlt
	}
	if m&tcell.ModMeta != 0 {
		result |= console.ModMeta
	}
	return result
}

// DecodeByte converts one rune read from a byte stream. The stream adapter
// uses it for piped input, where no escape sequence parsing is attempted.
func DecodeByte(r rune) (console.KeyEvent, bool) {
	switch {
	case r == '\r' || r == '\n':
		return console.SpecialKey(console.KeyEnter), true
	case r == '\t':
		return console.SpecialKey(console.KeyTab), true
	case r == 0x7f || r == 0x08:
		return console.SpecialKey(console.KeyBackspace), true
	case r == 0x1b:
		return console.SpecialKey(console.KeyEscape), true
	case r >= 0x01 && r <= 0x1a:
		return console.CtrlKey('a' + r - 1), true
	case r < 0x20:
		return console.KeyEvent{}, false
	}
	return console.RuneKey(r), true
}
