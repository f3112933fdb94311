package console

import (
	"fmt"
	"strings"
)

// ANSI control sequences shared by the stream and web backends.
const (
	ANSIClear = "\x1b[2J\x1b[H"
	ANSIReset = "\x1b[0m"
)

// ANSICursorTo returns the sequence moving the cursor to a zero-based
// position.
func ANSICursorTo(pos CursorPosition) string {
	return fmt.Sprintf("\x1b[%d;%dH", pos.Row+1, pos.Col+1)
}

// ANSIColor returns the 256-color select graphic rendition for fg and bg.
func ANSIColor(fg, bg Color) string {
	var b strings.Builder
	b.WriteString("\x1b[")
	if fg == ColorDefault {
		b.WriteString("39")
	} else {
		fmt.Fprintf(&b, "38;5;%d", fg)
	}
	b.WriteString(";")
	if bg == ColorDefault {
		b.WriteString("49")
	} else {
		fmt.Fprintf(&b, "48;5;%d", bg)
	}
	b.WriteString("m")
	return b.String()
}
