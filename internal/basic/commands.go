package basic

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/termrepl/internal/storage"
)

const helpText = `Statements:
  PRINT expr [; | , expr] ...   print values (? is short for PRINT)
  LET name = expr               assign; LET is optional, name$ holds text
  CLS                           clear the screen
  COLOR [fg][, bg]              set colors by palette index
  LOCATE row, col               move the cursor (0-based)
  IF cond THEN ... [ELSE ...]   conditional; a bare number jumps
  FOR n = a TO b [STEP s] ... NEXT [n]
  GOTO line, GOSUB line, RETURN, END, REM
  EXIT [code]                   leave the session
Program:
  10 PRINT "hi"                 store a line; a bare number deletes it
  LIST, RUN, NEW
Storage:
  SAVE "name", LOAD "name", DIR, DEL "name"
Operators: + - * / ^ MOD = <> < <= > >= AND OR NOT
Functions: ABS INT SQR SGN SIN COS TAN ATN EXP LOG RND LEN ASC VAL
           CHR$ STR$ LEFT$ RIGHT$ MID$ UCASE$ LCASE$
`

func (m *machine) command(ctx context.Context, kw, rest string) error {
	switch kw {
	case "RUN", "NEW", "LOAD":
		if m.program {
			return fmt.Errorf("%s cannot be used in a program", kw)
		}
	}

	switch kw {
	case "LIST":
		if err := noArgs(kw, rest); err != nil {
			return err
		}
		m.out.Print(m.in.program.Text())

	case "RUN":
		if err := noArgs(kw, rest); err != nil {
			return err
		}
		m.in.resetEngine(ctx, m.out)
		m.enterProgram()
		m.pc = position{}
		m.jumped = true

	case "NEW":
		if err := noArgs(kw, rest); err != nil {
			return err
		}
		m.in.program.Clear()
		m.in.resetEngine(ctx, m.out)

	case "HELP":
		m.out.Print(helpText)

	case "SAVE":
		name, drive, err := m.storageArg(rest)
		if err != nil {
			return err
		}
		return drive.Put(ctx, name, m.in.program.Text())

	case "LOAD":
		name, drive, err := m.storageArg(rest)
		if err != nil {
			return err
		}
		src, err := drive.Get(ctx, name)
		if err != nil {
			return err
		}
		p, err := ParseProgram(src)
		if err != nil {
			return err
		}
		m.in.program = p
		m.in.resetEngine(ctx, m.out)

	case "DEL":
		name, drive, err := m.storageArg(rest)
		if err != nil {
			return err
		}
		return drive.Delete(ctx, name)

	case "DIR":
		if err := noArgs(kw, rest); err != nil {
			return err
		}
		return m.dir(ctx)
	}
	return nil
}

func (m *machine) storageArg(rest string) (string, storage.Drive, error) {
	if m.in.drive == nil {
		return "", nil, ErrNoDrive
	}
	name, err := m.eng().evalString(rest)
	if err != nil {
		return "", nil, err
	}
	return name, m.in.drive, nil
}

func (m *machine) dir(ctx context.Context) error {
	if m.in.drive == nil {
		return ErrNoDrive
	}
	entries, err := m.in.drive.Enumerate(ctx)
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString("\n    Modified              Size    Name\n")
	var total int64
	for _, name := range storage.Names(entries) {
		md := entries[name]
		fmt.Fprintf(&b, "    %s  %8d    %s\n", md.Date.Format("2006-01-02 15:04"), md.Length, name)
		total += md.Length
	}
	fmt.Fprintf(&b, "\n    %d file(s), %d bytes\n\n", len(entries), total)
	m.out.Print(b.String())
	return nil
}
