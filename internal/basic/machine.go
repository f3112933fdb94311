package basic

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/termrepl/internal/console"
	"github.com/dshills/termrepl/internal/repl"
)

// position addresses a statement within the running lines.
type position struct {
	line, stmt int
}

// returnToDirect marks a GOSUB issued outside a program.
var returnToDirect = position{line: -1, stmt: -1}

type forLoop struct {
	ident string
	limit float64
	step  float64
	body  position
}

// machine executes statements for one Exec or program run.
type machine struct {
	in  *Interpreter
	out repl.Output

	lines   []compiledLine
	pc      position
	program bool

	jumped   bool
	inBranch bool
	gosub    []position
	loops    []forLoop
	steps    int
}

func (m *machine) run(ctx context.Context) error {
	for m.pc.line < len(m.lines) {
		if err := ctx.Err(); err != nil {
			return err
		}
		ln := m.lines[m.pc.line]
		if m.pc.stmt >= len(ln.stmts) {
			m.pc = position{line: m.pc.line + 1}
			continue
		}

		m.steps++
		if limit := m.in.maxSteps; limit > 0 && m.steps > limit {
			return m.lineError(ln, ErrStepLimit)
		}

		stmt := ln.stmts[m.pc.stmt]
		m.pc.stmt++
		m.jumped = false

		if err := m.exec(ctx, stmt); err != nil {
			if errors.Is(err, errEnd) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			var exit *repl.ExitError
			if errors.As(err, &exit) {
				return err
			}
			return m.lineError(ln, err)
		}
	}
	return nil
}

func (m *machine) lineError(ln compiledLine, err error) error {
	var le *LineError
	if ln.number < 0 || errors.As(err, &le) {
		return err
	}
	return &LineError{Line: ln.number, Err: err}
}

func (m *machine) eng() *engine {
	return m.in.eng
}

func (m *machine) exec(ctx context.Context, stmt string) error {
	kw, rest := keyword(stmt)
	switch kw {
	case "REM":
		return nil
	case "PRINT":
		return m.print(rest)
	case "CLS":
		if err := noArgs(kw, rest); err != nil {
			return err
		}
		m.out.Clear()
		return nil
	case "COLOR":
		return m.color(rest)
	case "LOCATE":
		return m.locate(rest)
	case "LET":
		return m.let(rest)
	case "IF":
		return m.ifStmt(ctx, rest)
	case "GOTO":
		n, err := m.eng().evalInt(rest)
		if err != nil {
			return err
		}
		return m.jump(n)
	case "GOSUB":
		return m.gosubStmt(rest)
	case "RETURN":
		return m.returnStmt(rest)
	case "FOR":
		return m.forStmt(rest)
	case "NEXT":
		return m.next(rest)
	case "END":
		if err := noArgs(kw, rest); err != nil {
			return err
		}
		if m.program {
			return errEnd
		}
		return nil
	case "EXIT":
		return m.exit(rest)
	case "LIST", "RUN", "NEW", "SAVE", "LOAD", "DIR", "DEL", "HELP":
		return m.command(ctx, kw, rest)
	}

	if ident, expr, ok := parseAssignment(stmt); ok {
		return m.assign(ident, expr)
	}
	return syntaxErrorf("unknown statement %q", stmt)
}

func noArgs(kw, rest string) error {
	if strings.TrimSpace(rest) != "" {
		return syntaxErrorf("%s takes no arguments", kw)
	}
	return nil
}

var assignment = regexp.MustCompile(`^([\p{L}_][\p{L}\p{N}_]*\$?)\s*=(.*)$`)

// parseAssignment matches "name = expr".
func parseAssignment(stmt string) (ident, expr string, ok bool) {
	sm := assignment.FindStringSubmatch(strings.TrimSpace(stmt))
	if sm == nil || strings.HasPrefix(sm[2], "=") {
		return "", "", false
	}
	return sm[1], sm[2], true
}

func (m *machine) let(rest string) error {
	ident, expr, ok := parseAssignment(rest)
	if !ok {
		return syntaxErrorf("expected name = value")
	}
	return m.assign(ident, expr)
}

func (m *machine) assign(ident, expr string) error {
	v, err := m.eng().eval(expr)
	if err != nil {
		return err
	}
	return m.eng().assign(ident, v)
}

// print handles PRINT. A semicolon joins values, a comma inserts a tab
// and a trailing separator suppresses the newline.
func (m *machine) print(rest string) error {
	if strings.TrimSpace(rest) == "" {
		m.out.Print("\n")
		return nil
	}

	parts, delims := splitTop(rest, ";,")
	var b strings.Builder
	for i, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			v, err := m.eng().eval(part)
			if err != nil {
				return err
			}
			b.WriteString(formatValue(v))
		}
		if delims[i] == ',' {
			b.WriteByte('\t')
		}
	}
	last := len(parts) - 1
	if last == 0 || strings.TrimSpace(parts[last]) != "" {
		b.WriteByte('\n')
	}
	m.out.Print(b.String())
	return nil
}

func (m *machine) color(rest string) error {
	args := splitArgs(rest)
	if len(args) > 2 {
		return syntaxErrorf("COLOR takes at most two arguments")
	}
	colors := [2]console.Color{console.ColorDefault, console.ColorDefault}
	for i, arg := range args {
		if arg == "" {
			continue
		}
		n, err := m.eng().evalInt(arg)
		if err != nil {
			return err
		}
		colors[i] = console.Color(n)
	}
	m.out.SetColor(colors[0], colors[1])
	return nil
}

func (m *machine) locate(rest string) error {
	args := splitArgs(rest)
	if len(args) != 2 {
		return syntaxErrorf("LOCATE takes a row and a column")
	}
	row, err := m.eng().evalInt(args[0])
	if err != nil {
		return err
	}
	col, err := m.eng().evalInt(args[1])
	if err != nil {
		return err
	}
	m.out.MoveCursor(row, col)
	return nil
}

func (m *machine) ifStmt(ctx context.Context, rest string) error {
	var cond, branch string
	if i := findWord(rest, "THEN"); i >= 0 {
		cond, branch = rest[:i], rest[i+len("THEN"):]
	} else if i := findWord(rest, "GOTO"); i >= 0 {
		cond, branch = rest[:i], rest[i:]
	} else {
		return syntaxErrorf("IF without THEN")
	}

	thenPart, elsePart := branch, ""
	if i := findWord(branch, "ELSE"); i >= 0 {
		thenPart, elsePart = branch[:i], branch[i+len("ELSE"):]
	}

	ok, err := m.eng().evalBool(cond)
	if err != nil {
		return err
	}
	if ok {
		return m.branch(ctx, thenPart)
	}
	return m.branch(ctx, elsePart)
}

// branch runs the statements of an IF branch. A bare number jumps.
func (m *machine) branch(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if n, err := strconv.Atoi(text); err == nil {
		return m.jump(n)
	}

	prev := m.inBranch
	m.inBranch = true
	defer func() { m.inBranch = prev }()

	for _, stmt := range splitStatements(text) {
		if err := m.exec(ctx, stmt); err != nil {
			return err
		}
		if m.jumped {
			return nil
		}
	}
	return nil
}

// enterProgram switches a direct statement over to the stored program.
func (m *machine) enterProgram() {
	m.lines = m.in.program.compile()
	m.program = true
	m.loops = nil
	m.gosub = nil
}

func (m *machine) jump(n int) error {
	if !m.program {
		m.enterProgram()
	}
	i := sort.Search(len(m.lines), func(i int) bool { return m.lines[i].number >= n })
	if i == len(m.lines) || m.lines[i].number != n {
		return fmt.Errorf("%w %d", ErrUndefinedLine, n)
	}
	m.pc = position{line: i}
	m.jumped = true
	return nil
}

func (m *machine) gosubStmt(rest string) error {
	n, err := m.eng().evalInt(rest)
	if err != nil {
		return err
	}
	ret := m.pc
	if !m.program {
		ret = returnToDirect
	}
	if err := m.jump(n); err != nil {
		return err
	}
	m.gosub = append(m.gosub, ret)
	return nil
}

func (m *machine) returnStmt(rest string) error {
	if err := noArgs("RETURN", rest); err != nil {
		return err
	}
	if len(m.gosub) == 0 {
		return errors.New("RETURN without GOSUB")
	}
	ret := m.gosub[len(m.gosub)-1]
	m.gosub = m.gosub[:len(m.gosub)-1]
	if ret == returnToDirect {
		return errEnd
	}
	m.pc = ret
	m.jumped = true
	return nil
}

// forStmt handles FOR name = start TO limit [STEP step].
func (m *machine) forStmt(rest string) error {
	if m.inBranch {
		return syntaxErrorf("FOR cannot appear inside IF")
	}
	eq := indexTop(rest, "=")
	if eq < 0 {
		return syntaxErrorf("FOR without =")
	}
	ident := strings.TrimSpace(rest[:eq])
	if !assignment.MatchString(ident+"=0") || strings.HasSuffix(ident, "$") {
		return syntaxErrorf("FOR needs a numeric variable, got %q", ident)
	}

	after := rest[eq+1:]
	to := findWord(after, "TO")
	if to < 0 {
		return syntaxErrorf("FOR without TO")
	}
	startExpr, limitExpr, stepExpr := after[:to], after[to+len("TO"):], "1"
	if s := findWord(limitExpr, "STEP"); s >= 0 {
		limitExpr, stepExpr = limitExpr[:s], limitExpr[s+len("STEP"):]
	}

	start, err := m.eng().evalNumber(startExpr)
	if err != nil {
		return err
	}
	limit, err := m.eng().evalNumber(limitExpr)
	if err != nil {
		return err
	}
	step, err := m.eng().evalNumber(stepExpr)
	if err != nil {
		return err
	}
	if err := m.eng().assign(ident, lua.LNumber(start)); err != nil {
		return err
	}

	name := luaName(ident)
	for i := len(m.loops) - 1; i >= 0; i-- {
		if m.loops[i].ident == name {
			m.loops = m.loops[:i]
			break
		}
	}

	if !inRange(start, limit, step) {
		return m.skipLoop()
	}
	m.loops = append(m.loops, forLoop{ident: name, limit: limit, step: step, body: m.pc})
	return nil
}

func inRange(v, limit, step float64) bool {
	if step < 0 {
		return v >= limit
	}
	return v <= limit
}

// skipLoop moves past the NEXT matching a loop that runs zero times.
func (m *machine) skipLoop() error {
	depth := 0
	for pos := m.pc; pos.line < len(m.lines); {
		ln := m.lines[pos.line]
		if pos.stmt >= len(ln.stmts) {
			pos = position{line: pos.line + 1}
			continue
		}
		kw, _ := keyword(ln.stmts[pos.stmt])
		pos.stmt++
		switch kw {
		case "FOR":
			depth++
		case "NEXT":
			if depth == 0 {
				m.pc = pos
				m.jumped = true
				return nil
			}
			depth--
		}
	}
	return errors.New("FOR without NEXT")
}

func (m *machine) next(rest string) error {
	if len(m.loops) == 0 {
		return errors.New("NEXT without FOR")
	}
	idx := len(m.loops) - 1
	if ident := strings.TrimSpace(rest); ident != "" {
		name := luaName(ident)
		for idx >= 0 && m.loops[idx].ident != name {
			idx--
		}
		if idx < 0 {
			return fmt.Errorf("NEXT %s without FOR", ident)
		}
		m.loops = m.loops[:idx+1]
	}

	lp := m.loops[idx]
	cur, ok := m.eng().L.G.Global.RawGetString(lp.ident).(lua.LNumber)
	if !ok {
		return typeMismatchf("loop variable %s is not a number", lp.ident)
	}
	v := float64(cur) + lp.step
	m.eng().L.G.Global.RawSetString(lp.ident, lua.LNumber(v))

	if inRange(v, lp.limit, lp.step) {
		m.pc = lp.body
		m.jumped = true
		return nil
	}
	m.loops = m.loops[:idx]
	return nil
}

func (m *machine) exit(rest string) error {
	code := 0
	if strings.TrimSpace(rest) != "" {
		n, err := m.eng().evalInt(rest)
		if err != nil {
			return err
		}
		code = n
	}
	return &repl.ExitError{Code: code}
}
