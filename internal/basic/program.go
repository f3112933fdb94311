package basic

import (
	"bufio"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxLineNumber is the largest accepted program line number.
const MaxLineNumber = 65535

// Program is a set of numbered source lines.
type Program struct {
	lines map[int]string
}

// NewProgram creates an empty program.
func NewProgram() *Program {
	return &Program{lines: make(map[int]string)}
}

// ParseProgram reads program text. Numbered lines keep their numbers;
// unnumbered lines are numbered in steps of 10 after the previous line.
// Blank lines are skipped.
func ParseProgram(src string) (*Program, error) {
	p := NewProgram()
	last := 0
	sc := bufio.NewScanner(strings.NewReader(src))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		num, rest, ok, err := splitLineNumber(text)
		if err != nil {
			return nil, fmt.Errorf("source line %d: %w", n, err)
		}
		if !ok {
			num = (last/10 + 1) * 10
			rest = text
		}
		if num > MaxLineNumber {
			return nil, fmt.Errorf("source line %d: %w: line number %d out of range", n, ErrSyntax, num)
		}
		if rest != "" {
			p.lines[num] = rest
		}
		last = num
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p, nil
}

// splitLineNumber splits a leading line number off text. ok is false when
// text does not start with a digit.
func splitLineNumber(text string) (num int, rest string, ok bool, err error) {
	i := 0
	for i < len(text) && text[i] >= '0' && text[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, text, false, nil
	}
	num, err = strconv.Atoi(text[:i])
	if err != nil || num > MaxLineNumber {
		return 0, "", false, syntaxErrorf("line number %s out of range", text[:i])
	}
	return num, strings.TrimSpace(text[i:]), true, nil
}

// Set stores text as line n, replacing any existing line.
func (p *Program) Set(n int, text string) {
	p.lines[n] = text
}

// Delete removes line n and reports whether it existed.
func (p *Program) Delete(n int) bool {
	_, ok := p.lines[n]
	delete(p.lines, n)
	return ok
}

// Line returns the text of line n.
func (p *Program) Line(n int) (string, bool) {
	text, ok := p.lines[n]
	return text, ok
}

// Len returns the number of lines.
func (p *Program) Len() int {
	return len(p.lines)
}

// Clear removes every line.
func (p *Program) Clear() {
	clear(p.lines)
}

// Numbers returns the line numbers in ascending order.
func (p *Program) Numbers() []int {
	nums := make([]int, 0, len(p.lines))
	for n := range p.lines {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// Text renders the program as source, one numbered line per row.
func (p *Program) Text() string {
	var b strings.Builder
	for _, n := range p.Numbers() {
		fmt.Fprintf(&b, "%d %s\n", n, p.lines[n])
	}
	return b.String()
}

// compiledLine is a program line split into statements.
type compiledLine struct {
	number int
	stmts  []string
}

func (p *Program) compile() []compiledLine {
	nums := p.Numbers()
	out := make([]compiledLine, len(nums))
	for i, n := range nums {
		out[i] = compiledLine{number: n, stmts: splitStatements(p.lines[n])}
	}
	return out
}
