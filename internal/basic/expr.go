package basic

import (
	"fmt"
	"strings"
	"unicode"
)

// luaReserved lists words that cannot name a Lua variable.
var luaReserved = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// luaName maps a BASIC identifier to its Lua global. Names are case
// insensitive and a trailing $ marks a string variable.
func luaName(ident string) string {
	s := strings.ToLower(ident)
	if strings.HasSuffix(s, "$") {
		s = strings.TrimSuffix(s, "$") + "_S"
	}
	if luaReserved[s] {
		s = "v_" + s
	}
	return s
}

// isStringName reports whether the Lua global holds a string variable.
func isStringName(name string) bool {
	return strings.HasSuffix(name, "_S")
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// translate rewrites a BASIC expression into Lua source. Names are plain
// identifiers, so tables such as string or math cannot be indexed.
func translate(expr string) (string, error) {
	rs := []rune(expr)
	var b strings.Builder
	b.Grow(len(expr) + 8)

	peek := func(i int) rune {
		if i < len(rs) {
			return rs[i]
		}
		return 0
	}

	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			b.WriteByte(' ')
			i++

		case r == '"':
			j := i + 1
			for j < len(rs) && rs[j] != '"' {
				j++
			}
			if j >= len(rs) {
				return "", syntaxErrorf("unterminated string in %q", expr)
			}
			b.WriteString(luaString(string(rs[i+1 : j])))
			i = j + 1

		case isDigit(r) || (r == '.' && isDigit(peek(i+1))):
			j := scanNumber(rs, i)
			b.WriteString(string(rs[i:j]))
			i = j

		case isIdentStart(r):
			j := i + 1
			for j < len(rs) && isIdentPart(rs[j]) {
				j++
			}
			if peek(j) == '$' {
				j++
			}
			word := string(rs[i:j])
			switch strings.ToUpper(word) {
			case "AND":
				b.WriteString(" and ")
			case "OR":
				b.WriteString(" or ")
			case "NOT":
				b.WriteString(" not ")
			case "MOD":
				b.WriteString(" % ")
			case "TRUE":
				b.WriteString("true")
			case "FALSE":
				b.WriteString("false")
			default:
				b.WriteString(luaName(word))
			}
			i = j

		case r == '<':
			switch peek(i + 1) {
			case '>':
				b.WriteString("~=")
				i += 2
			case '=':
				b.WriteString("<=")
				i += 2
			default:
				b.WriteByte('<')
				i++
			}

		case r == '>':
			if peek(i+1) == '=' {
				b.WriteString(">=")
				i += 2
			} else {
				b.WriteByte('>')
				i++
			}

		case r == '=':
			b.WriteString("==")
			i++
			if peek(i) == '=' {
				i++
			}

		case r == '~' && peek(i+1) == '=':
			b.WriteString("~=")
			i += 2

		case r == '-':
			// A space keeps "--" from starting a Lua comment.
			b.WriteString("- ")
			i++

		case strings.ContainsRune("+*/^%(),", r):
			b.WriteRune(r)
			i++

		default:
			return "", syntaxErrorf("unexpected %q in %q", r, expr)
		}
	}
	return b.String(), nil
}

func scanNumber(rs []rune, i int) int {
	for i < len(rs) && isDigit(rs[i]) {
		i++
	}
	if i < len(rs) && rs[i] == '.' && (i+1 >= len(rs) || rs[i+1] != '.') {
		i++
		for i < len(rs) && isDigit(rs[i]) {
			i++
		}
	}
	if i < len(rs) && (rs[i] == 'e' || rs[i] == 'E') {
		j := i + 1
		if j < len(rs) && (rs[j] == '+' || rs[j] == '-') {
			j++
		}
		if j < len(rs) && isDigit(rs[j]) {
			for j < len(rs) && isDigit(rs[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

// luaString quotes s as a Lua string literal.
func luaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"':
			b.WriteString(`\"`)
		case c < 0x20 || c == 0x7f:
			fmt.Fprintf(&b, `\%03d`, c)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// indexTop returns the byte index of the first rune of seps outside
// string literals and parentheses, or -1.
func indexTop(s, seps string) int {
	depth := 0
	quoted := false
	for i, r := range s {
		switch {
		case r == '"':
			quoted = !quoted
		case quoted:
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && strings.ContainsRune(seps, r):
			return i
		}
	}
	return -1
}

// splitTop splits s at top-level separators, returning the pieces and the
// separator that followed each piece (0 for the last).
func splitTop(s, seps string) (parts []string, delims []rune) {
	for {
		i := indexTop(s, seps)
		if i < 0 {
			return append(parts, s), append(delims, 0)
		}
		parts = append(parts, s[:i])
		delims = append(delims, rune(s[i]))
		s = s[i+1:]
	}
}

// splitArgs splits a comma separated argument list. An empty list yields
// no arguments.
func splitArgs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts, _ := splitTop(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// findWord returns the byte index of word in s, matched case
// insensitively on identifier boundaries outside string literals.
func findWord(s, word string) int {
	quoted := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '"' {
			quoted = !quoted
			continue
		}
		if quoted || i+len(word) > len(s) || !strings.EqualFold(s[i:i+len(word)], word) {
			continue
		}
		if i > 0 && isWordByte(s[i-1]) {
			continue
		}
		if end := i + len(word); end < len(s) && isWordByte(s[end]) {
			continue
		}
		return i
	}
	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// keyword splits the leading keyword off a statement. kw is upper case
// and empty when the statement does not start with a bare word.
func keyword(stmt string) (kw, rest string) {
	stmt = strings.TrimSpace(stmt)
	if strings.HasPrefix(stmt, "?") {
		return "PRINT", stmt[1:]
	}
	if strings.HasPrefix(stmt, "'") {
		return "REM", stmt[1:]
	}
	i := 0
	for i < len(stmt) && (stmt[i] >= 'a' && stmt[i] <= 'z' || stmt[i] >= 'A' && stmt[i] <= 'Z') {
		i++
	}
	if i == 0 || (i < len(stmt) && isWordByte(stmt[i])) {
		return "", stmt
	}
	return strings.ToUpper(stmt[:i]), strings.TrimSpace(stmt[i:])
}

// splitStatements splits a line at top-level colons. IF and REM take the
// rest of the line.
func splitStatements(line string) []string {
	var out []string
	for {
		s := strings.TrimSpace(line)
		if s == "" {
			return out
		}
		if kw, _ := keyword(s); kw == "IF" || kw == "REM" {
			return append(out, s)
		}
		i := indexTop(s, ":")
		if i < 0 {
			return append(out, s)
		}
		if stmt := strings.TrimSpace(s[:i]); stmt != "" {
			out = append(out, stmt)
		}
		line = s[i+1:]
	}
}
