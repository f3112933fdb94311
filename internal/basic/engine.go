package basic

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/termrepl/internal/repl"
)

// maxStringLen bounds the byte length of a string built with +.
const maxStringLen = 1 << 16

// engine evaluates expressions in a sandboxed Lua state. Variables are
// Lua globals; unset ones read as 0, or "" for string names.
//
// gopher-lua states are not goroutine safe; the owning Interpreter
// serializes access.
type engine struct {
	L   *lua.LState
	out repl.Output
}

func newEngine() *engine {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	L.SetTop(0)

	e := &engine{L: L}
	e.sandbox()
	e.installOperators()
	e.installFunctions()
	return e
}

func (e *engine) close() {
	e.L.Close()
}

// sandbox removes loaders and routes print to the current output.
func (e *engine) sandbox() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		e.L.SetGlobal(name, lua.LNil)
	}

	e.L.SetGlobal("print", e.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = formatValue(L.Get(i))
		}
		if e.out != nil {
			e.out.Print(strings.Join(parts, "\t") + "\n")
		}
		return 0
	}))
}

// installOperators adds string concatenation with + and defaults for
// unset globals.
func (e *engine) installOperators() {
	L := e.L

	strMeta := L.NewTable()
	strMeta.RawSetString("__add", L.NewFunction(func(L *lua.LState) int {
		a, b := L.Get(1), L.Get(2)
		as, aok := a.(lua.LString)
		bs, bok := b.(lua.LString)
		if !aok || !bok {
			L.RaiseError("%v: cannot add %s and %s", ErrTypeMismatch, a.Type(), b.Type())
			return 0
		}
		if len(as)+len(bs) > maxStringLen {
			L.RaiseError("string too long: %d bytes exceeds %d", len(as)+len(bs), maxStringLen)
			return 0
		}
		L.Push(as + bs)
		return 1
	}))
	L.SetMetatable(lua.LString(""), strMeta)

	globalsMeta := L.NewTable()
	globalsMeta.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		if isStringName(lua.LVAsString(L.Get(2))) {
			L.Push(lua.LString(""))
		} else {
			L.Push(lua.LNumber(0))
		}
		return 1
	}))
	L.SetMetatable(L.G.Global, globalsMeta)
}

func (e *engine) installFunctions() {
	num := func(fn func(float64) float64) lua.LGFunction {
		return func(L *lua.LState) int {
			L.Push(lua.LNumber(fn(float64(L.CheckNumber(1)))))
			return 1
		}
	}

	funcs := map[string]lua.LGFunction{
		"abs": num(math.Abs),
		"int": num(math.Floor),
		"sin": num(math.Sin),
		"cos": num(math.Cos),
		"tan": num(math.Tan),
		"atn": num(math.Atan),
		"exp": num(math.Exp),
		"sgn": num(func(f float64) float64 {
			switch {
			case f > 0:
				return 1
			case f < 0:
				return -1
			}
			return 0
		}),
		"sqr": func(L *lua.LState) int {
			f := float64(L.CheckNumber(1))
			if f < 0 {
				L.ArgError(1, "negative value")
			}
			L.Push(lua.LNumber(math.Sqrt(f)))
			return 1
		},
		"log": func(L *lua.LState) int {
			f := float64(L.CheckNumber(1))
			if f <= 0 {
				L.ArgError(1, "value must be positive")
			}
			L.Push(lua.LNumber(math.Log(f)))
			return 1
		},
		"rnd": func(L *lua.LState) int {
			L.Push(lua.LNumber(rand.Float64()))
			return 1
		},
		"len": func(L *lua.LState) int {
			L.Push(lua.LNumber(utf8.RuneCountInString(L.CheckString(1))))
			return 1
		},
		"asc": func(L *lua.LState) int {
			s := L.CheckString(1)
			if s == "" {
				L.ArgError(1, "empty string")
			}
			r, _ := utf8.DecodeRuneInString(s)
			L.Push(lua.LNumber(r))
			return 1
		},
		"val": func(L *lua.LState) int {
			f, err := strconv.ParseFloat(strings.TrimSpace(L.CheckString(1)), 64)
			if err != nil {
				f = 0
			}
			L.Push(lua.LNumber(f))
			return 1
		},
		"chr_S": func(L *lua.LState) int {
			L.Push(lua.LString(string(rune(L.CheckInt(1)))))
			return 1
		},
		"str_S": func(L *lua.LState) int {
			L.Push(lua.LString(formatNumber(float64(L.CheckNumber(1)))))
			return 1
		},
		"ucase_S": func(L *lua.LState) int {
			L.Push(lua.LString(strings.ToUpper(L.CheckString(1))))
			return 1
		},
		"lcase_S": func(L *lua.LState) int {
			L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
			return 1
		},
		"left_S": func(L *lua.LState) int {
			rs := []rune(L.CheckString(1))
			n := clampInt(L.CheckInt(2), 0, len(rs))
			L.Push(lua.LString(string(rs[:n])))
			return 1
		},
		"right_S": func(L *lua.LState) int {
			rs := []rune(L.CheckString(1))
			n := clampInt(L.CheckInt(2), 0, len(rs))
			L.Push(lua.LString(string(rs[len(rs)-n:])))
			return 1
		},
		"mid_S": func(L *lua.LState) int {
			rs := []rune(L.CheckString(1))
			start := clampInt(L.CheckInt(2)-1, 0, len(rs))
			n := clampInt(L.OptInt(3, len(rs)), 0, len(rs)-start)
			L.Push(lua.LString(string(rs[start : start+n])))
			return 1
		},
	}
	for name, fn := range funcs {
		e.L.SetGlobal(name, e.L.NewFunction(fn))
	}
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// eval evaluates a BASIC expression.
func (e *engine) eval(expr string) (lua.LValue, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, syntaxErrorf("missing expression")
	}
	code, err := translate(expr)
	if err != nil {
		return nil, err
	}
	fn, err := e.L.LoadString("return " + code)
	if err != nil {
		return nil, syntaxErrorf("%s", strings.TrimSpace(expr))
	}
	return e.call(fn)
}

func (e *engine) call(fn *lua.LFunction) (v lua.LValue, err error) {
	top := e.L.GetTop()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		e.L.SetTop(top)
	}()

	e.L.Push(fn)
	if err := e.L.PCall(0, 1, nil); err != nil {
		return nil, cleanError(err)
	}
	return e.L.Get(-1), nil
}

// evalNumber evaluates expr and requires a number.
func (e *engine) evalNumber(expr string) (float64, error) {
	v, err := e.eval(expr)
	if err != nil {
		return 0, err
	}
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, typeMismatchf("%s is not a number", strings.TrimSpace(expr))
	}
	return float64(n), nil
}

// evalInt evaluates expr and truncates it to an int.
func (e *engine) evalInt(expr string) (int, error) {
	f, err := e.evalNumber(expr)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, typeMismatchf("%s is not finite", strings.TrimSpace(expr))
	}
	return int(f), nil
}

// evalString evaluates expr and requires a string.
func (e *engine) evalString(expr string) (string, error) {
	v, err := e.eval(expr)
	if err != nil {
		return "", err
	}
	s, ok := v.(lua.LString)
	if !ok {
		return "", typeMismatchf("%s is not a string", strings.TrimSpace(expr))
	}
	return string(s), nil
}

// evalBool evaluates a condition. nil, false and 0 are false.
func (e *engine) evalBool(expr string) (bool, error) {
	v, err := e.eval(expr)
	if err != nil {
		return false, err
	}
	if n, ok := v.(lua.LNumber); ok {
		return n != 0, nil
	}
	return !lua.LVIsFalse(v), nil
}

// assign stores v in the variable ident.
func (e *engine) assign(ident string, v lua.LValue) error {
	name := luaName(ident)
	_, isStr := v.(lua.LString)
	if isStringName(name) != isStr {
		return typeMismatchf("cannot assign %s to %s", v.Type(), ident)
	}
	e.L.G.Global.RawSetString(name, v)
	return nil
}

var luaPosition = regexp.MustCompile(`<string>:\d+:\s*`)

// cleanError strips Lua source positions from runtime errors.
func cleanError(err error) error {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return errors.New(luaPosition.ReplaceAllString(apiErr.Object.String(), ""))
	}
	return err
}

func formatValue(v lua.LValue) string {
	switch v := v.(type) {
	case lua.LNumber:
		return formatNumber(float64(v))
	case lua.LBool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case lua.LString:
		return string(v)
	case *lua.LNilType:
		return ""
	default:
		return v.String()
	}
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
