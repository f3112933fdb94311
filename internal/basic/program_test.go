package basic

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseProgramNumbering(t *testing.T) {
	p, err := ParseProgram("PRINT 1\n\n25 PRINT 2\nPRINT 3\n  \n100 END\n")
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if got := p.Numbers(); !reflect.DeepEqual(got, []int{10, 25, 30, 100}) {
		t.Errorf("Numbers = %v", got)
	}
	if text, _ := p.Line(30); text != "PRINT 3" {
		t.Errorf("line 30 = %q", text)
	}
}

func TestParseProgramRejectsLargeNumbers(t *testing.T) {
	if _, err := ParseProgram("99999 PRINT 1"); !errors.Is(err, ErrSyntax) {
		t.Errorf("ParseProgram = %v, expected ErrSyntax", err)
	}
}

func TestProgramTextRoundTrip(t *testing.T) {
	p := NewProgram()
	p.Set(20, `PRINT "b"`)
	p.Set(10, `PRINT "a"`)
	want := "10 PRINT \"a\"\n20 PRINT \"b\"\n"
	if got := p.Text(); got != want {
		t.Fatalf("Text = %q", got)
	}

	again, err := ParseProgram(p.Text())
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	if again.Text() != want {
		t.Errorf("reparsed Text = %q", again.Text())
	}
}

func TestProgramEditing(t *testing.T) {
	p := NewProgram()
	p.Set(10, "A")
	p.Set(10, "B")
	if text, _ := p.Line(10); text != "B" || p.Len() != 1 {
		t.Errorf("line 10 = %q, len %d", text, p.Len())
	}
	if !p.Delete(10) || p.Delete(10) {
		t.Error("Delete did not report existence")
	}
	p.Set(5, "X")
	p.Clear()
	if p.Len() != 0 {
		t.Errorf("Len after Clear = %d", p.Len())
	}
}

func TestCompileSplitsStatements(t *testing.T) {
	p := NewProgram()
	p.Set(10, "a = 1: PRINT a")
	lines := p.compile()
	if len(lines) != 1 || lines[0].number != 10 || len(lines[0].stmts) != 2 {
		t.Errorf("compile = %+v", lines)
	}
}
