package parser

import (
	"io"
	"strings"
	"testing"

	"github.com/alecthomas/repr"
	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/lexer"
)

func newParser(input string) *Parser {
	return NewParser(lexer.NewLexer(strings.NewReader(input), "test"))
}

func parseOne(t *testing.T, input string) ast.TopLevel {
	t.Helper()

	tl, err := newParser(input).ParseTopLevel()
	if err != nil {
		t.Fatalf("%q: unexpected error: %s", input, err)
	}
	return tl
}

func TestExpressions(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"3 + 4 * 2", "(+ 3 (* 4 2))"},
		{"(3 + 4) * 2", "(* (+ 3 4) 2)"},
		{"2 - 3 - 4", "(- (- 2 3) 4)"},
		{"2 + 3 * 4", "(+ 2 (* 3 4))"},
		{"8 / 4 / 2", "(/ (/ 8 4) 2)"},
		{"1 + 2 * 3 - 4", "(- (+ 1 (* 2 3)) 4)"},
		{"a < b + c * d", "(< a (+ b (* c d)))"},
		{"a * b < c", "(< (* a b) c)"},
		{"1 < 2 > 0", "(> (< 1 2) 0)"},
		{"-5 + 3", "(+ (- 0 5) 3)"},
		{"-x * 2", "(* (- 0 x) 2)"},
		{"--1", "(- 0 (- 0 1))"},
		{"2 * -3", "(* 2 (- 0 3))"},
		{"f()", "(f)"},
		{"f(1, x + 1, g(y))", "(f 1 (+ x 1) (g y))"},
		{"if x < 3 then 1 else f(x - 1) * 2", "(if (< x 3) 1 (* (f (- x 1)) 2))"},
		{"if a then if b then 1 else 2 else 3", "(if a (if b 1 2) 3)"},
	}

	for _, c := range cases {
		tl := parseOne(t, c.input)
		fn, ok := tl.(ast.Function)
		if !ok || !fn.Anonymous {
			t.Fatalf("%q: expected an anonymous function, got %s", c.input, repr.String(tl))
		}
		if got := ast.Format(fn.Body); got != c.want {
			t.Errorf("%q: got %s, want %s", c.input, got, c.want)
		}
	}
}

func TestDefinitions(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"def add(a b) a + b", "(def add(a b) (+ a b))"},
		{"def zero() 0", "(def zero() 0)"},
		{"extern sin(x)", "(extern sin(x))"},
		{"extern atan2(y x)", "(extern atan2(y x))"},
		{"def x = 3 * 2", "(def x (* 3 2))"},
	}

	for _, c := range cases {
		if got := ast.Format(parseOne(t, c.input)); got != c.want {
			t.Errorf("%q: got %s, want %s", c.input, got, c.want)
		}
	}
}

func TestAnonymousNames(t *testing.T) {
	p := newParser("1; 2; def f() 3; 4")

	tls, err := p.Parse()
	if err != nil {
		t.Fatal(err)
	}

	var names []string
	for _, tl := range tls {
		names = append(names, tl.(ast.Function).Proto.Name)
	}
	want := "__anon_expr.0 __anon_expr.1 f __anon_expr.2"
	if got := strings.Join(names, " "); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestErrors(t *testing.T) {
	cases := []struct {
		input   string
		message string
	}{
		{"(3 + 4", "to close parenthesised expression"},
		{"def f(x x) x", "parameter x of f specified more than once"},
		{"def f(x, y) x", "in prototype"},
		{"def 1(x) x", "expected a IDENT"},
		{"extern (x)", "expected a IDENT"},
		{"if 1 2 else 3", "expected a THEN"},
		{"if 1 then 2", "expected a ELSE"},
		{"f(1 2)", "in argument list"},
		{")", "when expecting an expression"},
		{"1 + ", "when expecting an expression"},
	}

	for _, c := range cases {
		_, err := newParser(c.input).ParseTopLevel()
		if err == nil {
			t.Errorf("%q: expected an error", c.input)
			continue
		}
		if errors.KindOf(err) != errors.KindParse {
			t.Errorf("%q: got kind %s for %s", c.input, errors.KindOf(err), err)
		}
		if !strings.Contains(err.Error(), c.message) {
			t.Errorf("%q: message %q does not mention %q", c.input, err, c.message)
		}
	}
}

func TestErrorIsolation(t *testing.T) {
	p := newParser("(3 + 4; 1 + 2")

	if _, err := p.ParseTopLevel(); errors.KindOf(err) != errors.KindParse {
		t.Fatalf("expected a parse error, got %v", err)
	}

	tl, err := p.ParseTopLevel()
	if err != nil {
		t.Fatalf("unit after the error failed: %s", err)
	}
	if got := ast.Format(tl); got != "(+ 1 2)" {
		t.Fatalf("got %s", got)
	}

	if _, err := p.ParseTopLevel(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestRecoveryStopsAtDefinition(t *testing.T) {
	p := newParser("1 + ) 2 3 def f(x) x")

	if _, err := p.ParseTopLevel(); err == nil {
		t.Fatal("expected an error")
	}
	tl, err := p.ParseTopLevel()
	if err != nil {
		t.Fatal(err)
	}
	if got := ast.Format(tl); got != "(def f(x) x)" {
		t.Fatalf("got %s", got)
	}
}

func TestRecoveryStopsAtLineBreak(t *testing.T) {
	p := newParser("(3 + 4\n1 + 2\n) 9\n7 * 2 oops(\ndef g(x) x\n")

	if _, err := p.ParseTopLevel(); errors.KindOf(err) != errors.KindParse {
		t.Fatalf("expected a parse error, got %v", err)
	}
	if got := ast.Format(parseOneFrom(t, p)); got != "(+ 1 2)" {
		t.Fatalf("unit on the next line was dropped, got %s", got)
	}

	if _, err := p.ParseTopLevel(); errors.KindOf(err) != errors.KindParse {
		t.Fatalf("expected the stray ')' to fail, got %v", err)
	}
	if got := ast.Format(parseOneFrom(t, p)); got != "(* 7 2)" {
		t.Fatalf("got %s", got)
	}

	if _, err := p.ParseTopLevel(); errors.KindOf(err) != errors.KindParse {
		t.Fatalf("expected the unclosed call to fail, got %v", err)
	}
	if got := ast.Format(parseOneFrom(t, p)); got != "(def g(x) x)" {
		t.Fatalf("got %s", got)
	}
}

// chunkReader hands out one chunk per Read and counts the calls.
type chunkReader struct {
	chunks []string
	reads  int
}

func (c *chunkReader) Read(b []byte) (int, error) {
	if c.reads >= len(c.chunks) {
		return 0, io.EOF
	}
	n := copy(b, c.chunks[c.reads])
	c.reads++
	return n, nil
}

func TestErrorReportedWithoutReadingAhead(t *testing.T) {
	in := &chunkReader{chunks: []string{"(3 + 4\n", "5\n", "1 + 2\n"}}
	p := NewParser(lexer.NewLexer(in, "stdin"))

	if _, err := p.ParseTopLevel(); errors.KindOf(err) != errors.KindParse {
		t.Fatalf("expected a parse error, got %v", err)
	}
	if in.reads != 2 {
		t.Fatalf("error needed %d reads, want 2", in.reads)
	}

	if got := ast.Format(parseOneFrom(t, p)); got != "5" {
		t.Fatalf("got %s", got)
	}
	if got := ast.Format(parseOneFrom(t, p)); got != "(+ 1 2)" {
		t.Fatalf("got %s", got)
	}
}

func TestUnknownOperatorEndsExpression(t *testing.T) {
	p := newParser("1 % 2")

	tl := parseOneFrom(t, p)
	if got := ast.Format(tl); got != "1" {
		t.Fatalf("got %s", got)
	}
	if _, err := p.ParseTopLevel(); errors.KindOf(err) != errors.KindParse {
		t.Fatalf("expected the dangling operator to fail, got %v", err)
	}
}

func parseOneFrom(t *testing.T, p *Parser) ast.TopLevel {
	t.Helper()

	tl, err := p.ParseTopLevel()
	if err != nil {
		t.Fatal(err)
	}
	return tl
}

func TestPrecedence(t *testing.T) {
	for op, want := range map[rune]int{'<': 10, '>': 10, '+': 20, '-': 20, '*': 40, '/': 40, '%': -1, '=': -1} {
		if got := Precedence(op); got != want {
			t.Errorf("Precedence(%c) = %d, want %d", op, got, want)
		}
	}
}
