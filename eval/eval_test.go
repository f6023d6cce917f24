package eval

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/lexer"
	"github.com/pontaoski/kaleigo/native"
	"github.com/pontaoski/kaleigo/parser"
)

func newInterpreter(opts ...native.Option) *Interpreter {
	opts = append([]native.Option{native.WithLibraries()}, opts...)
	return New(WithNatives(native.NewRegistry(opts...)))
}

// run executes every unit of input and returns the last value produced.
func run(t *testing.T, i *Interpreter, input string) (float64, error) {
	t.Helper()

	tls, err := parser.NewParser(lexer.NewLexer(strings.NewReader(input), "test")).Parse()
	if err != nil {
		t.Fatalf("%q: parse error: %s", input, err)
	}

	var last float64
	for _, tl := range tls {
		v, ok, err := i.Exec(tl)
		if err != nil {
			return 0, err
		}
		if ok {
			last = v
		}
	}
	return last, nil
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"3 + 4 * 2", 11},
		{"(3 + 4) * 2", 14},
		{"2 - 3 - 4", -5},
		{"2 + 3 * 4", 14},
		{"-5 + 3", -2},
		{"8 / 4 / 2", 1},
		{"1 / 4", 0.25},
		{"7", 7},
		{"1.5 * 2", 3},
		{"-(2 + 3) * 2", -10},
		{"1 < 2", 1},
		{"2 < 1", 0},
		{"3 > 2", 1},
		{"1 + 2 < 2 + 2", 1},
	}

	for _, c := range cases {
		got, err := run(t, newInterpreter(), c.input)
		if err != nil {
			t.Errorf("%q: %s", c.input, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestConditional(t *testing.T) {
	cases := []struct {
		input string
		want  float64
	}{
		{"if 0 then 1 else 2", 2},
		{"if 1 then 1 else 2", 1},
		{"if 0.5 then 1 else 2", 1},
		{"if 2 < 1 then 10 else 20", 20},
		{"if 1 then if 0 then 3 else 4 else 5", 4},
	}

	for _, c := range cases {
		got, err := run(t, newInterpreter(), c.input)
		if err != nil {
			t.Errorf("%q: %s", c.input, err)
			continue
		}
		if got != c.want {
			t.Errorf("%q = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestOnlySelectedBranchRuns(t *testing.T) {
	i := newInterpreter()

	calls := 0
	i.Natives().Register("tick", 0, func([]float64) float64 {
		calls++
		return 100
	})

	got, err := run(t, i, "extern tick(); if 1 then 1 else tick()")
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 || calls != 0 {
		t.Fatalf("got %v with %d calls of the untaken branch", got, calls)
	}

	got, err = run(t, i, "if 0 then tick() else 2")
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 || calls != 0 {
		t.Fatalf("got %v with %d calls of the untaken branch", got, calls)
	}

	got, err = run(t, i, "if 0 then 1 else tick()")
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 || calls != 1 {
		t.Fatalf("got %v with %d calls of the taken branch", got, calls)
	}
}

func TestFunctions(t *testing.T) {
	i := newInterpreter()

	got, err := run(t, i, `
def add(a b) a + b
def fib(n) if n < 3 then 1 else fib(n - 1) + fib(n - 2)
add(fib(10), 3)
`)
	if err != nil {
		t.Fatal(err)
	}
	if got != 58 {
		t.Fatalf("got %v, want 58", got)
	}

	if v, err := i.Call("add", 1, 2); err != nil || v != 3 {
		t.Fatalf("host call: %v, %v", v, err)
	}
}

func TestArgumentOrder(t *testing.T) {
	i := newInterpreter()

	var seen []float64
	i.Natives().Register("note", 1, func(args []float64) float64 {
		seen = append(seen, args[0])
		return args[0]
	})

	if _, err := run(t, i, "extern note(x); def three(a b c) c; three(note(1), note(2), note(3))"); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[1] != 2 || seen[2] != 3 {
		t.Fatalf("arguments evaluated as %v", seen)
	}
}

func TestGlobals(t *testing.T) {
	i := newInterpreter()

	if _, err := run(t, i, "def x = 4 * 2"); err != nil {
		t.Fatal(err)
	}
	got, err := run(t, i, "x + 1")
	if err != nil {
		t.Fatal(err)
	}
	if got != 9 {
		t.Fatalf("got %v", got)
	}

	if _, err := run(t, i, "def x = 1; def shadow(x) x * 10"); err != nil {
		t.Fatal(err)
	}
	if got, _ := run(t, i, "shadow(5) + x"); got != 51 {
		t.Fatalf("parameter should shadow the global, got %v", got)
	}

	_, err = run(t, i, "y + 1")
	if errors.KindOf(err) != errors.KindUndefinedVariable {
		t.Fatalf("expected UndefinedVariable, got %v", err)
	}
}

func TestParametersDoNotLeak(t *testing.T) {
	i := newInterpreter()

	_, err := run(t, i, "def f(a) a; f(1); a")
	if errors.KindOf(err) != errors.KindUndefinedVariable {
		t.Fatalf("expected UndefinedVariable after the call returned, got %v", err)
	}
}

func TestCallErrors(t *testing.T) {
	cases := []struct {
		input string
		want  errors.Kind
	}{
		{"def f(a b) a + b; f(1)", errors.KindArityMismatch},
		{"def f(a b) a + b; f(1, 2, 3)", errors.KindArityMismatch},
		{"nothere(1)", errors.KindUndefinedFunction},
		{"extern unimplemented(x); unimplemented(1)", errors.KindUndefinedFunction},
		{"def f(a) b; f(1)", errors.KindUndefinedVariable},
	}

	for _, c := range cases {
		_, err := run(t, newInterpreter(), c.input)
		if got := errors.KindOf(err); got != c.want {
			t.Errorf("%q: got %s (%v), want %s", c.input, got, err, c.want)
		}
	}
}

func TestDefinitionResolvesNames(t *testing.T) {
	cases := []struct {
		input string
		want  errors.Kind
	}{
		{"def f(x) y", errors.KindUndefinedVariable},
		{"def f(x) g(x)", errors.KindUndefinedFunction},
		{"def f(x) if x then 1 else missing", errors.KindUndefinedVariable},
		{"extern two(a b); def f(x) two(x)", errors.KindArityMismatch},
	}

	for _, c := range cases {
		i := newInterpreter()
		if _, err := run(t, i, c.input); errors.KindOf(err) != c.want {
			t.Errorf("%q: got %v, want %s", c.input, err, c.want)
		}
		if _, err := i.Call("f", 1); errors.KindOf(err) != errors.KindUndefinedFunction {
			t.Errorf("%q: failed definition is still callable: %v", c.input, err)
		}
	}
}

func TestDefinitionMakesNoCalls(t *testing.T) {
	i := newInterpreter()

	calls := 0
	i.Natives().Register("tick", 0, func([]float64) float64 {
		calls++
		return 1
	})

	if _, err := run(t, i, "extern tick(); def f(x) if x then tick() else tick() + tick()"); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Fatalf("defining f made %d calls", calls)
	}
	if v, err := i.Call("f", 0); err != nil || v != 2 || calls != 2 {
		t.Fatalf("f(0) = %v, %v after %d calls", v, err, calls)
	}
}

func TestFailedRedefinitionKeepsPrevious(t *testing.T) {
	i := newInterpreter()

	if _, err := run(t, i, "def f(a) a * 2"); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, i, "def f(a b) nope(a)"); errors.KindOf(err) != errors.KindUndefinedFunction {
		t.Fatalf("expected UndefinedFunction, got %v", err)
	}
	got, err := run(t, i, "f(3)")
	if err != nil || got != 6 {
		t.Fatalf("previous definition was lost: %v, %v", got, err)
	}
}

func TestRedefinition(t *testing.T) {
	i := newInterpreter()

	got, err := run(t, i, "def f(a) a; def f(a b) a * b; f(3, 4)")
	if err != nil {
		t.Fatal(err)
	}
	if got != 12 {
		t.Fatalf("last definition should win, got %v", got)
	}
}

func TestUnknownOperator(t *testing.T) {
	i := newInterpreter()

	fn := ast.Function{
		Proto:     ast.Prototype{Name: "__anon_expr.0"},
		Body:      ast.Binary{Op: '%', LHS: ast.Number{Value: 1}, RHS: ast.Number{Value: 2}},
		Anonymous: true,
	}
	if _, _, err := i.Exec(fn); errors.KindOf(err) != errors.KindUnknownOperator {
		t.Fatalf("expected UnknownOperator, got %v", err)
	}
}

func TestBuiltins(t *testing.T) {
	var out bytes.Buffer
	i := newInterpreter(native.WithOutput(&out))

	if _, err := run(t, i, "extern putchard(c); extern printd(x); putchard(65); printd(2)"); err != nil {
		t.Fatal(err)
	}
	if got := out.String(); got != "A2.000000\n" {
		t.Fatalf("got %q", got)
	}
}
