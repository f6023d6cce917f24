package errors

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/pontaoski/kaleigo/types"
	"github.com/ztrue/tracerr"
)

// Kind classifies a failure for the diagnostics sink.
type Kind int

const (
	KindUnknown Kind = iota
	KindLex
	KindParse
	KindUndefinedVariable
	KindUndefinedFunction
	KindArityMismatch
	KindUnknownOperator
)

func (k Kind) String() string {
	data := map[Kind]string{
		KindUnknown:           "error",
		KindLex:               "lex error",
		KindParse:             "parse error",
		KindUndefinedVariable: "undefined variable",
		KindUndefinedFunction: "undefined function",
		KindArityMismatch:     "arity mismatch",
		KindUnknownOperator:   "unknown operator",
	}
	return data[k]
}

type kinded interface {
	Kind() Kind
}

// KindOf returns the Kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	err = tracerr.Unwrap(err)

	var k kinded
	if stderrors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

type ReadFailure struct {
	Err      error
	Location types.Span
}

func (e ReadFailure) Error() string {
	return fmt.Sprintf("could not read input: %s. %s", e.Err, e.Location)
}

func (e ReadFailure) Unwrap() error { return e.Err }
func (ReadFailure) Kind() Kind      { return KindLex }

type ExpectedKindGotKind struct {
	Expected types.TokenKind
	Got      types.Token
}

func (e ExpectedKindGotKind) Error() string {
	return fmt.Sprintf("got %s, expected a %s. %s", e.Got, e.Expected, e.Got.Location)
}

func (ExpectedKindGotKind) Kind() Kind { return KindParse }

type ExpectedCharGotToken struct {
	Expected []rune
	Got      types.Token
	Context  string
}

func (e ExpectedCharGotToken) Error() string {
	var want []string
	for _, r := range e.Expected {
		want = append(want, fmt.Sprintf("'%c'", r))
	}
	return fmt.Sprintf("got %s, expected %s %s. %s", e.Got, strings.Join(want, " or "), e.Context, e.Got.Location)
}

func (ExpectedCharGotToken) Kind() Kind { return KindParse }

type UnexpectedToken struct {
	Got types.Token
}

func (e UnexpectedToken) Error() string {
	return fmt.Sprintf("unknown token %s when expecting an expression. %s", e.Got, e.Got.Location)
}

func (UnexpectedToken) Kind() Kind { return KindParse }

type DuplicateParameter struct {
	Name     string
	Function string
	Location types.Span
}

func (e DuplicateParameter) Error() string {
	return fmt.Sprintf("parameter %s of %s specified more than once. %s", e.Name, e.Function, e.Location)
}

func (DuplicateParameter) Kind() Kind { return KindParse }

type UndefinedVariable struct {
	Name       string
	Suggestion string
	Location   types.Span
}

func (e UndefinedVariable) Error() string {
	msg := fmt.Sprintf("unknown variable name %s", e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Suggestion)
	}
	return msg + ". " + e.Location.String()
}

func (UndefinedVariable) Kind() Kind { return KindUndefinedVariable }

type UndefinedFunction struct {
	Name       string
	Suggestion string
	// Declared is set when a prototype exists but nothing implements it.
	Declared bool
	Location types.Span
}

func (e UndefinedFunction) Error() string {
	msg := fmt.Sprintf("unknown function referenced: %s", e.Name)
	if e.Declared {
		msg = fmt.Sprintf("function %s is declared but has no definition", e.Name)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %s?)", e.Suggestion)
	}
	return msg + ". " + e.Location.String()
}

func (UndefinedFunction) Kind() Kind { return KindUndefinedFunction }

type ArityMismatch struct {
	Name     string
	Expected int
	Got      int
	Location types.Span
}

func (e ArityMismatch) Error() string {
	name := e.Name
	if name == "" {
		name = "call"
	}
	return fmt.Sprintf("%s takes %d arguments, got %d. %s", name, e.Expected, e.Got, e.Location)
}

func (ArityMismatch) Kind() Kind { return KindArityMismatch }

type UnknownOperator struct {
	Op       rune
	Location types.Span
}

func (e UnknownOperator) Error() string {
	return fmt.Sprintf("invalid binary operator '%c'. %s", e.Op, e.Location)
}

func (UnknownOperator) Kind() Kind { return KindUnknownOperator }
