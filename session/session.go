// Package session drives the pipeline for a host: it pulls top-level units
// from the parser one at a time, lowers each in interpretation or compilation
// mode, and reports failures without abandoning the rest of the input.
package session

import (
	"io"
	"log/slog"
	"os"

	"github.com/llir/llvm/ir/value"
	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/codegen"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/eval"
	"github.com/pontaoski/kaleigo/lexer"
	"github.com/pontaoski/kaleigo/native"
	"github.com/pontaoski/kaleigo/parser"
)

type Mode int

const (
	Interpret Mode = iota
	Compile
)

func (m Mode) String() string {
	if m == Compile {
		return "compile"
	}
	return "interpret"
}

// Diagnostics receives every parse and lowering failure.
type Diagnostics interface {
	Report(kind errors.Kind, err error)
}

type DiagnosticsFunc func(kind errors.Kind, err error)

func (f DiagnosticsFunc) Report(kind errors.Kind, err error) {
	f(kind, err)
}

// Result is what one successfully lowered unit produced.
type Result struct {
	Unit ast.TopLevel
	// Value and HasValue are set for bare expressions and globals when
	// interpreting.
	Value    float64
	HasValue bool
	// Emitted is the function or global produced when compiling.
	Emitted value.Value
}

type Session struct {
	mode     Mode
	interp   *eval.Interpreter
	gen      *codegen.Generator
	natives  *native.Registry
	pkg      string
	diag     Diagnostics
	logger   *slog.Logger
	onResult func(Result)
}

type Option func(*Session)

func WithDiagnostics(d Diagnostics) Option {
	return func(s *Session) {
		s.diag = d
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithResults is called after every unit that lowers without error.
func WithResults(fn func(Result)) Option {
	return func(s *Session) {
		s.onResult = fn
	}
}

// WithNatives sets the extern implementations used when interpreting.
func WithNatives(r *native.Registry) Option {
	return func(s *Session) {
		s.natives = r
	}
}

// WithPackage names the module built when compiling.
func WithPackage(name string) Option {
	return func(s *Session) {
		s.pkg = name
	}
}

func New(mode Mode, opts ...Option) *Session {
	s := &Session{
		mode:     mode,
		diag:     NewPrinter(os.Stderr, false),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		onResult: func(Result) {},
	}
	for _, opt := range opts {
		opt(s)
	}

	switch mode {
	case Compile:
		s.gen = codegen.New(codegen.WithPackage(s.pkg))
	default:
		if s.natives == nil {
			s.natives = native.NewRegistry()
		}
		s.interp = eval.New(eval.WithNatives(s.natives))
	}
	return s
}

func (s *Session) Mode() Mode {
	return s.mode
}

// Interpreter is nil when compiling.
func (s *Session) Interpreter() *eval.Interpreter {
	return s.interp
}

// Generator is nil when interpreting.
func (s *Session) Generator() *codegen.Generator {
	return s.gen
}

// Run processes every unit in r and returns how many failed.
func (s *Session) Run(r io.Reader, filename string) int {
	p := parser.NewParser(lexer.NewLexer(r, filename))
	failures := 0

	for {
		tl, err := p.ParseTopLevel()
		if err == io.EOF {
			s.logger.Debug("end of input", "file", filename, "failures", failures)
			return failures
		}
		if err != nil {
			s.report(err)
			failures++
			continue
		}
		s.logger.Debug(describe(tl), "file", filename)

		res, err := s.exec(tl)
		if err != nil {
			s.report(err)
			failures++
			continue
		}
		s.onResult(res)
	}
}

// RunFile runs the file at path. The error is only for failing to open it.
func (s *Session) RunFile(path string) (int, error) {
	handle, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer handle.Close()

	return s.Run(handle, path), nil
}

func (s *Session) exec(tl ast.TopLevel) (Result, error) {
	res := Result{Unit: tl}

	if s.mode == Compile {
		v, err := s.gen.Exec(tl)
		res.Emitted = v
		return res, err
	}

	v, ok, err := s.interp.Exec(tl)
	res.Value, res.HasValue = v, ok
	return res, err
}

func (s *Session) report(err error) {
	kind := errors.KindOf(err)
	s.logger.Debug("unit failed", "kind", kind.String(), "error", err.Error())
	s.diag.Report(kind, err)
}

func describe(tl ast.TopLevel) string {
	switch t := tl.(type) {
	case ast.Prototype:
		return "parsed an extern"
	case ast.Function:
		if t.Anonymous {
			return "parsed a top-level expr"
		}
		return "parsed a function definition"
	case ast.Global:
		return "parsed a global definition"
	}
	return "parsed a unit"
}
