// Package eval interprets top-level units directly to float64 results.
package eval

import (
	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/env"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/lower"
	"github.com/pontaoski/kaleigo/native"
)

type Interpreter struct {
	walker  *lower.Walker[float64]
	bodies  map[string]lower.Body[float64]
	natives *native.Registry

	// checking is set while a new body is walked for name resolution only
	checking bool
}

type Option func(*Interpreter)

func WithNatives(r *native.Registry) Option {
	return func(i *Interpreter) {
		i.natives = r
	}
}

func New(opts ...Option) *Interpreter {
	i := &Interpreter{
		bodies: make(map[string]lower.Body[float64]),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.natives == nil {
		i.natives = native.NewRegistry()
	}
	i.walker = lower.NewWalker[float64](env.New[float64](), i)
	return i
}

func (i *Interpreter) Env() *env.Environment[float64] {
	return i.walker.Env
}

func (i *Interpreter) Natives() *native.Registry {
	return i.natives
}

// Exec lowers one unit. Bare expressions and global definitions produce a
// value; definitions and externs only update the environment.
func (i *Interpreter) Exec(tl ast.TopLevel) (float64, bool, error) {
	v, err := i.walker.TopLevel(tl)
	if err != nil {
		return 0, false, err
	}

	switch t := tl.(type) {
	case ast.Function:
		if !t.Anonymous {
			return 0, false, nil
		}
		defer delete(i.bodies, t.Proto.Name)
		v, err := i.walker.Call(t.Proto.Name, nil)
		if err != nil {
			return 0, false, err
		}
		return v, true, nil
	case ast.Global:
		return v, true, nil
	}
	return 0, false, nil
}

// Call runs a defined or native function from the host.
func (i *Interpreter) Call(name string, args ...float64) (float64, error) {
	return i.walker.Call(name, args)
}

func (i *Interpreter) Constant(x float64) float64 {
	return x
}

func boolean(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (i *Interpreter) Binary(op rune, lhs, rhs float64) (float64, error) {
	switch op {
	case '+':
		return lhs + rhs, nil
	case '-':
		return lhs - rhs, nil
	case '*':
		return lhs * rhs, nil
	case '/':
		return lhs / rhs, nil
	case '<':
		return boolean(lhs < rhs), nil
	case '>':
		return boolean(lhs > rhs), nil
	}
	return 0, errors.UnknownOperator{Op: op}
}

func (i *Interpreter) Conditional(cond float64, then, els lower.Branch[float64]) (float64, error) {
	if i.checking {
		if _, err := then(); err != nil {
			return 0, err
		}
		return els()
	}
	if cond != 0 {
		return then()
	}
	return els()
}

func (i *Interpreter) Load(name string, slot float64) float64 {
	return slot
}

func (i *Interpreter) Invoke(callee ast.Prototype, args []float64) (float64, error) {
	if i.checking {
		return 0, nil
	}
	if body, ok := i.bodies[callee.Name]; ok {
		return body(args)
	}

	fn, ok := i.natives.Resolve(callee.Name, len(args))
	if !ok {
		return 0, errors.UndefinedFunction{Name: callee.Name, Declared: true, Location: callee.Pos}
	}
	if fn.Arity != len(args) {
		return 0, errors.ArityMismatch{Name: callee.Name, Expected: fn.Arity, Got: len(args), Location: callee.Pos}
	}
	return fn.Call(args), nil
}

func (i *Interpreter) Declare(proto ast.Prototype) (float64, error) {
	return 0, nil
}

// Function resolves every name in the body once, with the parameters bound
// to zero and no calls made, before storing it.
func (i *Interpreter) Function(proto ast.Prototype, body lower.Body[float64]) (float64, error) {
	i.checking = true
	_, err := body(make([]float64, len(proto.Params)))
	i.checking = false
	if err != nil {
		return 0, err
	}

	i.bodies[proto.Name] = body
	return 0, nil
}

func (i *Interpreter) Global(name string, init lower.Branch[float64]) (float64, error) {
	return init()
}
