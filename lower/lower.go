// Package lower walks the syntax tree and resolves names. The terminal action
// for each node is delegated to a Target, so interpretation and code
// generation share the same traversal order and the same failures.
package lower

import (
	"fmt"

	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/env"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/types"
)

// Body lowers a function body in a fresh frame bound to args.
type Body[V any] func(args []V) (V, error)

// Branch lowers one arm of a conditional.
type Branch[V any] func() (V, error)

type Target[V any] interface {
	Constant(x float64) V
	// Binary applies one of + - * / < >.
	Binary(op rune, lhs, rhs V) (V, error)
	// Conditional must run exactly one of then and els.
	Conditional(cond V, then, els Branch[V]) (V, error)
	// Load reads the current value of a global binding.
	Load(name string, slot V) V

	Invoke(callee ast.Prototype, args []V) (V, error)
	Declare(proto ast.Prototype) (V, error)
	Function(proto ast.Prototype, body Body[V]) (V, error)
	// Global runs init and returns the slot to bind name to.
	Global(name string, init Branch[V]) (V, error)
}

type Walker[V any] struct {
	Env    *env.Environment[V]
	Target Target[V]

	frame *env.Frame[V]
}

func NewWalker[V any](e *env.Environment[V], t Target[V]) *Walker[V] {
	return &Walker[V]{Env: e, Target: t}
}

func isOperator(op rune) bool {
	switch op {
	case '+', '-', '*', '/', '<', '>':
		return true
	}
	return false
}

func (w *Walker[V]) Lower(e ast.Expression) (V, error) {
	var zero V

	switch expr := e.(type) {
	case ast.Number:
		return w.Target.Constant(expr.Value), nil
	case ast.Variable:
		b, err := w.Env.LookupVariable(w.frame, expr.Name, expr.Pos)
		if err != nil {
			return zero, err
		}
		if b.Global {
			return w.Target.Load(expr.Name, b.Value), nil
		}
		return b.Value, nil
	case ast.Binary:
		lhs, err := w.Lower(expr.LHS)
		if err != nil {
			return zero, err
		}
		rhs, err := w.Lower(expr.RHS)
		if err != nil {
			return zero, err
		}
		if !isOperator(expr.Op) {
			return zero, errors.UnknownOperator{Op: expr.Op, Location: expr.Pos}
		}
		return w.Target.Binary(expr.Op, lhs, rhs)
	case ast.Call:
		return w.call(expr.Callee.Name, expr.Callee.Pos, expr.Arguments)
	case ast.If:
		cond, err := w.Lower(expr.Condition)
		if err != nil {
			return zero, err
		}
		return w.Target.Conditional(cond,
			func() (V, error) { return w.Lower(expr.Then) },
			func() (V, error) { return w.Lower(expr.Else) },
		)
	default:
		panic(fmt.Sprintf("unhandled expression %T", e))
	}
}

func (w *Walker[V]) call(name string, pos types.Span, args []ast.Expression) (V, error) {
	var zero V

	proto, err := w.Env.LookupFunction(name, pos)
	if err != nil {
		return zero, err
	}
	if len(proto.Params) != len(args) {
		return zero, errors.ArityMismatch{Name: name, Expected: len(proto.Params), Got: len(args), Location: pos}
	}

	vals := make([]V, 0, len(args))
	for _, arg := range args {
		v, err := w.Lower(arg)
		if err != nil {
			return zero, err
		}
		vals = append(vals, v)
	}

	return w.Target.Invoke(proto, vals)
}

// Call invokes a declared function with already lowered arguments.
func (w *Walker[V]) Call(name string, args []V) (V, error) {
	var zero V

	proto, err := w.Env.LookupFunction(name, types.Span{})
	if err != nil {
		return zero, err
	}
	if len(proto.Params) != len(args) {
		return zero, errors.ArityMismatch{Name: name, Expected: len(proto.Params), Got: len(args), Location: proto.Pos}
	}
	return w.Target.Invoke(proto, args)
}

// TopLevel registers a declaration with the environment and the target.
func (w *Walker[V]) TopLevel(tl ast.TopLevel) (V, error) {
	var zero V

	switch t := tl.(type) {
	case ast.Prototype:
		w.Env.DeclareFunction(t)
		return w.Target.Declare(t)
	case ast.Function:
		// a definition that fails to lower leaves the previous signature, or
		// none at all
		prev, missing := w.Env.LookupFunction(t.Proto.Name, t.Proto.Pos)
		w.Env.DeclareFunction(t.Proto)
		v, err := w.Target.Function(t.Proto, w.body(t))
		if err != nil {
			if missing == nil {
				w.Env.DeclareFunction(prev)
			} else {
				w.Env.RemoveFunction(t.Proto.Name)
			}
		}
		return v, err
	case ast.Global:
		slot, err := w.Target.Global(t.Name.Name, func() (V, error) { return w.Lower(t.Value) })
		if err != nil {
			return zero, err
		}
		w.Env.DefineGlobal(t.Name.Name, slot)
		return slot, nil
	default:
		panic(fmt.Sprintf("unhandled top level %T", tl))
	}
}

func (w *Walker[V]) body(fn ast.Function) Body[V] {
	return func(args []V) (V, error) {
		var zero V

		frame, err := w.Env.BeginCall(fn.Proto.Params, args)
		if err != nil {
			if am, ok := err.(errors.ArityMismatch); ok {
				am.Name = fn.Proto.Name
				am.Location = fn.Proto.Pos
				err = am
			}
			return zero, err
		}

		saved := w.frame
		w.frame = frame
		defer func() { w.frame = saved }()

		return w.Lower(fn.Body)
	}
}
