// Package env resolves names during lowering. It keeps the global frame,
// the function table and the per-call frames holding parameter bindings.
//
// An Environment is not safe for concurrent use; give each session its own.
package env

import (
	"sort"

	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/types"
	"github.com/sahilm/fuzzy"
)

// Frame binds the parameters of one call. A nil *Frame is the top level.
type Frame[V any] struct {
	vars map[string]V
}

func (f *Frame[V]) get(name string) (V, bool) {
	var zero V
	if f == nil {
		return zero, false
	}
	v, ok := f.vars[name]
	return v, ok
}

// Binding is a resolved variable. Global is set when the name came from the
// global frame rather than the active call frame.
type Binding[V any] struct {
	Value  V
	Global bool
}

type Environment[V any] struct {
	globals   map[string]V
	functions map[string]ast.Prototype
}

func New[V any]() *Environment[V] {
	return &Environment[V]{
		globals:   make(map[string]V),
		functions: make(map[string]ast.Prototype),
	}
}

// DeclareFunction registers proto, replacing any earlier signature with the
// same name.
func (e *Environment[V]) DeclareFunction(proto ast.Prototype) {
	e.functions[proto.Name] = proto
}

func (e *Environment[V]) RemoveFunction(name string) {
	delete(e.functions, name)
}

func (e *Environment[V]) LookupFunction(name string, pos types.Span) (ast.Prototype, error) {
	proto, ok := e.functions[name]
	if !ok {
		return ast.Prototype{}, errors.UndefinedFunction{
			Name:       name,
			Suggestion: suggest(name, e.FunctionNames()),
			Location:   pos,
		}
	}
	return proto, nil
}

// BeginCall returns a fresh frame binding each parameter to its argument.
func (e *Environment[V]) BeginCall(params []string, args []V) (*Frame[V], error) {
	if len(params) != len(args) {
		return nil, errors.ArityMismatch{Expected: len(params), Got: len(args)}
	}

	frame := &Frame[V]{vars: make(map[string]V, len(params))}
	for i, name := range params {
		frame.vars[name] = args[i]
	}
	return frame, nil
}

func (e *Environment[V]) DefineGlobal(name string, v V) {
	e.globals[name] = v
}

// LookupVariable searches frame, then the global frame.
func (e *Environment[V]) LookupVariable(frame *Frame[V], name string, pos types.Span) (Binding[V], error) {
	if v, ok := frame.get(name); ok {
		return Binding[V]{Value: v}, nil
	}
	if v, ok := e.globals[name]; ok {
		return Binding[V]{Value: v, Global: true}, nil
	}

	return Binding[V]{}, errors.UndefinedVariable{
		Name:       name,
		Suggestion: suggest(name, e.VariableNames(frame)),
		Location:   pos,
	}
}

func (e *Environment[V]) FunctionNames() []string {
	return sortedKeys(e.functions)
}

// VariableNames lists every name visible from frame.
func (e *Environment[V]) VariableNames(frame *Frame[V]) []string {
	names := sortedKeys(e.globals)
	if frame != nil {
		for name := range frame.vars {
			if _, ok := e.globals[name]; !ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
	}
	return names
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func suggest(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	matches := fuzzy.Find(name, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
