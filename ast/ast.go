// Package ast holds the syntax tree produced by the parser. Expression and
// TopLevel are closed sets: only the types in this file implement them.
package ast

import "github.com/pontaoski/kaleigo/types"

type Identifier struct {
	Name string
	Pos  types.Span
}

type Expression interface {
	isExpression()
}

type Number struct {
	Value float64
	Pos   types.Span
}

func (v Number) isExpression() {}

type Variable Identifier

func (v Variable) isExpression() {}

type Binary struct {
	Op  rune
	LHS Expression
	RHS Expression
	Pos types.Span
}

func (v Binary) isExpression() {}

type Call struct {
	Callee    Identifier
	Arguments []Expression
}

func (v Call) isExpression() {}

type If struct {
	Condition Expression
	Then      Expression
	Else      Expression
	Pos       types.Span
}

func (v If) isExpression() {}

type TopLevel interface {
	isTopLevel()
}

// Prototype is a function signature. On its own it is the result of an
// extern declaration.
type Prototype struct {
	Name   string
	Params []string
	Pos    types.Span
}

func (v Prototype) isTopLevel() {}

type Function struct {
	Proto Prototype
	Body  Expression
	// Anonymous marks the wrapper the parser builds around a bare expression.
	Anonymous bool
}

func (v Function) isTopLevel() {}

// Global is a top-level `def name = expression`.
type Global struct {
	Name  Identifier
	Value Expression
}

func (v Global) isTopLevel() {}
