// Package codegen lowers top-level units into an LLVM IR module. Every value
// is a double; comparisons produce 0.0 or 1.0.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/env"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/lower"
)

// InitFunction runs every global initializer in definition order. Finish
// emits it.
const InitFunction = "__kaleido_init"

var zero = constant.NewFloat(types.Double, 0)

type Generator struct {
	Module *ir.Module

	walker  *lower.Walker[value.Value]
	funcs   map[string]*ir.Func
	globals map[string]*ir.Global
	inits   []*ir.Func
	pkg     string

	fn       *ir.Func
	block    *ir.Block
	blocks   int
	finished bool
}

type Option func(*Generator)

// WithPackage names the module and its signature table.
func WithPackage(name string) Option {
	return func(g *Generator) {
		g.pkg = name
		g.Module.SourceFilename = name
	}
}

func New(opts ...Option) *Generator {
	g := &Generator{
		Module:  ir.NewModule(),
		funcs:   make(map[string]*ir.Func),
		globals: make(map[string]*ir.Global),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.walker = lower.NewWalker[value.Value](env.New[value.Value](), g)
	return g
}

func (g *Generator) Env() *env.Environment[value.Value] {
	return g.walker.Env
}

// Exec lowers one unit into the module and returns the function or global it
// produced.
func (g *Generator) Exec(tl ast.TopLevel) (value.Value, error) {
	if g.finished {
		return nil, fmt.Errorf("module %s is already finished", g.pkg)
	}
	return g.walker.TopLevel(tl)
}

// Func returns the IR function emitted for name.
func (g *Generator) Func(name string) (*ir.Func, bool) {
	fn, ok := g.funcs[name]
	return fn, ok
}

func (g *Generator) Constant(x float64) value.Value {
	return constant.NewFloat(types.Double, x)
}

func (g *Generator) Binary(op rune, lhs, rhs value.Value) (value.Value, error) {
	b := g.block

	switch op {
	case '+':
		return b.NewFAdd(lhs, rhs), nil
	case '-':
		return b.NewFSub(lhs, rhs), nil
	case '*':
		return b.NewFMul(lhs, rhs), nil
	case '/':
		return b.NewFDiv(lhs, rhs), nil
	case '<':
		cmp := b.NewFCmp(enum.FPredULT, lhs, rhs)
		return b.NewUIToFP(cmp, types.Double), nil
	case '>':
		cmp := b.NewFCmp(enum.FPredUGT, lhs, rhs)
		return b.NewUIToFP(cmp, types.Double), nil
	}
	return nil, errors.UnknownOperator{Op: op}
}

// attach appends b to the current function and moves the insertion point to it.
func (g *Generator) attach(b *ir.Block) {
	b.Parent = g.fn
	g.fn.Blocks = append(g.fn.Blocks, b)
	g.block = b
}

func (g *Generator) Conditional(cond value.Value, then, els lower.Branch[value.Value]) (value.Value, error) {
	n := g.blocks
	g.blocks++

	condCmp := g.block.NewFCmp(enum.FPredONE, cond, zero)

	thenBloc := ir.NewBlock(fmt.Sprintf("then.%d", n))
	elseBloc := ir.NewBlock(fmt.Sprintf("else.%d", n))
	mergeBloc := ir.NewBlock(fmt.Sprintf("ifcont.%d", n))
	g.block.NewCondBr(condCmp, thenBloc, elseBloc)

	g.attach(thenBloc)
	thenValue, err := then()
	if err != nil {
		return nil, err
	}
	// the arm may have moved the insertion point into nested blocks
	thenEnd := g.block
	thenEnd.NewBr(mergeBloc)

	g.attach(elseBloc)
	elseValue, err := els()
	if err != nil {
		return nil, err
	}
	elseEnd := g.block
	elseEnd.NewBr(mergeBloc)

	g.attach(mergeBloc)
	return mergeBloc.NewPhi(ir.NewIncoming(thenValue, thenEnd), ir.NewIncoming(elseValue, elseEnd)), nil
}

func (g *Generator) Load(name string, slot value.Value) value.Value {
	return g.block.NewLoad(types.Double, slot)
}

func (g *Generator) Invoke(callee ast.Prototype, args []value.Value) (value.Value, error) {
	fn, ok := g.funcs[callee.Name]
	if !ok {
		return nil, errors.UndefinedFunction{Name: callee.Name, Location: callee.Pos}
	}
	return g.block.NewCall(fn, args...), nil
}

func params(proto ast.Prototype) ([]*ir.Param, []types.Type) {
	ps := make([]*ir.Param, len(proto.Params))
	ts := make([]types.Type, len(proto.Params))
	for i, name := range proto.Params {
		ps[i] = ir.NewParam(name, types.Double)
		ts[i] = types.Double
	}
	return ps, ts
}

// signature returns the function for proto, creating it or rewriting its
// parameters in place so existing call sites keep pointing at it.
func (g *Generator) signature(proto ast.Prototype) *ir.Func {
	ps, ts := params(proto)

	fn, ok := g.funcs[proto.Name]
	if !ok {
		fn = g.Module.NewFunc(proto.Name, types.Double, ps...)
		g.funcs[proto.Name] = fn
		return fn
	}

	fn.Params = ps
	fn.Sig.Params = ts
	return fn
}

func (g *Generator) Declare(proto ast.Prototype) (value.Value, error) {
	if fn, ok := g.funcs[proto.Name]; ok && len(fn.Params) == len(proto.Params) {
		return fn, nil
	}

	fn := g.signature(proto)
	fn.Blocks = nil
	return fn, nil
}

func (g *Generator) Function(proto ast.Prototype, body lower.Body[value.Value]) (value.Value, error) {
	var (
		oldFn     = g.funcs[proto.Name]
		oldParams []*ir.Param
		oldTypes  []types.Type
		oldBlocks []*ir.Block
	)
	if oldFn != nil {
		oldParams, oldTypes, oldBlocks = oldFn.Params, oldFn.Sig.Params, oldFn.Blocks
	}

	fn := g.signature(proto)
	fn.Blocks = nil

	g.fn, g.block, g.blocks = fn, fn.NewBlock(""), 0
	defer func() { g.fn, g.block = nil, nil }()

	args := make([]value.Value, len(fn.Params))
	for i, p := range fn.Params {
		args[i] = p
	}

	retValue, err := body(args)
	if err != nil {
		if oldFn == nil {
			g.removeFunc(fn)
		} else {
			fn.Params, fn.Sig.Params, fn.Blocks = oldParams, oldTypes, oldBlocks
		}
		return nil, err
	}

	g.block.NewRet(retValue)
	return fn, nil
}

// removeFunc drops a function that never had a valid definition. Only its own
// body could have called it.
func (g *Generator) removeFunc(fn *ir.Func) {
	delete(g.funcs, fn.Name())
	for i, f := range g.Module.Funcs {
		if f == fn {
			g.Module.Funcs = append(g.Module.Funcs[:i], g.Module.Funcs[i+1:]...)
			return
		}
	}
}

func (g *Generator) Global(name string, init lower.Branch[value.Value]) (value.Value, error) {
	gv, existed := g.globals[name]
	if !existed {
		gv = g.Module.NewGlobalDef(name, zero)
	}

	initFn := g.Module.NewFunc(fmt.Sprintf("__init.%s.%d", name, len(g.inits)), types.Void)
	g.fn, g.block, g.blocks = initFn, initFn.NewBlock(""), 0
	defer func() { g.fn, g.block = nil, nil }()

	v, err := init()
	if err != nil {
		g.Module.Funcs = g.Module.Funcs[:len(g.Module.Funcs)-1]
		if !existed {
			g.Module.Globals = g.Module.Globals[:len(g.Module.Globals)-1]
		}
		return nil, err
	}

	g.block.NewStore(v, gv)
	g.block.NewRet(nil)

	g.globals[name] = gv
	g.inits = append(g.inits, initFn)
	return gv, nil
}

// Finish emits the initializer entry point and the signature table. The
// module cannot be extended afterwards.
func (g *Generator) Finish() (*ir.Module, error) {
	if g.finished {
		return g.Module, nil
	}
	g.finished = true

	entry := g.Module.NewFunc(InitFunction, types.Void)
	bloc := entry.NewBlock("")
	for _, fn := range g.inits {
		bloc.NewCall(fn)
	}
	bloc.NewRet(nil)

	if err := g.registerSignatures(); err != nil {
		return nil, err
	}
	return g.Module, nil
}
