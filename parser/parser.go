package parser

import (
	"fmt"
	"io"

	"github.com/pontaoski/kaleigo/ast"
	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/lexer"
	"github.com/pontaoski/kaleigo/types"
	"github.com/ztrue/tracerr"
)

// AnonymousPrefix names the functions wrapping bare top-level expressions.
// Identifiers cannot contain '_' or '.', so these never collide with user code.
const AnonymousPrefix = "__anon_expr"

var precedence = map[rune]int{
	'<': 10,
	'>': 10,
	'+': 20,
	'-': 20,
	'*': 40,
	'/': 40,
}

// Precedence returns the binding power of a binary operator, or -1 if op is
// not one.
func Precedence(op rune) int {
	if prec, ok := precedence[op]; ok {
		return prec
	}
	return -1
}

type Parser struct {
	l    *lexer.Lexer
	anon int

	// set after a failed unit: recovery skips the rest of errLine
	recovering bool
	errLine    int
}

func NewParser(l *lexer.Lexer) *Parser {
	return &Parser{l: l}
}

// ParseTopLevel parses one definition, extern or bare expression. It returns
// io.EOF once the input is exhausted. An error is returned as soon as the
// offending token is seen; the next call first skips the rest of the broken
// unit and then continues with the input after it.
func (p *Parser) ParseTopLevel() (tl ast.TopLevel, err error) {
	if p.recovering {
		p.recovering = false
		p.synchronize()
	}

	// top-level semicolons are ignored
	for p.l.PeekIsChar(';') {
		p.l.Lex()
	}
	start := p.l.Last()

	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				panic(r)
			}
			p.fail(start)
			tl = nil
			err = tracerr.Wrap(rerr)
		}
	}()

	tok := p.l.Peek()
	switch tok.Kind {
	case types.EOF:
		return nil, io.EOF
	case types.ILLEGAL:
		p.l.Lex()
		panic(errors.ReadFailure{Err: p.l.Err(), Location: tok.Location})
	case types.DEF:
		return p.parseDefinition(), nil
	case types.EXTERN:
		return p.parseExtern(), nil
	}

	return p.parseTopLevelExpr(), nil
}

// Parse reads every remaining unit, stopping at the first error.
func (p *Parser) Parse() ([]ast.TopLevel, error) {
	var tls []ast.TopLevel
	for {
		tl, err := p.ParseTopLevel()
		if err == io.EOF {
			return tls, nil
		}
		if err != nil {
			return tls, err
		}
		tls = append(tls, tl)
	}
}

// fail records where the unit that began after start broke. The offending
// token has already been peeked, so this never reads more input.
func (p *Parser) fail(start types.Token) {
	p.recovering = true
	if last := p.l.Last(); last != start {
		p.errLine = last.Location.To.Line
		return
	}
	// nothing was consumed: the first token itself is bad
	p.errLine = p.l.Peek().Location.From.Line
}

// synchronize discards the rest of the line the broken unit was on, through
// a ';' if one comes first. It stops early before a definition, an extern or
// the end of input.
func (p *Parser) synchronize() {
	for {
		tok := p.l.Peek()
		switch {
		case tok.Kind == types.EOF, tok.Kind == types.DEF, tok.Kind == types.EXTERN:
			return
		case tok.Is(';'):
			p.l.Lex()
			return
		case tok.Location.From.Line > p.errLine:
			return
		}
		p.l.Lex()
	}
}

func (p *Parser) parseDefinition() ast.TopLevel {
	p.l.LexExpecting(types.DEF)
	name := p.l.LexExpecting(types.IDENT)

	if p.l.PeekIsChar('=') {
		p.l.Lex()
		return ast.Global{
			Name:  ast.Identifier{Name: name.Literal, Pos: name.Location},
			Value: p.parseExpression(),
		}
	}

	proto := p.parsePrototypeAfterName(name)
	return ast.Function{
		Proto: proto,
		Body:  p.parseExpression(),
	}
}

func (p *Parser) parseExtern() ast.Prototype {
	p.l.LexExpecting(types.EXTERN)
	return p.parsePrototype()
}

func (p *Parser) parseTopLevelExpr() ast.Function {
	tok := p.l.Peek()
	body := p.parseExpression()

	name := fmt.Sprintf("%s.%d", AnonymousPrefix, p.anon)
	p.anon++

	return ast.Function{
		Proto:     ast.Prototype{Name: name, Pos: tok.Location},
		Body:      body,
		Anonymous: true,
	}
}

func (p *Parser) parsePrototype() ast.Prototype {
	return p.parsePrototypeAfterName(p.l.LexExpecting(types.IDENT))
}

// parsePrototypeAfterName parses the parameter list that follows an already
// consumed function name. Parameters are separated by whitespace, not commas.
func (p *Parser) parsePrototypeAfterName(name types.Token) ast.Prototype {
	proto := ast.Prototype{Name: name.Literal, Pos: name.Location}
	seen := map[string]struct{}{}

	p.l.LexExpectingChar('(', "in prototype")
	for p.l.PeekIs(types.IDENT) {
		param := p.l.Lex()
		if _, ok := seen[param.Literal]; ok {
			panic(errors.DuplicateParameter{
				Name:     param.Literal,
				Function: name.Literal,
				Location: param.Location,
			})
		}
		seen[param.Literal] = struct{}{}
		proto.Params = append(proto.Params, param.Literal)
	}
	end := p.l.LexExpectingChar(')', "in prototype")
	proto.Pos.To = end.Location.To

	return proto
}

func (p *Parser) parseExpression() ast.Expression {
	lhs := p.parsePrimary()
	return p.parseBinOpRHS(0, lhs)
}

func tokPrecedence(tok types.Token) int {
	if tok.Kind != types.CHAR {
		return -1
	}
	return Precedence(tok.Char)
}

// parseBinOpRHS folds operator/primary pairs onto lhs for as long as the
// operators bind at least as tightly as exprPrec.
func (p *Parser) parseBinOpRHS(exprPrec int, lhs ast.Expression) ast.Expression {
	for {
		op := p.l.Peek()
		tokPrec := tokPrecedence(op)
		if tokPrec < exprPrec {
			return lhs
		}
		p.l.Lex()

		rhs := p.parsePrimary()
		if nextPrec := tokPrecedence(p.l.Peek()); tokPrec < nextPrec {
			rhs = p.parseBinOpRHS(tokPrec+1, rhs)
		}

		lhs = ast.Binary{
			Op:  op.Char,
			LHS: lhs,
			RHS: rhs,
			Pos: op.Location,
		}
	}
}

func (p *Parser) parsePrimary() ast.Expression {
	tok := p.l.Peek()

	switch {
	case tok.Kind == types.IDENT:
		return p.parseIdentifierExpr()
	case tok.Kind == types.NUMBER:
		p.l.Lex()
		return ast.Number{Value: tok.Value, Pos: tok.Location}
	case tok.Kind == types.IF:
		return p.parseIfExpr()
	case tok.Is('('):
		return p.parseParenExpr()
	case tok.Is('-'):
		p.l.Lex()
		return ast.Binary{
			Op:  '-',
			LHS: ast.Number{Value: 0, Pos: tok.Location},
			RHS: p.parsePrimary(),
			Pos: tok.Location,
		}
	case tok.Kind == types.ILLEGAL:
		p.l.Lex()
		panic(errors.ReadFailure{Err: p.l.Err(), Location: tok.Location})
	}

	panic(errors.UnexpectedToken{Got: tok})
}

func (p *Parser) parseParenExpr() ast.Expression {
	p.l.LexExpectingChar('(', "")
	expr := p.parseExpression()
	p.l.LexExpectingChar(')', "to close parenthesised expression")
	return expr
}

func (p *Parser) parseIdentifierExpr() ast.Expression {
	name := p.l.LexExpecting(types.IDENT)
	ident := ast.Identifier{Name: name.Literal, Pos: name.Location}

	if !p.l.PeekIsChar('(') {
		return ast.Variable(ident)
	}
	p.l.Lex()

	var args []ast.Expression
	if !p.l.PeekIsChar(')') {
		for {
			args = append(args, p.parseExpression())

			if p.l.PeekIsChar(')') {
				break
			}
			if !p.l.PeekIsChar(',') {
				panic(errors.ExpectedCharGotToken{
					Expected: []rune{')', ','},
					Got:      p.l.Peek(),
					Context:  "in argument list",
				})
			}
			p.l.Lex()
		}
	}
	p.l.LexExpectingChar(')', "in argument list")

	return ast.Call{
		Callee:    ident,
		Arguments: args,
	}
}

func (p *Parser) parseIfExpr() ast.Expression {
	tok := p.l.LexExpecting(types.IF)

	cond := p.parseExpression()
	p.l.LexExpecting(types.THEN)
	then := p.parseExpression()
	p.l.LexExpecting(types.ELSE)
	elseExpr := p.parseExpression()

	return ast.If{
		Condition: cond,
		Then:      then,
		Else:      elseExpr,
		Pos:       tok.Location,
	}
}
