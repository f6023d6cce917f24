package lexer

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/pontaoski/kaleigo/errors"
	"github.com/pontaoski/kaleigo/types"
)

// CommentChar starts a comment that runs to the end of the line.
const CommentChar = '#'

type Lexer struct {
	pos     types.Position
	prevPos types.Position
	reader  *bufio.Reader
	peeked  *types.Token
	last    types.Token
	err     error
	done    bool
	failed  bool
}

func NewLexer(reader io.Reader, filename string) *Lexer {
	return &Lexer{
		pos:    types.Position{Line: 1, Column: 0, Filename: filename},
		reader: bufio.NewReader(reader),
	}
}

// Err returns the read error that produced an ILLEGAL token, if any.
func (l *Lexer) Err() error {
	return l.err
}

func (l *Lexer) read() (rune, bool) {
	if l.done {
		return 0, false
	}

	r, _, err := l.reader.ReadRune()
	if err != nil {
		l.done = true
		if err != io.EOF {
			l.err = err
		}
		return 0, false
	}

	l.prevPos = l.pos
	if r == '\n' {
		l.pos.Line++
		l.pos.Column = 0
	} else {
		l.pos.Column++
	}
	return r, true
}

func (l *Lexer) backup() {
	if err := l.reader.UnreadRune(); err != nil {
		panic(err)
	}

	l.pos = l.prevPos
}

func (l *Lexer) kinded(t types.TokenKind) types.Token {
	return types.Token{
		Location: types.SingleCharSpan(l.pos),
		Kind:     t,
	}
}

func firstChar(r rune) bool {
	return unicode.IsLetter(r)
}

func otherChar(r rune) bool {
	return firstChar(r) || unicode.IsDigit(r)
}

func numberChar(r rune) bool {
	return unicode.IsDigit(r) || r == '.'
}

// lexRun consumes the run of characters satisfying pred, starting at the one
// that was just read.
func (l *Lexer) lexRun(first rune, pred func(rune) bool) (types.Span, string) {
	var lit strings.Builder
	span := types.SingleCharSpan(l.pos)

	lit.WriteRune(first)
	for {
		r, ok := l.read()
		if !ok {
			return span, lit.String()
		}
		if !pred(r) {
			l.backup()
			return span, lit.String()
		}
		lit.WriteRune(r)
		span.To = l.pos
	}
}

// parseNumber accepts any run of digits and dots. Like strtod it keeps the
// longest numeric prefix, so "1.2.3" is 1.2 and "." is 0.
func parseNumber(lit string) float64 {
	if first := strings.IndexByte(lit, '.'); first >= 0 {
		if second := strings.IndexByte(lit[first+1:], '.'); second >= 0 {
			lit = lit[:first+1+second]
		}
	}

	val, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return 0
	}
	return val
}

var keywords = map[string]types.TokenKind{
	"def":    types.DEF,
	"extern": types.EXTERN,
	"if":     types.IF,
	"then":   types.THEN,
	"else":   types.ELSE,
}

func (l *Lexer) Peek() types.Token {
	if l.peeked != nil {
		return *l.peeked
	}

	tok := l.scan()
	l.peeked = &tok

	return tok
}

// Last returns the most recently consumed token. Peeking does not count.
func (l *Lexer) Last() types.Token {
	return l.last
}

func (l *Lexer) PeekIs(k ...types.TokenKind) bool {
	token := l.Peek()
	for _, kind := range k {
		if token.Kind == kind {
			return true
		}
	}

	return false
}

func (l *Lexer) PeekIsChar(r rune) bool {
	return l.Peek().Is(r)
}

// LexExpecting consumes a token of kind k. Any other token is left in place
// and reported by panicking with a parse error.
func (l *Lexer) LexExpecting(k types.TokenKind) types.Token {
	token := l.Peek()
	if token.Kind == k {
		return l.Lex()
	}
	if token.Kind == types.ILLEGAL {
		l.Lex()
		panic(errors.ReadFailure{Err: l.err, Location: token.Location})
	}

	panic(errors.ExpectedKindGotKind{
		Expected: k,
		Got:      token,
	})
}

func (l *Lexer) LexExpectingChar(r rune, context string) types.Token {
	token := l.Peek()
	if token.Is(r) {
		return l.Lex()
	}
	if token.Kind == types.ILLEGAL {
		l.Lex()
		panic(errors.ReadFailure{Err: l.err, Location: token.Location})
	}

	panic(errors.ExpectedCharGotToken{
		Expected: []rune{r},
		Got:      token,
		Context:  context,
	})
}

func (l *Lexer) Lex() types.Token {
	var tok types.Token
	if l.peeked != nil {
		tok, l.peeked = *l.peeked, nil
	} else {
		tok = l.scan()
	}
	l.last = tok
	return tok
}

func (l *Lexer) scan() types.Token {
	for {
		r, ok := l.read()
		if !ok {
			if l.err != nil && !l.failed {
				l.failed = true
				return l.kinded(types.ILLEGAL)
			}
			return l.kinded(types.EOF)
		}

		switch {
		case unicode.IsSpace(r):
			continue
		case r == CommentChar:
			for {
				r, ok := l.read()
				if !ok || r == '\n' || r == '\r' {
					break
				}
			}
			continue
		case firstChar(r):
			span, lit := l.lexRun(r, otherChar)
			if kind, ok := keywords[lit]; ok {
				return types.Token{Kind: kind, Location: span, Literal: lit}
			}
			return types.Token{Kind: types.IDENT, Location: span, Literal: lit}
		case numberChar(r):
			span, lit := l.lexRun(r, numberChar)
			return types.Token{Kind: types.NUMBER, Location: span, Literal: lit, Value: parseNumber(lit)}
		}

		tok := l.kinded(types.CHAR)
		tok.Char = r
		tok.Literal = string(r)
		return tok
	}
}

// All lexes the remaining input, excluding the final EOF.
func (l *Lexer) All() (ret []types.Token) {
	t := l.Lex()
	for t.Kind != types.EOF && t.Kind != types.ILLEGAL {
		ret = append(ret, t)
		t = l.Lex()
	}
	return
}
