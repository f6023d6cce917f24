package types

import (
	"fmt"
)

type Position struct {
	Line     int
	Column   int
	Filename string
}

type Span struct {
	From Position
	To   Position
}

type TokenKind int

const (
	EOF TokenKind = iota
	ILLEGAL

	IDENT
	NUMBER

	DEF
	EXTERN
	IF
	THEN
	ELSE

	// CHAR is any other single character, carried verbatim in Token.Char.
	CHAR
)

func (t TokenKind) String() string {
	data := map[TokenKind]string{
		EOF:     "EOF",
		ILLEGAL: "ILLEGAL",
		IDENT:   "IDENT",
		NUMBER:  "NUMBER",
		DEF:     "DEF",
		EXTERN:  "EXTERN",
		IF:      "IF",
		THEN:    "THEN",
		ELSE:    "ELSE",
		CHAR:    "CHAR",
	}
	return data[t]
}

func (p Position) String() string {
	if p.Filename == "" {
		p.Filename = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

func (s Span) String() string {
	return fmt.Sprintf("%s-%d:%d", s.From, s.To.Line, s.To.Column)
}

func SingleCharSpan(p Position) Span {
	return Span{p, p}
}

type Token struct {
	Kind     TokenKind
	Location Span

	// Literal is the source text of identifiers, keywords and numbers.
	Literal string
	// Value is set for NUMBER.
	Value float64
	// Char is set for CHAR.
	Char rune
}

// Is reports whether t is the single-character token r.
func (t Token) Is(r rune) bool {
	return t.Kind == CHAR && t.Char == r
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case CHAR:
		return fmt.Sprintf("'%c'", t.Char)
	case ILLEGAL:
		return "unreadable input"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Literal)
}
