package parser

import (
	"unicode"
)

// Lexer splits an operation sequence into tokens in one left-to-right pass.
// Inside parentheses letters and digits form a single IDENT token, so resource
// names such as "acct_1" or "7" are not mistaken for codes or ids.
type Lexer struct {
	input    string
	pos      int
	length   int
	inParens bool
}

func NewLexer(input string) *Lexer {
	return &Lexer{
		input:  input,
		pos:    0,
		length: len(input),
	}
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	if l.pos >= l.length {
		return createToken(EOF, "", l.pos)
	}

	start := l.pos
	ch := l.input[l.pos]

	switch {
	case ch == ';':
		l.pos++
		return createToken(SEMICOLON, ";", start)
	case ch == '(':
		l.pos++
		l.inParens = true
		return createToken(LPAREN, "(", start)
	case ch == ')':
		l.pos++
		l.inParens = false
		return createToken(RPAREN, ")", start)
	case l.inParens && isIdentChar(ch):
		return l.readWhile(IDENT, isIdentChar, start)
	case isDigit(ch):
		return l.readWhile(NUMBER, isDigit, start)
	case isLetter(ch):
		return l.readWhile(CODE, isLetter, start)
	default:
		l.pos++
		return createToken(INVALID, string(ch), start)
	}
}

// PeekToken returns the next token without consuming it.
func (l *Lexer) PeekToken() Token {
	pos, inParens := l.pos, l.inParens
	tok := l.NextToken()
	l.pos, l.inParens = pos, inParens
	return tok
}

func (l *Lexer) skipWhitespace() {
	for l.pos < l.length && unicode.IsSpace(rune(l.input[l.pos])) {
		l.pos++
	}
}

func (l *Lexer) readWhile(t TokenType, accept func(byte) bool, start int) Token {
	for l.pos < l.length && accept(l.input[l.pos]) {
		l.pos++
	}
	return createToken(t, l.input[start:l.pos], start)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func isIdentChar(ch byte) bool {
	return isLetter(ch) || isDigit(ch) || ch == '_'
}
