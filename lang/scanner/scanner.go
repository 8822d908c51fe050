// Package scanner implements the tokenizer for lovage source text.
// Tokens are produced on demand, one per call to Scan, for the compiler
// to consume.
package scanner

import (
	"errors"

	"github.com/mna/lovage/lang/token"
)

// A Scanner tokenizes a single source text. The zero value is not
// usable, call New.
type Scanner struct {
	src   string
	start int // start offset in bytes of the token being scanned
	off   int // current reading offset in bytes
	line  int // current 1-based line
}

// New returns a scanner ready to tokenize src.
func New(src string) *Scanner {
	return &Scanner{src: src, line: 1}
}

// Scan returns the next token in the source, or nil once the end of
// input is reached. It fails on a stray character or an unterminated
// string literal.
func (s *Scanner) Scan() (*token.Token, error) {
	s.skipIgnored()
	s.start = s.off
	if s.eof() {
		return nil, nil
	}

	c := s.advance()
	switch {
	case isAlpha(c):
		return s.ident(), nil
	case isDigit(c):
		return s.number(), nil
	}

	switch c {
	case '(':
		return s.make(token.LPAREN), nil
	case ')':
		return s.make(token.RPAREN), nil
	case '{':
		return s.make(token.LBRACE), nil
	case '}':
		return s.make(token.RBRACE), nil
	case ',':
		return s.make(token.COMMA), nil
	case '.':
		return s.make(token.DOT), nil
	case '-':
		return s.make(token.MINUS), nil
	case '+':
		return s.make(token.PLUS), nil
	case ';':
		return s.make(token.SEMI), nil
	case '/':
		return s.make(token.SLASH), nil
	case '*':
		return s.make(token.STAR), nil

	case '!':
		if s.advanceIf('=') {
			return s.make(token.BANGEQ), nil
		}
		return s.make(token.BANG), nil
	case '=':
		if s.advanceIf('=') {
			return s.make(token.EQEQ), nil
		}
		return s.make(token.EQ), nil
	case '>':
		if s.advanceIf('=') {
			return s.make(token.GE), nil
		}
		return s.make(token.GT), nil
	case '<':
		if s.advanceIf('=') {
			return s.make(token.LE), nil
		}
		return s.make(token.LT), nil

	case '"':
		return s.str()
	}
	return nil, errors.New("Unexpected character.")
}

// skipIgnored advances past whitespace and line comments, counting
// newlines.
func (s *Scanner) skipIgnored() {
	for !s.eof() {
		switch s.peek() {
		case ' ', '\t', '\r':
			s.off++
		case '\n':
			s.line++
			s.off++
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for !s.eof() && s.peek() != '\n' {
				s.off++
			}
		default:
			return
		}
	}
}

func (s *Scanner) ident() *token.Token {
	for !s.eof() && (isAlpha(s.peek()) || isDigit(s.peek())) {
		s.off++
	}
	tok := s.make(token.IDENT)
	tok.Kind = token.LookupKw(tok.Lexeme)
	return tok
}

func (s *Scanner) make(k token.Kind) *token.Token {
	return &token.Token{
		Kind:   k,
		Start:  s.start,
		Length: s.off - s.start,
		Line:   s.line,
		Lexeme: s.src[s.start:s.off],
	}
}

func (s *Scanner) eof() bool {
	return s.off >= len(s.src)
}

// advance consumes and returns the current byte. The scanner is
// ASCII-oriented: multi-byte sequences only ever appear inside strings
// and comments, where bytes are passed through untouched.
func (s *Scanner) advance() byte {
	c := s.src[s.off]
	s.off++
	return c
}

// advanceIf consumes the current byte only if it matches c.
func (s *Scanner) advanceIf(c byte) bool {
	if s.eof() || s.src[s.off] != c {
		return false
	}
	s.off++
	return true
}

func (s *Scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.off]
}

func (s *Scanner) peekNext() byte {
	if s.off+1 >= len(s.src) {
		return 0
	}
	return s.src[s.off+1]
}

func isAlpha(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
