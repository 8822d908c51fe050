package scanner

import (
	"errors"

	"github.com/mna/lovage/lang/token"
)

// str scans a double-quoted string literal. Strings may span multiple
// lines and there is no escape processing; the lexeme keeps the
// surrounding quotes.
func (s *Scanner) str() (*token.Token, error) {
	for !s.eof() && s.peek() != '"' {
		if s.peek() == '\n' {
			s.line++
		}
		s.off++
	}
	if s.eof() {
		return nil, errors.New("Unterminated string.")
	}
	s.off++ // closing quote
	return s.make(token.STRING), nil
}
