package scanner

import "github.com/mna/lovage/lang/token"

// number scans a decimal literal with an optional fractional part. The
// dot is only consumed when a digit follows it, so "123." tokenizes as
// the number 123 followed by a dot.
func (s *Scanner) number() *token.Token {
	for isDigit(s.peek()) {
		s.off++
	}
	if s.peek() == '.' && isDigit(s.peekNext()) {
		s.off++
		for isDigit(s.peek()) {
			s.off++
		}
	}
	return s.make(token.NUMBER)
}
