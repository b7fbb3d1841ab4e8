package binding

import (
	"strings"
	"unicode"
)

// tokenKind identifies a lexical token.
type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp     // one of the operator/punctuation strings below
	tokLParen // (
	tokRParen // )
	tokLBrack // [
	tokRBrack // ]
	tokComma
	tokDot
	tokQuestion
	tokColon
)

type token struct {
	kind tokenKind
	text string
	off  int
}

// lexer scans a binding source string into tokens on demand.
type lexer struct {
	src string
	pos int
}

// multi-character operators are matched before single-character ones.
var operators = []string{"==", "!=", "<=", ">=", "&&", "||", "+", "-", "*", "/", "%", "<", ">", "!"}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && unicode.IsSpace(rune(l.src[l.pos])) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, off: l.pos}, nil
	}

	start := l.pos
	ch := l.src[l.pos]

	switch {
	case ch == '(':
		l.pos++
		return token{tokLParen, "(", start}, nil
	case ch == ')':
		l.pos++
		return token{tokRParen, ")", start}, nil
	case ch == '[':
		l.pos++
		return token{tokLBrack, "[", start}, nil
	case ch == ']':
		l.pos++
		return token{tokRBrack, "]", start}, nil
	case ch == ',':
		l.pos++
		return token{tokComma, ",", start}, nil
	case ch == '?':
		l.pos++
		return token{tokQuestion, "?", start}, nil
	case ch == ':':
		l.pos++
		return token{tokColon, ":", start}, nil
	case ch == '.' && (l.pos+1 >= len(l.src) || !isDigit(l.src[l.pos+1])):
		l.pos++
		return token{tokDot, ".", start}, nil
	case ch == '\'' || ch == '"':
		return l.scanString(ch)
	case isDigit(ch) || ch == '.':
		return l.scanNumber()
	case isIdentStart(rune(ch)):
		return l.scanIdent()
	}

	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return token{tokOp, op, start}, nil
		}
	}

	return token{}, &ParseError{Offset: start, Msg: "unexpected character " + string(ch)}
}

func (l *lexer) scanString(quote byte) (token, error) {
	start := l.pos
	l.pos++ // opening quote
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == quote {
			l.pos++
			return token{tokString, b.String(), start}, nil
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			c = l.src[l.pos]
		}
		b.WriteByte(c)
		l.pos++
	}
	return token{}, &ParseError{Offset: start, Msg: "unterminated string literal"}
}

func (l *lexer) scanNumber() (token, error) {
	start := l.pos
	seenDot := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '.' {
			if seenDot {
				break
			}
			// A dot followed by a letter is field access, not a fraction.
			if l.pos+1 < len(l.src) && !isDigit(l.src[l.pos+1]) {
				break
			}
			seenDot = true
		} else if !isDigit(c) {
			break
		}
		l.pos++
	}
	return token{tokNumber, l.src[start:l.pos], start}, nil
}

func (l *lexer) scanIdent() (token, error) {
	start := l.pos
	for l.pos < len(l.src) {
		ch := rune(l.src[l.pos])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' {
			break
		}
		l.pos++
	}
	return token{tokIdent, l.src[start:l.pos], start}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch) || ch == '_'
}
