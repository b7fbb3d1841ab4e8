package binding

import (
	"fmt"
	"strconv"
	"strings"
)

// parser is a precedence-climbing parser over the lexer's token stream.
type parser struct {
	lex lexer
	cur token
}

// Parse parses a single binding expression (the content between { and }).
func Parse(src string) (Expr, error) {
	p := &parser{lex: lexer{src: src}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	expr, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, p.errorf("unexpected %q after expression", p.cur.text)
	}
	return expr, nil
}

// ParseTemplate parses a whole attribute value into literal and binding
// segments. {{ and }} escape literal braces. The markup parser has already
// rejected unbalanced delimiters; this split trusts that invariant.
func ParseTemplate(src string) (*Template, error) {
	var segs []Segment
	var text strings.Builder

	flush := func() {
		if text.Len() > 0 {
			segs = append(segs, Segment{Text: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				text.WriteByte('{')
				i++
				continue
			}
			end := matchBrace(src, i)
			if end < 0 {
				return nil, &ParseError{Offset: i, Msg: "unclosed { in attribute value"}
			}
			expr, err := Parse(src[i+1 : end])
			if err != nil {
				pe, ok := err.(*ParseError)
				if ok {
					pe.Offset += i + 1
				}
				return nil, err
			}
			flush()
			segs = append(segs, Segment{Expr: expr})
			i = end
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				text.WriteByte('}')
				i++
				continue
			}
			return nil, &ParseError{Offset: i, Msg: "unexpected } outside binding"}
		default:
			text.WriteByte(src[i])
		}
	}
	flush()

	if len(segs) == 0 {
		segs = append(segs, Segment{Text: ""})
	}
	return &Template{Segments: segs}, nil
}

// matchBrace returns the index of the } closing the { at open, or -1.
func matchBrace(src string, open int) int {
	depth := 0
	for i := open; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

// parseTernary: cond ? then : else (right-associative, lowest precedence).
func (p *parser) parseTernary() (Expr, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokQuestion {
		return cond, nil
	}
	off := p.cur.off
	if err := p.advance(); err != nil {
		return nil, err
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokColon {
		return nil, p.errorf("expected : in conditional")
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &Cond{If: cond, Then: then, Else: els, Of: off}, nil
}

func (p *parser) parseOr() (Expr, error) {
	return p.parseBinary(p.parseAnd, OpOr)
}

func (p *parser) parseAnd() (Expr, error) {
	return p.parseBinary(p.parseCmp, OpAnd)
}

func (p *parser) parseCmp() (Expr, error) {
	return p.parseBinary(p.parseAdd, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe)
}

func (p *parser) parseAdd() (Expr, error) {
	return p.parseBinary(p.parseMul, OpAdd, OpSub)
}

func (p *parser) parseMul() (Expr, error) {
	return p.parseBinary(p.parseUnary, OpMul, OpDiv, OpMod)
}

// parseBinary parses a left-associative run of the given operators.
func (p *parser) parseBinary(next func() (Expr, error), ops ...Op) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokOp {
		op := Op(p.cur.text)
		matched := false
		for _, want := range ops {
			if op == want {
				matched = true
				break
			}
		}
		if !matched {
			break
		}
		off := p.cur.off
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, X: left, Y: right, Of: off}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.cur.kind == tokOp && (p.cur.text == "!" || p.cur.text == "-") {
		op := OpNot
		if p.cur.text == "-" {
			op = OpNeg
		}
		off := p.cur.off
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x, Of: off}, nil
	}
	return p.parsePostfix()
}

// parsePostfix parses field access, indexing, and accessor calls.
func (p *parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch p.cur.kind {
		case tokDot:
			off := p.cur.off
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tokIdent {
				return nil, p.errorf("expected field name after .")
			}
			name := p.cur.text
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind == tokLParen {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}
				expr = &Call{Recv: expr, Name: name, Args: args, Off: off}
			} else {
				expr = &Field{Recv: expr, Name: name, Off: off}
			}
		case tokLBrack:
			off := p.cur.off
			if err := p.advance(); err != nil {
				return nil, err
			}
			idx, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if p.cur.kind != tokRBrack {
				return nil, p.errorf("expected ]")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr = &Index{Recv: expr, Idx: idx, Off: off}
		default:
			return expr, nil
		}
	}
}

// parseArgs parses a parenthesized argument list, consuming both parens.
func (p *parser) parseArgs() ([]Expr, error) {
	if err := p.advance(); err != nil { // (
		return nil, err
	}
	var args []Expr
	if p.cur.kind == tokRParen {
		return args, p.advance()
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.cur.kind != tokRParen {
		return nil, p.errorf("expected )")
	}
	return args, p.advance()
}

func (p *parser) parsePrimary() (Expr, error) {
	switch p.cur.kind {
	case tokNumber:
		num, err := strconv.ParseFloat(p.cur.text, 64)
		if err != nil {
			return nil, p.errorf("malformed number %q", p.cur.text)
		}
		lit := &Lit{Kind: LitNumber, Num: num, Off: p.cur.off}
		return lit, p.advance()
	case tokString:
		lit := &Lit{Kind: LitString, Str: p.cur.text, Off: p.cur.off}
		return lit, p.advance()
	case tokIdent:
		switch p.cur.text {
		case "true", "false":
			lit := &Lit{Kind: LitBool, Bool: p.cur.text == "true", Off: p.cur.off}
			return lit, p.advance()
		}
		id := &Ident{Name: p.cur.text, Off: p.cur.off}
		return id, p.advance()
	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, p.errorf("expected )")
		}
		return expr, p.advance()
	case tokEOF:
		return nil, p.errorf("unexpected end of expression")
	default:
		return nil, p.errorf("unexpected %q", p.cur.text)
	}
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Offset: p.cur.off, Msg: fmt.Sprintf(format, args...)}
}
