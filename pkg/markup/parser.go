package markup

import (
	"fmt"
	"strings"
	"unicode"
)

// Structural attribute names reserved by the engine. They are parsed like any
// other attribute; the resolver gives them meaning.
const (
	AttrEach = "each" // loop variable name
	AttrIn   = "in"   // loop collection binding
	AttrWhen = "when" // conditional-visibility guard
)

// Parser is a recursive descent parser for loom markup.
type Parser struct {
	input    string
	pos      int
	line     int
	col      int
	filename string
}

// NewParser creates a parser for one markup file.
func NewParser(filename, input string) *Parser {
	return &Parser{
		input:    input,
		pos:      0,
		line:     1,
		col:      1,
		filename: filename,
	}
}

// Parse parses the whole file into a Document.
func Parse(filename, input string) (*Document, error) {
	return NewParser(filename, input).Parse()
}

// Parse parses the entire input.
func (p *Parser) Parse() (*Document, error) {
	roots, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	p.skipTrivia()
	if p.pos < len(p.input) {
		return nil, p.errorf("unexpected %q at top level", p.input[p.pos])
	}
	return &Document{File: p.filename, Roots: roots}, nil
}

// parseNodes parses a sequence of sibling nodes until a closing tag or EOF.
func (p *Parser) parseNodes() ([]*Node, error) {
	var nodes []*Node

	for p.pos < len(p.input) {
		if p.peek("<!--") {
			if err := p.skipComment(); err != nil {
				return nil, err
			}
		} else if p.peek("</") {
			// Closing tag for the parent element.
			break
		} else if p.peek("<") {
			node, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, node)
		} else {
			node, err := p.parseText()
			if err != nil {
				return nil, err
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		}
	}

	return nodes, nil
}

// parseElement parses one element and its children.
func (p *Parser) parseElement() (*Node, error) {
	start := p.here()

	if !p.consume("<") {
		return nil, p.errorf("expected <")
	}

	name := p.parseName()
	if name == "" {
		return nil, p.errorf("expected element name")
	}

	attrs, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	node := &Node{Name: name, Attrs: attrs, Pos: start}

	p.skipWhitespace()
	if p.consume("/>") {
		return node, nil
	}
	if !p.consume(">") {
		return nil, p.errorf("expected > or /> after <%s>", name)
	}

	children, err := p.parseNodes()
	if err != nil {
		return nil, err
	}
	node.Children = children

	if !p.consume("</") {
		return nil, p.errorf("expected closing tag for <%s>", name)
	}
	closing := p.parseName()
	if closing != name {
		return nil, p.errorf("mismatched tags: <%s> and </%s>", name, closing)
	}
	p.skipWhitespace()
	if !p.consume(">") {
		return nil, p.errorf("expected > in closing tag")
	}

	return node, nil
}

// parseAttributes parses the attribute list of an open tag.
func (p *Parser) parseAttributes() ([]Attr, error) {
	var attrs []Attr

	for {
		p.skipWhitespace()
		if p.peek(">") || p.peek("/>") || p.pos >= len(p.input) {
			break
		}

		attrPos := p.here()
		name := p.parseName()
		if name == "" {
			return nil, p.errorf("expected attribute name")
		}

		p.skipWhitespace()
		if !p.consume("=") {
			// Bare attribute, treated as boolean true.
			attrs = append(attrs, Attr{Name: name, Value: "true", Pos: attrPos})
			continue
		}
		p.skipWhitespace()

		if !p.consume(`"`) {
			return nil, p.errorf("expected quoted value for attribute %q", name)
		}
		valuePos := p.here()
		value, err := p.parseQuotedValue()
		if err != nil {
			return nil, err
		}
		if err := checkBindingDelimiters(value, valuePos); err != nil {
			return nil, err
		}

		attrs = append(attrs, Attr{Name: name, Value: value, Pos: attrPos})
	}

	return attrs, nil
}

// parseQuotedValue consumes up to and including the closing quote.
func (p *Parser) parseQuotedValue() (string, error) {
	start := p.pos
	for p.pos < len(p.input) {
		if p.peek(`"`) {
			value := p.input[start:p.pos]
			p.consume(`"`)
			return value, nil
		}
		if p.input[p.pos] == '\n' {
			return "", p.errorf("unterminated attribute value")
		}
		p.advance()
	}
	return "", p.errorf("unterminated attribute value")
}

// parseText collects inline text up to the next tag. Non-blank text becomes a
// synthetic text element so it flows through schema resolution like any other
// widget; its value may contain bindings.
func (p *Parser) parseText() (*Node, error) {
	start := p.pos
	startPos := p.here()

	for p.pos < len(p.input) {
		if p.peek("<") {
			break
		}
		p.advance()
	}

	raw := p.input[start:p.pos]
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(raw)
	if err := checkBindingDelimiters(value, startPos); err != nil {
		return nil, err
	}
	return &Node{
		Name:  "text",
		Attrs: []Attr{{Name: "value", Value: value, Pos: startPos}},
		Pos:   startPos,
	}, nil
}

func (p *Parser) skipComment() error {
	if !p.consume("<!--") {
		return p.errorf("expected comment")
	}
	for p.pos < len(p.input) {
		if p.consume("-->") {
			return nil
		}
		p.advance()
	}
	return p.errorf("unterminated comment")
}

// checkBindingDelimiters validates the {...} convention inside an attribute
// value. {{ and }} are literal escapes; a bare { must be closed before the
// value ends.
func checkBindingDelimiters(value string, pos Pos) error {
	depth := 0
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '{':
			if i+1 < len(value) && value[i+1] == '{' && depth == 0 {
				i++
				continue
			}
			depth++
		case '}':
			if i+1 < len(value) && value[i+1] == '}' && depth == 0 {
				i++
				continue
			}
			if depth == 0 {
				return &SyntaxError{Pos: pos, Msg: "unexpected } outside binding"}
			}
			depth--
		}
	}
	if depth != 0 {
		return &SyntaxError{Pos: pos, Msg: "unclosed { in attribute value"}
	}
	return nil
}

// Helper methods.

func (p *Parser) peek(s string) bool {
	if p.pos+len(s) > len(p.input) {
		return false
	}
	return p.input[p.pos:p.pos+len(s)] == s
}

func (p *Parser) consume(s string) bool {
	if p.peek(s) {
		for i := 0; i < len(s); i++ {
			p.advance()
		}
		return true
	}
	return false
}

func (p *Parser) advance() {
	if p.pos < len(p.input) {
		if p.input[p.pos] == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.pos++
	}
}

func (p *Parser) skipWhitespace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.advance()
	}
}

// skipTrivia skips whitespace and comments.
func (p *Parser) skipTrivia() {
	for {
		p.skipWhitespace()
		if p.peek("<!--") {
			if err := p.skipComment(); err != nil {
				return
			}
			continue
		}
		return
	}
}

// parseName parses an element or attribute name (letters, digits, _, -).
func (p *Parser) parseName() string {
	start := p.pos
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '_' && ch != '-' {
			break
		}
		p.advance()
	}
	return p.input[start:p.pos]
}

func (p *Parser) here() Pos {
	return Pos{File: p.filename, Line: p.line, Col: p.col}
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return &SyntaxError{Pos: p.here(), Msg: fmt.Sprintf(format, args...)}
}
