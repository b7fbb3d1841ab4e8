package markup

import "fmt"

// Raw syntax tree produced by the parser. The tree is markup-syntax-only:
// element names and attribute values are kept as uninterpreted strings and
// validated later by the schema resolver.

// Pos is a source location within a markup file.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Attr is a single raw attribute. Order is preserved from the source.
type Attr struct {
	Name  string
	Value string
	Pos   Pos
}

// Node is a raw element node.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []*Node
	Pos      Pos
}

// Attr returns the value of the named attribute and whether it was present.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Document is the root of a parsed markup file. A file may contain several
// sibling root elements.
type Document struct {
	File  string
	Roots []*Node
}

// SyntaxError is a positioned markup parse error. It is fatal to the file's
// IR build but isolated to that file.
type SyntaxError struct {
	Pos Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Msg)
}
