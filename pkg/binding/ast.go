// Package binding implements the restricted expression language used inside
// {...} attribute bindings. Expressions are pure: they read model state and
// produce a value, with no side effects. The package owns parsing only;
// evaluation lives in the interpreter and emission in the code generator,
// both working from the same AST.
package binding

import "fmt"

// Expr is the interface implemented by all expression nodes. Offset reports
// the byte offset of the node within the binding source, for diagnostics.
type Expr interface {
	Offset() int
	exprNode()
}

// LitKind discriminates literal values.
type LitKind uint8

const (
	LitNumber LitKind = iota
	LitString
	LitBool
)

// Lit is a literal number, string, or boolean.
type Lit struct {
	Kind LitKind
	Num  float64
	Str  string
	Bool bool
	Off  int
}

// Ident is a bare identifier: a model field or a loop variable. Identifiers
// are resolved to stable field handles during IR resolution; an identifier
// that survives to evaluation unresolved is a bug.
type Ident struct {
	Name string
	Off  int
}

// Field is a nested field access: recv.name.
type Field struct {
	Recv Expr
	Name string
	Off  int
}

// Index is a collection index: recv[idx].
type Index struct {
	Recv Expr
	Idx  Expr
	Off  int
}

// Call is a fixed-arity accessor call: recv.name(args...). The only built-in
// accessor is len(); the resolver checks the name and arity structurally
// against the receiver's declared type.
type Call struct {
	Recv Expr
	Name string
	Args []Expr
	Off  int
}

// Op is a unary or binary operator.
type Op string

const (
	OpNot Op = "!"
	OpNeg Op = "-"

	OpAdd Op = "+"
	OpSub Op = "-"
	OpMul Op = "*"
	OpDiv Op = "/"
	OpMod Op = "%"

	OpEq Op = "=="
	OpNe Op = "!="
	OpLt Op = "<"
	OpLe Op = "<="
	OpGt Op = ">"
	OpGe Op = ">="

	OpAnd Op = "&&"
	OpOr  Op = "||"
)

// Unary is a prefix operation: !x or -x.
type Unary struct {
	Op Op
	X  Expr
	Of int
}

// Binary is an infix operation. && and || short-circuit: Y is not evaluated
// when X decides the result.
type Binary struct {
	Op Op
	X  Expr
	Y  Expr
	Of int
}

// Cond is the ternary conditional: if ? then : else.
type Cond struct {
	If   Expr
	Then Expr
	Else Expr
	Of   int
}

func (e *Lit) Offset() int    { return e.Off }
func (e *Ident) Offset() int  { return e.Off }
func (e *Field) Offset() int  { return e.Off }
func (e *Index) Offset() int  { return e.Off }
func (e *Call) Offset() int   { return e.Off }
func (e *Unary) Offset() int  { return e.Of }
func (e *Binary) Offset() int { return e.Of }
func (e *Cond) Offset() int   { return e.Of }

func (*Lit) exprNode()    {}
func (*Ident) exprNode()  {}
func (*Field) exprNode()  {}
func (*Index) exprNode()  {}
func (*Call) exprNode()   {}
func (*Unary) exprNode()  {}
func (*Binary) exprNode() {}
func (*Cond) exprNode()   {}

// Segment is one piece of an interpolated attribute value: either literal
// text or a sub-expression, never both.
type Segment struct {
	Text string
	Expr Expr
}

// Template is a parsed attribute value: a sequence of literal and expression
// segments. A purely literal value has one text segment; a value that is a
// single {expr} with no surrounding text has one expression segment.
type Template struct {
	Segments []Segment
}

// Single returns the sole expression if the template is exactly one binding
// with no literal text.
func (t *Template) Single() (Expr, bool) {
	if len(t.Segments) == 1 && t.Segments[0].Expr != nil {
		return t.Segments[0].Expr, true
	}
	return nil, false
}

// IsLiteral reports whether the template contains no bindings at all.
func (t *Template) IsLiteral() bool {
	for _, s := range t.Segments {
		if s.Expr != nil {
			return false
		}
	}
	return true
}

// ParseError is a positioned binding parse error. Offset is relative to the
// binding source; callers translate it to a file position.
type ParseError struct {
	Offset int
	Msg    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}
