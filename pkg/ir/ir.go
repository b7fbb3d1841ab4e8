// Package ir defines the canonical widget intermediate representation and
// the resolver that builds it from a raw markup tree. The IR is the single
// source of truth for both execution backends: identifiers are resolved to
// stable slots and handler indices here, so neither backend ever touches a
// name at evaluation time.
package ir

import (
	"github.com/loomui/loom/pkg/binding"
	"github.com/loomui/loom/pkg/markup"
	"github.com/loomui/loom/pkg/schema"
)

// Expr is a resolved, typed binding expression. It mirrors the binding AST
// with every leaf identifier replaced by a slot reference.
type Expr interface {
	// Type is the expression's resolved semantic type.
	Type() schema.FieldType
	exprNode()
}

// FieldRef reads a top-level model field by slot.
type FieldRef struct {
	Slot int
	Name string // retained for code generation and diagnostics only
	Typ  schema.FieldType
}

// LoopRef reads the loop variable bound at the given loop depth.
type LoopRef struct {
	Depth int
	Name  string
	Typ   schema.FieldType
}

// SubField reads a nested record field.
type SubField struct {
	Recv Expr
	Name string
	Typ  schema.FieldType
}

// IndexExpr reads one element of a collection.
type IndexExpr struct {
	Recv Expr
	Idx  Expr
	Typ  schema.FieldType
}

// LenCall is the structural len() accessor over a collection or text field.
// It is resolved against the schema at build time, never dispatched by name.
type LenCall struct {
	Recv Expr
}

// Lit is a literal value: float64, string, or bool.
type Lit struct {
	Value any
	Typ   schema.FieldType
}

// Unary is ! or numeric negation.
type Unary struct {
	Op binding.Op
	X  Expr
}

// Binary is an infix operation. Both backends must short-circuit && and ||
// identically: Y is untouched when X decides the result.
type Binary struct {
	Op  binding.Op
	X   Expr
	Y   Expr
	Typ schema.FieldType
}

// Cond is the ternary conditional.
type Cond struct {
	If   Expr
	Then Expr
	Else Expr
}

// Interp is string interpolation: literal text spliced with sub-expressions.
type Interp struct {
	Segments []InterpSeg
}

// InterpSeg is one interpolation segment; exactly one of Text/Expr is set.
type InterpSeg struct {
	Text string
	Expr Expr
}

func (e *FieldRef) Type() schema.FieldType  { return e.Typ }
func (e *LoopRef) Type() schema.FieldType   { return e.Typ }
func (e *SubField) Type() schema.FieldType  { return e.Typ }
func (e *IndexExpr) Type() schema.FieldType { return e.Typ }
func (e *LenCall) Type() schema.FieldType   { return schema.Number() }
func (e *Lit) Type() schema.FieldType       { return e.Typ }
func (e *Unary) Type() schema.FieldType     { return e.X.Type() }
func (e *Binary) Type() schema.FieldType    { return e.Typ }
func (e *Cond) Type() schema.FieldType      { return e.Then.Type() }
func (e *Interp) Type() schema.FieldType    { return schema.Text() }

func (*FieldRef) exprNode()  {}
func (*LoopRef) exprNode()   {}
func (*SubField) exprNode()  {}
func (*IndexExpr) exprNode() {}
func (*LenCall) exprNode()   {}
func (*Lit) exprNode()       {}
func (*Unary) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Cond) exprNode()      {}
func (*Interp) exprNode()    {}

// AttrValue is one resolved attribute: either a static literal or a
// compiled expression, never both.
type AttrValue struct {
	Name   string
	Static any
	Expr   Expr
	Pos    markup.Pos
}

// IsStatic reports whether the attribute needs no evaluation.
func (a AttrValue) IsStatic() bool { return a.Expr == nil }

// EventBinding is a resolved event attribute. Handler is a registry index.
type EventBinding struct {
	Event   string
	Handler int
	Shape   schema.HandlerShape
	Name    string // handler name, for code generation only
}

// Loop is the each/in repetition construct.
type Loop struct {
	Var        string
	Depth      int
	Collection Expr
	Elem       schema.FieldType
}

// Node is one widget in the IR tree. Immutable after construction; hot
// reload builds a fresh tree and swaps the root, it never edits nodes.
type Node struct {
	Widget string
	Attrs  []AttrValue
	Events []EventBinding
	Loop   *Loop
	When   Expr
	Kids   []*Node
	Pos    markup.Pos
}

// Tree is a resolved markup file. Root is a synthetic "view" group holding
// the file's root elements so every file has exactly one IR root.
type Tree struct {
	File string
	Root *Node
}

// RootWidget is the widget kind of the synthetic per-file root node.
const RootWidget = "view"
