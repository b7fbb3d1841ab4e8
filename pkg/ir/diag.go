package ir

import (
	"fmt"

	"github.com/loomui/loom/pkg/markup"
)

// DiagKind classifies a resolution diagnostic.
type DiagKind uint8

const (
	UnknownWidget DiagKind = iota
	UnknownAttribute
	UnknownHandler
	UnknownField
	TypeMismatch
	// BadSyntax covers binding expressions that fail to parse during
	// resolution. Markup-level syntax errors surface earlier, from the
	// parser itself.
	BadSyntax
)

func (k DiagKind) String() string {
	switch k {
	case UnknownWidget:
		return "unknown-widget"
	case UnknownAttribute:
		return "unknown-attribute"
	case UnknownHandler:
		return "unknown-handler"
	case UnknownField:
		return "unknown-field"
	case TypeMismatch:
		return "type-mismatch"
	case BadSyntax:
		return "syntax"
	default:
		return "unknown"
	}
}

// Diagnostic is one structured resolution error. A resolution pass collects
// every diagnostic in the tree rather than stopping at the first, so an
// interactive consumer can report everything wrong in one pass.
type Diagnostic struct {
	Kind DiagKind
	Pos  markup.Pos
	Msg  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Msg)
}
