package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/loomui/loom/pkg/binding"
	"github.com/loomui/loom/pkg/markup"
	"github.com/loomui/loom/pkg/schema"
)

// Resolver binds a raw markup tree against the widget table, the model
// schema, and the handler registry, producing a canonical IR tree plus a
// batch of diagnostics. The pass is fail-open: one bad attribute never hides
// the rest of the tree's problems.
type Resolver struct {
	table *schema.Table
	model *schema.Model
	reg   *schema.Registry
}

// NewResolver creates a resolver over the given static declarations.
func NewResolver(table *schema.Table, model *schema.Model, reg *schema.Registry) *Resolver {
	return &Resolver{table: table, model: model, reg: reg}
}

// Resolve builds the IR for one parsed document. The returned tree is only
// safe to execute when the diagnostic batch is empty; callers in dev mode
// may still inspect a partial tree for reporting.
func (r *Resolver) Resolve(doc *markup.Document) (*Tree, []Diagnostic) {
	p := &pass{Resolver: r}

	root := &Node{
		Widget: RootWidget,
		Pos:    markup.Pos{File: doc.File, Line: 1, Col: 1},
	}
	for _, raw := range doc.Roots {
		if n := p.resolveNode(raw, nil); n != nil {
			root.Kids = append(root.Kids, n)
		}
	}

	return &Tree{File: doc.File, Root: root}, p.diags
}

// loopVar is a loop-bound identifier visible in a subtree's scope.
type loopVar struct {
	name  string
	typ   schema.FieldType
	depth int
}

type pass struct {
	*Resolver
	diags []Diagnostic
}

func (p *pass) report(kind DiagKind, pos markup.Pos, format string, args ...interface{}) {
	p.diags = append(p.diags, Diagnostic{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)})
}

func (p *pass) resolveNode(raw *markup.Node, scope []loopVar) *Node {
	node := &Node{Widget: raw.Name, Pos: raw.Pos}

	spec, known := p.table.Widget(raw.Name)
	if !known {
		p.report(UnknownWidget, raw.Pos, "unknown widget %q", raw.Name)
	}

	// Structural attributes first: they shape the scope the rest of the
	// node (and its children) resolves in.
	childScope := scope
	eachAttr, hasEach := rawAttr(raw, markup.AttrEach)
	inAttr, hasIn := rawAttr(raw, markup.AttrIn)

	switch {
	case hasEach && !hasIn:
		p.report(BadSyntax, eachAttr.Pos, "each without in")
	case hasIn && !hasEach:
		p.report(BadSyntax, inAttr.Pos, "in without each")
	case hasEach && hasIn:
		if loop := p.resolveLoop(eachAttr, inAttr, scope); loop != nil {
			node.Loop = loop
			childScope = appendScope(scope, loopVar{
				name:  loop.Var,
				typ:   loop.Elem,
				depth: loop.Depth,
			})
		}
	}

	if whenAttr, ok := rawAttr(raw, markup.AttrWhen); ok {
		node.When = p.resolveGuard(whenAttr, childScope)
	}

	for _, attr := range raw.Attrs {
		if attr.Name == markup.AttrEach || attr.Name == markup.AttrIn || attr.Name == markup.AttrWhen {
			continue
		}
		if !known {
			continue // no schema to validate against; widget already reported
		}
		aspec, ok := spec.Attr(attr.Name)
		if !ok {
			p.report(UnknownAttribute, attr.Pos, "widget %q has no attribute %q", raw.Name, attr.Name)
			continue
		}
		if aspec.Class == schema.ClassEvent {
			if ev, ok := p.resolveEvent(raw.Name, attr, aspec); ok {
				node.Events = append(node.Events, ev)
			}
			continue
		}
		if av, ok := p.resolveAttr(attr, aspec, childScope); ok {
			node.Attrs = append(node.Attrs, av)
		}
	}

	for _, child := range raw.Children {
		if kid := p.resolveNode(child, childScope); kid != nil && known {
			node.Kids = append(node.Kids, kid)
		}
	}

	if !known {
		return nil
	}
	return node
}

// resolveLoop compiles the each/in pair. The collection must be a single
// binding over a collection-typed field.
func (p *pass) resolveLoop(each, in markup.Attr, scope []loopVar) *Loop {
	if !isIdent(each.Value) {
		p.report(BadSyntax, each.Pos, "each requires a plain variable name, got %q", each.Value)
		return nil
	}

	tmpl, err := binding.ParseTemplate(in.Value)
	if err != nil {
		p.report(BadSyntax, in.Pos, "in binding: %v", err)
		return nil
	}
	expr, ok := tmpl.Single()
	if !ok {
		p.report(TypeMismatch, in.Pos, "in requires a single {collection} binding")
		return nil
	}
	resolved, rok := p.resolveExpr(expr, scope, in.Pos)
	if !rok {
		return nil
	}
	if resolved.Type().Kind != schema.KindCollection {
		p.report(TypeMismatch, in.Pos, "in binding must be a collection, got %s", resolved.Type().Kind)
		return nil
	}
	return &Loop{
		Var:        each.Value,
		Depth:      len(scope),
		Collection: resolved,
		Elem:       *resolved.Type().Elem,
	}
}

// resolveGuard compiles a when attribute into a boolean expression.
func (p *pass) resolveGuard(attr markup.Attr, scope []loopVar) Expr {
	tmpl, err := binding.ParseTemplate(attr.Value)
	if err != nil {
		p.report(BadSyntax, attr.Pos, "when binding: %v", err)
		return nil
	}
	expr, ok := tmpl.Single()
	if !ok {
		p.report(TypeMismatch, attr.Pos, "when requires a single {condition} binding")
		return nil
	}
	resolved, rok := p.resolveExpr(expr, scope, attr.Pos)
	if !rok {
		return nil
	}
	if resolved.Type().Kind != schema.KindBool {
		p.report(TypeMismatch, attr.Pos, "when condition must be bool, got %s", resolved.Type().Kind)
		return nil
	}
	return resolved
}

// resolveEvent binds an event attribute to a registered handler. Missing
// names and shape mismatches are resolution errors, never deferred to
// dispatch time.
func (p *pass) resolveEvent(widget string, attr markup.Attr, aspec schema.AttrSpec) (EventBinding, bool) {
	name := attr.Value
	if strings.ContainsAny(name, "{}") {
		p.report(TypeMismatch, attr.Pos, "event attribute %q takes a handler name, not a binding", attr.Name)
		return EventBinding{}, false
	}
	entry, ok := p.reg.Lookup(name)
	if !ok {
		p.report(UnknownHandler, attr.Pos, "unknown handler %q", name)
		return EventBinding{}, false
	}
	// Effect handlers satisfy any event attribute shape: the payload, if
	// present, is delivered to the effect completion, and dispatch defers.
	if entry.Shape != aspec.Shape && entry.Shape != schema.ShapeEffect {
		p.report(TypeMismatch, attr.Pos, "%s.%s requires a %s handler, %q is %s",
			widget, attr.Name, aspec.Shape, name, entry.Shape)
		return EventBinding{}, false
	}
	return EventBinding{
		Event:   attr.Name,
		Handler: entry.Index,
		Shape:   entry.Shape,
		Name:    entry.Name,
	}, true
}

// resolveAttr compiles a non-event attribute value against its spec.
func (p *pass) resolveAttr(attr markup.Attr, aspec schema.AttrSpec, scope []loopVar) (AttrValue, bool) {
	tmpl, err := binding.ParseTemplate(attr.Value)
	if err != nil {
		p.report(BadSyntax, attr.Pos, "attribute %q: %v", attr.Name, err)
		return AttrValue{}, false
	}

	if tmpl.IsLiteral() {
		return p.resolveStaticAttr(attr, aspec, tmpl)
	}

	if aspec.Domain != schema.DomainBinding {
		p.report(TypeMismatch, attr.Pos, "attribute %q does not accept bindings", attr.Name)
		return AttrValue{}, false
	}

	if expr, ok := tmpl.Single(); ok {
		resolved, rok := p.resolveExpr(expr, scope, attr.Pos)
		if !rok {
			return AttrValue{}, false
		}
		if !p.checkAttrType(attr, aspec, resolved.Type().Kind) {
			return AttrValue{}, false
		}
		// Text attributes stringify scalar bindings of other types.
		if aspec.Type == schema.KindText && resolved.Type().Kind != schema.KindText {
			resolved = &Interp{Segments: []InterpSeg{{Expr: resolved}}}
		}
		return AttrValue{Name: attr.Name, Expr: resolved, Pos: attr.Pos}, true
	}

	// Mixed literal/binding segments: string interpolation.
	if aspec.Type != schema.KindText && aspec.Type != schema.KindInvalid {
		p.report(TypeMismatch, attr.Pos, "attribute %q expects %s, interpolation produces text",
			attr.Name, aspec.Type)
		return AttrValue{}, false
	}
	interp := &Interp{}
	for _, seg := range tmpl.Segments {
		if seg.Expr == nil {
			interp.Segments = append(interp.Segments, InterpSeg{Text: seg.Text})
			continue
		}
		resolved, rok := p.resolveExpr(seg.Expr, scope, attr.Pos)
		if !rok {
			return AttrValue{}, false
		}
		if resolved.Type().Kind == schema.KindCollection || resolved.Type().Kind == schema.KindRecord {
			p.report(TypeMismatch, attr.Pos, "cannot interpolate a %s value", resolved.Type().Kind)
			return AttrValue{}, false
		}
		interp.Segments = append(interp.Segments, InterpSeg{Expr: resolved})
	}
	return AttrValue{Name: attr.Name, Expr: interp, Pos: attr.Pos}, true
}

// resolveStaticAttr converts a literal attribute value into its typed form.
func (p *pass) resolveStaticAttr(attr markup.Attr, aspec schema.AttrSpec, tmpl *binding.Template) (AttrValue, bool) {
	text := tmpl.Segments[0].Text

	if aspec.Domain == schema.DomainEnum {
		if !aspec.AllowsToken(text) {
			p.report(TypeMismatch, attr.Pos, "attribute %q: %q is not one of %v",
				attr.Name, text, aspec.Enum)
			return AttrValue{}, false
		}
		return AttrValue{Name: attr.Name, Static: text, Pos: attr.Pos}, true
	}

	switch aspec.Type {
	case schema.KindNumber:
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			p.report(TypeMismatch, attr.Pos, "attribute %q expects a number, got %q", attr.Name, text)
			return AttrValue{}, false
		}
		return AttrValue{Name: attr.Name, Static: n, Pos: attr.Pos}, true
	case schema.KindBool:
		switch text {
		case "true":
			return AttrValue{Name: attr.Name, Static: true, Pos: attr.Pos}, true
		case "false":
			return AttrValue{Name: attr.Name, Static: false, Pos: attr.Pos}, true
		}
		p.report(TypeMismatch, attr.Pos, "attribute %q expects true or false, got %q", attr.Name, text)
		return AttrValue{}, false
	case schema.KindCollection:
		p.report(TypeMismatch, attr.Pos, "attribute %q expects a collection binding", attr.Name)
		return AttrValue{}, false
	default:
		return AttrValue{Name: attr.Name, Static: text, Pos: attr.Pos}, true
	}
}

func (p *pass) checkAttrType(attr markup.Attr, aspec schema.AttrSpec, got schema.Kind) bool {
	// Plan attribute values are scalar. Collections are consumed by the in
	// structural attribute only, never bound to a widget attribute directly.
	if got == schema.KindCollection || got == schema.KindRecord {
		p.report(TypeMismatch, attr.Pos, "attribute %q cannot bind a %s value", attr.Name, got)
		return false
	}
	switch aspec.Type {
	case schema.KindInvalid, schema.KindText:
		// Text attributes stringify any scalar.
		return true
	default:
		if got != aspec.Type {
			p.report(TypeMismatch, attr.Pos, "attribute %q expects %s, got %s", attr.Name, aspec.Type, got)
			return false
		}
		return true
	}
}

// resolveExpr rewrites a binding AST into a resolved, typed IR expression.
// Every leaf identifier must resolve against the loop scope or the model;
// unresolved names are diagnostics here, never runtime errors.
func (p *pass) resolveExpr(e binding.Expr, scope []loopVar, pos markup.Pos) (Expr, bool) {
	switch n := e.(type) {
	case *binding.Lit:
		switch n.Kind {
		case binding.LitNumber:
			return &Lit{Value: n.Num, Typ: schema.Number()}, true
		case binding.LitString:
			return &Lit{Value: n.Str, Typ: schema.Text()}, true
		default:
			return &Lit{Value: n.Bool, Typ: schema.Bool()}, true
		}

	case *binding.Ident:
		// Innermost loop variable wins over model fields.
		for i := len(scope) - 1; i >= 0; i-- {
			if scope[i].name == n.Name {
				return &LoopRef{Depth: scope[i].depth, Name: n.Name, Typ: scope[i].typ}, true
			}
		}
		if ft, ok := p.model.Field(n.Name); ok {
			slot, _ := p.model.Slot(n.Name)
			return &FieldRef{Slot: slot, Name: n.Name, Typ: ft}, true
		}
		p.report(UnknownField, pos, "unknown field %q", n.Name)
		return nil, false

	case *binding.Field:
		recv, ok := p.resolveExpr(n.Recv, scope, pos)
		if !ok {
			return nil, false
		}
		rt := recv.Type()
		if rt.Kind != schema.KindRecord {
			p.report(TypeMismatch, pos, "%s value has no field %q", rt.Kind, n.Name)
			return nil, false
		}
		ft, ok := rt.Fields[n.Name]
		if !ok {
			p.report(UnknownField, pos, "record has no field %q", n.Name)
			return nil, false
		}
		return &SubField{Recv: recv, Name: n.Name, Typ: ft}, true

	case *binding.Index:
		recv, ok := p.resolveExpr(n.Recv, scope, pos)
		if !ok {
			return nil, false
		}
		if recv.Type().Kind != schema.KindCollection {
			p.report(TypeMismatch, pos, "cannot index a %s value", recv.Type().Kind)
			return nil, false
		}
		idx, ok := p.resolveExpr(n.Idx, scope, pos)
		if !ok {
			return nil, false
		}
		if idx.Type().Kind != schema.KindNumber {
			p.report(TypeMismatch, pos, "index must be a number, got %s", idx.Type().Kind)
			return nil, false
		}
		return &IndexExpr{Recv: recv, Idx: idx, Typ: *recv.Type().Elem}, true

	case *binding.Call:
		if n.Name != "len" {
			p.report(UnknownField, pos, "unknown accessor %q", n.Name)
			return nil, false
		}
		if len(n.Args) != 0 {
			p.report(TypeMismatch, pos, "len() takes no arguments")
			return nil, false
		}
		recv, ok := p.resolveExpr(n.Recv, scope, pos)
		if !ok {
			return nil, false
		}
		k := recv.Type().Kind
		if k != schema.KindCollection && k != schema.KindText {
			p.report(TypeMismatch, pos, "len() requires a collection or text value, got %s", k)
			return nil, false
		}
		return &LenCall{Recv: recv}, true

	case *binding.Unary:
		x, ok := p.resolveExpr(n.X, scope, pos)
		if !ok {
			return nil, false
		}
		switch n.Op {
		case binding.OpNot:
			if x.Type().Kind != schema.KindBool {
				p.report(TypeMismatch, pos, "! requires a bool operand, got %s", x.Type().Kind)
				return nil, false
			}
		case binding.OpNeg:
			if x.Type().Kind != schema.KindNumber {
				p.report(TypeMismatch, pos, "unary - requires a number operand, got %s", x.Type().Kind)
				return nil, false
			}
		}
		return &Unary{Op: n.Op, X: x}, true

	case *binding.Binary:
		x, xok := p.resolveExpr(n.X, scope, pos)
		y, yok := p.resolveExpr(n.Y, scope, pos)
		if !xok || !yok {
			return nil, false
		}
		return p.resolveBinary(n.Op, x, y, pos)

	case *binding.Cond:
		cond, ok := p.resolveExpr(n.If, scope, pos)
		if !ok {
			return nil, false
		}
		if cond.Type().Kind != schema.KindBool {
			p.report(TypeMismatch, pos, "condition must be bool, got %s", cond.Type().Kind)
			return nil, false
		}
		then, tok := p.resolveExpr(n.Then, scope, pos)
		els, eok := p.resolveExpr(n.Else, scope, pos)
		if !tok || !eok {
			return nil, false
		}
		if then.Type().Kind != els.Type().Kind {
			p.report(TypeMismatch, pos, "conditional branches disagree: %s vs %s",
				then.Type().Kind, els.Type().Kind)
			return nil, false
		}
		switch then.Type().Kind {
		case schema.KindCollection, schema.KindRecord:
			p.report(TypeMismatch, pos, "conditional branches must be scalar, got %s", then.Type().Kind)
			return nil, false
		}
		return &Cond{If: cond, Then: then, Else: els}, true
	}

	p.report(BadSyntax, pos, "unsupported expression")
	return nil, false
}

func (p *pass) resolveBinary(op binding.Op, x, y Expr, pos markup.Pos) (Expr, bool) {
	xk, yk := x.Type().Kind, y.Type().Kind

	switch op {
	case binding.OpAdd, binding.OpSub, binding.OpMul, binding.OpDiv, binding.OpMod:
		if xk != schema.KindNumber || yk != schema.KindNumber {
			p.report(TypeMismatch, pos, "%s requires number operands, got %s and %s", op, xk, yk)
			return nil, false
		}
		return &Binary{Op: op, X: x, Y: y, Typ: schema.Number()}, true

	case binding.OpLt, binding.OpLe, binding.OpGt, binding.OpGe:
		// Ordered comparison uses the declared type of the operands.
		if xk != yk || (xk != schema.KindNumber && xk != schema.KindText) {
			p.report(TypeMismatch, pos, "%s requires matching number or text operands, got %s and %s", op, xk, yk)
			return nil, false
		}
		return &Binary{Op: op, X: x, Y: y, Typ: schema.Bool()}, true

	case binding.OpEq, binding.OpNe:
		if xk != yk || xk == schema.KindCollection || xk == schema.KindRecord {
			p.report(TypeMismatch, pos, "%s requires matching scalar operands, got %s and %s", op, xk, yk)
			return nil, false
		}
		return &Binary{Op: op, X: x, Y: y, Typ: schema.Bool()}, true

	case binding.OpAnd, binding.OpOr:
		if xk != schema.KindBool || yk != schema.KindBool {
			p.report(TypeMismatch, pos, "%s requires bool operands, got %s and %s", op, xk, yk)
			return nil, false
		}
		return &Binary{Op: op, X: x, Y: y, Typ: schema.Bool()}, true
	}

	p.report(BadSyntax, pos, "unsupported operator %s", op)
	return nil, false
}

func rawAttr(n *markup.Node, name string) (markup.Attr, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return markup.Attr{}, false
}

func appendScope(scope []loopVar, v loopVar) []loopVar {
	out := make([]loopVar, len(scope)+1)
	copy(out, scope)
	out[len(scope)] = v
	return out
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, ch := range s {
		if ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			continue
		}
		if i > 0 && ch >= '0' && ch <= '9' {
			continue
		}
		return false
	}
	return true
}
