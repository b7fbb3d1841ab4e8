// Package plan defines the widget construction plan: the fully evaluated
// tree both execution backends hand to the rendering engine. The core's
// responsibility ends here; drawing pixels belongs to the renderer.
package plan

import (
	"fmt"
	"sort"
	"strings"
)

// Attrs holds the evaluated attribute values of one widget. Values are plain
// Go data: float64, bool, string, []any, map[string]any.
type Attrs map[string]any

// HandlerRef is a resolved event binding: the registry index of the handler,
// never its name. Both backends dispatch through indices.
type HandlerRef struct {
	Index int
	Event string
}

// Node is one widget in the construction plan.
// A plan is immutable once built; each render constructs a fresh tree.
type Node struct {
	Widget   string
	Attrs    Attrs
	Handlers map[string]HandlerRef // event attribute -> resolved handler
	Kids     []Node
}

// New creates a plan node.
func New(widget string, attrs Attrs, kids ...Node) Node {
	return Node{Widget: widget, Attrs: attrs, Kids: kids}
}

// WithHandler returns a copy of the node with an event handler attached.
func (n Node) WithHandler(event string, ref HandlerRef) Node {
	if n.Handlers == nil {
		n.Handlers = make(map[string]HandlerRef)
	}
	n.Handlers[event] = ref
	return n
}

// Equal reports structural equality of two plans: same widgets, same
// evaluated attributes, same handler indices, same children in order. This
// is the observational-equivalence relation the backends are tested against.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Widget != b.Widget || len(a.Kids) != len(b.Kids) {
		return false
	}
	if !attrsEqual(a.Attrs, b.Attrs) {
		return false
	}
	if len(a.Handlers) != len(b.Handlers) {
		return false
	}
	for ev, ref := range a.Handlers {
		if other, ok := b.Handlers[ev]; !ok || other != ref {
			return false
		}
	}
	for i := range a.Kids {
		if !Equal(&a.Kids[i], &b.Kids[i]) {
			return false
		}
	}
	return true
}

func attrsEqual(a, b Attrs) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			ov, ok := bv[k]
			if !ok || !valueEqual(v, ov) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// String renders the plan as an indented sketch, for diagnostics and test
// failure output.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b, 0)
	return b.String()
}

func (n *Node) write(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent)
	b.WriteString(n.Widget)

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, n.Attrs[k])
	}
	evs := make([]string, 0, len(n.Handlers))
	for ev := range n.Handlers {
		evs = append(evs, ev)
	}
	sort.Strings(evs)
	for _, ev := range evs {
		fmt.Fprintf(b, " %s=#%d", ev, n.Handlers[ev].Index)
	}
	b.WriteString("\n")
	for i := range n.Kids {
		n.Kids[i].write(b, depth+1)
	}
}
