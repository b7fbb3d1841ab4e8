// Package interp is the dev-mode execution backend: it walks the resolved
// IR each frame, evaluating bindings against live model state, and supports
// swapping in a new IR tree under a running view for hot reload.
package interp

import (
	"fmt"
	"sync/atomic"

	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/markup"
	"github.com/loomui/loom/pkg/plan"
	"github.com/loomui/loom/pkg/schema"
	"github.com/loomui/loom/pkg/shared"
)

// Interpreter renders one view's IR tree against the shared state. The tree
// pointer is swapped atomically on hot reload, so an in-progress render sees
// either the old tree or the new one in full, never a mix.
type Interpreter struct {
	tree  atomic.Pointer[ir.Tree]
	state *shared.Handle
	reg   *schema.Registry
}

// New creates an interpreter over a resolved tree.
func New(tree *ir.Tree, state *shared.Handle, reg *schema.Registry) *Interpreter {
	it := &Interpreter{state: state, reg: reg}
	it.tree.Store(tree)
	return it
}

// Tree returns the currently active IR tree.
func (it *Interpreter) Tree() *ir.Tree { return it.tree.Load() }

// Swap atomically replaces the active tree. The live model and shared
// context are untouched; only the IR pointer moves.
func (it *Interpreter) Swap(tree *ir.Tree) { it.tree.Store(tree) }

// Render evaluates the active tree against current state and produces a
// construction plan. Each render builds a fresh plan; there is no keyed
// diffing against prior frames.
func (it *Interpreter) Render() (p *plan.Node, err error) {
	tree := it.tree.Load()

	var snapshot []any
	it.state.Read(func(v shared.View) { snapshot = v.Snapshot() })

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render %s: %v", tree.File, r)
		}
	}()

	e := &env{slots: snapshot}
	nodes := renderNode(tree.Root, e)
	if len(nodes) != 1 {
		return nil, fmt.Errorf("render %s: root expansion produced %d nodes", tree.File, len(nodes))
	}
	return &nodes[0], nil
}

// renderNode expands one IR node into zero or more plan nodes: zero when a
// visibility guard is false, one per collection element under a loop.
func renderNode(n *ir.Node, e *env) []plan.Node {
	if n.Loop != nil {
		coll, _ := eval(n.Loop.Collection, e).([]any)
		out := make([]plan.Node, 0, len(coll))
		for _, elem := range coll {
			e.setLoop(n.Loop.Depth, elem)
			out = append(out, renderInstance(n, e)...)
		}
		return out
	}
	return renderInstance(n, e)
}

// renderInstance builds one concrete instance of a node, loop variables
// already bound.
func renderInstance(n *ir.Node, e *env) []plan.Node {
	if n.When != nil && !eval(n.When, e).(bool) {
		return nil
	}

	var attrs plan.Attrs
	if len(n.Attrs) > 0 {
		attrs = make(plan.Attrs, len(n.Attrs))
		for _, a := range n.Attrs {
			if a.IsStatic() {
				attrs[a.Name] = a.Static
			} else {
				attrs[a.Name] = eval(a.Expr, e)
			}
		}
	}

	node := plan.Node{Widget: n.Widget, Attrs: attrs}
	for _, ev := range n.Events {
		node = node.WithHandler(ev.Event, plan.HandlerRef{Index: ev.Handler, Event: ev.Event})
	}
	for _, kid := range n.Kids {
		node.Kids = append(node.Kids, renderNode(kid, e)...)
	}
	return []plan.Node{node}
}

// Event is one incoming UI event, carrying the resolved handler index from
// the construction plan and an optional payload value.
type Event struct {
	Handler int
	Value   any
}

// DispatchError reports a handler invocation failure. The view keeps
// running with stale-but-consistent state.
type DispatchError struct {
	Handler string
	Err     error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.Handler, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Dispatch invokes the handler bound to an event. Synchronous handlers run
// with the write lock held and released before return; effect handlers
// return a deferred effect for the runtime to execute off the dispatch loop.
// Handler panics become DispatchErrors, never crashes.
func (it *Interpreter) Dispatch(ev Event) (effect *schema.Effect, err error) {
	entry := it.reg.At(ev.Handler)
	if entry == nil {
		return nil, &DispatchError{
			Handler: fmt.Sprintf("#%d", ev.Handler),
			Err:     fmt.Errorf("no handler at index %d", ev.Handler),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			effect = nil
			err = &DispatchError{Handler: entry.Name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	werr := it.state.Write(func(m *shared.Mut) error {
		switch entry.Shape {
		case schema.ShapeNoArg:
			return entry.NoArg(m)
		case schema.ShapeValue:
			return entry.Value(m, ev.Value)
		default:
			var ferr error
			effect, ferr = entry.Effect(m)
			return ferr
		}
	})
	if werr != nil {
		return nil, &DispatchError{Handler: entry.Name, Err: werr}
	}
	return effect, nil
}

// Reload runs the full parse/resolve pipeline on new markup source and
// swaps the active tree only if resolution is clean. On any failure the
// previous IR stays active and the failure comes back as diagnostics, so a
// broken edit never takes down a running view.
func (it *Interpreter) Reload(res *ir.Resolver, filename, source string) []ir.Diagnostic {
	doc, err := markup.Parse(filename, source)
	if err != nil {
		pos := markup.Pos{File: filename}
		if se, ok := err.(*markup.SyntaxError); ok {
			pos = se.Pos
		}
		return []ir.Diagnostic{{Kind: ir.BadSyntax, Pos: pos, Msg: err.Error()}}
	}

	tree, diags := res.Resolve(doc)
	if len(diags) > 0 {
		return diags
	}

	it.Swap(tree)
	return nil
}
