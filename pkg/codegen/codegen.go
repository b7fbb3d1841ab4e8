// Package codegen is the prod-mode execution backend: it consumes a
// resolved IR tree once, ahead of time, and emits Go source whose
// construction plan output is observationally identical to what the
// interpreter produces from the same IR and state — with no residual
// interpretation overhead. Bindings become field reads, loops become range
// statements, and handler dispatch becomes a switch over resolved indices.
package codegen

import (
	"fmt"
	"go/format"
	"sort"
	"strings"

	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/schema"
)

// Options controls the emitted file.
type Options struct {
	// Package is the package name of the generated file.
	Package string
	// Name prefixes the generated identifiers (BuildName, NameModel...).
	Name string
}

// Generate emits the construction and dispatch source for one resolved
// tree. The input must be diagnostic-free; production builds fail before
// reaching this point otherwise.
func Generate(tree *ir.Tree, model *schema.Model, opts Options) ([]byte, error) {
	if tree == nil || tree.Root == nil {
		return nil, fmt.Errorf("codegen: nil tree")
	}
	if opts.Package == "" {
		opts.Package = "ui"
	}
	if opts.Name == "" {
		opts.Name = "View"
	}

	g := &generator{opts: opts, model: model}
	g.emitHeader(tree)
	g.emitModel()
	g.emitBuild(tree)
	g.emitDispatch(tree)

	src := g.buf.String()
	formatted, err := format.Source([]byte(src))
	if err != nil {
		// A formatting failure is a generator bug; return the raw source in
		// the error so it can be inspected.
		return nil, fmt.Errorf("codegen: formatting generated source: %w\n%s", err, src)
	}
	return formatted, nil
}

type generator struct {
	buf        strings.Builder
	opts       Options
	model      *schema.Model
	converters map[string]converter
	varID      int
}

func (g *generator) printf(format string, args ...interface{}) {
	fmt.Fprintf(&g.buf, format, args...)
}

func (g *generator) emitHeader(tree *ir.Tree) {
	g.printf("// Code generated by loom gen from %s. DO NOT EDIT.\n\n", tree.File)
	g.printf("package %s\n\n", g.opts.Package)
	g.printf("import (\n")
	g.printf("\t\"fmt\"\n\n")
	g.printf("\t\"github.com/loomui/loom/pkg/plan\"\n")
	g.printf("\t\"github.com/loomui/loom/pkg/schema\"\n")
	g.printf("\t\"github.com/loomui/loom/pkg/shared\"\n")
	g.printf(")\n\n")
}

func (g *generator) emitBuild(tree *ir.Tree) {
	g.printf("// Build%s constructs the widget plan for the current model state.\n", g.opts.Name)
	g.printf("func Build%s(m *%s) *plan.Node {\n", g.opts.Name, g.modelType())
	g.printf("\troot := plan.Node{Widget: %q}\n", ir.RootWidget)
	for _, kid := range tree.Root.Kids {
		g.emitNode(kid, "root", 1)
	}
	g.printf("\treturn &root\n")
	g.printf("}\n\n")
}

// emitNode writes the statements constructing one IR node and appending it
// to its parent. Loops become range statements over the typed collection;
// visibility guards become plain if statements.
func (g *generator) emitNode(n *ir.Node, parent string, depth int) {
	ind := strings.Repeat("\t", depth)

	if n.Loop != nil {
		g.printf("%sfor _, %s := range %s {\n", ind, loopVar(n.Loop.Depth), g.expr(n.Loop.Collection))
		g.emitInstance(n, parent, depth+1)
		g.printf("%s}\n", ind)
		return
	}
	g.emitInstance(n, parent, depth)
}

func (g *generator) emitInstance(n *ir.Node, parent string, depth int) {
	ind := strings.Repeat("\t", depth)

	if n.When != nil {
		g.printf("%sif %s {\n", ind, g.expr(n.When))
		g.emitBody(n, parent, depth+1)
		g.printf("%s}\n", ind)
		return
	}
	g.emitBody(n, parent, depth)
}

func (g *generator) emitBody(n *ir.Node, parent string, depth int) {
	ind := strings.Repeat("\t", depth)
	g.varID++
	v := fmt.Sprintf("n%d", g.varID)

	g.printf("%s%s := plan.Node{Widget: %q", ind, v, n.Widget)
	if len(n.Attrs) > 0 {
		g.printf(", Attrs: plan.Attrs{")
		for i, a := range n.Attrs {
			if i > 0 {
				g.printf(", ")
			}
			if a.IsStatic() {
				g.printf("%q: %s", a.Name, litSource(a.Static))
			} else {
				g.printf("%q: %s", a.Name, g.expr(a.Expr))
			}
		}
		g.printf("}")
	}
	if len(n.Events) > 0 {
		g.printf(", Handlers: map[string]plan.HandlerRef{")
		for i, ev := range n.Events {
			if i > 0 {
				g.printf(", ")
			}
			g.printf("%q: {Index: %d, Event: %q}", ev.Event, ev.Handler, ev.Event)
		}
		g.printf("}")
	}
	g.printf("}\n")

	for _, kid := range n.Kids {
		g.emitNode(kid, v, depth)
	}

	g.printf("%s%s.Kids = append(%s.Kids, %s)\n", ind, parent, parent, v)
}

// emitDispatch writes the direct event dispatch switch: one case per
// handler the view binds, shape resolved at generation time.
func (g *generator) emitDispatch(tree *ir.Tree) {
	events := collectEvents(tree.Root)

	g.printf("// Dispatch%s routes an event to its handler with the write lock held.\n", g.opts.Name)
	g.printf("func Dispatch%s(state *shared.Handle, reg *schema.Registry, handler int, value any) (*schema.Effect, error) {\n", g.opts.Name)
	g.printf("\tswitch handler {\n")
	for _, ev := range events {
		g.printf("\tcase %d: // %s (%s)\n", ev.Handler, ev.Name, ev.Shape)
		switch ev.Shape {
		case schema.ShapeNoArg:
			g.printf("\t\treturn nil, state.Write(func(mu *shared.Mut) error { return reg.At(%d).NoArg(mu) })\n", ev.Handler)
		case schema.ShapeValue:
			g.printf("\t\treturn nil, state.Write(func(mu *shared.Mut) error { return reg.At(%d).Value(mu, value) })\n", ev.Handler)
		default:
			g.printf("\t\tvar eff *schema.Effect\n")
			g.printf("\t\terr := state.Write(func(mu *shared.Mut) error {\n")
			g.printf("\t\t\tvar ferr error\n")
			g.printf("\t\t\teff, ferr = reg.At(%d).Effect(mu)\n", ev.Handler)
			g.printf("\t\t\treturn ferr\n")
			g.printf("\t\t})\n")
			g.printf("\t\treturn eff, err\n")
		}
	}
	g.printf("\tdefault:\n")
	g.printf("\t\treturn nil, fmt.Errorf(\"no handler at index %%d\", handler)\n")
	g.printf("\t}\n")
	g.printf("}\n")
}

// collectEvents gathers the distinct handler bindings of a tree, ordered by
// handler index.
func collectEvents(n *ir.Node) []ir.EventBinding {
	seen := make(map[int]ir.EventBinding)
	var walk func(*ir.Node)
	walk = func(n *ir.Node) {
		for _, ev := range n.Events {
			if _, ok := seen[ev.Handler]; !ok {
				seen[ev.Handler] = ev
			}
		}
		for _, kid := range n.Kids {
			walk(kid)
		}
	}
	walk(n)

	indices := make([]int, 0, len(seen))
	for i := range seen {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	out := make([]ir.EventBinding, 0, len(indices))
	for _, i := range indices {
		out = append(out, seen[i])
	}
	return out
}
