// Package bench compares the two execution backends on the same view: the
// dev-mode interpreter walking the IR, and compiled construction code in
// the exact shape loom gen emits. The compiled shape must produce an equal
// plan and carry no interpretation overhead beyond plain Go.
package bench

import (
	"fmt"
	"testing"
	"time"

	"github.com/loomui/loom/pkg/interp"
	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/markup"
	"github.com/loomui/loom/pkg/plan"
	"github.com/loomui/loom/pkg/schema"
	"github.com/loomui/loom/pkg/shared"
)

// benchSource exercises every construct both backends implement:
// interpolation, arithmetic, a loop, a guard, a ternary and handlers.
const benchSource = `<column padding="8">
	<text value="Items: {items.len()}" />
	<text value="{done ? 'finished' : 'working'}" when="{items.len() > 0}" />
	<text each="item" in="{items}" value="{item}" />
	<button label="add {count + 1}" on_click="add_item" />
</column>`

func benchItems(n int) []any {
	items := make([]any, n)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	return items
}

type backend struct {
	ctx *shared.Context
	reg *schema.Registry
	it  *interp.Interpreter
}

func newBackend(tb testing.TB, items int) *backend {
	tb.Helper()

	model := schema.NewModel(map[string]schema.FieldType{
		"count": schema.Number(),
		"done":  schema.Bool(),
		"items": schema.Collection(schema.Text()),
	})

	reg := schema.NewRegistry()
	if err := reg.RegisterNoArg("add_item", func(s schema.StateWriter) error {
		s.Set("count", s.Get("count").(float64)+1)
		return nil
	}); err != nil {
		tb.Fatal(err)
	}

	resolver := ir.NewResolver(schema.DefaultTable(), model, reg)
	doc, err := markup.Parse("bench.loom", benchSource)
	if err != nil {
		tb.Fatal(err)
	}
	tree, diags := resolver.Resolve(doc)
	if len(diags) > 0 {
		tb.Fatalf("resolution failed: %v", diags)
	}

	ctx, err := shared.New(model, map[string]any{
		"count": 1.0,
		"done":  true,
		"items": benchItems(items),
	})
	if err != nil {
		tb.Fatal(err)
	}

	return &backend{ctx: ctx, reg: reg, it: interp.New(tree, ctx.Handle(), reg)}
}

// benchModel mirrors the struct loom gen emits for this view.
type benchModel struct {
	Count float64
	Done  bool
	Items []string
}

func loadBenchModel(v shared.View) *benchModel {
	m := &benchModel{}
	m.Count, _ = v.Get("count").(float64)
	m.Done, _ = v.Get("done").(bool)
	raw, _ := v.Get("items").([]any)
	m.Items = make([]string, 0, len(raw))
	for _, e := range raw {
		s, _ := e.(string)
		m.Items = append(m.Items, s)
	}
	return m
}

// buildGenerated is the construction code loom gen emits for benchSource,
// transcribed so the compiled backend can run inside this test binary.
func buildGenerated(m *benchModel) *plan.Node {
	root := plan.Node{Widget: "view"}
	n1 := plan.Node{Widget: "column", Attrs: plan.Attrs{"padding": float64(8)}}
	n2 := plan.Node{Widget: "text", Attrs: plan.Attrs{"value": "Items: " + plan.FormatValue(float64(len(m.Items)))}}
	n1.Kids = append(n1.Kids, n2)
	if float64(len(m.Items)) > float64(0) {
		n3 := plan.Node{Widget: "text", Attrs: plan.Attrs{"value": func() string {
			if m.Done {
				return "finished"
			}
			return "working"
		}()}}
		n1.Kids = append(n1.Kids, n3)
	}
	for _, v0 := range m.Items {
		n4 := plan.Node{Widget: "text", Attrs: plan.Attrs{"value": v0}}
		n1.Kids = append(n1.Kids, n4)
	}
	n5 := plan.Node{
		Widget:   "button",
		Attrs:    plan.Attrs{"label": "add " + plan.FormatValue(m.Count+float64(1))},
		Handlers: map[string]plan.HandlerRef{"on_click": {Index: 0, Event: "on_click"}},
	}
	n1.Kids = append(n1.Kids, n5)
	root.Kids = append(root.Kids, n1)
	return &root
}

// buildHandwritten is what a developer would write by hand for the same
// view, the baseline the compiled backend is measured against.
func buildHandwritten(m *benchModel) *plan.Node {
	kids := make([]plan.Node, 0, len(m.Items)+3)
	kids = append(kids, plan.Node{
		Widget: "text",
		Attrs:  plan.Attrs{"value": fmt.Sprintf("Items: %d", len(m.Items))},
	})
	if len(m.Items) > 0 {
		status := "working"
		if m.Done {
			status = "finished"
		}
		kids = append(kids, plan.Node{Widget: "text", Attrs: plan.Attrs{"value": status}})
	}
	for _, item := range m.Items {
		kids = append(kids, plan.Node{Widget: "text", Attrs: plan.Attrs{"value": item}})
	}
	kids = append(kids, plan.Node{
		Widget:   "button",
		Attrs:    plan.Attrs{"label": "add " + plan.FormatValue(m.Count+1)},
		Handlers: map[string]plan.HandlerRef{"on_click": {Index: 0, Event: "on_click"}},
	})
	return &plan.Node{
		Widget: "view",
		Kids: []plan.Node{{
			Widget: "column",
			Attrs:  plan.Attrs{"padding": float64(8)},
			Kids:   kids,
		}},
	}
}

// TestBackendsProduceEqualPlans pins the behavioral contract: the
// interpreter and the compiled shape build structurally equal plans from
// the same state, including after a dispatch.
func TestBackendsProduceEqualPlans(t *testing.T) {
	for _, items := range []int{0, 1, 10, 100} {
		b := newBackend(t, items)

		interpreted, err := b.it.Render()
		if err != nil {
			t.Fatalf("Render() failed: %v", err)
		}

		var compiled *plan.Node
		b.ctx.Handle().Read(func(v shared.View) {
			compiled = buildGenerated(loadBenchModel(v))
		})

		if !plan.Equal(interpreted, compiled) {
			t.Errorf("%d items: backends disagree\ninterp:   %s\ncompiled: %s",
				items, interpreted, compiled)
		}

		if _, err := b.it.Dispatch(interp.Event{Handler: 0}); err != nil {
			t.Fatalf("Dispatch() failed: %v", err)
		}

		interpreted, _ = b.it.Render()
		b.ctx.Handle().Read(func(v shared.View) {
			compiled = buildGenerated(loadBenchModel(v))
		})
		if !plan.Equal(interpreted, compiled) {
			t.Errorf("%d items: backends disagree after dispatch", items)
		}
	}
}

func TestFullCycleLatency(t *testing.T) {
	if testing.Short() {
		t.Skip("latency measurement")
	}
	b := newBackend(t, 100)

	const iterations = 200
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if _, err := b.it.Dispatch(interp.Event{Handler: 0}); err != nil {
			t.Fatal(err)
		}
		if _, err := b.it.Render(); err != nil {
			t.Fatal(err)
		}
	}
	avg := time.Since(start) / iterations

	// A full event-to-plan cycle on a 100 item view stays comfortably
	// interactive.
	if avg > 5*time.Millisecond {
		t.Errorf("full cycle took %v average, expected <5ms", avg)
	} else {
		t.Logf("full cycle: %v average", avg)
	}
}

func BenchmarkInterpreterRender(b *testing.B) {
	for _, items := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("items-%d", items), func(b *testing.B) {
			be := newBackend(b, items)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := be.it.Render(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCompiledRender(b *testing.B) {
	for _, items := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("items-%d", items), func(b *testing.B) {
			be := newBackend(b, items)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				be.ctx.Handle().Read(func(v shared.View) {
					_ = buildGenerated(loadBenchModel(v))
				})
			}
		})
	}
}

func BenchmarkHandwrittenRender(b *testing.B) {
	for _, items := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("items-%d", items), func(b *testing.B) {
			be := newBackend(b, items)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				be.ctx.Handle().Read(func(v shared.View) {
					_ = buildHandwritten(loadBenchModel(v))
				})
			}
		})
	}
}

func BenchmarkDispatch(b *testing.B) {
	be := newBackend(b, 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := be.it.Dispatch(interp.Event{Handler: 0}); err != nil {
			b.Fatal(err)
		}
	}
}
