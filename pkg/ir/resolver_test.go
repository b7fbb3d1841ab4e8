package ir

import (
	"testing"

	"github.com/loomui/loom/pkg/markup"
	"github.com/loomui/loom/pkg/schema"
)

func testModel() *schema.Model {
	return schema.NewModel(map[string]schema.FieldType{
		"count": schema.Number(),
		"done":  schema.Bool(),
		"name":  schema.Text(),
		"items": schema.Collection(schema.Text()),
		"todos": schema.Collection(schema.Record(map[string]schema.FieldType{
			"title": schema.Text(),
			"done":  schema.Bool(),
		})),
		"user": schema.Record(map[string]schema.FieldType{
			"name": schema.Text(),
			"age":  schema.Number(),
		}),
	})
}

func testRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry()
	if err := reg.RegisterNoArg("increment", func(s schema.StateWriter) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterValue("set_name", func(s schema.StateWriter, v any) error { return nil }); err != nil {
		t.Fatal(err)
	}
	return reg
}

func resolve(t *testing.T, source string) (*Tree, []Diagnostic) {
	t.Helper()
	doc, err := markup.Parse("test.loom", source)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	r := NewResolver(schema.DefaultTable(), testModel(), testRegistry(t))
	return r.Resolve(doc)
}

func TestResolve_CleanTree(t *testing.T) {
	tree, diags := resolve(t, `<column padding="8">
	<text value="Count: {count}" />
	<button label="+" on_click="increment" />
</column>`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	root := tree.Root
	if root.Widget != RootWidget || len(root.Kids) != 1 {
		t.Fatalf("bad root: %+v", root)
	}
	col := root.Kids[0]
	if len(col.Attrs) != 1 || col.Attrs[0].Name != "padding" || col.Attrs[0].Static != 8.0 {
		t.Errorf("padding not resolved as static number: %+v", col.Attrs)
	}

	text := col.Kids[0]
	if text.Attrs[0].IsStatic() {
		t.Error("interpolated value should be an expression")
	}
	if _, ok := text.Attrs[0].Expr.(*Interp); !ok {
		t.Errorf("value should resolve to an Interp, got %T", text.Attrs[0].Expr)
	}

	button := col.Kids[1]
	if len(button.Events) != 1 {
		t.Fatalf("button events: %+v", button.Events)
	}
	ev := button.Events[0]
	if ev.Event != "on_click" || ev.Name != "increment" || ev.Shape != schema.ShapeNoArg {
		t.Errorf("bad event binding: %+v", ev)
	}
}

func TestResolve_DiagnosticKinds(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   DiagKind
	}{
		{"unknown widget", `<wobble />`, UnknownWidget},
		{"unknown attribute", `<text value="x" wobble="y" />`, UnknownAttribute},
		{"unknown handler", `<button label="x" on_click="missing" />`, UnknownHandler},
		{"unknown field", `<text value="{nope}" />`, UnknownField},
		{"handler shape mismatch", `<button label="x" on_click="set_name" />`, TypeMismatch},
		{"enum token rejected", `<column align="sideways" />`, TypeMismatch},
		{"binding on literal attribute", `<column style="{name}" />`, TypeMismatch},
		{"number attr with text binding", `<slider value="{name}" />`, TypeMismatch},
		{"bad binding syntax", `<text value="{count +}" />`, BadSyntax},
		{"each without in", `<column each="x" />`, BadSyntax},
		{"in must be collection", `<column each="x" in="{count}" />`, TypeMismatch},
		{"when must be bool", `<text value="x" when="{count}" />`, TypeMismatch},
		{"arith type error", `<text value="{name + 1}" />`, TypeMismatch},
		{"len on number", `<text value="{count.len()}" />`, TypeMismatch},
		{"conditional on collections", `<text value="{done ? items : items}" />`, TypeMismatch},
		{"unknown record field", `<text value="{user.height}" />`, UnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := resolve(t, tt.source)
			if len(diags) == 0 {
				t.Fatal("expected diagnostics")
			}
			found := false
			for _, d := range diags {
				if d.Kind == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("want kind %v in %v", tt.want, diags)
			}
		})
	}
}

func TestResolve_CollectsAllDiagnostics(t *testing.T) {
	_, diags := resolve(t, `<column>
	<text value="{nope}" />
	<button label="x" on_click="missing" />
	<wobble />
</column>`)
	if len(diags) != 3 {
		t.Fatalf("want 3 diagnostics from one pass, got %d: %v", len(diags), diags)
	}
}

func TestResolve_BadAttributeProducesNoBinding(t *testing.T) {
	tree, diags := resolve(t, `<text value="{nope}" />`)
	if len(diags) != 1 || diags[0].Kind != UnknownField {
		t.Fatalf("diags = %v", diags)
	}
	// The node survives, the broken attribute binding does not.
	text := tree.Root.Kids[0]
	if len(text.Attrs) != 0 {
		t.Errorf("broken binding should produce no attribute, got %+v", text.Attrs)
	}
}

func TestResolve_AttributesBindScalarsOnly(t *testing.T) {
	// Collections flow through in; records are only touched through their
	// fields. Neither may bind a plan attribute directly, even a text one,
	// so both backends only ever format scalar values.
	for _, source := range []string{
		`<text value="{items}" />`,
		`<text value="{user}" />`,
	} {
		tree, diags := resolve(t, source)
		if len(diags) != 1 || diags[0].Kind != TypeMismatch {
			t.Fatalf("%s: diags = %v", source, diags)
		}
		text := tree.Root.Kids[0]
		if len(text.Attrs) != 0 {
			t.Errorf("%s: rejected binding should produce no attribute, got %+v", source, text.Attrs)
		}
	}
}

func TestResolve_LoopScope(t *testing.T) {
	tree, diags := resolve(t, `<column each="todo" in="{todos}">
	<text value="{todo.title}" when="{!todo.done}" />
</column>`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	col := tree.Root.Kids[0]
	if col.Loop == nil || col.Loop.Var != "todo" || col.Loop.Depth != 0 {
		t.Fatalf("loop not resolved: %+v", col.Loop)
	}
	if col.Loop.Elem.Kind != schema.KindRecord {
		t.Errorf("loop element type = %v, want record", col.Loop.Elem.Kind)
	}

	text := col.Kids[0]
	if text.When == nil {
		t.Error("when guard missing")
	}
}

func TestResolve_LoopVarShadowsField(t *testing.T) {
	// "name" is both a model field and the loop variable; inner wins.
	tree, diags := resolve(t, `<column each="name" in="{items}"><text value="{name}" /></column>`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	text := tree.Root.Kids[0].Kids[0]
	expr := text.Attrs[0].Expr
	if _, ok := expr.(*LoopRef); !ok {
		t.Errorf("shadowed name should resolve to LoopRef, got %T", expr)
	}
}

func TestResolve_LoopVarOutOfScope(t *testing.T) {
	_, diags := resolve(t, `<column>
	<row each="item" in="{items}"><text value="{item}" /></row>
	<text value="{item}" />
</column>`)
	if len(diags) != 1 || diags[0].Kind != UnknownField {
		t.Fatalf("loop var should not leak out of its subtree: %v", diags)
	}
}

func TestResolve_HandlesNotStrings(t *testing.T) {
	tree, diags := resolve(t, `<button label="+" on_click="increment" />`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	ev := tree.Root.Kids[0].Events[0]
	if ev.Handler < 0 {
		t.Errorf("handler should resolve to a registry index, got %d", ev.Handler)
	}
}

func TestResolve_FieldSlotsAreStable(t *testing.T) {
	m := testModel()
	tree, diags := resolve(t, `<text value="{count}" />`)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	interp := tree.Root.Kids[0].Attrs[0].Expr.(*Interp)
	ref := interp.Segments[0].Expr.(*FieldRef)
	slot, _ := m.Slot("count")
	if ref.Slot != slot {
		t.Errorf("slot = %d, want %d", ref.Slot, slot)
	}
}
