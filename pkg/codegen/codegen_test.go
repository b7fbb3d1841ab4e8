package codegen

import (
	"strings"
	"testing"

	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/markup"
	"github.com/loomui/loom/pkg/schema"
)

func testModel() *schema.Model {
	return schema.NewModel(map[string]schema.FieldType{
		"count": schema.Number(),
		"name":  schema.Text(),
		"done":  schema.Bool(),
		"items": schema.Collection(schema.Text()),
		"user": schema.Record(map[string]schema.FieldType{
			"age":  schema.Number(),
			"city": schema.Text(),
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
	if err := reg.RegisterEffect("fetch", func(s schema.StateWriter) (*schema.Effect, error) { return nil, nil }); err != nil {
		t.Fatal(err)
	}
	return reg
}

func generate(t *testing.T, source string) string {
	t.Helper()

	model := testModel()
	reg := testRegistry(t)
	resolver := ir.NewResolver(schema.DefaultTable(), model, reg)

	doc, err := markup.Parse("view.loom", source)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	tree, diags := resolver.Resolve(doc)
	if len(diags) > 0 {
		t.Fatalf("resolution failed: %v", diags)
	}

	out, err := Generate(tree, model, Options{Package: "ui", Name: "View"})
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	return string(out)
}

func mustContain(t *testing.T, src string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(src, want) {
			t.Errorf("generated source missing %q\n%s", want, src)
		}
	}
}

func TestGenerate_Header(t *testing.T) {
	src := generate(t, `<text value="hi" />`)

	mustContain(t, src,
		"// Code generated by loom gen from view.loom. DO NOT EDIT.",
		"package ui",
		`"github.com/loomui/loom/pkg/plan"`,
	)
}

func TestGenerate_ModelStructAndLoader(t *testing.T) {
	src := generate(t, `<text value="{name}" />`)

	mustContain(t, src,
		"type ViewModel struct {",
		"Count float64",
		"Done bool",
		"Items []string",
		"Name string",
		"User ViewModelUser",
		"type ViewModelUser struct {",
		"Age float64",
		"City string",
		"func LoadViewModel(v shared.View) *ViewModel {",
		`m.Count = asNumber(v.Get("count"))`,
		`m.Items = loadViewModelItems(v.Get("items"))`,
		`m.User = loadViewModelUser(v.Get("user"))`,
	)
}

func TestGenerate_Converters(t *testing.T) {
	src := generate(t, `<text value="{name}" />`)

	mustContain(t, src,
		"func loadViewModelItems(raw any) []string {",
		"src, _ := raw.([]any)",
		"func loadViewModelUser(raw any) ViewModelUser {",
		"src, _ := raw.(map[string]any)",
		`out.Age = asNumber(src["age"])`,
	)
}

func TestGenerate_FieldReadsNotLookups(t *testing.T) {
	src := generate(t, `<text value="{name}" /><text value="Count: {count}" />`)

	mustContain(t, src,
		`"value": m.Name`,
		`"value": "Count: " + plan.FormatValue(m.Count)`,
	)
	// Build must not look fields up by name at runtime.
	body := src[strings.Index(src, "func BuildView"):]
	if strings.Contains(body[:strings.Index(body, "func Dispatch")], `v.Get(`) {
		t.Error("BuildView reads state by name instead of struct fields")
	}
}

func TestGenerate_StaticLiteralTypes(t *testing.T) {
	src := generate(t, `<column padding="8"><text value="hi" /></column>`)

	// Static numbers carry the canonical runtime type so plans compare equal
	// across backends.
	mustContain(t, src, `"padding": float64(8)`)
}

func TestGenerate_LoopAndGuard(t *testing.T) {
	src := generate(t, `<column>
		<text each="item" in="{items}" value="{item}" />
		<text value="done" when="{done}" />
	</column>`)

	mustContain(t, src,
		"for _, v0 := range m.Items {",
		`"value": v0`,
		"if m.Done {",
	)
}

func TestGenerate_ConditionalIsLazy(t *testing.T) {
	src := generate(t, `<text value="{done ? items[0] : name}" />`)

	// Ternaries compile to closures so only the taken branch evaluates; an
	// eager items[0] would panic on an empty collection even when done is
	// false.
	mustContain(t, src, "func() string { if m.Done { return m.Items[int(float64(0))] }; return m.Name }()")
}

func TestGenerate_ModuloTruncates(t *testing.T) {
	src := generate(t, `<text value="{count % 2}" />`)

	mustContain(t, src, "float64(int64(m.Count) % int64(float64(2)))")
}

func TestGenerate_DispatchSwitch(t *testing.T) {
	src := generate(t, `<column>
		<button label="+" on_click="increment" />
		<input value="{name}" on_input="set_name" />
		<button label="go" on_click="fetch" />
	</column>`)

	mustContain(t, src,
		"func DispatchView(state *shared.Handle, reg *schema.Registry, handler int, value any) (*schema.Effect, error) {",
		"switch handler {",
		"return reg.At(0).NoArg(mu)",
		"return reg.At(1).Value(mu, value)",
		"eff, ferr = reg.At(2).Effect(mu)",
		`return nil, fmt.Errorf("no handler at index %d", handler)`,
	)
}

func TestGenerate_HandlerRefIndices(t *testing.T) {
	src := generate(t, `<button label="+" on_click="increment" />`)

	mustContain(t, src, `Handlers: map[string]plan.HandlerRef{"on_click": {Index: 0, Event: "on_click"}}`)
}

func TestGenerate_OutputIsGofmted(t *testing.T) {
	src := generate(t, `<column><text each="item" in="{items}" value="{item}" /></column>`)

	if strings.Contains(src, "\n\n\n") {
		t.Error("generated source has runs of blank lines")
	}
	for _, line := range strings.Split(src, "\n") {
		if strings.HasSuffix(line, " ") {
			t.Errorf("trailing whitespace in generated line %q", line)
		}
	}
}
