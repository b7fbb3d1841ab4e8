package schema

// DefaultTable returns the built-in widget schema table. External projects
// normally load their own table from YAML; the built-in set keeps the engine
// usable without configuration and is what the tests exercise.
func DefaultTable() *Table {
	alignEnum := []string{"start", "center", "end", "stretch"}

	group := func(kind string) *WidgetSpec {
		return &WidgetSpec{Kind: kind, Attrs: map[string]AttrSpec{
			"padding": {Name: "padding", Class: ClassLayout, Domain: DomainBinding, Type: KindNumber, Inherited: true},
			"spacing": {Name: "spacing", Class: ClassLayout, Domain: DomainBinding, Type: KindNumber, Inherited: true},
			"align":   {Name: "align", Class: ClassLayout, Domain: DomainEnum, Enum: alignEnum, Inherited: true},
			"style":   {Name: "style", Class: ClassStyle, Domain: DomainLiteral, Inherited: true},
			"theme":   {Name: "theme", Class: ClassStyle, Domain: DomainLiteral, Inherited: true},
		}}
	}

	return NewTable(
		group("column"),
		group("row"),
		&WidgetSpec{Kind: "text", Attrs: map[string]AttrSpec{
			"value": {Name: "value", Class: ClassStyle, Domain: DomainBinding, Type: KindText},
			"style": {Name: "style", Class: ClassStyle, Domain: DomainLiteral},
		}},
		&WidgetSpec{Kind: "button", Attrs: map[string]AttrSpec{
			"label":    {Name: "label", Class: ClassStyle, Domain: DomainBinding, Type: KindText},
			"enabled":  {Name: "enabled", Class: ClassLayout, Domain: DomainBinding, Type: KindBool},
			"style":    {Name: "style", Class: ClassStyle, Domain: DomainLiteral},
			"on_click": {Name: "on_click", Class: ClassEvent, Shape: ShapeNoArg},
		}},
		&WidgetSpec{Kind: "input", Attrs: map[string]AttrSpec{
			"value":       {Name: "value", Class: ClassStyle, Domain: DomainBinding, Type: KindText},
			"placeholder": {Name: "placeholder", Class: ClassStyle, Domain: DomainLiteral},
			"on_input":    {Name: "on_input", Class: ClassEvent, Shape: ShapeValue},
			"on_submit":   {Name: "on_submit", Class: ClassEvent, Shape: ShapeNoArg},
		}},
		&WidgetSpec{Kind: "image", Attrs: map[string]AttrSpec{
			"src": {Name: "src", Class: ClassStyle, Domain: DomainBinding, Type: KindText},
			"fit": {Name: "fit", Class: ClassLayout, Domain: DomainEnum, Enum: []string{"contain", "cover", "fill"}},
		}},
		&WidgetSpec{Kind: "checkbox", Attrs: map[string]AttrSpec{
			"checked":   {Name: "checked", Class: ClassStyle, Domain: DomainBinding, Type: KindBool},
			"label":     {Name: "label", Class: ClassStyle, Domain: DomainBinding, Type: KindText},
			"on_change": {Name: "on_change", Class: ClassEvent, Shape: ShapeValue},
		}},
		&WidgetSpec{Kind: "slider", Attrs: map[string]AttrSpec{
			"min":       {Name: "min", Class: ClassLayout, Domain: DomainBinding, Type: KindNumber},
			"max":       {Name: "max", Class: ClassLayout, Domain: DomainBinding, Type: KindNumber},
			"value":     {Name: "value", Class: ClassStyle, Domain: DomainBinding, Type: KindNumber},
			"on_change": {Name: "on_change", Class: ClassEvent, Shape: ShapeValue},
		}},
	)
}
