package schema

// AttrClass groups widget attributes by role.
type AttrClass uint8

const (
	ClassLayout AttrClass = iota
	ClassStyle
	ClassEvent
)

func (c AttrClass) String() string {
	switch c {
	case ClassLayout:
		return "layout"
	case ClassStyle:
		return "style"
	case ClassEvent:
		return "event"
	default:
		return "unknown"
	}
}

// Domain constrains the value form an attribute accepts.
type Domain uint8

const (
	// DomainLiteral accepts literal text only. Theme and style selection is
	// static and resolved at IR-build time, so those attributes are literal.
	DomainLiteral Domain = iota
	// DomainBinding accepts a literal or a {...} binding.
	DomainBinding
	// DomainEnum accepts one of a fixed set of tokens, literal only.
	DomainEnum
)

// AttrSpec describes one permitted attribute of a widget kind.
type AttrSpec struct {
	Name   string
	Class  AttrClass
	Domain Domain
	// Type is the semantic type a bound value must have. KindInvalid means
	// any type is accepted (it will be stringified).
	Type Kind
	// Enum lists the allowed tokens for DomainEnum.
	Enum []string
	// Shape is the required handler shape for ClassEvent attributes.
	Shape HandlerShape
	// Inherited attributes thread down from group widgets to the resolved
	// group node only; they are never copied onto children.
	Inherited bool
}

// AllowsToken reports whether a literal token is in the enum domain.
func (a AttrSpec) AllowsToken(tok string) bool {
	for _, e := range a.Enum {
		if e == tok {
			return true
		}
	}
	return false
}

// WidgetSpec is the full attribute surface of one widget kind.
type WidgetSpec struct {
	Kind  string
	Attrs map[string]AttrSpec
}

// Attr looks up one attribute spec.
func (w *WidgetSpec) Attr(name string) (AttrSpec, bool) {
	a, ok := w.Attrs[name]
	return a, ok
}

// Table is the process-wide widget schema table. Initialized once at startup
// and never mutated afterwards; concurrent readers need no locking.
type Table struct {
	widgets map[string]*WidgetSpec
}

// NewTable builds a table from widget specs.
func NewTable(specs ...*WidgetSpec) *Table {
	t := &Table{widgets: make(map[string]*WidgetSpec, len(specs))}
	for _, s := range specs {
		t.widgets[s.Kind] = s
	}
	return t
}

// Widget looks up a widget kind.
func (t *Table) Widget(kind string) (*WidgetSpec, bool) {
	w, ok := t.widgets[kind]
	return w, ok
}

// Kinds returns the known widget kind names.
func (t *Table) Kinds() []string {
	out := make([]string, 0, len(t.widgets))
	for k := range t.widgets {
		out = append(out, k)
	}
	return out
}
