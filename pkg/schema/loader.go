package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAML wire format for the widget schema table. The table is declarative
// data owned by an external collaborator; this loader only decodes and
// validates it.

type tableDoc struct {
	Widgets []widgetDoc `yaml:"widgets"`
}

type widgetDoc struct {
	Kind  string    `yaml:"kind"`
	Attrs []attrDoc `yaml:"attrs"`
}

type attrDoc struct {
	Name      string   `yaml:"name"`
	Class     string   `yaml:"class"`
	Domain    string   `yaml:"domain"`
	Type      string   `yaml:"type"`
	Enum      []string `yaml:"enum"`
	Shape     string   `yaml:"shape"`
	Inherited bool     `yaml:"inherited"`
}

// LoadTable decodes a widget schema table from YAML.
func LoadTable(r io.Reader) (*Table, error) {
	var doc tableDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding widget table: %w", err)
	}

	var specs []*WidgetSpec
	for _, wd := range doc.Widgets {
		if wd.Kind == "" {
			return nil, fmt.Errorf("widget entry without kind")
		}
		spec := &WidgetSpec{Kind: wd.Kind, Attrs: make(map[string]AttrSpec, len(wd.Attrs))}
		for _, ad := range wd.Attrs {
			attr, err := decodeAttr(wd.Kind, ad)
			if err != nil {
				return nil, err
			}
			spec.Attrs[attr.Name] = attr
		}
		specs = append(specs, spec)
	}
	return NewTable(specs...), nil
}

func decodeAttr(kind string, ad attrDoc) (AttrSpec, error) {
	attr := AttrSpec{Name: ad.Name, Enum: ad.Enum, Inherited: ad.Inherited}
	if ad.Name == "" {
		return attr, fmt.Errorf("widget %q: attribute without name", kind)
	}

	switch ad.Class {
	case "layout", "":
		attr.Class = ClassLayout
	case "style":
		attr.Class = ClassStyle
	case "event":
		attr.Class = ClassEvent
	default:
		return attr, fmt.Errorf("widget %q attr %q: unknown class %q", kind, ad.Name, ad.Class)
	}

	switch ad.Domain {
	case "literal", "":
		attr.Domain = DomainLiteral
	case "binding":
		attr.Domain = DomainBinding
	case "enum":
		attr.Domain = DomainEnum
		if len(ad.Enum) == 0 {
			return attr, fmt.Errorf("widget %q attr %q: enum domain without tokens", kind, ad.Name)
		}
	default:
		return attr, fmt.Errorf("widget %q attr %q: unknown domain %q", kind, ad.Name, ad.Domain)
	}

	switch ad.Type {
	case "":
		attr.Type = KindInvalid
	case "number":
		attr.Type = KindNumber
	case "bool":
		attr.Type = KindBool
	case "text":
		attr.Type = KindText
	default:
		return attr, fmt.Errorf("widget %q attr %q: unknown type %q", kind, ad.Name, ad.Type)
	}

	if attr.Class == ClassEvent {
		switch ad.Shape {
		case "no-arg", "":
			attr.Shape = ShapeNoArg
		case "value-arg":
			attr.Shape = ShapeValue
		case "effect":
			attr.Shape = ShapeEffect
		default:
			return attr, fmt.Errorf("widget %q attr %q: unknown shape %q", kind, ad.Name, ad.Shape)
		}
	}

	return attr, nil
}
