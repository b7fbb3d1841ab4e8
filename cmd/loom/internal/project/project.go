// Package project loads the loom.yaml project file: where the markup
// lives, the model fields it binds, and the handler names the app
// registers. Tooling builds its resolution inputs from this file so check,
// gen and dev agree with the application about names and types.
package project

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/loomui/loom/pkg/schema"
)

// DefaultFile is the config filename looked up when none is given.
const DefaultFile = "loom.yaml"

// Config is the parsed project file.
type Config struct {
	// View is the markup entry file.
	View string `yaml:"view"`
	// Package and Name control generated identifiers.
	Package string `yaml:"package"`
	Name    string `yaml:"name"`
	// Out is where gen writes the generated source.
	Out string `yaml:"out"`
	// Widgets optionally points at a widget table file; empty means the
	// built-in table.
	Widgets string `yaml:"widgets"`

	Model    map[string]FieldSpec `yaml:"model"`
	Handlers map[string]string    `yaml:"handlers"`
}

// FieldSpec is one model field declaration. Scalars are plain strings
// ("number", "bool", "text"); composites nest:
//
//	items:
//	  collection: text
//	user:
//	  record:
//	    age: number
type FieldSpec struct {
	typ schema.FieldType
}

func (f *FieldSpec) UnmarshalYAML(node *yaml.Node) error {
	typ, err := decodeFieldType(node)
	if err != nil {
		return err
	}
	f.typ = typ
	return nil
}

func decodeFieldType(node *yaml.Node) (schema.FieldType, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.Value {
		case "number":
			return schema.Number(), nil
		case "bool":
			return schema.Bool(), nil
		case "text":
			return schema.Text(), nil
		}
		return schema.FieldType{}, fmt.Errorf("line %d: unknown field type %q", node.Line, node.Value)

	case yaml.MappingNode:
		if len(node.Content) != 2 {
			return schema.FieldType{}, fmt.Errorf("line %d: composite field needs exactly one of collection/record", node.Line)
		}
		key, val := node.Content[0], node.Content[1]
		switch key.Value {
		case "collection":
			elem, err := decodeFieldType(val)
			if err != nil {
				return schema.FieldType{}, err
			}
			return schema.Collection(elem), nil
		case "record":
			if val.Kind != yaml.MappingNode {
				return schema.FieldType{}, fmt.Errorf("line %d: record fields must be a mapping", val.Line)
			}
			fields := make(map[string]schema.FieldType, len(val.Content)/2)
			for i := 0; i < len(val.Content); i += 2 {
				sub, err := decodeFieldType(val.Content[i+1])
				if err != nil {
					return schema.FieldType{}, err
				}
				fields[val.Content[i].Value] = sub
			}
			return schema.Record(fields), nil
		}
		return schema.FieldType{}, fmt.Errorf("line %d: unknown composite %q", key.Line, key.Value)
	}
	return schema.FieldType{}, fmt.Errorf("line %d: malformed field type", node.Line)
}

// Load reads and validates a project file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.View == "" {
		return nil, fmt.Errorf("%s: view is required", path)
	}
	if cfg.Package == "" {
		cfg.Package = "ui"
	}
	if cfg.Name == "" {
		cfg.Name = "View"
	}
	return &cfg, nil
}

// BuildModel constructs the typed model from the config's declarations.
func (c *Config) BuildModel() (*schema.Model, error) {
	fields := make(map[string]schema.FieldType, len(c.Model))
	for name, spec := range c.Model {
		fields[name] = spec.typ
	}
	model := schema.NewModel(fields)
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return model, nil
}

// BuildRegistry constructs a declaration-only handler registry. Handlers
// are registered in sorted name order so resolved indices are stable; the
// application must register the same names in the same order for generated
// dispatch tables to line up.
func (c *Config) BuildRegistry() (*schema.Registry, error) {
	names := make([]string, 0, len(c.Handlers))
	for name := range c.Handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	reg := schema.NewRegistry()
	for _, name := range names {
		var err error
		switch c.Handlers[name] {
		case "no-arg":
			err = reg.RegisterNoArg(name, func(schema.StateWriter) error { return nil })
		case "value-arg":
			err = reg.RegisterValue(name, func(schema.StateWriter, any) error { return nil })
		case "effect":
			err = reg.RegisterEffect(name, func(schema.StateWriter) (*schema.Effect, error) { return nil, nil })
		default:
			err = fmt.Errorf("handler %s: unknown shape %q (want no-arg, value-arg or effect)", name, c.Handlers[name])
		}
		if err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// BuildTable loads the widget table, falling back to the built-ins.
func (c *Config) BuildTable() (*schema.Table, error) {
	if c.Widgets == "" {
		return schema.DefaultTable(), nil
	}
	f, err := os.Open(c.Widgets)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return schema.LoadTable(f)
}
