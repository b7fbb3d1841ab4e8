// Package schema holds the static declarations the resolver binds markup
// against: the host application's model schema, the named handler registry,
// and the per-widget-kind attribute table. All three are supplied once at
// startup and read-only afterwards.
package schema

import (
	"fmt"
	"sort"
)

// Kind is the semantic type of a model field or expression.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNumber
	KindBool
	KindText
	KindCollection
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindText:
		return "text"
	case KindCollection:
		return "collection"
	case KindRecord:
		return "record"
	default:
		return "invalid"
	}
}

// FieldType describes one model field. Collection fields carry their element
// type; record fields carry their nested field set.
type FieldType struct {
	Kind   Kind
	Elem   *FieldType           // KindCollection only
	Fields map[string]FieldType // KindRecord only
}

// Convenience constructors, mirroring how the host declares its schema.

func Number() FieldType { return FieldType{Kind: KindNumber} }
func Bool() FieldType   { return FieldType{Kind: KindBool} }
func Text() FieldType   { return FieldType{Kind: KindText} }

func Collection(elem FieldType) FieldType {
	return FieldType{Kind: KindCollection, Elem: &elem}
}

func Record(fields map[string]FieldType) FieldType {
	return FieldType{Kind: KindRecord, Fields: fields}
}

// Model is the static enumeration of the application's state fields. It is
// declaration only; live values live in the shared-state runtime.
type Model struct {
	fields map[string]FieldType
	slots  map[string]int
	order  []string
}

// NewModel builds a model schema from a field map. Each top-level field is
// assigned a stable slot index; the resolver embeds slots in the IR so that
// evaluation reads state by index, never by name.
func NewModel(fields map[string]FieldType) *Model {
	m := &Model{
		fields: make(map[string]FieldType, len(fields)),
		slots:  make(map[string]int, len(fields)),
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m.fields[name] = fields[name]
		m.slots[name] = len(m.order)
		m.order = append(m.order, name)
	}
	return m
}

// Slot returns the stable index of a top-level field.
func (m *Model) Slot(name string) (int, bool) {
	s, ok := m.slots[name]
	return s, ok
}

// SlotCount returns the number of top-level fields.
func (m *Model) SlotCount() int { return len(m.order) }

// FieldAt returns the field occupying a slot.
func (m *Model) FieldAt(slot int) (string, FieldType) {
	name := m.order[slot]
	return name, m.fields[name]
}

// Field returns the declared type of a field.
func (m *Model) Field(name string) (FieldType, bool) {
	ft, ok := m.fields[name]
	return ft, ok
}

// Fields returns the declared field names. Order is not significant.
func (m *Model) Fields() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Validate checks the declaration is internally consistent.
func (m *Model) Validate() error {
	for name, ft := range m.fields {
		if err := validateType(name, ft); err != nil {
			return err
		}
	}
	return nil
}

func validateType(name string, ft FieldType) error {
	switch ft.Kind {
	case KindNumber, KindBool, KindText:
		return nil
	case KindCollection:
		if ft.Elem == nil {
			return fmt.Errorf("field %q: collection without element type", name)
		}
		return validateType(name, *ft.Elem)
	case KindRecord:
		if len(ft.Fields) == 0 {
			return fmt.Errorf("field %q: record without fields", name)
		}
		for sub, sft := range ft.Fields {
			if err := validateType(name+"."+sub, sft); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("field %q: invalid kind", name)
	}
}
