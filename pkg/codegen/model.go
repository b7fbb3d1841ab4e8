package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/loomui/loom/pkg/schema"
)

// Model struct and loader emission. The generated struct is the typed,
// hand-written-equivalent shape of the model schema; the loader converts a
// shared-state snapshot into it once per frame, so attribute evaluation
// inside Build is plain field access.

func (g *generator) emitModel() {
	g.emitStructTypes(g.modelType(), g.modelFields())

	g.printf("// Load%s captures the current shared state as a typed model.\n", g.modelType())
	g.printf("func Load%s(v shared.View) *%s {\n", g.modelType(), g.modelType())
	g.printf("\tm := &%s{}\n", g.modelType())
	for _, name := range g.model.Fields() {
		ft, _ := g.model.Field(name)
		g.printf("\tm.%s = %s\n", exported(name), g.convertCall(ft, path{name}, fmt.Sprintf("v.Get(%q)", name)))
	}
	g.printf("\treturn m\n")
	g.printf("}\n\n")

	g.emitConverters(g.modelFields(), nil)
}

func (g *generator) modelType() string {
	return g.opts.Name + "Model"
}

func (g *generator) modelFields() map[string]schema.FieldType {
	fields := make(map[string]schema.FieldType, len(g.model.Fields()))
	for _, name := range g.model.Fields() {
		ft, _ := g.model.Field(name)
		fields[name] = ft
	}
	return fields
}

// path identifies a nested position in the model, for stable type and
// converter naming.
type path []string

func (p path) typeName(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, part := range p {
		b.WriteString(exported(part))
	}
	return b.String()
}

// emitStructTypes writes the struct for one record and, recursively, the
// structs of nested records and collection elements.
func (g *generator) emitStructTypes(name string, fields map[string]schema.FieldType) {
	type nested struct {
		name   string
		fields map[string]schema.FieldType
	}
	var queue []nested

	g.printf("type %s struct {\n", name)
	for _, fname := range sortedKeys(fields) {
		ft := fields[fname]
		g.printf("\t%s %s\n", exported(fname), g.goType(ft, path{fname}, name))
	}
	g.printf("}\n\n")

	for _, fname := range sortedKeys(fields) {
		collectNested(fields[fname], path{fname}, name, func(tn string, fs map[string]schema.FieldType) {
			queue = append(queue, nested{tn, fs})
		})
	}
	for _, n := range queue {
		g.emitStructTypes(n.name, n.fields)
	}
}

// goType maps a field type to generated Go. Records become named structs
// derived from their path.
func (g *generator) goType(ft schema.FieldType, p path, owner string) string {
	switch ft.Kind {
	case schema.KindNumber:
		return "float64"
	case schema.KindBool:
		return "bool"
	case schema.KindText:
		return "string"
	case schema.KindCollection:
		return "[]" + g.goType(*ft.Elem, p, owner)
	case schema.KindRecord:
		return owner + exported(p[len(p)-1])
	default:
		return "any"
	}
}

// collectNested finds the record types reachable from one field. Only the
// first record along a path gets a type here; deeper ones are found when
// that record's struct is emitted.
func collectNested(ft schema.FieldType, p path, owner string, fn func(string, map[string]schema.FieldType)) {
	switch ft.Kind {
	case schema.KindCollection:
		collectNested(*ft.Elem, p, owner, fn)
	case schema.KindRecord:
		fn(owner+exported(p[len(p)-1]), ft.Fields)
	}
}

// convertCall returns the expression converting a raw snapshot value (any)
// into the generated typed form.
func (g *generator) convertCall(ft schema.FieldType, p path, src string) string {
	switch ft.Kind {
	case schema.KindNumber:
		return fmt.Sprintf("asNumber(%s)", src)
	case schema.KindBool:
		return fmt.Sprintf("asBool(%s)", src)
	case schema.KindText:
		return fmt.Sprintf("asText(%s)", src)
	default:
		g.needConverter(ft, p)
		return fmt.Sprintf("%s(%s)", g.converterName(p), src)
	}
}

func (g *generator) converterName(p path) string {
	return "load" + p.typeName(g.modelType())
}

func (g *generator) needConverter(ft schema.FieldType, p path) {
	key := g.converterName(p)
	if g.converters == nil {
		g.converters = make(map[string]converter)
	}
	if _, ok := g.converters[key]; !ok {
		g.converters[key] = converter{ft: ft, p: p}
	}
}

type converter struct {
	ft schema.FieldType
	p  path
}

// emitConverters writes conversion functions for collection and record
// fields, walking the whole schema so nested shapes are covered.
func (g *generator) emitConverters(fields map[string]schema.FieldType, prefix path) {
	for _, fname := range sortedKeys(fields) {
		g.registerConverters(fields[fname], append(append(path{}, prefix...), fname))
	}

	for _, key := range sortedConverterKeys(g.converters) {
		c := g.converters[key]
		g.emitConverter(key, c.ft, c.p)
	}

	g.printf(scalarHelpers)
}

func (g *generator) registerConverters(ft schema.FieldType, p path) {
	switch ft.Kind {
	case schema.KindCollection:
		g.needConverter(ft, p)
		g.registerConverters(*ft.Elem, p)
	case schema.KindRecord:
		g.needConverter(ft, p)
		for _, sub := range sortedKeys(ft.Fields) {
			g.registerConverters(ft.Fields[sub], append(append(path{}, p...), sub))
		}
	}
}

func (g *generator) emitConverter(name string, ft schema.FieldType, p path) {
	goType := g.goTypeAtPath(ft, p)
	switch ft.Kind {
	case schema.KindCollection:
		g.printf("func %s(raw any) %s {\n", name, goType)
		g.printf("\tsrc, _ := raw.([]any)\n")
		g.printf("\tout := make(%s, 0, len(src))\n", goType)
		g.printf("\tfor _, e := range src {\n")
		g.printf("\t\tout = append(out, %s)\n", g.elemConvert(*ft.Elem, p, "e"))
		g.printf("\t}\n")
		g.printf("\treturn out\n")
		g.printf("}\n\n")
	case schema.KindRecord:
		g.printf("func %s(raw any) %s {\n", name, goType)
		g.printf("\tsrc, _ := raw.(map[string]any)\n")
		g.printf("\tvar out %s\n", goType)
		for _, sub := range sortedKeys(ft.Fields) {
			g.printf("\tout.%s = %s\n", exported(sub),
				g.elemConvert(ft.Fields[sub], append(append(path{}, p...), sub), fmt.Sprintf("src[%q]", sub)))
		}
		g.printf("\treturn out\n")
		g.printf("}\n\n")
	}
}

func (g *generator) elemConvert(ft schema.FieldType, p path, src string) string {
	switch ft.Kind {
	case schema.KindNumber:
		return fmt.Sprintf("asNumber(%s)", src)
	case schema.KindBool:
		return fmt.Sprintf("asBool(%s)", src)
	case schema.KindText:
		return fmt.Sprintf("asText(%s)", src)
	default:
		return fmt.Sprintf("%s(%s)", g.converterName(p), src)
	}
}

// goTypeAtPath renders the Go type of a nested field, with record names
// derived from the path.
func (g *generator) goTypeAtPath(ft schema.FieldType, p path) string {
	switch ft.Kind {
	case schema.KindCollection:
		return "[]" + g.goTypeAtPath(*ft.Elem, p)
	case schema.KindRecord:
		return p.typeName(g.modelType())
	default:
		return goScalarType(ft.Kind)
	}
}

const scalarHelpers = `func asNumber(v any) float64 {
	n, _ := v.(float64)
	return n
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asText(v any) string {
	s, _ := v.(string)
	return s
}

`

func sortedKeys(m map[string]schema.FieldType) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedConverterKeys(m map[string]converter) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
