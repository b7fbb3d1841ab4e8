package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/pkg/schema"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
view: app/view.loom
package: ui
name: Counter
out: app/ui/counter_gen.go
model:
  count: number
  name: text
  items:
    collection: text
  user:
    record:
      age: number
      city: text
handlers:
  increment: no-arg
  set_name: value-arg
  fetch: effect
`))
	require.NoError(t, err)
	require.Equal(t, "app/view.loom", cfg.View)
	require.Equal(t, "Counter", cfg.Name)

	model, err := cfg.BuildModel()
	require.NoError(t, err)

	ft, ok := model.Field("items")
	require.True(t, ok)
	require.Equal(t, schema.KindCollection, ft.Kind)
	require.Equal(t, schema.KindText, ft.Elem.Kind)

	ft, ok = model.Field("user")
	require.True(t, ok)
	require.Equal(t, schema.KindRecord, ft.Kind)
	require.Equal(t, schema.KindNumber, ft.Fields["age"].Kind)

	reg, err := cfg.BuildRegistry()
	require.NoError(t, err)
	require.Equal(t, 3, reg.Len())

	// Sorted name order keeps indices stable across runs.
	fetch, ok := reg.Lookup("fetch")
	require.True(t, ok)
	require.Equal(t, 0, fetch.Index)
	require.Equal(t, schema.ShapeEffect, fetch.Shape)
	setName, ok := reg.Lookup("set_name")
	require.True(t, ok)
	require.Equal(t, 2, setName.Index)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "view: view.loom\n"))
	require.NoError(t, err)
	require.Equal(t, "ui", cfg.Package)
	require.Equal(t, "View", cfg.Name)

	table, err := cfg.BuildTable()
	require.NoError(t, err)
	_, ok := table.Widget("text")
	require.True(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing view", "package: ui\n"},
		{"bad field type", "view: v.loom\nmodel:\n  count: integer\n"},
		{"bad composite", "view: v.loom\nmodel:\n  items:\n    vector: text\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			if err != nil {
				return
			}
			_, err = cfg.BuildModel()
			require.Error(t, err)
		})
	}
}

func TestBuildRegistry_UnknownShape(t *testing.T) {
	cfg, err := Load(writeConfig(t, "view: v.loom\nhandlers:\n  go: async\n"))
	require.NoError(t, err)
	_, err = cfg.BuildRegistry()
	require.Error(t, err)
}
