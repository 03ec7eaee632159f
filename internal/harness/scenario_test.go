package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/layersync/internal/ir"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
bind: map
layers:
  - name: roads
    opacity: 0.5
    properties:
      zIndex: 2
steps:
  - op: insert_record
    id: rivers
    index: 0
assertions:
  - type: order
    ids: [rivers, roads]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, BindMap, scenario.Bind)
	require.Len(t, scenario.Layers, 1)
	require.Len(t, scenario.Steps, 1)
	assert.Equal(t, OpInsertRecord, scenario.Steps[0].Op)
	require.NotNil(t, scenario.Steps[0].Index)
	assert.Equal(t, 0, *scenario.Steps[0].Index)
	assert.Equal(t, []string{"rivers", "roads"}, scenario.Assertions[0].IDs)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Misspelled assertions key"
assertion:
  - type: order
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nassertions: [{type: order}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: n\nassertions: [{type: order}]\n",
			want: "description is required",
		},
		{
			name: "missing assertions",
			yaml: "name: n\ndescription: d\n",
			want: "assertions list is required",
		},
		{
			name: "unknown bind",
			yaml: "name: n\ndescription: d\nbind: tree\nassertions: [{type: order}]\n",
			want: "unknown target",
		},
		{
			name: "group bind without group",
			yaml: "name: n\ndescription: d\nbind: group\nlayers: [{name: a}]\nassertions: [{type: order}]\n",
			want: "first layer to be a group",
		},
		{
			name: "unnamed layer",
			yaml: "name: n\ndescription: d\nlayers: [{title: A}]\nassertions: [{type: order}]\n",
			want: "layers[0]: name is required",
		},
		{
			name: "unknown op",
			yaml: "name: n\ndescription: d\nsteps: [{op: move}]\nassertions: [{type: order}]\n",
			want: `unknown op "move"`,
		},
		{
			name: "insert without index",
			yaml: "name: n\ndescription: d\nsteps: [{op: insert_entity, id: x}]\nassertions: [{type: order}]\n",
			want: "index is required",
		},
		{
			name: "set without props",
			yaml: "name: n\ndescription: d\nsteps: [{op: set_record, id: x}]\nassertions: [{type: order}]\n",
			want: "props is required",
		},
		{
			name: "replace without with",
			yaml: "name: n\ndescription: d\nsteps: [{op: replace_record, id: x}]\nassertions: [{type: order}]\n",
			want: "id and with are required",
		},
		{
			name: "trace_count without count",
			yaml: "name: n\ndescription: d\nassertions: [{type: trace_count, kind: add}]\n",
			want: "non-negative count is required",
		},
		{
			name: "trace_count bad direction",
			yaml: "name: n\ndescription: d\nassertions: [{type: trace_count, kind: add, count: 1, direction: up}]\n",
			want: `unknown direction "up"`,
		},
		{
			name: "record_field without key",
			yaml: "name: n\ndescription: d\nassertions: [{type: record_field, id: a}]\n",
			want: "id and key are required",
		},
		{
			name: "unknown assertion",
			yaml: "name: n\ndescription: d\nassertions: [{type: final_state}]\n",
			want: `unknown assertion type "final_state"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLayer_SpecDefaults(t *testing.T) {
	hidden := false
	spec, err := Layer{
		Name:       "base",
		Properties: map[string]any{"zIndex": 2},
		Layers:     []Layer{{Name: "streets", Visible: &hidden}},
	}.Spec()
	require.NoError(t, err)

	assert.Equal(t, "base", spec.Title)
	assert.True(t, spec.Visible)
	assert.Equal(t, 1.0, spec.Opacity)
	assert.Equal(t, ir.Object{"zIndex": ir.Int(2)}, spec.Properties)
	assert.True(t, spec.IsGroup())
	require.Len(t, spec.Layers, 1)
	assert.False(t, spec.Layers[0].Visible)
}

func TestFindScenarios(t *testing.T) {
	files, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, f := range files {
		assert.Equal(t, ".yaml", filepath.Ext(f))
	}
}
