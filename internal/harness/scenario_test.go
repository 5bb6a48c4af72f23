package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spec.cue"), []byte(`builtin: x: { type: "v", attributes: "n" }`), 0o644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "renamed_generic.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "renamed_generic", s.Name)
	assert.Equal(t, "GENERIC", s.Macros.Builtin)
	assert.Empty(t, s.Macros.Library)
	assert.Equal(t, []string{"GENERIC"}, s.Consumer.Define)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "specs", "six.cue"), s.Specs[0])
	assert.Len(t, s.Assertions, 4)
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: d
specs: [spec.cue]
consumer: { define: [BUILTIN] }
assertion:
  - type: no_leaked_macros
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing name",
			body: "description: d\nspecs: [spec.cue]\nconsumer: {define: [BUILTIN]}\nassertions: [{type: no_leaked_macros}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			body: "name: n\nspecs: [spec.cue]\nconsumer: {define: [BUILTIN]}\nassertions: [{type: no_leaked_macros}]\n",
			want: "description is required",
		},
		{
			name: "missing specs",
			body: "name: n\ndescription: d\nconsumer: {define: [BUILTIN]}\nassertions: [{type: no_leaked_macros}]\n",
			want: "specs list is required",
		},
		{
			name: "spec not found",
			body: "name: n\ndescription: d\nspecs: [nope.cue]\nconsumer: {define: [BUILTIN]}\nassertions: [{type: no_leaked_macros}]\n",
			want: "spec path not found",
		},
		{
			name: "no consumer",
			body: "name: n\ndescription: d\nspecs: [spec.cue]\nassertions: [{type: no_leaked_macros}]\n",
			want: "consumer.define is required",
		},
		{
			name: "no assertions",
			body: "name: n\ndescription: d\nspecs: [spec.cue]\nconsumer: {define: [BUILTIN]}\n",
			want: "assertions list is required",
		},
		{
			name: "bad macro name",
			body: "name: n\ndescription: d\nspecs: [spec.cue]\nmacros: {builtin: 1X}\nconsumer: {define: [BUILTIN]}\nassertions: [{type: no_leaked_macros}]\n",
			want: "not a C identifier",
		},
		{
			name: "unknown assertion",
			body: "name: n\ndescription: d\nspecs: [spec.cue]\nconsumer: {define: [BUILTIN]}\nassertions: [{type: trace_order}]\n",
			want: `unknown assertion type "trace_order"`,
		},
		{
			name: "contains without name",
			body: "name: n\ndescription: d\nspecs: [spec.cue]\nconsumer: {define: [BUILTIN]}\nassertions: [{type: expansion_contains, macro: BUILTIN}]\n",
			want: "macro and name are required",
		},
		{
			name: "bad category",
			body: "name: n\ndescription: d\nspecs: [spec.cue]\nconsumer: {define: [BUILTIN]}\nassertions: [{type: category_count, category: weird}]\n",
			want: "assertions[0]",
		},
		{
			name: "emit error without field",
			body: "name: n\ndescription: d\nspecs: [spec.cue]\nassertions: [{type: emit_error, name: x}]\n",
			want: "name and field are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	specsDir, err := filepath.Abs(filepath.Join("testdata", "specs"))
	require.NoError(t, err)

	path := writeScenario(t, "name: n\ndescription: d\nspecs: [six.cue]\nconsumer: {define: [BUILTIN]}\nassertions: [{type: no_leaked_macros}]\n")
	s, err := LoadScenarioWithBasePath(path, specsDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(specsDir, "six.cue"), s.Specs[0])
}

func TestLoadScenario_NotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
