package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qtree/internal/config"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/full_adder.yaml")
	require.NoError(t, err)

	assert.Equal(t, "full_adder", s.Name)
	assert.Equal(t, 3, s.Keys)
	require.NotNil(t, s.Options.Paranoid)
	assert.True(t, *s.Options.Paranoid)
	assert.Nil(t, s.Options.Pure)
	require.Len(t, s.Exprs, 4)
	assert.Equal(t, ExprStep{Name: "sum", Expr: "ab^c^"}, s.Exprs[0])
	require.Len(t, s.Assertions, 3)
	assert.Equal(t, AssertSameGroup, s.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	data := `name: typo
description: "misspelled field"
keys: 2
exprz:
  - name: x
    expr: "ab&"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	const head = "name: s\ndescription: d\nkeys: 2\n"
	const exprs = "exprs:\n  - name: x\n    expr: \"ab&\"\n  - name: y\n    expr: \"ab+\"\n"

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no name", "description: d\nkeys: 2\n" + exprs, "name is required"},
		{"no description", "name: s\nkeys: 2\n" + exprs, "description is required"},
		{"no keys", "name: s\ndescription: d\n" + exprs, "keys must be positive"},
		{"no exprs", head + "assertions:\n  - type: max_groups\n", "exprs list is required"},
		{"no assertions", head + exprs, "assertions list is required"},
		{"bad expr", head + "exprs:\n  - name: x\n    expr: \"a&\"\nassertions:\n  - type: max_groups\n", "exprs[0] x"},
		{"duplicate name", head + "exprs:\n  - name: x\n    expr: \"a\"\n  - name: x\n    expr: \"b\"\nassertions:\n  - type: max_groups\n", "duplicate name"},
		{"unknown type", head + exprs + "assertions:\n  - type: shiny\n", "unknown assertion type"},
		{"missing type", head + exprs + "assertions:\n  - count: 1\n", "type is required"},
		{"one name", head + exprs + "assertions:\n  - type: same_group\n    names: [x]\n", "at least two names"},
		{"unknown expr", head + exprs + "assertions:\n  - type: equivalent\n    names: [x, z]\n", "unknown expression \"z\""},
		{"canonical without want", head + exprs + "assertions:\n  - type: canonical\n    name: x\n", "needs name and want"},
		{"negative count", head + exprs + "assertions:\n  - type: max_groups\n    count: -1\n", "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestScenarioOptions_Apply(t *testing.T) {
	off := false
	s, err := ParseScenario([]byte(`name: s
description: d
keys: 2
options:
  rewrite: false
  maxnode: 128
  maxdepth: 1
exprs:
  - name: x
    expr: "ab&"
assertions:
  - type: max_groups
    count: 1
`))
	require.NoError(t, err)
	assert.Equal(t, &off, s.Options.Rewrite)

	base := s.Options.apply(config.Default())
	assert.False(t, base.Rewrite)
	assert.True(t, base.Cascade)
	assert.Equal(t, 128, base.MaxNodes)
	assert.Equal(t, 1, base.MaxDepth)
}
