package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	o := Default()
	require.NoError(t, o.Validate())
	assert.True(t, o.Rewrite)
	assert.True(t, o.Cascade)
	assert.False(t, o.Paranoid)
	assert.Equal(t, "text", o.Format)
	assert.Len(t, o.EngineOptions(nil), 7)
	assert.Len(t, o.EngineOptions(slog.Default()), 8)
}

func TestParse_AppliesFields(t *testing.T) {
	src := `
maxnode:  4096
timer:    1.5
paranoid: true
cascade:  false
format:   "json"
verbose:  2
quiet:    1
`
	o, err := Parse("test.cue", []byte(src), Default())
	require.NoError(t, err)

	assert.Equal(t, 4096, o.MaxNodes)
	assert.Equal(t, 1500*time.Millisecond, o.Timer)
	assert.True(t, o.Paranoid)
	assert.False(t, o.Cascade)
	assert.True(t, o.Rewrite, "absent fields keep the base value")
	assert.Equal(t, "json", o.Format)
	assert.Equal(t, 1, o.Verbosity)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", `maxnodes: 10`},
		{"below range", `maxnode: 8`},
		{"bad format", `format: "xml"`},
		{"wrong type", `paranoid: "yes"`},
		{"syntax", `maxnode: `},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad.cue", []byte(tc.src), Default())
			require.Error(t, err)
			var ce *ConfigError
			assert.True(t, errors.As(err, &ce), "got %T: %v", err, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qtree.cue")
	require.NoError(t, os.WriteFile(path, []byte("pure: true\nmaxdepth: 2\n"), 0o644))

	o, err := LoadFile(path, Default())
	require.NoError(t, err)
	assert.True(t, o.Pure)
	assert.Equal(t, 2, o.MaxDepth)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"), Default())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	o := Default()
	o.MaxNodes = 10
	assert.Error(t, o.Validate())

	o = Default()
	o.Format = "yaml"
	assert.Error(t, o.Validate())
}

func TestLogLevel(t *testing.T) {
	o := Default()
	assert.Equal(t, slog.LevelInfo, o.LogLevel())
	o.Verbosity = 1
	assert.Equal(t, slog.LevelDebug, o.LogLevel())
	o.Verbosity = -1
	assert.Equal(t, slog.LevelWarn, o.LogLevel())
	o.Verbosity = -3
	assert.Equal(t, slog.LevelError, o.LogLevel())
}
