package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, content string) string {
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, ok, err := Find(nested)
	require.NoError(t, err)
	// a qinfer.toml above the temporary directory would be found too
	if ok {
		t.Skip("a qinfer.toml exists above the temporary directory")
	}

	expected := write(t, root, "backend = 'bitvector'\n")
	found, ok, err := Find(nested)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, expected, found)
}

func TestLoad(t *testing.T) {
	path := write(t, t.TempDir(), `
backend = "bitvector"
jobs = 4

[output]
solutions = "solutions.txt"
no_append = true

[log]
level = "debug"
sections = ["encode"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		Backend: "bitvector",
		Jobs:    4,
		Explain: true,
		Output:  Output{Solutions: "solutions.txt", NoAppend: true},
		Log:     Log{Level: "debug", Sections: []string{"encode"}},
	}, cfg)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected string
	}{
		{"syntax", "backend = ", "failed to parse TOML"},
		{"unknown key", "backends = 'maxsat'", "unknown key backends"},
		{"negative jobs", "jobs = -1", "jobs must not be negative"},
		{"level", "[log]\nlevel = 'loud'", "log level 'loud'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(write(t, t.TempDir(), tc.content))
			assert.ErrorContains(t, err, tc.expected)
		})
	}
}

func TestDiscoverDefaults(t *testing.T) {
	dir := t.TempDir()
	if _, ok, _ := Find(dir); ok {
		t.Skip("a qinfer.toml exists above the temporary directory")
	}
	cfg, path, err := Discover(dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, Default(), cfg)
}
