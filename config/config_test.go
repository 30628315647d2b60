package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 40000, cfg.Augment.Strands)
	assert.Equal(t, 3, cfg.Augment.Neighbors)
	assert.Equal(t, 2000, cfg.Augment.BatchSize)
	assert.Equal(t, "kdtree", cfg.Augment.Index)
	assert.InDelta(t, 0.1, cfg.Derived.ColorThreshold32, 1e-7)
	assert.Equal(t, slog.LevelInfo, cfg.Derived.LogLevel)
}

func TestLoadOverridesOnlyPresentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("augment:\n  strands: 500\n  index: linear\nlog:\n  level: debug\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Augment.Strands)
	assert.Equal(t, "linear", cfg.Augment.Index)
	assert.Equal(t, 3, cfg.Augment.Neighbors, "unset fields keep defaults")
	assert.Equal(t, slog.LevelDebug, cfg.Derived.LogLevel)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative strands", "augment:\n  strands: -1\n"},
		{"zero neighbors", "augment:\n  neighbors: 0\n"},
		{"zero batch", "augment:\n  batch_size: 0\n"},
		{"unknown index", "augment:\n  index: octree\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg := Default()
	cfg.Augment.Seed = 1234
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Augment, back.Augment)
}

func TestCfgBeforeInitPanics(t *testing.T) {
	global = nil
	assert.Panics(t, func() { Cfg() })

	require.NoError(t, Init(""))
	assert.NotNil(t, Cfg())
}
