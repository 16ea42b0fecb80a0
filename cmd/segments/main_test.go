package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[runtime]
frames = 10
workers = 2
`), 0o600))

	opts, flags, err := parseFlags([]string{"--config", path, "-n", "5", "--scenario", "x.yaml", "--journal"})
	require.NoError(t, err)
	cfg, err := loadConfig(opts, flags)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Runtime.Frames)
	assert.Equal(t, 2, cfg.Runtime.Workers)
	assert.Equal(t, "x.yaml", cfg.Runtime.Scenario)
	assert.True(t, cfg.Database.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEGMENTS_CONFIG", "")

	opts, flags, err := parseFlags(nil)
	require.NoError(t, err)
	cfg, err := loadConfig(opts, flags)
	require.NoError(t, err, "a missing default config falls back to defaults")
	assert.Equal(t, "segments", cfg.Runtime.Name)

	opts, flags, err = parseFlags([]string{"--config", "missing.toml"})
	require.NoError(t, err)
	_, err = loadConfig(opts, flags)
	assert.Error(t, err)
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 5, displayWidth("blocks"[:5]))
	assert.Equal(t, 4, displayWidth("實體"))
}

func TestRunScenario(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(scenarioPath, []byte(`
name: smoke
frames: 3
groups:
  - {name: dust, count: 8, lifetime: 2}
  - {name: fountain, count: 1, emit: 2, emit_lifetime: 1}
`), 0o600))
	configPath := filepath.Join(dir, "segments.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
[logging]
level = "error"
`), 0o600))

	assert.NoError(t, run([]string{"--config", configPath, "--scenario", scenarioPath, "--validate"}))
}
