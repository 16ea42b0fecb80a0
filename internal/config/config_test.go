package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[runtime]
frame_rate = "50ms"
workers = 3
validate = true

[database]
enabled = true
flush_every = 10

[logging]
level = "debug"
format = "json"
`))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Runtime.FrameRate)
	assert.Equal(t, 3, cfg.Runtime.Workers)
	assert.True(t, cfg.Runtime.Validate)
	assert.Equal(t, 32, cfg.Runtime.SegmentCapacity, "untouched keys keep defaults")
	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, 10, cfg.Database.FlushEvery)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotZero(t, cfg.Runtime.StartTime)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "segments.toml")
	require.NoError(t, os.WriteFile(path, []byte("[scripting]\nenabled = true\ndir = \"lua\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Scripting.Enabled)
	assert.Equal(t, "lua", cfg.Scripting.Dir)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[runtime\n"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "segments", cfg.Runtime.Name)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}
