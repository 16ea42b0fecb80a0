package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const steerScript = `
function steer(ctx)
  if ctx.x > 10 then
    return { vx = -ctx.vx }
  end
  return { vx = ctx.vx, vy = ctx.vy + 1 }
end

function spawn_count(frame)
  return frame % 3
end
`

func TestSteer(t *testing.T) {
	e, err := NewEngineFromSource("steer.lua", steerScript, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	r, err := e.Steer(SteerContext{X: 1, VX: 2, VY: 0})
	require.NoError(t, err)
	assert.Equal(t, SteerResult{VX: 2, VY: 1}, r)

	r, err = e.Steer(SteerContext{X: 11, VX: 2, VY: 5})
	require.NoError(t, err)
	assert.Equal(t, SteerResult{VX: -2, VY: 5}, r, "missing fields keep the current velocity")
}

func TestSteerErrors(t *testing.T) {
	e, err := NewEngineFromSource("empty.lua", `x = 1`, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	r, err := e.Steer(SteerContext{VX: 3})
	assert.ErrorIs(t, err, ErrMissingFunction)
	assert.Equal(t, 3.0, r.VX)

	broken, err := NewEngineFromSource("broken.lua", `function steer(ctx) error("nope") end`, zap.NewNop())
	require.NoError(t, err)
	defer broken.Close()
	_, err = broken.Steer(SteerContext{})
	assert.ErrorContains(t, err, "nope")
}

func TestSpawnCount(t *testing.T) {
	e, err := NewEngineFromSource("steer.lua", steerScript, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.Has("spawn_count"))
	assert.Equal(t, 2, e.SpawnCount(5, 9))

	plain, err := NewEngineFromSource("plain.lua", ``, zap.NewNop())
	require.NoError(t, err)
	defer plain.Close()
	assert.Equal(t, 9, plain.SpawnCount(5, 9))
}

func TestNewEngineLoadsDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.lua"), []byte(`base = 2`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.lua"), []byte(`function spawn_count(f) return base * f end`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`not lua`), 0o600))

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, 8, e.SpawnCount(4, 0))

	empty, err := NewEngine(filepath.Join(dir, "missing"), zap.NewNop())
	require.NoError(t, err)
	empty.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.lua"), []byte(`this is not lua`), 0o600))
	_, err = NewEngine(dir, zap.NewNop())
	assert.Error(t, err)
}

func TestLoadSourceError(t *testing.T) {
	_, err := NewEngineFromSource("bad.lua", `function (`, zap.NewNop())
	assert.ErrorContains(t, err, "bad.lua")
}
