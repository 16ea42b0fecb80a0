package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

const sample = `
name: sample
frames: 10
seed: 7
groups:
  - name: dust
    count: 4
    spread: 2
    velocity: {x: 1, y: 0}
    lifetime: 5
  - name: fountain
    count: 1
    emit: 2
    emit_lifetime: 3
systems: [move, age, reap]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Name)
	assert.Equal(t, uint64(7), s.Seed)
	require.Len(t, s.Groups, 2)
	assert.Equal(t, Vec{X: 1}, s.Groups[0].Velocity)
	assert.Equal(t, 2, s.Groups[1].Emit)
	assert.Equal(t, 5, s.Population())
	assert.Len(t, s.Digest, 64)

	assert.True(t, s.Enabled("move"))
	assert.False(t, s.Enabled("spawn"))
}

func TestDigestTracksContent(t *testing.T) {
	a, err := Parse([]byte(sample))
	require.NoError(t, err)
	b, err := Parse([]byte(sample + "\n# comment\n"))
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest, b.Digest)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	_, err := Parse([]byte(`
frames: -1
groups:
  - name: a
    count: 0
  - name: a
    count: 1
    lifetime: -2
systems: [fly]
`))
	require.ErrorIs(t, err, ErrInvalid)
	assert.Len(t, multierr.Errors(err), 6)
}

func TestEmptySystemListEnablesAll(t *testing.T) {
	s := &Scenario{Name: "x", Groups: []Group{{Name: "g", Count: 1}}}
	require.NoError(t, s.Validate())
	for _, name := range Systems {
		assert.True(t, s.Enabled(name))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sample", s.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("name: [unterminated"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse scenario")
}

func TestShippedScenarioIsValid(t *testing.T) {
	s, err := Load(filepath.Join("..", "..", "scenarios", "particles.yaml"))
	require.NoError(t, err)
	assert.Positive(t, s.Population())
}
