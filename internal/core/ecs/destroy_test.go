package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tree builds keep -> root -> child -> grandchild.
func tree(t *testing.T, w *World) (keep, root, child, grandchild Entity) {
	t.Helper()
	keep = w.Spawn(With(Position{X: 0}))
	root = w.Spawn(With(Position{X: 1}))
	child = w.Spawn(With(Position{X: 2}), With(Velocity{}))
	grandchild = w.Spawn(With(Position{X: 3}))
	e := w.Entities()
	require.True(t, e.AdoptLast(keep, root))
	require.True(t, e.AdoptLast(root, child))
	require.True(t, e.AdoptLast(child, grandchild))
	return
}

func TestDestroyWithDescendants(t *testing.T) {
	w := NewWorld()
	keep, root, child, grandchild := tree(t, w)

	destroy := system(t, w, "destroy", func(d *DestroyDefault) {
		d.One(root, true)
	})
	frame(t, w, destroy)

	for _, e := range []Entity{root, child, grandchild} {
		_, ok := w.Entities().Get(e)
		assert.False(t, ok, "%s should be destroyed", e)
	}
	assert.True(t, w.Entities().Has(keep))
	assert.Empty(t, children(w, keep))
	assert.Equal(t, 1, w.Entities().Len())
	require.NoError(t, w.Validate())

	p, ok := Get[Position](w, keep)
	require.True(t, ok)
	assert.Equal(t, 0.0, p.X)
}

func TestDestroyOrphansChildren(t *testing.T) {
	w := NewWorld()
	keep, root, child, grandchild := tree(t, w)

	ok, err := w.Destroy(root, false)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Empty(t, children(w, keep))
	f, ok := w.Entities().Family(child)
	require.True(t, ok)
	_, hasParent := f.Parent()
	assert.False(t, hasParent, "orphans become roots")
	assert.Equal(t, []Entity{grandchild}, children(w, child))
	require.NoError(t, w.Validate())
}

func TestDestroyOverlappingRequests(t *testing.T) {
	w := NewWorld()
	drops := 0
	keep, root, child, grandchild := tree(t, w)
	_, err := Insert(w, grandchild, Tracked{drops: &drops})
	require.NoError(t, err)

	destroy := system(t, w, "destroy", func(d *Destroy[Late]) {
		d.One(child, true)
		d.All(true, root, grandchild, root)
	})
	frame(t, w, destroy)

	assert.Equal(t, 1, drops, "each row is dropped once")
	assert.Equal(t, []Entity{keep}, entitiesOf(w))
	require.NoError(t, w.Validate())

	frame(t, w, destroy)
	assert.Equal(t, 1, drops, "stale requests are skipped")
}

func TestDestroyPolicyDependencies(t *testing.T) {
	w := NewWorld()
	w.Spawn(With(Position{}))
	w.Spawn(With(Velocity{}))

	early := system(t, w, "early", func(*Destroy[Early]) {})
	var got []string
	for _, d := range early.Depend() {
		got = append(got, d.String())
	}
	assert.Equal(t, []string{"defer(ecs.Entity@0)", "defer(ecs.Entity@1)", "defer(ecs.Family)"}, got)

	late := system(t, w, "late", func(*Destroy[Late]) {})
	assert.Empty(t, late.Depend())
}

func TestDestroyDeadEntity(t *testing.T) {
	w := NewWorld()
	ok, err := w.Destroy(Entity{Index: 5}, true)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = w.Destroy(Null, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func entitiesOf(w *World) []Entity {
	var out []Entity
	w.Entities().Each(func(e Entity, _ *Datum) {
		out = append(out, e)
	})
	return out
}
