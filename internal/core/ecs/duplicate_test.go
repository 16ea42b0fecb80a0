package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateReservationShortfall(t *testing.T) {
	w := NewWorld(WithSegmentCapacity(4))
	source := w.Spawn(With(Position{X: 3, Y: 4}), With(Inventory{Items: []int{1, 2}}))
	w.Spawn(With(Position{}), With(Inventory{}))

	var clones []Entity
	dup := system(t, w, "duplicate", func(d *Duplicate) error {
		var err error
		clones, err = d.One(source, 5)
		return err
	})
	require.NoError(t, dup.Update())
	require.NoError(t, dup.Run())
	require.Len(t, clones, 5)

	w.Resolve()
	s := w.Segments()[0]
	assert.Equal(t, 4, s.Count(), "two clones fit before resize")

	require.NoError(t, dup.Resolve())
	assert.Equal(t, 7, s.Count())
	assert.Equal(t, 8, s.Capacity())
	require.Len(t, w.Segments(), 1)

	for _, c := range clones {
		d, ok := w.Entities().Get(c)
		require.True(t, ok)
		assert.Equal(t, uint32(0), d.Segment)

		p, _ := Get[Position](w, c)
		assert.Equal(t, Position{X: 3, Y: 4}, *p)
		inv, _ := Get[Inventory](w, c)
		assert.Equal(t, []int{1, 2}, inv.Items)
	}
	require.NoError(t, w.Validate())
}

func TestDuplicateClonesDeeply(t *testing.T) {
	w := NewWorld()
	source := w.Spawn(With(Inventory{Items: []int{1}}))
	clones, err := w.Duplicate(source, 2)
	require.NoError(t, err)
	require.Len(t, clones, 2)

	inv, _ := Get[Inventory](w, clones[0])
	inv.Items[0] = 9
	original, _ := Get[Inventory](w, source)
	assert.Equal(t, []int{1}, original.Items)
	other, _ := Get[Inventory](w, clones[1])
	assert.Equal(t, []int{1}, other.Items)
}

func TestDuplicateImmediateShortfall(t *testing.T) {
	w := NewWorld(WithSegmentCapacity(4))
	source := w.Spawn(With(Name{Value: "x"}))
	clones, err := w.Duplicate(source, 5)
	require.NoError(t, err)
	require.Len(t, clones, 5)

	s := w.Segments()[0]
	assert.Equal(t, 6, s.Count())
	for _, c := range clones {
		n, ok := Get[Name](w, c)
		require.True(t, ok)
		assert.Equal(t, "x", n.Value)
	}
	require.NoError(t, w.Validate())
}

func TestDuplicateMissingClone(t *testing.T) {
	w := NewWorld()
	source := w.Spawn(With(Handle{Data: []byte{1}}))
	clones, err := w.Duplicate(source, 2)
	assert.ErrorIs(t, err, ErrMissingClone)
	assert.Nil(t, clones)
	assert.Equal(t, 1, w.Entities().Len())
}

func TestDuplicateDeadEntity(t *testing.T) {
	w := NewWorld()
	source := w.Spawn(With(Position{}))
	_, err := w.Destroy(source, false)
	require.NoError(t, err)

	clones, err := w.Duplicate(source, 3)
	require.NoError(t, err)
	assert.Nil(t, clones)
}

func TestDuplicateDependsOnEverySegment(t *testing.T) {
	w := NewWorld()
	w.Spawn(With(Position{}))
	w.Spawn(With(Position{}), With(Velocity{}))
	dup := system(t, w, "duplicate", func(*Duplicate) {})

	var got []string
	for _, d := range dup.Depend() {
		got = append(got, d.String())
	}
	assert.Equal(t, []string{
		"defer(ecs.Entity)",
		"read(ecs.Entity@0)",
		"read(ecs.Position@0)",
		"read(ecs.Entity@1)",
		"read(ecs.Position@1)",
		"read(ecs.Velocity@1)",
	}, got)
}
