package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/segments/internal/core/store"
)

func newTestSegment(capacity int) *Segment {
	w := NewWorld()
	return newSegment(0, []*store.Meta{Register[Position](w)}, w.EntityMeta(), capacity)
}

func TestSegmentReserveWithinCapacity(t *testing.T) {
	s := newTestSegment(4)

	start, granted := s.Reserve(3)
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, granted)

	start, granted = s.Reserve(3)
	assert.Equal(t, 3, start)
	assert.Equal(t, 1, granted)

	_, granted = s.Reserve(1)
	assert.Zero(t, granted)
	assert.Zero(t, s.Count(), "reservations are not live before resolve")

	from, to := s.Resolve()
	assert.Equal(t, 0, from)
	assert.Equal(t, 4, to)
	assert.Equal(t, 4, s.Capacity())
}

func TestSegmentResolveGrowsToPowerOfTwo(t *testing.T) {
	s := newTestSegment(4)
	assert.Equal(t, 0, s.reserveAll(5))

	from, to := s.Resolve()
	assert.Equal(t, 0, from)
	assert.Equal(t, 5, to)
	assert.Equal(t, 8, s.Capacity())
	assert.Len(t, store.Items[Position](s.stores[0]), 8)
	assert.Len(t, store.Items[Entity](s.entities), 8)
}

func TestSegmentRemoveAt(t *testing.T) {
	s := newTestSegment(4)
	s.reserveAll(3)
	s.Resolve()
	positions := store.Items[Position](s.stores[0])
	entities := store.Items[Entity](s.entities)
	for i := 0; i < 3; i++ {
		positions[i] = Position{X: float64(i)}
		entities[i] = Entity{Index: uint32(i)}
	}

	require.True(t, s.RemoveAt(0), "last row moved into the hole")
	assert.Equal(t, 2, s.Count())
	assert.Equal(t, Position{X: 2}, positions[0])
	assert.Equal(t, Entity{Index: 2}, entities[0])
	assert.Equal(t, Position{}, positions[2])

	assert.False(t, s.RemoveAt(1), "removing the last row moves nothing")
	assert.Equal(t, 1, s.Count())

	_, granted := s.Reserve(1)
	assert.Equal(t, 1, granted)
}

func TestNextPowerOfTwo(t *testing.T) {
	for n, want := range map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 8: 8, 9: 16} {
		assert.Equal(t, want, nextPowerOfTwo(n), "n=%d", n)
	}
}

func TestSegmentCloneable(t *testing.T) {
	w := NewWorld()
	ok := newSegment(0, []*store.Meta{Register[Position](w), Register[Inventory](w)}, w.EntityMeta(), 1)
	assert.NoError(t, ok.cloneable())

	bad := newSegment(1, []*store.Meta{Register[Handle](w)}, w.EntityMeta(), 1)
	assert.ErrorIs(t, bad.cloneable(), ErrMissingClone)
}
