package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/segments/internal/core/store"
)

type point struct{ X, Y int }

type tags struct{ Names []string }

type deep struct{ Items []int }

func (d deep) Clone() deep {
	return deep{Items: append([]int(nil), d.Items...)}
}

type handle struct{ released *int }

func (h *handle) Drop() {
	if h.released != nil {
		*h.released++
	}
}

func TestMetaCapabilities(t *testing.T) {
	assert.True(t, store.NewMeta[point]().Cloneable())
	assert.True(t, store.NewMeta[string]().Cloneable())
	assert.True(t, store.NewMeta[deep]().Cloneable())
	assert.False(t, store.NewMeta[tags]().Cloneable())
	assert.Equal(t, "store_test.point", store.NewMeta[point]().Name)
}

func TestCopyAndSquash(t *testing.T) {
	s := store.New(store.NewMeta[point](), 4)
	for i := 0; i < 4; i++ {
		s.Set(i, point{X: i})
	}

	s.Squash(3, 1, 1)
	items := store.Items[point](s)
	assert.Equal(t, point{X: 3}, items[1])
	assert.Equal(t, point{}, items[3])

	other := store.New(s.Meta(), 2)
	store.Copy(s, 0, other, 1, 1)
	assert.Equal(t, point{X: 0}, *store.At[point](other, 1))
}

func TestSquashRunsDropHooks(t *testing.T) {
	released := 0
	s := store.New(store.NewMeta[handle](), 2)
	s.Set(0, handle{released: &released})
	s.Set(1, handle{released: &released})

	s.Squash(1, 0, 1)
	assert.Equal(t, 1, released)

	s.Free(1, 2)
	assert.Equal(t, 2, released)
	assert.Nil(t, s.Data())
}

func TestCloneAndFill(t *testing.T) {
	s := store.New(store.NewMeta[deep](), 4)
	s.Set(0, deep{Items: []int{1, 2}})

	require.NoError(t, store.Fill(s, 0, s, 1, 3))
	items := store.Items[deep](s)
	for i := 1; i < 4; i++ {
		assert.Equal(t, []int{1, 2}, items[i].Items)
	}
	items[1].Items[0] = 9
	assert.Equal(t, 1, items[0].Items[0])

	require.NoError(t, store.Clone(s, 0, s, 3, 1))
	assert.Equal(t, []int{1, 2}, items[3].Items)
}

func TestMissingClone(t *testing.T) {
	s := store.New(store.NewMeta[tags](), 2)
	s.Set(0, tags{Names: []string{"a"}})

	err := store.Clone(s, 0, s, 1, 1)
	require.ErrorIs(t, err, store.ErrMissingClone)
	require.ErrorIs(t, store.Fill(s, 0, s, 1, 1), store.ErrMissingClone)
}

func TestResizeKeepsValues(t *testing.T) {
	s := store.New(store.NewMeta[int](), 2)
	s.Set(0, 7)
	s.Set(1, 8)

	s.Resize(2, 8)
	assert.Len(t, store.Items[int](s), 8)
	assert.Equal(t, 7, s.Get(0))
	assert.Equal(t, 8, s.Get(1))

	s.Resize(8, 4)
	assert.Len(t, store.Items[int](s), 8)
}
