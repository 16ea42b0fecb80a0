package ecs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type Position struct{ X, Y float64 }

type Velocity struct{ X, Y float64 }

type Tag struct{}

type Name struct{ Value string }

// Inventory deep-copies its slice when duplicated.
type Inventory struct{ Items []int }

func (i *Inventory) Clone() Inventory {
	return Inventory{Items: append([]int(nil), i.Items...)}
}

// Handle holds a pointer and cannot be cloned.
type Handle struct{ Data []byte }

// Tracked counts how many of its values were dropped.
type Tracked struct{ drops *int }

func (t *Tracked) Drop() {
	if t.drops != nil {
		*t.drops++
	}
}

// frame runs systems the way a runner runs a single block.
func frame(t *testing.T, w *World, systems ...*System) {
	t.Helper()
	for _, s := range systems {
		require.NoError(t, s.Update())
	}
	for _, s := range systems {
		require.NoError(t, s.Run())
	}
	w.Resolve()
	for _, s := range systems {
		require.NoError(t, s.Resolve())
	}
}

func system(t *testing.T, w *World, name string, fn any) *System {
	t.Helper()
	s, err := NewSystem(w, name, fn)
	require.NoError(t, err)
	return s
}

func children(w *World, parent Entity) []Entity {
	f, ok := w.Entities().Family(parent)
	if !ok {
		return nil
	}
	var out []Entity
	for c := range f.Children() {
		out = append(out, c)
	}
	return out
}
