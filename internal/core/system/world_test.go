package system_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/segments/internal/core/ecs"
	"github.com/l1jgo/segments/internal/core/system"
)

type position struct{ X float64 }

type velocity struct{ X float64 }

type expired struct{}

type label struct{ Value string }

func mustSystem(t *testing.T, w *ecs.World, name string, fn any) *ecs.System {
	t.Helper()
	s, err := ecs.NewSystem(w, name, fn)
	require.NoError(t, err)
	return s
}

func TestRunnerDrivesWorld(t *testing.T) {
	w := ecs.NewWorld()
	for i := 0; i < 3; i++ {
		w.Spawn(ecs.With(position{}), ecs.With(velocity{X: 1}))
	}
	w.Spawn(ecs.With(label{Value: "static"}))

	var labels int
	r := system.NewRunner(w, system.WithWorkers(2))
	r.Register(system.PhaseUpdate,
		mustSystem(t, w, "move", func(q *ecs.Query2[ecs.Mut[position], ecs.Ref[velocity], ecs.All]) {
			q.Each(func(_ ecs.Entity, p ecs.Mut[position], v ecs.Ref[velocity]) {
				p.Get().X += v.Get().X
			})
		}),
		mustSystem(t, w, "labels", func(q *ecs.Query1[ecs.Ref[label], ecs.All]) {
			labels = q.Count()
		}),
	)
	r.Register(system.PhasePostUpdate,
		mustSystem(t, w, "mark", func(q *ecs.Query1[ecs.Ref[position], ecs.Not[ecs.Has[expired]]], add *ecs.Add[expired]) {
			q.Each(func(e ecs.Entity, p ecs.Ref[position]) {
				if p.Get().X >= 3 {
					add.One(e, expired{})
				}
			})
		}),
	)
	r.Register(system.PhaseCleanup,
		mustSystem(t, w, "reap", func(q *ecs.Query1[ecs.Ref[expired], ecs.All], d *ecs.DestroyDefault) {
			q.Each(func(e ecs.Entity, _ ecs.Ref[expired]) {
				d.One(e, true)
			})
		}),
	)

	require.NoError(t, r.Run())
	assert.Equal(t, [][]string{{"move", "labels"}, {"mark"}, {"reap"}}, r.Blocks())
	assert.Equal(t, 1, labels)
	require.NoError(t, r.Run())
	assert.Equal(t, 4, w.Entities().Len())

	require.NoError(t, r.Run())
	assert.Equal(t, 1, w.Entities().Len(), "expired entities are destroyed in the frame they are marked")
	require.NoError(t, w.Validate())

	require.NoError(t, r.Run())
	assert.Equal(t, 1, w.Entities().Len())
}
