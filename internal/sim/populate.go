package sim

import (
	"math/rand/v2"

	"github.com/l1jgo/segments/internal/core/ecs"
	"github.com/l1jgo/segments/internal/scenario"
)

// Populate spawns every scenario group and returns the number of entities
// created. Placement is deterministic for a given seed.
func Populate(w *ecs.World, sc *scenario.Scenario) int {
	registerComponents(w)
	rng := rand.New(rand.NewPCG(sc.Seed, 1))
	n := 0
	for _, g := range sc.Groups {
		for range g.Count {
			w.Spawn(templates(g, rng)...)
			n++
		}
	}
	return n
}

func templates(g scenario.Group, rng *rand.Rand) []ecs.Template {
	spread := func(v float64) float64 { return (rng.Float64()*2 - 1) * v }
	t := []ecs.Template{
		ecs.With(Position{X: g.Position.X + spread(g.Spread), Y: g.Position.Y + spread(g.Spread)}),
		ecs.With(Velocity{X: g.Velocity.X + spread(g.Jitter), Y: g.Velocity.Y + spread(g.Jitter)}),
		ecs.With(Label{Group: g.Name}),
	}
	if g.Lifetime > 0 {
		t = append(t, ecs.With(Lifetime{Remaining: g.Lifetime}))
	}
	if g.Emit > 0 {
		t = append(t, ecs.With(Emitter{Rate: g.Emit, Lifetime: g.EmitLifetime}))
	}
	if g.Replicate > 0 {
		t = append(t, ecs.With(Replicate{Count: g.Replicate}))
	}
	if g.Steer {
		t = append(t, ecs.With(Steered{}))
	}
	return t
}
