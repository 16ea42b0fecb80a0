package sim

import (
	"fmt"
	"math/rand/v2"

	"github.com/l1jgo/segments/internal/core/ecs"
	"github.com/l1jgo/segments/internal/core/system"
	"github.com/l1jgo/segments/internal/scenario"
	"github.com/l1jgo/segments/internal/scripting"
)

func tick(clock *ecs.Write[Clock]) {
	clock.Get().Frame++
}

func steer(
	clock *ecs.Read[Clock],
	scripts *ecs.Write[Scripts],
	q *ecs.Query2[ecs.Ref[Position], ecs.Mut[Velocity], ecs.Has[Steered]],
) error {
	engine := scripts.Get().Engine
	if engine == nil || !engine.Has("steer") {
		return nil
	}
	frame := clock.Get().Frame
	var err error
	q.Each(func(_ ecs.Entity, p ecs.Ref[Position], v ecs.Mut[Velocity]) {
		if err != nil {
			return
		}
		pos, vel := p.Get(), v.Get()
		r, serr := engine.Steer(scripting.SteerContext{Frame: frame, X: pos.X, Y: pos.Y, VX: vel.X, VY: vel.Y})
		if serr != nil {
			err = serr
			return
		}
		vel.X, vel.Y = r.VX, r.VY
	})
	return err
}

func move(clock *ecs.Read[Clock], q *ecs.Query2[ecs.Mut[Position], ecs.Ref[Velocity], ecs.All]) {
	dt := clock.Get().Delta
	q.Each(func(_ ecs.Entity, p ecs.Mut[Position], v ecs.Ref[Velocity]) {
		pos, vel := p.Get(), v.Get()
		pos.X += vel.X * dt
		pos.Y += vel.Y * dt
	})
}

func age(
	clock *ecs.Read[Clock],
	q *ecs.Query2[ecs.Mut[Lifetime], ecs.Ref[Label], ecs.Not[ecs.Has[Expired]]],
	add *ecs.Add[Expired],
	emit *ecs.Emit[Expiry],
) {
	frame := clock.Get().Frame
	q.Each(func(e ecs.Entity, l ecs.Mut[Lifetime], label ecs.Ref[Label]) {
		life := l.Get()
		life.Remaining--
		if life.Remaining > 0 {
			return
		}
		add.One(e, Expired{})
		emit.One(Expiry{Entity: e, Group: label.Get().Group, Frame: frame})
	})
}

// spawner returns the emitter system. Children start at their emitter,
// inherit its label and are adopted as its last child.
func spawner(rng *rand.Rand) func(
	*ecs.Read[Clock],
	*ecs.Write[Scripts],
	*ecs.Write[Stats],
	*ecs.Query3[ecs.Ref[Emitter], ecs.Ref[Position], ecs.Ref[Label], ecs.All],
	*ecs.Create,
	*ecs.Adopt,
) {
	return func(
		clock *ecs.Read[Clock],
		scripts *ecs.Write[Scripts],
		stats *ecs.Write[Stats],
		q *ecs.Query3[ecs.Ref[Emitter], ecs.Ref[Position], ecs.Ref[Label], ecs.All],
		create *ecs.Create,
		adopt *ecs.Adopt,
	) {
		frame := clock.Get().Frame
		engine := scripts.Get().Engine
		q.Each(func(parent ecs.Entity, em ecs.Ref[Emitter], p ecs.Ref[Position], l ecs.Ref[Label]) {
			emitter := em.Get()
			n := emitter.Rate
			if engine != nil {
				n = max(engine.SpawnCount(frame, n), 0)
			}
			for range n {
				templates := []ecs.Template{
					ecs.With(p.Get()),
					ecs.With(Velocity{X: rng.NormFloat64(), Y: 0.5 + rng.Float64()}),
					ecs.With(l.Get()),
				}
				if emitter.Lifetime > 0 {
					templates = append(templates, ecs.With(Lifetime{Remaining: emitter.Lifetime}))
				}
				adopt.Last(parent, create.One(templates...))
			}
			stats.Get().Spawned += n
		})
	}
}

func replicate(
	stats *ecs.Write[Stats],
	q *ecs.Query1[ecs.Ref[Replicate], ecs.All],
	dup *ecs.Duplicate,
	remove *ecs.Remove[Replicate],
) error {
	var err error
	q.Each(func(e ecs.Entity, r ecs.Ref[Replicate]) {
		if err != nil {
			return
		}
		clones, derr := dup.One(e, r.Get().Count)
		if derr != nil {
			err = fmt.Errorf("replicate %s: %w", e, derr)
			return
		}
		remove.One(e)
		remove.All(clones...)
		stats.Get().Replicated += len(clones)
	})
	return err
}

func census(families *ecs.Families, q *ecs.Query1[ecs.Ref[Label], ecs.All], stats *ecs.Write[Stats]) {
	s := stats.Get()
	s.Live, s.Roots, s.Children = 0, 0, 0
	q.Each(func(e ecs.Entity, _ ecs.Ref[Label]) {
		s.Live++
		f, ok := families.Get(e)
		if !ok {
			return
		}
		if _, has := f.Parent(); has {
			s.Children++
		} else {
			s.Roots++
		}
	})
}

// reap destroys expired entities together with their descendants.
func reap(rx *ecs.Receive[Expiry, ecs.KeepAll], destroy *ecs.DestroyDefault, stats *ecs.Write[Stats]) {
	rx.Each(func(m Expiry) {
		destroy.One(m.Entity, true)
		stats.Get().Expired++
	})
}

type entry struct {
	name  string
	phase system.Phase
	fn    any
}

// Register builds the systems the scenario enables and adds them to the
// runner. The frame clock always runs. steer is only added when an engine
// is given.
func Register(r *system.Runner, w *ecs.World, sc *scenario.Scenario, engine *scripting.Engine) error {
	registerComponents(w)
	ecs.SetResource(w, Clock{}.Default())
	ecs.SetResource(w, Stats{})
	ecs.SetResource(w, Scripts{Engine: engine})

	rng := rand.New(rand.NewPCG(sc.Seed, 2))
	entries := []entry{
		{"steer", system.PhasePreUpdate, steer},
		{"move", system.PhaseUpdate, move},
		{"age", system.PhaseUpdate, age},
		{"spawn", system.PhasePostUpdate, spawner(rng)},
		{"replicate", system.PhasePostUpdate, replicate},
		{"census", system.PhaseOutput, census},
		{"reap", system.PhaseCleanup, reap},
	}

	s, err := ecs.NewSystem(w, "tick", tick)
	if err != nil {
		return err
	}
	r.Register(system.PhaseInput, s)
	for _, e := range entries {
		if !sc.Enabled(e.name) || (e.name == "steer" && engine == nil) {
			continue
		}
		s, err := ecs.NewSystem(w, e.name, e.fn)
		if err != nil {
			return err
		}
		r.Register(e.phase, s)
	}
	return nil
}
