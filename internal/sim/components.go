package sim

import (
	"github.com/l1jgo/segments/internal/core/ecs"
	"github.com/l1jgo/segments/internal/scripting"
)

type Position struct{ X, Y float64 }

type Velocity struct{ X, Y float64 }

// Lifetime counts down once per frame; the entity expires at zero.
type Lifetime struct{ Remaining int }

// Label names the scenario group an entity was spawned from.
type Label struct{ Group string }

func (l *Label) Clone() Label { return *l }

// Expired marks an entity whose lifetime ran out. It is destroyed at the end
// of the frame.
type Expired struct{}

// Emitter spawns Rate children per frame, each living Lifetime frames.
type Emitter struct {
	Rate     int
	Lifetime int
}

// Replicate asks for Count clones of the entity on the next frame.
type Replicate struct{ Count int }

// Steered entities have their velocity adjusted by the steer script.
type Steered struct{}

// Expiry is published when an entity expires.
type Expiry struct {
	Entity ecs.Entity
	Group  string
	Frame  int
}

// Clock is the frame counter resource.
type Clock struct {
	Frame int
	Delta float64
}

func (Clock) Default() Clock { return Clock{Delta: 1} }

// Stats accumulates simulation counters. Live, Roots and Children are
// recounted every frame.
type Stats struct {
	Spawned    int
	Replicated int
	Expired    int
	Live       int
	Roots      int
	Children   int
}

func (Stats) Default() Stats { return Stats{} }

// Scripts holds the optional Lua engine. Systems calling into it take write
// access, since the VM is single-threaded.
type Scripts struct {
	Engine *scripting.Engine
}

func (Scripts) Default() Scripts { return Scripts{} }

// registerComponents registers every component up front so that no meta is
// created while systems run.
func registerComponents(w *ecs.World) {
	ecs.Register[Position](w)
	ecs.Register[Velocity](w)
	ecs.Register[Lifetime](w)
	ecs.Register[Label](w)
	ecs.Register[Expired](w)
	ecs.Register[Emitter](w)
	ecs.Register[Replicate](w)
	ecs.Register[Steered](w)
}
