package ecs

import (
	"github.com/l1jgo/segments/internal/core/depend"
)

// DestroyPolicy selects when a Destroy becomes visible to other systems.
type DestroyPolicy interface {
	early() bool
}

// Early destroys synchronize: every later system that reads entities runs
// in a subsequent block and never sees a half-destroyed entity.
type Early struct{}

// Late destroys add no dependency. Systems in the same block may still see
// the destroyed entities intact until the block resolves.
type Late struct{}

func (Early) early() bool { return true }
func (Late) early() bool  { return false }

// DestroyDefault is the policy used by the bundled systems.
type DestroyDefault = Destroy[Early]

type destruction struct {
	entity      Entity
	descendants bool
}

// Destroy removes entities, and optionally their descendants, at resolve
// time.
type Destroy[P DestroyPolicy] struct {
	pending []destruction
	visited map[Entity]struct{}
}

func (d *Destroy[P]) Initialize(Context) error {
	d.visited = make(map[Entity]struct{})
	return nil
}

func (d *Destroy[P]) Depend(w *World) []depend.Dependency {
	var policy P
	if !policy.early() {
		return nil
	}
	segments := w.Segments()
	deps := make([]depend.Dependency, 0, len(segments)+1)
	for _, s := range segments {
		deps = append(deps, depend.DeferAt(entityType, s.index))
	}
	return append(deps, depend.DeferOf(familyType))
}

// One destroys entity. Without descendants its children are orphaned and
// become roots.
func (d *Destroy[P]) One(entity Entity, descendants bool) {
	d.pending = append(d.pending, destruction{entity: entity, descendants: descendants})
}

func (d *Destroy[P]) All(descendants bool, entities ...Entity) {
	for _, e := range entities {
		d.One(e, descendants)
	}
}

func (d *Destroy[P]) Resolve(w *World) error {
	defer func() {
		d.pending = d.pending[:0]
		clear(d.visited)
	}()
	for _, p := range d.pending {
		if err := w.destroy(p.entity, p.descendants, d.visited); err != nil {
			return err
		}
	}
	return nil
}

// Destroy removes entity immediately and reports whether it was live.
func (w *World) Destroy(entity Entity, descendants bool) (bool, error) {
	if !w.entities.Has(entity) {
		return false, nil
	}
	return true, w.destroy(entity, descendants, make(map[Entity]struct{}))
}
