package ecs

import (
	"github.com/l1jgo/segments/internal/core/depend"
)

type duplication struct {
	slot     *Slot
	entities []Entity
}

// Duplicate clones entities into their own segment. Every column of the
// source segment must be cloneable.
type Duplicate struct {
	world   *World
	pending []duplication
}

func (d *Duplicate) Initialize(ctx Context) error {
	d.world = ctx.World
	return nil
}

// Depend reads every column of every segment, since any of them may hold a
// source row, and defers the creation of entities.
func (d *Duplicate) Depend(w *World) []depend.Dependency {
	deps := []depend.Dependency{depend.DeferOf(entityType)}
	for _, s := range w.Segments() {
		deps = append(deps, depend.ReadAt(entityType, s.index))
		for _, m := range s.metas {
			deps = append(deps, depend.ReadAt(m.Type, s.index))
		}
	}
	return deps
}

// One reserves count clones of entity and returns them. A dead entity
// yields no clones and no error.
func (d *Duplicate) One(entity Entity, count int) ([]Entity, error) {
	w := d.world
	datum, ok := w.entities.Get(entity)
	if !ok || count <= 0 {
		return nil, nil
	}
	clones := make([]Entity, count)
	granted, slot, err := w.duplicate(datum, clones)
	if err != nil {
		return nil, err
	}
	if slot != nil {
		d.pending = append(d.pending, duplication{slot: slot, entities: clones[granted:]})
	}
	return clones, nil
}

func (d *Duplicate) Resolve(w *World) error {
	defer func() {
		clear(d.pending)
		d.pending = d.pending[:0]
	}()
	for _, p := range d.pending {
		if err := w.expand(p.slot, p.entities); err != nil {
			return err
		}
	}
	return nil
}

// Duplicate clones entity count times immediately.
func (w *World) Duplicate(entity Entity, count int) ([]Entity, error) {
	datum, ok := w.entities.Get(entity)
	if !ok || count <= 0 {
		return nil, nil
	}
	clones := make([]Entity, count)
	granted, slot, err := w.duplicate(datum, clones)
	if err != nil {
		return nil, err
	}
	w.Resolve()
	if slot != nil {
		if err := w.expand(slot, clones[granted:]); err != nil {
			return nil, err
		}
	}
	return clones, nil
}
