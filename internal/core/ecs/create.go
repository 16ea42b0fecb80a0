package ecs

import (
	"github.com/l1jgo/segments/internal/core/depend"
	"github.com/l1jgo/segments/internal/core/store"
)

// Template is one component value of an entity to create.
type Template interface {
	Meta(w *World) *store.Meta
	write(s *store.Store, index int)
}

type component[T any] struct {
	value T
}

// With wraps a component value for Create and Spawn.
func With[T any](value T) Template {
	return component[T]{value: value}
}

func (c component[T]) Meta(w *World) *store.Meta { return Register[T](w) }

func (c component[T]) write(s *store.Store, index int) {
	*store.At[T](s, index) = c.value
}

type creation struct {
	entity    Entity
	templates []Template
}

// Create makes new entities. The returned entity is reserved immediately and
// becomes live once the block that created it resolves.
type Create struct {
	world   *World
	pending []creation
}

func (c *Create) Initialize(ctx Context) error {
	c.world = ctx.World
	return nil
}

func (c *Create) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.DeferOf(entityType)}
}

// One reserves an entity with the given components. When the segment of the
// components already exists and has room, the row is written in place;
// otherwise it is placed at resolve time.
func (c *Create) One(templates ...Template) Entity {
	var ids [1]Entity
	c.world.entities.Reserve(ids[:])
	entity := ids[0]

	metas := make([]*store.Meta, len(templates))
	for i, t := range templates {
		metas[i] = t.Meta(c.world)
	}
	if s, ok := c.world.lookupSegment(normalize(metas)); ok {
		if start, granted := s.Reserve(1); granted == 1 {
			for _, t := range templates {
				column, _ := s.Store(t.Meta(c.world))
				t.write(column, start)
			}
			store.Items[Entity](s.entities)[start] = entity
			return entity
		}
	}
	c.pending = append(c.pending, creation{entity: entity, templates: templates})
	return entity
}

func (c *Create) Resolve(w *World) error {
	for _, p := range c.pending {
		w.place(p.entity, p.templates)
	}
	clear(c.pending)
	c.pending = c.pending[:0]
	return nil
}

// Spawn creates a live entity immediately. It must not be called while a
// runner is executing systems other than an exclusive one.
func (w *World) Spawn(templates ...Template) Entity {
	var ids [1]Entity
	w.entities.Reserve(ids[:])
	w.entities.Resolve()
	w.place(ids[0], templates)
	return ids[0]
}
