package ecs

import (
	"github.com/l1jgo/segments/internal/core/depend"
	"github.com/l1jgo/segments/internal/core/store"
)

var (
	entityType = depend.TypeOf[Entity]()
	familyType = depend.TypeOf[Family]()
)

type addition[T any] struct {
	entity Entity
	value  T
}

// Add sets a T component on entities at resolve time. Entities that already
// have one are overwritten in place; the others move to the segment of their
// type-set plus T.
type Add[T any] struct {
	meta    *store.Meta
	pending []addition[T]
}

func (a *Add[T]) Initialize(ctx Context) error {
	a.meta = Register[T](ctx.World)
	return nil
}

func (a *Add[T]) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.DeferOf(entityType), depend.DeferOf(a.meta.Type)}
}

func (a *Add[T]) One(entity Entity, value T) {
	a.pending = append(a.pending, addition[T]{entity: entity, value: value})
}

// All sets the same value on every entity.
func (a *Add[T]) All(value T, entities ...Entity) {
	for _, e := range entities {
		a.One(e, value)
	}
}

func (a *Add[T]) Resolve(w *World) error {
	defer a.reset()
	for _, p := range a.pending {
		value := p.value
		if _, err := w.insert(p.entity, a.meta, func(s *store.Store, i int) {
			*store.At[T](s, i) = value
		}); err != nil {
			return err
		}
	}
	return nil
}

func (a *Add[T]) reset() {
	clear(a.pending)
	a.pending = a.pending[:0]
}

// Remove drops the T component of entities at resolve time. Entities
// without one are skipped.
type Remove[T any] struct {
	meta    *store.Meta
	pending []Entity
}

func (r *Remove[T]) Initialize(ctx Context) error {
	r.meta = Register[T](ctx.World)
	return nil
}

func (r *Remove[T]) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.DeferOf(entityType), depend.DeferOf(r.meta.Type)}
}

func (r *Remove[T]) One(entity Entity) {
	r.pending = append(r.pending, entity)
}

func (r *Remove[T]) All(entities ...Entity) {
	r.pending = append(r.pending, entities...)
}

func (r *Remove[T]) Resolve(w *World) error {
	defer func() { r.pending = r.pending[:0] }()
	for _, e := range r.pending {
		if _, err := w.remove(e, r.meta); err != nil {
			return err
		}
	}
	return nil
}

// Insert sets the T component of a live entity immediately and reports
// whether the entity was found.
func Insert[T any](w *World, entity Entity, value T) (bool, error) {
	return w.insert(entity, Register[T](w), func(s *store.Store, i int) {
		*store.At[T](s, i) = value
	})
}

// Delete drops the T component of a live entity immediately and reports
// whether it had one.
func Delete[T any](w *World, entity Entity) (bool, error) {
	return w.remove(entity, Register[T](w))
}

// Get returns a pointer to the T component of a live entity. The pointer is
// invalidated by the next resolve.
func Get[T any](w *World, entity Entity) (*T, bool) {
	meta, ok := w.Meta(depend.TypeOf[T]())
	if !ok {
		return nil, false
	}
	d, ok := w.entities.Get(entity)
	if !ok {
		return nil, false
	}
	s, err := w.segmentOf(d)
	if err != nil {
		return nil, false
	}
	column, ok := s.Store(meta)
	if !ok {
		return nil, false
	}
	return store.At[T](column, int(d.Store)), true
}

// Contains reports whether a live entity has a T component.
func Contains[T any](w *World, entity Entity) bool {
	_, ok := Get[T](w, entity)
	return ok
}
