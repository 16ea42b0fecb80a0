package ecs

import (
	"github.com/l1jgo/segments/internal/core/depend"
	"github.com/l1jgo/segments/internal/core/store"
)

// Item is one component a query yields per row: Ref[T] reads it, Mut[T]
// writes it. I is the item type itself.
type Item[I any] interface {
	meta(w *World) *store.Meta
	access() depend.Kind
	column(s *store.Store) I
	at(index int) I
}

// Ref is read access to the T component of the current row.
type Ref[T any] struct {
	items []T
	index int
}

func (Ref[T]) meta(w *World) *store.Meta { return Register[T](w) }
func (Ref[T]) access() depend.Kind { return depend.Read }
func (Ref[T]) column(s *store.Store) Ref[T] { return Ref[T]{items: store.Items[T](s)} }
func (r Ref[T]) at(index int) Ref[T] { return Ref[T]{items: r.items, index: index} }
func (r Ref[T]) Get() T { return r.items[r.index] }

// Mut is write access to the T component of the current row.
type Mut[T any] struct {
	items []T
	index int
}

func (Mut[T]) meta(w *World) *store.Meta { return Register[T](w) }
func (Mut[T]) access() depend.Kind { return depend.Write }
func (Mut[T]) column(s *store.Store) Mut[T] { return Mut[T]{items: store.Items[T](s)} }
func (m Mut[T]) at(index int) Mut[T] { return Mut[T]{items: m.items, index: index} }
func (m Mut[T]) Get() *T { return &m.items[m.index] }
func (m Mut[T]) Set(value T) { m.items[m.index] = value }

// query holds the segment matching shared by every arity. Segments are
// tested once, when first seen, and the matches are cached.
type query struct {
	world    *World
	metas    []*store.Meta
	kinds    []depend.Kind
	filter   Filter
	seen     int
	segments []*Segment
	lookup   map[int]int // segment index -> position in segments
}

func (q *query) init(w *World, filter Filter, metas []*store.Meta, kinds []depend.Kind) {
	q.world = w
	q.filter = filter
	q.metas = metas
	q.kinds = kinds
	q.lookup = make(map[int]int)
}

func (q *query) update() {
	segments := q.world.Segments()
	for ; q.seen < len(segments); q.seen++ {
		s := segments[q.seen]
		if q.matches(s) {
			q.lookup[s.index] = len(q.segments)
			q.segments = append(q.segments, s)
		}
	}
}

func (q *query) matches(s *Segment) bool {
	for _, m := range q.metas {
		if !s.Has(m) {
			return false
		}
	}
	return q.filter.match(q.world, s)
}

func (q *query) depend() []depend.Dependency {
	deps := make([]depend.Dependency, 0, len(q.segments)*(len(q.metas)+1))
	for _, s := range q.segments {
		deps = append(deps, depend.ReadAt(entityType, s.index))
		for i, m := range q.metas {
			deps = append(deps, depend.Dependency{
				Kind: q.kinds[i],
				Key:  depend.Key{Type: m.Type, Segment: s.index},
			})
		}
	}
	return deps
}

// locate returns the matched segment and row of a live entity.
func (q *query) locate(entity Entity) (*Segment, int, bool) {
	d, ok := q.world.entities.Get(entity)
	if !ok {
		return nil, 0, false
	}
	i, ok := q.lookup[int(d.Segment)]
	if !ok {
		return nil, 0, false
	}
	return q.segments[i], int(d.Store), true
}

func (q *query) store(s *Segment, i int) *store.Store {
	return s.stores[s.columns[q.metas[i].Index]]
}

// Count returns the number of matched rows.
func (q *query) Count() int {
	n := 0
	for _, s := range q.segments {
		n += s.count
	}
	return n
}

// Has reports whether entity is live and matched.
func (q *query) Has(entity Entity) bool {
	_, _, ok := q.locate(entity)
	return ok
}

// Segments returns the matched segments, in discovery order.
func (q *query) Segments() []*Segment { return q.segments }

func (q *query) Depend(*World) []depend.Dependency { return q.depend() }

func (q *query) Update(*World) error {
	q.update()
	return nil
}

// Query1 visits every entity with an A component whose segment passes F.
type Query1[A Item[A], F Filter] struct{ query }

func (q *Query1[A, F]) Initialize(ctx Context) error {
	var a A
	var f F
	q.init(ctx.World, f, []*store.Meta{a.meta(ctx.World)}, []depend.Kind{a.access()})
	q.update()
	return nil
}

func (q *Query1[A, F]) Each(fn func(Entity, A)) {
	var a A
	for _, s := range q.segments {
		if s.count == 0 {
			continue
		}
		ca := a.column(q.store(s, 0))
		for i, e := range s.Entities() {
			fn(e, ca.at(i))
		}
	}
}

func (q *Query1[A, F]) Get(entity Entity) (A, bool) {
	var a A
	s, i, ok := q.locate(entity)
	if !ok {
		return a, false
	}
	return a.column(q.store(s, 0)).at(i), true
}

// Query2 visits entities with A and B components.
type Query2[A Item[A], B Item[B], F Filter] struct{ query }

func (q *Query2[A, B, F]) Initialize(ctx Context) error {
	var a A
	var b B
	var f F
	w := ctx.World
	q.init(w, f,
		[]*store.Meta{a.meta(w), b.meta(w)},
		[]depend.Kind{a.access(), b.access()})
	q.update()
	return nil
}

func (q *Query2[A, B, F]) Each(fn func(Entity, A, B)) {
	var a A
	var b B
	for _, s := range q.segments {
		if s.count == 0 {
			continue
		}
		ca, cb := a.column(q.store(s, 0)), b.column(q.store(s, 1))
		for i, e := range s.Entities() {
			fn(e, ca.at(i), cb.at(i))
		}
	}
}

func (q *Query2[A, B, F]) Get(entity Entity) (A, B, bool) {
	var a A
	var b B
	s, i, ok := q.locate(entity)
	if !ok {
		return a, b, false
	}
	return a.column(q.store(s, 0)).at(i), b.column(q.store(s, 1)).at(i), true
}

// Query3 visits entities with A, B and C components.
type Query3[A Item[A], B Item[B], C Item[C], F Filter] struct{ query }

func (q *Query3[A, B, C, F]) Initialize(ctx Context) error {
	var a A
	var b B
	var c C
	var f F
	w := ctx.World
	q.init(w, f,
		[]*store.Meta{a.meta(w), b.meta(w), c.meta(w)},
		[]depend.Kind{a.access(), b.access(), c.access()})
	q.update()
	return nil
}

func (q *Query3[A, B, C, F]) Each(fn func(Entity, A, B, C)) {
	var a A
	var b B
	var c C
	for _, s := range q.segments {
		if s.count == 0 {
			continue
		}
		ca, cb, cc := a.column(q.store(s, 0)), b.column(q.store(s, 1)), c.column(q.store(s, 2))
		for i, e := range s.Entities() {
			fn(e, ca.at(i), cb.at(i), cc.at(i))
		}
	}
}

func (q *Query3[A, B, C, F]) Get(entity Entity) (A, B, C, bool) {
	var a A
	var b B
	var c C
	s, i, ok := q.locate(entity)
	if !ok {
		return a, b, c, false
	}
	return a.column(q.store(s, 0)).at(i), b.column(q.store(s, 1)).at(i), c.column(q.store(s, 2)).at(i), true
}

// Query4 visits entities with A, B, C and D components.
type Query4[A Item[A], B Item[B], C Item[C], D Item[D], F Filter] struct{ query }

func (q *Query4[A, B, C, D, F]) Initialize(ctx Context) error {
	var a A
	var b B
	var c C
	var d D
	var f F
	w := ctx.World
	q.init(w, f,
		[]*store.Meta{a.meta(w), b.meta(w), c.meta(w), d.meta(w)},
		[]depend.Kind{a.access(), b.access(), c.access(), d.access()})
	q.update()
	return nil
}

func (q *Query4[A, B, C, D, F]) Each(fn func(Entity, A, B, C, D)) {
	var a A
	var b B
	var c C
	var d D
	for _, s := range q.segments {
		if s.count == 0 {
			continue
		}
		ca, cb := a.column(q.store(s, 0)), b.column(q.store(s, 1))
		cc, cd := c.column(q.store(s, 2)), d.column(q.store(s, 3))
		for i, e := range s.Entities() {
			fn(e, ca.at(i), cb.at(i), cc.at(i), cd.at(i))
		}
	}
}

func (q *Query4[A, B, C, D, F]) Get(entity Entity) (A, B, C, D, bool) {
	var a A
	var b B
	var c C
	var d D
	s, i, ok := q.locate(entity)
	if !ok {
		return a, b, c, d, false
	}
	return a.column(q.store(s, 0)).at(i), b.column(q.store(s, 1)).at(i),
		c.column(q.store(s, 2)).at(i), d.column(q.store(s, 3)).at(i), true
}
