package ecs

import (
	"slices"

	"github.com/l1jgo/segments/internal/core/store"
)

type planKey struct {
	source int
	meta   uint32
	add    bool
}

// migration is the memoised move plan from one source segment when a single
// component type is added or removed.
type migration struct {
	source    *Segment
	target    *Segment
	pairs     [][2]int // source column, target column
	relocated []bool   // per source column: moved, not dropped
	column    int      // target column of the changed type; -1 on removal
}

// plan returns the move plan for adding or removing meta on rows of source.
// Plans are cached for the lifetime of the world since segments are never
// destroyed. Resolve phase only.
func (w *World) plan(source *Segment, meta *store.Meta, add bool) *migration {
	key := planKey{source: source.index, meta: meta.Index, add: add}
	if p, ok := w.plans[key]; ok {
		return p
	}

	metas := slices.Clone(source.metas)
	if add {
		metas = normalize(append(metas, meta))
	} else {
		metas = slices.DeleteFunc(metas, func(m *store.Meta) bool { return m == meta })
	}
	target := w.segmentFor(metas)

	p := &migration{
		source:    source,
		target:    target,
		relocated: make([]bool, len(source.stores)),
		column:    -1,
	}
	if target != source {
		for i, m := range source.metas {
			if j, ok := target.columns[m.Index]; ok {
				p.pairs = append(p.pairs, [2]int{i, j})
				p.relocated[i] = true
			}
		}
	}
	if j, ok := target.columns[meta.Index]; ok && add {
		p.column = j
	}
	w.plans[key] = p
	return p
}

// migrate moves the row of entity from p.source to p.target and returns its
// new slot. Shared columns are relocated, the others are dropped with the
// source row. Resolve phase only.
func (w *World) migrate(entity Entity, index int, p *migration) (int, error) {
	source, target := p.source, p.target
	slot := target.reserveAll(1)
	target.Resolve()
	for _, pair := range p.pairs {
		store.Copy(source.stores[pair[0]], index, target.stores[pair[1]], slot, 1)
	}
	store.Copy(source.entities, index, target.entities, slot, 1)

	if source.removeAt(index, p.relocated) {
		if err := w.entities.update(source.entityAt(index), source.index, index); err != nil {
			return 0, err
		}
	}
	if err := w.entities.update(entity, target.index, slot); err != nil {
		return 0, err
	}
	return slot, nil
}

// insert sets the meta component of entity through write, migrating the row
// when the component is new. It returns false for dead entities.
func (w *World) insert(entity Entity, meta *store.Meta, write func(*store.Store, int)) (bool, error) {
	d, ok := w.entities.Get(entity)
	if !ok {
		return false, nil
	}
	source, err := w.segmentOf(d)
	if err != nil {
		return false, err
	}
	index := int(d.Store)

	p := w.plan(source, meta, true)
	if p.target == source {
		column := source.stores[source.columns[meta.Index]]
		column.Drop(index, 1)
		write(column, index)
		return true, nil
	}
	slot, err := w.migrate(entity, index, p)
	if err != nil {
		return false, err
	}
	write(p.target.stores[p.column], slot)
	return true, nil
}

// remove drops the meta component of entity, migrating the row. It returns
// false when the entity is dead or does not have the component.
func (w *World) remove(entity Entity, meta *store.Meta) (bool, error) {
	d, ok := w.entities.Get(entity)
	if !ok {
		return false, nil
	}
	source, err := w.segmentOf(d)
	if err != nil {
		return false, err
	}
	if !source.Has(meta) {
		return false, nil
	}
	if _, err := w.migrate(entity, int(d.Store), w.plan(source, meta, false)); err != nil {
		return false, err
	}
	return true, nil
}

// place writes a reserved entity and its components into the segment of the
// templates' type-set. Resolve phase only.
func (w *World) place(entity Entity, templates []Template) {
	metas := make([]*store.Meta, len(templates))
	for i, t := range templates {
		metas[i] = t.Meta(w)
	}
	s := w.segmentFor(normalize(metas))
	slot := s.reserveAll(1)
	s.Resolve()
	for _, t := range templates {
		column, _ := s.Store(t.Meta(w))
		t.write(column, slot)
	}
	store.Items[Entity](s.entities)[slot] = entity
	w.entities.initialize(entity, s.index, slot)
}

// destroy removes entity, and its descendants when asked, from storage and
// releases them. visited deduplicates overlapping requests of one batch.
// Children of an entity destroyed alone become roots.
func (w *World) destroy(entity Entity, descendants bool, visited map[Entity]struct{}) error {
	if _, ok := w.entities.Get(entity); !ok {
		return nil
	}
	if _, ok := visited[entity]; ok {
		return nil
	}
	w.entities.RejectOne(entity)

	var doomed []Entity
	if descendants {
		doomed = w.entities.collect(entity, visited)
	} else {
		w.entities.RejectAll(entity)
		visited[entity] = struct{}{}
		doomed = []Entity{entity}
	}

	for _, e := range doomed {
		d, ok := w.entities.Get(e)
		if !ok {
			continue
		}
		s, err := w.segmentOf(d)
		if err != nil {
			return err
		}
		index := int(d.Store)
		if s.RemoveAt(index) {
			if err := w.entities.update(s.entityAt(index), s.index, index); err != nil {
				return err
			}
		}
	}
	w.entities.Release(doomed...)
	return nil
}

// Slot is an owned copy of one row, taken when a duplication has to wait for
// resolve and the source row may move or vanish in between.
type Slot struct {
	segment *Segment
	stores  []*store.Store
}

func extract(s *Segment, index int) (*Slot, error) {
	slot := &Slot{segment: s, stores: make([]*store.Store, len(s.stores))}
	for i, column := range s.stores {
		slot.stores[i] = store.New(column.Meta(), 1)
		if err := store.Clone(column, index, slot.stores[i], 0, 1); err != nil {
			return nil, err
		}
	}
	return slot, nil
}

// expand writes len(entities) clones of the slot into its segment. Resolve
// phase only.
func (w *World) expand(slot *Slot, entities []Entity) error {
	s := slot.segment
	n := len(entities)
	start := s.reserveAll(n)
	s.Resolve()
	for i, column := range s.stores {
		if err := store.Fill(slot.stores[i], 0, column, start, n); err != nil {
			return err
		}
	}
	copy(store.Items[Entity](s.entities)[start:start+n], entities)
	for i, e := range entities {
		w.entities.initialize(e, s.index, start+i)
	}
	for _, st := range slot.stores {
		st.Free(1, 1)
	}
	return nil
}

// duplicate clones the row d points at into len(buffer) fresh entities of
// the same segment. Rows that fit in the current capacity are written
// immediately and become live at the next World.Resolve; the rest are
// returned as a slot to expand at resolve time. It is safe during the run
// phase as long as nothing writes the source segment.
func (w *World) duplicate(d *Datum, buffer []Entity) (int, *Slot, error) {
	s, err := w.segmentOf(d)
	if err != nil {
		return 0, nil, err
	}
	if err := s.cloneable(); err != nil {
		return 0, nil, err
	}
	index := int(d.Store)

	w.entities.Reserve(buffer)
	start, granted := s.Reserve(len(buffer))
	for _, column := range s.stores {
		if err := store.Fill(column, index, column, start, granted); err != nil {
			return 0, nil, err
		}
	}
	copy(store.Items[Entity](s.entities)[start:start+granted], buffer[:granted])
	if granted == len(buffer) {
		return granted, nil, nil
	}
	slot, err := extract(s, index)
	if err != nil {
		return 0, nil, err
	}
	return granted, slot, nil
}
