package ecs

import (
	"math/bits"
	"reflect"
	"sync/atomic"

	"github.com/l1jgo/segments/internal/core/store"
)

// Segment stores every entity sharing one exact component type-set. All of
// its stores share count and capacity.
//
// During the run phase a segment only hands out reservations; Resolve folds
// them into count and is the single point where storage grows.
type Segment struct {
	index    int
	metas    []*store.Meta // sorted by Meta.Index
	stores   []*store.Store
	columns  map[uint32]int
	entities *store.Store
	count    int
	capacity int
	reserved atomic.Int64 // next slot handed out; never below count
}

func newSegment(index int, metas []*store.Meta, entity *store.Meta, capacity int) *Segment {
	s := &Segment{
		index:    index,
		metas:    metas,
		stores:   make([]*store.Store, len(metas)),
		columns:  make(map[uint32]int, len(metas)),
		entities: store.New(entity, capacity),
		capacity: capacity,
	}
	for i, m := range metas {
		s.stores[i] = store.New(m, capacity)
		s.columns[m.Index] = i
	}
	return s
}

func (s *Segment) Index() int { return s.index }
func (s *Segment) Count() int { return s.count }
func (s *Segment) Capacity() int { return s.capacity }

// Metas returns the component types of the segment, ordered by meta index.
func (s *Segment) Metas() []*store.Meta { return s.metas }

// Types returns the component types of the segment.
func (s *Segment) Types() []reflect.Type {
	types := make([]reflect.Type, len(s.metas))
	for i, m := range s.metas {
		types[i] = m.Type
	}
	return types
}

// Has reports whether the segment stores the given component type.
func (s *Segment) Has(meta *store.Meta) bool {
	_, ok := s.columns[meta.Index]
	return ok
}

// Store returns the column for meta.
func (s *Segment) Store(meta *store.Meta) (*store.Store, bool) {
	i, ok := s.columns[meta.Index]
	if !ok {
		return nil, false
	}
	return s.stores[i], true
}

// Entities returns the live entity column.
func (s *Segment) Entities() []Entity {
	return store.Items[Entity](s.entities)[:s.count]
}

func (s *Segment) entityAt(index int) Entity {
	return store.Items[Entity](s.entities)[index]
}

// Reserve claims up to count slots past the live rows without growing the
// segment. It returns the first claimed slot and how many were granted,
// which may be fewer than requested or zero. Safe for concurrent use.
func (s *Segment) Reserve(count int) (int, int) {
	for {
		start := s.reserved.Load()
		granted := int64(s.capacity) - start
		if granted > int64(count) {
			granted = int64(count)
		}
		if granted <= 0 {
			return int(start), 0
		}
		if s.reserved.CompareAndSwap(start, start+granted) {
			return int(start), int(granted)
		}
	}
}

// reserveAll claims count slots regardless of capacity. The slots become
// writable after the next Resolve. Resolve phase only.
func (s *Segment) reserveAll(count int) int {
	return int(s.reserved.Add(int64(count))) - count
}

// Resolve publishes reserved slots as live rows and grows every store to the
// next power of two when the rows no longer fit. It returns the range of rows
// that became live.
func (s *Segment) Resolve() (int, int) {
	from := s.count
	if r := int(s.reserved.Load()); r > s.count {
		s.count = r
	}
	if s.count > s.capacity {
		s.grow(nextPowerOfTwo(s.count))
	}
	return from, s.count
}

func (s *Segment) grow(capacity int) {
	for _, st := range s.stores {
		st.Resize(s.capacity, capacity)
	}
	s.entities.Resize(s.capacity, capacity)
	s.capacity = capacity
}

// RemoveAt drops the row at index. When index is not the last row, the last
// row is moved into it and true is returned: the caller must point the moved
// entity's datum at index. Resolve phase only.
func (s *Segment) RemoveAt(index int) bool {
	return s.removeAt(index, nil)
}

// removeAt compacts the segment over index. Columns flagged in relocated
// were moved elsewhere and are abandoned instead of dropped.
func (s *Segment) removeAt(index int, relocated []bool) bool {
	last := s.count - 1
	s.count = last
	s.reserved.Store(int64(last))
	if index < last {
		for i, st := range s.stores {
			if relocated != nil && relocated[i] {
				store.Copy(st, last, st, index, 1)
				st.Reset(last, 1)
			} else {
				st.Squash(last, index, 1)
			}
		}
		s.entities.Squash(last, index, 1)
		return true
	}
	for i, st := range s.stores {
		if relocated != nil && relocated[i] {
			st.Reset(index, 1)
		} else {
			st.Drop(index, 1)
		}
	}
	s.entities.Reset(index, 1)
	return false
}

// cloneable reports whether every column can be duplicated.
func (s *Segment) cloneable() error {
	for _, m := range s.metas {
		if !m.Cloneable() {
			return &cloneError{meta: m}
		}
	}
	return nil
}

func (s *Segment) free() {
	for _, st := range s.stores {
		st.Free(s.count, s.capacity)
	}
	s.entities.Free(s.count, s.capacity)
	s.count = 0
	s.reserved.Store(0)
}

func nextPowerOfTwo(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

type cloneError struct{ meta *store.Meta }

func (e *cloneError) Error() string { return "clone " + e.meta.Name + ": " + ErrMissingClone.Error() }
func (e *cloneError) Unwrap() error { return ErrMissingClone }
