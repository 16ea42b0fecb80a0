package ecs

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Entity is a generational index into the Datum table. The generation is
// bumped whenever the slot is released so stale handles stop resolving.
type Entity struct {
	Index      uint32
	Generation uint32
}

const none = math.MaxUint32

// Null is the sentinel for "no entity".
var Null = Entity{Index: none, Generation: none}

func (e Entity) IsNull() bool { return e == Null }

func (e Entity) String() string {
	if e.IsNull() {
		return "null"
	}
	return fmt.Sprintf("%d:%d", e.Index, e.Generation)
}

// Datum locates one entity and links it into its parent's child list.
// Family links hold entity indices; none marks an empty link.
type Datum struct {
	Generation      uint32
	Segment         uint32
	Store           uint32
	Parent          uint32
	FirstChild      uint32
	PreviousSibling uint32
	NextSibling     uint32
}

func (d *Datum) alive() bool { return d.Segment != none }

func (d *Datum) reset() {
	d.Segment, d.Store = none, none
	d.Parent, d.FirstChild, d.PreviousSibling, d.NextSibling = none, none, none, none
}

// Entities is the single source of truth mapping entity identity to its
// storage slot. Reserve may run concurrently with Get; every other method
// belongs to the single-threaded resolve phase.
type Entities struct {
	data   []Datum
	free   []uint32
	cursor atomic.Int64 // free entries not yet handed out; may go negative
	next   atomic.Int64 // fresh indices handed out so far
	used   int          // indices initialized in data at the last resolve
}

func newEntities(capacity int) *Entities {
	e := &Entities{}
	e.grow(capacity)
	return e
}

func (e *Entities) grow(capacity int) {
	if capacity <= len(e.data) {
		return
	}
	old := len(e.data)
	e.data = append(e.data, make([]Datum, capacity-old)...)
	for i := old; i < capacity; i++ {
		e.data[i].reset()
	}
}

// Get returns the datum of a live entity. It fails for stale generations,
// released slots and reserved entities that were never placed.
func (e *Entities) Get(entity Entity) (*Datum, bool) {
	if int(entity.Index) >= len(e.data) {
		return nil, false
	}
	d := &e.data[entity.Index]
	if d.Generation != entity.Generation || !d.alive() {
		return nil, false
	}
	return d, true
}

// Has reports whether entity is live.
func (e *Entities) Has(entity Entity) bool {
	_, ok := e.Get(entity)
	return ok
}

// Reserve assigns a fresh entity to every element of buffer, recycling
// released slots first. It returns how many of them already have a datum
// slot; the rest become addressable after Resolve grows the table.
func (e *Entities) Reserve(buffer []Entity) int {
	ready := 0
	for i := range buffer {
		if c := e.cursor.Add(-1); c >= 0 {
			index := e.free[c]
			buffer[i] = Entity{Index: index, Generation: e.data[index].Generation}
			ready++
			continue
		}
		index := e.next.Add(1) - 1
		buffer[i] = Entity{Index: uint32(index)}
		if int(index) < len(e.data) {
			ready++
		}
	}
	return ready
}

// Resolve folds concurrent reservations back into the table: the free list
// loses the entries handed out and the table grows to cover fresh indices.
func (e *Entities) Resolve() {
	c := e.cursor.Load()
	if c < 0 {
		c = 0
	}
	if int(c) < len(e.free) {
		e.free = e.free[:c]
	}
	e.cursor.Store(int64(len(e.free)))

	next := int(e.next.Load())
	if next > len(e.data) {
		capacity := len(e.data) * 2
		if capacity < next {
			capacity = next
		}
		e.grow(capacity)
	}
	if next > e.used {
		e.used = next
	}
}

// initialize places a reserved entity at a segment slot.
func (e *Entities) initialize(entity Entity, segment, store int) {
	d := &e.data[entity.Index]
	d.reset()
	d.Generation = entity.Generation
	d.Segment, d.Store = uint32(segment), uint32(store)
}

// update moves a live entity to a new slot.
func (e *Entities) update(entity Entity, segment, store int) error {
	d, ok := e.Get(entity)
	if !ok {
		return &UpdateError{Entity: entity, Segment: segment, Store: store}
	}
	d.Segment, d.Store = uint32(segment), uint32(store)
	return nil
}

// Release invalidates entities and recycles their slots. Stale or unknown
// entities are skipped. Family links must already be detached.
func (e *Entities) Release(entities ...Entity) {
	e.Resolve()
	for _, entity := range entities {
		d, ok := e.Get(entity)
		if !ok {
			continue
		}
		d.reset()
		d.Generation++
		e.free = append(e.free, entity.Index)
	}
	e.cursor.Store(int64(len(e.free)))
}

// Len returns the number of live entities.
func (e *Entities) Len() int {
	n := 0
	for i := 0; i < e.used && i < len(e.data); i++ {
		if e.data[i].alive() {
			n++
		}
	}
	return n
}

// Each calls fn for every live entity in index order.
func (e *Entities) Each(fn func(Entity, *Datum)) {
	for i := 0; i < e.used && i < len(e.data); i++ {
		d := &e.data[i]
		if d.alive() {
			fn(Entity{Index: uint32(i), Generation: d.Generation}, d)
		}
	}
}

func (e *Entities) entity(index uint32) Entity {
	if index == none {
		return Null
	}
	return Entity{Index: index, Generation: e.data[index].Generation}
}
