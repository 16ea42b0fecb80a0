package ecs

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/l1jgo/segments/internal/core/event"
	"github.com/l1jgo/segments/internal/core/store"
)

// World is the top-level ECS container. It owns the meta registry, the
// append-only segment table, the entity registry, resources and the message
// bus. Segment indices stay valid for the lifetime of the world.
type World struct {
	log *zap.Logger

	mu       sync.RWMutex // guards metas, segments and sets
	metas    map[reflect.Type]*store.Meta
	list     []*store.Meta
	segments []*Segment
	sets     map[uint64][]int

	entities *Entities
	entity   *store.Meta

	resourcesMu sync.RWMutex
	resources   map[reflect.Type]any

	bus     *event.Bus
	version atomic.Uint64
	plans   map[planKey]*migration

	segmentCapacity int
}

// WorldOption configures a World.
type WorldOption func(*World)

func WithLogger(log *zap.Logger) WorldOption {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// WithSegmentCapacity sets the capacity new segments start with.
func WithSegmentCapacity(capacity int) WorldOption {
	return func(w *World) {
		if capacity >= 0 {
			w.segmentCapacity = capacity
		}
	}
}

// WithEntityCapacity preallocates datum slots.
func WithEntityCapacity(capacity int) WorldOption {
	return func(w *World) {
		if capacity > 0 {
			w.entities.grow(capacity)
		}
	}
}

func NewWorld(opts ...WorldOption) *World {
	w := &World{
		log:             zap.NewNop(),
		metas:           make(map[reflect.Type]*store.Meta, 16),
		sets:            make(map[uint64][]int, 16),
		entities:        newEntities(64),
		resources:       make(map[reflect.Type]any),
		bus:             event.NewBus(),
		plans:           make(map[planKey]*migration),
		segmentCapacity: 32,
	}
	w.entity = Register[Entity](w)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) Logger() *zap.Logger { return w.log }
func (w *World) Entities() *Entities { return w.entities }
func (w *World) Bus() *event.Bus { return w.bus }
func (w *World) EntityMeta() *store.Meta { return w.entity }

// Version changes whenever a meta or a segment is created.
func (w *World) Version() uint64 { return w.version.Load() }

// Register returns the meta of T, registering it on first use.
func Register[T any](w *World) *store.Meta {
	return w.register(reflect.TypeOf((*T)(nil)).Elem(), store.NewMeta[T])
}

func (w *World) register(t reflect.Type, build func() *store.Meta) *store.Meta {
	w.mu.RLock()
	m, ok := w.metas[t]
	w.mu.RUnlock()
	if ok {
		return m
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if m, ok := w.metas[t]; ok {
		return m
	}
	probe := build()
	probe.Index = uint32(len(w.list))
	w.metas[probe.Type] = probe
	w.list = append(w.list, probe)
	w.version.Add(1)
	return probe
}

// Meta returns the registered meta for t.
func (w *World) Meta(t reflect.Type) (*store.Meta, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.metas[t]
	return m, ok
}

// Metas returns every registered meta in registration order.
func (w *World) Metas() []*store.Meta {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return slices.Clone(w.list)
}

// Segments returns the segment table. The slice must not be retained
// across a resolve phase.
func (w *World) Segments() []*Segment {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.segments
}

// Segment returns the segment at index.
func (w *World) Segment(index int) (*Segment, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if index < 0 || index >= len(w.segments) {
		return nil, fmt.Errorf("%w: %d of %d", ErrSegmentIndex, index, len(w.segments))
	}
	return w.segments[index], nil
}

func (w *World) segmentOf(d *Datum) (*Segment, error) {
	return w.Segment(int(d.Segment))
}

// normalize sorts metas by index and drops duplicates in place.
func normalize(metas []*store.Meta) []*store.Meta {
	slices.SortFunc(metas, func(a, b *store.Meta) int { return int(a.Index) - int(b.Index) })
	return slices.CompactFunc(metas, func(a, b *store.Meta) bool { return a == b })
}

func hashSet(metas []*store.Meta) uint64 {
	var buf [4]byte
	d := xxhash.New()
	for _, m := range metas {
		binary.LittleEndian.PutUint32(buf[:], m.Index)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

func sameSet(s *Segment, metas []*store.Meta) bool {
	return slices.Equal(s.metas, metas)
}

// lookupSegment finds the segment for an exact, normalized type-set.
func (w *World) lookupSegment(metas []*store.Meta) (*Segment, bool) {
	h := hashSet(metas)
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, i := range w.sets[h] {
		if s := w.segments[i]; sameSet(s, metas) {
			return s, true
		}
	}
	return nil, false
}

// segmentFor returns the segment for a normalized type-set, creating it when
// the set is seen for the first time. Resolve phase only.
func (w *World) segmentFor(metas []*store.Meta) *Segment {
	if s, ok := w.lookupSegment(metas); ok {
		return s
	}
	h := hashSet(metas)
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, i := range w.sets[h] {
		if s := w.segments[i]; sameSet(s, metas) {
			return s
		}
	}
	s := newSegment(len(w.segments), slices.Clone(metas), w.entity, w.segmentCapacity)
	w.segments = append(w.segments, s)
	w.sets[h] = append(w.sets[h], s.index)
	w.version.Add(1)
	w.log.Debug("segment created",
		zap.Int("segment", s.index),
		zap.Stringers("types", metas),
	)
	return s
}

// Resolve folds every pending reservation into the world: the entity table
// grows to cover reserved entities and rows written into reserved segment
// slots become live, with their datums pointing at them. The runner calls it
// after each block's run phase, before any system resolves.
func (w *World) Resolve() {
	w.entities.Resolve()
	for _, s := range w.Segments() {
		from, to := s.Resolve()
		if from == to {
			continue
		}
		entities := store.Items[Entity](s.entities)
		for i := from; i < to; i++ {
			w.entities.initialize(entities[i], s.index, i)
		}
	}
}

// Validate checks that every live row and every live datum point at each
// other.
func (w *World) Validate() error {
	var err error
	live := 0
	for _, s := range w.Segments() {
		if s.count > s.capacity {
			err = multierr.Append(err, fmt.Errorf("%w: segment %d count %d exceeds capacity %d", ErrIncoherent, s.index, s.count, s.capacity))
		}
		for i, e := range s.Entities() {
			d, ok := w.entities.Get(e)
			switch {
			case !ok:
				err = multierr.Append(err, fmt.Errorf("%w: segment %d slot %d holds dead entity %s", ErrIncoherent, s.index, i, e))
			case int(d.Segment) != s.index || int(d.Store) != i:
				err = multierr.Append(err, fmt.Errorf("%w: entity %s at %d/%d points to %d/%d", ErrIncoherent, e, s.index, i, d.Segment, d.Store))
			}
		}
		live += s.count
	}
	if n := w.entities.Len(); n != live {
		err = multierr.Append(err, fmt.Errorf("%w: %d live datums for %d rows", ErrIncoherent, n, live))
	}
	return err
}

// Close drops every stored value and releases the segment buffers.
func (w *World) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range w.segments {
		s.free()
	}
	w.resourcesMu.Lock()
	clear(w.resources)
	w.resourcesMu.Unlock()
}
