package store

import (
	"errors"
	"fmt"
)

// ErrMissingClone is returned when a row must be duplicated but neither
// column type can clone its values.
var ErrMissingClone = errors.New("missing clone capability")

// Store is a type-erased column holding values of a single Meta's type.
// The live count is tracked by the owning segment; slots at or beyond that
// count are treated as uninitialized and must not be read.
//
// None of the operations validate their arguments beyond the bounds checks
// Go performs on slices. Callers are trusted.
type Store struct {
	meta *Meta
	data any
}

func New(meta *Meta, capacity int) *Store {
	return &Store{meta: meta, data: meta.Allocate(capacity)}
}

func (s *Store) Meta() *Meta { return s.meta }

// Data returns the backing []T buffer.
func (s *Store) Data() any { return s.data }

// Copy relocates count values between stores of the same type. The caller
// must abandon the source slots afterwards, never drop them.
func Copy(source *Store, sourceIndex int, target *Store, targetIndex int, count int) {
	if count <= 0 {
		return
	}
	target.meta.Copy(source.data, sourceIndex, target.data, targetIndex, count)
}

// Clone writes clones of count source values into uninitialized target slots.
func Clone(source *Store, sourceIndex int, target *Store, targetIndex int, count int) error {
	if count <= 0 {
		return nil
	}
	clone := target.meta.Clone
	if clone == nil {
		clone = source.meta.Clone
	}
	if clone == nil {
		return fmt.Errorf("clone %s: %w", target.meta.Name, ErrMissingClone)
	}
	clone(source.data, sourceIndex, target.data, targetIndex, count)
	return nil
}

// Fill clones a single source value into count uninitialized target slots.
func Fill(source *Store, sourceIndex int, target *Store, targetIndex int, count int) error {
	if count <= 0 {
		return nil
	}
	fill := target.meta.Fill
	if fill == nil {
		fill = source.meta.Fill
	}
	if fill == nil {
		return fmt.Errorf("fill %s: %w", target.meta.Name, ErrMissingClone)
	}
	fill(source.data, sourceIndex, target.data, targetIndex, count)
	return nil
}

// Squash drops count values at targetIndex and moves count values from
// sourceIndex over them. The source slots are left zeroed.
func (s *Store) Squash(sourceIndex, targetIndex, count int) {
	if count <= 0 {
		return
	}
	s.meta.Drop(s.data, targetIndex, count)
	s.meta.Copy(s.data, sourceIndex, s.data, targetIndex, count)
	s.meta.Reset(s.data, sourceIndex, count)
}

// Drop runs drop hooks on count values and zeroes their slots.
func (s *Store) Drop(index, count int) {
	if count <= 0 {
		return
	}
	s.meta.Drop(s.data, index, count)
}

// Reset zeroes count slots whose values were relocated elsewhere.
func (s *Store) Reset(index, count int) {
	if count <= 0 {
		return
	}
	s.meta.Reset(s.data, index, count)
}

// Resize moves every slot of the old buffer into a new one of newCapacity.
// A store never shrinks.
func (s *Store) Resize(oldCapacity, newCapacity int) {
	if newCapacity <= oldCapacity {
		return
	}
	data := s.meta.Allocate(newCapacity)
	s.meta.Copy(s.data, 0, data, 0, oldCapacity)
	s.data = data
}

// Free drops the live values and releases the buffer.
func (s *Store) Free(count, capacity int) {
	if s.data == nil {
		return
	}
	if count > capacity {
		count = capacity
	}
	s.meta.Free(s.data, count)
	s.data = nil
}

// Set writes a boxed value into an uninitialized slot.
func (s *Store) Set(index int, value any) {
	s.meta.Set(s.data, index, value)
}

// Get returns a boxed copy of the value at index.
func (s *Store) Get(index int) any {
	return s.meta.Get(s.data, index)
}

// Items returns the typed buffer of s. It panics if T is not the store type.
func Items[T any](s *Store) []T {
	return s.data.([]T)
}

// At returns a pointer to the value at index.
func At[T any](s *Store, index int) *T {
	return &s.data.([]T)[index]
}
