package store

import (
	"reflect"
)

// Cloner is implemented by component types that need a deep copy when a
// row is duplicated. Types without pointers are cloned bitwise and do not
// need it.
type Cloner[T any] interface {
	Clone() T
}

// Dropper is implemented by component types that release something when
// their value leaves the world (destroy, remove, overwrite).
type Dropper interface {
	Drop()
}

// Meta describes one component or resource type. The function fields form
// the vtable every Store delegates to; data arguments are always the []T
// buffers returned by Allocate.
//
// A Meta is immutable once it has been registered with a world.
type Meta struct {
	Index uint32
	Type  reflect.Type
	Name  string
	Size  uintptr

	Allocate func(capacity int) any
	// Copy relocates count values; the source slots are abandoned, not dropped.
	Copy func(source any, sourceIndex int, target any, targetIndex int, count int)
	// Drop runs drop hooks and zeroes count slots.
	Drop func(data any, index, count int)
	// Reset zeroes count slots without running hooks.
	Reset func(data any, index, count int)
	// Free drops the live prefix of a buffer before it is released.
	Free func(data any, count int)
	// Clone and Fill are nil when the type has no clone capability.
	Clone func(source any, sourceIndex int, target any, targetIndex int, count int)
	Fill  func(source any, sourceIndex int, target any, targetIndex int, count int)

	Set func(data any, index int, value any)
	Get func(data any, index int) any
}

// Cloneable reports whether values of the type can be duplicated.
func (m *Meta) Cloneable() bool {
	return m.Clone != nil && m.Fill != nil
}

func (m *Meta) String() string {
	return m.Name
}

// NewMeta builds the descriptor for T. The returned Meta has Index 0; the
// owning world assigns the index when it registers the type.
func NewMeta[T any]() *Meta {
	t := reflect.TypeOf((*T)(nil)).Elem()
	_, dropper := any(new(T)).(Dropper)
	_, cloner := any(new(T)).(Cloner[T])

	drop := func(data any, index, count int) {
		items := data.([]T)[index : index+count]
		if dropper {
			for i := range items {
				any(&items[i]).(Dropper).Drop()
			}
		}
		clear(items)
	}
	m := &Meta{
		Type: t,
		Name: t.String(),
		Size: t.Size(),
		Allocate: func(capacity int) any {
			return make([]T, capacity)
		},
		Copy: func(source any, sourceIndex int, target any, targetIndex int, count int) {
			copy(target.([]T)[targetIndex:targetIndex+count], source.([]T)[sourceIndex:sourceIndex+count])
		},
		Drop: drop,
		Reset: func(data any, index, count int) {
			clear(data.([]T)[index : index+count])
		},
		Free: func(data any, count int) {
			drop(data, 0, count)
		},
		Set: func(data any, index int, value any) {
			data.([]T)[index] = value.(T)
		},
		Get: func(data any, index int) any {
			return data.([]T)[index]
		},
	}

	switch {
	case cloner:
		m.Clone = func(source any, sourceIndex int, target any, targetIndex int, count int) {
			from, to := source.([]T), target.([]T)
			for i := 0; i < count; i++ {
				to[targetIndex+i] = any(&from[sourceIndex+i]).(Cloner[T]).Clone()
			}
		}
		m.Fill = func(source any, sourceIndex int, target any, targetIndex int, count int) {
			value := any(&source.([]T)[sourceIndex]).(Cloner[T])
			to := target.([]T)
			for i := 0; i < count; i++ {
				to[targetIndex+i] = value.Clone()
			}
		}
	case !hasPointers(t):
		m.Clone = m.Copy
		m.Fill = func(source any, sourceIndex int, target any, targetIndex int, count int) {
			value := source.([]T)[sourceIndex]
			to := target.([]T)[targetIndex : targetIndex+count]
			for i := range to {
				to[i] = value
			}
		}
	}
	return m
}

// hasPointers reports whether a bitwise copy of t would alias memory.
// Strings are immutable and therefore safe to share.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
