package ecs

import (
	"fmt"

	"github.com/l1jgo/segments/internal/core/depend"
)

// Defaulter is implemented by resource types that can be created on demand
// when a system asks for them and none was set.
type Defaulter[T any] interface {
	Default() T
}

// SetResource stores value as the world's T resource. An existing resource
// is overwritten in place so systems holding it see the new value.
func SetResource[T any](w *World, value T) {
	w.resourcesMu.Lock()
	defer w.resourcesMu.Unlock()
	t := depend.TypeOf[T]()
	if r, ok := w.resources[t]; ok {
		*r.(*T) = value
		return
	}
	w.resources[t] = &value
}

// Resource returns the world's T resource.
func Resource[T any](w *World) (*T, bool) {
	w.resourcesMu.RLock()
	defer w.resourcesMu.RUnlock()
	r, ok := w.resources[depend.TypeOf[T]()]
	if !ok {
		return nil, false
	}
	return r.(*T), true
}

// resourceFor returns the T resource, creating it from Defaulter when absent.
func resourceFor[T any](w *World) (*T, error) {
	if r, ok := Resource[T](w); ok {
		return r, nil
	}
	var zero T
	d, ok := any(zero).(Defaulter[T])
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingResource, depend.TypeOf[T]())
	}
	w.resourcesMu.Lock()
	defer w.resourcesMu.Unlock()
	t := depend.TypeOf[T]()
	if r, ok := w.resources[t]; ok {
		return r.(*T), nil
	}
	value := d.Default()
	w.resources[t] = &value
	return &value, nil
}

// Read gives shared access to a resource.
type Read[T any] struct {
	value *T
}

func (r *Read[T]) Initialize(ctx Context) error {
	v, err := resourceFor[T](ctx.World)
	r.value = v
	return err
}

func (r *Read[T]) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.ReadOf(depend.TypeOf[T]())}
}

func (r *Read[T]) Get() T { return *r.value }

// Write gives exclusive access to a resource.
type Write[T any] struct {
	value *T
}

func (w *Write[T]) Initialize(ctx Context) error {
	v, err := resourceFor[T](ctx.World)
	w.value = v
	return err
}

func (w *Write[T]) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.WriteOf(depend.TypeOf[T]())}
}

func (w *Write[T]) Get() *T { return w.value }

func (w *Write[T]) Set(value T) { *w.value = value }
