package ecs

import (
	"github.com/l1jgo/segments/internal/core/depend"
	"github.com/l1jgo/segments/internal/core/event"
)

// Emit publishes messages to every receiver of M when its system resolves.
type Emit[M any] struct {
	pending []M
}

func (e *Emit[M]) Initialize(Context) error { return nil }

func (e *Emit[M]) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.DeferOf(depend.TypeOf[M]())}
}

func (e *Emit[M]) One(message M) {
	e.pending = append(e.pending, message)
}

func (e *Emit[M]) All(messages ...M) {
	e.pending = append(e.pending, messages...)
}

func (e *Emit[M]) Resolve(w *World) error {
	event.Emit(w.bus, e.pending...)
	clear(e.pending)
	e.pending = e.pending[:0]
	return nil
}

// Keep selects how many unread messages a receiver retains.
type Keep interface {
	keep() int
}

// KeepAll retains every message until it is read.
type KeepAll struct{}

// KeepLast retains only the most recent message.
type KeepLast struct{}

func (KeepAll) keep() int  { return 0 }
func (KeepLast) keep() int { return 1 }

// Receive reads the messages of type M published since its last read, in
// emission order.
type Receive[M any, K Keep] struct {
	queue *event.Queue[M]
}

func (r *Receive[M, K]) Initialize(ctx Context) error {
	var k K
	r.queue = event.Subscribe[M](ctx.World.bus, k.keep())
	return nil
}

func (r *Receive[M, K]) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.ReadOf(depend.TypeOf[M]())}
}

func (r *Receive[M, K]) Pop() (M, bool) { return r.queue.Pop() }

func (r *Receive[M, K]) Len() int { return r.queue.Len() }

// Each drains the queue.
func (r *Receive[M, K]) Each(fn func(M)) {
	for {
		m, ok := r.queue.Pop()
		if !ok {
			return
		}
		fn(m)
	}
}

func (r *Receive[M, K]) Clear() { r.queue.Clear() }
