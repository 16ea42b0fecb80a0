package event

import (
	"reflect"
	"sync"
)

// Bus fans messages out to per-receiver queues. Messages published for a
// type are appended to every queue subscribed to that type, in publish order.
// Publishing happens from the single-threaded resolve phase; each queue is
// drained by the one system that owns it.
type Bus struct {
	mu     sync.Mutex // protects topic registration
	topics map[reflect.Type]any
}

func NewBus() *Bus {
	return &Bus{
		topics: make(map[reflect.Type]any),
	}
}

type topic[T any] struct {
	queues []*Queue[T]
}

// Queue holds the messages one receiver has not consumed yet. A positive
// keep bounds the queue; the oldest messages are discarded first.
type Queue[T any] struct {
	items []T
	head  int
	keep  int
}

func topicOf[T any](b *Bus) *topic[T] {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	if existing, ok := b.topics[t]; ok {
		return existing.(*topic[T])
	}
	tp := &topic[T]{}
	b.topics[t] = tp
	return tp
}

// Subscribe registers a new queue for messages of type T. keep <= 0 keeps
// every message until it is popped.
func Subscribe[T any](b *Bus, keep int) *Queue[T] {
	tp := topicOf[T](b)
	q := &Queue[T]{keep: keep}
	b.mu.Lock()
	tp.queues = append(tp.queues, q)
	b.mu.Unlock()
	return q
}

// Emit appends events to every queue subscribed to T.
func Emit[T any](b *Bus, events ...T) {
	if len(events) == 0 {
		return
	}
	tp := topicOf[T](b)
	for _, q := range tp.queues {
		q.push(events)
	}
}

// Subscribers returns how many queues receive messages of type T.
func Subscribers[T any](b *Bus) int {
	tp := topicOf[T](b)
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(tp.queues)
}

func (q *Queue[T]) push(events []T) {
	q.compact()
	q.items = append(q.items, events...)
	if q.keep > 0 && len(q.items) > q.keep {
		drop := len(q.items) - q.keep
		clear(q.items[:drop])
		q.items = append(q.items[:0], q.items[drop:]...)
	}
}

// compact discards consumed messages so the buffer is reused.
func (q *Queue[T]) compact() {
	if q.head == 0 {
		return
	}
	n := copy(q.items, q.items[q.head:])
	clear(q.items[n:])
	q.items = q.items[:n]
	q.head = 0
}

// Pop removes the oldest pending message.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if q.head >= len(q.items) {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	return item, true
}

// Len returns the number of pending messages.
func (q *Queue[T]) Len() int {
	return len(q.items) - q.head
}

// Clear drops every pending message.
func (q *Queue[T]) Clear() {
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
}
