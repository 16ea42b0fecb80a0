package ecs

// Filter narrows the segments a query visits beyond the types it reads.
type Filter interface {
	match(w *World, s *Segment) bool
}

// All matches every segment.
type All struct{}

// Has matches segments storing T.
type Has[T any] struct{}

// Not inverts F.
type Not[F Filter] struct{}

// And matches segments matched by both A and B.
type And[A, B Filter] struct{}

// Or matches segments matched by A or B.
type Or[A, B Filter] struct{}

func (All) match(*World, *Segment) bool { return true }

func (Has[T]) match(w *World, s *Segment) bool {
	return s.Has(Register[T](w))
}

func (Not[F]) match(w *World, s *Segment) bool {
	var f F
	return !f.match(w, s)
}

func (And[A, B]) match(w *World, s *Segment) bool {
	var a A
	var b B
	return a.match(w, s) && b.match(w, s)
}

func (Or[A, B]) match(w *World, s *Segment) bool {
	var a A
	var b B
	return a.match(w, s) || b.match(w, s)
}
