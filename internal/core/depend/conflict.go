package depend

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrConflict is wrapped by every error Detect and Validate return.
var ErrConflict = errors.New("dependency conflict")

// ConflictError names the dependency that could not be admitted and the
// recorded access it collides with.
type ConflictError struct {
	Dependency Dependency
	Against    Kind
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s collides with earlier %s access", e.Dependency, e.Against)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// scopes records which segments of one type have been touched.
type scopes struct {
	global   bool
	segments map[int]struct{}
}

func (s *scopes) add(segment int) {
	if segment == Global {
		s.global = true
		return
	}
	if s.segments == nil {
		s.segments = make(map[int]struct{})
	}
	s.segments[segment] = struct{}{}
}

func (s *scopes) overlaps(segment int) bool {
	if s == nil {
		return false
	}
	if s.global {
		return true
	}
	if segment == Global {
		return len(s.segments) > 0
	}
	_, ok := s.segments[segment]
	return ok
}

// Conflict accumulates the dependencies of the systems placed in one block.
type Conflict struct {
	unknown bool
	reads   map[reflect.Type]*scopes
	writes  map[reflect.Type]*scopes
	defers  map[reflect.Type]*scopes
}

func NewConflict() *Conflict {
	return &Conflict{
		reads:  make(map[reflect.Type]*scopes),
		writes: make(map[reflect.Type]*scopes),
		defers: make(map[reflect.Type]*scopes),
	}
}

// Clear forgets every recorded dependency.
func (c *Conflict) Clear() {
	c.unknown = false
	clear(c.reads)
	clear(c.writes)
	clear(c.defers)
}

// Empty reports whether nothing has been recorded.
func (c *Conflict) Empty() bool {
	return !c.unknown && len(c.reads) == 0 && len(c.writes) == 0 && len(c.defers) == 0
}

// Detect checks deps against everything recorded so far and records them
// when they fit. A read or write that follows a deferred mutation of the same
// key conflicts, so the deferred mutation is observed by later systems.
// Nothing is recorded when an error is returned.
func (c *Conflict) Detect(deps []Dependency) error {
	if err := c.check(deps, false); err != nil {
		return err
	}
	c.Record(deps)
	return nil
}

// Record admits deps without checking them.
func (c *Conflict) Record(deps []Dependency) {
	for _, d := range deps {
		switch d.Kind {
		case Read:
			entry(c.reads, d.Key.Type).add(d.Key.Segment)
		case Write:
			entry(c.writes, d.Key.Type).add(d.Key.Segment)
		case Defer:
			entry(c.defers, d.Key.Type).add(d.Key.Segment)
		default:
			c.unknown = true
		}
	}
}

// Validate reports the conflicts within a single system's dependencies.
// Deferred access never conflicts with the system's own reads and writes
// since the system resolves after it runs.
func Validate(deps []Dependency) error {
	c := NewConflict()
	for i, d := range deps {
		if d.Kind == Unknown {
			continue
		}
		if err := c.check(deps[i:i+1], true); err != nil {
			return err
		}
		c.Record(deps[i : i+1])
	}
	return nil
}

func (c *Conflict) check(deps []Dependency, inner bool) error {
	for _, d := range deps {
		if d.Kind == Unknown {
			if !c.Empty() {
				return &ConflictError{Dependency: d, Against: Unknown}
			}
			continue
		}
		if c.unknown {
			return &ConflictError{Dependency: d, Against: Unknown}
		}
		t, s := d.Key.Type, d.Key.Segment
		switch d.Kind {
		case Read:
			if c.writes[t].overlaps(s) {
				return &ConflictError{Dependency: d, Against: Write}
			}
			if !inner && c.defers[t].overlaps(s) {
				return &ConflictError{Dependency: d, Against: Defer}
			}
		case Write:
			if c.writes[t].overlaps(s) {
				return &ConflictError{Dependency: d, Against: Write}
			}
			if c.reads[t].overlaps(s) {
				return &ConflictError{Dependency: d, Against: Read}
			}
			if !inner && c.defers[t].overlaps(s) {
				return &ConflictError{Dependency: d, Against: Defer}
			}
		}
	}
	return nil
}

func entry(m map[reflect.Type]*scopes, t reflect.Type) *scopes {
	s, ok := m[t]
	if !ok {
		s = &scopes{}
		m[t] = s
	}
	return s
}
