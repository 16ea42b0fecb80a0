package ecs

import (
	"errors"
	"fmt"

	"github.com/l1jgo/segments/internal/core/store"
)

var (
	// ErrMissingClone is returned when duplicating a row whose columns cannot be cloned.
	ErrMissingClone = store.ErrMissingClone
	// ErrMissingStore is returned when a segment lacks a column an operation needs.
	ErrMissingStore = errors.New("missing store")
	// ErrMissingResource is returned when a resource is required but absent.
	ErrMissingResource = errors.New("missing resource")
	// ErrFailedToUpdate signals a datum that could not follow its row. It
	// means the world is corrupt and must never happen in correct operation.
	ErrFailedToUpdate = errors.New("failed to update entity datum")
	// ErrSegmentIndex signals a datum pointing outside the segment table.
	ErrSegmentIndex = errors.New("segment index out of range")
	// ErrIncoherent is returned by Validate when a datum and its row disagree.
	ErrIncoherent = errors.New("datum and store disagree")
	// ErrInvalidSystem is returned when a function cannot be turned into a system.
	ErrInvalidSystem = errors.New("invalid system")
)

// UpdateError carries the entity whose datum could not be moved.
type UpdateError struct {
	Entity  Entity
	Segment int
	Store   int
}

func (e *UpdateError) Error() string {
	return fmt.Sprintf("%v: entity %s to segment %d slot %d", ErrFailedToUpdate, e.Entity, e.Segment, e.Store)
}

func (e *UpdateError) Unwrap() error { return ErrFailedToUpdate }
