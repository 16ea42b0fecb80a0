// Package depend describes the data a system touches and detects when two
// systems cannot run side by side.
package depend

import (
	"fmt"
	"reflect"
)

// Kind is the access a dependency declares.
type Kind uint8

const (
	// Unknown access conflicts with everything.
	Unknown Kind = iota
	Read
	Write
	// Defer marks a mutation that is buffered and applied at resolve time.
	Defer
)

func (k Kind) String() string {
	switch k {
	case Read:
		return "read"
	case Write:
		return "write"
	case Defer:
		return "defer"
	default:
		return "unknown"
	}
}

// Global scopes a key to every segment at once.
const Global = -1

// Key identifies a piece of data: a type, optionally narrowed to one segment.
type Key struct {
	Type    reflect.Type
	Segment int
}

func (k Key) String() string {
	name := "<nil>"
	if k.Type != nil {
		name = k.Type.String()
	}
	if k.Segment == Global {
		return name
	}
	return fmt.Sprintf("%s@%d", name, k.Segment)
}

// Dependency is one declared access.
type Dependency struct {
	Kind Kind
	Key  Key
}

func (d Dependency) String() string {
	if d.Kind == Unknown {
		return "unknown"
	}
	return d.Kind.String() + "(" + d.Key.String() + ")"
}

func ReadOf(t reflect.Type) Dependency { return Dependency{Kind: Read, Key: Key{Type: t, Segment: Global}} }
func WriteOf(t reflect.Type) Dependency { return Dependency{Kind: Write, Key: Key{Type: t, Segment: Global}} }
func DeferOf(t reflect.Type) Dependency { return Dependency{Kind: Defer, Key: Key{Type: t, Segment: Global}} }
func ReadAt(t reflect.Type, s int) Dependency { return Dependency{Kind: Read, Key: Key{Type: t, Segment: s}} }
func WriteAt(t reflect.Type, s int) Dependency { return Dependency{Kind: Write, Key: Key{Type: t, Segment: s}} }
func DeferAt(t reflect.Type, s int) Dependency { return Dependency{Kind: Defer, Key: Key{Type: t, Segment: s}} }

// Any returns an Unknown dependency.
func Any() Dependency { return Dependency{Kind: Unknown} }

// TypeOf is a shorthand for the reflect.Type of T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
