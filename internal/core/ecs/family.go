package ecs

import (
	"iter"
	"slices"

	"github.com/l1jgo/segments/internal/core/depend"
)

// Family links live in the datum table as entity indices. Every mutation
// below belongs to the single-threaded resolve phase.

func (e *Entities) detach(index uint32) {
	d := &e.data[index]
	if d.Parent == none {
		return
	}
	if d.PreviousSibling != none {
		e.data[d.PreviousSibling].NextSibling = d.NextSibling
	} else {
		e.data[d.Parent].FirstChild = d.NextSibling
	}
	if d.NextSibling != none {
		e.data[d.NextSibling].PreviousSibling = d.PreviousSibling
	}
	d.Parent, d.PreviousSibling, d.NextSibling = none, none, none
}

func (e *Entities) link(parent, child, previous, next uint32) {
	c := &e.data[child]
	c.Parent, c.PreviousSibling, c.NextSibling = parent, previous, next
	if previous != none {
		e.data[previous].NextSibling = child
	} else {
		e.data[parent].FirstChild = child
	}
	if next != none {
		e.data[next].PreviousSibling = child
	}
}

func (e *Entities) lastChild(parent uint32) uint32 {
	last := uint32(none)
	for c := e.data[parent].FirstChild; c != none; c = e.data[c].NextSibling {
		last = c
	}
	return last
}

func (e *Entities) childAt(parent uint32, index int) uint32 {
	if index < 0 {
		return none
	}
	c := e.data[parent].FirstChild
	for ; c != none && index > 0; index-- {
		c = e.data[c].NextSibling
	}
	return c
}

// adoptable reports whether child may be linked under parent without
// creating a cycle.
func (e *Entities) adoptable(parent, child Entity) bool {
	if !e.Has(parent) || !e.Has(child) || parent.Index == child.Index {
		return false
	}
	for p := e.data[parent.Index].Parent; p != none; p = e.data[p].Parent {
		if p == child.Index {
			return false
		}
	}
	return true
}

// AdoptFirst makes child the first child of parent, detaching it from its
// current parent. It fails for dead entities and for adoptions that would
// create a cycle.
func (e *Entities) AdoptFirst(parent, child Entity) bool {
	if !e.adoptable(parent, child) {
		return false
	}
	e.detach(child.Index)
	e.link(parent.Index, child.Index, none, e.data[parent.Index].FirstChild)
	return true
}

// AdoptLast makes child the last child of parent.
func (e *Entities) AdoptLast(parent, child Entity) bool {
	if !e.adoptable(parent, child) {
		return false
	}
	e.detach(child.Index)
	e.link(parent.Index, child.Index, e.lastChild(parent.Index), none)
	return true
}

// AdoptAt inserts child at position index among the children of parent. An
// index past the end appends.
func (e *Entities) AdoptAt(parent, child Entity, index int) bool {
	if !e.adoptable(parent, child) {
		return false
	}
	e.detach(child.Index)
	if index <= 0 {
		e.link(parent.Index, child.Index, none, e.data[parent.Index].FirstChild)
		return true
	}
	next := e.childAt(parent.Index, index)
	if next == none {
		e.link(parent.Index, child.Index, e.lastChild(parent.Index), none)
		return true
	}
	e.link(parent.Index, child.Index, e.data[next].PreviousSibling, next)
	return true
}

// AdoptBefore inserts child just before sibling, under the parent of
// sibling. Siblings without a parent cannot adopt.
func (e *Entities) AdoptBefore(sibling, child Entity) bool {
	parent, ok := e.parentOf(sibling)
	if !ok || sibling.Index == child.Index || !e.adoptable(parent, child) {
		return false
	}
	e.detach(child.Index)
	e.link(parent.Index, child.Index, e.data[sibling.Index].PreviousSibling, sibling.Index)
	return true
}

// AdoptAfter inserts child just after sibling.
func (e *Entities) AdoptAfter(sibling, child Entity) bool {
	parent, ok := e.parentOf(sibling)
	if !ok || sibling.Index == child.Index || !e.adoptable(parent, child) {
		return false
	}
	e.detach(child.Index)
	e.link(parent.Index, child.Index, sibling.Index, e.data[sibling.Index].NextSibling)
	return true
}

func (e *Entities) parentOf(entity Entity) (Entity, bool) {
	d, ok := e.Get(entity)
	if !ok || d.Parent == none {
		return Null, false
	}
	return e.entity(d.Parent), true
}

func (e *Entities) reject(index uint32) (Entity, bool) {
	if index == none {
		return Null, false
	}
	e.detach(index)
	return e.entity(index), true
}

// RejectOne detaches entity from its parent.
func (e *Entities) RejectOne(entity Entity) bool {
	d, ok := e.Get(entity)
	if !ok || d.Parent == none {
		return false
	}
	e.detach(entity.Index)
	return true
}

// RejectFirst detaches and returns the first child of parent.
func (e *Entities) RejectFirst(parent Entity) (Entity, bool) {
	d, ok := e.Get(parent)
	if !ok {
		return Null, false
	}
	return e.reject(d.FirstChild)
}

// RejectLast detaches and returns the last child of parent.
func (e *Entities) RejectLast(parent Entity) (Entity, bool) {
	if !e.Has(parent) {
		return Null, false
	}
	return e.reject(e.lastChild(parent.Index))
}

// RejectAt detaches and returns the child of parent at index.
func (e *Entities) RejectAt(parent Entity, index int) (Entity, bool) {
	if !e.Has(parent) {
		return Null, false
	}
	return e.reject(e.childAt(parent.Index, index))
}

// RejectBefore detaches and returns the sibling just before sibling.
func (e *Entities) RejectBefore(sibling Entity) (Entity, bool) {
	d, ok := e.Get(sibling)
	if !ok {
		return Null, false
	}
	return e.reject(d.PreviousSibling)
}

// RejectAfter detaches and returns the sibling just after sibling.
func (e *Entities) RejectAfter(sibling Entity) (Entity, bool) {
	d, ok := e.Get(sibling)
	if !ok {
		return Null, false
	}
	return e.reject(d.NextSibling)
}

// RejectAll detaches every child of parent and returns how many there were.
func (e *Entities) RejectAll(parent Entity) int {
	d, ok := e.Get(parent)
	if !ok {
		return 0
	}
	n := 0
	for d.FirstChild != none {
		e.detach(d.FirstChild)
		n++
	}
	return n
}

// collect returns root and its descendants depth-first, skipping and
// marking visited entities.
func (e *Entities) collect(root Entity, visited map[Entity]struct{}) []Entity {
	var out []Entity
	stack := []uint32{root.Index}
	for len(stack) > 0 {
		index := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		entity := e.entity(index)
		if _, ok := visited[entity]; ok {
			continue
		}
		visited[entity] = struct{}{}
		out = append(out, entity)

		n := len(stack)
		for c := e.data[index].FirstChild; c != none; c = e.data[c].NextSibling {
			stack = append(stack, c)
		}
		slices.Reverse(stack[n:])
	}
	return out
}

// Family is a read-only view of the hierarchy around one entity.
type Family struct {
	entities *Entities
	entity   Entity
}

// Family returns the hierarchy view of a live entity.
func (e *Entities) Family(entity Entity) (Family, bool) {
	if !e.Has(entity) {
		return Family{}, false
	}
	return Family{entities: e, entity: entity}, true
}

func (f Family) datum() *Datum { return &f.entities.data[f.entity.Index] }

func (f Family) Entity() Entity { return f.entity }

func (f Family) Parent() (Entity, bool) {
	return f.entities.parentOf(f.entity)
}

// Root returns the topmost ancestor, or the entity itself.
func (f Family) Root() Entity {
	index := f.entity.Index
	for p := f.entities.data[index].Parent; p != none; p = f.entities.data[p].Parent {
		index = p
	}
	return f.entities.entity(index)
}

func (f Family) Children() iter.Seq[Entity] {
	return f.chain(f.datum().FirstChild)
}

func (f Family) Child(index int) (Entity, bool) {
	c := f.entities.childAt(f.entity.Index, index)
	if c == none {
		return Null, false
	}
	return f.entities.entity(c), true
}

// Siblings yields the other children of the parent, in order.
func (f Family) Siblings() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		p := f.datum().Parent
		if p == none {
			return
		}
		for c := f.entities.data[p].FirstChild; c != none; c = f.entities.data[c].NextSibling {
			if c != f.entity.Index && !yield(f.entities.entity(c)) {
				return
			}
		}
	}
}

// Ancestors yields the parent, then its parent, up to the root.
func (f Family) Ancestors() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for p := f.datum().Parent; p != none; p = f.entities.data[p].Parent {
			if !yield(f.entities.entity(p)) {
				return
			}
		}
	}
}

// Descendants yields every descendant depth-first, parents before children.
func (f Family) Descendants() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		stack := []uint32{}
		push := func(first uint32) {
			n := len(stack)
			for c := first; c != none; c = f.entities.data[c].NextSibling {
				stack = append(stack, c)
			}
			slices.Reverse(stack[n:])
		}
		push(f.datum().FirstChild)
		for len(stack) > 0 {
			index := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(f.entities.entity(index)) {
				return
			}
			push(f.entities.data[index].FirstChild)
		}
	}
}

func (f Family) PreviousSibling() (Entity, bool) {
	p := f.datum().PreviousSibling
	return f.entities.entity(p), p != none
}

func (f Family) NextSibling() (Entity, bool) {
	n := f.datum().NextSibling
	return f.entities.entity(n), n != none
}

func (f Family) chain(first uint32) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for c := first; c != none; c = f.entities.data[c].NextSibling {
			if !yield(f.entities.entity(c)) {
				return
			}
		}
	}
}

// Families reads the hierarchy.
type Families struct {
	entities *Entities
}

func (f *Families) Initialize(ctx Context) error {
	f.entities = ctx.World.entities
	return nil
}

func (f *Families) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.ReadOf(familyType)}
}

func (f *Families) Get(entity Entity) (Family, bool) {
	return f.entities.Family(entity)
}

// Adopt links children under parents at resolve time, in request order.
type Adopt struct {
	pending []func(*Entities)
}

func (a *Adopt) Initialize(Context) error { return nil }

func (a *Adopt) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.DeferOf(familyType)}
}

func (a *Adopt) First(parent, child Entity) {
	a.pending = append(a.pending, func(e *Entities) { e.AdoptFirst(parent, child) })
}

func (a *Adopt) Last(parent, child Entity) {
	a.pending = append(a.pending, func(e *Entities) { e.AdoptLast(parent, child) })
}

func (a *Adopt) At(parent, child Entity, index int) {
	a.pending = append(a.pending, func(e *Entities) { e.AdoptAt(parent, child, index) })
}

func (a *Adopt) Before(sibling, child Entity) {
	a.pending = append(a.pending, func(e *Entities) { e.AdoptBefore(sibling, child) })
}

func (a *Adopt) After(sibling, child Entity) {
	a.pending = append(a.pending, func(e *Entities) { e.AdoptAfter(sibling, child) })
}

func (a *Adopt) Resolve(w *World) error {
	for _, op := range a.pending {
		op(w.entities)
	}
	clear(a.pending)
	a.pending = a.pending[:0]
	return nil
}

// Reject detaches children from their parents at resolve time.
type Reject struct {
	pending []func(*Entities)
}

func (r *Reject) Initialize(Context) error { return nil }

func (r *Reject) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.DeferOf(familyType)}
}

func (r *Reject) First(parent Entity) {
	r.pending = append(r.pending, func(e *Entities) { e.RejectFirst(parent) })
}

func (r *Reject) Last(parent Entity) {
	r.pending = append(r.pending, func(e *Entities) { e.RejectLast(parent) })
}

func (r *Reject) At(parent Entity, index int) {
	r.pending = append(r.pending, func(e *Entities) { e.RejectAt(parent, index) })
}

func (r *Reject) Before(sibling Entity) {
	r.pending = append(r.pending, func(e *Entities) { e.RejectBefore(sibling) })
}

func (r *Reject) After(sibling Entity) {
	r.pending = append(r.pending, func(e *Entities) { e.RejectAfter(sibling) })
}

func (r *Reject) All(parent Entity) {
	r.pending = append(r.pending, func(e *Entities) { e.RejectAll(parent) })
}

func (r *Reject) One(child Entity) {
	r.pending = append(r.pending, func(e *Entities) { e.RejectOne(child) })
}

func (r *Reject) Resolve(w *World) error {
	for _, op := range r.pending {
		op(w.entities)
	}
	clear(r.pending)
	r.pending = r.pending[:0]
	return nil
}
