package ecs

import (
	"fmt"
	"reflect"

	"github.com/l1jgo/segments/internal/core/depend"
)

// Context is handed to every injectable while its system is built.
type Context struct {
	World  *World
	System string
}

// Injectable is implemented by the pointer types a system function may take
// as parameters. Depend is called at every schedule and must reflect the
// segments known at that time.
type Injectable interface {
	Initialize(ctx Context) error
	Depend(w *World) []depend.Dependency
}

// Updater is implemented by injectables that refresh state before a
// schedule, for example to discover new segments.
type Updater interface {
	Update(w *World) error
}

// Resolver is implemented by injectables that buffer mutations during the
// run phase and apply them afterwards.
type Resolver interface {
	Resolve(w *World) error
}

var (
	injectableType = reflect.TypeOf((*Injectable)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// System is a function whose parameters are injectables, bound to a world.
type System struct {
	world     *World
	name      string
	fn        reflect.Value
	args      []reflect.Value
	params    []Injectable
	updaters  []Updater
	resolvers []Resolver
	fails     bool
}

// NewSystem binds fn to w. fn must be a function whose parameters are all
// pointers to injectable types, returning nothing or an error, e.g.
//
//	func(q *ecs.Query2[ecs.Mut[Position], ecs.Ref[Velocity], ecs.All], d *ecs.DestroyDefault) error
func NewSystem(w *World, name string, fn any) (*System, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s is %s, not a function", ErrInvalidSystem, name, t)
	}
	s := &System{world: w, name: name, fn: v}
	switch {
	case t.NumOut() == 0:
	case t.NumOut() == 1 && t.Out(0) == errorType:
		s.fails = true
	default:
		return nil, fmt.Errorf("%w: %s must return nothing or an error", ErrInvalidSystem, name)
	}

	ctx := Context{World: w, System: name}
	for i := 0; i < t.NumIn(); i++ {
		p := t.In(i)
		if p.Kind() != reflect.Pointer || !p.Implements(injectableType) {
			return nil, fmt.Errorf("%w: %s parameter %d: %s is not injectable", ErrInvalidSystem, name, i, p)
		}
		arg := reflect.New(p.Elem())
		param := arg.Interface().(Injectable)
		if err := param.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("%s parameter %d (%s): %w", name, i, p.Elem(), err)
		}
		s.args = append(s.args, arg)
		s.params = append(s.params, param)
		if u, ok := param.(Updater); ok {
			s.updaters = append(s.updaters, u)
		}
		if r, ok := param.(Resolver); ok {
			s.resolvers = append(s.resolvers, r)
		}
	}
	return s, nil
}

func (s *System) Name() string { return s.name }

// Update refreshes every parameter.
func (s *System) Update() error {
	for _, u := range s.updaters {
		if err := u.Update(s.world); err != nil {
			return err
		}
	}
	return nil
}

// Run calls the function with its parameters.
func (s *System) Run() error {
	out := s.fn.Call(s.args)
	if s.fails && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// Resolve applies the mutations buffered during Run, in parameter order.
func (s *System) Resolve() error {
	for _, r := range s.resolvers {
		if err := r.Resolve(s.world); err != nil {
			return err
		}
	}
	return nil
}

// Depend concatenates the dependencies of every parameter.
func (s *System) Depend() []depend.Dependency {
	var deps []depend.Dependency
	for _, p := range s.params {
		deps = append(deps, p.Depend(s.world)...)
	}
	return deps
}

// Exclusive grants a system the whole world. Systems taking it never run
// alongside anything else and may use the immediate World API.
type Exclusive struct {
	world *World
}

func (x *Exclusive) Initialize(ctx Context) error {
	x.world = ctx.World
	return nil
}

func (x *Exclusive) Depend(*World) []depend.Dependency {
	return []depend.Dependency{depend.Any()}
}

func (x *Exclusive) World() *World { return x.world }
