package system

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/segments/internal/core/depend"
)

var (
	// ErrDepend is returned by Schedule when a system's own dependencies
	// conflict with each other.
	ErrDepend = errors.New("invalid system dependencies")
	// ErrPanic wraps a panic recovered from a system.
	ErrPanic = errors.New("system panicked")
)

type entry struct {
	phase  Phase
	order  int
	system System
}

// Runner executes systems in phase order each frame, running systems whose
// dependencies do not conflict side by side.
type Runner struct {
	world   World
	log     *zap.Logger
	workers int

	entries []entry
	sorted  bool

	blocks    [][]int // indices into entries
	version   uint64
	scheduled bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds how many systems of one block run at once.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

func NewRunner(world World, opts ...Option) *Runner {
	r := &Runner{
		world:   world,
		log:     zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
		entries: make([]entry, 0, 16),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds systems to phase. Within a phase, systems keep their
// registration order for blocking and resolving.
func (r *Runner) Register(phase Phase, systems ...System) {
	for _, s := range systems {
		r.entries = append(r.entries, entry{phase: phase, order: len(r.entries), system: s})
	}
	r.sorted = false
	r.scheduled = false
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.entries, func(i, j int) bool {
			return r.entries[i].phase < r.entries[j].phase
		})
		r.sorted = true
	}
}

// Schedule refreshes every system and partitions them into blocks: maximal
// runs of consecutive systems of one phase whose dependencies do not
// conflict.
func (r *Runner) Schedule() error {
	r.ensureSorted()
	r.blocks = r.blocks[:0]
	conflict := depend.NewConflict()
	var block []int
	phase := Phase(-1)
	exclusive := false

	for i, e := range r.entries {
		if err := e.system.Update(); err != nil {
			return fmt.Errorf("update %s: %w", e.system.Name(), err)
		}
		deps := e.system.Depend()
		if err := depend.Validate(deps); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrDepend, e.system.Name(), err)
		}
		unknown := slices.ContainsFunc(deps, func(d depend.Dependency) bool {
			return d.Kind == depend.Unknown
		})
		split := e.phase != phase || exclusive || (unknown && len(block) > 0)
		if !split && conflict.Detect(deps) != nil {
			split = true
		}
		if split {
			if len(block) > 0 {
				r.blocks = append(r.blocks, block)
			}
			block = nil
			phase = e.phase
			conflict.Clear()
			conflict.Record(deps)
		}
		exclusive = unknown
		block = append(block, i)
	}
	if len(block) > 0 {
		r.blocks = append(r.blocks, block)
	}

	r.version = r.world.Version()
	r.scheduled = true
	r.log.Debug("systems scheduled",
		zap.Int("systems", len(r.entries)),
		zap.Int("blocks", len(r.blocks)),
		zap.Uint64("version", r.version),
	)
	return nil
}

// Blocks returns the system names of each block of the current schedule.
func (r *Runner) Blocks() [][]string {
	out := make([][]string, len(r.blocks))
	for i, block := range r.blocks {
		for _, j := range block {
			out[i] = append(out[i], r.entries[j].system.Name())
		}
	}
	return out
}

// Run executes one frame. The schedule is rebuilt when the world's version
// changed since it was made. When a resolve changes the version mid-frame,
// the remaining systems run one at a time, each refreshed first.
func (r *Runner) Run() error {
	if !r.scheduled || r.world.Version() != r.version {
		if err := r.Schedule(); err != nil {
			return err
		}
	}

	for b, block := range r.blocks {
		if err := r.runBlock(block); err != nil {
			return err
		}
		r.world.Resolve()
		for _, i := range block {
			if err := r.resolve(r.entries[i].system); err != nil {
				return err
			}
		}
		if r.world.Version() != r.version {
			r.scheduled = false
			rest := r.blocks[b+1:]
			if len(rest) > 0 {
				r.log.Debug("world changed mid-frame, running sequentially",
					zap.Int("blocks", len(rest)),
				)
			}
			return r.sequential(rest)
		}
	}
	return nil
}

func (r *Runner) sequential(blocks [][]int) error {
	for _, block := range blocks {
		for _, i := range block {
			s := r.entries[i].system
			if err := s.Update(); err != nil {
				return fmt.Errorf("update %s: %w", s.Name(), err)
			}
			if err := r.run(s); err != nil {
				return err
			}
			r.world.Resolve()
			if err := r.resolve(s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Runner) runBlock(block []int) error {
	if len(block) == 1 {
		return r.run(r.entries[block[0]].system)
	}
	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, i := range block {
		s := r.entries[i].system
		g.Go(func() error { return r.run(s) })
	}
	return g.Wait()
}

func (r *Runner) run(s System) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, s.Name(), p)
			r.log.Error("system panicked", zap.String("system", s.Name()), zap.Any("panic", p))
		}
	}()
	if err := s.Run(); err != nil {
		r.log.Warn("system failed", zap.String("system", s.Name()), zap.Error(err))
		return fmt.Errorf("run %s: %w", s.Name(), err)
	}
	return nil
}

func (r *Runner) resolve(s System) error {
	if err := s.Resolve(); err != nil {
		r.log.Error("system resolve failed", zap.String("system", s.Name()), zap.Error(err))
		return fmt.Errorf("resolve %s: %w", s.Name(), err)
	}
	return nil
}
