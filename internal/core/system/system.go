package system

import "github.com/l1jgo/segments/internal/core/depend"

// Phase defines execution ordering within a single frame. Systems of one
// phase all run before any system of the next; blocks never span phases.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain external inputs
	PhasePreUpdate               // 1: react to last frame's messages
	PhaseUpdate                  // 2: simulation
	PhasePostUpdate              // 3: spawn, hierarchy, lifetime
	PhaseOutput                  // 4: summaries, outgoing messages
	PhasePersist                 // 5: journal
	PhaseCleanup                 // 6: destroy expired entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// ParsePhase maps a phase name back to its value.
func ParsePhase(name string) (Phase, bool) {
	for p := PhaseInput; p <= PhaseCleanup; p++ {
		if p.String() == name {
			return p, true
		}
	}
	return 0, false
}

// System is the interface every schedulable system implements. Update
// refreshes internal state before a schedule, Depend lists the data Run
// touches, and Resolve applies what Run buffered.
type System interface {
	Name() string
	Update() error
	Depend() []depend.Dependency
	Run() error
	Resolve() error
}

// World is what the runner needs from the world between blocks.
type World interface {
	// Resolve folds the reservations made during a run phase.
	Resolve()
	// Version changes whenever new segments or types appear.
	Version() uint64
}
