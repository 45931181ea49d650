package system

import (
	"fmt"
	"sort"
)

// Runner executes systems in phase order each tick.
// The system list is fixed at construction; there is no registration after
// the fact, so the pipeline order cannot drift between runs.
type Runner[C any] struct {
	systems []System[C]
}

// NewRunner builds a runner from a fixed system list. Systems are ordered
// by phase (stable for equal phases); duplicate phases are rejected so every
// phase has exactly one owner.
func NewRunner[C any](systems ...System[C]) (*Runner[C], error) {
	list := make([]System[C], len(systems))
	copy(list, systems)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Phase() < list[j].Phase()
	})
	for i := 1; i < len(list); i++ {
		if list[i].Phase() == list[i-1].Phase() {
			return nil, fmt.Errorf("duplicate system for phase %s", list[i].Phase())
		}
	}
	return &Runner[C]{systems: list}, nil
}

func (r *Runner[C]) Tick(ctx C) {
	for _, s := range r.systems {
		s.Update(ctx)
	}
}

// TickPhase runs only the system owning the given phase. Used by tests that
// exercise one stage in isolation.
func (r *Runner[C]) TickPhase(phase Phase, ctx C) {
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(ctx)
		}
	}
}

// Phases lists the registered phases in execution order.
func (r *Runner[C]) Phases() []Phase {
	out := make([]Phase, len(r.systems))
	for i, s := range r.systems {
		out[i] = s.Phase()
	}
	return out
}
