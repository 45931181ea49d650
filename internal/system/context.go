// Package system holds the simulation systems. Each system is stateless:
// everything it reads or writes lives in the world carried by Context, and
// its only other output is events appended to the tick's sink.
package system

import (
	"strconv"
	"time"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

// Context is threaded through every system of one tick.
type Context struct {
	Tick     uint64
	Dt       time.Duration
	Commands []command.Command // already sorted
	Events   *event.Sink
	Catalog  *data.Catalog
	Tuning   Tuning
	World    *world.State
}

// Emit appends an event to the tick's sink.
func (c *Context) Emit(ev event.Event) {
	c.Events.Emit(ev)
}

// Pipeline returns the fixed system list.
func Pipeline() []coresys.System[*Context] {
	return []coresys.System[*Context]{
		CommandSystem{},
		EconomySystem{},
		OreSystem{},
		ThreatSystem{},
		MovementSystem{},
		CombatSystem{},
		ProjectileSystem{},
		BottleneckSystem{},
		CleanupSystem{},
	}
}

// NewRunner builds the runner over Pipeline.
func NewRunner() (*coresys.Runner[*Context], error) {
	return coresys.NewRunner(Pipeline()...)
}

// endRun moves the run to game over exactly once.
func endRun(ctx *Context, reason string) {
	r := &ctx.World.Run
	if r.Phase == world.PhaseGameOver {
		return
	}
	r.Phase = world.PhaseGameOver
	ctx.Emit(event.Event{Kind: event.GameOver, Detail: reason})
}

// damageBase hits the HQ and ends the run when it falls.
func damageBase(ctx *Context, amount int) int {
	w := ctx.World
	remaining, died := w.Entities.Damage(w.Run.HQ, amount)
	ctx.Emit(event.Event{Kind: event.BaseDamaged, Entity: w.Run.HQ, Value: remaining})
	if died || w.HQ() == nil {
		endRun(ctx, "hq_destroyed")
	}
	return remaining
}

// plural renders "1 enemy" / "3 enemies" for event details.
func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}
