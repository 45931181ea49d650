package system

import (
	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/world"
)

// MovementSystem steps enemies one cell along an A* path to the base on
// their move ticks. Blocked enemies press on the base instead of idling.
type MovementSystem struct{}

func (MovementSystem) Phase() coresys.Phase { return coresys.PhaseMovement }

func (s MovementSystem) Update(ctx *Context) {
	w := ctx.World
	if w.Run.Phase == world.PhaseGameOver {
		return
	}
	base := w.Board.Base
	// Structures do not change during this phase, so one grid serves every
	// search of the tick.
	var grid *world.NavGrid

	w.Combat.Enemies.Each(func(id ecs.EntityID, rt *world.EnemyRuntime) {
		if w.Run.Phase == world.PhaseGameOver {
			return
		}
		e := w.Entities.Entity(id)
		if e == nil || rt.MoveEveryTicks <= 0 || ctx.Tick%uint64(rt.MoveEveryTicks) != 0 {
			return
		}
		cell := e.Position.Cell()
		if cell == base {
			s.hitBase(ctx, id, rt)
			return
		}
		if grid == nil {
			grid = world.BuildNavGrid(&w.Board, &w.Entities, ctx.Catalog)
		}
		path := world.FindPath(grid, cell, base)
		if len(path) < 2 {
			w.Threat.Telemetry.BreachHits++
			ctx.Emit(event.Event{Kind: event.BreachPressure, Entity: id, Value: w.Rules.BreachPressureDamage})
			damageBase(ctx, w.Rules.BreachPressureDamage)
			return
		}
		next := path[1]
		w.Entities.UpdatePosition(id, w.Board.Snap(next))
		if next == base {
			s.hitBase(ctx, id, rt)
		}
	})
}

// hitBase applies the enemy's damage to the HQ and removes the enemy.
func (MovementSystem) hitBase(ctx *Context, id ecs.EntityID, rt *world.EnemyRuntime) {
	w := ctx.World
	w.Threat.Telemetry.BaseHits++
	ctx.Emit(event.Event{Kind: event.EnemyReachedBase, Entity: id, Value: rt.Damage, Detail: rt.Archetype})
	w.Entities.Remove(id)
	w.Combat.Enemies.Remove(id)
	damageBase(ctx, rt.Damage)
}
