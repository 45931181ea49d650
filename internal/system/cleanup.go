package system

import (
	"github.com/ironforge/outpost/internal/core/ecs"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/world"
)

// CleanupSystem prunes every per-entity record whose entity is gone and
// rebuilds the aggregated inventory at tick end.
type CleanupSystem struct{}

func (CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (CleanupSystem) Update(ctx *Context) {
	w := ctx.World
	ents := &w.Entities
	c := &w.Combat

	for _, id := range c.Enemies.IDs() {
		if !ents.Exists(id) {
			c.Enemies.Remove(id)
		}
	}
	for _, id := range c.Projectiles.IDs() {
		if !ents.Exists(id) {
			c.Projectiles.Remove(id)
		}
	}
	prune(ents, c.LastFireTick)
	prune(ents, c.WallNetwork)
	prune(ents, c.TurretNetwork)

	eco := &w.Economy
	for _, id := range world.SortedIDs(eco.InputBuffers) {
		if !ents.Exists(id) {
			eco.ForgetStructure(id)
		}
	}
	for _, id := range world.SortedIDs(eco.OutputBuffers) {
		if !ents.Exists(id) {
			eco.ForgetStructure(id)
		}
	}
	prune(ents, eco.Conveyors)
	prune(ents, eco.ConveyorIO)
	prune(ents, eco.ActiveRecipe)
	prune(ents, eco.PinnedRecipe)
	prune(ents, eco.StarvedInputs)

	for _, p := range w.Ore.Patches {
		if p.BoundMinerID != 0 && !ents.Exists(p.BoundMinerID) {
			p.BoundMinerID = 0
		}
	}
	eco.RecomputeInventory()
}

func prune[V any](ents *world.Entities, m map[ecs.EntityID]V) {
	for _, id := range world.SortedIDs(m) {
		if !ents.Exists(id) {
			delete(m, id)
		}
	}
}
