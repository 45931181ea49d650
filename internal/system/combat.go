package system

import (
	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/mathx"
	"github.com/ironforge/outpost/internal/world"
)

// CombatSystem rebuilds wall networks, refills their ammo pools and fires
// every ready turret at the nearest enemy in range.
type CombatSystem struct{}

func (CombatSystem) Phase() coresys.Phase { return coresys.PhaseCombat }

func (s CombatSystem) Update(ctx *Context) {
	w := ctx.World
	w.Combat.ShotsThisTick = 0
	w.Combat.DryFiresThisTick = 0
	if w.Run.Phase == world.PhaseGameOver {
		return
	}
	s.rebuildNetworks(ctx)
	s.refill(ctx)
	s.fire(ctx)

	if n := w.Combat.ShotsThisTick; n > 0 {
		ctx.Emit(event.Event{Kind: event.AmmoSpent, Value: n, ItemID: data.ItemAmmo})
	}
	if n := w.Combat.DryFiresThisTick; n > 0 {
		ctx.Emit(event.Event{Kind: event.NotEnoughAmmo, Value: n, ItemID: data.ItemAmmo})
	}
}

// rebuildNetworks groups 4-adjacent walls into networks identified by
// their lowest wall ID. Each old pool moves to the network now holding the
// lowest surviving member of the old network; pools of networks with no
// surviving wall are lost.
func (CombatSystem) rebuildNetworks(ctx *Context) {
	w := ctx.World
	c := &w.Combat
	walls := w.Entities.Structures(data.StructureWall)

	parent := make(map[ecs.EntityID]ecs.EntityID, len(walls))
	var find func(ecs.EntityID) ecs.EntityID
	find = func(id ecs.EntityID) ecs.EntityID {
		for parent[id] != id {
			parent[id] = parent[parent[id]]
			id = parent[id]
		}
		return id
	}
	for _, wl := range walls {
		parent[wl.ID] = wl.ID
	}
	for i, a := range walls {
		for _, b := range walls[i+1:] {
			if !a.Rect().Touches(b.Rect()) {
				continue
			}
			ra, rb := find(a.ID), find(b.ID)
			if ra == rb {
				continue
			}
			if ra < rb {
				parent[rb] = ra
			} else {
				parent[ra] = rb
			}
		}
	}

	members := make(map[ecs.EntityID][]ecs.EntityID)
	for _, id := range world.SortedIDs(c.WallNetwork) {
		old := c.WallNetwork[id]
		members[old] = append(members[old], id)
	}
	newNet := make(map[ecs.EntityID]ecs.EntityID, len(walls))
	newAmmo := make(map[ecs.EntityID]int)
	for _, wl := range walls {
		root := find(wl.ID)
		newNet[wl.ID] = root
		if _, ok := newAmmo[root]; !ok {
			newAmmo[root] = 0
		}
	}
	for _, old := range world.SortedIDs(c.NetworkAmmo) {
		for _, m := range members[old] {
			if root, ok := newNet[m]; ok {
				newAmmo[root] = min(newAmmo[root]+c.NetworkAmmo[old], w.Rules.NetworkAmmoCap)
				break
			}
		}
	}
	c.WallNetwork = newNet
	c.NetworkAmmo = newAmmo

	c.TurretNetwork = make(map[ecs.EntityID]ecs.EntityID)
	for _, t := range w.Entities.Structures(data.StructureTurret) {
		var best ecs.EntityID
		for _, wl := range walls {
			if !t.Rect().Touches(wl.Rect()) {
				continue
			}
			if root := newNet[wl.ID]; best == 0 || root < best {
				best = root
			}
		}
		if best != 0 {
			c.TurretNetwork[t.ID] = best
		}
	}
}

// refill tops network pools up from shared storage in network ID order.
func (CombatSystem) refill(ctx *Context) {
	w := ctx.World
	c := &w.Combat
	for _, net := range c.Networks() {
		need := min(w.Rules.NetworkAmmoCap-c.NetworkAmmo[net], w.Rules.NetworkRefillPerTick)
		if need <= 0 {
			continue
		}
		c.NetworkAmmo[net] += w.Economy.Storage.Take(data.ItemAmmo, need)
	}
}

func (CombatSystem) fire(ctx *Context) {
	w := ctx.World
	c := &w.Combat
	enemies := w.Entities.OfCategory(world.CategoryEnemy)
	if len(enemies) == 0 {
		return
	}
	for _, t := range w.Entities.Structures(data.StructureTurret) {
		spec := ctx.Catalog.Structure(t.StructureType)
		if spec == nil || spec.Turret == nil {
			continue
		}
		ts := spec.Turret
		if last, ok := c.LastFireTick[t.ID]; ok && ctx.Tick-last < uint64(ts.CooldownTicks) {
			continue
		}
		target, dist := nearestEnemy(t, enemies, ts.Range)
		if target == nil {
			continue
		}

		if !spendAmmo(w, t.ID) {
			c.DryFiresThisTick++
			continue
		}
		travel := max(1, mathx.CeilDiv(dist, ts.ProjectileSpeed))
		p := w.Entities.SpawnProjectile(t.Position)
		c.Projectiles.Set(p.ID, &world.ProjectileRuntime{
			Source:     t.ID,
			Target:     target.ID,
			Damage:     ts.Damage,
			ImpactTick: ctx.Tick + uint64(travel),
		})
		c.LastFireTick[t.ID] = ctx.Tick
		c.ShotsThisTick++
		ctx.Emit(event.Event{Kind: event.ProjectileFired, Entity: p.ID, Value: int(target.ID)})
	}
}

// nearestEnemy returns the closest enemy by Manhattan distance within
// rng. enemies are in ID order, so the first minimum is the lowest ID.
func nearestEnemy(t *world.Entity, enemies []*world.Entity, rng int) (*world.Entity, int) {
	var best *world.Entity
	bestDist := 0
	for _, e := range enemies {
		d := mathx.Manhattan(t.Position.X, t.Position.Y, e.Position.X, e.Position.Y)
		if d > rng {
			continue
		}
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, bestDist
}

// spendAmmo debits one round from the turret's network pool, or from shared
// storage when the turret is not attached to a network.
func spendAmmo(w *world.State, turret ecs.EntityID) bool {
	c := &w.Combat
	if net, ok := c.TurretNetwork[turret]; ok {
		if c.NetworkAmmo[net] <= 0 {
			return false
		}
		c.NetworkAmmo[net]--
		return true
	}
	return w.Economy.Storage.Take(data.ItemAmmo, 1) == 1
}
