package world

import "github.com/ironforge/outpost/internal/core/ecs"

// EnemyRuntime is the combat-side record of a live enemy.
type EnemyRuntime struct {
	Archetype      string `json:"archetype"`
	MoveEveryTicks int    `json:"move_every_ticks"`
	Damage         int    `json:"damage"`
	Reward         int    `json:"reward"`
}

// ProjectileRuntime is an in-flight shot.
type ProjectileRuntime struct {
	Source     ecs.EntityID `json:"source"`
	Target     ecs.EntityID `json:"target"`
	Damage     int          `json:"damage"`
	ImpactTick uint64       `json:"impact_tick"`
}

// CombatState holds runtimes keyed by entity. Every runtime has a matching
// entity; the cleanup system prunes the rest.
type CombatState struct {
	Enemies     ecs.Store[EnemyRuntime]      `json:"enemies"`
	Projectiles ecs.Store[ProjectileRuntime] `json:"projectiles"`

	LastFireTick  map[ecs.EntityID]uint64       `json:"last_fire_tick"`
	WallNetwork   map[ecs.EntityID]ecs.EntityID `json:"wall_network"`   // wall → network
	TurretNetwork map[ecs.EntityID]ecs.EntityID `json:"turret_network"` // turret → network
	NetworkAmmo   map[ecs.EntityID]int          `json:"network_ammo"`   // network → pooled ammo

	ShotsThisTick    int `json:"shots_this_tick"`
	DryFiresThisTick int `json:"dry_fires_this_tick"`
}

func NewCombatState() CombatState {
	c := CombatState{
		Enemies:     *ecs.NewStore[EnemyRuntime](),
		Projectiles: *ecs.NewStore[ProjectileRuntime](),
	}
	c.ensureMaps()
	return c
}

func (c *CombatState) ensureMaps() {
	if c.LastFireTick == nil {
		c.LastFireTick = map[ecs.EntityID]uint64{}
	}
	if c.WallNetwork == nil {
		c.WallNetwork = map[ecs.EntityID]ecs.EntityID{}
	}
	if c.TurretNetwork == nil {
		c.TurretNetwork = map[ecs.EntityID]ecs.EntityID{}
	}
	if c.NetworkAmmo == nil {
		c.NetworkAmmo = map[ecs.EntityID]int{}
	}
}

// Networks returns the distinct network IDs in ascending order.
func (c *CombatState) Networks() []ecs.EntityID {
	return SortedIDs(c.NetworkAmmo)
}

// NetworkTurrets returns turrets attached to a network in ID order.
func (c *CombatState) NetworkTurrets(network ecs.EntityID) []ecs.EntityID {
	var out []ecs.EntityID
	for _, id := range SortedIDs(c.TurretNetwork) {
		if c.TurretNetwork[id] == network {
			out = append(out, id)
		}
	}
	return out
}
