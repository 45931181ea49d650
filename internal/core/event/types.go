package event

import "github.com/ironforge/outpost/internal/core/ecs"

// Kind is the stable wire name of an event.
type Kind string

const (
	PlacementRejected     Kind = "placement_rejected"
	RunStarted            Kind = "run_started"
	WaveStarted           Kind = "wave_started"
	WaveEnded             Kind = "wave_ended"
	MilestoneReached      Kind = "milestone_reached"
	RaidTriggered         Kind = "raid_triggered"
	EnemySpawned          Kind = "enemy_spawned"
	EnemyReachedBase      Kind = "enemy_reached_base"
	BaseDamaged           Kind = "base_damaged"
	BreachPressure        Kind = "breach_pressure"
	ProjectileFired       Kind = "projectile_fired"
	EnemyDestroyed        Kind = "enemy_destroyed"
	AmmoSpent             Kind = "ammo_spent"
	NotEnoughAmmo         Kind = "not_enough_ammo"
	OrePatchExhausted     Kind = "ore_patch_exhausted"
	OreRingRevealed       Kind = "ore_ring_revealed"
	OrePatchRenewed       Kind = "ore_patch_renewed"
	OreRenewalSkipped     Kind = "ore_renewal_skipped"
	BottleneckActivated   Kind = "bottleneck_activated"
	BottleneckDeactivated Kind = "bottleneck_deactivated"
	GameOver              Kind = "game_over"
	RunExtracted          Kind = "run_extracted"
)

// Event is one record emitted by a system during a tick.
// Optional fields are zero when absent; entity IDs start at 1.
type Event struct {
	Tick            uint64       `json:"tick"`
	Kind            Kind         `json:"kind"`
	Entity          ecs.EntityID `json:"entity,omitempty"`
	Value           int          `json:"value,omitempty"`
	ItemID          string       `json:"item,omitempty"`
	PlacementReason *int         `json:"placement_reason,omitempty"`
	Detail          string       `json:"detail,omitempty"`
}
