package world

import "github.com/ironforge/outpost/internal/core/ecs"

// BottleneckKind names a detected impairment.
type BottleneckKind string

const (
	BottleneckPowerDeficit  BottleneckKind = "power_deficit"
	BottleneckAmmoDryFire   BottleneckKind = "ammo_dry_fire"
	BottleneckUnderfedWall  BottleneckKind = "underfed_wall_network"
	BottleneckSpawnBacklog  BottleneckKind = "high_spawn_backlog"
	BottleneckInputStarved  BottleneckKind = "input_starved"
	BottleneckOutputFull    BottleneckKind = "output_buffer_full"
	BottleneckMinerNoOre    BottleneckKind = "miner_without_ore"
	BottleneckConveyorStall BottleneckKind = "conveyor_stalled"
)

// BottleneckPriority orders kinds from most to least urgent.
var BottleneckPriority = map[BottleneckKind]int{
	BottleneckPowerDeficit:  0,
	BottleneckAmmoDryFire:   1,
	BottleneckUnderfedWall:  2,
	BottleneckSpawnBacklog:  3,
	BottleneckInputStarved:  4,
	BottleneckOutputFull:    5,
	BottleneckMinerNoOre:    6,
	BottleneckConveyorStall: 7,
}

type BottleneckScope string

const (
	ScopeGlobal    BottleneckScope = "global"
	ScopeStructure BottleneckScope = "structure"
	ScopeNetwork   BottleneckScope = "network"
)

// BottleneckSignal is an active, hysteresis-confirmed impairment.
type BottleneckSignal struct {
	Key       string          `json:"key"`
	Kind      BottleneckKind  `json:"kind"`
	Scope     BottleneckScope `json:"scope"`
	Severity  int             `json:"severity"`
	FirstTick uint64          `json:"first_tick"`
	LastTick  uint64          `json:"last_tick"`
	EntityID  ecs.EntityID    `json:"entity_id,omitempty"`
	NetworkID ecs.EntityID    `json:"network_id,omitempty"`
	ItemID    string          `json:"item_id,omitempty"`
	Detail    string          `json:"detail,omitempty"`
}

// Hysteresis counts consecutive ticks a raw condition held or cleared.
type Hysteresis struct {
	MetTicks     int    `json:"met_ticks"`
	ClearedTicks int    `json:"cleared_ticks"`
	IsActive     bool   `json:"is_active"`
	FirstTick    uint64 `json:"first_tick"`
}

type BottleneckState struct {
	Signals    []BottleneckSignal    `json:"signals"`
	Hysteresis map[string]Hysteresis `json:"hysteresis"`
}

func NewBottleneckState() BottleneckState {
	return BottleneckState{Hysteresis: map[string]Hysteresis{}}
}

// Active reports whether a signal key is currently active.
func (b *BottleneckState) Active(key string) bool {
	return b.Hysteresis[key].IsActive
}

// Signal returns the active signal with the given key, or nil.
func (b *BottleneckState) Signal(key string) *BottleneckSignal {
	for i := range b.Signals {
		if b.Signals[i].Key == key {
			return &b.Signals[i]
		}
	}
	return nil
}
