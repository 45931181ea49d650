package data

import "fmt"

// Rules is the numeric tuning of one run. It is copied into the world state
// at bootstrap so a snapshot replays without the catalog it came from.
type Rules struct {
	BoardWidth  int `yaml:"board_width" json:"board_width"`
	BoardHeight int `yaml:"board_height" json:"board_height"`

	GraceTicks        int `yaml:"grace_ticks" json:"grace_ticks"`
	WaveIntervalTicks int `yaml:"wave_interval_ticks" json:"wave_interval_ticks"`
	WaveDurationTicks int `yaml:"wave_duration_ticks" json:"wave_duration_ticks"`
	MilestoneEvery    int `yaml:"milestone_every" json:"milestone_every"`
	SpawnPerTick      int `yaml:"spawn_per_tick" json:"spawn_per_tick"`
	TrickleEveryTicks int `yaml:"trickle_every_ticks" json:"trickle_every_ticks"` // 0 disables

	RaidCooldownTicks    int `yaml:"raid_cooldown_ticks" json:"raid_cooldown_ticks"`
	RaidModulus          int `yaml:"raid_modulus" json:"raid_modulus"`
	RaidThreshold        int `yaml:"raid_threshold" json:"raid_threshold"`
	RaidBaseDamage       int `yaml:"raid_base_damage" json:"raid_base_damage"`
	BreachPressureDamage int `yaml:"breach_pressure_damage" json:"breach_pressure_damage"`

	IncomePerActiveTick int       `yaml:"income_per_active_tick" json:"income_per_active_tick"`
	StartingCurrency    int       `yaml:"starting_currency" json:"starting_currency"`
	StartingStorage     []ItemQty `yaml:"starting_storage" json:"starting_storage"`
	StorageBaseCapacity int       `yaml:"storage_base_capacity" json:"storage_base_capacity"`
	StoragePerUnit      int       `yaml:"storage_per_unit" json:"storage_per_unit"`
	GeneratorOutput     int       `yaml:"generator_output" json:"generator_output"`
	DrainPerTick        int       `yaml:"drain_per_tick" json:"drain_per_tick"`

	ConveyorTransitTicks  int `yaml:"conveyor_transit_ticks" json:"conveyor_transit_ticks"`
	ConveyorBoostPermille int `yaml:"conveyor_boost_permille" json:"conveyor_boost_permille"`
	StorageBoostPermille  int `yaml:"storage_boost_permille" json:"storage_boost_permille"`
	LogisticsCapPermille  int `yaml:"logistics_cap_permille" json:"logistics_cap_permille"`

	NetworkAmmoCap       int `yaml:"network_ammo_cap" json:"network_ammo_cap"`
	NetworkRefillPerTick int `yaml:"network_refill_per_tick" json:"network_refill_per_tick"`
	NetworkLowAmmo       int `yaml:"network_low_ammo" json:"network_low_ammo"`

	OreMinSpacing       int   `yaml:"ore_min_spacing" json:"ore_min_spacing"`
	RingRadii           []int `yaml:"ring_radii" json:"ring_radii"` // outer Chebyshev radius per ring
	PatchesPerRing      []int `yaml:"patches_per_ring" json:"patches_per_ring"`
	OreBaseAmount       int   `yaml:"ore_base_amount" json:"ore_base_amount"`
	SurveyDurationTicks int   `yaml:"survey_duration_ticks" json:"survey_duration_ticks"`
	RenewalBatchCap     int   `yaml:"renewal_batch_cap" json:"renewal_batch_cap"`
	RenewalSkipPercent  int   `yaml:"renewal_skip_percent" json:"renewal_skip_percent"`

	ActivationThresholdTicks int `yaml:"activation_threshold_ticks" json:"activation_threshold_ticks"`
	RecoveryThresholdTicks   int `yaml:"recovery_threshold_ticks" json:"recovery_threshold_ticks"`
	SpawnBacklogThreshold    int `yaml:"spawn_backlog_threshold" json:"spawn_backlog_threshold"`
}

// Validate rejects rule sets the systems cannot run with.
func (r Rules) Validate() error {
	switch {
	case r.BoardWidth < 4 || r.BoardHeight < 4:
		return fmt.Errorf("board must be at least 4x4")
	case r.WaveDurationTicks < 1 || r.WaveIntervalTicks < 1:
		return fmt.Errorf("wave timings must be positive")
	case r.SpawnPerTick < 1:
		return fmt.Errorf("spawn_per_tick must be positive")
	case r.RaidModulus < 1:
		return fmt.Errorf("raid_modulus must be positive")
	case len(r.RingRadii) == 0 || len(r.RingRadii) != len(r.PatchesPerRing):
		return fmt.Errorf("ring_radii and patches_per_ring must be non-empty and the same length")
	case r.ActivationThresholdTicks < 1 || r.RecoveryThresholdTicks < 1:
		return fmt.Errorf("bottleneck thresholds must be positive")
	case r.ConveyorTransitTicks < 1:
		return fmt.Errorf("conveyor_transit_ticks must be positive")
	case r.RenewalSkipPercent < 0 || r.RenewalSkipPercent > 100:
		return fmt.Errorf("renewal_skip_percent must be within 0..100")
	}
	for i := 1; i < len(r.RingRadii); i++ {
		if r.RingRadii[i] <= r.RingRadii[i-1] {
			return fmt.Errorf("ring_radii must be strictly increasing")
		}
	}
	return nil
}

// RingOf returns the ring a Chebyshev distance from the base falls into,
// or -1 beyond the last ring.
func (r Rules) RingOf(dist int) int {
	for i, outer := range r.RingRadii {
		if dist <= outer {
			return i
		}
	}
	return -1
}

// RingBounds returns the inclusive Chebyshev distance range of a ring.
func (r Rules) RingBounds(ring int) (inner, outer int) {
	if ring < 0 || ring >= len(r.RingRadii) {
		return 0, -1
	}
	if ring > 0 {
		inner = r.RingRadii[ring-1] + 1
	}
	return inner, r.RingRadii[ring]
}
