package world

// SpawnSource records why an enemy was queued.
type SpawnSource string

const (
	SpawnWave    SpawnSource = "wave"
	SpawnRaid    SpawnSource = "raid"
	SpawnTrickle SpawnSource = "trickle"
)

// PendingSpawn is one queued enemy waiting for a spawn slot.
type PendingSpawn struct {
	Archetype string      `json:"archetype"`
	Y         int         `json:"y"`
	Source    SpawnSource `json:"source"`
}

type ThreatTelemetry struct {
	WavesStarted   int `json:"waves_started"`
	WavesCompleted int `json:"waves_completed"`
	RaidsTriggered int `json:"raids_triggered"`
	EnemiesSpawned int `json:"enemies_spawned"`
	TrickleSpawns  int `json:"trickle_spawns"`
	BaseHits       int `json:"base_hits"`
	BreachHits     int `json:"breach_hits"`
}

// ThreatState drives the wave cycle and raids.
// IsWaveActive is true exactly when WaveEndsAtTick is non-zero.
type ThreatState struct {
	WaveIndex         int             `json:"wave_index"`
	NextWaveTick      uint64          `json:"next_wave_tick"`
	IsWaveActive      bool            `json:"is_wave_active"`
	WaveEndsAtTick    uint64          `json:"wave_ends_at_tick"`
	GraceEndsAtTick   uint64          `json:"grace_ends_at_tick"`
	NextTrickleTick   uint64          `json:"next_trickle_tick"`
	RaidCooldownUntil uint64          `json:"raid_cooldown_until"`
	PendingSpawns     []PendingSpawn  `json:"pending_spawns"`
	RNGCursor         uint64          `json:"rng_cursor"`
	Telemetry         ThreatTelemetry `json:"telemetry"`
}

// StartWave flips the cycle to active until endsAt.
func (t *ThreatState) StartWave(endsAt uint64) {
	t.WaveIndex++
	t.IsWaveActive = true
	t.WaveEndsAtTick = endsAt
	t.Telemetry.WavesStarted++
}

// EndWave flips the cycle to inactive and schedules the next wave.
func (t *ThreatState) EndWave(next uint64) {
	t.IsWaveActive = false
	t.WaveEndsAtTick = 0
	t.NextWaveTick = next
	t.Telemetry.WavesCompleted++
}
