package system

import (
	"testing"

	"github.com/ironforge/outpost/internal/core/event"
	"github.com/ironforge/outpost/internal/world"
)

func TestThreat_FirstTickEntersGrace(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "normal", Seed: 0})
	events := h.step()
	if h.w.Run.Phase != world.PhaseGracePeriod {
		t.Fatalf("phase = %s", h.w.Run.Phase)
	}
	if n := len(findEvents(events, event.RunStarted)); n != 1 {
		t.Fatalf("run_started events = %d", n)
	}
	if n := len(findEvents(h.step(), event.RunStarted)); n != 0 {
		t.Fatalf("run_started emitted again")
	}
}

func TestThreat_WaveStartsAtNextWaveTick(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "normal", Seed: 0})
	next := h.w.Threat.NextWaveTick
	for h.w.Tick < next {
		h.step()
	}
	if h.w.Threat.IsWaveActive {
		t.Fatal("wave active before next wave tick")
	}
	enemies := len(h.w.Entities.OfCategory(world.CategoryEnemy))

	events := h.step()

	if !h.w.Threat.IsWaveActive || h.w.Threat.WaveIndex != 1 {
		t.Fatalf("threat = %+v", h.w.Threat)
	}
	if h.w.Run.Phase != world.PhasePlaying {
		t.Fatalf("phase = %s", h.w.Run.Phase)
	}
	if got := len(h.w.Entities.OfCategory(world.CategoryEnemy)); got <= enemies {
		t.Fatalf("enemies %d -> %d", enemies, got)
	}
	started := findEvents(events, event.WaveStarted)
	if len(started) != 1 || started[0].Value != h.w.Threat.WaveIndex {
		t.Fatalf("wave_started = %+v", started)
	}
	if h.w.Threat.WaveEndsAtTick != next+uint64(h.w.Rules.WaveDurationTicks) {
		t.Fatalf("wave ends at %d", h.w.Threat.WaveEndsAtTick)
	}
}

func TestThreat_SpawnQueueDrainsAtRate(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "normal", Seed: 0})
	h.w.Threat.NextWaveTick = 1
	h.step()
	events := h.step()

	batch := DefaultTuning{}.WaveBatchSize(1, "normal")
	perTick := h.w.Rules.SpawnPerTick
	if n := len(findEvents(events, event.EnemySpawned)); n != min(batch, perTick) {
		t.Fatalf("spawned %d on the first wave tick", n)
	}
	if got := len(h.w.Threat.PendingSpawns); got != max(0, batch-perTick) {
		t.Fatalf("pending = %d", got)
	}
	for i := 0; i < batch; i++ {
		h.step()
	}
	if len(h.w.Threat.PendingSpawns) != 0 || h.w.Threat.Telemetry.EnemiesSpawned != batch {
		t.Fatalf("telemetry = %+v pending = %d", h.w.Threat.Telemetry, len(h.w.Threat.PendingSpawns))
	}
	for _, e := range h.w.Entities.OfCategory(world.CategoryEnemy) {
		if !h.w.Combat.Enemies.Has(e.ID) {
			t.Fatalf("enemy %d has no runtime", e.ID)
		}
	}
}

func TestThreat_WaveEndsAndReschedules(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 0})
	h.w.Threat.NextWaveTick = 1
	h.run(2)
	end := h.w.Threat.WaveEndsAtTick
	var events []event.Event
	for h.w.Tick <= end {
		events = append(events, h.step()...)
	}
	ended := findEvents(events, event.WaveEnded)
	if len(ended) != 1 || ended[0].Value != 1 || ended[0].Tick != end {
		t.Fatalf("wave_ended = %+v", ended)
	}
	if h.w.Threat.IsWaveActive || h.w.Threat.WaveEndsAtTick != 0 {
		t.Fatalf("threat = %+v", h.w.Threat)
	}
	if h.w.Threat.NextWaveTick != end+uint64(h.w.Rules.WaveIntervalTicks) {
		t.Fatalf("next wave = %d", h.w.Threat.NextWaveTick)
	}
}

func TestArchetypeFor(t *testing.T) {
	tests := []struct {
		wave, index int
		want        string
	}{
		{1, 2, "grunt"},
		{2, 2, "runner"},
		{2, 4, "grunt"},
		{3, 4, "brute"},
		{3, 14, "brute"},
		{3, 5, "runner"},
	}
	for _, tt := range tests {
		if got := archetypeFor(tt.wave, tt.index); got != tt.want {
			t.Fatalf("archetypeFor(%d,%d) = %s, want %s", tt.wave, tt.index, got, tt.want)
		}
	}
}

func TestThreat_RaidRollCooldownAndGrace(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 5, Board: pinchBoard()})
	h.w.Rules.RaidThreshold = h.w.Rules.RaidModulus // every roll hits
	h.w.Rules.RaidCooldownTicks = 50
	h.w.Threat.GraceEndsAtTick = 10
	h.w.Threat.NextWaveTick = 1 << 40

	if n := len(findEvents(h.run(10), event.RaidTriggered)); n != 0 {
		t.Fatalf("raids during grace = %d", n)
	}

	before := h.w.BaseIntegrity()
	raids := findEvents(h.step(), event.RaidTriggered)
	if len(raids) != 1 {
		t.Fatalf("raids at grace end = %d", len(raids))
	}
	want := DefaultTuning{}.RaidBatchSize(0, "easy")
	if raids[0].Value != want {
		t.Fatalf("raid batch = %d, want %d", raids[0].Value, want)
	}
	if got := h.w.BaseIntegrity(); got != before-h.w.Rules.RaidBaseDamage {
		t.Fatalf("integrity = %d, want %d", got, before-h.w.Rules.RaidBaseDamage)
	}
	th := &h.w.Threat
	if th.RaidCooldownUntil != 60 || th.Telemetry.RaidsTriggered != 1 {
		t.Fatalf("cooldown until %d, raids %d", th.RaidCooldownUntil, th.Telemetry.RaidsTriggered)
	}
	if got := th.Telemetry.EnemiesSpawned + len(th.PendingSpawns); got != want {
		t.Fatalf("spawned+queued = %d, want %d", got, want)
	}
	for _, ps := range th.PendingSpawns {
		if ps.Source != world.SpawnRaid {
			t.Fatalf("queued source = %s", ps.Source)
		}
	}

	if n := len(findEvents(h.run(49), event.RaidTriggered)); n != 0 {
		t.Fatalf("raids during cooldown = %d", n)
	}
	if n := len(findEvents(h.step(), event.RaidTriggered)); n != 1 {
		t.Fatalf("raids after cooldown = %d", n)
	}
	if th.RaidCooldownUntil != 110 {
		t.Fatalf("cooldown until %d, want 110", th.RaidCooldownUntil)
	}
}

func TestThreat_RaidMissesAboveThreshold(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 5, Board: pinchBoard()})
	h.w.Rules.RaidThreshold = 0
	h.w.Threat.GraceEndsAtTick = 0
	h.w.Threat.NextWaveTick = 1 << 40

	if n := len(findEvents(h.run(100), event.RaidTriggered)); n != 0 {
		t.Fatalf("raids with zero threshold = %d", n)
	}
	if h.w.Threat.RNGCursor != 100 {
		t.Fatalf("rng cursor = %d, want one roll per tick", h.w.Threat.RNGCursor)
	}
}

func TestSpawnY(t *testing.T) {
	b := pinchBoard() // spawn rows 1..3
	tests := []struct {
		wave, index int
		want        int
	}{
		{0, 0, 1},
		{0, 1, 3},
		{0, 2, 2},
		{1, 0, 2},
		{2, 3, 3},
		{4, 7, 1},
	}
	for _, tt := range tests {
		if got := spawnY(b, tt.wave, tt.index); got != tt.want {
			t.Fatalf("spawnY(%d,%d) = %d, want %d", tt.wave, tt.index, got, tt.want)
		}
	}

	empty := &world.Board{SpawnYMin: 4, SpawnYMax: 2}
	if got := spawnY(empty, 3, 3); got != 4 {
		t.Fatalf("empty span spawnY = %d, want 4", got)
	}
}
