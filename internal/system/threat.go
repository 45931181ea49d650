package system

import (
	"strconv"

	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/mathx"
	"github.com/ironforge/outpost/internal/world"
)

// ThreatSystem drives the wave cycle, trickle spawns, raids and the spawn
// queue.
type ThreatSystem struct{}

func (ThreatSystem) Phase() coresys.Phase { return coresys.PhaseThreat }

func (s ThreatSystem) Update(ctx *Context) {
	w := ctx.World
	if w.Run.Phase == world.PhaseInitializing {
		w.Run.Phase = world.PhaseGracePeriod
		if w.Run.Once("run_started") {
			ctx.Emit(event.Event{Kind: event.RunStarted, Entity: w.Run.HQ, Detail: w.Run.Difficulty})
		}
	}
	s.waveCycle(ctx)
	s.trickle(ctx)
	s.raid(ctx)
	s.drainSpawns(ctx)
}

func (s ThreatSystem) waveCycle(ctx *Context) {
	w := ctx.World
	t := &w.Threat
	rules := &w.Rules
	if t.IsWaveActive {
		if ctx.Tick < t.WaveEndsAtTick {
			return
		}
		t.EndWave(ctx.Tick + uint64(rules.WaveIntervalTicks))
		ctx.Emit(event.Event{Kind: event.WaveEnded, Value: t.WaveIndex})
		if rules.MilestoneEvery > 0 && t.WaveIndex%rules.MilestoneEvery == 0 {
			reward := max(0, ctx.Tuning.MilestoneReward(t.WaveIndex, w.Run.Difficulty))
			w.Economy.Currency += reward
			ctx.Emit(event.Event{Kind: event.MilestoneReached, Value: t.WaveIndex, Detail: plural(reward, "credit", "credits")})
		}
		return
	}
	if ctx.Tick < t.NextWaveTick {
		return
	}
	t.StartWave(ctx.Tick + uint64(rules.WaveDurationTicks))
	if w.Run.Phase == world.PhaseGracePeriod {
		w.Run.Phase = world.PhasePlaying
	}
	n := max(0, ctx.Tuning.WaveBatchSize(t.WaveIndex, w.Run.Difficulty))
	for i := 0; i < n; i++ {
		s.queue(w, archetypeFor(t.WaveIndex, i), i, world.SpawnWave)
	}
	ctx.Emit(event.Event{Kind: event.WaveStarted, Value: t.WaveIndex, Detail: plural(n, "enemy", "enemies")})
}

// trickle queues a lone grunt at a fixed cadence between waves once the
// grace period is over.
func (s ThreatSystem) trickle(ctx *Context) {
	w := ctx.World
	t := &w.Threat
	every := w.Rules.TrickleEveryTicks
	if every <= 0 || t.IsWaveActive || ctx.Tick < t.GraceEndsAtTick || ctx.Tick < t.NextTrickleTick {
		return
	}
	s.queue(w, "grunt", t.Telemetry.TrickleSpawns, world.SpawnTrickle)
	t.Telemetry.TrickleSpawns++
	t.NextTrickleTick = ctx.Tick + uint64(every)
}

// raid rolls once per tick after grace and cooldown. A roll under the
// threshold damages the base and queues a raid batch.
func (s ThreatSystem) raid(ctx *Context) {
	w := ctx.World
	t := &w.Threat
	if ctx.Tick < t.GraceEndsAtTick || ctx.Tick < t.RaidCooldownUntil {
		return
	}
	t.RNGCursor++
	roll := int(mathx.Mix(w.Run.Seed, mathx.TagRaid, int64(ctx.Tick), int64(t.WaveIndex)) % uint64(w.Rules.RaidModulus))
	if roll >= w.Rules.RaidThreshold {
		return
	}
	n := max(0, ctx.Tuning.RaidBatchSize(t.WaveIndex, w.Run.Difficulty))
	t.Telemetry.RaidsTriggered++
	t.RaidCooldownUntil = ctx.Tick + uint64(w.Rules.RaidCooldownTicks)
	ctx.Emit(event.Event{Kind: event.RaidTriggered, Value: n, Detail: "roll=" + strconv.Itoa(roll)})
	damageBase(ctx, w.Rules.RaidBaseDamage)
	for i := 0; i < n; i++ {
		s.queue(w, archetypeFor(t.WaveIndex, i), i, world.SpawnRaid)
	}
}

func (ThreatSystem) queue(w *world.State, archetype string, index int, src world.SpawnSource) {
	w.Threat.PendingSpawns = append(w.Threat.PendingSpawns, world.PendingSpawn{
		Archetype: archetype,
		Y:         spawnY(&w.Board, w.Threat.WaveIndex, index),
		Source:    src,
	})
}

// drainSpawns turns at most SpawnPerTick queued spawns into enemies.
func (ThreatSystem) drainSpawns(ctx *Context) {
	w := ctx.World
	t := &w.Threat
	if w.Run.Phase == world.PhaseGameOver {
		return
	}
	n := min(w.Rules.SpawnPerTick, len(t.PendingSpawns))
	for _, ps := range t.PendingSpawns[:n] {
		arch := ctx.Catalog.Enemy(ps.Archetype)
		if arch == nil {
			continue
		}
		cell := world.Cell{X: w.Board.SpawnX, Y: ps.Y}
		e := w.Entities.SpawnEnemy(w.Board.Snap(cell), arch.Health)
		w.Combat.Enemies.Set(e.ID, &world.EnemyRuntime{
			Archetype:      arch.Archetype,
			MoveEveryTicks: arch.MoveEveryTicks,
			Damage:         arch.Damage,
			Reward:         arch.Reward,
		})
		t.Telemetry.EnemiesSpawned++
		ctx.Emit(event.Event{Kind: event.EnemySpawned, Entity: e.ID, Detail: arch.Archetype})
	}
	t.PendingSpawns = append([]world.PendingSpawn(nil), t.PendingSpawns[n:]...)
}

// spawnY spreads a batch over the spawn column without randomness.
func spawnY(b *world.Board, wave, index int) int {
	span := b.SpawnSpan()
	if span <= 0 {
		return b.SpawnYMin
	}
	return b.SpawnYMin + mathx.Mod(wave*7+index*5, span)
}

// archetypeFor picks the enemy kind of the index-th spawn of a wave.
func archetypeFor(wave, index int) string {
	switch {
	case wave >= 3 && (index+1)%5 == 0:
		return "brute"
	case wave >= 2 && (index+1)%3 == 0:
		return "runner"
	}
	return "grunt"
}
