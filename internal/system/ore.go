package system

import (
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/mathx"
	"github.com/ironforge/outpost/internal/world"
)

// OreSystem handles patch exhaustion, survey completion and renewals
// between waves.
type OreSystem struct{}

func (OreSystem) Phase() coresys.Phase { return coresys.PhaseOre }

func (s OreSystem) Update(ctx *Context) {
	s.markExhausted(ctx)
	s.completeSurveys(ctx)
	s.renew(ctx)
}

// markExhausted flags drained patches and queues one renewal per patch.
func (OreSystem) markExhausted(ctx *Context) {
	ore := &ctx.World.Ore
	for _, p := range ore.Patches {
		if p.Exhausted() || p.RemainingOre > 0 {
			continue
		}
		tick := ctx.Tick
		p.ExhaustedAtTick = &tick
		miner := p.BoundMinerID
		p.BoundMinerID = 0
		ctx.Emit(event.Event{Kind: event.OrePatchExhausted, Entity: miner, Value: int(p.ID), ItemID: p.OreType})
		if p.RenewalProcessed {
			continue
		}
		p.RenewalProcessed = true
		ore.RenewalQueue = append(ore.RenewalQueue, world.RenewalRequest{
			PatchID:         p.ID,
			Ring:            p.Ring,
			OreType:         p.OreType,
			RequestedAtTick: tick,
		})
	}
}

// completeSurveys reveals rings whose survey ended. A survey whose research
// center is gone falls back to locked.
func (OreSystem) completeSurveys(ctx *Context) {
	w := ctx.World
	for i := range w.Ore.Rings {
		rs := &w.Ore.Rings[i]
		if rs.Visibility != world.RingSurveying || ctx.Tick < rs.SurveyEndsAtTick {
			continue
		}
		if !w.Entities.Exists(rs.ResearchCenterID) {
			rs.Visibility = world.RingLocked
			rs.SurveyEndsAtTick = 0
			rs.ResearchCenterID = 0
			continue
		}
		revealed := w.RevealRing(rs.Ring)
		ctx.Emit(event.Event{Kind: event.OreRingRevealed, Entity: rs.ResearchCenterID, Value: rs.Ring, Detail: plural(len(revealed), "patch", "patches")})
	}
}

// renew drains a capped batch of renewal requests once per wave gap.
func (OreSystem) renew(ctx *Context) {
	w := ctx.World
	ore := &w.Ore
	wave := w.Threat.WaveIndex
	if w.Threat.IsWaveActive || wave == 0 || wave <= ore.LastRenewalWave {
		return
	}
	ore.LastRenewalWave = wave
	n := min(w.Rules.RenewalBatchCap, len(ore.RenewalQueue))
	batch := ore.RenewalQueue[:n]
	ore.RenewalQueue = append([]world.RenewalRequest(nil), ore.RenewalQueue[n:]...)

	for _, req := range batch {
		roll := mathx.Mix(w.Run.Seed, mathx.TagOreSkip, int64(wave), int64(req.PatchID)) % 100
		if int(roll) < w.Rules.RenewalSkipPercent {
			ore.RenewalsSkipped++
			ctx.Emit(event.Event{Kind: event.OreRenewalSkipped, Value: int(req.PatchID), ItemID: req.OreType, Detail: "policy"})
			continue
		}
		p := w.PlaceRenewal(req, wave)
		if p == nil {
			ore.RenewalsSkipped++
			ctx.Emit(event.Event{Kind: event.OreRenewalSkipped, Value: int(req.PatchID), ItemID: req.OreType, Detail: "no_room"})
			continue
		}
		ore.RenewalsSpawned++
		ctx.Emit(event.Event{Kind: event.OrePatchRenewed, Value: int(p.ID), ItemID: p.OreType})
	}
}
