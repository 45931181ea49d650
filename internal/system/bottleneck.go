package system

import (
	"fmt"
	"sort"

	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

// staleFactor × recovery threshold is how long a cleared, inactive
// hysteresis entry is kept before it is forgotten.
const staleFactor = 4

// BottleneckSystem turns raw per-tick conditions into hysteresis-gated
// signals.
type BottleneckSystem struct{}

func (BottleneckSystem) Phase() coresys.Phase { return coresys.PhaseDiagnose }

// rawCondition is one detector hit for the current tick.
type rawCondition struct {
	world.BottleneckSignal
}

type detector func(ctx *Context) []rawCondition

// detectors run in a fixed order; each may report several scopes.
var detectors = []detector{
	detectAmmoDryFire,
	detectInputStarved,
	detectOutputFull,
	detectPowerDeficit,
	detectMinerNoOre,
	detectConveyorStalled,
	detectUnderfedWall,
	detectSpawnBacklog,
}

func signalKey(kind world.BottleneckKind, id ecs.EntityID) string {
	if id == 0 {
		return string(kind)
	}
	return fmt.Sprintf("%s:%d", kind, id)
}

func (s BottleneckSystem) Update(ctx *Context) {
	w := ctx.World
	b := &w.Bottleneck
	rules := &w.Rules

	raw := make(map[string]rawCondition)
	for _, d := range detectors {
		for _, rc := range d(ctx) {
			raw[rc.Key] = rc
		}
	}

	keys := make([]string, 0, len(raw)+len(b.Hysteresis))
	for k := range raw {
		keys = append(keys, k)
	}
	for k := range b.Hysteresis {
		if _, ok := raw[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	prev := make(map[string]world.BottleneckSignal, len(b.Signals))
	for _, sig := range b.Signals {
		prev[sig.Key] = sig
	}
	var signals []world.BottleneckSignal

	for _, key := range keys {
		h := b.Hysteresis[key]
		rc, met := raw[key]
		if met {
			h.MetTicks++
			h.ClearedTicks = 0
			if !h.IsActive && h.MetTicks >= rules.ActivationThresholdTicks {
				h.IsActive = true
				h.FirstTick = ctx.Tick
				ctx.Emit(event.Event{Kind: event.BottleneckActivated, Entity: rc.EntityID, Value: rc.Severity, ItemID: rc.ItemID, Detail: key})
			}
		} else {
			h.ClearedTicks++
			h.MetTicks = 0
			if h.IsActive && h.ClearedTicks >= rules.RecoveryThresholdTicks {
				h.IsActive = false
				old := prev[key]
				ctx.Emit(event.Event{Kind: event.BottleneckDeactivated, Entity: old.EntityID, ItemID: old.ItemID, Detail: key})
			}
		}
		if !h.IsActive && !met && h.ClearedTicks >= staleFactor*rules.RecoveryThresholdTicks {
			delete(b.Hysteresis, key)
			continue
		}
		b.Hysteresis[key] = h
		if !h.IsActive {
			continue
		}
		var sig world.BottleneckSignal
		if met {
			sig = rc.BottleneckSignal
			sig.FirstTick = h.FirstTick
			sig.LastTick = ctx.Tick
		} else if p, ok := prev[key]; ok {
			sig = p
		} else {
			continue
		}
		if !referencesLive(w, sig) {
			delete(b.Hysteresis, key)
			continue
		}
		signals = append(signals, sig)
	}

	sort.SliceStable(signals, func(i, j int) bool {
		pi, pj := world.BottleneckPriority[signals[i].Kind], world.BottleneckPriority[signals[j].Kind]
		if pi != pj {
			return pi < pj
		}
		if signals[i].EntityID != signals[j].EntityID {
			return signals[i].EntityID < signals[j].EntityID
		}
		return signals[i].NetworkID < signals[j].NetworkID
	})
	b.Signals = signals
}

// referencesLive drops signals about structures or networks that are gone.
func referencesLive(w *world.State, sig world.BottleneckSignal) bool {
	if sig.EntityID != 0 && !w.Entities.Exists(sig.EntityID) {
		return false
	}
	if sig.NetworkID != 0 {
		if _, ok := w.Combat.NetworkAmmo[sig.NetworkID]; !ok {
			return false
		}
	}
	return true
}

func detectPowerDeficit(ctx *Context) []rawCondition {
	eco := &ctx.World.Economy
	if eco.PowerDemand <= eco.PowerAvailable {
		return nil
	}
	deficit := eco.PowerDemand - eco.PowerAvailable
	return []rawCondition{{world.BottleneckSignal{
		Key:      signalKey(world.BottleneckPowerDeficit, 0),
		Kind:     world.BottleneckPowerDeficit,
		Scope:    world.ScopeGlobal,
		Severity: deficit * 100 / eco.PowerDemand,
		Detail:   fmt.Sprintf("demand %d, available %d", eco.PowerDemand, eco.PowerAvailable),
	}}}
}

func detectAmmoDryFire(ctx *Context) []rawCondition {
	n := ctx.World.Combat.DryFiresThisTick
	if n == 0 {
		return nil
	}
	return []rawCondition{{world.BottleneckSignal{
		Key:      signalKey(world.BottleneckAmmoDryFire, 0),
		Kind:     world.BottleneckAmmoDryFire,
		Scope:    world.ScopeGlobal,
		Severity: n,
		ItemID:   data.ItemAmmo,
		Detail:   plural(n, "turret dry", "turrets dry"),
	}}}
}

func detectUnderfedWall(ctx *Context) []rawCondition {
	w := ctx.World
	c := &w.Combat
	var out []rawCondition
	for _, net := range c.Networks() {
		if len(c.NetworkTurrets(net)) == 0 {
			continue
		}
		ammo := c.NetworkAmmo[net]
		if ammo >= w.Rules.NetworkLowAmmo {
			continue
		}
		out = append(out, rawCondition{world.BottleneckSignal{
			Key:       signalKey(world.BottleneckUnderfedWall, net),
			Kind:      world.BottleneckUnderfedWall,
			Scope:     world.ScopeNetwork,
			Severity:  w.Rules.NetworkLowAmmo - ammo,
			NetworkID: net,
			ItemID:    data.ItemAmmo,
			Detail:    fmt.Sprintf("pool %d", ammo),
		}})
	}
	return out
}

func detectSpawnBacklog(ctx *Context) []rawCondition {
	w := ctx.World
	n := len(w.Threat.PendingSpawns)
	if w.Rules.SpawnBacklogThreshold <= 0 || n < w.Rules.SpawnBacklogThreshold {
		return nil
	}
	return []rawCondition{{world.BottleneckSignal{
		Key:      signalKey(world.BottleneckSpawnBacklog, 0),
		Kind:     world.BottleneckSpawnBacklog,
		Scope:    world.ScopeGlobal,
		Severity: n,
		Detail:   plural(n, "pending spawn", "pending spawns"),
	}}}
}

func detectInputStarved(ctx *Context) []rawCondition {
	eco := &ctx.World.Economy
	var out []rawCondition
	for _, id := range world.SortedIDs(eco.StarvedInputs) {
		item := eco.StarvedInputs[id]
		out = append(out, rawCondition{world.BottleneckSignal{
			Key:      signalKey(world.BottleneckInputStarved, id),
			Kind:     world.BottleneckInputStarved,
			Scope:    world.ScopeStructure,
			Severity: 1,
			EntityID: id,
			ItemID:   item,
			Detail:   eco.PinnedRecipe[id],
		}})
	}
	return out
}

func detectOutputFull(ctx *Context) []rawCondition {
	w := ctx.World
	eco := &w.Economy
	var out []rawCondition
	for _, id := range world.SortedIDs(eco.OutputBuffers) {
		e := w.Entities.Entity(id)
		if e == nil {
			continue
		}
		spec := ctx.Catalog.Structure(e.StructureType)
		if spec == nil || spec.OutputBufferCap <= 0 {
			continue
		}
		buf := eco.OutputBuffers[id]
		if buf.Total() < spec.OutputBufferCap {
			continue
		}
		item := ""
		if items := buf.Items(); len(items) > 0 {
			item = items[0]
		}
		out = append(out, rawCondition{world.BottleneckSignal{
			Key:      signalKey(world.BottleneckOutputFull, id),
			Kind:     world.BottleneckOutputFull,
			Scope:    world.ScopeStructure,
			Severity: buf.Total(),
			EntityID: id,
			ItemID:   item,
		}})
	}
	return out
}

func detectMinerNoOre(ctx *Context) []rawCondition {
	w := ctx.World
	var out []rawCondition
	for _, m := range w.Entities.Structures(data.StructureMiner) {
		if p := w.Ore.PatchForMiner(m.ID); p != nil && p.Usable() {
			continue
		}
		out = append(out, rawCondition{world.BottleneckSignal{
			Key:      signalKey(world.BottleneckMinerNoOre, m.ID),
			Kind:     world.BottleneckMinerNoOre,
			Scope:    world.ScopeStructure,
			Severity: 1,
			EntityID: m.ID,
			ItemID:   data.ItemOre,
		}})
	}
	return out
}

func detectConveyorStalled(ctx *Context) []rawCondition {
	w := ctx.World
	eco := &w.Economy
	limit := 2 * w.Rules.ConveyorTransitTicks
	var out []rawCondition
	for _, id := range world.SortedIDs(eco.Conveyors) {
		slot := eco.Conveyors[id]
		if slot.Empty() || slot.StalledTicks < limit {
			continue
		}
		out = append(out, rawCondition{world.BottleneckSignal{
			Key:      signalKey(world.BottleneckConveyorStall, id),
			Kind:     world.BottleneckConveyorStall,
			Scope:    world.ScopeStructure,
			Severity: slot.StalledTicks,
			EntityID: id,
			ItemID:   slot.Item,
		}})
	}
	return out
}
