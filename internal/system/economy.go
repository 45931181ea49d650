package system

import (
	"github.com/ironforge/outpost/internal/core/ecs"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

// EconomySystem runs power, mining, carriers, buffer drains, production and
// income. All arithmetic is integer permille.
type EconomySystem struct{}

func (EconomySystem) Phase() coresys.Phase { return coresys.PhaseEconomy }

func (s EconomySystem) Update(ctx *Context) {
	w := ctx.World
	eco := &w.Economy
	s.power(ctx)

	eco.StarvedInputs = map[ecs.EntityID]string{}
	clear(eco.LastRuns)
	// Every stage runs at least once a tick when its inputs allow it, even
	// with no power.
	s.mine(ctx)
	s.carry(ctx)
	s.drain(ctx)
	s.runPinned(ctx)
	s.runAggregate(ctx)

	if w.Threat.IsWaveActive {
		eco.Currency += w.Rules.IncomePerActiveTick
	}
	eco.RecomputeInventory()
}

// power derives power, efficiency, logistics throughput and storage
// capacity from structure counts.
func (EconomySystem) power(ctx *Context) {
	w := ctx.World
	eco := &w.Economy
	counts := w.Entities.StructureCounts()

	available, demand, carriers := 0, 0, 0
	for _, e := range w.Entities.OfCategory(world.CategoryStructure) {
		spec := ctx.Catalog.Structure(e.StructureType)
		if spec == nil {
			continue
		}
		if spec.Generator {
			available += w.Rules.GeneratorOutput
		}
		demand += spec.PowerDraw
		if spec.Carrier {
			carriers++
		}
	}
	eco.PowerAvailable = available
	eco.PowerDemand = demand

	eff := 1000
	if demand > 0 {
		eff = min(1000, available*1000/demand)
	}
	boost := carriers*w.Rules.ConveyorBoostPermille + counts[data.StructureStorage]*w.Rules.StorageBoostPermille
	logistics := 1000 + min(w.Rules.LogisticsCapPermille, boost)

	eco.EfficiencyPermille = eff
	eco.ThroughputPermille = eff * logistics / 1000
	eco.StorageCapacity = w.Rules.StorageBaseCapacity + counts[data.StructureStorage]*w.Rules.StoragePerUnit
}

// mine moves ore from bound patches into miner output buffers.
func (EconomySystem) mine(ctx *Context) {
	w := ctx.World
	eco := &w.Economy
	for _, m := range w.Entities.Structures(data.StructureMiner) {
		spec := ctx.Catalog.Structure(m.StructureType)
		if spec == nil || spec.Miner == nil {
			continue
		}
		patch := w.Ore.PatchForMiner(m.ID)
		if patch == nil || !patch.Usable() {
			if patch != nil && patch.Exhausted() {
				patch.BoundMinerID = 0
			}
			patch = w.BindMiner(m, 0)
		}
		if patch == nil {
			continue
		}
		out := eco.OutputBuffer(m.ID)
		room := spec.OutputBufferCap - out.Total()
		amount := min(max(1, spec.Miner.Rate*eco.ThroughputPermille/1000), patch.RemainingOre, room)
		if amount <= 0 {
			continue
		}
		patch.RemainingOre -= amount
		out.Add(data.ItemOre, amount)
	}
}

// carry advances every carrier payload. A carrier picks up one unit from
// the structure behind its input side, travels ConveyorTransitTicks and
// hands off to whatever sits on its output side.
func (s EconomySystem) carry(ctx *Context) {
	w := ctx.World
	eco := &w.Economy
	occ := world.BuildOccupancy(&w.Entities)
	for _, id := range world.SortedIDs(eco.Conveyors) {
		e := w.Entities.Entity(id)
		if e == nil {
			continue
		}
		slot := eco.Conveyors[id]
		io := eco.ConveyorIO[id]
		cell := e.Position.Cell()

		if slot.Empty() {
			for _, d := range intakeSides(e, io) {
				if item := s.pickUp(ctx, occ, cell.Step(d), id); item != "" {
					slot = world.ConveyorSlot{Item: item, Count: 1}
					break
				}
			}
			eco.Conveyors[id] = slot
			continue
		}

		if slot.ProgressTicks < w.Rules.ConveyorTransitTicks {
			slot.ProgressTicks++
			eco.Conveyors[id] = slot
			continue
		}
		delivered := false
		for _, d := range outputSides(e, io) {
			if s.deliver(ctx, occ, cell.Step(d), id, slot) {
				delivered = true
				break
			}
		}
		if delivered {
			slot = world.ConveyorSlot{}
		} else {
			slot.StalledTicks++
		}
		eco.Conveyors[id] = slot
	}
}

// intakeSides lists the sides a carrier pulls from; mergers also take
// from both flanks.
func intakeSides(e *world.Entity, io world.ConveyorIO) []world.Direction {
	if e.StructureType == data.StructureMerger {
		return []world.Direction{io.Input, io.Input.Clockwise(), io.Input.Opposite().Clockwise()}
	}
	return []world.Direction{io.Input}
}

// outputSides lists the sides a carrier delivers to in preference order;
// splitters fall back to their flanks.
func outputSides(e *world.Entity, io world.ConveyorIO) []world.Direction {
	if e.StructureType == data.StructureSplitter {
		return []world.Direction{io.Output, io.Output.Clockwise(), io.Output.Opposite().Clockwise()}
	}
	return []world.Direction{io.Output}
}

// structureAt returns the first structure covering c other than self.
func structureAt(ctx *Context, occ *world.Occupancy, c world.Cell, self ecs.EntityID) *world.Entity {
	for _, id := range occ.At(c) {
		if id == self {
			continue
		}
		if e := ctx.World.Entities.Entity(id); e != nil && e.Category == world.CategoryStructure {
			return e
		}
	}
	return nil
}

func (EconomySystem) pickUp(ctx *Context, occ *world.Occupancy, c world.Cell, self ecs.EntityID) string {
	src := structureAt(ctx, occ, c, self)
	if src == nil {
		return ""
	}
	out, ok := ctx.World.Economy.OutputBuffers[src.ID]
	if !ok {
		return ""
	}
	for _, item := range out.Items() {
		if out.Take(item, 1) == 1 {
			return item
		}
	}
	return ""
}

// deliver hands a finished payload to the next carrier, to shared storage
// (HQ or storage), or to a producer input buffer with room.
func (EconomySystem) deliver(ctx *Context, occ *world.Occupancy, c world.Cell, self ecs.EntityID, slot world.ConveyorSlot) bool {
	w := ctx.World
	eco := &w.Economy
	dst := structureAt(ctx, occ, c, self)
	if dst == nil {
		return false
	}
	spec := ctx.Catalog.Structure(dst.StructureType)
	if spec == nil {
		return false
	}
	switch {
	case spec.Carrier:
		next := eco.Conveyors[dst.ID]
		if !next.Empty() {
			return false
		}
		eco.Conveyors[dst.ID] = world.ConveyorSlot{Item: slot.Item, Count: slot.Count}
		return true
	case dst.StructureType == data.StructureHQ || dst.StructureType == data.StructureStorage:
		if eco.StorageFree(slot.Item) < slot.Count {
			return false
		}
		eco.Storage.Add(slot.Item, slot.Count)
		return true
	case spec.InputBufferCap > 0:
		in := eco.InputBuffer(dst.ID)
		if in.Total()+slot.Count > spec.InputBufferCap {
			return false
		}
		in.Add(slot.Item, slot.Count)
		return true
	}
	return false
}

// drain moves output buffers into shared storage at DrainPerTick per item.
func (EconomySystem) drain(ctx *Context) {
	eco := &ctx.World.Economy
	for _, id := range world.SortedIDs(eco.OutputBuffers) {
		out := eco.OutputBuffers[id]
		for _, item := range out.Items() {
			n := min(ctx.World.Rules.DrainPerTick, out[item], eco.StorageFree(item))
			eco.Storage.Add(item, out.Take(item, n))
		}
	}
}

// runPinned runs each pinned producer on its own: inputs from its input
// buffer then storage, outputs into its output buffer.
func (EconomySystem) runPinned(ctx *Context) {
	w := ctx.World
	eco := &w.Economy
	rate := max(1, eco.ThroughputPermille/1000)
	for _, id := range world.SortedIDs(eco.PinnedRecipe) {
		e := w.Entities.Entity(id)
		r := ctx.Catalog.Recipe(eco.PinnedRecipe[id])
		if e == nil || r == nil {
			continue
		}
		spec := ctx.Catalog.Structure(e.StructureType)
		in := eco.InputBuffer(id)
		out := eco.OutputBuffer(id)

		runs := rate
		for _, iq := range r.Inputs {
			have := in[iq.Item] + eco.Storage[iq.Item]
			if have/iq.Qty < runs {
				runs = have / iq.Qty
			}
			if have < iq.Qty {
				if _, noted := eco.StarvedInputs[id]; !noted {
					eco.StarvedInputs[id] = iq.Item
				}
			}
		}
		if spec != nil && spec.OutputBufferCap > 0 {
			for _, oq := range r.Outputs {
				room := spec.OutputBufferCap - out.Total()
				runs = min(runs, room/oq.Qty)
			}
		}
		if runs <= 0 {
			continue
		}
		for _, iq := range r.Inputs {
			need := iq.Qty * runs
			need -= in.Take(iq.Item, need)
			eco.Storage.Take(iq.Item, need)
		}
		for _, oq := range r.Outputs {
			out.Add(oq.Item, oq.Qty*runs)
		}
		eco.LastRuns[r.ID] += runs
	}
}

// runAggregate runs every recipe in catalog order over the unpinned
// producers whose active recipe it is. The run budget is
// count × throughput permille plus the remainder carried from earlier
// ticks; at least one run is attempted whenever a producer exists.
func (EconomySystem) runAggregate(ctx *Context) {
	w := ctx.World
	eco := &w.Economy
	for _, r := range ctx.Catalog.Recipes() {
		var producers []*world.Entity
		for _, e := range w.Entities.Structures(r.Producer) {
			if _, pinned := eco.PinnedRecipe[e.ID]; pinned {
				continue
			}
			if eco.ActiveRecipe[e.ID] == r.ID {
				producers = append(producers, e)
			}
		}
		if len(producers) == 0 {
			delete(eco.FractionalProductionRemainders, r.ID)
			continue
		}

		budget := len(producers)*eco.ThroughputPermille + eco.FractionalProductionRemainders[r.ID]
		rate, carry := budget/1000, budget%1000
		if rate < 1 {
			rate, carry = 1, 0
		}

		runs := rate
		for _, iq := range r.Inputs {
			have := eco.Storage[iq.Item]
			for _, p := range producers {
				have += eco.InputBuffers[p.ID][iq.Item]
			}
			runs = min(runs, have/iq.Qty)
		}
		for _, oq := range r.Outputs {
			runs = min(runs, eco.StorageFree(oq.Item)/oq.Qty)
		}
		if runs < rate {
			carry = 0
		}
		eco.FractionalProductionRemainders[r.ID] = carry
		if runs <= 0 {
			continue
		}
		eco.LastRuns[r.ID] += runs

		for _, iq := range r.Inputs {
			need := iq.Qty * runs
			for _, p := range producers {
				if need == 0 {
					break
				}
				if in, ok := eco.InputBuffers[p.ID]; ok {
					need -= in.Take(iq.Item, need)
				}
			}
			eco.Storage.Take(iq.Item, need)
		}
		for _, oq := range r.Outputs {
			eco.Storage.Add(oq.Item, oq.Qty*runs)
		}
	}
}
