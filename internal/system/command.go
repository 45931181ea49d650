package system

import (
	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

// CommandSystem applies the tick's sorted commands. Only placeStructure
// reports failures; every other command with a bad reference is ignored.
type CommandSystem struct{}

func (CommandSystem) Phase() coresys.Phase { return coresys.PhaseCommand }

func (s CommandSystem) Update(ctx *Context) {
	for _, c := range ctx.Commands {
		switch p := c.Payload.(type) {
		case command.PlaceStructure:
			s.placeStructure(ctx, p)
		case command.RemoveStructure:
			s.removeStructure(ctx, p.EntityID)
		case command.PlaceConveyor:
			s.placeConveyor(ctx, p)
		case command.ConfigureConveyorIO:
			s.configureIO(ctx, p)
		case command.RotateBuilding:
			s.rotate(ctx, p.EntityID)
		case command.PinRecipe:
			s.pinRecipe(ctx, p)
		case command.StartOreSurvey:
			s.startSurvey(ctx, p)
		case command.TriggerWave:
			t := &ctx.World.Threat
			if !t.IsWaveActive && t.NextWaveTick > ctx.Tick {
				t.NextWaveTick = ctx.Tick
			}
		case command.Extract:
			if ctx.World.Run.Once("extracted") {
				ctx.World.Run.Extracted = true
				ctx.Emit(event.Event{Kind: event.RunExtracted, Value: ctx.World.Threat.WaveIndex})
			}
		}
	}
}

func (CommandSystem) placeStructure(ctx *Context, p command.PlaceStructure) {
	w := ctx.World
	res := world.CanPlace(w, ctx.Catalog, p.StructureType, p.Position)
	if res != world.PlacementOK {
		reason := int(res)
		ctx.Emit(event.Event{
			Kind:            event.PlacementRejected,
			PlacementReason: &reason,
			ItemID:          string(p.StructureType),
			Detail:          res.String(),
		})
		return
	}
	spec := ctx.Catalog.Structure(p.StructureType)
	e := w.Entities.SpawnStructure(spec, w.Board.Snap(p.Position), p.Rotation)
	var patch uint64
	if p.TargetPatchID != nil {
		patch = *p.TargetPatchID
	}
	initStructure(ctx, e, spec, patch)
}

// initStructure sets up the economy records a fresh structure needs.
func initStructure(ctx *Context, e *world.Entity, spec *data.StructureSpec, patch uint64) {
	eco := &ctx.World.Economy
	if spec.Miner != nil {
		ctx.World.BindMiner(e, patch)
	}
	if r := ctx.Catalog.DefaultRecipe(spec.Type); r != nil {
		eco.ActiveRecipe[e.ID] = r.ID
	}
	if spec.Carrier {
		eco.ConveyorIO[e.ID] = world.ConveyorIO{Input: e.Rotation.Opposite(), Output: e.Rotation}
		eco.Conveyors[e.ID] = world.ConveyorSlot{}
	}
}

func (CommandSystem) removeStructure(ctx *Context, id ecs.EntityID) {
	w := ctx.World
	e := w.Entities.Entity(id)
	if e == nil || e.Category != world.CategoryStructure || id == w.Run.HQ {
		return
	}
	w.Entities.Remove(id)
	w.Economy.ForgetStructure(id)
	if p := w.Ore.PatchForMiner(id); p != nil {
		p.BoundMinerID = 0
	}
}

func (CommandSystem) placeConveyor(ctx *Context, p command.PlaceConveyor) {
	w := ctx.World
	spec := ctx.Catalog.Structure(p.CarrierType())
	if spec == nil || !spec.Carrier {
		return
	}
	if world.CanPlace(w, ctx.Catalog, spec.Type, p.Position) != world.PlacementOK {
		return
	}
	e := w.Entities.SpawnStructure(spec, w.Board.Snap(p.Position), p.Direction)
	initStructure(ctx, e, spec, 0)
	io := w.Economy.ConveyorIO[e.ID]
	if p.Input != nil {
		io.Input = p.Input.Normalize()
	}
	if p.Output != nil {
		io.Output = p.Output.Normalize()
	}
	if io.Input != io.Output {
		w.Economy.ConveyorIO[e.ID] = io
	}
}

func carrierEntity(ctx *Context, id ecs.EntityID) *world.Entity {
	e := ctx.World.Entities.Entity(id)
	if e == nil || e.Category != world.CategoryStructure {
		return nil
	}
	if spec := ctx.Catalog.Structure(e.StructureType); spec == nil || !spec.Carrier {
		return nil
	}
	return e
}

func (CommandSystem) configureIO(ctx *Context, p command.ConfigureConveyorIO) {
	if carrierEntity(ctx, p.EntityID) == nil {
		return
	}
	in, out := p.Input.Normalize(), p.Output.Normalize()
	if in == out {
		return
	}
	ctx.World.Economy.ConveyorIO[p.EntityID] = world.ConveyorIO{Input: in, Output: out}
}

func (CommandSystem) rotate(ctx *Context, id ecs.EntityID) {
	w := ctx.World
	e := w.Entities.Entity(id)
	if e == nil || e.Category != world.CategoryStructure || id == w.Run.HQ {
		return
	}
	e.Rotation = e.Rotation.Clockwise()
	if io, ok := w.Economy.ConveyorIO[id]; ok {
		w.Economy.ConveyorIO[id] = world.ConveyorIO{Input: io.Input.Clockwise(), Output: io.Output.Clockwise()}
	}
}

func (CommandSystem) pinRecipe(ctx *Context, p command.PinRecipe) {
	w := ctx.World
	e := w.Entities.Entity(p.EntityID)
	if e == nil || e.Category != world.CategoryStructure {
		return
	}
	if p.RecipeID == "" {
		if _, pinned := w.Economy.PinnedRecipe[e.ID]; !pinned {
			return
		}
		delete(w.Economy.PinnedRecipe, e.ID)
		delete(w.Economy.StarvedInputs, e.ID)
		if r := ctx.Catalog.DefaultRecipe(e.StructureType); r != nil {
			w.Economy.ActiveRecipe[e.ID] = r.ID
		}
		return
	}
	r := ctx.Catalog.Recipe(p.RecipeID)
	if r == nil || r.Producer != e.StructureType {
		return
	}
	w.Economy.PinnedRecipe[e.ID] = r.ID
	w.Economy.ActiveRecipe[e.ID] = r.ID
}

// startSurvey moves a locked ring whose inner neighbour is revealed into
// surveying, owned by an idle research center.
func (CommandSystem) startSurvey(ctx *Context, p command.StartOreSurvey) {
	w := ctx.World
	rs := w.Ore.Ring(p.NodeID)
	if rs == nil || rs.Visibility != world.RingLocked {
		return
	}
	if prev := w.Ore.Ring(p.NodeID - 1); prev != nil && prev.Visibility != world.RingRevealed {
		return
	}
	center := w.Entities.Entity(p.ResearchCenterID)
	if center == nil || center.StructureType != data.StructureResearchCenter {
		return
	}
	for _, other := range w.Ore.Rings {
		if other.Visibility == world.RingSurveying && other.ResearchCenterID == center.ID {
			return
		}
	}
	rs.Visibility = world.RingSurveying
	rs.SurveyEndsAtTick = ctx.Tick + uint64(w.Rules.SurveyDurationTicks)
	rs.ResearchCenterID = center.ID
}
