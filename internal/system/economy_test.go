package system

import (
	"testing"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

const (
	structSmelter     data.StructureType = "smelter"
	structAmmoFactory data.StructureType = "ammo_factory"
)

// The generated board keeps every cell within three of the base clear, so
// these spots are always buildable. The base sits at (3, height/2).
func nearBase(h *harness, dx, dy int) (int, int) {
	b := h.w.Board.Base
	return b.X + dx, b.Y + dy
}

func TestEconomy_PowerAndEfficiency(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	x, y := nearBase(h, 2, -3)
	h.place(data.StructureTurret, x, y)

	eco := &h.w.Economy
	if eco.PowerAvailable != 0 || eco.PowerDemand != 1 || eco.EfficiencyPermille != 0 {
		t.Fatalf("power = %d/%d eff %d", eco.PowerAvailable, eco.PowerDemand, eco.EfficiencyPermille)
	}

	x, y = nearBase(h, 2, 2)
	h.place(data.StructureGenerator, x, y)
	if eco.PowerAvailable != h.w.Rules.GeneratorOutput || eco.EfficiencyPermille != 1000 {
		t.Fatalf("power = %d/%d eff %d", eco.PowerAvailable, eco.PowerDemand, eco.EfficiencyPermille)
	}
	if eco.ThroughputPermille != 1000 {
		t.Fatalf("throughput = %d", eco.ThroughputPermille)
	}
}

func TestEconomy_LogisticsBoostIsCapped(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	for i := 0; i < 60; i++ {
		h.w.Entities.SpawnStructure(h.cat.Structure(data.StructureConveyor), world.Position{X: 10 + i%20, Y: i / 20}, world.East)
	}
	h.step()
	want := 1000 + h.w.Rules.LogisticsCapPermille
	if got := h.w.Economy.ThroughputPermille; got != want {
		t.Fatalf("throughput = %d, want %d", got, want)
	}
}

func TestEconomy_MinerDrainsPatchIntoStorage(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	x, y := nearBase(h, 2, 2)
	h.place(data.StructureGenerator, x, y)

	p := h.w.Ore.Active()[0]
	miner := h.w.Entities.SpawnStructure(h.cat.Structure(data.StructureMiner), p.Position, world.North)
	if h.w.BindMiner(miner, p.ID) == nil {
		t.Fatal("miner did not bind")
	}
	remaining := p.RemainingOre
	ore := h.w.Economy.Storage[data.ItemOre]

	h.step()

	if p.RemainingOre != remaining-1 {
		t.Fatalf("remaining = %d, want %d", p.RemainingOre, remaining-1)
	}
	if got := h.w.Economy.Storage[data.ItemOre]; got != ore+1 {
		t.Fatalf("storage ore = %d, want %d", got, ore+1)
	}
	if h.w.Economy.Inventory[data.ItemOre] != ore+1 {
		t.Fatalf("inventory ore = %d", h.w.Economy.Inventory[data.ItemOre])
	}
}

func TestEconomy_AggregateProduction(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	gx, gy := nearBase(h, 2, 2)
	sx, sy := nearBase(h, 2, -3)
	ore := h.w.Economy.Storage[data.ItemOre]
	plate := h.w.Economy.Storage["plate"]

	h.step(
		command.PlaceStructure{StructureType: data.StructureGenerator, Position: world.Cell{X: gx, Y: gy}},
		command.PlaceStructure{StructureType: structSmelter, Position: world.Cell{X: sx, Y: sy}},
	)

	eco := &h.w.Economy
	if eco.LastRuns["smelt_plate"] != 1 {
		t.Fatalf("last runs = %v", eco.LastRuns)
	}
	if eco.Storage[data.ItemOre] != ore-2 || eco.Storage["plate"] != plate+1 {
		t.Fatalf("storage = %v", eco.Storage)
	}
}

func TestEconomy_UnpoweredStagesStillRunOnce(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	sx, sy := nearBase(h, 2, -3)
	ore := h.w.Economy.Storage[data.ItemOre]
	plate := h.w.Economy.Storage["plate"]

	h.step(command.PlaceStructure{StructureType: structSmelter, Position: world.Cell{X: sx, Y: sy}})

	eco := &h.w.Economy
	if eco.EfficiencyPermille != 0 || eco.ThroughputPermille != 0 {
		t.Fatalf("eff %d throughput %d, want 0/0", eco.EfficiencyPermille, eco.ThroughputPermille)
	}
	if eco.LastRuns["smelt_plate"] != 1 {
		t.Fatalf("last runs = %v", eco.LastRuns)
	}
	if eco.Storage[data.ItemOre] != ore-2 || eco.Storage["plate"] != plate+1 {
		t.Fatalf("storage = %v", eco.Storage)
	}

	p := h.w.Ore.Active()[0]
	miner := h.w.Entities.SpawnStructure(h.cat.Structure(data.StructureMiner), p.Position, world.North)
	if h.w.BindMiner(miner, p.ID) == nil {
		t.Fatal("miner did not bind")
	}
	remaining := p.RemainingOre
	h.step()
	if p.RemainingOre != remaining-1 {
		t.Fatalf("unpowered miner: remaining = %d, want %d", p.RemainingOre, remaining-1)
	}
}

func TestEconomy_PinnedRecipeUsesOwnBuffers(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	gx, gy := nearBase(h, 2, 2)
	fx, fy := nearBase(h, 2, -3)
	h.step(
		command.PlaceStructure{StructureType: data.StructureGenerator, Position: world.Cell{X: gx, Y: gy}},
		command.PlaceStructure{StructureType: structAmmoFactory, Position: world.Cell{X: fx, Y: fy}},
	)
	factories := h.w.Entities.Structures(structAmmoFactory)
	if len(factories) != 1 {
		t.Fatalf("factories = %d", len(factories))
	}
	id := factories[0].ID

	// No steel: the pinned steel recipe is starved.
	h.step(command.PinRecipe{EntityID: id, RecipeID: "press_ammo"})
	if h.w.Economy.StarvedInputs[id] != "steel" {
		t.Fatalf("starved = %v", h.w.Economy.StarvedInputs)
	}

	plate := h.w.Economy.Storage["plate"]
	h.step(command.PinRecipe{EntityID: id, RecipeID: "press_ammo_basic"})
	eco := &h.w.Economy
	if eco.PinnedRecipe[id] != "press_ammo_basic" || eco.LastRuns["press_ammo_basic"] != 1 {
		t.Fatalf("pinned = %v runs = %v", eco.PinnedRecipe, eco.LastRuns)
	}
	if eco.Storage["plate"] != plate-2 || eco.OutputBuffers[id]["ammo"] != 2 {
		t.Fatalf("storage = %v output = %v", eco.Storage, eco.OutputBuffers[id])
	}
	if _, starved := eco.StarvedInputs[id]; starved {
		t.Fatal("running producer reported starved")
	}

	// Unpinning restores the default recipe.
	h.step(command.PinRecipe{EntityID: id})
	if _, pinned := eco.PinnedRecipe[id]; pinned {
		t.Fatal("still pinned")
	}
	if eco.ActiveRecipe[id] != "press_ammo" {
		t.Fatalf("active = %q", eco.ActiveRecipe[id])
	}
}

func TestEconomy_RunsStayNonNegative(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "hard", Seed: 11})
	gx, gy := nearBase(h, 2, 2)
	sx, sy := nearBase(h, 2, -3)
	h.step(
		command.PlaceStructure{StructureType: data.StructureGenerator, Position: world.Cell{X: gx, Y: gy}},
		command.PlaceStructure{StructureType: structSmelter, Position: world.Cell{X: sx, Y: sy}},
	)
	for _, p := range h.w.Ore.Active() {
		m := h.w.Entities.SpawnStructure(h.cat.Structure(data.StructureMiner), p.Position, world.North)
		h.w.BindMiner(m, p.ID)
	}
	for i := 0; i < 400; i++ {
		h.step()
		assertNonNegative(t, h.w)
	}
}
