package system

import (
	"testing"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/core/event"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

const powerKey = string(world.BottleneckPowerDeficit)

func TestBottleneck_Hysteresis(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	activation := h.w.Rules.ActivationThresholdTicks
	recovery := h.w.Rules.RecoveryThresholdTicks

	// A turret with no generator is a permanent power deficit.
	x, y := nearBase(h, 2, -3)
	h.place(data.StructureTurret, x, y)
	for i := 1; i < activation-1; i++ {
		h.step()
	}
	if h.w.Bottleneck.Active(powerKey) {
		t.Fatalf("active after %d ticks", activation-1)
	}
	if got := h.w.Bottleneck.Hysteresis[powerKey].MetTicks; got != activation-1 {
		t.Fatalf("met ticks = %d", got)
	}

	events := h.step()
	activated := findEvents(events, event.BottleneckActivated)
	if len(activated) != 1 || activated[0].Detail != powerKey {
		t.Fatalf("bottleneck_activated = %+v", activated)
	}
	sig := h.w.Bottleneck.Signal(powerKey)
	if sig == nil || sig.Severity != 100 || sig.Scope != world.ScopeGlobal {
		t.Fatalf("signal = %+v", sig)
	}

	// Fix the deficit; the signal holds until the recovery threshold.
	gx, gy := nearBase(h, 2, 2)
	h.step(command.PlaceStructure{StructureType: data.StructureGenerator, Position: world.Cell{X: gx, Y: gy}})
	for i := 1; i < recovery-1; i++ {
		if n := len(findEvents(h.step(), event.BottleneckDeactivated)); n != 0 {
			t.Fatalf("deactivated after %d cleared ticks", i+1)
		}
	}
	if !h.w.Bottleneck.Active(powerKey) {
		t.Fatalf("inactive after %d cleared ticks", recovery-1)
	}
	deactivated := findEvents(h.step(), event.BottleneckDeactivated)
	if len(deactivated) != 1 || deactivated[0].Detail != powerKey {
		t.Fatalf("bottleneck_deactivated = %+v", deactivated)
	}
	if h.w.Bottleneck.Signal(powerKey) != nil {
		t.Fatal("signal survived deactivation")
	}
}

func TestBottleneck_FlappingNeverActivates(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	activation := h.w.Rules.ActivationThresholdTicks
	x, y := nearBase(h, 2, -3)
	turret := h.place(data.StructureTurret, x, y)

	for round := 0; round < 3; round++ {
		for i := 0; i < activation-2; i++ {
			h.step()
		}
		// Removing the turret clears the deficit for a tick.
		h.step(command.RemoveStructure{EntityID: turret.ID})
		if h.w.Bottleneck.Hysteresis[powerKey].MetTicks != 0 {
			t.Fatal("met ticks not reset")
		}
		turret = h.place(data.StructureTurret, x, y)
	}
	if h.w.Bottleneck.Active(powerKey) {
		t.Fatal("flapping condition activated")
	}
}

func TestBottleneck_SignalsSortedByPriority(t *testing.T) {
	h := newHarness(t, world.Options{Difficulty: "easy", Seed: 3})
	h.w.Economy.Storage.Take(data.ItemAmmo, h.w.Economy.Storage[data.ItemAmmo])
	h.w.Tick = 1
	x, y := nearBase(h, 2, -3)
	turret := h.place(data.StructureTurret, x, y)
	arch := h.cat.Enemy("grunt")
	for i := 0; i < h.w.Rules.ActivationThresholdTicks+1; i++ {
		// Keep a stationary enemy in range so the turret dry-fires.
		if len(h.w.Entities.OfCategory(world.CategoryEnemy)) == 0 {
			e := h.w.Entities.SpawnEnemy(h.w.Board.Snap(world.Cell{X: turret.Position.X + 2, Y: turret.Position.Y}), arch.Health)
			h.w.Combat.Enemies.Set(e.ID, &world.EnemyRuntime{Archetype: arch.Archetype, Damage: arch.Damage, Reward: arch.Reward})
		}
		h.step()
	}
	sigs := h.w.Bottleneck.Signals
	if len(sigs) < 2 {
		t.Fatalf("signals = %+v", sigs)
	}
	if sigs[0].Kind != world.BottleneckPowerDeficit || sigs[1].Kind != world.BottleneckAmmoDryFire {
		t.Fatalf("order = %s, %s", sigs[0].Kind, sigs[1].Kind)
	}
	for i := 1; i < len(sigs); i++ {
		if world.BottleneckPriority[sigs[i-1].Kind] > world.BottleneckPriority[sigs[i].Kind] {
			t.Fatalf("signals out of order at %d", i)
		}
	}
}
