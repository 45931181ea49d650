package system

import (
	"testing"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

// harness drives the full pipeline without the engine's queue.
type harness struct {
	t      *testing.T
	cat    *data.Catalog
	w      *world.State
	runner *coresys.Runner[*Context]
}

func newHarness(t *testing.T, opts world.Options) *harness {
	t.Helper()
	cat := data.MustDefaultCatalog()
	w, err := world.Bootstrap(cat, opts)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	r, err := NewRunner()
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	return &harness{t: t, cat: cat, w: w, runner: r}
}

// pinchBoard is a 10x5 board split by a rock column at x=5 with a single
// gap at (5,2).
func pinchBoard() *world.Board {
	b := &world.Board{Width: 10, Height: 5, Base: world.Cell{X: 0, Y: 2}, SpawnX: 9, SpawnYMin: 1, SpawnYMax: 3}
	for y := 0; y < 5; y++ {
		if y != 2 {
			b.Blocked = append(b.Blocked, world.Cell{X: 5, Y: y})
		}
	}
	return b
}

func (h *harness) step(payloads ...command.Payload) []event.Event {
	cmds := make([]command.Command, len(payloads))
	for i, p := range payloads {
		cmds[i] = command.Command{TargetTick: h.w.Tick, ActorID: 1, Payload: p}
	}
	command.Sort(cmds)
	ctx := &Context{
		Tick:     h.w.Tick,
		Commands: cmds,
		Events:   event.NewSink(h.w.Tick),
		Catalog:  h.cat,
		Tuning:   DefaultTuning{},
		World:    h.w,
	}
	h.runner.Tick(ctx)
	h.w.Tick++
	return ctx.Events.Flush()
}

func (h *harness) run(n int) []event.Event {
	var out []event.Event
	for i := 0; i < n; i++ {
		out = append(out, h.step()...)
	}
	return out
}

func (h *harness) place(st data.StructureType, x, y int) *world.Entity {
	h.t.Helper()
	events := h.step(command.PlaceStructure{StructureType: st, Position: world.Cell{X: x, Y: y}})
	for _, e := range h.w.Entities.Structures(st) {
		if e.Position.Cell() == (world.Cell{X: x, Y: y}) {
			return e
		}
	}
	h.t.Fatalf("place %s at %d,%d failed: %v", st, x, y, findEvents(events, event.PlacementRejected))
	return nil
}

func findEvents(events []event.Event, kind event.Kind) []event.Event {
	var out []event.Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func assertNonNegative(t *testing.T, w *world.State) {
	t.Helper()
	eco := &w.Economy
	check := func(where string, inv world.Inventory) {
		for item, n := range inv {
			if n < 0 {
				t.Fatalf("%s[%s] = %d", where, item, n)
			}
		}
	}
	check("storage", eco.Storage)
	check("inventory", eco.Inventory)
	for _, inv := range eco.InputBuffers {
		check("input", inv)
	}
	for _, inv := range eco.OutputBuffers {
		check("output", inv)
	}
	if eco.Currency < 0 {
		t.Fatalf("currency = %d", eco.Currency)
	}
	for net, n := range w.Combat.NetworkAmmo {
		if n < 0 {
			t.Fatalf("network %d ammo = %d", net, n)
		}
	}
	for _, p := range w.Ore.Patches {
		if p.RemainingOre < 0 {
			t.Fatalf("patch %d remaining = %d", p.ID, p.RemainingOre)
		}
	}
}
