package engine

import (
	"bytes"
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/core/event"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

func newEngine(t *testing.T, opts world.Options) *Engine {
	t.Helper()
	cat := data.MustDefaultCatalog()
	w, err := world.Bootstrap(cat, opts)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	e, err := New(cat, nil, w, zap.NewNop())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

// script is a fixed command program used by the determinism tests.
func script() []command.Command {
	patch := uint64(1)
	return []command.Command{
		{TargetTick: 0, ActorID: 1, Payload: command.PlaceStructure{StructureType: data.StructureGenerator, Position: world.Cell{X: 5, Y: 14}}},
		{TargetTick: 0, ActorID: 1, Payload: command.PlaceStructure{StructureType: "smelter", Position: world.Cell{X: 5, Y: 9}}},
		{TargetTick: 2, ActorID: 2, Payload: command.PlaceStructure{StructureType: data.StructureTurret, Position: world.Cell{X: 4, Y: 15}}},
		{TargetTick: 2, ActorID: 1, Payload: command.PlaceStructure{StructureType: data.StructureMiner, Position: world.Cell{X: 9, Y: 9}, TargetPatchID: &patch}},
		{TargetTick: 3, ActorID: 1, Payload: command.PlaceConveyor{Position: world.Cell{X: 7, Y: 12}, Direction: world.West}},
		{TargetTick: 5, ActorID: 3, Payload: command.TriggerWave{}},
		{TargetTick: 40, ActorID: 1, Payload: command.PlaceStructure{StructureType: data.StructureWall, Position: world.Cell{X: 4, Y: 16}}},
	}
}

func encode(t *testing.T, w *world.State) []byte {
	t.Helper()
	b, err := w.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return b
}

func encodeEvents(t *testing.T, evs []event.Event) []byte {
	t.Helper()
	b, err := json.Marshal(evs)
	if err != nil {
		t.Fatalf("marshal events: %v", err)
	}
	return b
}

func TestStep_FirstTick(t *testing.T) {
	e := newEngine(t, world.Options{Difficulty: "normal", Seed: 0})
	e.Step()
	w := e.World()
	if w.Run.Phase != world.PhaseGracePeriod {
		t.Fatalf("phase = %s", w.Run.Phase)
	}
	if w.Tick != 1 {
		t.Fatalf("tick = %d", w.Tick)
	}
	hq := w.HQ()
	if hq == nil {
		t.Fatal("hq missing")
	}
	if want := data.MustDefaultCatalog().Structure(data.StructureHQ).MaxHealth; hq.Health != want {
		t.Fatalf("hq health = %d, want %d", hq.Health, want)
	}
}

func TestRun_Deterministic(t *testing.T) {
	a := newEngine(t, world.Options{Difficulty: "normal", Seed: 99})
	b := newEngine(t, world.Options{Difficulty: "normal", Seed: 99})
	a.Enqueue(script()...)
	b.Enqueue(script()...)

	ea := a.Run(900)
	eb := b.Run(900)
	if !bytes.Equal(encodeEvents(t, ea), encodeEvents(t, eb)) {
		t.Fatal("event streams differ")
	}
	if !bytes.Equal(encode(t, a.World()), encode(t, b.World())) {
		t.Fatal("final states differ")
	}
}

func TestRun_EnqueueOrderIrrelevant(t *testing.T) {
	a := newEngine(t, world.Options{Difficulty: "normal", Seed: 4})
	b := newEngine(t, world.Options{Difficulty: "normal", Seed: 4})
	cmds := script()
	a.Enqueue(cmds...)
	for i := len(cmds) - 1; i >= 0; i-- {
		b.Enqueue(cmds[i])
	}
	a.Run(60)
	b.Run(60)
	if !bytes.Equal(encode(t, a.World()), encode(t, b.World())) {
		t.Fatal("enqueue order leaked into state")
	}
}

func TestStep_PastCommandsRunNextStep(t *testing.T) {
	e := newEngine(t, world.Options{Difficulty: "normal", Seed: 4})
	e.Run(5)
	e.Enqueue(command.Command{TargetTick: 1, ActorID: 1, Payload: command.PlaceStructure{StructureType: data.StructureWall, Position: world.Cell{X: 5, Y: 9}}})
	e.Step()
	if len(e.World().Entities.Structures(data.StructureWall)) != 1 {
		t.Fatal("late command was not applied")
	}
	if e.PendingCount() != 0 {
		t.Fatalf("pending = %d", e.PendingCount())
	}
}

func TestStep_FrozenRunDropsCommands(t *testing.T) {
	e := newEngine(t, world.Options{Difficulty: "normal", Seed: 4})
	e.Enqueue(command.Command{TargetTick: 0, Payload: command.Extract{}})
	evs := e.Step()
	if !containsKind(evs, event.RunExtracted) {
		t.Fatalf("events = %+v", evs)
	}
	count := e.World().Entities.Count()
	e.Enqueue(command.Command{TargetTick: 1, Payload: command.PlaceStructure{StructureType: data.StructureWall, Position: world.Cell{X: 5, Y: 9}}})
	if evs := e.Step(); evs != nil {
		t.Fatalf("frozen step emitted %+v", evs)
	}
	if e.Tick() != 2 {
		t.Fatalf("tick = %d", e.Tick())
	}
	if e.World().Entities.Count() != count || e.PendingCount() != 0 {
		t.Fatal("frozen run applied or kept a command")
	}
}

func containsKind(evs []event.Event, k event.Kind) bool {
	for _, ev := range evs {
		if ev.Kind == k {
			return true
		}
	}
	return false
}

func TestSnapshot_ContinuesIdentically(t *testing.T) {
	a := newEngine(t, world.Options{Difficulty: "normal", Seed: 21})
	a.Enqueue(script()...)
	a.Run(20)

	snap := a.MakeSnapshot()
	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var decoded Snapshot
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if len(decoded.Pending) != 1 {
		t.Fatalf("pending = %d", len(decoded.Pending))
	}

	b := newEngine(t, world.Options{Difficulty: "easy", Seed: 1})
	if err := b.Load(decoded); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Equal(encode(t, a.World()), encode(t, b.World())) {
		t.Fatal("loaded state differs")
	}
	ea := a.Run(700)
	eb := b.Run(700)
	if !bytes.Equal(encodeEvents(t, ea), encodeEvents(t, eb)) {
		t.Fatal("continuations emit different events")
	}
	if !bytes.Equal(encode(t, a.World()), encode(t, b.World())) {
		t.Fatal("continuations diverged")
	}
}

// resumeLog extends script with a wall, the removal of the generator
// (entity 2) and a late wall, so the log straddles the split point.
func resumeLog() []command.Command {
	return append(script(),
		command.Command{TargetTick: 5, ActorID: 4, Payload: command.PlaceStructure{StructureType: data.StructureWall, Position: world.Cell{X: 1, Y: 10}}},
		command.Command{TargetTick: 20, ActorID: 4, Payload: command.RemoveStructure{EntityID: 2}},
		command.Command{TargetTick: 150, ActorID: 4, Payload: command.PlaceStructure{StructureType: data.StructureWall, Position: world.Cell{X: 1, Y: 11}}},
	)
}

func TestFreshCommands_SplitReplayMatchesFull(t *testing.T) {
	opts := world.Options{Difficulty: "normal", Seed: 8}

	full := newEngine(t, opts)
	full.Enqueue(full.FreshCommands(resumeLog())...)
	full.Run(200)

	first := newEngine(t, opts)
	first.Enqueue(first.FreshCommands(resumeLog())...)
	first.Run(100)
	raw, err := json.Marshal(first.MakeSnapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}

	resumed := newEngine(t, opts)
	if err := resumed.Load(snap); err != nil {
		t.Fatalf("load: %v", err)
	}
	fresh := resumed.FreshCommands(resumeLog())
	if len(fresh) != 0 {
		t.Fatalf("fresh after resume = %v, want none", fresh)
	}
	resumed.Enqueue(fresh...)
	if resumed.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", resumed.PendingCount())
	}
	resumed.Run(100)

	if resumed.PendingCount() != 0 {
		t.Fatalf("pending after resume run = %d", resumed.PendingCount())
	}
	if !bytes.Equal(encode(t, full.World()), encode(t, resumed.World())) {
		t.Fatal("split replay diverged from full replay")
	}
	if len(full.World().Entities.Structures(data.StructureGenerator)) != 0 {
		t.Fatal("generator removal did not run")
	}
}

func TestFreshCommands_KeepsUnqueuedDuplicates(t *testing.T) {
	e := newEngine(t, world.Options{Difficulty: "normal", Seed: 8})
	wave := command.Command{TargetTick: 30, ActorID: 1, Payload: command.TriggerWave{}}
	e.Enqueue(wave)
	e.Run(10)

	got := e.FreshCommands([]command.Command{
		{TargetTick: 3, ActorID: 1, Payload: command.TriggerWave{}},
		wave,
		wave,
	})
	if len(got) != 1 || got[0].TargetTick != 30 {
		t.Fatalf("fresh = %v, want one wave at 30", got)
	}
}

func TestInterpolation_Independent(t *testing.T) {
	e := newEngine(t, world.Options{Difficulty: "normal", Seed: 2})
	e.Step()
	e.Step()
	prev, cur := e.Interpolation()
	if prev.Tick != 1 || cur.Tick != 2 {
		t.Fatalf("pair ticks = %d, %d", prev.Tick, cur.Tick)
	}
	cur.Economy.Storage.Add(data.ItemOre, 1000)
	if prev.Economy.Storage[data.ItemOre] == cur.Economy.Storage[data.ItemOre] {
		t.Fatal("previous aliases current")
	}
	if e.World().Economy.Storage[data.ItemOre] == cur.Economy.Storage[data.ItemOre] {
		t.Fatal("current aliases the live world")
	}
}

func TestEnqueue_ConcurrentWithStep(t *testing.T) {
	e := newEngine(t, world.Options{Difficulty: "normal", Seed: 2})
	var wg sync.WaitGroup
	for actor := uint64(1); actor <= 4; actor++ {
		wg.Add(1)
		go func(actor uint64) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				e.Enqueue(command.Command{TargetTick: uint64(i), ActorID: actor, Payload: command.RotateBuilding{EntityID: 999}})
			}
		}(actor)
	}
	for i := 0; i < 20; i++ {
		e.Step()
	}
	wg.Wait()
	e.Run(60)
	if e.PendingCount() != 0 {
		t.Fatalf("pending = %d", e.PendingCount())
	}
}

func TestBus_ReceivesTickBatches(t *testing.T) {
	e := newEngine(t, world.Options{Difficulty: "normal", Seed: 2})
	var batches int
	var started []event.Event
	e.Bus().SubscribeBatch(func([]event.Event) { batches++ })
	e.Bus().Subscribe(event.RunStarted, func(ev event.Event) { started = append(started, ev) })
	e.Run(3)
	if batches == 0 || len(started) != 1 || started[0].Tick != 0 {
		t.Fatalf("batches = %d started = %+v", batches, started)
	}
}
