// Package engine owns one running simulation: the world, the queue of
// pending commands and the interpolation pair handed to presentation.
package engine

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ironforge/outpost/internal/command"
	"github.com/ironforge/outpost/internal/core/event"
	coresys "github.com/ironforge/outpost/internal/core/system"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/system"
	"github.com/ironforge/outpost/internal/world"
)

// DefaultTickDuration is the simulated time one step covers.
const DefaultTickDuration = 100 * time.Millisecond

// Snapshot is everything needed to resume a run: the world and the
// commands queued for ticks that have not run yet.
type Snapshot struct {
	World   *world.State      `json:"world"`
	Pending []command.Command `json:"pending"`
}

// Engine steps a world through the system pipeline. Step and Load must be
// called from one goroutine; Enqueue may be called from any.
type Engine struct {
	cat    *data.Catalog
	tuning system.Tuning
	runner *coresys.Runner[*system.Context]
	bus    *event.Bus
	log    *zap.Logger
	dt     time.Duration

	world    *world.State
	previous *world.State
	current  *world.State

	mu      sync.Mutex
	pending map[uint64][]command.Command
}

// New wraps w. A nil tuning falls back to system.DefaultTuning.
func New(cat *data.Catalog, tuning system.Tuning, w *world.State, log *zap.Logger) (*Engine, error) {
	if cat == nil || w == nil {
		return nil, fmt.Errorf("engine: catalog and world are required")
	}
	if tuning == nil {
		tuning = system.DefaultTuning{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	runner, err := system.NewRunner()
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	e := &Engine{
		cat:     cat,
		tuning:  tuning,
		runner:  runner,
		bus:     event.NewBus(),
		log:     log,
		dt:      DefaultTickDuration,
		world:   w,
		pending: make(map[uint64][]command.Command),
	}
	e.resetInterpolation()
	return e, nil
}

// SetTickDuration changes the Dt handed to systems.
func (e *Engine) SetTickDuration(d time.Duration) {
	if d > 0 {
		e.dt = d
	}
}

// Bus returns the post-tick event bus.
func (e *Engine) Bus() *event.Bus { return e.bus }

// World returns the live world. Callers must not mutate it and must not
// read it concurrently with Step.
func (e *Engine) World() *world.State { return e.world }

func (e *Engine) Tick() uint64 { return e.world.Tick }

// Interpolation returns deep copies of the world before and after the last
// step. They share nothing with the live world or with each other.
func (e *Engine) Interpolation() (previous, current *world.State) {
	return e.previous, e.current
}

// Enqueue queues commands for their target ticks.
func (e *Engine) Enqueue(cmds ...command.Command) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range cmds {
		if c.Payload == nil {
			continue
		}
		e.pending[c.TargetTick] = append(e.pending[c.TargetTick], c)
	}
}

// FreshCommands filters a full command log down to what a resumed engine
// still needs: commands whose target tick already ran are dropped, and so
// is one log entry per identical command already waiting in the queue.
// On an engine at tick 0 with an empty queue it returns cmds unchanged.
func (e *Engine) FreshCommands(cmds []command.Command) []command.Command {
	e.mu.Lock()
	queued := make(map[string]int)
	for _, pending := range e.pending {
		for _, c := range pending {
			queued[commandKey(c)]++
		}
	}
	e.mu.Unlock()

	tick := e.world.Tick
	var out []command.Command
	for _, c := range cmds {
		if c.Payload == nil || c.TargetTick < tick {
			continue
		}
		k := commandKey(c)
		if queued[k] > 0 {
			queued[k]--
			continue
		}
		out = append(out, c)
	}
	return out
}

func commandKey(c command.Command) string {
	b, err := json.Marshal(c)
	if err != nil {
		return c.String()
	}
	return string(b)
}

// PendingCount reports how many commands wait in the queue.
func (e *Engine) PendingCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, cmds := range e.pending {
		n += len(cmds)
	}
	return n
}

// dequeue removes every command due at or before tick, oldest target
// first, in enqueue order within a target.
func (e *Engine) dequeue(tick uint64) []command.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	var due []uint64
	for t := range e.pending {
		if t <= tick {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i] < due[j] })
	var out []command.Command
	for _, t := range due {
		out = append(out, e.pending[t]...)
		delete(e.pending, t)
	}
	return out
}

// Step advances the world by one tick and returns the tick's events.
func (e *Engine) Step() []event.Event {
	w := e.world
	tick := w.Tick
	cmds := e.dequeue(tick)

	if w.Frozen() {
		if len(cmds) > 0 {
			e.log.Debug("dropped commands on frozen run", zap.Uint64("tick", tick), zap.Int("count", len(cmds)))
		}
		w.Tick++
		e.record()
		return nil
	}

	command.Sort(cmds)
	phase := w.Run.Phase
	ctx := &system.Context{
		Tick:     tick,
		Dt:       e.dt,
		Commands: cmds,
		Events:   event.NewSink(tick),
		Catalog:  e.cat,
		Tuning:   e.tuning,
		World:    w,
	}
	e.runner.Tick(ctx)
	w.Tick++
	e.record()

	events := ctx.Events.Flush()
	e.log.Debug("tick",
		zap.Uint64("tick", tick),
		zap.Int("commands", len(cmds)),
		zap.Int("events", len(events)),
		zap.Int("entities", w.Entities.Count()),
	)
	if w.Run.Phase != phase {
		e.log.Info("run phase changed",
			zap.Uint64("tick", tick),
			zap.String("from", string(phase)),
			zap.String("to", string(w.Run.Phase)),
			zap.Int("wave", w.Threat.WaveIndex),
		)
	}
	e.bus.Dispatch(events)
	return events
}

// Run steps n times and concatenates the events.
func (e *Engine) Run(n int) []event.Event {
	var out []event.Event
	for i := 0; i < n; i++ {
		out = append(out, e.Step()...)
	}
	return out
}

// MakeSnapshot copies the world and the pending queue.
func (e *Engine) MakeSnapshot() Snapshot {
	e.mu.Lock()
	var targets []uint64
	for t := range e.pending {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	var pending []command.Command
	for _, t := range targets {
		pending = append(pending, e.pending[t]...)
	}
	e.mu.Unlock()
	return Snapshot{World: e.world.Clone(), Pending: pending}
}

// Load replaces the world and the queue with the snapshot's.
func (e *Engine) Load(snap Snapshot) error {
	if snap.World == nil {
		return fmt.Errorf("engine: snapshot has no world")
	}
	w := snap.World.Clone()
	e.mu.Lock()
	e.pending = make(map[uint64][]command.Command)
	for _, c := range snap.Pending {
		e.pending[c.TargetTick] = append(e.pending[c.TargetTick], c)
	}
	e.mu.Unlock()
	e.world = w
	e.resetInterpolation()
	e.log.Info("snapshot loaded",
		zap.Uint64("tick", w.Tick),
		zap.String("phase", string(w.Run.Phase)),
		zap.Int("pending", len(snap.Pending)),
	)
	return nil
}

func (e *Engine) record() {
	e.previous = e.current
	e.current = e.world.Clone()
}

func (e *Engine) resetInterpolation() {
	e.current = e.world.Clone()
	e.previous = e.world.Clone()
}
