package world

import (
	"sort"

	"github.com/ironforge/outpost/internal/core/ecs"
)

// ConveyorSlot is the payload a carrier is moving.
type ConveyorSlot struct {
	Item          string `json:"item,omitempty"`
	Count         int    `json:"count"`
	ProgressTicks int    `json:"progress_ticks"`
	StalledTicks  int    `json:"stalled_ticks"`
}

func (c ConveyorSlot) Empty() bool { return c.Count == 0 }

// ConveyorIO configures which side a carrier takes from and delivers to.
type ConveyorIO struct {
	Input  Direction `json:"input"`
	Output Direction `json:"output"`
}

// Inventory is an item → count map.
type Inventory map[string]int

// Add credits qty units; negative quantities are ignored.
func (inv Inventory) Add(item string, qty int) {
	if qty <= 0 {
		return
	}
	inv[item] += qty
}

// Take debits up to qty units and returns how many were taken.
func (inv Inventory) Take(item string, qty int) int {
	have := inv[item]
	if qty <= 0 || have <= 0 {
		return 0
	}
	if qty > have {
		qty = have
	}
	inv[item] = have - qty
	if inv[item] == 0 {
		delete(inv, item)
	}
	return qty
}

func (inv Inventory) Total() int {
	total := 0
	for _, v := range inv {
		total += v
	}
	return total
}

// Items returns item IDs in sorted order.
func (inv Inventory) Items() []string {
	out := make([]string, 0, len(inv))
	for k := range inv {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EconomyState holds every resource counter of the run.
type EconomyState struct {
	// Inventory is derived: RecomputeInventory rebuilds it from the physical
	// buffers every tick. Nothing writes it directly.
	Inventory Inventory `json:"inventory"`

	InputBuffers  map[ecs.EntityID]Inventory    `json:"input_buffers"`
	OutputBuffers map[ecs.EntityID]Inventory    `json:"output_buffers"`
	Storage       Inventory                     `json:"storage"`
	Conveyors     map[ecs.EntityID]ConveyorSlot `json:"conveyors"`
	ConveyorIO    map[ecs.EntityID]ConveyorIO   `json:"conveyor_io"`
	ActiveRecipe  map[ecs.EntityID]string       `json:"active_recipe"`
	PinnedRecipe  map[ecs.EntityID]string       `json:"pinned_recipe"`
	// StarvedInputs names the first missing input of each pinned producer
	// that could not run this tick.
	StarvedInputs map[ecs.EntityID]string       `json:"starved_inputs"`

	PowerAvailable     int `json:"power_available"`
	PowerDemand        int `json:"power_demand"`
	EfficiencyPermille int `json:"efficiency_permille"`
	ThroughputPermille int `json:"throughput_permille"`
	StorageCapacity    int `json:"storage_capacity"`
	Currency           int `json:"currency"`

	// FractionalProductionRemainders carries the permille part of each
	// recipe's run budget that a tick could not spend.
	FractionalProductionRemainders map[string]int `json:"fractional_production_remainders"`
	LastRuns                       map[string]int `json:"last_runs"`
}

func NewEconomyState() EconomyState {
	e := EconomyState{}
	e.ensureMaps()
	return e
}

func (e *EconomyState) ensureMaps() {
	if e.Inventory == nil {
		e.Inventory = Inventory{}
	}
	if e.InputBuffers == nil {
		e.InputBuffers = map[ecs.EntityID]Inventory{}
	}
	if e.OutputBuffers == nil {
		e.OutputBuffers = map[ecs.EntityID]Inventory{}
	}
	if e.Storage == nil {
		e.Storage = Inventory{}
	}
	if e.Conveyors == nil {
		e.Conveyors = map[ecs.EntityID]ConveyorSlot{}
	}
	if e.ConveyorIO == nil {
		e.ConveyorIO = map[ecs.EntityID]ConveyorIO{}
	}
	if e.ActiveRecipe == nil {
		e.ActiveRecipe = map[ecs.EntityID]string{}
	}
	if e.PinnedRecipe == nil {
		e.PinnedRecipe = map[ecs.EntityID]string{}
	}
	if e.StarvedInputs == nil {
		e.StarvedInputs = map[ecs.EntityID]string{}
	}
	if e.FractionalProductionRemainders == nil {
		e.FractionalProductionRemainders = map[string]int{}
	}
	if e.LastRuns == nil {
		e.LastRuns = map[string]int{}
	}
}

// InputBuffer returns (creating if needed) a structure's input buffer.
func (e *EconomyState) InputBuffer(id ecs.EntityID) Inventory {
	b, ok := e.InputBuffers[id]
	if !ok {
		b = Inventory{}
		e.InputBuffers[id] = b
	}
	return b
}

// OutputBuffer returns (creating if needed) a structure's output buffer.
func (e *EconomyState) OutputBuffer(id ecs.EntityID) Inventory {
	b, ok := e.OutputBuffers[id]
	if !ok {
		b = Inventory{}
		e.OutputBuffers[id] = b
	}
	return b
}

// ForgetStructure drops every per-structure record of id. Buffered items
// are lost with the structure.
func (e *EconomyState) ForgetStructure(id ecs.EntityID) {
	delete(e.InputBuffers, id)
	delete(e.OutputBuffers, id)
	delete(e.Conveyors, id)
	delete(e.ConveyorIO, id)
	delete(e.ActiveRecipe, id)
	delete(e.PinnedRecipe, id)
	delete(e.StarvedInputs, id)
}

// StorageFree returns how many more units of item fit in shared storage.
func (e *EconomyState) StorageFree(item string) int {
	free := e.StorageCapacity - e.Storage[item]
	if free < 0 {
		return 0
	}
	return free
}

// RecomputeInventory rebuilds the aggregated inventory from storage, every
// buffer and every carrier payload.
func (e *EconomyState) RecomputeInventory() {
	inv := Inventory{}
	for item, n := range e.Storage {
		inv.Add(item, n)
	}
	for _, b := range e.InputBuffers {
		for item, n := range b {
			inv.Add(item, n)
		}
	}
	for _, b := range e.OutputBuffers {
		for item, n := range b {
			inv.Add(item, n)
		}
	}
	for _, slot := range e.Conveyors {
		inv.Add(slot.Item, slot.Count)
	}
	e.Inventory = inv
}

// SortedIDs returns the keys of any entity-keyed map in ascending order.
func SortedIDs[V any](m map[ecs.EntityID]V) []ecs.EntityID {
	out := make([]ecs.EntityID, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
