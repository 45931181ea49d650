package world

import "github.com/ironforge/outpost/internal/core/ecs"

// Occupancy maps board cells to the entities covering them.
// It is derived from the entity store on demand and never saved.
type Occupancy struct {
	cells map[Cell][]ecs.EntityID
}

// BuildOccupancy indexes every non-projectile entity. Entity lists per cell
// are in ID order because the store is walked in ID order.
func BuildOccupancy(ents *Entities) *Occupancy {
	o := &Occupancy{cells: make(map[Cell][]ecs.EntityID, ents.Count())}
	for _, e := range ents.All() {
		if e.Category == CategoryProjectile {
			continue
		}
		for _, c := range e.Rect().Cells() {
			o.cells[c] = append(o.cells[c], e.ID)
		}
	}
	return o
}

// Occupied reports whether any indexed entity covers c.
func (o *Occupancy) Occupied(c Cell) bool {
	return len(o.cells[c]) > 0
}

// At returns entity IDs covering c in ID order.
func (o *Occupancy) At(c Cell) []ecs.EntityID {
	return o.cells[c]
}

// Neighbours returns IDs found in the four cells orthogonally adjacent to r,
// deduplicated, in first-seen order.
func (o *Occupancy) Neighbours(r Rect) []ecs.EntityID {
	seen := make(map[ecs.EntityID]struct{})
	var out []ecs.EntityID
	add := func(c Cell) {
		for _, id := range o.cells[c] {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for x := r.X; x < r.X+r.W; x++ {
		add(Cell{X: x, Y: r.Y - 1})
		add(Cell{X: x, Y: r.Y + r.H})
	}
	for y := r.Y; y < r.Y+r.H; y++ {
		add(Cell{X: r.X - 1, Y: y})
		add(Cell{X: r.X + r.W, Y: y})
	}
	return out
}
