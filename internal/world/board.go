package world

// Ramp raises a cell to a given elevation.
type Ramp struct {
	Cell      Cell `json:"cell"`
	Elevation int  `json:"elevation"`
}

// Board is the static terrain of a run. Lookups go through lazily built
// sets that are never serialized.
type Board struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Base       Cell   `json:"base"`
	SpawnX     int    `json:"spawn_x"`
	SpawnYMin  int    `json:"spawn_y_min"`
	SpawnYMax  int    `json:"spawn_y_max"`
	Blocked    []Cell `json:"blocked"`
	Restricted []Cell `json:"restricted"`
	Ramps      []Ramp `json:"ramps"`

	blockedSet    map[Cell]struct{}
	restrictedSet map[Cell]struct{}
	rampSet       map[Cell]int
}

func (b *Board) index() {
	if b.blockedSet != nil {
		return
	}
	b.blockedSet = make(map[Cell]struct{}, len(b.Blocked))
	for _, c := range b.Blocked {
		b.blockedSet[c] = struct{}{}
	}
	b.restrictedSet = make(map[Cell]struct{}, len(b.Restricted))
	for _, c := range b.Restricted {
		b.restrictedSet[c] = struct{}{}
	}
	b.rampSet = make(map[Cell]int, len(b.Ramps))
	for _, r := range b.Ramps {
		b.rampSet[r.Cell] = r.Elevation
	}
}

// Reindex drops the lookup caches after the exported lists were edited.
func (b *Board) Reindex() {
	b.blockedSet = nil
	b.restrictedSet = nil
	b.rampSet = nil
}

func (b *Board) InBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < b.Width && c.Y < b.Height
}

// RectInBounds reports whether every cell of r lies on the board.
func (b *Board) RectInBounds(r Rect) bool {
	return r.W > 0 && r.H > 0 && r.X >= 0 && r.Y >= 0 && r.X+r.W <= b.Width && r.Y+r.H <= b.Height
}

func (b *Board) IsBlocked(c Cell) bool {
	b.index()
	_, ok := b.blockedSet[c]
	return ok
}

func (b *Board) IsRestricted(c Cell) bool {
	b.index()
	_, ok := b.restrictedSet[c]
	return ok
}

// Elevation returns the ramp elevation of a cell, 0 elsewhere.
func (b *Board) Elevation(c Cell) int {
	b.index()
	return b.rampSet[c]
}

// Snap lifts a cell to a position at board elevation.
func (b *Board) Snap(c Cell) Position {
	return Position{X: c.X, Y: c.Y, Z: b.Elevation(c)}
}

// SpawnCells lists declared spawn cells top to bottom.
func (b *Board) SpawnCells() []Cell {
	if b.SpawnYMax < b.SpawnYMin {
		return nil
	}
	out := make([]Cell, 0, b.SpawnYMax-b.SpawnYMin+1)
	for y := b.SpawnYMin; y <= b.SpawnYMax; y++ {
		out = append(out, Cell{X: b.SpawnX, Y: y})
	}
	return out
}

// SpawnSpan is the number of spawn rows.
func (b *Board) SpawnSpan() int {
	if b.SpawnYMax < b.SpawnYMin {
		return 0
	}
	return b.SpawnYMax - b.SpawnYMin + 1
}
