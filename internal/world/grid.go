package world

import "fmt"

// Cell is a board coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) String() string { return fmt.Sprintf("%d,%d", c.X, c.Y) }

// Position is a grid cell plus elevation.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (p Position) Cell() Cell { return Cell{X: p.X, Y: p.Y} }

// Direction is a cardinal direction; rotations use the same encoding.
type Direction int

const (
	North Direction = iota
	East
	South
	West
)

// Normalize folds any integer into 0..3.
func (d Direction) Normalize() Direction {
	v := int(d) % 4
	if v < 0 {
		v += 4
	}
	return Direction(v)
}

func (d Direction) Opposite() Direction { return (d + 2).Normalize() }

// Clockwise turns a quarter to the right.
func (d Direction) Clockwise() Direction { return (d + 1).Normalize() }

// Delta returns the unit step for the direction. North is -Y.
func (d Direction) Delta() (dx, dy int) {
	switch d.Normalize() {
	case North:
		return 0, -1
	case East:
		return 1, 0
	case South:
		return 0, 1
	default:
		return -1, 0
	}
}

// Step returns the neighbouring cell in direction d.
func (c Cell) Step(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

// Rect is a footprint rectangle anchored at its minimum corner.
type Rect struct {
	X, Y, W, H int
}

func (r Rect) Contains(c Cell) bool {
	return c.X >= r.X && c.X < r.X+r.W && c.Y >= r.Y && c.Y < r.Y+r.H
}

// Cells lists covered cells row by row.
func (r Rect) Cells() []Cell {
	out := make([]Cell, 0, r.W*r.H)
	for y := r.Y; y < r.Y+r.H; y++ {
		for x := r.X; x < r.X+r.W; x++ {
			out = append(out, Cell{X: x, Y: y})
		}
	}
	return out
}

// Touches reports whether two rectangles share an edge (4-adjacency) or overlap.
func (r Rect) Touches(o Rect) bool {
	overlapX := r.X < o.X+o.W && o.X < r.X+r.W
	overlapY := r.Y < o.Y+o.H && o.Y < r.Y+r.H
	adjX := r.X+r.W == o.X || o.X+o.W == r.X
	adjY := r.Y+r.H == o.Y || o.Y+o.H == r.Y
	return (overlapX && overlapY) || (overlapX && adjY) || (overlapY && adjX)
}
