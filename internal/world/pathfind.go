package world

import (
	"container/heap"

	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/mathx"
)

// NavGrid is a walkability bitmap over the board.
type NavGrid struct {
	Width    int
	Height   int
	walkable []bool
}

func NewNavGrid(w, h int) *NavGrid {
	g := &NavGrid{Width: w, Height: h, walkable: make([]bool, w*h)}
	for i := range g.walkable {
		g.walkable[i] = true
	}
	return g
}

func (g *NavGrid) inBounds(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.Width && c.Y < g.Height
}

func (g *NavGrid) Walkable(c Cell) bool {
	return g.inBounds(c) && g.walkable[c.Y*g.Width+c.X]
}

func (g *NavGrid) SetWalkable(c Cell, ok bool) {
	if g.inBounds(c) {
		g.walkable[c.Y*g.Width+c.X] = ok
	}
}

// BuildNavGrid marks terrain and every movement-blocking structure as
// unwalkable, plus the optional extra footprints (placement candidates).
// The base cell always stays walkable: it is the goal.
func BuildNavGrid(b *Board, ents *Entities, cat *data.Catalog, extra ...Rect) *NavGrid {
	g := NewNavGrid(b.Width, b.Height)
	for _, c := range b.Blocked {
		g.SetWalkable(c, false)
	}
	for _, e := range ents.All() {
		if e.Category != CategoryStructure {
			continue
		}
		spec := cat.Structure(e.StructureType)
		if spec == nil || !spec.BlocksMovement {
			continue
		}
		for _, c := range e.Rect().Cells() {
			g.SetWalkable(c, false)
		}
	}
	for _, r := range extra {
		for _, c := range r.Cells() {
			g.SetWalkable(c, false)
		}
	}
	g.SetWalkable(b.Base, true)
	return g
}

type pathNode struct {
	cell  Cell
	g, f  int
	index int
}

// openSet orders by (f, g, x, y) ascending so ties break identically on
// every run.
type openSet []*pathNode

func (o openSet) Len() int { return len(o) }
func (o openSet) Less(i, j int) bool {
	a, b := o[i], o[j]
	if a.f != b.f {
		return a.f < b.f
	}
	if a.g != b.g {
		return a.g < b.g
	}
	if a.cell.X != b.cell.X {
		return a.cell.X < b.cell.X
	}
	return a.cell.Y < b.cell.Y
}
func (o openSet) Swap(i, j int) {
	o[i], o[j] = o[j], o[i]
	o[i].index = i
	o[j].index = j
}
func (o *openSet) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*o)
	*o = append(*o, n)
}
func (o *openSet) Pop() any {
	old := *o
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*o = old[:len(old)-1]
	return n
}

// neighbourOrder is fixed: N, E, S, W.
var neighbourOrder = [4]Direction{North, East, South, West}

// FindPath runs A* with 4-neighbour moves of cost 1 and a Manhattan
// heuristic. The start cell need not be walkable. Returns the full path
// from start to goal inclusive, or nil when the goal is unreachable.
func FindPath(g *NavGrid, start, goal Cell) []Cell {
	if !g.inBounds(start) || !g.Walkable(goal) {
		return nil
	}
	if start == goal {
		return []Cell{start}
	}
	h := func(c Cell) int { return mathx.Manhattan(c.X, c.Y, goal.X, goal.Y) }

	gScore := map[Cell]int{start: 0}
	cameFrom := make(map[Cell]Cell)
	closed := make(map[Cell]bool)
	nodes := map[Cell]*pathNode{}

	open := &openSet{}
	first := &pathNode{cell: start, g: 0, f: h(start)}
	nodes[start] = first
	heap.Push(open, first)

	for open.Len() > 0 {
		cur := heap.Pop(open).(*pathNode)
		delete(nodes, cur.cell)
		if cur.cell == goal {
			return reconstruct(cameFrom, start, goal)
		}
		closed[cur.cell] = true
		for _, d := range neighbourOrder {
			next := cur.cell.Step(d)
			if closed[next] || !g.Walkable(next) {
				continue
			}
			tentative := cur.g + 1
			if prev, seen := gScore[next]; seen && tentative >= prev {
				continue
			}
			gScore[next] = tentative
			cameFrom[next] = cur.cell
			if n, inOpen := nodes[next]; inOpen {
				n.g = tentative
				n.f = tentative + h(next)
				heap.Fix(open, n.index)
				continue
			}
			n := &pathNode{cell: next, g: tentative, f: tentative + h(next)}
			nodes[next] = n
			heap.Push(open, n)
		}
	}
	return nil
}

func reconstruct(cameFrom map[Cell]Cell, start, goal Cell) []Cell {
	path := []Cell{goal}
	cur := goal
	for cur != start {
		cur = cameFrom[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
