package world

import "github.com/ironforge/outpost/internal/data"

// PlacementResult is the verdict of the placement validator. The numeric
// values travel in placement_rejected events and must stay stable.
type PlacementResult int

const (
	PlacementOK                 PlacementResult = 0
	PlacementOccupied           PlacementResult = 1
	PlacementOutOfBounds        PlacementResult = 2
	PlacementBlocksCriticalPath PlacementResult = 3
	PlacementRestrictedZone     PlacementResult = 4
	PlacementInvalidStructure   PlacementResult = 5
)

func (r PlacementResult) String() string {
	switch r {
	case PlacementOK:
		return "ok"
	case PlacementOccupied:
		return "occupied"
	case PlacementOutOfBounds:
		return "out_of_bounds"
	case PlacementBlocksCriticalPath:
		return "blocks_critical_path"
	case PlacementRestrictedZone:
		return "restricted_zone"
	case PlacementInvalidStructure:
		return "invalid_structure"
	}
	return "unknown"
}

// FootprintAt returns the rectangle a structure of the given spec would
// cover at cell c.
func FootprintAt(spec *data.StructureSpec, c Cell) Rect {
	return Rect{X: c.X, Y: c.Y, W: spec.Footprint.W, H: spec.Footprint.H}
}

// CanPlace validates a build in priority order: bounds, restricted cells,
// occupancy (terrain or any non-projectile entity), then, for structures
// that block movement, that every spawn cell still reaches the base.
func CanPlace(s *State, cat *data.Catalog, st data.StructureType, c Cell) PlacementResult {
	spec := cat.Structure(st)
	if spec == nil || st == data.StructureHQ {
		return PlacementInvalidStructure
	}
	rect := FootprintAt(spec, c)
	if !s.Board.RectInBounds(rect) {
		return PlacementOutOfBounds
	}
	cells := rect.Cells()
	for _, cell := range cells {
		if s.Board.IsRestricted(cell) {
			return PlacementRestrictedZone
		}
	}
	occ := BuildOccupancy(&s.Entities)
	for _, cell := range cells {
		if s.Board.IsBlocked(cell) || occ.Occupied(cell) || cell == s.Board.Base {
			return PlacementOccupied
		}
	}
	if spec.BlocksMovement && !SpawnsConnected(s, cat, rect) {
		return PlacementBlocksCriticalPath
	}
	return PlacementOK
}

// SpawnsConnected reports whether every declared spawn cell has a path to
// the base with the given extra footprints treated as blocked.
func SpawnsConnected(s *State, cat *data.Catalog, extra ...Rect) bool {
	grid := BuildNavGrid(&s.Board, &s.Entities, cat, extra...)
	for _, sc := range s.Board.SpawnCells() {
		if !grid.Walkable(sc) {
			return false
		}
		if FindPath(grid, sc, s.Board.Base) == nil {
			return false
		}
	}
	return true
}
