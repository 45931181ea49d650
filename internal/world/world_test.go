package world

import (
	"bytes"
	"testing"

	"github.com/ironforge/outpost/internal/data"
)

// pinchBoard is a 10x5 board split by a rock column at x=5 with a single
// gap at (5,2).
func pinchBoard() *Board {
	b := &Board{Width: 10, Height: 5, Base: Cell{X: 0, Y: 2}, SpawnX: 9, SpawnYMin: 1, SpawnYMax: 3}
	for y := 0; y < 5; y++ {
		if y != 2 {
			b.Blocked = append(b.Blocked, Cell{X: 5, Y: y})
		}
	}
	return b
}

func newPinchWorld(t *testing.T) (*State, *data.Catalog) {
	t.Helper()
	cat := data.MustDefaultCatalog()
	s, err := Bootstrap(cat, Options{Difficulty: "easy", Seed: 7, Board: pinchBoard()})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return s, cat
}

func TestFindPath_StraightLine(t *testing.T) {
	g := NewNavGrid(5, 1)
	path := FindPath(g, Cell{X: 4, Y: 0}, Cell{X: 0, Y: 0})
	if len(path) != 5 {
		t.Fatalf("path len = %d, want 5", len(path))
	}
	if path[0] != (Cell{X: 4, Y: 0}) || path[4] != (Cell{X: 0, Y: 0}) {
		t.Fatalf("path endpoints = %v .. %v", path[0], path[4])
	}
}

func TestFindPath_Unreachable(t *testing.T) {
	g := NewNavGrid(3, 3)
	for y := 0; y < 3; y++ {
		g.SetWalkable(Cell{X: 1, Y: y}, false)
	}
	if p := FindPath(g, Cell{X: 2, Y: 1}, Cell{X: 0, Y: 1}); p != nil {
		t.Fatalf("expected nil path, got %v", p)
	}
}

func TestFindPath_DeterministicTieBreak(t *testing.T) {
	g := NewNavGrid(4, 4)
	a := FindPath(g, Cell{X: 3, Y: 3}, Cell{X: 0, Y: 0})
	for i := 0; i < 20; i++ {
		b := FindPath(g, Cell{X: 3, Y: 3}, Cell{X: 0, Y: 0})
		if len(a) != len(b) {
			t.Fatalf("length changed: %d vs %d", len(a), len(b))
		}
		for j := range a {
			if a[j] != b[j] {
				t.Fatalf("path differs at %d: %v vs %v", j, a[j], b[j])
			}
		}
	}
	if len(a) != 7 {
		t.Fatalf("path len = %d, want 7", len(a))
	}
}

func TestCanPlace_Results(t *testing.T) {
	s, cat := newPinchWorld(t)
	s.Board.Restricted = []Cell{{X: 2, Y: 0}}
	s.Board.Reindex()

	tests := []struct {
		name string
		st   data.StructureType
		at   Cell
		want PlacementResult
	}{
		{"ok", data.StructureWall, Cell{X: 7, Y: 0}, PlacementOK},
		{"out of bounds", data.StructureWall, Cell{X: 10, Y: 0}, PlacementOutOfBounds},
		{"footprint spills off board", data.StructureStorage, Cell{X: 9, Y: 4}, PlacementOutOfBounds},
		{"restricted", data.StructureWall, Cell{X: 2, Y: 0}, PlacementRestrictedZone},
		{"terrain", data.StructureWall, Cell{X: 5, Y: 0}, PlacementOccupied},
		{"base", data.StructureConveyor, Cell{X: 0, Y: 2}, PlacementOccupied},
		{"pinch point", data.StructureWall, Cell{X: 5, Y: 2}, PlacementBlocksCriticalPath},
		{"non-blocking at pinch", data.StructureConveyor, Cell{X: 5, Y: 2}, PlacementOK},
		{"hq", data.StructureHQ, Cell{X: 7, Y: 0}, PlacementInvalidStructure},
		{"unknown", data.StructureType("castle"), Cell{X: 7, Y: 0}, PlacementInvalidStructure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanPlace(s, cat, tt.st, tt.at); got != tt.want {
				t.Fatalf("CanPlace(%s, %v) = %v, want %v", tt.st, tt.at, got, tt.want)
			}
		})
	}
}

func TestCanPlace_RestrictedBeatsOccupied(t *testing.T) {
	s, cat := newPinchWorld(t)
	s.Board.Restricted = []Cell{{X: 5, Y: 0}}
	s.Board.Reindex()
	if got := CanPlace(s, cat, data.StructureWall, Cell{X: 5, Y: 0}); got != PlacementRestrictedZone {
		t.Fatalf("got %v, want restricted_zone", got)
	}
}

func TestCanPlace_OccupiedByStructure(t *testing.T) {
	s, cat := newPinchWorld(t)
	s.Entities.SpawnStructure(cat.Structure(data.StructureWall), s.Board.Snap(Cell{X: 7, Y: 0}), North)
	if got := CanPlace(s, cat, data.StructureWall, Cell{X: 7, Y: 0}); got != PlacementOccupied {
		t.Fatalf("got %v, want occupied", got)
	}
}

func TestCanPlace_SpawnCellWall(t *testing.T) {
	s, cat := newPinchWorld(t)
	// Walling a spawn cell cuts that spawn cell off.
	if got := CanPlace(s, cat, data.StructureWall, Cell{X: 9, Y: 1}); got != PlacementBlocksCriticalPath {
		t.Fatalf("got %v, want blocks_critical_path", got)
	}
}

func TestEntities_DamageClampsAndRemoves(t *testing.T) {
	ents := NewEntities()
	e := ents.SpawnEnemy(Position{X: 1, Y: 1}, 10)
	if rem, died := ents.Damage(e.ID, 4); rem != 6 || died {
		t.Fatalf("Damage = (%d,%v), want (6,false)", rem, died)
	}
	if rem, died := ents.Damage(e.ID, 100); rem != 0 || !died {
		t.Fatalf("Damage = (%d,%v), want (0,true)", rem, died)
	}
	if ents.Exists(e.ID) {
		t.Fatal("dead enemy still in store")
	}
	if rem, died := ents.Damage(e.ID, 1); rem != 0 || died {
		t.Fatalf("damage on missing entity = (%d,%v)", rem, died)
	}
}

func TestEntities_IDsNeverReused(t *testing.T) {
	ents := NewEntities()
	a := ents.SpawnEnemy(Position{}, 1)
	ents.Remove(a.ID)
	b := ents.SpawnEnemy(Position{}, 1)
	if b.ID <= a.ID {
		t.Fatalf("id %d reused or decreased after %d", b.ID, a.ID)
	}
}

func TestEntities_SelectablePrecedence(t *testing.T) {
	cat := data.MustDefaultCatalog()
	ents := NewEntities()
	p := ents.SpawnProjectile(Position{X: 3, Y: 3})
	e := ents.SpawnEnemy(Position{X: 3, Y: 3}, 5)
	if got := ents.SelectableEntity(Cell{X: 3, Y: 3}); got.ID != e.ID {
		t.Fatalf("selected %d, want enemy %d", got.ID, e.ID)
	}
	st := ents.SpawnStructure(cat.Structure(data.StructureStorage), Position{X: 2, Y: 2}, North)
	if got := ents.SelectableEntity(Cell{X: 3, Y: 3}); got.ID != st.ID {
		t.Fatalf("selected %d, want structure %d", got.ID, st.ID)
	}
	ents.Remove(st.ID)
	ents.Remove(e.ID)
	if got := ents.SelectableEntity(Cell{X: 3, Y: 3}); got.ID != p.ID {
		t.Fatalf("selected %d, want projectile %d", got.ID, p.ID)
	}
	if got := ents.SelectableEntity(Cell{X: 0, Y: 0}); got != nil {
		t.Fatalf("selected %d on empty cell", got.ID)
	}
}

func TestEntities_AllSortedByID(t *testing.T) {
	ents := NewEntities()
	for i := 0; i < 50; i++ {
		ents.SpawnEnemy(Position{X: i}, 1)
	}
	all := ents.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("not sorted at %d", i)
		}
	}
}

func TestBootstrap_Deterministic(t *testing.T) {
	cat := data.MustDefaultCatalog()
	a, err := Bootstrap(cat, Options{Difficulty: "normal", Seed: 42})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	b, err := Bootstrap(cat, Options{Difficulty: "normal", Seed: 42})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	ea, _ := a.Encode()
	eb, _ := b.Encode()
	if !bytes.Equal(ea, eb) {
		t.Fatal("same seed produced different worlds")
	}
	c, _ := Bootstrap(cat, Options{Difficulty: "normal", Seed: 43})
	ec, _ := c.Encode()
	if bytes.Equal(ea, ec) {
		t.Fatal("different seeds produced identical worlds")
	}
}

func TestBootstrap_StarterRing(t *testing.T) {
	cat := data.MustDefaultCatalog()
	s, err := Bootstrap(cat, Options{Difficulty: "easy", Seed: 0})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if s.Run.Phase != PhaseInitializing {
		t.Fatalf("phase = %s", s.Run.Phase)
	}
	hq := s.HQ()
	if hq == nil || hq.Health != cat.Structure(data.StructureHQ).MaxHealth {
		t.Fatalf("hq = %+v", hq)
	}
	if s.Ore.Rings[0].Visibility != RingRevealed {
		t.Fatalf("ring 0 = %s", s.Ore.Rings[0].Visibility)
	}
	for _, rs := range s.Ore.Rings[1:] {
		if rs.Visibility != RingLocked {
			t.Fatalf("ring %d = %s, want locked", rs.Ring, rs.Visibility)
		}
	}
	if len(s.Ore.Patches) == 0 {
		t.Fatal("no starter patches")
	}
	assertSpacing(t, s)
	if s.Economy.Storage[data.ItemAmmo] != 60 {
		t.Fatalf("starting ammo = %d", s.Economy.Storage[data.ItemAmmo])
	}
}

func TestState_CloneIndependent(t *testing.T) {
	s, cat := newPinchWorld(t)
	c := s.Clone()
	s.Entities.SpawnStructure(cat.Structure(data.StructureWall), Position{X: 8, Y: 0}, North)
	s.Economy.Storage.Add(data.ItemOre, 5)
	if c.Entities.Count() == s.Entities.Count() {
		t.Fatal("clone shares the entity store")
	}
	if c.Economy.Storage[data.ItemOre] == s.Economy.Storage[data.ItemOre] {
		t.Fatal("clone shares storage")
	}
	if !c.Board.IsBlocked(Cell{X: 5, Y: 0}) {
		t.Fatal("clone lost terrain")
	}
}

func TestRevealRing_Spacing(t *testing.T) {
	cat := data.MustDefaultCatalog()
	for seed := uint64(0); seed < 10; seed++ {
		s, err := Bootstrap(cat, Options{Difficulty: "normal", Seed: seed})
		if err != nil {
			t.Fatalf("bootstrap: %v", err)
		}
		for r := 1; r < len(s.Rules.RingRadii); r++ {
			s.RevealRing(r)
		}
		assertSpacing(t, s)
	}
}

func assertSpacing(t *testing.T, s *State) {
	t.Helper()
	live := s.Ore.Active()
	for i := range live {
		for j := i + 1; j < len(live); j++ {
			a, b := live[i].Position, live[j].Position
			dx, dy := a.X-b.X, a.Y-b.Y
			if dx < 0 {
				dx = -dx
			}
			if dy < 0 {
				dy = -dy
			}
			if max(dx, dy) < s.Rules.OreMinSpacing {
				t.Fatalf("patches %d and %d are %d apart", live[i].ID, live[j].ID, max(dx, dy))
			}
		}
	}
}
