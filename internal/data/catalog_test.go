package data

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog_Loads(t *testing.T) {
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	for _, st := range []StructureType{StructureHQ, StructureWall, StructureTurret, StructureMiner, StructureConveyor} {
		if c.Structure(st) == nil {
			t.Fatalf("missing structure %s", st)
		}
	}
	if c.Structure(StructureTurret).Turret == nil {
		t.Fatalf("turret has no turret spec")
	}
	if c.Structure(StructureConveyor).BlocksMovement {
		t.Fatalf("conveyors must not block movement")
	}
	if got := c.DefaultRecipe("ammo_factory"); got == nil || got.ID != "press_ammo" {
		t.Fatalf("default ammo recipe = %+v", got)
	}
	if c.Enemy("grunt") == nil {
		t.Fatalf("missing grunt archetype")
	}
}

func TestDefaultCatalog_DifficultyMerge(t *testing.T) {
	c := MustDefaultCatalog()
	easy := c.Difficulty("easy")
	hard := c.Difficulty("hard")
	if easy == nil || hard == nil || c.Difficulty("normal") == nil {
		t.Fatalf("missing difficulty presets")
	}
	// hard inherits the base board but overrides the raid odds.
	if hard.Rules.BoardWidth != easy.Rules.BoardWidth {
		t.Fatalf("board width not inherited: %d vs %d", hard.Rules.BoardWidth, easy.Rules.BoardWidth)
	}
	if hard.Rules.RaidThreshold <= easy.Rules.RaidThreshold {
		t.Fatalf("hard raid threshold %d not above easy %d", hard.Rules.RaidThreshold, easy.Rules.RaidThreshold)
	}
	if hard.Rules.RenewalSkipPercent != 40 {
		t.Fatalf("hard skip percent = %d", hard.Rules.RenewalSkipPercent)
	}
}

func TestRules_Rings(t *testing.T) {
	r := MustDefaultCatalog().Difficulty("normal").Rules
	cases := []struct {
		dist, ring int
	}{
		{0, 0}, {6, 0}, {7, 1}, {11, 1}, {12, 2}, {22, 3}, {23, -1},
	}
	for _, tc := range cases {
		if got := r.RingOf(tc.dist); got != tc.ring {
			t.Fatalf("RingOf(%d) = %d, want %d", tc.dist, got, tc.ring)
		}
	}
	if in, out := r.RingBounds(1); in != 7 || out != 11 {
		t.Fatalf("ring 1 bounds = %d..%d", in, out)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	bad := "structures:\n  - type: wall\n    footprint: { w: 0, h: 1 }\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCatalog(path); err == nil {
		t.Fatalf("expected footprint validation error")
	}
}
