package data

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// StructureType names a buildable structure.
type StructureType string

const (
	StructureHQ             StructureType = "hq"
	StructureWall           StructureType = "wall"
	StructureTurret         StructureType = "turret"
	StructureMiner          StructureType = "miner"
	StructureGenerator      StructureType = "generator"
	StructureStorage        StructureType = "storage"
	StructureResearchCenter StructureType = "research_center"
	StructureConveyor       StructureType = "conveyor"
	StructureSplitter       StructureType = "splitter"
	StructureMerger         StructureType = "merger"
)

// Well-known item IDs.
const (
	ItemOre  = "ore"
	ItemAmmo = "ammo"
)

type Footprint struct {
	W int `yaml:"w" json:"w"`
	H int `yaml:"h" json:"h"`
}

type TurretSpec struct {
	Range           int `yaml:"range"`
	Damage          int `yaml:"damage"`
	CooldownTicks   int `yaml:"cooldown_ticks"`
	ProjectileSpeed int `yaml:"projectile_speed"` // cells per tick
}

type MinerSpec struct {
	Rate int `yaml:"rate"` // ore per tick at full efficiency
}

// StructureSpec holds static data for a structure type.
type StructureSpec struct {
	Type            StructureType `yaml:"type"`
	Footprint       Footprint     `yaml:"footprint"`
	BlocksMovement  bool          `yaml:"blocks_movement"`
	MaxHealth       int           `yaml:"max_health"`
	PowerDraw       int           `yaml:"power_draw"`
	InputBufferCap  int           `yaml:"input_buffer_cap"`
	OutputBufferCap int           `yaml:"output_buffer_cap"`
	Generator       bool          `yaml:"generator"`
	Carrier         bool          `yaml:"carrier"` // conveyor, splitter, merger
	Turret          *TurretSpec   `yaml:"turret,omitempty"`
	Miner           *MinerSpec    `yaml:"miner,omitempty"`
}

type ItemQty struct {
	Item string `yaml:"item" json:"item"`
	Qty  int    `yaml:"qty" json:"qty"`
}

// Recipe converts inputs into outputs in one run.
type Recipe struct {
	ID       string        `yaml:"id"`
	Producer StructureType `yaml:"producer"`
	Inputs   []ItemQty     `yaml:"inputs"`
	Outputs  []ItemQty     `yaml:"outputs"`
}

// EnemyArchetype holds static data for an enemy kind.
type EnemyArchetype struct {
	Archetype      string `yaml:"archetype"`
	Health         int    `yaml:"health"`
	MoveEveryTicks int    `yaml:"move_every_ticks"`
	Damage         int    `yaml:"damage"`
	Reward         int    `yaml:"reward"`
}

type Difficulty struct {
	Name  string `yaml:"name"`
	Rules Rules  `yaml:"rules"`
}

type catalogFile struct {
	Structures   []StructureSpec  `yaml:"structures"`
	Recipes      []Recipe         `yaml:"recipes"`
	Enemies      []EnemyArchetype `yaml:"enemies"`
	Difficulties []Difficulty     `yaml:"difficulties"`
}

// Catalog holds all static game data. Read-only after load.
type Catalog struct {
	structures   map[StructureType]*StructureSpec
	recipes      []*Recipe // file order is production order
	recipeByID   map[string]*Recipe
	enemies      map[string]*EnemyArchetype
	difficulties map[string]*Difficulty
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// MustDefaultCatalog is DefaultCatalog for tests and tools; the embedded
// file is covered by tests, so a failure here is a build defect.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog loads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(raw)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	c := &Catalog{
		structures:   make(map[StructureType]*StructureSpec, len(f.Structures)),
		recipeByID:   make(map[string]*Recipe, len(f.Recipes)),
		enemies:      make(map[string]*EnemyArchetype, len(f.Enemies)),
		difficulties: make(map[string]*Difficulty, len(f.Difficulties)),
	}
	for i := range f.Structures {
		s := &f.Structures[i]
		if s.Footprint.W < 1 || s.Footprint.H < 1 {
			return nil, fmt.Errorf("structure %s: footprint must be at least 1x1", s.Type)
		}
		if s.Turret != nil && s.Turret.ProjectileSpeed < 1 {
			return nil, fmt.Errorf("structure %s: projectile_speed must be positive", s.Type)
		}
		c.structures[s.Type] = s
	}
	if _, ok := c.structures[StructureHQ]; !ok {
		return nil, fmt.Errorf("catalog has no %q structure", StructureHQ)
	}
	for i := range f.Recipes {
		r := &f.Recipes[i]
		if _, ok := c.structures[r.Producer]; !ok {
			return nil, fmt.Errorf("recipe %s: unknown producer %s", r.ID, r.Producer)
		}
		if _, dup := c.recipeByID[r.ID]; dup {
			return nil, fmt.Errorf("recipe %s: duplicate id", r.ID)
		}
		for _, in := range r.Inputs {
			if in.Qty < 1 {
				return nil, fmt.Errorf("recipe %s: input %s qty must be positive", r.ID, in.Item)
			}
		}
		for _, out := range r.Outputs {
			if out.Qty < 1 {
				return nil, fmt.Errorf("recipe %s: output %s qty must be positive", r.ID, out.Item)
			}
		}
		c.recipes = append(c.recipes, r)
		c.recipeByID[r.ID] = r
	}
	for i := range f.Enemies {
		e := &f.Enemies[i]
		if e.MoveEveryTicks < 1 {
			return nil, fmt.Errorf("enemy %s: move_every_ticks must be positive", e.Archetype)
		}
		c.enemies[e.Archetype] = e
	}
	for i := range f.Difficulties {
		d := &f.Difficulties[i]
		if err := d.Rules.Validate(); err != nil {
			return nil, fmt.Errorf("difficulty %s: %w", d.Name, err)
		}
		c.difficulties[d.Name] = d
	}
	return c, nil
}

// Structure returns a structure spec by type, or nil if not found.
func (c *Catalog) Structure(t StructureType) *StructureSpec {
	return c.structures[t]
}

// Recipes returns all recipes in production order.
func (c *Catalog) Recipes() []*Recipe {
	return c.recipes
}

// Recipe returns a recipe by ID, or nil if not found.
func (c *Catalog) Recipe(id string) *Recipe {
	return c.recipeByID[id]
}

// DefaultRecipe returns the first recipe the given producer can run.
func (c *Catalog) DefaultRecipe(t StructureType) *Recipe {
	for _, r := range c.recipes {
		if r.Producer == t {
			return r
		}
	}
	return nil
}

// Enemy returns an enemy archetype, or nil if not found.
func (c *Catalog) Enemy(archetype string) *EnemyArchetype {
	return c.enemies[archetype]
}

// Difficulty returns a difficulty preset, or nil if not found.
func (c *Catalog) Difficulty(name string) *Difficulty {
	return c.difficulties[name]
}

// Count returns the number of structure types.
func (c *Catalog) Count() int {
	return len(c.structures)
}
