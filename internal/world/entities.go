package world

import (
	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/data"
)

// Category partitions entities.
type Category string

const (
	CategoryStructure  Category = "structure"
	CategoryEnemy      Category = "enemy"
	CategoryProjectile Category = "projectile"
	CategoryPlayer     Category = "player"
)

// Entity is one record of the entity store.
type Entity struct {
	ID            ecs.EntityID       `json:"id"`
	Category      Category           `json:"category"`
	StructureType data.StructureType `json:"structure_type,omitempty"`
	Footprint     data.Footprint     `json:"footprint"`
	Position      Position           `json:"position"`
	Health        int                `json:"health"`
	MaxHealth     int                `json:"max_health"`
	Rotation      Direction          `json:"rotation"`
}

// Rect returns the footprint rectangle anchored at the entity position.
// Non-structures occupy a single cell.
func (e *Entity) Rect() Rect {
	w, h := e.Footprint.W, e.Footprint.H
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return Rect{X: e.Position.X, Y: e.Position.Y, W: w, H: h}
}

// Entities owns every entity by ID. All bulk iteration is in ID order.
type Entities struct {
	Alloc ecs.Allocator     `json:"alloc"`
	Items ecs.Store[Entity] `json:"items"`
}

func NewEntities() Entities {
	return Entities{Alloc: ecs.NewAllocator(), Items: *ecs.NewStore[Entity]()}
}

func (s *Entities) insert(e *Entity) *Entity {
	e.ID = s.Alloc.Create()
	s.Items.Set(e.ID, e)
	return e
}

// SpawnStructure inserts a structure built from its catalog spec.
func (s *Entities) SpawnStructure(spec *data.StructureSpec, pos Position, rot Direction) *Entity {
	return s.insert(&Entity{
		Category:      CategoryStructure,
		StructureType: spec.Type,
		Footprint:     spec.Footprint,
		Position:      pos,
		Health:        spec.MaxHealth,
		MaxHealth:     spec.MaxHealth,
		Rotation:      rot.Normalize(),
	})
}

func (s *Entities) SpawnEnemy(pos Position, health int) *Entity {
	return s.insert(&Entity{
		Category:  CategoryEnemy,
		Footprint: data.Footprint{W: 1, H: 1},
		Position:  pos,
		Health:    health,
		MaxHealth: health,
	})
}

func (s *Entities) SpawnProjectile(pos Position) *Entity {
	return s.insert(&Entity{
		Category:  CategoryProjectile,
		Footprint: data.Footprint{W: 1, H: 1},
		Position:  pos,
		Health:    1,
		MaxHealth: 1,
	})
}

func (s *Entities) Remove(id ecs.EntityID) {
	s.Items.Remove(id)
}

// Damage lowers health, clamping at zero. An entity reaching zero is
// removed. Missing entities report (0, false).
func (s *Entities) Damage(id ecs.EntityID, amount int) (remaining int, died bool) {
	e, ok := s.Items.Get(id)
	if !ok {
		return 0, false
	}
	if amount < 0 {
		amount = 0
	}
	e.Health -= amount
	if e.Health <= 0 {
		e.Health = 0
		s.Items.Remove(id)
		return 0, true
	}
	return e.Health, false
}

func (s *Entities) UpdatePosition(id ecs.EntityID, pos Position) {
	if e, ok := s.Items.Get(id); ok {
		e.Position = pos
	}
}

// Entity returns the entity with the given ID, or nil.
func (s *Entities) Entity(id ecs.EntityID) *Entity {
	e, _ := s.Items.Get(id)
	return e
}

func (s *Entities) Exists(id ecs.EntityID) bool {
	return s.Items.Has(id)
}

func (s *Entities) Count() int {
	return s.Items.Len()
}

// All returns every entity sorted by ID.
func (s *Entities) All() []*Entity {
	out := make([]*Entity, 0, s.Items.Len())
	s.Items.Each(func(_ ecs.EntityID, e *Entity) {
		out = append(out, e)
	})
	return out
}

// OfCategory returns entities of one category sorted by ID.
func (s *Entities) OfCategory(c Category) []*Entity {
	var out []*Entity
	s.Items.Each(func(_ ecs.EntityID, e *Entity) {
		if e.Category == c {
			out = append(out, e)
		}
	})
	return out
}

// Structures returns structures of the given type sorted by ID.
func (s *Entities) Structures(t data.StructureType) []*Entity {
	var out []*Entity
	s.Items.Each(func(_ ecs.EntityID, e *Entity) {
		if e.Category == CategoryStructure && e.StructureType == t {
			out = append(out, e)
		}
	})
	return out
}

// StructureCounts counts live structures per type.
func (s *Entities) StructureCounts() map[data.StructureType]int {
	counts := make(map[data.StructureType]int)
	s.Items.Each(func(_ ecs.EntityID, e *Entity) {
		if e.Category == CategoryStructure {
			counts[e.StructureType]++
		}
	})
	return counts
}

// SelectableEntity picks the entity at a cell with fixed precedence:
// structure footprint, then enemy, then projectile. Ties go to the lowest ID.
func (s *Entities) SelectableEntity(c Cell) *Entity {
	var enemy, projectile *Entity
	for _, e := range s.All() {
		switch e.Category {
		case CategoryStructure:
			if e.Rect().Contains(c) {
				return e
			}
		case CategoryEnemy:
			if enemy == nil && e.Position.Cell() == c {
				enemy = e
			}
		case CategoryProjectile:
			if projectile == nil && e.Position.Cell() == c {
				projectile = e
			}
		}
	}
	if enemy != nil {
		return enemy
	}
	return projectile
}
