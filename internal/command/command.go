// Package command defines the player commands the engine consumes: a
// tagged payload union, the deterministic sort order, and the JSON wire
// form used by command logs.
package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/world"
)

// Kind is the stable discriminant of a payload. It is written to logs and
// leads every sort token.
type Kind string

const (
	KindPlaceStructure      Kind = "place_structure"
	KindRemoveStructure     Kind = "remove_structure"
	KindPlaceConveyor       Kind = "place_conveyor"
	KindConfigureConveyorIO Kind = "configure_conveyor_io"
	KindRotateBuilding      Kind = "rotate_building"
	KindPinRecipe           Kind = "pin_recipe"
	KindStartOreSurvey      Kind = "start_ore_survey"
	KindTriggerWave         Kind = "trigger_wave"
	KindExtract             Kind = "extract"
)

// Payload is one command body.
type Payload interface {
	Kind() Kind
	// SortToken is a canonical key built from the kind and every field.
	SortToken() string
}

// Command is a payload scheduled for a tick by an actor.
type Command struct {
	TargetTick uint64
	ActorID    uint64
	Payload    Payload
}

func (c Command) String() string {
	return fmt.Sprintf("tick=%d actor=%d %s", c.TargetTick, c.ActorID, c.Payload.SortToken())
}

// Sort orders commands by (actor, sort token). The sort is stable, so
// byte-identical commands keep their relative order.
func Sort(cmds []Command) {
	sort.SliceStable(cmds, func(i, j int) bool {
		a, b := cmds[i], cmds[j]
		if a.ActorID != b.ActorID {
			return a.ActorID < b.ActorID
		}
		return a.Payload.SortToken() < b.Payload.SortToken()
	})
}

type token struct{ b strings.Builder }

func newToken(k Kind) *token {
	t := &token{}
	t.b.WriteString(string(k))
	return t
}

func (t *token) field(name string, v any) *token {
	fmt.Fprintf(&t.b, "|%s=%v", name, v)
	return t
}

func (t *token) optDir(name string, d *world.Direction) *token {
	if d == nil {
		return t.field(name, "-")
	}
	return t.field(name, int(*d))
}

func (t *token) String() string { return t.b.String() }

type PlaceStructure struct {
	StructureType data.StructureType `json:"structure_type"`
	Position      world.Cell         `json:"position"`
	Rotation      world.Direction    `json:"rotation"`
	TargetPatchID *uint64            `json:"target_patch_id,omitempty"`
}

func (PlaceStructure) Kind() Kind { return KindPlaceStructure }
func (p PlaceStructure) SortToken() string {
	t := newToken(KindPlaceStructure).
		field("type", p.StructureType).
		field("x", p.Position.X).field("y", p.Position.Y).
		field("rot", int(p.Rotation))
	if p.TargetPatchID != nil {
		t.field("patch", *p.TargetPatchID)
	} else {
		t.field("patch", "-")
	}
	return t.String()
}

type RemoveStructure struct {
	EntityID ecs.EntityID `json:"entity_id"`
}

func (RemoveStructure) Kind() Kind { return KindRemoveStructure }
func (p RemoveStructure) SortToken() string {
	return newToken(KindRemoveStructure).field("id", uint64(p.EntityID)).String()
}

// PlaceConveyor builds a carrier (conveyor by default) facing Direction.
// Input and Output override the default back-to-front flow.
type PlaceConveyor struct {
	Carrier   data.StructureType `json:"carrier,omitempty"`
	Position  world.Cell         `json:"position"`
	Direction world.Direction    `json:"direction"`
	Input     *world.Direction   `json:"input,omitempty"`
	Output    *world.Direction   `json:"output,omitempty"`
}

func (PlaceConveyor) Kind() Kind { return KindPlaceConveyor }
func (p PlaceConveyor) SortToken() string {
	return newToken(KindPlaceConveyor).
		field("carrier", p.CarrierType()).
		field("x", p.Position.X).field("y", p.Position.Y).
		field("dir", int(p.Direction)).
		optDir("in", p.Input).optDir("out", p.Output).
		String()
}

// CarrierType resolves the default carrier.
func (p PlaceConveyor) CarrierType() data.StructureType {
	if p.Carrier == "" {
		return data.StructureConveyor
	}
	return p.Carrier
}

type ConfigureConveyorIO struct {
	EntityID ecs.EntityID    `json:"entity_id"`
	Input    world.Direction `json:"input"`
	Output   world.Direction `json:"output"`
}

func (ConfigureConveyorIO) Kind() Kind { return KindConfigureConveyorIO }
func (p ConfigureConveyorIO) SortToken() string {
	return newToken(KindConfigureConveyorIO).
		field("id", uint64(p.EntityID)).
		field("in", int(p.Input)).field("out", int(p.Output)).
		String()
}

type RotateBuilding struct {
	EntityID ecs.EntityID `json:"entity_id"`
}

func (RotateBuilding) Kind() Kind { return KindRotateBuilding }
func (p RotateBuilding) SortToken() string {
	return newToken(KindRotateBuilding).field("id", uint64(p.EntityID)).String()
}

// PinRecipe fixes the recipe a producer runs. An empty RecipeID unpins.
type PinRecipe struct {
	EntityID ecs.EntityID `json:"entity_id"`
	RecipeID string       `json:"recipe_id"`
}

func (PinRecipe) Kind() Kind { return KindPinRecipe }
func (p PinRecipe) SortToken() string {
	return newToken(KindPinRecipe).field("id", uint64(p.EntityID)).field("recipe", p.RecipeID).String()
}

// StartOreSurvey begins surveying an ore ring. NodeID is the ring index.
type StartOreSurvey struct {
	NodeID           int          `json:"node_id"`
	ResearchCenterID ecs.EntityID `json:"research_center_id"`
}

func (StartOreSurvey) Kind() Kind { return KindStartOreSurvey }
func (p StartOreSurvey) SortToken() string {
	return newToken(KindStartOreSurvey).field("node", p.NodeID).field("center", uint64(p.ResearchCenterID)).String()
}

type TriggerWave struct{}

func (TriggerWave) Kind() Kind { return KindTriggerWave }
func (TriggerWave) SortToken() string { return string(KindTriggerWave) }

// Extract ends the run voluntarily and freezes the world.
type Extract struct{}

func (Extract) Kind() Kind { return KindExtract }
func (Extract) SortToken() string { return string(KindExtract) }
