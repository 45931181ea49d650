package world

import (
	"sort"

	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/mathx"
)

// OrePatch is a finite ore deposit.
type OrePatch struct {
	ID               uint64       `json:"id"`
	OreType          string       `json:"ore_type"`
	Richness         int          `json:"richness"`
	Position         Position     `json:"position"`
	Ring             int          `json:"ring"`
	TotalOre         int          `json:"total_ore"`
	RemainingOre     int          `json:"remaining_ore"`
	BoundMinerID     ecs.EntityID `json:"bound_miner_id,omitempty"`
	ExhaustedAtTick  *uint64      `json:"exhausted_at_tick,omitempty"`
	RenewalProcessed bool         `json:"renewal_processed"`
}

// Exhausted reports whether the patch has been marked exhausted.
func (p *OrePatch) Exhausted() bool { return p.ExhaustedAtTick != nil }

// Usable reports whether a miner can still draw from the patch.
func (p *OrePatch) Usable() bool { return !p.Exhausted() && p.RemainingOre > 0 }

// RingVisibility is the exploration state of an ore ring.
type RingVisibility string

const (
	RingLocked    RingVisibility = "locked"
	RingSurveying RingVisibility = "surveying"
	RingRevealed  RingVisibility = "revealed"
)

type RingState struct {
	Ring             int            `json:"ring"`
	Visibility       RingVisibility `json:"visibility"`
	SurveyEndsAtTick uint64         `json:"survey_ends_at_tick,omitempty"`
	ResearchCenterID ecs.EntityID   `json:"research_center_id,omitempty"`
}

// RenewalRequest asks for a replacement of an exhausted patch.
type RenewalRequest struct {
	PatchID         uint64 `json:"patch_id"`
	Ring            int    `json:"ring"`
	OreType         string `json:"ore_type"`
	RequestedAtTick uint64 `json:"requested_at_tick"`
}

// OreLifecycleState tracks every patch ever created plus ring exploration
// and the renewal queue. Patches stay sorted by ID.
type OreLifecycleState struct {
	Patches         []*OrePatch      `json:"patches"`
	NextPatchID     uint64           `json:"next_patch_id"`
	Rings           []RingState      `json:"rings"`
	RenewalQueue    []RenewalRequest `json:"renewal_queue"`
	LastRenewalWave int              `json:"last_renewal_wave"`
	RenewalsSpawned int              `json:"renewals_spawned"`
	RenewalsSkipped int              `json:"renewals_skipped"`
}

func NewOreLifecycleState(rings int) OreLifecycleState {
	s := OreLifecycleState{NextPatchID: 1, Rings: make([]RingState, rings)}
	for i := range s.Rings {
		s.Rings[i] = RingState{Ring: i, Visibility: RingLocked}
	}
	return s
}

// AddPatch assigns the next patch ID and appends the patch.
func (s *OreLifecycleState) AddPatch(p *OrePatch) *OrePatch {
	if s.NextPatchID == 0 {
		s.NextPatchID = 1
	}
	p.ID = s.NextPatchID
	s.NextPatchID++
	s.Patches = append(s.Patches, p)
	return p
}

// Patch returns a patch by ID, or nil.
func (s *OreLifecycleState) Patch(id uint64) *OrePatch {
	i := sort.Search(len(s.Patches), func(i int) bool { return s.Patches[i].ID >= id })
	if i < len(s.Patches) && s.Patches[i].ID == id {
		return s.Patches[i]
	}
	return nil
}

// UsablePatchAt returns the lowest-ID usable patch at a cell, or nil.
// Exhausted patches are invisible to ore detection.
func (s *OreLifecycleState) UsablePatchAt(c Cell) *OrePatch {
	for _, p := range s.Patches {
		if p.Position.Cell() == c && p.Usable() {
			return p
		}
	}
	return nil
}

// PatchForMiner returns the patch bound to a miner, or nil.
func (s *OreLifecycleState) PatchForMiner(miner ecs.EntityID) *OrePatch {
	for _, p := range s.Patches {
		if p.BoundMinerID == miner {
			return p
		}
	}
	return nil
}

// Active returns the non-exhausted patches.
func (s *OreLifecycleState) Active() []*OrePatch {
	var out []*OrePatch
	for _, p := range s.Patches {
		if !p.Exhausted() {
			out = append(out, p)
		}
	}
	return out
}

// SpacedFrom reports whether c keeps at least minSpacing Chebyshev distance
// from every non-exhausted patch and from every cell in extra.
func (s *OreLifecycleState) SpacedFrom(c Cell, minSpacing int, extra []Cell) bool {
	for _, p := range s.Patches {
		if p.Exhausted() {
			continue
		}
		if mathx.Chebyshev(c.X, c.Y, p.Position.X, p.Position.Y) < minSpacing {
			return false
		}
	}
	for _, o := range extra {
		if mathx.Chebyshev(c.X, c.Y, o.X, o.Y) < minSpacing {
			return false
		}
	}
	return true
}

// Ring returns the ring state for index r, or nil.
func (s *OreLifecycleState) Ring(r int) *RingState {
	if r < 0 || r >= len(s.Rings) {
		return nil
	}
	return &s.Rings[r]
}
