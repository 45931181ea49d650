package world

import (
	"sort"

	"github.com/ironforge/outpost/internal/mathx"
)

// OreTypes are the flavours a patch can roll. Every type mines into the
// same ore item; the type only drives presentation and renewals.
var OreTypes = []string{"iron", "copper", "tin"}

type oreCandidate struct {
	cell  Cell
	score uint64
}

// ringCandidates lists free cells of a ring: on the board, not terrain,
// not restricted, not the base and not under any structure.
func (s *State) ringCandidates(ring int) []Cell {
	inner, outer := s.Rules.RingBounds(ring)
	if outer < inner {
		return nil
	}
	occ := BuildOccupancy(&s.Entities)
	base := s.Board.Base
	var out []Cell
	for y := base.Y - outer; y <= base.Y+outer; y++ {
		for x := base.X - outer; x <= base.X+outer; x++ {
			c := Cell{X: x, Y: y}
			d := mathx.Chebyshev(x, y, base.X, base.Y)
			if d < inner || d > outer || c == base {
				continue
			}
			if !s.Board.InBounds(c) || s.Board.IsBlocked(c) || s.Board.IsRestricted(c) || occ.Occupied(c) {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// pickSpaced ranks candidates by score (descending, then x, then y) and
// greedily takes up to n that respect the minimum spacing against live
// patches and each other.
func (s *State) pickSpaced(cands []oreCandidate, n int) []Cell {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.cell.X != b.cell.X {
			return a.cell.X < b.cell.X
		}
		return a.cell.Y < b.cell.Y
	})
	var chosen []Cell
	for _, c := range cands {
		if len(chosen) >= n {
			break
		}
		if !s.Ore.SpacedFrom(c.cell, s.Rules.OreMinSpacing, chosen) {
			continue
		}
		chosen = append(chosen, c.cell)
	}
	return chosen
}

func (s *State) newPatch(c Cell, ring int, oreType string) *OrePatch {
	id := s.Ore.NextPatchID
	if oreType == "" {
		oreType = OreTypes[mathx.Mix(s.Run.Seed, mathx.TagOreType, int64(id))%uint64(len(OreTypes))]
	}
	richness := 1 + int(mathx.Mix(s.Run.Seed, mathx.TagOreRichness, int64(id))%3)
	total := s.Rules.OreBaseAmount * (3 + richness + ring) / 4
	if total < 1 {
		total = 1
	}
	return s.Ore.AddPatch(&OrePatch{
		OreType:      oreType,
		Richness:     richness,
		Position:     s.Board.Snap(c),
		Ring:         ring,
		TotalOre:     total,
		RemainingOre: total,
	})
}

// RevealRing places the ring's patches. Candidate cells are ranked by a
// seeded hash so the same seed always reveals the same layout.
func (s *State) RevealRing(ring int) []*OrePatch {
	if ring < 0 || ring >= len(s.Rules.PatchesPerRing) {
		return nil
	}
	cells := s.ringCandidates(ring)
	cands := make([]oreCandidate, len(cells))
	for i, c := range cells {
		cands[i] = oreCandidate{cell: c, score: mathx.Mix(s.Run.Seed, mathx.TagOreReveal, int64(ring), int64(c.X), int64(c.Y))}
	}
	var out []*OrePatch
	for _, c := range s.pickSpaced(cands, s.Rules.PatchesPerRing[ring]) {
		out = append(out, s.newPatch(c, ring, ""))
	}
	if rs := s.Ore.Ring(ring); rs != nil {
		rs.Visibility = RingRevealed
		rs.SurveyEndsAtTick = 0
	}
	return out
}

// PlaceRenewal spawns one replacement patch for req, preferring cells near
// the inner or outer edge of its ring with a hash jitter. It returns nil
// when the ring has no spaced free cell left.
func (s *State) PlaceRenewal(req RenewalRequest, wave int) *OrePatch {
	inner, outer := s.Rules.RingBounds(req.Ring)
	if outer < inner {
		return nil
	}
	width := outer - inner
	base := s.Board.Base
	cells := s.ringCandidates(req.Ring)
	cands := make([]oreCandidate, len(cells))
	for i, c := range cells {
		d := mathx.Chebyshev(c.X, c.Y, base.X, base.Y)
		edge := d - inner
		if outer-d < edge {
			edge = outer - d
		}
		jitter := mathx.Mix(s.Run.Seed, mathx.TagOreRenew, int64(wave), int64(req.PatchID), int64(c.X), int64(c.Y)) % 1024
		cands[i] = oreCandidate{cell: c, score: uint64(width-edge)*1024 + jitter}
	}
	picked := s.pickSpaced(cands, 1)
	if len(picked) == 0 {
		return nil
	}
	return s.newPatch(picked[0], req.Ring, req.OreType)
}

// BindMiner attaches a miner to a usable, unbound patch under its
// footprint. A preferred patch ID wins when it qualifies. Returns the bound
// patch or nil.
func (s *State) BindMiner(miner *Entity, preferred uint64) *OrePatch {
	rect := miner.Rect()
	if preferred != 0 {
		if p := s.Ore.Patch(preferred); p != nil && p.Usable() && p.BoundMinerID == 0 && rect.Contains(p.Position.Cell()) {
			p.BoundMinerID = miner.ID
			return p
		}
	}
	for _, c := range rect.Cells() {
		for _, p := range s.Ore.Patches {
			if p.Position.Cell() == c && p.Usable() && p.BoundMinerID == 0 {
				p.BoundMinerID = miner.ID
				return p
			}
		}
	}
	return nil
}
