package world

import (
	"fmt"

	"github.com/ironforge/outpost/internal/data"
	"github.com/ironforge/outpost/internal/mathx"
)

// Options select a run. Board overrides the generated terrain; its size
// wins over the difficulty's board size.
type Options struct {
	Difficulty string
	Seed       uint64
	Board      *Board
}

// Bootstrap builds a fully populated world: board, HQ on the base cell,
// revealed starter ring, starting storage and currency.
func Bootstrap(cat *data.Catalog, opts Options) (*State, error) {
	if opts.Difficulty == "" {
		opts.Difficulty = "normal"
	}
	diff := cat.Difficulty(opts.Difficulty)
	if diff == nil {
		return nil, fmt.Errorf("unknown difficulty %q", opts.Difficulty)
	}
	hqSpec := cat.Structure(data.StructureHQ)

	rules := diff.Rules
	var board Board
	if opts.Board != nil {
		board = *opts.Board
		board.Reindex()
		rules.BoardWidth, rules.BoardHeight = board.Width, board.Height
	} else {
		board = GenerateBoard(rules.BoardWidth, rules.BoardHeight, opts.Seed)
	}
	if !board.InBounds(board.Base) {
		return nil, fmt.Errorf("base %s is off the board", board.Base)
	}
	if board.SpawnSpan() == 0 {
		return nil, fmt.Errorf("board declares no spawn cells")
	}

	s := NewState(rules, board)
	s.Run.Difficulty = diff.Name
	s.Run.Seed = opts.Seed

	hq := s.Entities.SpawnStructure(hqSpec, s.Board.Snap(s.Board.Base), North)
	s.Run.HQ = hq.ID

	if !SpawnsConnected(s, cat) {
		return nil, fmt.Errorf("spawn cells cannot reach the base")
	}

	s.RevealRing(0)

	s.Economy.Currency = rules.StartingCurrency
	s.Economy.StorageCapacity = rules.StorageBaseCapacity
	for _, iq := range rules.StartingStorage {
		s.Economy.Storage.Add(iq.Item, iq.Qty)
	}
	s.Economy.EfficiencyPermille = 1000
	s.Economy.ThroughputPermille = 1000
	s.Economy.RecomputeInventory()

	s.Threat.GraceEndsAtTick = uint64(rules.GraceTicks)
	s.Threat.NextWaveTick = uint64(rules.GraceTicks)
	if rules.TrickleEveryTicks > 0 {
		s.Threat.NextTrickleTick = uint64(rules.GraceTicks + rules.TrickleEveryTicks)
	}
	return s, nil
}

// GenerateBoard lays out the default terrain: base on the west edge,
// spawn column on the east edge, hash-scattered rocks and ramps. The base
// row and the spawn column stay clear so every spawn cell starts connected.
func GenerateBoard(w, h int, seed uint64) Board {
	b := Board{
		Width:     w,
		Height:    h,
		Base:      Cell{X: 3, Y: h / 2},
		SpawnX:    w - 1,
		SpawnYMin: max(0, h/2-4),
		SpawnYMax: min(h-1, h/2+3),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := Cell{X: x, Y: y}
			near := mathx.Chebyshev(x, y, b.Base.X, b.Base.Y) <= 1
			if x == b.SpawnX || (near && c != b.Base) {
				b.Restricted = append(b.Restricted, c)
				continue
			}
			if y == b.Base.Y || x == b.SpawnX-1 || mathx.Chebyshev(x, y, b.Base.X, b.Base.Y) <= 3 {
				continue
			}
			roll := mathx.Mix(seed, mathx.TagTerrain, int64(x), int64(y)) % 100
			switch {
			case roll < 5:
				b.Blocked = append(b.Blocked, c)
			case roll < 8:
				b.Ramps = append(b.Ramps, Ramp{Cell: c, Elevation: 1 + int(roll%2)})
			}
		}
	}
	return b
}
