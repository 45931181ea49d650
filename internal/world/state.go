package world

import (
	"encoding/json"
	"fmt"

	"github.com/ironforge/outpost/internal/core/ecs"
	"github.com/ironforge/outpost/internal/data"
)

// RunPhase is the coarse lifecycle of a run.
type RunPhase string

const (
	PhaseInitializing RunPhase = "initializing"
	PhaseGracePeriod  RunPhase = "grace_period"
	PhasePlaying      RunPhase = "playing"
	PhaseGameOver     RunPhase = "game_over"
)

// RunState holds run-level flags. Emitted records one-shot events that
// already fired.
type RunState struct {
	Phase      RunPhase        `json:"phase"`
	Difficulty string          `json:"difficulty"`
	Seed       uint64          `json:"seed"`
	HQ         ecs.EntityID    `json:"hq"`
	Extracted  bool            `json:"extracted"`
	Emitted    map[string]bool `json:"emitted"`
}

// Once reports whether key is being marked for the first time.
func (r *RunState) Once(key string) bool {
	if r.Emitted == nil {
		r.Emitted = map[string]bool{}
	}
	if r.Emitted[key] {
		return false
	}
	r.Emitted[key] = true
	return true
}

// State is the whole simulated world. Only the engine pipeline mutates it;
// everyone else reads clones.
type State struct {
	Tick       uint64            `json:"tick"`
	Rules      data.Rules        `json:"rules"`
	Board      Board             `json:"board"`
	Entities   Entities          `json:"entities"`
	Economy    EconomyState      `json:"economy"`
	Threat     ThreatState       `json:"threat"`
	Combat     CombatState       `json:"combat"`
	Ore        OreLifecycleState `json:"ore"`
	Bottleneck BottleneckState   `json:"bottleneck"`
	Run        RunState          `json:"run"`
}

// NewState returns an empty world for the given rules and board.
func NewState(rules data.Rules, board Board) *State {
	s := &State{
		Rules:      rules,
		Board:      board,
		Entities:   NewEntities(),
		Economy:    NewEconomyState(),
		Combat:     NewCombatState(),
		Ore:        NewOreLifecycleState(len(rules.RingRadii)),
		Bottleneck: NewBottleneckState(),
		Run:        RunState{Phase: PhaseInitializing, Emitted: map[string]bool{}},
	}
	return s
}

// Frozen reports whether the run ended. A frozen world only advances its
// tick counter.
func (s *State) Frozen() bool {
	return s.Run.Phase == PhaseGameOver || s.Run.Extracted
}

// HQ returns the HQ entity, or nil once it was destroyed.
func (s *State) HQ() *Entity {
	return s.Entities.Entity(s.Run.HQ)
}

// BaseIntegrity is the HQ health, 0 when it is gone.
func (s *State) BaseIntegrity() int {
	if hq := s.HQ(); hq != nil {
		return hq.Health
	}
	return 0
}

func (s *State) normalize() {
	s.Economy.ensureMaps()
	s.Combat.ensureMaps()
	if s.Bottleneck.Hysteresis == nil {
		s.Bottleneck.Hysteresis = map[string]Hysteresis{}
	}
	if s.Run.Emitted == nil {
		s.Run.Emitted = map[string]bool{}
	}
	s.Board.Reindex()
}

// Encode returns the canonical JSON of the world. Maps encode with sorted
// keys and entity stores as ID-sorted arrays, so equal worlds encode to
// equal bytes.
func (s *State) Encode() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode world: %w", err)
	}
	return b, nil
}

// Decode parses a world produced by Encode.
func Decode(b []byte) (*State, error) {
	s := &State{}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode world: %w", err)
	}
	return s, nil
}

// UnmarshalJSON decodes the stored fields and rebuilds derived indexes.
func (s *State) UnmarshalJSON(b []byte) error {
	type plain State
	if err := json.Unmarshal(b, (*plain)(s)); err != nil {
		return err
	}
	s.normalize()
	return nil
}

// Clone returns a deep copy that shares nothing with s.
func (s *State) Clone() *State {
	b, err := s.Encode()
	if err != nil {
		panic(err)
	}
	c, err := Decode(b)
	if err != nil {
		panic(err)
	}
	return c
}
