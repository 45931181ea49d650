package system

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseCommand    Phase = iota // 0: apply this tick's sorted commands
	PhaseEconomy                 // 1: power, mining, logistics, production
	PhaseOre                     // 2: exhaustion, surveys, renewals
	PhaseThreat                  // 3: wave cycle, raids, spawn queue
	PhaseMovement                // 4: enemy pathing and base hits
	PhaseCombat                  // 5: wall networks, turret fire
	PhaseProjectile              // 6: impacts and kill rewards
	PhaseDiagnose                // 7: bottleneck detection
	PhaseCleanup                 // 8: prune orphaned runtimes
)

var phaseNames = [...]string{
	"command", "economy", "ore", "threat", "movement",
	"combat", "projectile", "diagnose", "cleanup",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is the interface every simulation system implements. C is the
// per-tick context the runner threads through the pipeline.
type System[C any] interface {
	Phase() Phase
	Update(ctx C)
}
