package system

// Tuning supplies the batch sizes and rewards that designers tweak without
// touching the systems. Implementations must be pure functions of their
// arguments.
type Tuning interface {
	WaveBatchSize(wave int, difficulty string) int
	RaidBatchSize(wave int, difficulty string) int
	MilestoneReward(wave int, difficulty string) int
}

// DefaultTuning is the built-in curve; the Lua tuning script mirrors it.
type DefaultTuning struct{}

func difficultyPercent(difficulty string) int {
	switch difficulty {
	case "easy":
		return 80
	case "hard":
		return 130
	}
	return 100
}

func (DefaultTuning) WaveBatchSize(wave int, difficulty string) int {
	return max(1, (4+2*wave)*difficultyPercent(difficulty)/100)
}

func (DefaultTuning) RaidBatchSize(wave int, difficulty string) int {
	return max(1, (2+wave/2)*difficultyPercent(difficulty)/100)
}

func (DefaultTuning) MilestoneReward(wave int, _ string) int {
	return 25 * wave
}
