package services

import "strings"

// Difficulty of a project; it fixes the project's reward schedule.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyAdvanced     Difficulty = "Advanced"
	DifficultyExpert       Difficulty = "Expert"
)

// RewardSchedule is paid, unchanged, to every member when a project completes.
type RewardSchedule struct {
	XP    int64 `json:"xp"`
	Bits  int64 `json:"bits"`
	Bytes int64 `json:"bytes"`
}

var rewardTable = map[Difficulty]RewardSchedule{
	DifficultyBeginner:     {XP: 300, Bits: 200, Bytes: 3},
	DifficultyIntermediate: {XP: 600, Bits: 400, Bytes: 6},
	DifficultyAdvanced:     {XP: 1000, Bits: 700, Bytes: 12},
	DifficultyExpert:       {XP: 1500, Bits: 1200, Bytes: 20},
}

// Difficulties lists every difficulty from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced, DifficultyExpert}
}

// ParseDifficulty accepts any casing of a known difficulty.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties() {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, nil
		}
	}
	return "", ErrInvalidDifficulty
}

// RewardScheduleForDifficulty returns the canonical reward for d.
func RewardScheduleForDifficulty(d Difficulty) (RewardSchedule, error) {
	r, ok := rewardTable[d]
	if !ok {
		return RewardSchedule{}, ErrInvalidDifficulty
	}
	return r, nil
}
