// Package levelcurve maps accumulated experience points to levels.
//
// The XP needed to reach level n is floor(100 * (n-1)^1.5). Level is always
// derived from XP and never stored.
package levelcurve

import (
	"math"
	"math/big"
)

// MaxLevel is the first level whose requirement does not fit in an int64.
// Every int64 XP total maps to a level below it.
const MaxLevel = 1 << 38

// Progress describes where an XP total sits inside its current level.
type Progress struct {
	CurrentLevel         int     `json:"current_level"`
	CurrentLevelXP       int64   `json:"current_level_xp"`
	NextLevelXP          int64   `json:"next_level_xp"`
	ProgressInLevel      int64   `json:"progress_in_level"`
	XPNeededForNextLevel int64   `json:"xp_needed_for_next_level"`
	ProgressPercentage   float64 `json:"progress_percentage"`
}

var bigTenThousand = big.NewInt(10_000)

// XPRequiredForLevel returns the total XP needed to reach level.
// Level 1 (and anything below it) needs 0.
func XPRequiredForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	// 100 * n^1.5 == sqrt(10000 * n^3), so the integer square root gives an
	// exact floor without float rounding at perfect squares.
	n := big.NewInt(int64(level - 1))
	v := new(big.Int).Mul(n, n)
	v.Mul(v, n)
	v.Mul(v, bigTenThousand)
	v.Sqrt(v)
	if !v.IsInt64() {
		return math.MaxInt64
	}
	return v.Int64()
}

// LevelFromXP returns the largest level whose requirement is <= xp.
// Negative xp is treated as 0.
func LevelFromXP(xp int64) int {
	if xp <= 0 {
		return 1
	}

	lo, hi := 1, 2
	for hi < MaxLevel && reached(hi, xp) {
		lo = hi
		hi *= 2
	}

	// invariant: reached(lo, xp) && !reached(hi, xp)
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if reached(mid, xp) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

// reached reports whether xp covers level. A saturated requirement is never
// reached, which keeps xp == math.MaxInt64 below MaxLevel.
func reached(level int, xp int64) bool {
	req := XPRequiredForLevel(level)
	return req < math.MaxInt64 && req <= xp
}

// ProgressToNextLevel returns progress-bar data for xp.
func ProgressToNextLevel(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	level := LevelFromXP(xp)
	current := XPRequiredForLevel(level)
	next := XPRequiredForLevel(level + 1)

	p := Progress{
		CurrentLevel:         level,
		CurrentLevelXP:       current,
		NextLevelXP:          next,
		ProgressInLevel:      xp - current,
		XPNeededForNextLevel: next - current,
	}
	if p.XPNeededForNextLevel > 0 {
		p.ProgressPercentage = 100 * float64(p.ProgressInLevel) / float64(p.XPNeededForNextLevel)
	}
	p.ProgressPercentage = math.Max(0, math.Min(100, p.ProgressPercentage))
	return p
}

// LevelsGained reports how many levels an XP change from before to after crosses.
func LevelsGained(before, after int64) int {
	gained := LevelFromXP(after) - LevelFromXP(before)
	if gained < 0 {
		return 0
	}
	return gained
}
