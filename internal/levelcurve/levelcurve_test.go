package levelcurve

import (
	"math"
	"testing"
)

func TestXPRequiredForLevel(t *testing.T) {
	tests := []struct {
		level    int
		expected int64
	}{
		{level: -3, expected: 0},
		{level: 0, expected: 0},
		{level: 1, expected: 0},
		{level: 2, expected: 100},
		{level: 3, expected: 282},
		{level: 4, expected: 519},
		{level: 5, expected: 800},
		{level: 10, expected: 2700},
		{level: 11, expected: 3162},
		{level: 101, expected: 100000},
	}

	for _, tt := range tests {
		if got := XPRequiredForLevel(tt.level); got != tt.expected {
			t.Errorf("XPRequiredForLevel(%d) = %d, expected %d", tt.level, got, tt.expected)
		}
	}
}

func TestXPRequiredForLevel_StrictlyIncreasing(t *testing.T) {
	prev := XPRequiredForLevel(1)
	for level := 2; level <= 5000; level++ {
		cur := XPRequiredForLevel(level)
		if cur <= prev {
			t.Fatalf("curve not strictly increasing at level %d: %d <= %d", level, cur, prev)
		}
		prev = cur
	}
}

func TestXPRequiredForLevel_SaturatesAtMaxLevel(t *testing.T) {
	if got := XPRequiredForLevel(MaxLevel); got != math.MaxInt64 {
		t.Errorf("XPRequiredForLevel(MaxLevel) = %d, expected saturation", got)
	}
	if XPRequiredForLevel(MaxLevel/2) == math.MaxInt64 {
		t.Error("requirement at MaxLevel/2 should still fit in int64")
	}
}

func TestLevelFromXP(t *testing.T) {
	tests := []struct {
		name     string
		xp       int64
		expected int
	}{
		{name: "zero", xp: 0, expected: 1},
		{name: "negative treated as zero", xp: -50, expected: 1},
		{name: "just below level 2", xp: 99, expected: 1},
		{name: "exactly level 2", xp: 100, expected: 2},
		{name: "just below level 3", xp: 281, expected: 2},
		{name: "exactly level 3", xp: 282, expected: 3},
		{name: "one beginner project", xp: 300, expected: 3},
		{name: "exactly level 4", xp: 519, expected: 4},
		{name: "exactly level 10", xp: 2700, expected: 10},
		{name: "large", xp: 100000, expected: 101},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LevelFromXP(tt.xp); got != tt.expected {
				t.Errorf("LevelFromXP(%d) = %d, expected %d", tt.xp, got, tt.expected)
			}
		})
	}
}

func TestLevelFromXP_Bracketed(t *testing.T) {
	samples := []int64{0, 1, 50, 99, 100, 101, 281, 282, 283, 518, 519, 520, 1234, 9999, 54321, 1_000_000, 987_654_321}
	for xp := int64(0); xp <= 20000; xp += 7 {
		samples = append(samples, xp)
	}

	for _, xp := range samples {
		level := LevelFromXP(xp)
		if level < 1 {
			t.Fatalf("LevelFromXP(%d) = %d, expected >= 1", xp, level)
		}
		if XPRequiredForLevel(level) > xp {
			t.Errorf("xp=%d: requirement of level %d (%d) exceeds xp", xp, level, XPRequiredForLevel(level))
		}
		if xp >= XPRequiredForLevel(level+1) {
			t.Errorf("xp=%d: should already be level %d", xp, level+1)
		}
	}
}

func TestLevelFromXP_Deterministic(t *testing.T) {
	for _, xp := range []int64{0, 300, 4242, 1 << 40} {
		if LevelFromXP(xp) != LevelFromXP(xp) {
			t.Errorf("LevelFromXP(%d) returned different results", xp)
		}
	}
}

func TestLevelFromXP_HugeXPStaysInRange(t *testing.T) {
	xps := []int64{
		100_000_000_000,
		XPRequiredForLevel(1_000_001) + 5,
		200_000_000_000,
		1_000_000_000_000_000,
		1 << 62,
		math.MaxInt64 - 1,
		math.MaxInt64,
	}

	for _, xp := range xps {
		level := LevelFromXP(xp)
		if level >= MaxLevel {
			t.Errorf("LevelFromXP(%d) = %d, expected below MaxLevel", xp, level)
			continue
		}
		current := XPRequiredForLevel(level)
		next := XPRequiredForLevel(level + 1)
		if current > xp {
			t.Errorf("LevelFromXP(%d) = %d but that level needs %d", xp, level, current)
		}
		if xp >= next && !(xp == math.MaxInt64 && next == math.MaxInt64) {
			t.Errorf("LevelFromXP(%d) = %d but level %d needs only %d", xp, level, level+1, next)
		}

		p := ProgressToNextLevel(xp)
		if p.ProgressInLevel > p.XPNeededForNextLevel {
			t.Errorf("ProgressToNextLevel(%d): progress %d exceeds span %d", xp, p.ProgressInLevel, p.XPNeededForNextLevel)
		}
	}
}

func TestLevelFromXP_AboveOneMillion(t *testing.T) {
	xp := XPRequiredForLevel(1_000_001) + 5
	if got := LevelFromXP(xp); got != 1_000_001 {
		t.Errorf("LevelFromXP(%d) = %d, expected 1000001", xp, got)
	}
}

func TestProgressToNextLevel_BeginnerCompletion(t *testing.T) {
	p := ProgressToNextLevel(300)

	if p.CurrentLevel != 3 {
		t.Errorf("CurrentLevel = %d, expected 3", p.CurrentLevel)
	}
	if p.CurrentLevelXP != 282 {
		t.Errorf("CurrentLevelXP = %d, expected 282", p.CurrentLevelXP)
	}
	if p.NextLevelXP != 519 {
		t.Errorf("NextLevelXP = %d, expected 519", p.NextLevelXP)
	}
	if p.ProgressInLevel != 18 {
		t.Errorf("ProgressInLevel = %d, expected 18", p.ProgressInLevel)
	}
	if p.XPNeededForNextLevel != 237 {
		t.Errorf("XPNeededForNextLevel = %d, expected 237", p.XPNeededForNextLevel)
	}
	if math.Abs(p.ProgressPercentage-7.594936708860759) > 1e-9 {
		t.Errorf("ProgressPercentage = %f, expected ~7.59", p.ProgressPercentage)
	}
}

func TestProgressToNextLevel_Zero(t *testing.T) {
	p := ProgressToNextLevel(0)

	if p.CurrentLevel != 1 || p.CurrentLevelXP != 0 || p.NextLevelXP != 100 {
		t.Errorf("unexpected progress for 0 xp: %+v", p)
	}
	if p.ProgressPercentage != 0 {
		t.Errorf("ProgressPercentage = %f, expected 0", p.ProgressPercentage)
	}
}

func TestProgressToNextLevel_PercentageBounds(t *testing.T) {
	for xp := int64(0); xp <= 50000; xp += 13 {
		p := ProgressToNextLevel(xp)
		if p.ProgressPercentage < 0 || p.ProgressPercentage > 100 {
			t.Fatalf("xp=%d: percentage %f out of [0,100]", xp, p.ProgressPercentage)
		}
		if p.ProgressInLevel < 0 || p.ProgressInLevel >= p.XPNeededForNextLevel {
			t.Fatalf("xp=%d: progress %d outside level span %d", xp, p.ProgressInLevel, p.XPNeededForNextLevel)
		}
	}
}

func TestLevelsGained(t *testing.T) {
	tests := []struct {
		before, after int64
		expected      int
	}{
		{before: 0, after: 0, expected: 0},
		{before: 0, after: 300, expected: 2},
		{before: 300, after: 600, expected: 1},
		{before: 300, after: 310, expected: 0},
		{before: 600, after: 300, expected: 0},
	}

	for _, tt := range tests {
		if got := LevelsGained(tt.before, tt.after); got != tt.expected {
			t.Errorf("LevelsGained(%d, %d) = %d, expected %d", tt.before, tt.after, got, tt.expected)
		}
	}
}
