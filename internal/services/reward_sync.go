package services

import (
	"context"

	"github.com/bitbridge/backend/internal/models"
	"gorm.io/gorm"
)

// ScheduleDrift is an ongoing project whose stored reward differs from the
// table for its difficulty.
type ScheduleDrift struct {
	ProjectID  uint           `json:"project_id"`
	Name       string         `json:"name"`
	Difficulty string         `json:"difficulty"`
	Stored     RewardSchedule `json:"stored"`
	Canonical  RewardSchedule `json:"canonical"`
}

// SyncRewardSchedules finds ongoing projects whose reward columns disagree
// with RewardScheduleForDifficulty and, unless dryRun is set, rewrites them.
// Completed projects keep the reward they were paid out with. Projects with
// an unknown difficulty are skipped.
func SyncRewardSchedules(ctx context.Context, db *gorm.DB, dryRun bool) ([]ScheduleDrift, error) {
	var projects []models.Project
	if err := db.WithContext(ctx).
		Where("status = ?", models.ProjectStatusOngoing).
		Order("id").
		Find(&projects).Error; err != nil {
		return nil, persistenceErr("list ongoing projects", err)
	}

	var drifts []ScheduleDrift
	for _, p := range projects {
		canonical, err := RewardScheduleForDifficulty(Difficulty(p.Difficulty))
		if err != nil {
			continue
		}
		stored := RewardSchedule{XP: p.RewardXP, Bits: p.RewardBits, Bytes: p.RewardBytes}
		if stored == canonical {
			continue
		}
		drifts = append(drifts, ScheduleDrift{
			ProjectID:  p.ID,
			Name:       p.Name,
			Difficulty: p.Difficulty,
			Stored:     stored,
			Canonical:  canonical,
		})
	}

	if dryRun || len(drifts) == 0 {
		return drifts, nil
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range drifts {
			// The status guard keeps a project completed meanwhile untouched
			if err := tx.Model(&models.Project{}).
				Where("id = ? AND status = ?", d.ProjectID, models.ProjectStatusOngoing).
				Updates(map[string]interface{}{
					"reward_xp":    d.Canonical.XP,
					"reward_bits":  d.Canonical.Bits,
					"reward_bytes": d.Canonical.Bytes,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, persistenceErr("sync reward schedules", err)
	}
	return drifts, nil
}
