package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bitbridge/backend/internal/models"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	rewardLogModule    = "rewards"
	actionRewardIssued = "RewardIssued"
	actionLevelUp      = "LevelUp"
)

type rewardIssuedExtra struct {
	ProjectName string `json:"project_name"`
	XP          int64  `json:"xp"`
	Bits        int64  `json:"bits"`
	Bytes       int64  `json:"bytes"`
	XPBefore    int64  `json:"xp_before"`
	XPAfter     int64  `json:"xp_after"`
}

type levelUpExtra struct {
	LevelBefore int `json:"level_before"`
	LevelAfter  int `json:"level_after"`
}

// NewRewardLogProcessor returns a RewardProcessor that records one
// RewardIssued entry per credited member and a LevelUp entry for each
// member who crossed a level. Members already logged for the project are
// skipped, so a redelivered task writes nothing twice.
func NewRewardLogProcessor(db *gorm.DB) RewardProcessor {
	return func(ctx context.Context, result *CompletionResult) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var logged []uint
			if err := tx.Model(&models.SystemLog{}).
				Where("module = ? AND action = ? AND project_id = ?", rewardLogModule, actionRewardIssued, result.ProjectID).
				Pluck("user_id", &logged).Error; err != nil {
				return err
			}

			pending := lo.Filter(result.Credits, func(c MemberCredit, _ int) bool {
				return !lo.Contains(logged, c.UserID)
			})
			if len(pending) == 0 {
				return nil
			}

			entries := make([]models.SystemLog, 0, len(pending)*2)
			now := time.Now()
			for _, c := range pending {
				entries = append(entries, rewardEntries(result, c, now)...)
			}

			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
			logger.Info().
				Uint("project_id", result.ProjectID).
				Int("entries", len(entries)).
				Msg("reward activity recorded")
			return nil
		})
	}
}

func rewardEntries(result *CompletionResult, c MemberCredit, now time.Time) []models.SystemLog {
	userID := c.UserID
	projectID := result.ProjectID

	entries := []models.SystemLog{{
		Level:     "info",
		Module:    rewardLogModule,
		Action:    actionRewardIssued,
		Message:   fmt.Sprintf("Earned %d XP, %d bits and %d bytes from %q", result.Reward.XP, result.Reward.Bits, result.Reward.Bytes, result.ProjectName),
		UserID:    &userID,
		ProjectID: &projectID,
		Extra: encodeExtra(rewardIssuedExtra{
			ProjectName: result.ProjectName,
			XP:          result.Reward.XP,
			Bits:        result.Reward.Bits,
			Bytes:       result.Reward.Bytes,
			XPBefore:    c.XPBefore,
			XPAfter:     c.XPAfter,
		}),
		CreatedAt: now,
	}}

	if c.LeveledUp() {
		entries = append(entries, models.SystemLog{
			Level:     "info",
			Module:    rewardLogModule,
			Action:    actionLevelUp,
			Message:   fmt.Sprintf("Reached level %d", c.LevelAfter),
			UserID:    &userID,
			ProjectID: &projectID,
			Extra:     encodeExtra(levelUpExtra{LevelBefore: c.LevelBefore, LevelAfter: c.LevelAfter}),
			CreatedAt: now,
		})
	}
	return entries
}
