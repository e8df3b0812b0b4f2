package services

import (
	"testing"

	"github.com/bitbridge/backend/internal/config"
	"github.com/bitbridge/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createTestProfile(t *testing.T, db *gorm.DB, username string, xp int64) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		Username:         username,
		DisplayName:      username,
		Role:             "user",
		IsActive:         true,
		ExperiencePoints: xp,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func createTestProject(t *testing.T, db *gorm.DB, name string, difficulty Difficulty, creatorID uint) *models.Project {
	t.Helper()

	reward, err := RewardScheduleForDifficulty(difficulty)
	require.NoError(t, err)

	project := &models.Project{
		Name:        name,
		Difficulty:  string(difficulty),
		Status:      models.ProjectStatusOngoing,
		RewardXP:    reward.XP,
		RewardBits:  reward.Bits,
		RewardBytes: reward.Bytes,
		CreatedBy:   creatorID,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func reloadProfile(t *testing.T, db *gorm.DB, id uint) *models.Profile {
	t.Helper()

	var profile models.Profile
	require.NoError(t, db.Unscoped().First(&profile, id).Error)
	return &profile
}
