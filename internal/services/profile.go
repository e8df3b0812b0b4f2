package services

import (
	"context"
	"errors"

	"github.com/bitbridge/backend/internal/levelcurve"
	"github.com/bitbridge/backend/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// ProfileView is a profile with its level and progress derived from XP.
// Neither derived field is stored.
type ProfileView struct {
	*models.Profile
	Level        int                 `json:"level"`
	Progress     levelcurve.Progress `json:"progress"`
	ProjectCount int64               `json:"project_count"`
}

type LeaderboardEntry struct {
	Rank             int    `json:"rank"`
	UserID           uint   `json:"user_id"`
	Username         string `json:"username"`
	DisplayName      string `json:"display_name"`
	AvatarURL        string `json:"avatar_url"`
	ExperiencePoints int64  `json:"experience_points"`
	Level            int    `json:"level"`
}

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
)

func NewProfileView(profile *models.Profile) *ProfileView {
	return &ProfileView{
		Profile:  profile,
		Level:    profile.Level(),
		Progress: levelcurve.ProgressToNextLevel(profile.ExperiencePoints),
	}
}

// GetByID returns the profile view for id.
func (s *ProfileService) GetByID(ctx context.Context, id uint) (*ProfileView, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceErr("get profile", err)
	}

	view := NewProfileView(&profile)
	if err := s.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("user_id = ?", id).
		Count(&view.ProjectCount).Error; err != nil {
		return nil, persistenceErr("count memberships", err)
	}
	return view, nil
}

// Leaderboard returns the top profiles by XP. Ties go to the older account.
func (s *ProfileService) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	if limit > maxLeaderboardSize {
		limit = maxLeaderboardSize
	}

	var profiles []models.Profile
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("experience_points DESC, id ASC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, persistenceErr("leaderboard", err)
	}

	return lo.Map(profiles, func(p models.Profile, i int) LeaderboardEntry {
		return LeaderboardEntry{
			Rank:             i + 1,
			UserID:           p.ID,
			Username:         p.Username,
			DisplayName:      p.DisplayName,
			AvatarURL:        p.AvatarURL,
			ExperiencePoints: p.ExperiencePoints,
			Level:            p.Level(),
		}
	}), nil
}

// RewardHistory lists the grants a profile has received, newest first.
func (s *ProfileService) RewardHistory(ctx context.Context, userID uint) ([]models.RewardGrant, error) {
	var grants []models.RewardGrant
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&grants).Error; err != nil {
		return nil, persistenceErr("reward history", err)
	}
	return grants, nil
}
