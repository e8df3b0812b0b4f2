package models

import (
	"time"

	"github.com/bitbridge/backend/internal/levelcurve"
	"gorm.io/gorm"
)

// Profile is a registered developer account. Level is derived from
// ExperiencePoints on every read and has no column of its own.
type Profile struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Username         string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password         string         `gorm:"size:255" json:"-"` // bcrypt hash
	DisplayName      string         `gorm:"size:100" json:"display_name"`
	AvatarURL        string         `gorm:"size:500" json:"avatar_url"`
	Role             string         `gorm:"size:50;default:user" json:"role"` // admin, user
	ExperiencePoints int64          `gorm:"not null;default:0" json:"experience_points"`
	BitsCurrency     int64          `gorm:"not null;default:0" json:"bits_currency"`
	BytesCurrency    int64          `gorm:"not null;default:0" json:"bytes_currency"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	LastLogin        *time.Time     `json:"last_login"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Profile) TableName() string { return "profiles" }

// Level returns the level for the profile's current XP.
func (p *Profile) Level() int {
	return levelcurve.LevelFromXP(p.ExperiencePoints)
}
