package models

import "time"

// RewardGrant records one member's payout from a project completion.
// Grants outlive the project and membership they came from.
type RewardGrant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_grant_project_user;not null" json:"project_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_grant_project_user;index;not null" json:"user_id"`
	XP        int64     `gorm:"column:xp;not null" json:"xp"`
	Bits      int64     `gorm:"not null" json:"bits"`
	Bytes     int64     `gorm:"not null" json:"bytes"`
	CreatedAt time.Time `json:"created_at"`
}

func (RewardGrant) TableName() string { return "reward_grants" }
