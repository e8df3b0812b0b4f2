package models

import (
	"time"
)

const (
	ProjectStatusOngoing   = "ongoing"
	ProjectStatusCompleted = "completed"
)

// Project is a collaborative side-project. The reward columns are copied
// from the difficulty schedule when the project is created.
type Project struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:200;not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	Difficulty  string     `gorm:"size:20;not null;index" json:"difficulty"` // Beginner, Intermediate, Advanced, Expert
	Status      string     `gorm:"size:20;not null;default:ongoing;index" json:"status"`
	RewardXP    int64      `gorm:"column:reward_xp;not null" json:"reward_xp"`
	RewardBits  int64      `gorm:"column:reward_bits;not null" json:"reward_bits"`
	RewardBytes int64      `gorm:"column:reward_bytes;not null" json:"reward_bytes"`
	RepoURL     string     `gorm:"size:500" json:"repo_url"`
	CreatedBy   uint       `gorm:"index;not null" json:"created_by"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) IsCompleted() bool {
	return p.Status == ProjectStatusCompleted
}
