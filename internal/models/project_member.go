package models

import (
	"time"
)

// RoleProjectLead is the role given to a project's creator.
const RoleProjectLead = "Project Lead"

// ProjectMember is a user's membership in a project. Rows are hard-deleted on
// leave so the (project_id, user_id) unique index never blocks a re-join.
type ProjectMember struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	UserID    uint      `gorm:"uniqueIndex:idx_project_user;index;not null" json:"user_id"`
	Profile   *Profile  `gorm:"foreignKey:UserID" json:"profile,omitempty"`
	Role      string    `gorm:"size:100;not null" json:"role"` // free text chosen at join time
	JoinedAt  time.Time `gorm:"not null" json:"joined_at"`
}

func (ProjectMember) TableName() string { return "project_members" }
