package services

import (
	"context"
	"errors"
	"time"

	"github.com/bitbridge/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MembershipStore is the persistence boundary the ledger runs against.
// Lookups of missing projects or profiles return ErrNotFound; every other
// failure comes back as a *PersistenceError.
type MembershipStore interface {
	GetProject(ctx context.Context, projectID uint) (*models.Project, error)
	// GetMembership returns nil, nil when the pair has no membership.
	GetMembership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error)
	// InsertMembership returns ErrAlreadyMember if the pair already has a row.
	InsertMembership(ctx context.Context, member *models.ProjectMember) error
	DeleteMembership(ctx context.Context, projectID, userID uint) (bool, error)
	ListMemberships(ctx context.Context, projectID uint) ([]models.ProjectMember, error)
	// SetProjectStatus moves the project from one status to another and
	// reports false if it was not in the from status.
	SetProjectStatus(ctx context.Context, projectID uint, from, to string) (bool, error)
	GetProfile(ctx context.Context, userID uint) (*models.Profile, error)
	CreditProfile(ctx context.Context, userID uint, reward RewardSchedule) error
	RecordGrant(ctx context.Context, grant *models.RewardGrant) error
	DeleteProject(ctx context.Context, projectID uint) (bool, error)
	// Transaction runs fn against a store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx MembershipStore) error) error
}

// GormMembershipStore implements MembershipStore with gorm.
type GormMembershipStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormMembershipStore(db *gorm.DB) *GormMembershipStore {
	return &GormMembershipStore{db: db}
}

// GetProject row-locks the project when called inside a transaction.
func (s *GormMembershipStore) GetProject(ctx context.Context, projectID uint) (*models.Project, error) {
	q := s.db.WithContext(ctx)
	if s.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var project models.Project
	if err := q.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceErr("get project", err)
	}
	return &project, nil
}

func (s *GormMembershipStore) GetMembership(ctx context.Context, projectID, userID uint) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, persistenceErr("get membership", err)
	}
	return &member, nil
}

// InsertMembership relies on the (project_id, user_id) unique index, so two
// racing joins for the same pair produce exactly one row.
func (s *GormMembershipStore) InsertMembership(ctx context.Context, member *models.ProjectMember) error {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(member)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrAlreadyMember
		}
		return persistenceErr("insert membership", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (s *GormMembershipStore) DeleteMembership(ctx context.Context, projectID, userID uint) (bool, error) {
	result := s.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{})
	if result.Error != nil {
		return false, persistenceErr("delete membership", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *GormMembershipStore) ListMemberships(ctx context.Context, projectID uint) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Preload("Profile").
		Order("joined_at ASC, id ASC").
		Find(&members).Error; err != nil {
		return nil, persistenceErr("list memberships", err)
	}
	return members, nil
}

func (s *GormMembershipStore) SetProjectStatus(ctx context.Context, projectID uint, from, to string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == models.ProjectStatusCompleted {
		updates["completed_at"] = time.Now()
	}

	result := s.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND status = ?", projectID, from).
		Updates(updates)
	if result.Error != nil {
		return false, persistenceErr("set project status", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetProfile also finds soft-deleted profiles. Join rejects them; the credit
// path pays any member row still present.
func (s *GormMembershipStore) GetProfile(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).Unscoped().First(&profile, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceErr("get profile", err)
	}
	return &profile, nil
}

// CreditProfile increments in SQL so concurrent credits never overwrite each other.
func (s *GormMembershipStore) CreditProfile(ctx context.Context, userID uint, reward RewardSchedule) error {
	result := s.db.WithContext(ctx).
		Unscoped().
		Model(&models.Profile{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"experience_points": gorm.Expr("experience_points + ?", reward.XP),
			"bits_currency":     gorm.Expr("bits_currency + ?", reward.Bits),
			"bytes_currency":    gorm.Expr("bytes_currency + ?", reward.Bytes),
		})
	if result.Error != nil {
		return persistenceErr("credit profile", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormMembershipStore) RecordGrant(ctx context.Context, grant *models.RewardGrant) error {
	if err := s.db.WithContext(ctx).Create(grant).Error; err != nil {
		return persistenceErr("record reward grant", err)
	}
	return nil
}

// DeleteProject removes the project and its memberships. Reward grants stay.
func (s *GormMembershipStore) DeleteProject(ctx context.Context, projectID uint) (bool, error) {
	var deleted bool
	err := s.Transaction(ctx, func(tx MembershipStore) error {
		db := tx.(*GormMembershipStore).db.WithContext(ctx)
		if err := db.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
			return persistenceErr("delete project memberships", err)
		}
		result := db.Delete(&models.Project{}, projectID)
		if result.Error != nil {
			return persistenceErr("delete project", result.Error)
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// Transaction nests into the current transaction when there already is one.
func (s *GormMembershipStore) Transaction(ctx context.Context, fn func(tx MembershipStore) error) error {
	if s.inTx {
		return fn(s)
	}

	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(&GormMembershipStore{db: tx, inTx: true})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return persistenceErr("commit transaction", err)
}
