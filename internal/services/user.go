package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bitbridge/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidUserRole = errors.New("invalid role, must be 'admin' or 'user'")
	ErrSelfModify      = errors.New("cannot modify your own account")
	ErrNoFieldsToApply = errors.New("no fields to update")
)

// UserService is the admin view over profiles.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Username string `form:"username"`
	Role     string `form:"role"`
}

type UserListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Profile `json:"items"`
}

type UpdateUserRequest struct {
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
	DisplayName *string `json:"display_name" binding:"omitempty,max=100"`
}

func (s *UserService) List(ctx context.Context, req *UserListRequest) (*UserListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Profile{})
	if req.Username != "" {
		query = query.Where("username LIKE ?", "%"+req.Username+"%")
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, persistenceErr("count users", err)
	}

	var users []models.Profile
	if err := query.Order("id ASC").
		Offset((req.Page - 1) * req.PageSize).
		Limit(req.PageSize).
		Find(&users).Error; err != nil {
		return nil, persistenceErr("list users", err)
	}

	return &UserListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: users}, nil
}

// Update changes another profile's role, active flag or display name.
// XP and currencies are only ever changed by project completion.
func (s *UserService) Update(ctx context.Context, actorID, id uint, req *UpdateUserRequest) (*models.Profile, error) {
	if actorID == id {
		return nil, ErrSelfModify
	}

	updates := make(map[string]interface{})
	if req.Role != nil {
		if *req.Role != "admin" && *req.Role != "user" {
			return nil, ErrInvalidUserRole
		}
		updates["role"] = *req.Role
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.DisplayName != nil {
		updates["display_name"] = strings.TrimSpace(*req.DisplayName)
	}
	if len(updates) == 0 {
		return nil, ErrNoFieldsToApply
	}

	db := s.db.WithContext(ctx)
	var user models.Profile
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceErr("get profile", err)
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, persistenceErr("update profile", err)
	}
	if err := db.First(&user, id).Error; err != nil {
		return nil, persistenceErr("reload profile", err)
	}
	return &user, nil
}

// Delete soft-deletes a profile and drops its memberships in the same
// transaction, so no ongoing project is left with a member that cannot be
// credited. Reward grants are kept.
func (s *UserService) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrSelfModify
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.Profile
		if err := tx.First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return persistenceErr("get profile", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return persistenceErr("delete memberships", err)
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.RefreshToken{}).Error; err != nil {
			return persistenceErr("delete refresh tokens", err)
		}
		if err := tx.Delete(&user).Error; err != nil {
			return persistenceErr("delete profile", err)
		}
		return nil
	})
}
