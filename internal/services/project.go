package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bitbridge/backend/internal/models"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Name       string `form:"name"`
	Difficulty string `form:"difficulty"`
	Status     string `form:"status" binding:"omitempty,oneof=ongoing completed"`
	MemberID   uint   `form:"member_id"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty" binding:"required"`
	RepoURL     string `json:"repo_url" binding:"omitempty,url"`
}

// ProjectDetail is a project together with its member count.
type ProjectDetail struct {
	models.Project
	MemberCount int64 `json:"member_count"`
}

// List returns paginated projects
func (s *ProjectService) List(ctx context.Context, req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 10
	}

	var projects []models.Project
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Project{})

	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}
	if req.Difficulty != "" {
		d, err := ParseDifficulty(req.Difficulty)
		if err != nil {
			return nil, err
		}
		query = query.Where("difficulty = ?", string(d))
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.MemberID != 0 {
		query = query.Where("id IN (?)",
			s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", req.MemberID))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, persistenceErr("count projects", err)
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&projects).Error; err != nil {
		return nil, persistenceErr("list projects", err)
	}

	return &ProjectListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    projects,
	}, nil
}

// GetByID returns a project with its member count.
func (s *ProjectService) GetByID(ctx context.Context, id uint) (*ProjectDetail, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, persistenceErr("get project", err)
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ProjectMember{}).Where("project_id = ?", id).Count(&count).Error; err != nil {
		return nil, persistenceErr("count members", err)
	}

	return &ProjectDetail{Project: project, MemberCount: count}, nil
}

// Create creates a project with the reward schedule of its difficulty and
// makes the creator its Project Lead.
func (s *ProjectService) Create(ctx context.Context, req *CreateProjectRequest, creatorID uint) (*models.Project, error) {
	difficulty, err := ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, err
	}
	reward, err := RewardScheduleForDifficulty(difficulty)
	if err != nil {
		return nil, err
	}

	project := models.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Difficulty:  string(difficulty),
		Status:      models.ProjectStatusOngoing,
		RewardXP:    reward.XP,
		RewardBits:  reward.Bits,
		RewardBytes: reward.Bytes,
		RepoURL:     strings.TrimSuffix(req.RepoURL, ".git"),
		CreatedBy:   creatorID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var creator models.Profile
		if err := tx.First(&creator, creatorID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return persistenceErr("get creator", err)
		}
		if err := tx.Create(&project).Error; err != nil {
			return persistenceErr("create project", err)
		}
		lead := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    creatorID,
			Role:      models.RoleProjectLead,
			JoinedAt:  time.Now(),
		}
		if err := tx.Create(&lead).Error; err != nil {
			return persistenceErr("create lead membership", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &project, nil
}

// AuthorizeLead returns ErrForbidden unless userID created the project or is an admin.
func (s *ProjectService) AuthorizeLead(ctx context.Context, projectID, userID uint, isAdmin bool) error {
	var project models.Project
	if err := s.db.WithContext(ctx).Select("id", "created_by").First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return persistenceErr("get project", err)
	}
	if isAdmin || project.CreatedBy == userID {
		return nil
	}
	return ErrForbidden
}

// CountByStatus returns the number of projects in each status.
func (s *ProjectService) CountByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Project{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, persistenceErr("count projects by status", err)
	}

	counts := map[string]int64{
		models.ProjectStatusOngoing:   0,
		models.ProjectStatusCompleted: 0,
	}
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
