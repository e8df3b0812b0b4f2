package services

import (
	"context"
	"time"

	"github.com/bitbridge/backend/internal/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStatsRequest struct {
	StartDate    string `form:"start_date"`
	EndDate      string `form:"end_date"`
	ProjectLimit int    `form:"project_limit" binding:"omitempty,min=1,max=50"`
	AuthorLimit  int    `form:"author_limit" binding:"omitempty,min=1,max=50"`
}

type DashboardStats struct {
	OngoingProjects   int64 `json:"ongoing_projects"`
	CompletedProjects int64 `json:"completed_projects"`
	Contributors      int64 `json:"contributors"`
	XPIssued          int64 `json:"xp_issued"`
	BitsIssued        int64 `json:"bits_issued"`
}

type ProjectStats struct {
	ProjectID   uint   `json:"project_id"`
	ProjectName string `json:"project_name"`
	MembersPaid int64  `json:"members_paid"`
	XPIssued    int64  `json:"xp_issued"`
}

type ContributorStats struct {
	UserID            uint   `json:"user_id"`
	Username          string `json:"username"`
	ProjectsCompleted int64  `json:"projects_completed"`
	XPEarned          int64  `json:"xp_earned"`
}

type DashboardResponse struct {
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	Stats            DashboardStats     `json:"stats"`
	ProjectStats     []ProjectStats     `json:"project_stats"`
	ContributorStats []ContributorStats `json:"contributor_stats"`
}

// dateRange resolves the request window, defaulting to the last seven days.
// EndDate is inclusive.
func (req *DashboardStatsRequest) dateRange(now time.Time) (time.Time, time.Time) {
	startDate := now.AddDate(0, 0, -7)
	if req.StartDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.StartDate, now.Location()); err == nil {
			startDate = t
		}
	}

	endDate := now
	if req.EndDate != "" {
		if t, err := time.ParseInLocation("2006-01-02", req.EndDate, now.Location()); err == nil {
			endDate = t.Add(24*time.Hour - time.Second)
		}
	}
	return startDate, endDate
}

// GetStats summarizes reward activity between the requested dates from the
// reward_grants ledger, so deleted projects still count.
func (s *DashboardService) GetStats(ctx context.Context, req *DashboardStatsRequest) (*DashboardResponse, error) {
	startDate, endDate := req.dateRange(time.Now())
	projectLimit := lo.Ternary(req.ProjectLimit > 0, req.ProjectLimit, 10)
	authorLimit := lo.Ternary(req.AuthorLimit > 0, req.AuthorLimit, 10)

	db := s.db.WithContext(ctx)
	grants := func() *gorm.DB {
		return db.Model(&models.RewardGrant{}).Where("created_at BETWEEN ? AND ?", startDate, endDate)
	}

	var stats DashboardStats
	if err := db.Model(&models.Project{}).
		Where("status = ?", models.ProjectStatusOngoing).
		Count(&stats.OngoingProjects).Error; err != nil {
		return nil, persistenceErr("count ongoing projects", err)
	}
	if err := grants().Distinct("project_id").Count(&stats.CompletedProjects).Error; err != nil {
		return nil, persistenceErr("count completed projects", err)
	}
	if err := grants().Distinct("user_id").Count(&stats.Contributors).Error; err != nil {
		return nil, persistenceErr("count contributors", err)
	}

	var totals struct {
		XP   int64
		Bits int64
	}
	if err := grants().
		Select("COALESCE(SUM(xp), 0) AS xp, COALESCE(SUM(bits), 0) AS bits").
		Scan(&totals).Error; err != nil {
		return nil, persistenceErr("sum rewards", err)
	}
	stats.XPIssued = totals.XP
	stats.BitsIssued = totals.Bits

	var projectStats []ProjectStats
	if err := grants().
		Select("project_id, COUNT(*) AS members_paid, COALESCE(SUM(xp), 0) AS xp_issued").
		Group("project_id").
		Order("members_paid DESC, project_id ASC").
		Limit(projectLimit).
		Scan(&projectStats).Error; err != nil {
		return nil, persistenceErr("project stats", err)
	}

	projectIDs := lo.Map(projectStats, func(p ProjectStats, _ int) uint { return p.ProjectID })
	var projects []models.Project
	if len(projectIDs) > 0 {
		if err := db.Select("id", "name").Where("id IN ?", projectIDs).Find(&projects).Error; err != nil {
			return nil, persistenceErr("project names", err)
		}
	}
	names := lo.SliceToMap(projects, func(p models.Project) (uint, string) { return p.ID, p.Name })
	for i := range projectStats {
		projectStats[i].ProjectName = names[projectStats[i].ProjectID]
	}

	var contributorStats []ContributorStats
	if err := grants().
		Select("user_id, COUNT(*) AS projects_completed, COALESCE(SUM(xp), 0) AS xp_earned").
		Group("user_id").
		Order("xp_earned DESC, user_id ASC").
		Limit(authorLimit).
		Scan(&contributorStats).Error; err != nil {
		return nil, persistenceErr("contributor stats", err)
	}

	userIDs := lo.Map(contributorStats, func(c ContributorStats, _ int) uint { return c.UserID })
	var profiles []models.Profile
	if len(userIDs) > 0 {
		if err := db.Unscoped().Select("id", "username").Where("id IN ?", userIDs).Find(&profiles).Error; err != nil {
			return nil, persistenceErr("contributor names", err)
		}
	}
	usernames := lo.SliceToMap(profiles, func(p models.Profile) (uint, string) { return p.ID, p.Username })
	for i := range contributorStats {
		contributorStats[i].Username = usernames[contributorStats[i].UserID]
	}

	return &DashboardResponse{
		StartDate:        startDate,
		EndDate:          endDate,
		Stats:            stats,
		ProjectStats:     projectStats,
		ContributorStats: contributorStats,
	}, nil
}
