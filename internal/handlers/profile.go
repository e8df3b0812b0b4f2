package handlers

import (
	"strconv"

	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{
		profileService: services.NewProfileService(db),
	}
}

// GetByID returns a profile with its level and progress
// GET /api/profiles/:id
func (h *ProfileHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "profile")
	if !ok {
		return
	}

	view, err := h.profileService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, view)
}

// Rewards lists a profile's reward grants
// GET /api/profiles/:id/rewards
func (h *ProfileHandler) Rewards(c *gin.Context) {
	id, ok := parseID(c, "profile")
	if !ok {
		return
	}

	grants, err := h.profileService.RewardHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, grants)
}

// Leaderboard
// GET /api/leaderboard?limit=N
func (h *ProfileHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.profileService.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, entries)
}
