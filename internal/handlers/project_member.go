package handlers

import (
	"github.com/bitbridge/backend/internal/middleware"
	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProjectMemberHandler exposes the membership ledger: join, leave, complete
// and the member list.
type ProjectMemberHandler struct {
	ledger         *services.MembershipLedger
	projectService *services.ProjectService
}

func NewProjectMemberHandler(db *gorm.DB, ledger *services.MembershipLedger) *ProjectMemberHandler {
	return &ProjectMemberHandler{
		ledger:         ledger,
		projectService: services.NewProjectService(db),
	}
}

type JoinRequest struct {
	Role string `json:"role" binding:"max=100"`
}

// List returns all members of a project.
// GET /api/projects/:id/members
func (h *ProjectMemberHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}

	members, err := h.ledger.ListMembers(c.Request.Context(), projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, members)
}

// Join adds the caller to the project with a free-text role.
// POST /api/projects/:id/join
func (h *ProjectMemberHandler) Join(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	member, err := h.ledger.Join(c.Request.Context(), projectID, middleware.GetUserID(c), req.Role)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, member)
}

// Leave removes the caller from the project.
// POST /api/projects/:id/leave
func (h *ProjectMemberHandler) Leave(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}

	if err := h.ledger.Leave(c.Request.Context(), projectID, middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "left project"})
}

// Complete marks the project completed and pays every member. Lead or admin only.
// POST /api/projects/:id/complete
func (h *ProjectMemberHandler) Complete(c *gin.Context) {
	projectID, ok := parseID(c, "project")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.projectService.AuthorizeLead(ctx, projectID, middleware.GetUserID(c), middleware.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.ledger.CompleteProject(ctx, projectID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, result)
}
