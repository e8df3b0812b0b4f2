package handlers

import (
	"github.com/bitbridge/backend/internal/middleware"
	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/pkg/response"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	ledger         *services.MembershipLedger
}

func NewProjectHandler(db *gorm.DB, ledger *services.MembershipLedger) *ProjectHandler {
	return &ProjectHandler{
		projectService: services.NewProjectService(db),
		ledger:         ledger,
	}
}

// List returns paginated projects
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.projectService.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "project")
	if !ok {
		return
	}

	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, project)
}

// Create creates a new project led by the caller
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), &req, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response.Created(c, project)
}

// Delete deletes a project and its memberships. Lead or admin only.
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "project")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.projectService.AuthorizeLead(ctx, id, middleware.GetUserID(c), middleware.IsAdmin(c)); err != nil {
		respondError(c, err)
		return
	}

	if err := h.ledger.DeleteProject(ctx, id); err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"message": "project deleted successfully"})
}
