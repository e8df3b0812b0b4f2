package handlers

import (
	"net/http"

	"github.com/bitbridge/backend/internal/models"
	"github.com/bitbridge/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	// Database check
	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}

	// Queue mode
	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	var ongoing int64
	if dbStatus == "ok" {
		h.db.WithContext(c.Request.Context()).Model(&models.Project{}).
			Where("status = ?", models.ProjectStatusOngoing).
			Count(&ongoing)
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "bitbridge",
		"components": gin.H{
			"database":         dbStatus,
			"queue_mode":       queueMode,
			"ongoing_projects": ongoing,
		},
	})
}
