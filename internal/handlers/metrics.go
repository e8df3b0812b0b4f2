package handlers

import (
	"github.com/bitbridge/backend/internal/metrics"
	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Metrics returns a handler serving the Prometheus registry. Project counts
// are read from the database on every scrape.
func Metrics(db *gorm.DB) gin.HandlerFunc {
	projectService := services.NewProjectService(db)
	promHandler := metrics.Handler()

	return func(c *gin.Context) {
		counts, err := projectService.CountByStatus(c.Request.Context())
		if err != nil {
			logger.Warn().Err(err).Msg("failed to refresh project gauges")
		}
		for status, n := range counts {
			metrics.ProjectsByStatus.WithLabelValues(status).Set(float64(n))
		}

		promHandler.ServeHTTP(c.Writer, c.Request)
	}
}
