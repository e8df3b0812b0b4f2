package main

import (
	"github.com/bitbridge/backend/internal/handlers"
	"github.com/bitbridge/backend/internal/middleware"
	"github.com/bitbridge/backend/internal/models"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	db := models.GetDB()

	// Middleware
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Health check and metrics
	healthHandler := handlers.NewHealthHandler(db, svc.taskQueue)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics(db))

	limited := svc.limiter.Middleware()

	// API routes
	api := r.Group("/api")
	api.Use(middleware.AuditLog())
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", limited)
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
		}

		// Level curve (public)
		api.GET("/levels/progress", handlers.LevelProgress)
		api.GET("/levels/table", handlers.LevelTable)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)
			protected.POST("/auth/change-password", svc.authHandler.ChangePassword)

			// Dashboard (all users)
			dashboardHandler := handlers.NewDashboardHandler(db)
			protected.GET("/dashboard/stats", dashboardHandler.GetStats)

			// Profiles
			profileHandler := handlers.NewProfileHandler(db)
			protected.GET("/profiles/:id", profileHandler.GetByID)
			protected.GET("/profiles/:id/rewards", profileHandler.Rewards)
			protected.GET("/leaderboard", profileHandler.Leaderboard)

			// Projects
			projectHandler := handlers.NewProjectHandler(db, svc.ledger)
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", limited, projectHandler.Create)
			protected.DELETE("/projects/:id", limited, projectHandler.Delete)

			// Membership
			memberHandler := handlers.NewProjectMemberHandler(db, svc.ledger)
			protected.GET("/projects/:id/members", memberHandler.List)
			protected.POST("/projects/:id/join", limited, memberHandler.Join)
			protected.POST("/projects/:id/leave", limited, memberHandler.Leave)
			protected.POST("/projects/:id/complete", limited, memberHandler.Complete)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Users
			userHandler := handlers.NewUserHandler(db)
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			// System Logs
			systemLogHandler := handlers.NewSystemLogHandler(db, svc.cfg.Log.RetentionDays)
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
			admin.POST("/system-logs/cleanup", systemLogHandler.Cleanup)
		}
	}
}
