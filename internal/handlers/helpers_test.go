package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/bitbridge/backend/internal/config"
	"github.com/bitbridge/backend/internal/middleware"
	"github.com/bitbridge/backend/internal/models"
	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("test-secret-for-handler-testing")
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.DefaultConfig()
	ledger := services.NewMembershipLedger(services.NewGormMembershipStore(db), nil)

	r := gin.New()
	r.GET("/health", NewHealthHandler(db, services.NewSyncQueue()).CheckHealth)
	r.GET("/metrics", Metrics(db))

	api := r.Group("/api")
	authHandler := NewAuthHandler(db, cfg)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.GET("/levels/progress", LevelProgress)
	api.GET("/levels/table", LevelTable)

	protected := api.Group("", middleware.AuthRequired())
	protected.GET("/auth/me", authHandler.GetCurrentUser)
	protected.POST("/auth/logout", authHandler.Logout)

	profileHandler := NewProfileHandler(db)
	protected.GET("/profiles/:id", profileHandler.GetByID)
	protected.GET("/profiles/:id/rewards", profileHandler.Rewards)
	protected.GET("/leaderboard", profileHandler.Leaderboard)

	projectHandler := NewProjectHandler(db, ledger)
	protected.GET("/projects", projectHandler.List)
	protected.GET("/projects/:id", projectHandler.GetByID)
	protected.POST("/projects", projectHandler.Create)
	protected.DELETE("/projects/:id", projectHandler.Delete)

	memberHandler := NewProjectMemberHandler(db, ledger)
	protected.GET("/projects/:id/members", memberHandler.List)
	protected.POST("/projects/:id/join", memberHandler.Join)
	protected.POST("/projects/:id/leave", memberHandler.Leave)
	protected.POST("/projects/:id/complete", memberHandler.Complete)

	protected.GET("/dashboard/stats", NewDashboardHandler(db).GetStats)

	admin := api.Group("", middleware.AuthRequired(), middleware.AdminRequired())
	userHandler := NewUserHandler(db)
	admin.GET("/users", userHandler.List)
	admin.PUT("/users/:id", userHandler.Update)
	admin.DELETE("/users/:id", userHandler.Delete)
	systemLogHandler := NewSystemLogHandler(db, 30)
	admin.GET("/system-logs", systemLogHandler.List)
	admin.POST("/system-logs/cleanup", systemLogHandler.Cleanup)

	return &testServer{router: r, db: db}
}

// user creates an active profile and returns it with a bearer token.
func (s *testServer) user(t *testing.T, username, role string) (*models.Profile, string) {
	t.Helper()

	profile := &models.Profile{Username: username, DisplayName: username, Role: role, IsActive: true}
	require.NoError(t, s.db.Create(profile).Error)

	token, err := utils.GenerateToken(profile.ID, profile.Username, profile.Role, 1)
	require.NoError(t, err)
	return profile, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}
