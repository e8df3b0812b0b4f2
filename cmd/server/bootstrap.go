package main

import (
	"github.com/bitbridge/backend/internal/config"
	"github.com/bitbridge/backend/internal/handlers"
	"github.com/bitbridge/backend/internal/middleware"
	"github.com/bitbridge/backend/internal/models"
	"github.com/bitbridge/backend/internal/services"
	"github.com/bitbridge/backend/internal/utils"
	"github.com/bitbridge/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg         *config.Config
	ledger      *services.MembershipLedger
	taskQueue   services.TaskQueue
	worker      *services.Worker
	logCleanup  *cron.Cron
	limiter     *middleware.RateLimiter
	authHandler *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	db := models.GetDB()

	// Initialize system logger
	services.InitSystemLogger(db)

	// Start system log cleanup scheduler
	logCleanup := services.StartLogCleanupScheduler(db, cfg.Log.RetentionDays)

	// Reward notifications go through Redis when enabled, otherwise they run in-process
	processor := services.NewRewardLogProcessor(db)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processor)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processor)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start reward worker")
				worker = nil
			}
		}
	}

	ledger := services.NewMembershipLedger(
		services.NewGormMembershipStore(db),
		services.NewQueueNotifier(taskQueue),
	)

	// Create default admin user
	authHandler := handlers.NewAuthHandler(db, cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		cfg:         cfg,
		ledger:      ledger,
		taskQueue:   taskQueue,
		worker:      worker,
		logCleanup:  logCleanup,
		limiter:     middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		authHandler: authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	<-s.logCleanup.Stop().Done()
	s.limiter.Stop()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
}
