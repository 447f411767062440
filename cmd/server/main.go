package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"second_saturday/internal/app"
	"second_saturday/internal/infra/config"
	idb "second_saturday/internal/infra/database"
	"second_saturday/internal/infra/email"
	"second_saturday/internal/infra/httpapi"
	"second_saturday/internal/infra/logger"
	"second_saturday/internal/infra/objectstore"
	"second_saturday/internal/infra/push"
	"second_saturday/internal/infra/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}

	logger.Init(cfg)
	log := logger.Get()
	log.Infof("Configuration loaded. LogLevel: %s, Environment: %s", cfg.LogLevel, cfg.Environment)

	// Database
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully.")

	// Repositories
	userRepo := idb.NewPostgresUserRepository(db)
	circleRepo := idb.NewPostgresCircleRepository(db)
	submissionRepo := idb.NewPostgresSubmissionRepository(db)
	newsletterRepo := idb.NewPostgresNewsletterRepository(db)
	reminderRepo := idb.NewPostgresReminderRepository(db)
	videoRepo := idb.NewPostgresVideoRepository(db)
	log.Info("Repositories initialized.")

	// Outbound clients
	emailClient := email.NewResendClient(cfg.ResendAPIKey, cfg.ResendFromEmail, log)
	pushClient := push.NewOneSignalClient(cfg.OneSignalAppID, cfg.OneSignalAPIKey, log)
	store := objectstore.NewHTTPStore(cfg.StorageBaseURL, log)

	// Services
	clock := app.SystemClock()
	submissionService := app.NewSubmissionService(circleRepo, submissionRepo, store, clock, log)
	reminderService := app.NewReminderService(circleRepo, submissionRepo, reminderRepo, userRepo, pushClient, clock, log)
	newsletterService := app.NewNewsletterService(circleRepo, submissionRepo, newsletterRepo, reminderRepo, userRepo, emailClient, pushClient, store, cfg.AppURL, clock, log)
	userService := app.NewUserService(userRepo, circleRepo, submissionRepo, newsletterRepo, videoRepo, store, emailClient, clock, log)
	videoService := app.NewVideoService(videoRepo, clock, log)
	sweepService := app.NewSweepService(circleRepo, submissionService, newsletterService, reminderService, log)
	log.Info("Services initialized.")

	// Scheduler
	sweepScheduler := scheduler.NewSweepScheduler(
		sweepService,
		log,
		cfg.CronSpecLock,
		cfg.CronSpecCompile,
		cfg.CronSpecReminders,
	)
	sweepScheduler.Start()

	// HTTP server (webhooks + health)
	apiServer := httpapi.NewServer(videoService, userService, cfg.MuxWebhookSecret, cfg.IdentityWebhookSecret, log)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Infof("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	log.Info("Application setup complete. Scheduler and HTTP server are running.")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down application...")
	sweepScheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	log.Info("Application shut down gracefully.")
}
