package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/modular-health/modular-health-backend/config"
	"github.com/modular-health/modular-health-backend/db"
	"github.com/modular-health/modular-health-backend/handlers"
	"github.com/modular-health/modular-health-backend/logger"
	"github.com/modular-health/modular-health-backend/router"
	"github.com/modular-health/modular-health-backend/services"
	"github.com/modular-health/modular-health-backend/store/postgres"
	"github.com/redis/go-redis/v9"
)

func main() {
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := db.RunMigrations(cfg.Database.URL()); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Database pool
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		log.Fatalf("Failed to parse database config: %v", err)
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Server.Environment == config.EnvProduction {
		poolConfig.ConnConfig.TLSConfig = &tls.Config{
			ServerName: cfg.Database.Host,
			MinVersion: tls.VersionTLS12,
		}
	}
	log.Infow("Connecting to database", "dsn", logger.MaskConnectionString(connStr))
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Redis client
	redisOptions := &redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.UseTLS {
		redisOptions.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	redisClient := redis.NewClient(redisOptions)
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Warnw("Failed to close redis client", "error", err)
		}
	}()

	// Stores
	routineStore := postgres.NewPgRoutineStore(pool)
	logStore := postgres.NewPgLogStore(pool)
	profileStore := postgres.NewPgProfileStore(pool)
	prefStore := postgres.NewPgPreferenceStore(pool)
	historyStore := postgres.NewPgReminderHistoryStore(pool)
	pushTokenStore := postgres.NewPgPushTokenStore(pool)

	// Services
	matcher := services.NewRoutineMatcher(time.Duration(cfg.Scheduler.MatchToleranceSeconds) * time.Second)
	lease := services.NewJobLease(redisClient)
	leaseTTL := time.Duration(cfg.Scheduler.LeaseTTLSeconds) * time.Second

	var pushService services.PushService
	if cfg.Push.Enabled {
		pushService = services.NewExpoPushService(pushTokenStore, cfg.Push)
	} else {
		pushService = services.NewNoopPushService()
	}

	dispatchPool := services.NewDispatchPool(cfg.WorkerPool, pushService, historyStore)
	dispatchPool.Start()

	autoLogService := services.NewAutoLogService(routineStore, logStore, profileStore, matcher, lease, leaseTTL)
	reminderService := services.NewReminderService(
		routineStore, profileStore, prefStore, historyStore,
		dispatchPool, matcher, lease, leaseTTL,
	)
	healthService := services.NewHealthService(pool, redisClient, cfg.Server.Version)
	rateLimitService := services.NewRateLimitService(redisClient)

	// Internal cron scheduler
	scheduler := services.NewJobScheduler(autoLogService, reminderService, cfg.Scheduler)
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	// Router
	r := router.SetupRouter(router.Dependencies{
		Config:            cfg,
		RateLimiter:       rateLimitService,
		HealthHandler:     handlers.NewHealthHandler(healthService),
		JobHandler:        handlers.NewJobHandler(autoLogService, reminderService),
		RoutineHandler:    handlers.NewRoutineHandler(routineStore),
		LogHandler:        handlers.NewLogHandler(logStore),
		ProfileHandler:    handlers.NewProfileHandler(profileStore),
		PreferenceHandler: handlers.NewPreferenceHandler(prefStore),
		PushTokenHandler:  handlers.NewPushTokenHandler(pushTokenStore),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Warnw("Scheduler shutdown incomplete", "error", err)
	}

	poolShutdownCtx, poolCancel := context.WithTimeout(shutdownCtx,
		time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds)*time.Second)
	defer poolCancel()
	if err := dispatchPool.Shutdown(poolShutdownCtx); err != nil {
		log.Warnw("Dispatch pool shutdown incomplete", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}
