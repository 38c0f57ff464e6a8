package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appcoaching "github.com/momentum/backend/internal/application/coaching"
	appmetering "github.com/momentum/backend/internal/application/metering"
	"github.com/momentum/backend/internal/infrastructure/cache"
	"github.com/momentum/backend/internal/infrastructure/config"
	"github.com/momentum/backend/internal/infrastructure/logger"
	"github.com/momentum/backend/internal/infrastructure/openai"
	"github.com/momentum/backend/internal/infrastructure/persistence"
	"github.com/momentum/backend/internal/interfaces/http/handler"
	"github.com/momentum/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		_ = db.Close()
	}()

	// Redis snapshot cache, optional
	var quotaCache *cache.QuotaCache
	if cfg.Redis.Enabled {
		quotaCache, err = cache.NewQuotaCache(&cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = quotaCache.Close()
		}()
	}

	// Repositories
	quotaRepo := persistence.NewGormTokenQuotaRepository(db.DB)
	reflectionRepo := persistence.NewGormReflectionRepository(db.DB)

	// Upstream client
	completionClient := openai.NewClient(&cfg.OpenAI, log)

	// Application services. The nil checks keep a typed nil out of the
	// service interfaces when Redis is disabled.
	var snapshotCache appmetering.QuotaSnapshotCache
	var readCache appmetering.QuotaReadCache
	if quotaCache != nil {
		snapshotCache = quotaCache
		readCache = quotaCache
	}
	gatewayService := appmetering.NewGatewayService(quotaRepo, completionClient, snapshotCache, cfg.Quota.DefaultMonthlyLimit, log)
	usageService := appmetering.NewUsageService(quotaRepo, readCache, cfg.Quota.DefaultMonthlyLimit, log)
	streakService := appcoaching.NewStreakService(reflectionRepo, log)

	// HTTP surface
	r := router.New(&cfg.HTTP, log).
		Register(handler.NewTokenGuardHandler(gatewayService)).
		Register(handler.NewUsageHandler(usageService)).
		Register(handler.NewStreakHandler(streakService))
	engine := r.Setup()

	var cachePinger handler.ContextPinger
	if quotaCache != nil {
		cachePinger = quotaCache
	}
	handler.NewHealthHandler(db, cachePinger).RegisterRoutes(engine)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server listening", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
