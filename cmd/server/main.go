// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/auth"
	"github.com/jason-s-yu/crystal-clear/internal/cache"
	"github.com/jason-s-yu/crystal-clear/internal/config"
	"github.com/jason-s-yu/crystal-clear/internal/coordinator"
	"github.com/jason-s-yu/crystal-clear/internal/database"
	"github.com/jason-s-yu/crystal-clear/internal/handlers"
	"github.com/jason-s-yu/crystal-clear/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := middleware.NewLogger(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	expiry, err := cfg.TokenExpiry()
	if err != nil {
		logger.Fatalf("invalid token expiry: %v", err)
	}
	signer, err := auth.NewTokenSigner(expiry)
	if err != nil {
		logger.Fatalf("failed to create token signer: %v", err)
	}

	hub := handlers.NewHub(logger)
	opts := []coordinator.Option{
		coordinator.WithLogger(logger),
		coordinator.WithTokenSigner(signer),
	}

	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer rdb.Close()
		opts = append(opts, coordinator.WithEventLog(cache.NewRedisEventLog(rdb, cfg.HistorianQueueName)))
		logger.WithField("queue", cfg.HistorianQueueName).Info("round events go to redis")
	}

	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		archive := database.NewArchive(pool)
		if err := archive.Migrate(ctx); err != nil {
			logger.Fatalf("failed to migrate archive: %v", err)
		}
		opts = append(opts, coordinator.WithArchive(archive))
		logger.Info("finished rounds are archived to postgres")
	}

	coord := coordinator.New(cfg, hub, opts...)
	defer coord.Close()

	ws := handlers.NewWSHandler(coord, hub, logger, cfg.WSRatePerSec, cfg.WSRateBurst)
	api := handlers.NewAPIServer(coord, ws, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.Routes(),
	}

	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr, "devMode": cfg.DevMode}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server exited: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("graceful shutdown failed: %v", err)
	}
}
