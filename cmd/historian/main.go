// cmd/historian/main.go drains round events from the Redis queue into
// PostgreSQL and marks games abandoned when their events stop.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/crystal-clear/internal/cache"
	"github.com/jason-s-yu/crystal-clear/internal/config"
	"github.com/jason-s-yu/crystal-clear/internal/database"
	"github.com/jason-s-yu/crystal-clear/internal/historian"
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

	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		logger.Fatal("historian needs REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("failed to connect to redis: %v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	archive := database.NewArchive(pool)
	if err := archive.Migrate(ctx); err != nil {
		logger.Fatalf("failed to migrate archive: %v", err)
	}

	svc := historian.New(
		cache.NewRedisEventLog(rdb, cfg.HistorianQueueName),
		archive,
		historian.Config{
			BatchSize:  cfg.HistorianBatch,
			FlushDelay: cfg.HistorianFlushInterval(),
			Inactivity: cfg.GameInactivity,
		},
		logger,
	)

	logger.WithField("queue", cfg.HistorianQueueName).Info("historian started")
	svc.Run(ctx)
	logger.Info("historian stopped")
}
