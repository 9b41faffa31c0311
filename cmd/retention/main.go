package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aidesbz/shortlink/internal/config"
	"github.com/aidesbz/shortlink/internal/infrastructure/db"
	"github.com/aidesbz/shortlink/internal/infrastructure/logger"
	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	"github.com/aidesbz/shortlink/internal/storage/mongo"
	"go.uber.org/zap"
)

// One-shot retention worker. Deletes every link created before the configured
// cutoff and exits; intended to run from cron or a scheduled job.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	mongoConn, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	linkRepo, err := mongo.NewLinksRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize links repository", zap.Error(err))
	}
	blockRepo, err := mongo.NewBlocklistRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize block list repository", zap.Error(err))
	}

	svc := shortlinks.NewService(linkRepo, blockRepo, shortlinks.NewCryptoCoder(), nil, cfg.Shortener.BaseURL, cfg.Shortener.CodeLength)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	logger.Info("Retention run starting", zap.Time("cutoff", cfg.Retention.Cutoff))

	deleted, err := svc.PurgeOlderThan(ctx, cfg.Retention.Cutoff)
	if err != nil {
		logger.Fatal("Retention run failed", zap.Error(err))
	}

	logger.Info("Retention run finished",
		zap.Int64("deleted", deleted),
		zap.Time("cutoff", cfg.Retention.Cutoff),
	)
}
