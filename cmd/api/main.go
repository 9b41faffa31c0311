package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aidesbz/shortlink/internal/config"
	"github.com/aidesbz/shortlink/internal/infrastructure/db"
	"github.com/aidesbz/shortlink/internal/infrastructure/logger"
	"github.com/aidesbz/shortlink/internal/infrastructure/telemetry"
	"github.com/aidesbz/shortlink/internal/processing/bulkimport"
	"github.com/aidesbz/shortlink/internal/processing/shortlinks"
	kafkaStorage "github.com/aidesbz/shortlink/internal/storage/kafka"
	"github.com/aidesbz/shortlink/internal/storage/mongo"
	httpTransport "github.com/aidesbz/shortlink/internal/transport/http"
	"go.uber.org/zap"
)

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

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

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

	var publisher shortlinks.ClickPublisher
	if cfg.Kafka.Enabled {
		clickPublisher := kafkaStorage.NewClickPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = clickPublisher.Close() }()
		publisher = clickPublisher
		logger.Info("Kafka click publisher enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	svc := shortlinks.NewService(linkRepo, blockRepo, shortlinks.NewCryptoCoder(), publisher, cfg.Shortener.BaseURL, cfg.Shortener.CodeLength)
	importer := bulkimport.NewImporter(svc)
	router := httpTransport.NewRouter(cfg, svc, importer, blockRepo)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("address", fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
