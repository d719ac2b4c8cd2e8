package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/eventfold/analytics/internal/analytics"
	"github.com/eventfold/analytics/internal/api/rest"
	"github.com/eventfold/analytics/internal/api/server"
	"github.com/eventfold/analytics/internal/auth"
	"github.com/eventfold/analytics/internal/cache"
	"github.com/eventfold/analytics/internal/config"
	"github.com/eventfold/analytics/internal/ingest"
	"github.com/eventfold/analytics/internal/logger"
	"github.com/eventfold/analytics/internal/messaging"
	"github.com/eventfold/analytics/internal/store"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadAPIConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:     cfg.Debug,
		SentryDSN: cfg.SentryDSN,
		Tags: map[string]string{
			"service": "analytics-api",
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Eventfold Analytics API")

	// Connect to database. TranslateError maps unique violations to
	// gorm.ErrDuplicatedKey, which the ingestion fallback relies on.
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.FatalCtx(ctx, "Failed to connect to database", zap.Error(err))
	}

	// Configure connection pool
	if err := store.ConfigureConnectionPool(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime, cfg.Database.ConnMaxIdleTime); err != nil {
		logger.FatalCtx(ctx, "Failed to configure connection pool", zap.Error(err))
	}
	logger.InfoCtx(ctx, "Connected to database",
		zap.Int("max_open_conns", cfg.Database.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.Database.MaxIdleConns),
	)

	// Run schema migrations
	if err := store.AutoMigrate(db); err != nil {
		logger.FatalCtx(ctx, "Failed to migrate database schema", zap.Error(err))
	}

	// Initialize store
	dataStore := store.NewPGStore(db)

	// Connect to cache. The service degrades to uncached reads when the
	// cache is unreachable.
	cacheClient := cache.NewClient(cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := cacheClient.Connect(ctx); err != nil {
		logger.WarnCtx(ctx, "Cache unavailable, serving uncached", zap.Error(err))
	} else {
		logger.InfoCtx(ctx, "Connected to cache", zap.String("addr", cfg.Redis.Addr))
	}
	defer func() {
		if err := cacheClient.Close(); err != nil {
			logger.Warn("Failed to close cache client", zap.Error(err))
		}
	}()

	// Connect to NATS. Fan-out is best effort; ingestion works without it.
	var fanout *messaging.Fanout
	publisher := messaging.NewNATSPublisher(messaging.Config{
		URL:            cfg.NATS.URL,
		ConnectionName: cfg.NATS.ConnectionName,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
	})
	if cfg.NATS.URL == "" {
		logger.WarnCtx(ctx, "NATS URL not configured, bus fan-out disabled")
	} else if err := publisher.Connect(ctx); err != nil {
		logger.WarnCtx(ctx, "NATS unavailable, bus fan-out disabled", zap.Error(err))
	} else {
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
		fanout = messaging.NewFanout(publisher, cfg.Worker.WorkerPoolSize, cfg.Worker.WorkerQueueSize)
		defer fanout.Close()
	}
	defer publisher.Close()

	// Wire the core
	invalidator := cache.NewInvalidator(cacheClient)
	var bus ingest.BusPublisher
	if fanout != nil {
		bus = fanout
	}
	pipeline := ingest.NewPipeline(dataStore, invalidator, bus)
	analyticsService := analytics.NewService(dataStore, cacheClient, cfg.Redis.TTL)
	keyManager := auth.NewManager(dataStore)

	restHandler := rest.NewHandler(pipeline, analyticsService, keyManager, dataStore, rest.Limits{
		MaxBatchSize:     cfg.Ingest.MaxBatchSize,
		RetentionHorizon: cfg.Ingest.RetentionHorizon,
	})

	// Create and start server
	srv := server.New(server.Config{
		Debug:        cfg.Debug,
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}, restHandler, keyManager)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-errCh:
		logger.ErrorCtx(ctx, err, zap.String("component", "server"))
		cancel()
	}

	// Create shutdown context with timeout (don't use canceled ctx)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	logger.InfoCtx(shutdownCtx, "Shutting down server...")

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.FatalCtx(shutdownCtx, "Server forced to shutdown", zap.Error(err))
	}

	// Use non-context logger for final message since original ctx is canceled
	logger.Info("API server stopped")
}
