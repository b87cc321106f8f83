// Package main is the entry point for the clinical assessment HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/api"
	"github.com/clinical-assessment-server/internal/config"
	"github.com/clinical-assessment-server/internal/database"
	"github.com/clinical-assessment-server/internal/domain"
	"github.com/clinical-assessment-server/internal/gateway"
	"github.com/clinical-assessment-server/internal/history"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging)

	store, db, err := openHistoryStore(configManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open history store")
	}
	defer store.Close()
	if db != nil {
		defer db.Close()
	}

	predictor := gateway.NewPredictionClient(gateway.PredictionConfig{
		BaseURL:        cfg.Prediction.BaseURL,
		Timeout:        cfg.Prediction.Timeout,
		RateLimit:      cfg.Prediction.RateLimit,
		RateBurst:      cfg.Prediction.RateBurst,
		BreakerEnabled: cfg.Prediction.BreakerEnabled,
	}, logger)

	var patientOpts []gateway.PatientClientOption
	if cfg.Cache.Enabled {
		opt, err := redis.ParseURL(cfg.Cache.RedisURL)
		if err != nil {
			logger.WithError(err).Fatal("Invalid Redis URL")
		}
		opt.MaxRetries = cfg.Cache.MaxRetries
		opt.PoolSize = cfg.Cache.PoolSize
		opt.PoolTimeout = cfg.Cache.PoolTimeout
		patientOpts = append(patientOpts,
			gateway.WithRedisCache(redis.NewClient(opt), cfg.Cache.DefaultTTL))
	}

	patients := gateway.NewPatientClient(gateway.PatientsConfig{
		BaseURL:   cfg.Patients.BaseURL,
		Timeout:   cfg.Patients.Timeout,
		CacheSize: cfg.Patients.CacheSize,
		CacheTTL:  cfg.Patients.CacheTTL,
	}, logger, patientOpts...)

	registry, err := domain.DefaultRegistry()
	if err != nil {
		logger.WithError(err).Fatal("Failed to build model registry")
	}
	historyCtrl := history.NewController(store, logger)
	sessions := api.NewSessionManager(registry, predictor, historyCtrl, logger)

	serverOpts := []api.ServerOption{}
	if db != nil {
		serverOpts = append(serverOpts, api.WithDatabase(db))
	}

	server := api.NewServer(
		&cfg.Server,
		registry,
		sessions,
		historyCtrl,
		patients,
		api.NewStatusHub(logger),
		logger,
		serverOpts...,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":    cfg.Server.Host,
		"port":    cfg.Server.Port,
		"backend": cfg.History.Backend,
	}).Info("Starting clinical assessment server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// openHistoryStore opens the configured history backend. For postgres it
// runs migrations, establishes the shared connection pool, and returns the
// pool alongside the store; for sqlite the pool is nil.
func openHistoryStore(configManager *config.Manager, logger *logrus.Logger) (history.Store, *database.DB, error) {
	cfg := configManager.GetHistoryConfig()

	switch cfg.Backend {
	case "sqlite":
		store, err := history.NewSQLiteStore(cfg.SQLitePath)
		return store, nil, err
	case "postgres":
		runner, err := database.NewMigrationRunner(
			configManager.DatabaseConnectionURL(), cfg.Database.MigrationsPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("creating migration runner: %w", err)
		}
		defer runner.Close()
		if err := runner.Up(); err != nil {
			return nil, nil, fmt.Errorf("applying migrations: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		db, err := database.NewConnection(ctx, configManager.PoolConfig(), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to history database: %w", err)
		}

		store, err := history.NewPostgresStoreFromPool(db.Pool)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported history backend: %s", cfg.Backend)
	}
}
