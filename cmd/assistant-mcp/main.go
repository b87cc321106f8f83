// Package main is the entry point for the assessment MCP server. It serves
// the assessment tools to MCP clients over stdio, backed by a local SQLite
// history store.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/clinical-assessment-server/internal/config"
	"github.com/clinical-assessment-server/internal/domain"
	"github.com/clinical-assessment-server/internal/gateway"
	"github.com/clinical-assessment-server/internal/history"
	"github.com/clinical-assessment-server/internal/mcpserver"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg := configManager.GetConfig()

	// Stdout carries the MCP protocol; logs go to stderr.
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		logger.SetLevel(level)
	}

	store, err := history.NewSQLiteStore(cfg.History.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open history store: %v", err)
	}
	defer store.Close()

	predictor := gateway.NewPredictionClient(gateway.PredictionConfig{
		BaseURL:        cfg.Prediction.BaseURL,
		Timeout:        cfg.Prediction.Timeout,
		RateLimit:      cfg.Prediction.RateLimit,
		RateBurst:      cfg.Prediction.RateBurst,
		BreakerEnabled: cfg.Prediction.BreakerEnabled,
	}, logger)

	registry, err := domain.DefaultRegistry()
	if err != nil {
		log.Fatalf("Failed to build model registry: %v", err)
	}

	server := mcpserver.NewServer(
		registry,
		predictor,
		history.NewController(store, logger),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := server.Run(ctx); err != nil {
		log.Fatalf("MCP server failed: %v", err)
	}
}
