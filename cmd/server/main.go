package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/vargen/social-analytics/internal/aggregate"
	"github.com/vargen/social-analytics/internal/config"
	"github.com/vargen/social-analytics/internal/corpus"
	"github.com/vargen/social-analytics/internal/filter"
	"github.com/vargen/social-analytics/internal/notifications"
	"github.com/vargen/social-analytics/internal/report"
	"github.com/vargen/social-analytics/internal/scheduler"
	"github.com/vargen/social-analytics/internal/server"
	"github.com/vargen/social-analytics/internal/storage"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting social analytics service")

	// Initialize snapshot storage
	backend, err := newStorageBackend(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize storage: %v", err)
	}

	// Load the corpus; the service cannot serve any view without it
	store := corpus.NewStore(backend, cfg.CorpusPath, cfg.SymptomPath)
	if err := store.Load(); err != nil {
		logrus.Fatalf("Failed to load corpus: %v", err)
	}

	// Initialize the engines
	filterEngine := filter.NewEngine()
	aggregateEngine := aggregate.NewEngine(aggregate.Config{
		PositiveThreshold: cfg.PositiveThreshold,
		NegativeThreshold: cfg.NegativeThreshold,
		RollingWindowDays: cfg.RollingWindowDays,
		TopicLimit:        cfg.TopicLimit,
		ReactionFields:    aggregate.DefaultReactionFields(),
	})

	// Initialize digest delivery
	notificationService := notifications.NewService(cfg)
	reportService := report.NewService(cfg, store, filterEngine, aggregateEngine, notificationService)

	// Start scheduler
	schedulerService := scheduler.NewService(cfg, reportService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	// Set up the HTTP API
	api := server.New(cfg, store, filterEngine, aggregateEngine, backend, reportService)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func newStorageBackend(cfg *config.Config) (storage.Interface, error) {
	switch cfg.StorageBackend {
	case "azure":
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	case "http":
		return storage.NewRemoteStorage(cfg.SnapshotBaseURL)
	default:
		return storage.NewLocalStorage(".")
	}
}
