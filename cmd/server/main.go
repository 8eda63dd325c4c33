package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/clinical-interview-sim/internal/api"
	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/config"
	"github.com/clinical-interview-sim/internal/domain"
	"github.com/clinical-interview-sim/internal/service"
	"github.com/clinical-interview-sim/internal/transcript"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging.Level, cfg.Logging.Format)

	cats, err := catalog.Load(cfg.Catalogs)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalogs")
	}

	var opts []service.ServiceOption
	store, err := transcript.Open(cfg.Store, logger)
	switch {
	case errors.Is(err, domain.ErrStoreDisabled):
		logger.Warn("Transcript store disabled, finished cases will not be kept")
	case err != nil:
		logger.WithError(err).Fatal("Failed to open transcript store")
	default:
		defer store.Close()
		opts = append(opts, service.WithTranscriptStore(store))
	}

	interview, err := service.NewInterviewService(cats, cfg, logger, opts...)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create interview service")
	}

	server, err := api.NewServer(configManager, interview, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create server")
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithField("addr", cfg.Server.Host).WithField("port", cfg.Server.Port).Info("Starting interview server")
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}
