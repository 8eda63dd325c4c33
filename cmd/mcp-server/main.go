// Command mcp-server serves the interview tools over stdio. It needs no external
// services: catalogs are embedded and transcripts go to a local SQLite file.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/clinical-interview-sim/internal/catalog"
	"github.com/clinical-interview-sim/internal/config"
	"github.com/clinical-interview-sim/internal/mcp"
	"github.com/clinical-interview-sim/internal/service"
	"github.com/clinical-interview-sim/internal/setup"
	"github.com/clinical-interview-sim/internal/transcript"
)

func main() {
	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		cli := setup.NewCLI(os.Stdout, config.DefaultLiteConfig().DataDir)
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		return
	}

	lite := config.LoadLiteConfig()
	logger := config.NewLogger(lite.LogLevel, lite.LogFormat)

	if err := lite.EnsureDataDir(); err != nil {
		logger.WithError(err).Fatal("Failed to prepare data directory")
	}

	cats, err := catalog.LoadDir(lite.CatalogDir)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load catalogs")
	}

	cfg := lite.Config()
	store, err := transcript.Open(cfg.Store, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open transcript store")
	}
	defer store.Close()

	interview, err := service.NewInterviewService(cats, cfg, logger, service.WithTranscriptStore(store))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create interview service")
	}

	server := mcp.NewServer(interview, logger, mcp.WithExportDir(lite.ExportDir()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithField("data_dir", lite.DataDir).Info("Starting interview MCP server")
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("MCP server failed")
	}

	logger.Info("MCP server stopped")
}
