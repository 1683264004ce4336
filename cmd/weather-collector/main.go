package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/climatechai/go-hazard-risk/internal/config"
	"github.com/climatechai/go-hazard-risk/internal/ingestion"
	"github.com/climatechai/go-hazard-risk/internal/logging"
	"github.com/climatechai/go-hazard-risk/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	stations, err := ingestion.ParseStations(cfg.Collector.Stations)
	if err != nil {
		logging.Fatalf("Invalid station list: %v", err)
	}

	store, err := repository.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logging.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Init(ctx); err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}

	collector := ingestion.NewCollector(cfg, store, stations)
	collector.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	cancel()
	collector.Stop()

	slog.Info("shutdown complete")
}
