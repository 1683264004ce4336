package main

import (
	"context"
	"flag"
	"log/slog"

	"github.com/joho/godotenv"

	"github.com/climatechai/go-hazard-risk/internal/config"
	"github.com/climatechai/go-hazard-risk/internal/ingestion"
	"github.com/climatechai/go-hazard-risk/internal/logging"
	"github.com/climatechai/go-hazard-risk/internal/models"
	"github.com/climatechai/go-hazard-risk/internal/repository"
)

func main() {
	_ = godotenv.Load()

	floodPath := flag.String("flood", "", "path to a flood hazard GeoJSON FeatureCollection")
	landslidePath := flag.String("landslide", "", "path to a landslide hazard GeoJSON FeatureCollection")
	seismicPath := flag.String("seismic", "", "path to an earthquake catalog CSV")
	riskProperty := flag.String("risk-property", "risk", "feature property holding the risk value")
	defaultRisk := flag.Float64("default-risk", 1, "risk value for features missing the risk property")
	reset := flag.Bool("reset", false, "delete existing zones of a kind before importing it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	if *floodPath == "" && *landslidePath == "" && *seismicPath == "" {
		logging.Fatalf("Nothing to import: pass -flood, -landslide, or -seismic")
	}

	store, err := repository.New(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		logging.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}

	importZones := func(path string, kind models.HazardKind) {
		zones, err := ingestion.LoadZonesGeoJSON(path, kind, *riskProperty, *defaultRisk)
		if err != nil {
			logging.Fatalf("Failed to load %s zones: %v", kind, err)
		}
		if *reset {
			if err := store.ResetZones(ctx, kind); err != nil {
				logging.Fatalf("Failed to reset %s zones: %v", kind, err)
			}
		}
		if err := store.InsertZones(ctx, zones); err != nil {
			logging.Fatalf("Failed to insert %s zones: %v", kind, err)
		}
		slog.Info("imported zones", "kind", kind, "count", len(zones))
	}

	if *floodPath != "" {
		importZones(*floodPath, models.HazardKindFlood)
	}
	if *landslidePath != "" {
		importZones(*landslidePath, models.HazardKindLandslide)
	}

	if *seismicPath != "" {
		events, err := ingestion.LoadSeismicCSV(*seismicPath)
		if err != nil {
			logging.Fatalf("Failed to load seismic catalog: %v", err)
		}
		if err := store.InsertEvents(ctx, events); err != nil {
			logging.Fatalf("Failed to insert seismic events: %v", err)
		}
		slog.Info("imported seismic events", "count", len(events))
	}
}
