package ingestion

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
)

type zoneFeatureCollection struct {
	Type     string        `json:"type"`
	Features []zoneFeature `json:"features"`
}

type zoneFeature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// LoadZonesGeoJSON reads a hazard survey FeatureCollection and returns its
// zones. Features whose geometry fails validation are skipped with a
// warning rather than aborting the import; risk values are read from
// riskProperty (defaultRisk when absent) and clamped to [1, 3].
func LoadZonesGeoJSON(path string, kind models.HazardKind, riskProperty string, defaultRisk float64) ([]models.HazardZone, error) {
	if kind != models.HazardKindFlood && kind != models.HazardKindLandslide {
		return nil, fmt.Errorf("invalid zone kind %q", kind)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}

	var fc zoneFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%s: expected FeatureCollection, got %q", path, fc.Type)
	}

	source := filepath.Base(path)
	zones := make([]models.HazardZone, 0, len(fc.Features))
	for i, f := range fc.Features {
		if _, err := geo.ParseGeometry(f.Geometry); err != nil {
			slog.Warn("skipping feature with invalid geometry", "file", source, "feature", i, "error", err)
			continue
		}

		risk := defaultRisk
		if riskProperty != "" {
			if raw, ok := f.Properties[riskProperty]; ok {
				if v, ok := raw.(float64); ok {
					risk = v
				} else {
					slog.Warn("skipping feature with non-numeric risk", "file", source, "feature", i, "property", riskProperty)
					continue
				}
			}
		}

		zones = append(zones, models.HazardZone{
			Kind:       kind,
			Geometry:   f.Geometry,
			RiskValue:  ClampRisk(risk),
			SourceFile: source,
		})
	}

	slog.Info("loaded hazard zones", "file", source, "kind", kind, "count", len(zones), "skipped", len(fc.Features)-len(zones))
	return zones, nil
}

// ClampRisk forces a risk value onto the 1..3 severity scale.
func ClampRisk(v float64) float64 {
	if v < 1 {
		return 1
	}
	if v > 3 {
		return 3
	}
	return v
}
