package api

import (
	"encoding/json"

	"github.com/climatechai/go-hazard-risk/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

func zonesToGeoJSON(zones []models.HazardZone) FeatureCollection {
	features := make([]Feature, 0, len(zones))

	for _, z := range zones {
		f := Feature{
			Type:     "Feature",
			Geometry: z.Geometry,
			Properties: map[string]any{
				"id":         z.ID,
				"kind":       string(z.Kind),
				"risk_value": z.RiskValue,
				"created_at": z.CreatedAt,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
