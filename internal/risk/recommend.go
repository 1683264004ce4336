package risk

import (
	"fmt"

	"github.com/climatechai/go-hazard-risk/internal/models"
)

// FallbackRecommendation is the single line emitted when no hazard rule
// fires.
const FallbackRecommendation = "No immediate hazards detected for this location. Continue to monitor official advisories."

// HeavyRainThresholdMmHr triggers the heavy-rain recommendation line.
const HeavyRainThresholdMmHr = 10.0

// BuildRecommendations produces the ordered advice list. The rule order is
// a contract: flood line (high or medium, never both), landslide line
// (same exclusivity), earthquake summary, heavy rain, heat, evacuation
// escalation. Callers must not reorder or deduplicate.
func BuildRecommendations(flood, landslide Label, quakes []models.QuakeDistance, weather *models.WeatherDistance) []string {
	var recs []string

	switch flood {
	case LabelHigh:
		recs = append(recs, "High flood risk: avoid low-lying areas and waterways, and prepare to move to higher ground.")
	case LabelMedium:
		recs = append(recs, "Moderate flood risk: monitor water levels and official flood bulletins.")
	}

	switch landslide {
	case LabelHigh:
		recs = append(recs, "High landslide risk: stay away from steep slopes, especially during or after heavy rain.")
	case LabelMedium:
		recs = append(recs, "Moderate landslide risk: watch for slope cracks, tilting trees, or sudden changes in stream flow.")
	}

	if len(quakes) > 0 {
		// Strongest and nearest may be two different events; quakes arrive
		// ordered by ascending distance.
		strongest := quakes[0]
		for _, q := range quakes[1:] {
			if q.Event.Magnitude > strongest.Event.Magnitude {
				strongest = q
			}
		}
		nearest := quakes[0]
		recs = append(recs, fmt.Sprintf(
			"Recent seismic activity: strongest event magnitude %.1f (%s), nearest event %.1f km away. Review earthquake safety procedures.",
			strongest.Event.Magnitude, CategorizeMagnitude(strongest.Event.Magnitude), nearest.DistanceKm))
	}

	if weather != nil && weather.Observation.Rainfall != nil && *weather.Observation.Rainfall >= HeavyRainThresholdMmHr {
		recs = append(recs, fmt.Sprintf(
			"Heavy rainfall (%.1f mm/hr) recorded nearby: expect reduced visibility and possible flash flooding.",
			*weather.Observation.Rainfall))
	}

	if weather != nil {
		heat := HeatCategory(weather.Observation.Temperature, weather.Observation.Humidity)
		if heat == HeatHigh || heat == HeatExtreme {
			recs = append(recs, "High heat conditions: limit outdoor exposure, stay hydrated, and check on vulnerable neighbors.")
		}
	}

	if flood == LabelHigh || landslide == LabelHigh {
		recs = append(recs, "Evacuation may become necessary: identify your nearest evacuation center and keep emergency supplies ready.")
	}

	if len(recs) == 0 {
		recs = append(recs, FallbackRecommendation)
	}
	return recs
}
