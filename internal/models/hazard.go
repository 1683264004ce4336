package models

import (
	"encoding/json"
	"time"
)

type HazardKind string

const (
	HazardKindFlood     HazardKind = "flood"
	HazardKindLandslide HazardKind = "landslide"
	HazardKindBoth      HazardKind = "both"
)

// HazardZone is a flood or landslide polygon tagged with an ordinal risk
// severity. Geometry is GeoJSON (Polygon or MultiPolygon, WGS84 lon/lat).
// Zones are immutable after ingestion; RiskValue is clamped to [1,3].
type HazardZone struct {
	ID         int64
	Kind       HazardKind
	Geometry   json.RawMessage
	RiskValue  float64
	SourceFile string
	CreatedAt  time.Time
}

// ZoneDistance pairs a zone with its geodesic distance from a query point.
type ZoneDistance struct {
	Zone       HazardZone
	DistanceKm float64
}

// SeismicEvent is a recorded earthquake. EventTime is when the quake
// occurred, distinct from CreatedAt (ingestion time).
type SeismicEvent struct {
	ID           int64
	Latitude     float64
	Longitude    float64
	Magnitude    float64
	DepthKm      *float64
	EventTime    time.Time
	LocationName string
	Source       string
	CreatedAt    time.Time
}

type QuakeDistance struct {
	Event      SeismicEvent
	DistanceKm float64
}
