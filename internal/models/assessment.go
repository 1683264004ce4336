package models

import "time"

// RiskAssessment is a derived snapshot of a point-in-time assessment,
// persisted for audit/history. Never mutated after creation.
type RiskAssessment struct {
	ID              int64
	Latitude        float64
	Longitude       float64
	FloodRisk       *float64
	LandslideRisk   *float64
	QuakeCount      int
	WeatherID       *int64
	RiskScore       int    // 0-100
	RiskLevel       string // low, medium, high, critical
	Summary         string
	Recommendations []string
	GeneratedBy     string // "llm" or "fallback"
	CreatedAt       time.Time
}
