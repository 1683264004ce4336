package models

import "time"

// WeatherObservation is a single station reading. Observations are
// immutable; callers always take the most recent reading within radius, so
// newer rows supersede older ones implicitly.
type WeatherObservation struct {
	ID            int64
	Latitude      float64
	Longitude     float64
	Temperature   *float64 // °C
	Humidity      *float64 // %
	Rainfall      *float64 // mm/hr
	WindSpeed     *float64 // km/h
	WindDirection *float64 // degrees
	Pressure      *float64 // mb
	StationName   string
	Source        string
	RecordedAt    time.Time
	CreatedAt     time.Time
}

type WeatherDistance struct {
	Observation WeatherObservation
	DistanceKm  float64
}
