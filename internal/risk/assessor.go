package risk

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/climatechai/go-hazard-risk/internal/models"
)

// Store is the subset of the repository the assessor reads from.
type Store interface {
	MaxRiskAtPoint(ctx context.Context, kind models.HazardKind, lat, lng float64) (*float64, error)
	RecentNear(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) ([]models.QuakeDistance, error)
	NearestRecent(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) (*models.WeatherDistance, error)
}

// Options carries the recency windows and radii for the seismic and
// weather axes.
type Options struct {
	QuakeWindow     time.Duration
	QuakeRadiusKm   float64
	WeatherWindow   time.Duration
	WeatherRadiusKm float64
}

func DefaultOptions() Options {
	return Options{
		QuakeWindow:     24 * time.Hour,
		QuakeRadiusKm:   100,
		WeatherWindow:   3 * time.Hour,
		WeatherRadiusKm: 100,
	}
}

// Assessment is the combined result of the four hazard axes. A false
// Available flag means that axis's query failed and it was treated as
// missing data rather than failing the whole assessment.
type Assessment struct {
	Latitude  float64
	Longitude float64

	FloodRisk      *float64
	FloodLabel     Label
	FloodAvailable bool

	LandslideRisk      *float64
	LandslideLabel     Label
	LandslideAvailable bool

	Earthquakes     []models.QuakeDistance
	QuakesAvailable bool

	Weather          *models.WeatherDistance
	WeatherAvailable bool
	Heat             HeatLevel

	RiskScore       int
	RiskLevel       string
	Recommendations []string
	GeneratedAt     time.Time
}

// ErrAllSourcesUnavailable is the total-outage case: every hazard axis
// failed, so there is no data to assess.
var ErrAllSourcesUnavailable = errors.New("all hazard data sources unavailable")

type Assessor struct {
	store Store
	opts  Options
}

func NewAssessor(store Store, opts Options) *Assessor {
	return &Assessor{store: store, opts: opts}
}

// Assess runs the four axis queries concurrently and aggregates them. Each
// query uses its own connection from the pool; they are read-only and
// independent, so order does not matter. A failed axis degrades to "no
// data" instead of aborting the assessment.
func (a *Assessor) Assess(ctx context.Context, lat, lng float64) (*Assessment, error) {
	res := &Assessment{
		Latitude:    lat,
		Longitude:   lng,
		GeneratedAt: time.Now().UTC(),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		risk, err := a.store.MaxRiskAtPoint(ctx, models.HazardKindFlood, lat, lng)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Error("flood query failed", "error", err)
			return
		}
		res.FloodRisk = risk
		res.FloodAvailable = true
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		risk, err := a.store.MaxRiskAtPoint(ctx, models.HazardKindLandslide, lat, lng)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Error("landslide query failed", "error", err)
			return
		}
		res.LandslideRisk = risk
		res.LandslideAvailable = true
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		quakes, err := a.store.RecentNear(ctx, lat, lng, a.opts.QuakeWindow, a.opts.QuakeRadiusKm)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Error("seismic query failed", "error", err)
			return
		}
		res.Earthquakes = quakes
		res.QuakesAvailable = true
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		weather, err := a.store.NearestRecent(ctx, lat, lng, a.opts.WeatherWindow, a.opts.WeatherRadiusKm)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			slog.Error("weather query failed", "error", err)
			return
		}
		res.Weather = weather
		res.WeatherAvailable = true
	}()

	wg.Wait()

	if !res.FloodAvailable && !res.LandslideAvailable && !res.QuakesAvailable && !res.WeatherAvailable {
		return nil, ErrAllSourcesUnavailable
	}

	res.FloodLabel = Categorize(res.FloodRisk)
	res.LandslideLabel = Categorize(res.LandslideRisk)
	res.Heat = HeatUnknown
	if res.Weather != nil {
		res.Heat = HeatCategory(res.Weather.Observation.Temperature, res.Weather.Observation.Humidity)
	}
	res.RiskScore, res.RiskLevel = score(res)
	res.Recommendations = BuildRecommendations(res.FloodLabel, res.LandslideLabel, res.Earthquakes, res.Weather)

	return res, nil
}

// score is the rule-based heuristic used when no model-generated score is
// involved: heavy rain and saturated air raise the score, each occupied
// hazard axis adds a fixed weight, a strong recent quake adds one more.
func score(a *Assessment) (int, string) {
	s := 0
	if a.Weather != nil {
		if a.Weather.Observation.Rainfall != nil && *a.Weather.Observation.Rainfall > 10 {
			s += 30
		}
		if a.Weather.Observation.Humidity != nil && *a.Weather.Observation.Humidity > 80 {
			s += 15
		}
	}
	if a.FloodRisk != nil {
		s += 25
	}
	if a.LandslideRisk != nil {
		s += 25
	}
	for _, q := range a.Earthquakes {
		if q.Event.Magnitude >= 5.0 {
			s += 20
			break
		}
	}
	if s > 100 {
		s = 100
	}
	return s, scoreLevel(s)
}

func scoreLevel(score int) string {
	switch {
	case score >= 80:
		return "critical"
	case score >= 60:
		return "high"
	case score >= 40:
		return "medium"
	default:
		return "low"
	}
}

// Record converts the assessment to its persisted form.
func (a *Assessment) Record(generatedBy string) *models.RiskAssessment {
	rec := &models.RiskAssessment{
		Latitude:        a.Latitude,
		Longitude:       a.Longitude,
		FloodRisk:       a.FloodRisk,
		LandslideRisk:   a.LandslideRisk,
		QuakeCount:      len(a.Earthquakes),
		RiskScore:       a.RiskScore,
		RiskLevel:       a.RiskLevel,
		Recommendations: a.Recommendations,
		GeneratedBy:     generatedBy,
		CreatedAt:       a.GeneratedAt,
	}
	if a.Weather != nil {
		id := a.Weather.Observation.ID
		rec.WeatherID = &id
	}
	return rec
}
