package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ZoneFilter narrows nearby-zone queries to a risk_value range.
type ZoneFilter struct {
	MinRisk *float64
	MaxRisk *float64
}

// HazardStore holds flood and landslide zone polygons.
//
// MaxRiskAtPoint returns the maximum risk_value among zones containing the
// point (boundary inclusive), or nil when no zone contains it. ZonesInBBox
// matches zones that intersect the box, not only those contained by it.
// NearbyZones orders by ascending geodesic distance.
type HazardStore interface {
	MaxRiskAtPoint(ctx context.Context, kind models.HazardKind, lat, lng float64) (*float64, error)
	ZonesInBBox(ctx context.Context, box geo.BBox, kind models.HazardKind) ([]models.HazardZone, error)
	NearbyZones(ctx context.Context, kind models.HazardKind, lat, lng, radiusKm float64, filter ZoneFilter) ([]models.ZoneDistance, error)
	InsertZones(ctx context.Context, zones []models.HazardZone) error
	ResetZones(ctx context.Context, kind models.HazardKind) error
}

// SeismicStore holds earthquake events.
//
// RecentNear returns events within the time window and radius (both
// inclusive), ordered by ascending distance then descending event_time. A
// zero or negative window yields an empty result, not an error.
type SeismicStore interface {
	RecentNear(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) ([]models.QuakeDistance, error)
	InsertEvents(ctx context.Context, events []models.SeismicEvent) error
}

// WeatherStore holds station observations.
//
// NearestRecent returns the single closest observation recorded within the
// window and radius, tie-broken by most recent recorded_at; nil when none
// qualifies.
type WeatherStore interface {
	NearestRecent(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) (*models.WeatherDistance, error)
	InsertObservation(ctx context.Context, obs *models.WeatherObservation) error
}

type AssessmentStore interface {
	SaveAssessment(ctx context.Context, a *models.RiskAssessment) error
	ListAssessments(ctx context.Context, limit int) ([]models.RiskAssessment, error)
}

type ProtocolStore interface {
	CreateProtocol(ctx context.Context, p *models.EmergencyProtocol) error
	GetProtocol(ctx context.Context, id int64) (*models.EmergencyProtocol, error)
	ListProtocols(ctx context.Context, status *models.ProtocolStatus) ([]models.EmergencyProtocol, error)
	UpdateProtocol(ctx context.Context, p *models.EmergencyProtocol) error
	DeleteProtocol(ctx context.Context, id int64) error
}

type Store interface {
	HazardStore
	SeismicStore
	WeatherStore
	AssessmentStore
	ProtocolStore
	Init(ctx context.Context) error
	Close() error
}

// New selects a store backend by driver name. Postgres (with PostGIS) is
// the production path; sqlite evaluates spatial predicates in-process and
// serves development and tests.
func New(driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql":
		return NewPostgres(dsn)
	case "sqlite":
		return NewSQLite(dsn)
	default:
		return nil, errors.New("unsupported database driver: " + driver)
	}
}
