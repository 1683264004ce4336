package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
)

// sqliteStore keeps zone geometries as GeoJSON text and evaluates the
// spatial predicates in-process. Results match the postgres backend's
// contracts so the two are interchangeable behind Store.
type sqliteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS hazard_zones (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			geometry TEXT NOT NULL,
			risk_value REAL NOT NULL,
			source_file TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS seismic_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			magnitude REAL NOT NULL,
			depth_km REAL,
			event_time DATETIME NOT NULL,
			location_name TEXT,
			source TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS weather_observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			temperature REAL,
			humidity REAL,
			rainfall REAL,
			wind_speed REAL,
			wind_direction REAL,
			pressure REAL,
			station_name TEXT,
			source TEXT,
			recorded_at DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS risk_assessments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			flood_risk REAL,
			landslide_risk REAL,
			quake_count INTEGER NOT NULL,
			weather_id INTEGER,
			risk_score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			summary TEXT,
			recommendations TEXT NOT NULL,
			generated_by TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS emergency_protocols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			hazard_type TEXT NOT NULL,
			description TEXT,
			steps TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_hazard_zones_kind ON hazard_zones(kind);
		CREATE INDEX IF NOT EXISTS idx_seismic_event_time ON seismic_events(event_time);
		CREATE INDEX IF NOT EXISTS idx_weather_recorded_at ON weather_observations(recorded_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) loadZones(ctx context.Context, kind models.HazardKind) ([]models.HazardZone, error) {
	query := `SELECT id, kind, geometry, risk_value, source_file, created_at FROM hazard_zones`
	args := []any{}
	if kind != models.HazardKindBoth {
		query += ` WHERE kind = ?`
		args = append(args, string(kind))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying hazard zones: %w", err)
	}
	defer rows.Close()

	var zones []models.HazardZone
	for rows.Next() {
		var z models.HazardZone
		var kindStr, geomStr string
		var source sql.NullString
		if err := rows.Scan(&z.ID, &kindStr, &geomStr, &z.RiskValue, &source, &z.CreatedAt); err != nil {
			return nil, err
		}
		z.Kind = models.HazardKind(kindStr)
		z.Geometry = json.RawMessage(geomStr)
		z.SourceFile = source.String
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

func (s *sqliteStore) MaxRiskAtPoint(ctx context.Context, kind models.HazardKind, lat, lng float64) (*float64, error) {
	zones, err := s.loadZones(ctx, kind)
	if err != nil {
		return nil, err
	}

	p := geo.Point{Lat: lat, Lng: lng}
	var max *float64
	for _, z := range zones {
		g, err := geo.ParseGeometry(z.Geometry)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", z.ID, err)
		}
		if !g.Contains(p) {
			continue
		}
		if max == nil || z.RiskValue > *max {
			v := z.RiskValue
			max = &v
		}
	}
	return max, nil
}

func (s *sqliteStore) ZonesInBBox(ctx context.Context, box geo.BBox, kind models.HazardKind) ([]models.HazardZone, error) {
	zones, err := s.loadZones(ctx, kind)
	if err != nil {
		return nil, err
	}

	matched := make([]models.HazardZone, 0, len(zones))
	for _, z := range zones {
		g, err := geo.ParseGeometry(z.Geometry)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", z.ID, err)
		}
		if g.IntersectsRect(box) {
			matched = append(matched, z)
		}
	}
	return matched, nil
}

func (s *sqliteStore) NearbyZones(ctx context.Context, kind models.HazardKind, lat, lng, radiusKm float64, filter ZoneFilter) ([]models.ZoneDistance, error) {
	zones, err := s.loadZones(ctx, kind)
	if err != nil {
		return nil, err
	}

	p := geo.Point{Lat: lat, Lng: lng}
	var results []models.ZoneDistance
	for _, z := range zones {
		if filter.MinRisk != nil && z.RiskValue < *filter.MinRisk {
			continue
		}
		if filter.MaxRisk != nil && z.RiskValue > *filter.MaxRisk {
			continue
		}
		g, err := geo.ParseGeometry(z.Geometry)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", z.ID, err)
		}
		d := g.DistanceToPointKm(p)
		if d <= radiusKm+geo.RadiusEpsilonKm {
			results = append(results, models.ZoneDistance{Zone: z, DistanceKm: d})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].DistanceKm < results[j].DistanceKm
	})
	return results, nil
}

func (s *sqliteStore) InsertZones(ctx context.Context, zones []models.HazardZone) error {
	if len(zones) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO hazard_zones (kind, geometry, risk_value, source_file, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, z := range zones {
		created := z.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, string(z.Kind), string(z.Geometry), z.RiskValue, z.SourceFile, created); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ResetZones(ctx context.Context, kind models.HazardKind) error {
	if kind == models.HazardKindBoth {
		_, err := s.db.ExecContext(ctx, `DELETE FROM hazard_zones`)
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM hazard_zones WHERE kind = ?`, string(kind))
	return err
}

func (s *sqliteStore) RecentNear(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) ([]models.QuakeDistance, error) {
	if window <= 0 {
		return nil, nil
	}
	cutoff := time.Now().UTC().Add(-window)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, magnitude, depth_km, event_time, location_name, source, created_at
		FROM seismic_events WHERE event_time >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error querying seismic events: %w", err)
	}
	defer rows.Close()

	p := geo.Point{Lat: lat, Lng: lng}
	var results []models.QuakeDistance
	for rows.Next() {
		var e models.SeismicEvent
		var depth sql.NullFloat64
		var location, source sql.NullString
		if err := rows.Scan(&e.ID, &e.Latitude, &e.Longitude, &e.Magnitude, &depth, &e.EventTime, &location, &source, &e.CreatedAt); err != nil {
			return nil, err
		}
		if depth.Valid {
			e.DepthKm = &depth.Float64
		}
		e.LocationName = location.String
		e.Source = source.String

		d := geo.DistanceKm(p, geo.Point{Lat: e.Latitude, Lng: e.Longitude})
		if d <= radiusKm+geo.RadiusEpsilonKm {
			results = append(results, models.QuakeDistance{Event: e, DistanceKm: d})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].DistanceKm != results[j].DistanceKm {
			return results[i].DistanceKm < results[j].DistanceKm
		}
		return results[i].Event.EventTime.After(results[j].Event.EventTime)
	})
	return results, nil
}

func (s *sqliteStore) InsertEvents(ctx context.Context, events []models.SeismicEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO seismic_events (latitude, longitude, magnitude, depth_km, event_time, location_name, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, e := range events {
		created := e.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		var depth any
		if e.DepthKm != nil {
			depth = *e.DepthKm
		}
		if _, err := stmt.ExecContext(ctx, e.Latitude, e.Longitude, e.Magnitude, depth, e.EventTime.UTC(), e.LocationName, e.Source, created); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) NearestRecent(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) (*models.WeatherDistance, error) {
	if window <= 0 {
		return nil, nil
	}
	cutoff := time.Now().UTC().Add(-window)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, temperature, humidity, rainfall, wind_speed, wind_direction, pressure,
			station_name, source, recorded_at, created_at
		FROM weather_observations WHERE recorded_at >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error querying weather observations: %w", err)
	}
	defer rows.Close()

	p := geo.Point{Lat: lat, Lng: lng}
	var best *models.WeatherDistance
	for rows.Next() {
		var o models.WeatherObservation
		var temp, hum, rain, wspd, wdir, pres sql.NullFloat64
		var station, source sql.NullString
		if err := rows.Scan(&o.ID, &o.Latitude, &o.Longitude, &temp, &hum, &rain, &wspd, &wdir, &pres,
			&station, &source, &o.RecordedAt, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Temperature = nullableFloat(temp)
		o.Humidity = nullableFloat(hum)
		o.Rainfall = nullableFloat(rain)
		o.WindSpeed = nullableFloat(wspd)
		o.WindDirection = nullableFloat(wdir)
		o.Pressure = nullableFloat(pres)
		o.StationName = station.String
		o.Source = source.String

		d := geo.DistanceKm(p, geo.Point{Lat: o.Latitude, Lng: o.Longitude})
		if d > radiusKm+geo.RadiusEpsilonKm {
			continue
		}
		if best == nil || closerOrFresher(d, o.RecordedAt, best) {
			best = &models.WeatherDistance{Observation: o, DistanceKm: d}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return best, nil
}

// closerOrFresher prefers the smaller distance; equidistant observations
// tie-break on the more recent recorded_at.
func closerOrFresher(d float64, recordedAt time.Time, best *models.WeatherDistance) bool {
	if d < best.DistanceKm-geo.RadiusEpsilonKm {
		return true
	}
	if d > best.DistanceKm+geo.RadiusEpsilonKm {
		return false
	}
	return recordedAt.After(best.Observation.RecordedAt)
}

func (s *sqliteStore) InsertObservation(ctx context.Context, obs *models.WeatherObservation) error {
	created := obs.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO weather_observations (latitude, longitude, temperature, humidity, rainfall, wind_speed,
			wind_direction, pressure, station_name, source, recorded_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		obs.Latitude, obs.Longitude,
		floatArg(obs.Temperature), floatArg(obs.Humidity), floatArg(obs.Rainfall),
		floatArg(obs.WindSpeed), floatArg(obs.WindDirection), floatArg(obs.Pressure),
		obs.StationName, obs.Source, obs.RecordedAt.UTC(), created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		obs.ID = id
	}
	return nil
}

func (s *sqliteStore) SaveAssessment(ctx context.Context, a *models.RiskAssessment) error {
	recs, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("error marshaling recommendations: %w", err)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var weatherID any
	if a.WeatherID != nil {
		weatherID = *a.WeatherID
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO risk_assessments (latitude, longitude, flood_risk, landslide_risk, quake_count, weather_id,
			risk_score, risk_level, summary, recommendations, generated_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Latitude, a.Longitude, floatArg(a.FloodRisk), floatArg(a.LandslideRisk), a.QuakeCount, weatherID,
		a.RiskScore, a.RiskLevel, a.Summary, string(recs), a.GeneratedBy, created)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		a.ID = id
	}
	return nil
}

func (s *sqliteStore) ListAssessments(ctx context.Context, limit int) ([]models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, flood_risk, landslide_risk, quake_count, weather_id,
			risk_score, risk_level, summary, recommendations, generated_by, created_at
		FROM risk_assessments ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RiskAssessment
	for rows.Next() {
		var a models.RiskAssessment
		var flood, landslide sql.NullFloat64
		var weatherID sql.NullInt64
		var summary sql.NullString
		var recs string
		if err := rows.Scan(&a.ID, &a.Latitude, &a.Longitude, &flood, &landslide, &a.QuakeCount, &weatherID,
			&a.RiskScore, &a.RiskLevel, &summary, &recs, &a.GeneratedBy, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.FloodRisk = nullableFloat(flood)
		a.LandslideRisk = nullableFloat(landslide)
		if weatherID.Valid {
			a.WeatherID = &weatherID.Int64
		}
		a.Summary = summary.String
		if err := json.Unmarshal([]byte(recs), &a.Recommendations); err != nil {
			return nil, fmt.Errorf("error unmarshaling recommendations: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *sqliteStore) CreateProtocol(ctx context.Context, p *models.EmergencyProtocol) error {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("error marshaling steps: %w", err)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO emergency_protocols (name, hazard_type, description, steps, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.HazardType, p.Description, string(steps), string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		p.ID = id
	}
	return nil
}

func (s *sqliteStore) GetProtocol(ctx context.Context, id int64) (*models.EmergencyProtocol, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, hazard_type, description, steps, status, created_at, updated_at
		FROM emergency_protocols WHERE id = ?`, id)
	return scanProtocol(row)
}

func scanProtocol(row *sql.Row) (*models.EmergencyProtocol, error) {
	var p models.EmergencyProtocol
	var desc sql.NullString
	var steps, status string
	err := row.Scan(&p.ID, &p.Name, &p.HazardType, &desc, &steps, &status, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Description = desc.String
	p.Status = models.ProtocolStatus(status)
	if err := json.Unmarshal([]byte(steps), &p.Steps); err != nil {
		return nil, fmt.Errorf("error unmarshaling steps: %w", err)
	}
	return &p, nil
}

func (s *sqliteStore) ListProtocols(ctx context.Context, status *models.ProtocolStatus) ([]models.EmergencyProtocol, error) {
	query := `SELECT id, name, hazard_type, description, steps, status, created_at, updated_at
		FROM emergency_protocols`
	args := []any{}
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EmergencyProtocol
	for rows.Next() {
		var p models.EmergencyProtocol
		var desc sql.NullString
		var steps, st string
		if err := rows.Scan(&p.ID, &p.Name, &p.HazardType, &desc, &steps, &st, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Description = desc.String
		p.Status = models.ProtocolStatus(st)
		if err := json.Unmarshal([]byte(steps), &p.Steps); err != nil {
			return nil, fmt.Errorf("error unmarshaling steps: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqliteStore) UpdateProtocol(ctx context.Context, p *models.EmergencyProtocol) error {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("error marshaling steps: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE emergency_protocols SET name = ?, hazard_type = ?, description = ?, steps = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.HazardType, p.Description, string(steps), string(p.Status), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqliteStore) DeleteProtocol(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM emergency_protocols WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
