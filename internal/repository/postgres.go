package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
)

// postgresStore delegates the spatial predicates to PostGIS. Containment
// uses ST_Covers (boundary inclusive, unlike ST_Contains); radius queries
// go through the geography type so distances are geodesic meters.
type postgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}
	return &postgresStore{db: db}, nil
}

// builder returns a squirrel statement builder with postgres placeholders.
func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (s *postgresStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis`,
		`CREATE TABLE IF NOT EXISTS hazard_zones (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			geometry GEOMETRY(GEOMETRY, 4326) NOT NULL,
			risk_value DOUBLE PRECISION NOT NULL,
			source_file TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hazard_zones_geom ON hazard_zones USING GIST (geometry)`,
		`CREATE INDEX IF NOT EXISTS idx_hazard_zones_kind ON hazard_zones (kind)`,
		`CREATE TABLE IF NOT EXISTS seismic_events (
			id BIGSERIAL PRIMARY KEY,
			location GEOMETRY(POINT, 4326) NOT NULL,
			magnitude DOUBLE PRECISION NOT NULL,
			depth_km DOUBLE PRECISION,
			event_time TIMESTAMPTZ NOT NULL,
			location_name TEXT,
			source TEXT,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_seismic_events_geom ON seismic_events USING GIST (location)`,
		`CREATE INDEX IF NOT EXISTS idx_seismic_events_time ON seismic_events (event_time)`,
		`CREATE TABLE IF NOT EXISTS weather_observations (
			id BIGSERIAL PRIMARY KEY,
			location GEOMETRY(POINT, 4326) NOT NULL,
			temperature DOUBLE PRECISION,
			humidity DOUBLE PRECISION,
			rainfall DOUBLE PRECISION,
			wind_speed DOUBLE PRECISION,
			wind_direction DOUBLE PRECISION,
			pressure DOUBLE PRECISION,
			station_name TEXT,
			source TEXT,
			recorded_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_observations_geom ON weather_observations USING GIST (location)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_observations_time ON weather_observations (recorded_at)`,
		`CREATE TABLE IF NOT EXISTS risk_assessments (
			id BIGSERIAL PRIMARY KEY,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			flood_risk DOUBLE PRECISION,
			landslide_risk DOUBLE PRECISION,
			quake_count INTEGER NOT NULL,
			weather_id BIGINT,
			risk_score INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			summary TEXT,
			recommendations JSONB NOT NULL,
			generated_by TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS emergency_protocols (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			hazard_type TEXT NOT NULL,
			description TEXT,
			steps JSONB NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error while migrating database: %w", err)
		}
	}
	return nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}

const pointExpr = `ST_SetSRID(ST_MakePoint(?, ?), 4326)`

func (s *postgresStore) MaxRiskAtPoint(ctx context.Context, kind models.HazardKind, lat, lng float64) (*float64, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT MAX(risk_value) FROM hazard_zones
		WHERE kind = $1 AND ST_Covers(geometry, ST_SetSRID(ST_MakePoint($2, $3), 4326))`,
		string(kind), lng, lat)

	var max sql.NullFloat64
	if err := row.Scan(&max); err != nil {
		return nil, fmt.Errorf("error querying max risk: %w", err)
	}
	return nullableFloat(max), nil
}

func (s *postgresStore) ZonesInBBox(ctx context.Context, box geo.BBox, kind models.HazardKind) ([]models.HazardZone, error) {
	query := builder().
		Select("id", "kind", "ST_AsGeoJSON(geometry)", "risk_value", "source_file", "created_at").
		From("hazard_zones").
		Where(sq.Expr(`ST_Intersects(geometry, ST_MakeEnvelope(?, ?, ?, ?, 4326))`,
			box.MinLng, box.MinLat, box.MaxLng, box.MaxLat))
	if kind != models.HazardKindBoth {
		query = query.Where(sq.Eq{"kind": string(kind)})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying hazard zones: %w", err)
	}
	defer rows.Close()

	var zones []models.HazardZone
	for rows.Next() {
		z, err := scanZone(rows, nil)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, rows.Err()
}

func (s *postgresStore) NearbyZones(ctx context.Context, kind models.HazardKind, lat, lng, radiusKm float64, filter ZoneFilter) ([]models.ZoneDistance, error) {
	meters := (radiusKm + geo.RadiusEpsilonKm) * 1000
	query := builder().
		Select("id", "kind", "ST_AsGeoJSON(geometry)", "risk_value", "source_file", "created_at").
		Column(sq.Expr(`ST_Distance(geometry::geography, `+pointExpr+`::geography) / 1000.0 AS distance_km`, lng, lat)).
		From("hazard_zones").
		Where(sq.Eq{"kind": string(kind)}).
		Where(sq.Expr(`ST_DWithin(geometry::geography, `+pointExpr+`::geography, ?)`, lng, lat, meters)).
		OrderBy("distance_km ASC")
	if filter.MinRisk != nil {
		query = query.Where(sq.GtOrEq{"risk_value": *filter.MinRisk})
	}
	if filter.MaxRisk != nil {
		query = query.Where(sq.LtOrEq{"risk_value": *filter.MaxRisk})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying nearby zones: %w", err)
	}
	defer rows.Close()

	var results []models.ZoneDistance
	for rows.Next() {
		var dist float64
		z, err := scanZone(rows, &dist)
		if err != nil {
			return nil, err
		}
		results = append(results, models.ZoneDistance{Zone: *z, DistanceKm: dist})
	}
	return results, rows.Err()
}

func scanZone(rows *sql.Rows, dist *float64) (*models.HazardZone, error) {
	var z models.HazardZone
	var kindStr, geomStr string
	var source sql.NullString
	dest := []any{&z.ID, &kindStr, &geomStr, &z.RiskValue, &source, &z.CreatedAt}
	if dist != nil {
		dest = append(dest, dist)
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}
	z.Kind = models.HazardKind(kindStr)
	z.Geometry = json.RawMessage(geomStr)
	z.SourceFile = source.String
	return &z, nil
}

func (s *postgresStore) InsertZones(ctx context.Context, zones []models.HazardZone) error {
	if len(zones) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO hazard_zones (kind, geometry, risk_value, source_file, created_at)
		VALUES ($1, ST_SetSRID(ST_GeomFromGeoJSON($2), 4326), $3, $4, $5)`)
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

func (s *postgresStore) ResetZones(ctx context.Context, kind models.HazardKind) error {
	if kind == models.HazardKindBoth {
		_, err := s.db.ExecContext(ctx, `TRUNCATE hazard_zones`)
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM hazard_zones WHERE kind = $1`, string(kind))
	return err
}

func (s *postgresStore) RecentNear(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) ([]models.QuakeDistance, error) {
	if window <= 0 {
		return nil, nil
	}
	cutoff := time.Now().UTC().Add(-window)
	meters := (radiusKm + geo.RadiusEpsilonKm) * 1000

	query := builder().
		Select("id", "ST_Y(location)", "ST_X(location)", "magnitude", "depth_km", "event_time", "location_name", "source", "created_at").
		Column(sq.Expr(`ST_Distance(location::geography, `+pointExpr+`::geography) / 1000.0 AS distance_km`, lng, lat)).
		From("seismic_events").
		Where(sq.GtOrEq{"event_time": cutoff}).
		Where(sq.Expr(`ST_DWithin(location::geography, `+pointExpr+`::geography, ?)`, lng, lat, meters)).
		OrderBy("distance_km ASC", "event_time DESC")

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying seismic events: %w", err)
	}
	defer rows.Close()

	var results []models.QuakeDistance
	for rows.Next() {
		var e models.SeismicEvent
		var depth sql.NullFloat64
		var location, source sql.NullString
		var dist float64
		if err := rows.Scan(&e.ID, &e.Latitude, &e.Longitude, &e.Magnitude, &depth, &e.EventTime,
			&location, &source, &e.CreatedAt, &dist); err != nil {
			return nil, err
		}
		e.DepthKm = nullableFloat(depth)
		e.LocationName = location.String
		e.Source = source.String
		results = append(results, models.QuakeDistance{Event: e, DistanceKm: dist})
	}
	return results, rows.Err()
}

func (s *postgresStore) InsertEvents(ctx context.Context, events []models.SeismicEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO seismic_events (location, magnitude, depth_km, event_time, location_name, source, created_at)
		VALUES (ST_SetSRID(ST_MakePoint($1, $2), 4326), $3, $4, $5, $6, $7, $8)`)
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
		if _, err := stmt.ExecContext(ctx, e.Longitude, e.Latitude, e.Magnitude, floatArg(e.DepthKm),
			e.EventTime.UTC(), e.LocationName, e.Source, created); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *postgresStore) NearestRecent(ctx context.Context, lat, lng float64, window time.Duration, radiusKm float64) (*models.WeatherDistance, error) {
	if window <= 0 {
		return nil, nil
	}
	cutoff := time.Now().UTC().Add(-window)
	meters := (radiusKm + geo.RadiusEpsilonKm) * 1000

	query := builder().
		Select("id", "ST_Y(location)", "ST_X(location)", "temperature", "humidity", "rainfall",
			"wind_speed", "wind_direction", "pressure", "station_name", "source", "recorded_at", "created_at").
		Column(sq.Expr(`ST_Distance(location::geography, `+pointExpr+`::geography) / 1000.0 AS distance_km`, lng, lat)).
		From("weather_observations").
		Where(sq.GtOrEq{"recorded_at": cutoff}).
		Where(sq.Expr(`ST_DWithin(location::geography, `+pointExpr+`::geography, ?)`, lng, lat, meters)).
		OrderBy("distance_km ASC", "recorded_at DESC").
		Limit(1)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, sqlStr, args...)

	var o models.WeatherObservation
	var temp, hum, rain, wspd, wdir, pres sql.NullFloat64
	var station, source sql.NullString
	var dist float64
	err = row.Scan(&o.ID, &o.Latitude, &o.Longitude, &temp, &hum, &rain, &wspd, &wdir, &pres,
		&station, &source, &o.RecordedAt, &o.CreatedAt, &dist)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying nearest weather: %w", err)
	}
	o.Temperature = nullableFloat(temp)
	o.Humidity = nullableFloat(hum)
	o.Rainfall = nullableFloat(rain)
	o.WindSpeed = nullableFloat(wspd)
	o.WindDirection = nullableFloat(wdir)
	o.Pressure = nullableFloat(pres)
	o.StationName = station.String
	o.Source = source.String
	return &models.WeatherDistance{Observation: o, DistanceKm: dist}, nil
}

func (s *postgresStore) InsertObservation(ctx context.Context, obs *models.WeatherObservation) error {
	created := obs.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO weather_observations (location, temperature, humidity, rainfall, wind_speed, wind_direction,
			pressure, station_name, source, recorded_at, created_at)
		VALUES (ST_SetSRID(ST_MakePoint($1, $2), 4326), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		obs.Longitude, obs.Latitude,
		floatArg(obs.Temperature), floatArg(obs.Humidity), floatArg(obs.Rainfall),
		floatArg(obs.WindSpeed), floatArg(obs.WindDirection), floatArg(obs.Pressure),
		obs.StationName, obs.Source, obs.RecordedAt.UTC(), created)
	return row.Scan(&obs.ID)
}

func (s *postgresStore) SaveAssessment(ctx context.Context, a *models.RiskAssessment) error {
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
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO risk_assessments (latitude, longitude, flood_risk, landslide_risk, quake_count, weather_id,
			risk_score, risk_level, summary, recommendations, generated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		a.Latitude, a.Longitude, floatArg(a.FloodRisk), floatArg(a.LandslideRisk), a.QuakeCount, weatherID,
		a.RiskScore, a.RiskLevel, a.Summary, string(recs), a.GeneratedBy, created)
	return row.Scan(&a.ID)
}

func (s *postgresStore) ListAssessments(ctx context.Context, limit int) ([]models.RiskAssessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, latitude, longitude, flood_risk, landslide_risk, quake_count, weather_id,
			risk_score, risk_level, summary, recommendations, generated_by, created_at
		FROM risk_assessments ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
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
		var recs []byte
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
		if err := json.Unmarshal(recs, &a.Recommendations); err != nil {
			return nil, fmt.Errorf("error unmarshaling recommendations: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *postgresStore) CreateProtocol(ctx context.Context, p *models.EmergencyProtocol) error {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("error marshaling steps: %w", err)
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO emergency_protocols (name, hazard_type, description, steps, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		p.Name, p.HazardType, p.Description, string(steps), string(p.Status), p.CreatedAt, p.UpdatedAt)
	return row.Scan(&p.ID)
}

func (s *postgresStore) GetProtocol(ctx context.Context, id int64) (*models.EmergencyProtocol, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, hazard_type, description, steps, status, created_at, updated_at
		FROM emergency_protocols WHERE id = $1`, id)
	return scanProtocol(row)
}

func (s *postgresStore) ListProtocols(ctx context.Context, status *models.ProtocolStatus) ([]models.EmergencyProtocol, error) {
	query := builder().
		Select("id", "name", "hazard_type", "description", "steps", "status", "created_at", "updated_at").
		From("emergency_protocols").
		OrderBy("name")
	if status != nil {
		query = query.Where(sq.Eq{"status": string(*status)})
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.EmergencyProtocol
	for rows.Next() {
		var p models.EmergencyProtocol
		var desc sql.NullString
		var steps []byte
		var st string
		if err := rows.Scan(&p.ID, &p.Name, &p.HazardType, &desc, &steps, &st, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Description = desc.String
		p.Status = models.ProtocolStatus(st)
		if err := json.Unmarshal(steps, &p.Steps); err != nil {
			return nil, fmt.Errorf("error unmarshaling steps: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *postgresStore) UpdateProtocol(ctx context.Context, p *models.EmergencyProtocol) error {
	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return fmt.Errorf("error marshaling steps: %w", err)
	}
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE emergency_protocols SET name = $1, hazard_type = $2, description = $3, steps = $4, status = $5, updated_at = $6
		WHERE id = $7`,
		p.Name, p.HazardType, p.Description, string(steps), string(p.Status), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *postgresStore) DeleteProtocol(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM emergency_protocols WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
