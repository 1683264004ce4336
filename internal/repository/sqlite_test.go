package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
)

const testSquare = `{"type":"Polygon","coordinates":[[[120.0,14.0],[121.0,14.0],[121.0,15.0],[120.0,15.0],[120.0,14.0]]]}`
const testSquareEast = `{"type":"Polygon","coordinates":[[[122.0,14.0],[123.0,14.0],[123.0,15.0],[122.0,15.0],[122.0,14.0]]]}`

func setupStore(t *testing.T) Store {
	t.Helper()
	store, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init schema: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertZone(t *testing.T, store Store, kind models.HazardKind, geometry string, risk float64) {
	t.Helper()
	err := store.InsertZones(context.Background(), []models.HazardZone{{
		Kind:      kind,
		Geometry:  json.RawMessage(geometry),
		RiskValue: risk,
	}})
	if err != nil {
		t.Fatalf("InsertZones failed: %v", err)
	}
}

func TestMaxRiskAtPoint_OverlapTakesMax(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindFlood, testSquare, 1.0)
	insertZone(t, store, models.HazardKindFlood, testSquare, 3.0)

	risk, err := store.MaxRiskAtPoint(context.Background(), models.HazardKindFlood, 14.5, 120.5)
	if err != nil {
		t.Fatalf("MaxRiskAtPoint failed: %v", err)
	}
	if risk == nil || *risk != 3.0 {
		t.Errorf("got %v, want 3.0", risk)
	}
}

func TestMaxRiskAtPoint_BoundaryInclusive(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindFlood, testSquare, 2.0)

	// Edge midpoint and corner vertex both count as inside.
	for _, p := range []geo.Point{{Lat: 14.0, Lng: 120.5}, {Lat: 14.0, Lng: 120.0}} {
		risk, err := store.MaxRiskAtPoint(context.Background(), models.HazardKindFlood, p.Lat, p.Lng)
		if err != nil {
			t.Fatalf("MaxRiskAtPoint failed: %v", err)
		}
		if risk == nil {
			t.Errorf("boundary point %v should be contained", p)
		}
	}
}

func TestMaxRiskAtPoint_OutsideIsNil(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindFlood, testSquare, 2.0)

	risk, err := store.MaxRiskAtPoint(context.Background(), models.HazardKindFlood, 10.0, 120.5)
	if err != nil {
		t.Fatalf("MaxRiskAtPoint failed: %v", err)
	}
	if risk != nil {
		t.Errorf("got %v, want nil for point outside all zones", *risk)
	}
}

func TestMaxRiskAtPoint_KindIsolation(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindLandslide, testSquare, 3.0)

	risk, err := store.MaxRiskAtPoint(context.Background(), models.HazardKindFlood, 14.5, 120.5)
	if err != nil {
		t.Fatalf("MaxRiskAtPoint failed: %v", err)
	}
	if risk != nil {
		t.Error("landslide zone must not answer a flood query")
	}
}

func TestZonesInBBox_Intersects(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindFlood, testSquare, 2.0)
	insertZone(t, store, models.HazardKindLandslide, testSquareEast, 1.0)

	// Box partially overlapping the western square only.
	box := geo.BBox{MinLat: 14.5, MaxLat: 15.5, MinLng: 120.5, MaxLng: 121.5}
	zones, err := store.ZonesInBBox(context.Background(), box, models.HazardKindBoth)
	if err != nil {
		t.Fatalf("ZonesInBBox failed: %v", err)
	}
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	if zones[0].Kind != models.HazardKindFlood {
		t.Errorf("got kind %s, want flood", zones[0].Kind)
	}

	// Wide box catches both, kind filter narrows.
	wide := geo.BBox{MinLat: 13.0, MaxLat: 16.0, MinLng: 119.0, MaxLng: 124.0}
	zones, err = store.ZonesInBBox(context.Background(), wide, models.HazardKindLandslide)
	if err != nil {
		t.Fatalf("ZonesInBBox failed: %v", err)
	}
	if len(zones) != 1 || zones[0].Kind != models.HazardKindLandslide {
		t.Errorf("expected only the landslide zone, got %v", zones)
	}
}

func TestNearbyZones_OrderAndFilters(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindLandslide, testSquare, 3.0)
	insertZone(t, store, models.HazardKindLandslide, testSquareEast, 1.0)

	// Query point west of both squares: the western square is closer.
	zones, err := store.NearbyZones(context.Background(), models.HazardKindLandslide, 14.5, 119.0, 1000, ZoneFilter{})
	if err != nil {
		t.Fatalf("NearbyZones failed: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}
	if zones[0].DistanceKm > zones[1].DistanceKm {
		t.Error("zones not ordered by ascending distance")
	}
	if zones[0].Zone.RiskValue != 3.0 {
		t.Errorf("nearest zone risk = %v, want 3.0", zones[0].Zone.RiskValue)
	}

	minRisk := 2.0
	zones, err = store.NearbyZones(context.Background(), models.HazardKindLandslide, 14.5, 119.0, 1000, ZoneFilter{MinRisk: &minRisk})
	if err != nil {
		t.Fatalf("NearbyZones failed: %v", err)
	}
	if len(zones) != 1 || zones[0].Zone.RiskValue != 3.0 {
		t.Errorf("min_risk filter failed: %v", zones)
	}
}

func TestNearbyZones_RadiusInclusive(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindLandslide, testSquare, 2.0)

	// Distance from the query point to the square's bottom edge.
	d := geo.DistanceKm(geo.Point{Lat: 13.0, Lng: 120.5}, geo.Point{Lat: 14.0, Lng: 120.5})

	zones, err := store.NearbyZones(context.Background(), models.HazardKindLandslide, 13.0, 120.5, d, ZoneFilter{})
	if err != nil {
		t.Fatalf("NearbyZones failed: %v", err)
	}
	if len(zones) != 1 {
		t.Errorf("zone at exactly the radius should match, got %d results", len(zones))
	}

	zones, err = store.NearbyZones(context.Background(), models.HazardKindLandslide, 13.0, 120.5, d-1, ZoneFilter{})
	if err != nil {
		t.Fatalf("NearbyZones failed: %v", err)
	}
	if len(zones) != 0 {
		t.Errorf("zone beyond the radius should not match, got %d results", len(zones))
	}
}

func TestResetZones(t *testing.T) {
	store := setupStore(t)
	insertZone(t, store, models.HazardKindFlood, testSquare, 2.0)
	insertZone(t, store, models.HazardKindLandslide, testSquareEast, 2.0)

	if err := store.ResetZones(context.Background(), models.HazardKindFlood); err != nil {
		t.Fatalf("ResetZones failed: %v", err)
	}

	wide := geo.BBox{MinLat: 13.0, MaxLat: 16.0, MinLng: 119.0, MaxLng: 124.0}
	zones, err := store.ZonesInBBox(context.Background(), wide, models.HazardKindBoth)
	if err != nil {
		t.Fatalf("ZonesInBBox failed: %v", err)
	}
	if len(zones) != 1 || zones[0].Kind != models.HazardKindLandslide {
		t.Errorf("expected only landslide zone to survive, got %v", zones)
	}
}

func TestRecentNear_WindowAndRadius(t *testing.T) {
	store := setupStore(t)
	now := time.Now().UTC()

	events := []models.SeismicEvent{
		{Latitude: 14.6, Longitude: 121.0, Magnitude: 4.5, EventTime: now.Add(-1 * time.Hour), LocationName: "near fresh"},
		{Latitude: 14.6, Longitude: 121.0, Magnitude: 5.5, EventTime: now.Add(-30 * time.Hour), LocationName: "near stale"},
		{Latitude: 5.0, Longitude: 125.0, Magnitude: 6.0, EventTime: now.Add(-1 * time.Hour), LocationName: "far fresh"},
	}
	if err := store.InsertEvents(context.Background(), events); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	quakes, err := store.RecentNear(context.Background(), 14.5995, 120.9842, 24*time.Hour, 100)
	if err != nil {
		t.Fatalf("RecentNear failed: %v", err)
	}
	if len(quakes) != 1 {
		t.Fatalf("expected 1 quake, got %d", len(quakes))
	}
	if quakes[0].Event.LocationName != "near fresh" {
		t.Errorf("got %s, want the fresh nearby event", quakes[0].Event.LocationName)
	}
}

func TestRecentNear_ZeroWindowIsEmpty(t *testing.T) {
	store := setupStore(t)
	if err := store.InsertEvents(context.Background(), []models.SeismicEvent{
		{Latitude: 14.6, Longitude: 121.0, Magnitude: 4.5, EventTime: time.Now().UTC()},
	}); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	for _, window := range []time.Duration{0, -time.Hour} {
		quakes, err := store.RecentNear(context.Background(), 14.6, 121.0, window, 100)
		if err != nil {
			t.Fatalf("RecentNear failed: %v", err)
		}
		if len(quakes) != 0 {
			t.Errorf("window %v should return no events, got %d", window, len(quakes))
		}
	}
}

func TestRecentNear_OrderedByDistance(t *testing.T) {
	store := setupStore(t)
	now := time.Now().UTC()

	events := []models.SeismicEvent{
		{Latitude: 15.0, Longitude: 121.0, Magnitude: 4.0, EventTime: now.Add(-2 * time.Hour)},
		{Latitude: 14.7, Longitude: 121.0, Magnitude: 5.0, EventTime: now.Add(-3 * time.Hour)},
	}
	if err := store.InsertEvents(context.Background(), events); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	quakes, err := store.RecentNear(context.Background(), 14.5995, 120.9842, 24*time.Hour, 200)
	if err != nil {
		t.Fatalf("RecentNear failed: %v", err)
	}
	if len(quakes) != 2 {
		t.Fatalf("expected 2 quakes, got %d", len(quakes))
	}
	if quakes[0].DistanceKm > quakes[1].DistanceKm {
		t.Error("quakes not ordered by ascending distance")
	}
}

func TestNearestRecent_PicksClosest(t *testing.T) {
	store := setupStore(t)
	now := time.Now().UTC()
	temp := 31.0

	near := &models.WeatherObservation{Latitude: 14.65, Longitude: 121.0, Temperature: &temp, StationName: "near", RecordedAt: now.Add(-time.Hour)}
	far := &models.WeatherObservation{Latitude: 16.4, Longitude: 120.6, Temperature: &temp, StationName: "far", RecordedAt: now.Add(-time.Hour)}
	for _, obs := range []*models.WeatherObservation{near, far} {
		if err := store.InsertObservation(context.Background(), obs); err != nil {
			t.Fatalf("InsertObservation failed: %v", err)
		}
	}

	got, err := store.NearestRecent(context.Background(), 14.5995, 120.9842, 3*time.Hour, 500)
	if err != nil {
		t.Fatalf("NearestRecent failed: %v", err)
	}
	if got == nil || got.Observation.StationName != "near" {
		t.Errorf("got %v, want the nearer station", got)
	}
}

func TestNearestRecent_TieBreakMostRecent(t *testing.T) {
	store := setupStore(t)
	now := time.Now().UTC()

	older := &models.WeatherObservation{Latitude: 14.65, Longitude: 121.0, StationName: "older", RecordedAt: now.Add(-2 * time.Hour)}
	newer := &models.WeatherObservation{Latitude: 14.65, Longitude: 121.0, StationName: "newer", RecordedAt: now.Add(-1 * time.Hour)}
	for _, obs := range []*models.WeatherObservation{older, newer} {
		if err := store.InsertObservation(context.Background(), obs); err != nil {
			t.Fatalf("InsertObservation failed: %v", err)
		}
	}

	got, err := store.NearestRecent(context.Background(), 14.5995, 120.9842, 3*time.Hour, 500)
	if err != nil {
		t.Fatalf("NearestRecent failed: %v", err)
	}
	if got == nil || got.Observation.StationName != "newer" {
		t.Errorf("equidistant observations should tie-break on recency, got %v", got)
	}
}

func TestNearestRecent_NoneInWindow(t *testing.T) {
	store := setupStore(t)
	obs := &models.WeatherObservation{Latitude: 14.65, Longitude: 121.0, RecordedAt: time.Now().UTC().Add(-5 * time.Hour)}
	if err := store.InsertObservation(context.Background(), obs); err != nil {
		t.Fatalf("InsertObservation failed: %v", err)
	}

	got, err := store.NearestRecent(context.Background(), 14.5995, 120.9842, 3*time.Hour, 500)
	if err != nil {
		t.Fatalf("NearestRecent failed: %v", err)
	}
	if got != nil {
		t.Errorf("stale observation should not match, got %v", got)
	}
}

func TestAssessments_SaveAndList(t *testing.T) {
	store := setupStore(t)
	flood := 2.5

	a := &models.RiskAssessment{
		Latitude:        14.6,
		Longitude:       121.0,
		FloodRisk:       &flood,
		QuakeCount:      2,
		RiskScore:       55,
		RiskLevel:       "medium",
		Summary:         "test summary",
		Recommendations: []string{"line one", "line two"},
		GeneratedBy:     "fallback",
	}
	if err := store.SaveAssessment(context.Background(), a); err != nil {
		t.Fatalf("SaveAssessment failed: %v", err)
	}
	if a.ID == 0 {
		t.Error("expected assessment ID to be set")
	}

	list, err := store.ListAssessments(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 assessment, got %d", len(list))
	}
	got := list[0]
	if got.FloodRisk == nil || *got.FloodRisk != 2.5 {
		t.Errorf("flood risk = %v, want 2.5", got.FloodRisk)
	}
	if got.LandslideRisk != nil {
		t.Errorf("landslide risk = %v, want nil", got.LandslideRisk)
	}
	if len(got.Recommendations) != 2 || got.Recommendations[0] != "line one" {
		t.Errorf("recommendations = %v", got.Recommendations)
	}
	if got.GeneratedBy != "fallback" {
		t.Errorf("generated_by = %s, want fallback", got.GeneratedBy)
	}
}

func TestProtocols_CRUD(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	p := &models.EmergencyProtocol{
		Name:        "Flood Evacuation",
		HazardType:  "flood",
		Description: "Barangay-level flood evacuation procedure",
		Steps:       []string{"Sound the alarm", "Move to high ground"},
		Status:      models.ProtocolStatusDraft,
	}
	if err := store.CreateProtocol(ctx, p); err != nil {
		t.Fatalf("CreateProtocol failed: %v", err)
	}
	if p.ID == 0 {
		t.Fatal("expected protocol ID to be set")
	}

	got, err := store.GetProtocol(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProtocol failed: %v", err)
	}
	if got.Name != "Flood Evacuation" || len(got.Steps) != 2 {
		t.Errorf("got %+v", got)
	}

	got.Status = models.ProtocolStatusActive
	got.Steps = append(got.Steps, "Account for residents")
	if err := store.UpdateProtocol(ctx, got); err != nil {
		t.Fatalf("UpdateProtocol failed: %v", err)
	}

	active := models.ProtocolStatusActive
	list, err := store.ListProtocols(ctx, &active)
	if err != nil {
		t.Fatalf("ListProtocols failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Steps) != 3 {
		t.Errorf("expected 1 active protocol with 3 steps, got %v", list)
	}

	draft := models.ProtocolStatusDraft
	list, err = store.ListProtocols(ctx, &draft)
	if err != nil {
		t.Fatalf("ListProtocols failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no draft protocols after update, got %d", len(list))
	}

	if err := store.DeleteProtocol(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProtocol failed: %v", err)
	}
	if _, err := store.GetProtocol(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound after delete", err)
	}
	if err := store.DeleteProtocol(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting a missing protocol should return ErrNotFound, got %v", err)
	}
}
