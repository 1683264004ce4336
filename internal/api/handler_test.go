package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/climatechai/go-hazard-risk/internal/advisor"
	"github.com/climatechai/go-hazard-risk/internal/models"
	"github.com/climatechai/go-hazard-risk/internal/repository"
	"github.com/climatechai/go-hazard-risk/internal/risk"
)

const testSquare = `{"type":"Polygon","coordinates":[[[120.0,14.0],[121.0,14.0],[121.0,15.0],[120.0,15.0],[120.0,14.0]]]}`

func setupRouter(t *testing.T) (*gin.Engine, repository.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := repository.New("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	opts := risk.DefaultOptions()
	handler := NewHandler(store, risk.NewAssessor(store, opts), advisor.NewComposer(nil), opts)

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, store
}

func doRequest(router *gin.Engine, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %s: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)
	w := doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestGetHazardZones_Validation(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name   string
		target string
	}{
		{"missing params", "/api/hazard-zones"},
		{"malformed number", "/api/hazard-zones?min_lat=abc&max_lat=15&min_lng=120&max_lng=121"},
		{"inverted box", "/api/hazard-zones?min_lat=15&max_lat=14&min_lng=120&max_lng=121"},
		{"latitude out of range", "/api/hazard-zones?min_lat=-95&max_lat=15&min_lng=120&max_lng=121"},
		{"bad type", "/api/hazard-zones?min_lat=14&max_lat=15&min_lng=120&max_lng=121&type=volcano"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestGetHazardZones_GeoJSON(t *testing.T) {
	router, store := setupRouter(t)
	err := store.InsertZones(context.Background(), []models.HazardZone{{
		Kind:      models.HazardKindFlood,
		Geometry:  json.RawMessage(testSquare),
		RiskValue: 2.0,
	}})
	if err != nil {
		t.Fatalf("InsertZones failed: %v", err)
	}

	w := doRequest(router, http.MethodGet, "/api/hazard-zones?min_lat=14.5&max_lat=15.5&min_lng=120.5&max_lng=121.5", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var fc FeatureCollection
	decode(t, w, &fc)
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %s", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["kind"] != "flood" {
		t.Errorf("feature kind = %v", fc.Features[0].Properties["kind"])
	}

	// Disjoint viewport matches nothing.
	w = doRequest(router, http.MethodGet, "/api/hazard-zones?min_lat=16&max_lat=17&min_lng=120&max_lng=121", nil)
	decode(t, w, &fc)
	if len(fc.Features) != 0 {
		t.Errorf("expected no features, got %d", len(fc.Features))
	}
}

func TestNearbyLandslideZones(t *testing.T) {
	router, store := setupRouter(t)
	err := store.InsertZones(context.Background(), []models.HazardZone{{
		Kind:      models.HazardKindLandslide,
		Geometry:  json.RawMessage(testSquare),
		RiskValue: 2.7,
	}})
	if err != nil {
		t.Fatalf("InsertZones failed: %v", err)
	}

	w := doRequest(router, http.MethodGet, "/api/landslide-zones/nearby?lat=14.5&lng=120.5&radius_km=50", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count int                  `json:"count"`
		Zones []nearbyZoneResponse `json:"zones"`
	}
	decode(t, w, &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Zones[0].RiskLabel != "high" {
		t.Errorf("risk label = %s, want high", resp.Zones[0].RiskLabel)
	}
	if resp.Zones[0].DistanceKm != 0 {
		t.Errorf("distance inside zone = %v, want 0", resp.Zones[0].DistanceKm)
	}

	w = doRequest(router, http.MethodGet, "/api/landslide-zones/nearby?lat=14.5&lng=120.5&radius_km=-1", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative radius: status = %d, want 400", w.Code)
	}
}

func TestGetEarthquakes(t *testing.T) {
	router, store := setupRouter(t)
	err := store.InsertEvents(context.Background(), []models.SeismicEvent{{
		Latitude:  14.7,
		Longitude: 121.0,
		Magnitude: 5.2,
		EventTime: time.Now().UTC().Add(-time.Hour),
	}})
	if err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	w := doRequest(router, http.MethodGet, "/api/earthquakes?lat=14.6&lng=121.0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp struct {
		Count       int                  `json:"count"`
		Earthquakes []earthquakeResponse `json:"earthquakes"`
	}
	decode(t, w, &resp)
	if resp.Count != 1 {
		t.Fatalf("count = %d, want 1", resp.Count)
	}
	if resp.Earthquakes[0].Class != "moderate" {
		t.Errorf("class = %s, want moderate", resp.Earthquakes[0].Class)
	}

	// Zero-hour window yields an empty result, not an error.
	w = doRequest(router, http.MethodGet, "/api/earthquakes?lat=14.6&lng=121.0&hours=0", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	decode(t, w, &resp)
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0 for zero-hour window", resp.Count)
	}

	w = doRequest(router, http.MethodGet, "/api/earthquakes?lat=999&lng=121.0", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid latitude: status = %d, want 400", w.Code)
	}
}

func TestGetNearestWeather_NotFound(t *testing.T) {
	router, _ := setupRouter(t)
	w := doRequest(router, http.MethodGet, "/api/weather/nearest?lat=14.6&lng=121.0", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 with no observations", w.Code)
	}
}

func TestAssess(t *testing.T) {
	router, store := setupRouter(t)
	err := store.InsertZones(context.Background(), []models.HazardZone{{
		Kind:      models.HazardKindFlood,
		Geometry:  json.RawMessage(testSquare),
		RiskValue: 2.8,
	}})
	if err != nil {
		t.Fatalf("InsertZones failed: %v", err)
	}

	w := doRequest(router, http.MethodPost, "/api/assess", map[string]any{"latitude": 14.5, "longitude": 120.5})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp assessResponse
	decode(t, w, &resp)
	if resp.Flood.RiskLabel != "high" {
		t.Errorf("flood label = %s, want high", resp.Flood.RiskLabel)
	}
	if resp.Landslide.RiskLabel != "none" {
		t.Errorf("landslide label = %s, want none", resp.Landslide.RiskLabel)
	}
	if !resp.Seismic.Available || resp.Seismic.Count != 0 {
		t.Errorf("seismic axis = %+v", resp.Seismic)
	}
	if len(resp.Recommendations) == 0 {
		t.Error("expected recommendations")
	}

	// The assessment is persisted.
	records, err := store.ListAssessments(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 persisted assessment, got %d", len(records))
	}
}

func TestAssess_Validation(t *testing.T) {
	router, _ := setupRouter(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing fields", map[string]any{}},
		{"missing longitude", map[string]any{"latitude": 14.5}},
		{"latitude out of range", map[string]any{"latitude": 95.0, "longitude": 120.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, "/api/assess", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestAdvice_FallbackWithoutGenerator(t *testing.T) {
	router, store := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/advice", map[string]any{
		"latitude":  14.5,
		"longitude": 120.5,
		"question":  "Should I evacuate?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp adviceResponse
	decode(t, w, &resp)
	if resp.Source != advisor.SourceFallback {
		t.Errorf("source = %s, want fallback", resp.Source)
	}
	if resp.Summary == "" {
		t.Error("expected a summary")
	}

	records, err := store.ListAssessments(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAssessments failed: %v", err)
	}
	if len(records) != 1 || records[0].GeneratedBy != advisor.SourceFallback {
		t.Errorf("persisted records = %v", records)
	}
}

func TestProtocolsCRUD(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/protocols", map[string]any{
		"name":        "Earthquake Drill",
		"hazard_type": "earthquake",
		"steps":       []string{"Duck", "Cover", "Hold"},
		"status":      "active",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var created protocolResponse
	decode(t, w, &created)
	if created.ID == 0 || len(created.Steps) != 3 {
		t.Fatalf("created = %+v", created)
	}

	w = doRequest(router, http.MethodGet, "/api/protocols?status=active", nil)
	var list struct {
		Count     int                `json:"count"`
		Protocols []protocolResponse `json:"protocols"`
	}
	decode(t, w, &list)
	if list.Count != 1 {
		t.Errorf("list count = %d, want 1", list.Count)
	}

	w = doRequest(router, http.MethodPut, "/api/protocols/1", map[string]any{"status": "inactive"})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}
	var updated protocolResponse
	decode(t, w, &updated)
	if updated.Status != "inactive" || updated.Name != "Earthquake Drill" {
		t.Errorf("updated = %+v", updated)
	}

	w = doRequest(router, http.MethodDelete, "/api/protocols/1", nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete status = %d", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/protocols/1", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", w.Code)
	}

	w = doRequest(router, http.MethodGet, "/api/protocols/abc", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestProtocols_CreateValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodPost, "/api/protocols", map[string]any{"hazard_type": "flood"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing name: status = %d, want 400", w.Code)
	}

	w = doRequest(router, http.MethodPost, "/api/protocols", map[string]any{"name": "x", "status": "bogus"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad status: status = %d, want 400", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(1, 1))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		w := doRequest(router, http.MethodGet, "/ping", nil)
		codes[w.Code]++
	}
	if codes[http.StatusTooManyRequests] == 0 {
		t.Error("expected some requests to be rate limited")
	}
}
