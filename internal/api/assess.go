package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/climatechai/go-hazard-risk/internal/advisor"
	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
	"github.com/climatechai/go-hazard-risk/internal/risk"
)

type assessRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type adviceRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Question  string   `json:"question"`
}

type axisResponse struct {
	Available bool     `json:"available"`
	RiskValue *float64 `json:"risk_value,omitempty"`
	RiskLabel string   `json:"risk_label"`
}

type quakeAxisResponse struct {
	Available   bool                 `json:"available"`
	Count       int                  `json:"count"`
	Earthquakes []earthquakeResponse `json:"earthquakes"`
}

type weatherAxisResponse struct {
	Available   bool             `json:"available"`
	Observation *weatherResponse `json:"observation,omitempty"`
}

type assessResponse struct {
	Latitude        float64             `json:"latitude"`
	Longitude       float64             `json:"longitude"`
	Flood           axisResponse        `json:"flood"`
	Landslide       axisResponse        `json:"landslide"`
	Seismic         quakeAxisResponse   `json:"seismic"`
	Weather         weatherAxisResponse `json:"weather"`
	RiskScore       int                 `json:"risk_score"`
	RiskLevel       string              `json:"risk_level"`
	Recommendations []string            `json:"recommendations"`
	GeneratedAt     time.Time           `json:"generated_at"`
}

func toAssessResponse(a *risk.Assessment) assessResponse {
	resp := assessResponse{
		Latitude:  a.Latitude,
		Longitude: a.Longitude,
		Flood: axisResponse{
			Available: a.FloodAvailable,
			RiskValue: a.FloodRisk,
			RiskLabel: string(a.FloodLabel),
		},
		Landslide: axisResponse{
			Available: a.LandslideAvailable,
			RiskValue: a.LandslideRisk,
			RiskLabel: string(a.LandslideLabel),
		},
		Seismic: quakeAxisResponse{
			Available:   a.QuakesAvailable,
			Count:       len(a.Earthquakes),
			Earthquakes: make([]earthquakeResponse, 0, len(a.Earthquakes)),
		},
		Weather: weatherAxisResponse{
			Available: a.WeatherAvailable,
		},
		RiskScore:       a.RiskScore,
		RiskLevel:       a.RiskLevel,
		Recommendations: a.Recommendations,
		GeneratedAt:     a.GeneratedAt,
	}

	for _, q := range a.Earthquakes {
		resp.Seismic.Earthquakes = append(resp.Seismic.Earthquakes, earthquakeResponse{
			ID:           q.Event.ID,
			Latitude:     q.Event.Latitude,
			Longitude:    q.Event.Longitude,
			Magnitude:    q.Event.Magnitude,
			Class:        string(risk.CategorizeMagnitude(q.Event.Magnitude)),
			DepthKm:      q.Event.DepthKm,
			EventTime:    q.Event.EventTime,
			LocationName: q.Event.LocationName,
			DistanceKm:   q.DistanceKm,
		})
	}

	if a.Weather != nil {
		o := a.Weather.Observation
		resp.Weather.Observation = &weatherResponse{
			StationName:   o.StationName,
			Latitude:      o.Latitude,
			Longitude:     o.Longitude,
			Temperature:   o.Temperature,
			Humidity:      o.Humidity,
			Rainfall:      o.Rainfall,
			WindSpeed:     o.WindSpeed,
			WindDirection: o.WindDirection,
			Pressure:      o.Pressure,
			HeatLevel:     string(a.Heat),
			RecordedAt:    o.RecordedAt,
			DistanceKm:    a.Weather.DistanceKm,
		}
	}

	return resp
}

// bindPoint decodes and validates the lat/lng body fields shared by assess
// and advice requests.
func bindPoint(c *gin.Context, lat, lng *float64) (geo.Point, bool) {
	if lat == nil || lng == nil {
		badRequest(c, "latitude and longitude are required")
		return geo.Point{}, false
	}
	if err := geo.ValidateCoordinates(*lat, *lng); err != nil {
		badRequest(c, err.Error())
		return geo.Point{}, false
	}
	return geo.Point{Lat: *lat, Lng: *lng}, true
}

func (h *Handler) runAssessment(c *gin.Context, point geo.Point) (*risk.Assessment, bool) {
	assessment, err := h.assessor.Assess(c.Request.Context(), point.Lat, point.Lng)
	if err != nil {
		if errors.Is(err, risk.ErrAllSourcesUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "all hazard data sources unavailable"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "assessment failed"})
		}
		return nil, false
	}
	return assessment, true
}

func (h *Handler) persistAssessment(c *gin.Context, rec *models.RiskAssessment) {
	if err := h.store.SaveAssessment(c.Request.Context(), rec); err != nil {
		slog.Error("failed to persist assessment", "error", err)
	}
}

func (h *Handler) assess(c *gin.Context) {
	var req assessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	point, ok := bindPoint(c, req.Latitude, req.Longitude)
	if !ok {
		return
	}

	assessment, ok := h.runAssessment(c, point)
	if !ok {
		return
	}

	h.persistAssessment(c, assessment.Record(advisor.SourceFallback))
	c.JSON(http.StatusOK, toAssessResponse(assessment))
}

type adviceResponse struct {
	Summary         string         `json:"summary"`
	Recommendations []string       `json:"recommendations"`
	RiskScore       int            `json:"risk_score"`
	RiskLevel       string         `json:"risk_level"`
	Source          string         `json:"source"`
	Assessment      assessResponse `json:"assessment"`
}

func (h *Handler) advice(c *gin.Context) {
	var req adviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	point, ok := bindPoint(c, req.Latitude, req.Longitude)
	if !ok {
		return
	}

	assessment, ok := h.runAssessment(c, point)
	if !ok {
		return
	}

	adv := h.composer.Advise(c.Request.Context(), assessment, req.Question)

	rec := assessment.Record(adv.Source)
	rec.Summary = adv.Summary
	rec.RiskScore = adv.RiskScore
	rec.RiskLevel = adv.RiskLevel
	rec.Recommendations = adv.Recommendations
	h.persistAssessment(c, rec)

	c.JSON(http.StatusOK, adviceResponse{
		Summary:         adv.Summary,
		Recommendations: adv.Recommendations,
		RiskScore:       adv.RiskScore,
		RiskLevel:       adv.RiskLevel,
		Source:          adv.Source,
		Assessment:      toAssessResponse(assessment),
	})
}

type assessmentRecordResponse struct {
	ID              int64     `json:"id"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	FloodRisk       *float64  `json:"flood_risk,omitempty"`
	LandslideRisk   *float64  `json:"landslide_risk,omitempty"`
	QuakeCount      int       `json:"quake_count"`
	RiskScore       int       `json:"risk_score"`
	RiskLevel       string    `json:"risk_level"`
	Summary         string    `json:"summary,omitempty"`
	Recommendations []string  `json:"recommendations"`
	GeneratedBy     string    `json:"generated_by"`
	CreatedAt       time.Time `json:"created_at"`
}

func (h *Handler) listAssessments(c *gin.Context) {
	limit, ok := queryIntDefault(c, "limit", 20)
	if !ok {
		return
	}
	if limit < 1 || limit > 500 {
		badRequest(c, "limit must be between 1 and 500")
		return
	}

	records, err := h.store.ListAssessments(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch assessments"})
		return
	}

	out := make([]assessmentRecordResponse, 0, len(records))
	for _, r := range records {
		out = append(out, assessmentRecordResponse{
			ID:              r.ID,
			Latitude:        r.Latitude,
			Longitude:       r.Longitude,
			FloodRisk:       r.FloodRisk,
			LandslideRisk:   r.LandslideRisk,
			QuakeCount:      r.QuakeCount,
			RiskScore:       r.RiskScore,
			RiskLevel:       r.RiskLevel,
			Summary:         r.Summary,
			Recommendations: r.Recommendations,
			GeneratedBy:     r.GeneratedBy,
			CreatedAt:       r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "assessments": out})
}
