package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/climatechai/go-hazard-risk/internal/advisor"
	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
	"github.com/climatechai/go-hazard-risk/internal/repository"
	"github.com/climatechai/go-hazard-risk/internal/risk"
)

type Handler struct {
	store    repository.Store
	assessor *risk.Assessor
	composer *advisor.Composer
	defaults risk.Options
}

func NewHandler(store repository.Store, assessor *risk.Assessor, composer *advisor.Composer, defaults risk.Options) *Handler {
	return &Handler{
		store:    store,
		assessor: assessor,
		composer: composer,
		defaults: defaults,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.GET("/api/hazard-zones", h.getHazardZones)
	r.GET("/api/flood-zones/nearby", h.nearbyZones(models.HazardKindFlood))
	r.GET("/api/landslide-zones/nearby", h.nearbyZones(models.HazardKindLandslide))
	r.GET("/api/earthquakes", h.getEarthquakes)
	r.GET("/api/weather/nearest", h.getNearestWeather)

	r.POST("/api/assess", h.assess)
	r.POST("/api/advice", h.advice)
	r.GET("/api/assessments", h.listAssessments)

	r.GET("/api/protocols", h.listProtocols)
	r.POST("/api/protocols", h.createProtocol)
	r.GET("/api/protocols/:id", h.getProtocol)
	r.PUT("/api/protocols/:id", h.updateProtocol)
	r.DELETE("/api/protocols/:id", h.deleteProtocol)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// queryFloat parses a required float query parameter. The second return is
// false when the parameter is missing or malformed; a 400 has already been
// written in that case.
func queryFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		badRequest(c, fmt.Sprintf("missing required parameter: %s", name))
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid %s: %s", name, raw))
		return 0, false
	}
	return v, true
}

func queryFloatDefault(c *gin.Context, name string, fallback float64) (float64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid %s: %s", name, raw))
		return 0, false
	}
	return v, true
}

func queryIntDefault(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid %s: %s", name, raw))
		return 0, false
	}
	return v, true
}

// queryPoint parses and validates lat/lng query parameters.
func queryPoint(c *gin.Context) (geo.Point, bool) {
	lat, ok := queryFloat(c, "lat")
	if !ok {
		return geo.Point{}, false
	}
	lng, ok := queryFloat(c, "lng")
	if !ok {
		return geo.Point{}, false
	}
	if err := geo.ValidateCoordinates(lat, lng); err != nil {
		badRequest(c, err.Error())
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lng: lng}, true
}

func (h *Handler) getHazardZones(c *gin.Context) {
	minLat, ok := queryFloat(c, "min_lat")
	if !ok {
		return
	}
	maxLat, ok := queryFloat(c, "max_lat")
	if !ok {
		return
	}
	minLng, ok := queryFloat(c, "min_lng")
	if !ok {
		return
	}
	maxLng, ok := queryFloat(c, "max_lng")
	if !ok {
		return
	}

	box := geo.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
	if !box.Valid() {
		badRequest(c, "invalid bounding box")
		return
	}

	kind := models.HazardKindBoth
	switch t := c.Query("type"); t {
	case "":
	case "flood":
		kind = models.HazardKindFlood
	case "landslide":
		kind = models.HazardKindLandslide
	case "both":
	default:
		badRequest(c, "invalid type: "+t)
		return
	}

	zones, err := h.store.ZonesInBBox(c.Request.Context(), box, kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch hazard zones"})
		return
	}

	c.Header("Content-Type", "application/geo+json")
	c.JSON(http.StatusOK, zonesToGeoJSON(zones))
}

type nearbyZoneResponse struct {
	ID         int64   `json:"id"`
	Kind       string  `json:"kind"`
	RiskValue  float64 `json:"risk_value"`
	RiskLabel  string  `json:"risk_label"`
	DistanceKm float64 `json:"distance_km"`
}

func (h *Handler) nearbyZones(kind models.HazardKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		point, ok := queryPoint(c)
		if !ok {
			return
		}
		radiusKm, ok := queryFloatDefault(c, "radius_km", 10)
		if !ok {
			return
		}
		if radiusKm <= 0 {
			badRequest(c, "radius_km must be positive")
			return
		}

		var filter repository.ZoneFilter
		if raw := c.Query("min_risk"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				badRequest(c, "invalid min_risk: "+raw)
				return
			}
			filter.MinRisk = &v
		}
		if raw := c.Query("max_risk"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				badRequest(c, "invalid max_risk: "+raw)
				return
			}
			filter.MaxRisk = &v
		}

		zones, err := h.store.NearbyZones(c.Request.Context(), kind, point.Lat, point.Lng, radiusKm, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch nearby zones"})
			return
		}

		out := make([]nearbyZoneResponse, 0, len(zones))
		for _, z := range zones {
			rv := z.Zone.RiskValue
			out = append(out, nearbyZoneResponse{
				ID:         z.Zone.ID,
				Kind:       string(z.Zone.Kind),
				RiskValue:  rv,
				RiskLabel:  string(risk.Categorize(&rv)),
				DistanceKm: z.DistanceKm,
			})
		}
		c.JSON(http.StatusOK, gin.H{"count": len(out), "zones": out})
	}
}

type earthquakeResponse struct {
	ID           int64     `json:"id"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Magnitude    float64   `json:"magnitude"`
	Class        string    `json:"class"`
	DepthKm      *float64  `json:"depth_km,omitempty"`
	EventTime    time.Time `json:"event_time"`
	LocationName string    `json:"location_name,omitempty"`
	DistanceKm   float64   `json:"distance_km"`
}

func (h *Handler) getEarthquakes(c *gin.Context) {
	point, ok := queryPoint(c)
	if !ok {
		return
	}
	hours, ok := queryIntDefault(c, "hours", h.defaultQuakeHours())
	if !ok {
		return
	}
	radiusKm, ok := queryFloatDefault(c, "radius_km", h.defaults.QuakeRadiusKm)
	if !ok {
		return
	}
	if radiusKm <= 0 {
		badRequest(c, "radius_km must be positive")
		return
	}

	quakes, err := h.store.RecentNear(c.Request.Context(), point.Lat, point.Lng, time.Duration(hours)*time.Hour, radiusKm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch earthquakes"})
		return
	}

	out := make([]earthquakeResponse, 0, len(quakes))
	for _, q := range quakes {
		out = append(out, earthquakeResponse{
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
	c.JSON(http.StatusOK, gin.H{"count": len(out), "earthquakes": out})
}

type weatherResponse struct {
	StationName   string    `json:"station_name,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Temperature   *float64  `json:"temperature,omitempty"`
	Humidity      *float64  `json:"humidity,omitempty"`
	Rainfall      *float64  `json:"rainfall,omitempty"`
	WindSpeed     *float64  `json:"wind_speed,omitempty"`
	WindDirection *float64  `json:"wind_direction,omitempty"`
	Pressure      *float64  `json:"pressure,omitempty"`
	HeatLevel     string    `json:"heat_level"`
	RecordedAt    time.Time `json:"recorded_at"`
	DistanceKm    float64   `json:"distance_km"`
}

func (h *Handler) getNearestWeather(c *gin.Context) {
	point, ok := queryPoint(c)
	if !ok {
		return
	}
	hours, ok := queryIntDefault(c, "hours", h.defaultWeatherHours())
	if !ok {
		return
	}
	radiusKm, ok := queryFloatDefault(c, "radius_km", h.defaults.WeatherRadiusKm)
	if !ok {
		return
	}
	if radiusKm <= 0 {
		badRequest(c, "radius_km must be positive")
		return
	}

	obs, err := h.store.NearestRecent(c.Request.Context(), point.Lat, point.Lng, time.Duration(hours)*time.Hour, radiusKm)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch weather"})
		return
	}
	if obs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recent weather observation within radius"})
		return
	}

	o := obs.Observation
	c.JSON(http.StatusOK, weatherResponse{
		StationName:   o.StationName,
		Latitude:      o.Latitude,
		Longitude:     o.Longitude,
		Temperature:   o.Temperature,
		Humidity:      o.Humidity,
		Rainfall:      o.Rainfall,
		WindSpeed:     o.WindSpeed,
		WindDirection: o.WindDirection,
		Pressure:      o.Pressure,
		HeatLevel:     string(risk.HeatCategory(o.Temperature, o.Humidity)),
		RecordedAt:    o.RecordedAt,
		DistanceKm:    obs.DistanceKm,
	})
}

func (h *Handler) defaultQuakeHours() int {
	return int(h.defaults.QuakeWindow / time.Hour)
}

func (h *Handler) defaultWeatherHours() int {
	return int(h.defaults.WeatherWindow / time.Hour)
}
