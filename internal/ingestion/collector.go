package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/climatechai/go-hazard-risk/internal/config"
	"github.com/climatechai/go-hazard-risk/internal/models"
	"github.com/climatechai/go-hazard-risk/internal/repository"
	"github.com/climatechai/go-hazard-risk/internal/worker"
)

// Station is a fixed observation site the collector samples on each poll.
type Station struct {
	Lat  float64
	Lng  float64
	Name string
}

// DefaultStations covers the major Philippine cities.
var DefaultStations = []Station{
	{14.5995, 120.9842, "Manila Weather Station"},
	{14.6760, 121.0437, "Quezon City Weather Station"},
	{10.3157, 123.8854, "Cebu City Weather Station"},
	{7.1907, 125.4553, "Davao City Weather Station"},
	{10.7202, 122.5621, "Iloilo City Weather Station"},
	{16.4023, 120.5960, "Baguio Weather Station"},
	{6.9214, 122.0790, "Zamboanga City Weather Station"},
	{8.4542, 124.6319, "Cagayan de Oro Weather Station"},
	{6.1164, 125.1716, "General Santos Weather Station"},
	{15.4700, 120.9600, "Tarlac City Weather Station"},
	{14.8448, 120.8105, "Angeles City Weather Station"},
	{13.1587, 123.7304, "Legazpi Weather Station"},
	{11.2404, 125.0058, "Tacloban Weather Station"},
	{9.6498, 123.8505, "Tagbilaran Weather Station"},
}

// ParseStations decodes a semicolon separated list of "lat,lng,name"
// entries. An empty input yields the default station set.
func ParseStations(s string) ([]Station, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultStations, nil
	}

	var stations []Station
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ",", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid station entry: %q", entry)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid station latitude in %q: %w", entry, err)
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid station longitude in %q: %w", entry, err)
		}
		name := strings.TrimSpace(parts[2])
		if name == "" {
			return nil, fmt.Errorf("missing station name in %q", entry)
		}
		stations = append(stations, Station{Lat: lat, Lng: lng, Name: name})
	}
	if len(stations) == 0 {
		return DefaultStations, nil
	}
	return stations, nil
}

// Collector polls the configured stations on a ticker and writes synthetic
// observations through a worker pool. A real upstream feed slots in by
// replacing the sampling function.
type Collector struct {
	cfg      *config.Config
	store    repository.WeatherStore
	stations []Station
	pool     *worker.Pool[*models.WeatherObservation]
	wg       sync.WaitGroup
	rnd      *rand.Rand
}

func NewCollector(cfg *config.Config, store repository.WeatherStore, stations []Station) *Collector {
	if len(stations) == 0 {
		stations = DefaultStations
	}
	return &Collector{
		cfg:      cfg,
		store:    store,
		stations: stations,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *Collector) Start(ctx context.Context) {
	processor := func(ctx context.Context, obs *models.WeatherObservation) error {
		if err := c.store.InsertObservation(ctx, obs); err != nil {
			slog.Error("error saving observation", "station", obs.StationName, "error", err)
			return err
		}

		slog.Info("saved observation", "station", obs.StationName, "recorded_at", obs.RecordedAt)
		return nil
	}

	c.pool = worker.NewPool(c.cfg.Worker.Count, c.cfg.Worker.BufferSize, processor)
	c.pool.Start(ctx)

	c.wg.Add(1)
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	defer c.wg.Done()
	slog.Info("starting weather collector", "stations", len(c.stations), "interval", c.cfg.Collector.PollInterval)

	ticker := time.NewTicker(c.cfg.Collector.PollInterval)
	defer ticker.Stop()

	// Initial poll
	c.poll()

	for {
		select {
		case <-ctx.Done():
			slog.Info("weather collector shutting down")
			return
		case <-ticker.C:
			c.poll()
		}
	}
}

func (c *Collector) poll() {
	slog.Debug("polling stations", "count", len(c.stations))

	now := time.Now().UTC()
	for _, st := range c.stations {
		c.pool.Submit(c.sample(st, now))
	}
}

// sample generates one synthetic reading with ranges typical for Philippine
// lowland weather.
func (c *Collector) sample(st Station, now time.Time) *models.WeatherObservation {
	temperature := c.uniform(20, 35)
	humidity := c.uniform(40, 95)
	rainfall := c.uniform(0, 30)
	windSpeed := c.uniform(0, 50)
	windDirection := c.uniform(0, 360)
	pressure := c.uniform(990, 1030)

	return &models.WeatherObservation{
		Latitude:      st.Lat,
		Longitude:     st.Lng,
		Temperature:   &temperature,
		Humidity:      &humidity,
		Rainfall:      &rainfall,
		WindSpeed:     &windSpeed,
		WindDirection: &windDirection,
		Pressure:      &pressure,
		StationName:   st.Name,
		Source:        "mock",
		RecordedAt:    now,
	}
}

func (c *Collector) uniform(lo, hi float64) float64 {
	return lo + c.rnd.Float64()*(hi-lo)
}

func (c *Collector) Stop() {
	c.wg.Wait()
	c.pool.Stop()
	slog.Info("weather collector stopped")
}
