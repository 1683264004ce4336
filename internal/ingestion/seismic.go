package ingestion

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/climatechai/go-hazard-risk/internal/geo"
	"github.com/climatechai/go-hazard-risk/internal/models"
)

// seismicTimeLayout matches the PHIVOLCS catalog export format.
const seismicTimeLayout = "2006-01-02 15:04:05"

var seismicColumns = []string{"Date_Time_PH", "Latitude", "Longitude", "Depth_In_Km", "Magnitude", "Location"}

// LoadSeismicCSV reads an earthquake catalog export. Rows with unparseable
// coordinates, timestamps, or magnitudes are skipped with a warning; a
// missing depth becomes nil rather than dropping the row.
func LoadSeismicCSV(path string) ([]models.SeismicEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading header of %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range seismicColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, name)
		}
	}

	var (
		events  []models.SeismicEvent
		skipped int
		row     int
	)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", path, err)
		}
		row++

		eventTime, err := time.Parse(seismicTimeLayout, strings.TrimSpace(record[col["Date_Time_PH"]]))
		if err != nil {
			slog.Warn("skipping row with invalid timestamp", "file", path, "row", row, "error", err)
			skipped++
			continue
		}

		lat, latErr := strconv.ParseFloat(strings.TrimSpace(record[col["Latitude"]]), 64)
		lng, lngErr := strconv.ParseFloat(strings.TrimSpace(record[col["Longitude"]]), 64)
		if latErr != nil || lngErr != nil || geo.ValidateCoordinates(lat, lng) != nil {
			slog.Warn("skipping row with invalid coordinates", "file", path, "row", row)
			skipped++
			continue
		}

		magnitude, err := strconv.ParseFloat(strings.TrimSpace(record[col["Magnitude"]]), 64)
		if err != nil {
			slog.Warn("skipping row with invalid magnitude", "file", path, "row", row)
			skipped++
			continue
		}

		var depth *float64
		if d, err := strconv.ParseFloat(strings.TrimSpace(record[col["Depth_In_Km"]]), 64); err == nil {
			depth = &d
		}

		events = append(events, models.SeismicEvent{
			Latitude:     lat,
			Longitude:    lng,
			Magnitude:    magnitude,
			DepthKm:      depth,
			EventTime:    eventTime,
			LocationName: strings.TrimSpace(record[col["Location"]]),
			Source:       "phivolcs",
		})
	}

	slog.Info("loaded seismic events", "file", path, "count", len(events), "skipped", skipped)
	return events, nil
}
