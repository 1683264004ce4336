package geo

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// Mean earth radius in km, matching the sphere PostGIS uses for
// ST_DistanceSphere.
const earthRadiusKm = 6371.0088

// RadiusEpsilonKm is the tolerance applied to radius comparisons so that a
// record at exactly the requested radius counts as inside on both store
// backends.
const RadiusEpsilonKm = 1e-9

type Point struct {
	Lat float64
	Lng float64
}

// BBox is a geographic bounding box in WGS84 degrees.
type BBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

func (b BBox) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLng <= b.MaxLng &&
		b.MinLat >= -90 && b.MaxLat <= 90 &&
		b.MinLng >= -180 && b.MaxLng <= 180
}

func (b BBox) ContainsPoint(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat &&
		p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

func (b BBox) Overlaps(o BBox) bool {
	return b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat &&
		b.MinLng <= o.MaxLng && b.MaxLng >= o.MinLng
}

func (b BBox) corners() []Point {
	return []Point{
		{b.MinLat, b.MinLng},
		{b.MinLat, b.MaxLng},
		{b.MaxLat, b.MaxLng},
		{b.MaxLat, b.MinLng},
	}
}

// DistanceKm returns the great-circle distance between two points.
func DistanceKm(a, b Point) float64 {
	la := s2.LatLngFromDegrees(a.Lat, a.Lng)
	lb := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return la.Distance(lb).Radians() * earthRadiusKm
}

// WithinRadius reports whether b lies within radiusKm of a, inclusive of
// the boundary.
func WithinRadius(a, b Point, radiusKm float64) bool {
	return DistanceKm(a, b) <= radiusKm+RadiusEpsilonKm
}

func ValidateCoordinates(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return nil
}
