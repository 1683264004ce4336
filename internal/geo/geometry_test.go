package geo

import (
	"math"
	"testing"
)

// unit square polygon around Manila-ish coordinates
const squareGeoJSON = `{
	"type": "Polygon",
	"coordinates": [[[120.0, 14.0], [121.0, 14.0], [121.0, 15.0], [120.0, 15.0], [120.0, 14.0]]]
}`

const holedGeoJSON = `{
	"type": "Polygon",
	"coordinates": [
		[[120.0, 14.0], [121.0, 14.0], [121.0, 15.0], [120.0, 15.0], [120.0, 14.0]],
		[[120.4, 14.4], [120.6, 14.4], [120.6, 14.6], [120.4, 14.6], [120.4, 14.4]]
	]
}`

const multiGeoJSON = `{
	"type": "MultiPolygon",
	"coordinates": [
		[[[120.0, 14.0], [120.5, 14.0], [120.5, 14.5], [120.0, 14.5], [120.0, 14.0]]],
		[[[122.0, 16.0], [122.5, 16.0], [122.5, 16.5], [122.0, 16.5], [122.0, 16.0]]]
	]
}`

func mustParse(t *testing.T, raw string) *Geometry {
	t.Helper()
	g, err := ParseGeometry([]byte(raw))
	if err != nil {
		t.Fatalf("ParseGeometry failed: %v", err)
	}
	return g
}

func TestParseGeometry_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"unsupported type", `{"type": "Point", "coordinates": [120.0, 14.0]}`},
		{"open ring", `{"type": "Polygon", "coordinates": [[[120,14],[121,14],[121,15],[120,15]]]}`},
		{"too few vertices", `{"type": "Polygon", "coordinates": [[[120,14],[121,14],[120,14]]]}`},
		{"latitude out of range", `{"type": "Polygon", "coordinates": [[[120,94],[121,94],[121,95],[120,94]]]}`},
		{"not json", `{{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseGeometry([]byte(tt.raw)); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestGeometryContains(t *testing.T) {
	square := mustParse(t, squareGeoJSON)
	holed := mustParse(t, holedGeoJSON)
	multi := mustParse(t, multiGeoJSON)

	tests := []struct {
		name string
		g    *Geometry
		p    Point
		want bool
	}{
		{"interior", square, Point{14.5, 120.5}, true},
		{"outside", square, Point{13.0, 120.5}, false},
		{"edge is contained", square, Point{14.0, 120.5}, true},
		{"vertex is contained", square, Point{14.0, 120.0}, true},
		{"inside hole", holed, Point{14.5, 120.5}, false},
		{"hole boundary is contained", holed, Point{14.4, 120.5}, true},
		{"between hole and exterior", holed, Point{14.2, 120.5}, true},
		{"first part of multipolygon", multi, Point{14.25, 120.25}, true},
		{"second part of multipolygon", multi, Point{16.25, 122.25}, true},
		{"between parts", multi, Point{15.0, 121.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.g.Contains(tt.p); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestGeometryIntersectsRect(t *testing.T) {
	square := mustParse(t, squareGeoJSON)

	tests := []struct {
		name string
		box  BBox
		want bool
	}{
		{"partial overlap", BBox{14.5, 15.5, 120.5, 121.5}, true},
		{"box inside polygon", BBox{14.4, 14.6, 120.4, 120.6}, true},
		{"polygon inside box", BBox{13.0, 16.0, 119.0, 122.0}, true},
		{"touching edge", BBox{14.0, 14.5, 121.0, 121.5}, true},
		{"disjoint", BBox{16.0, 17.0, 120.0, 121.0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := square.IntersectsRect(tt.box); got != tt.want {
				t.Errorf("IntersectsRect(%+v) = %v, want %v", tt.box, got, tt.want)
			}
		})
	}
}

func TestDistanceToPointKm(t *testing.T) {
	square := mustParse(t, squareGeoJSON)

	if d := square.DistanceToPointKm(Point{14.5, 120.5}); d != 0 {
		t.Errorf("contained point should have distance 0, got %v", d)
	}

	// One degree of latitude south of the bottom edge is roughly 111 km.
	d := square.DistanceToPointKm(Point{13.0, 120.5})
	if d < 110 || d > 113 {
		t.Errorf("distance = %v km, want roughly 111", d)
	}
}

func TestDistanceKm(t *testing.T) {
	manila := Point{14.5995, 120.9842}
	cebu := Point{10.3157, 123.8854}

	d := DistanceKm(manila, cebu)
	if d < 560 || d > 580 {
		t.Errorf("Manila-Cebu distance = %v km, want roughly 570", d)
	}

	if d := DistanceKm(manila, manila); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
}

func TestWithinRadius_BoundaryInclusive(t *testing.T) {
	a := Point{14.0, 121.0}
	b := Point{14.0, 121.5}
	d := DistanceKm(a, b)

	if !WithinRadius(a, b, d) {
		t.Error("point at exactly the radius should be within")
	}
	if WithinRadius(a, b, d-0.001) {
		t.Error("point beyond the radius should not be within")
	}
}

func TestBBoxValid(t *testing.T) {
	tests := []struct {
		name string
		box  BBox
		want bool
	}{
		{"ok", BBox{14, 15, 120, 121}, true},
		{"min above max lat", BBox{15, 14, 120, 121}, false},
		{"min above max lng", BBox{14, 15, 121, 120}, false},
		{"lat out of range", BBox{-91, 15, 120, 121}, false},
		{"degenerate point box", BBox{14, 14, 120, 120}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.box.Valid(); got != tt.want {
				t.Errorf("Valid(%+v) = %v, want %v", tt.box, got, tt.want)
			}
		})
	}
}

func TestEnvelope(t *testing.T) {
	multi := mustParse(t, multiGeoJSON)
	env := multi.Envelope()

	want := BBox{MinLat: 14.0, MaxLat: 16.5, MinLng: 120.0, MaxLng: 122.5}
	if math.Abs(env.MinLat-want.MinLat) > 1e-9 || math.Abs(env.MaxLat-want.MaxLat) > 1e-9 ||
		math.Abs(env.MinLng-want.MinLng) > 1e-9 || math.Abs(env.MaxLng-want.MaxLng) > 1e-9 {
		t.Errorf("Envelope() = %+v, want %+v", env, want)
	}
}
