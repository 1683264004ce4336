package geo

import (
	"encoding/json"
	"fmt"
)

// Ring is a closed sequence of vertices (first == last), GeoJSON order.
type Ring []Point

// Polygon is an exterior ring followed by zero or more holes.
type Polygon []Ring

// Geometry is one or more polygons parsed from a GeoJSON Polygon or
// MultiPolygon. All predicates treat the boundary as part of the geometry.
type Geometry struct {
	Polygons []Polygon
}

type geoJSONGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseGeometry decodes a GeoJSON Polygon or MultiPolygon. Coordinates are
// [lng, lat] pairs per the GeoJSON spec.
func ParseGeometry(raw []byte) (*Geometry, error) {
	var g geoJSONGeometry
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("error decoding geometry: %w", err)
	}

	switch g.Type {
	case "Polygon":
		var coords [][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("error decoding polygon coordinates: %w", err)
		}
		poly, err := buildPolygon(coords)
		if err != nil {
			return nil, err
		}
		return &Geometry{Polygons: []Polygon{poly}}, nil
	case "MultiPolygon":
		var coords [][][][]float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
			return nil, fmt.Errorf("error decoding multipolygon coordinates: %w", err)
		}
		geom := &Geometry{Polygons: make([]Polygon, 0, len(coords))}
		for _, pc := range coords {
			poly, err := buildPolygon(pc)
			if err != nil {
				return nil, err
			}
			geom.Polygons = append(geom.Polygons, poly)
		}
		if len(geom.Polygons) == 0 {
			return nil, fmt.Errorf("multipolygon has no polygons")
		}
		return geom, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

func buildPolygon(coords [][][]float64) (Polygon, error) {
	if len(coords) == 0 {
		return nil, fmt.Errorf("polygon has no rings")
	}
	poly := make(Polygon, 0, len(coords))
	for _, rc := range coords {
		ring := make(Ring, 0, len(rc))
		for _, pos := range rc {
			if len(pos) < 2 {
				return nil, fmt.Errorf("position has %d coordinates, want at least 2", len(pos))
			}
			p := Point{Lat: pos[1], Lng: pos[0]}
			if err := ValidateCoordinates(p.Lat, p.Lng); err != nil {
				return nil, err
			}
			ring = append(ring, p)
		}
		if len(ring) < 4 {
			return nil, fmt.Errorf("ring has %d vertices, want at least 4", len(ring))
		}
		if ring[0] != ring[len(ring)-1] {
			return nil, fmt.Errorf("ring is not closed")
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// Contains reports whether p lies inside the geometry, inclusive of the
// boundary: a point exactly on a polygon edge or vertex is contained.
func (g *Geometry) Contains(p Point) bool {
	for _, poly := range g.Polygons {
		if poly.contains(p) {
			return true
		}
	}
	return false
}

func (poly Polygon) contains(p Point) bool {
	// Boundary points count as contained, including hole boundaries.
	for _, ring := range poly {
		if ring.onBoundary(p) {
			return true
		}
	}
	if !poly[0].encloses(p) {
		return false
	}
	for _, hole := range poly[1:] {
		if hole.encloses(p) {
			return false
		}
	}
	return true
}

// encloses is a ray-casting test in lon/lat space; boundary handling is
// done separately by onBoundary.
func (r Ring) encloses(p Point) bool {
	inside := false
	n := len(r) - 1 // last vertex repeats the first
	for i := 0; i < n; i++ {
		a, b := r[i], r[i+1]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			x := a.Lng + (p.Lat-a.Lat)/(b.Lat-a.Lat)*(b.Lng-a.Lng)
			if p.Lng < x {
				inside = !inside
			}
		}
	}
	return inside
}

func (r Ring) onBoundary(p Point) bool {
	n := len(r) - 1
	for i := 0; i < n; i++ {
		if onSegment(r[i], r[i+1], p) {
			return true
		}
	}
	return false
}

const collinearEps = 1e-12

func onSegment(a, b, p Point) bool {
	cross := (b.Lng-a.Lng)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lng-a.Lng)
	if cross > collinearEps || cross < -collinearEps {
		return false
	}
	if p.Lat < minf(a.Lat, b.Lat)-collinearEps || p.Lat > maxf(a.Lat, b.Lat)+collinearEps {
		return false
	}
	if p.Lng < minf(a.Lng, b.Lng)-collinearEps || p.Lng > maxf(a.Lng, b.Lng)+collinearEps {
		return false
	}
	return true
}

// IntersectsRect reports whether the geometry shares any point with the
// box. Used for viewport queries, so partial overlaps must match.
func (g *Geometry) IntersectsRect(b BBox) bool {
	if !g.Envelope().Overlaps(b) {
		return false
	}
	for _, poly := range g.Polygons {
		if poly.intersectsRect(b) {
			return true
		}
	}
	return false
}

func (poly Polygon) intersectsRect(b BBox) bool {
	// Any polygon vertex inside the box.
	for _, ring := range poly {
		for _, v := range ring {
			if b.ContainsPoint(v) {
				return true
			}
		}
	}
	// Any box corner inside the polygon (covers box fully inside polygon).
	for _, c := range b.corners() {
		if poly.contains(c) {
			return true
		}
	}
	// Any polygon edge crossing a box edge.
	corners := b.corners()
	for _, ring := range poly {
		n := len(ring) - 1
		for i := 0; i < n; i++ {
			for j := 0; j < 4; j++ {
				if segmentsIntersect(ring[i], ring[i+1], corners[j], corners[(j+1)%4]) {
					return true
				}
			}
		}
	}
	return false
}

func segmentsIntersect(a, b, c, d Point) bool {
	d1 := orient(c, d, a)
	d2 := orient(c, d, b)
	d3 := orient(a, b, c)
	d4 := orient(a, b, d)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return onSegment(c, d, a) || onSegment(c, d, b) ||
		onSegment(a, b, c) || onSegment(a, b, d)
}

func orient(a, b, c Point) float64 {
	return (b.Lng-a.Lng)*(c.Lat-a.Lat) - (b.Lat-a.Lat)*(c.Lng-a.Lng)
}

// Envelope returns the geometry's bounding box.
func (g *Geometry) Envelope() BBox {
	env := BBox{MinLat: 90, MaxLat: -90, MinLng: 180, MaxLng: -180}
	for _, poly := range g.Polygons {
		for _, v := range poly[0] {
			env.MinLat = minf(env.MinLat, v.Lat)
			env.MaxLat = maxf(env.MaxLat, v.Lat)
			env.MinLng = minf(env.MinLng, v.Lng)
			env.MaxLng = maxf(env.MaxLng, v.Lng)
		}
	}
	return env
}

// DistanceToPointKm returns the geodesic distance from p to the nearest
// point of the geometry; zero when p is contained.
func (g *Geometry) DistanceToPointKm(p Point) float64 {
	if g.Contains(p) {
		return 0
	}
	best := -1.0
	for _, poly := range g.Polygons {
		for _, ring := range poly {
			n := len(ring) - 1
			for i := 0; i < n; i++ {
				d := distanceToSegmentKm(p, ring[i], ring[i+1])
				if best < 0 || d < best {
					best = d
				}
			}
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// distanceToSegmentKm approximates the distance from p to segment ab by
// projecting in lon/lat space (scaled by cos latitude) and measuring the
// geodesic distance to the closest parametric point. Adequate for the
// sub-degree segments hazard surveys produce.
func distanceToSegmentKm(p, a, b Point) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng
	if dLat == 0 && dLng == 0 {
		return DistanceKm(p, a)
	}
	t := ((p.Lat-a.Lat)*dLat + (p.Lng-a.Lng)*dLng) / (dLat*dLat + dLng*dLng)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	closest := Point{Lat: a.Lat + t*dLat, Lng: a.Lng + t*dLng}
	return DistanceKm(p, closest)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
