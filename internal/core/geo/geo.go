// Package geo holds the pure geometric predicates used by both evaluation
// authorities (server coordinator and client monitor). Every function is
// side-effect free and safe for concurrent use.
package geo

import (
	"fmt"

	"github.com/golang/geo/s2"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000.0

// GeometryError reports malformed geometric input. It matches
// domain.ErrInvalidBoundary with errors.Is.
type GeometryError struct {
	Reason string
}

func (e *GeometryError) Error() string {
	return "geometry: " + e.Reason
}

func (e *GeometryError) Is(target error) bool {
	return target == domain.ErrInvalidBoundary
}

// DistanceMeters returns the haversine distance between a and b.
// s2 evaluates it as 2*atan2(sqrt(x), sqrt(1-x)), which stays stable for
// antipodal and near-zero separations.
func DistanceMeters(a, b domain.LatLng) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// PointInCircle reports whether p lies within radiusMeters of center (inclusive).
func PointInCircle(p, center domain.LatLng, radiusMeters float64) bool {
	return DistanceMeters(p, center) <= radiusMeters
}

// PointInPolygon runs an even-odd ray cast eastward from p over the implicitly
// closed vertex ring. When vertexCount > 0 the ring must have exactly that many
// vertices; malformed rings return false together with a *GeometryError.
func PointInPolygon(p domain.LatLng, vertices []domain.LatLng, vertexCount int) (bool, error) {
	n := len(vertices)
	if n < 3 {
		return false, &GeometryError{Reason: fmt.Sprintf("polygon needs at least 3 vertices, got %d", n)}
	}
	if vertexCount > 0 && n != vertexCount {
		return false, &GeometryError{Reason: fmt.Sprintf("polygon needs exactly %d vertices, got %d", vertexCount, n)}
	}

	x, y := p.Lng, p.Lat
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := vertices[i].Lng, vertices[i].Lat
		xj, yj := vertices[j].Lng, vertices[j].Lat
		// (yi > y) != (yj > y) implies yi != yj, so the division is safe.
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside, nil
}

// Contains evaluates membership of p in region according to its boundary kind.
func Contains(region domain.Region, p domain.LatLng, vertexCount int) (bool, error) {
	b := region.Boundary
	switch b.Kind() {
	case domain.BoundaryCircle:
		if !(b.RadiusMeters > 0) {
			return false, &GeometryError{Reason: fmt.Sprintf("region %s: radius must be greater than 0", region.ID)}
		}
		return PointInCircle(p, *b.Center, b.RadiusMeters), nil
	case domain.BoundaryPolygon:
		inside, err := PointInPolygon(p, b.Vertices, vertexCount)
		if err != nil {
			return false, fmt.Errorf("region %s: %w", region.ID, err)
		}
		return inside, nil
	default:
		return false, &GeometryError{Reason: fmt.Sprintf("region %s: boundary is neither circle nor polygon", region.ID)}
	}
}

// Centroid returns the arithmetic mean of the vertices, or the circle center.
func Centroid(b domain.Boundary) domain.LatLng {
	if b.Center != nil {
		return *b.Center
	}
	if len(b.Vertices) == 0 {
		return domain.LatLng{}
	}
	var sumLat, sumLng float64
	for _, v := range b.Vertices {
		sumLat += v.Lat
		sumLng += v.Lng
	}
	n := float64(len(b.Vertices))
	return domain.LatLng{Lat: sumLat / n, Lng: sumLng / n}
}

// MaxExtentMeters is the largest distance from Centroid to any point of the
// boundary's defining geometry: the radius for circles, the farthest vertex
// for polygons.
func MaxExtentMeters(b domain.Boundary) float64 {
	if b.Center != nil {
		return b.RadiusMeters
	}
	c := Centroid(b)
	var extent float64
	for _, v := range b.Vertices {
		extent = max(extent, DistanceMeters(c, v))
	}
	return extent
}
