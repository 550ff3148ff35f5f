package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")
var ErrInvalidBoundary = errors.New("invalid region boundary")
var ErrRegionNotFound = errors.New("region not found")
var ErrRegionStoreUnavailable = errors.New("region store unavailable")

// LatLng represents a geographic point in degrees (WGS84).
type LatLng struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Validate reports ErrInvalidCoordinates when the point is outside the
// latitude/longitude ranges or not a finite number.
func (p LatLng) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return fmt.Errorf("%w: non-finite value", ErrInvalidCoordinates)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat %v out of range [-90, 90]", ErrInvalidCoordinates, p.Lat)
	}
	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: lng %v out of range [-180, 180]", ErrInvalidCoordinates, p.Lng)
	}
	return nil
}

// BoundaryKind identifies the geometric shape of a region.
type BoundaryKind string

const (
	BoundaryCircle  BoundaryKind = "circle"
	BoundaryPolygon BoundaryKind = "polygon"
	BoundaryInvalid BoundaryKind = "invalid"
)

// Boundary is either a circle (Center + RadiusMeters) or a polygon (Vertices).
// Exactly one of the two shapes must be set.
type Boundary struct {
	Center       *LatLng  `json:"center,omitempty" bson:"center,omitempty"`
	RadiusMeters float64  `json:"radiusMeters,omitempty" bson:"radius_meters,omitempty"`
	Vertices     []LatLng `json:"vertices,omitempty" bson:"vertices,omitempty"`
}

// Kind reports which shape the boundary describes.
func (b Boundary) Kind() BoundaryKind {
	switch {
	case b.Center != nil && len(b.Vertices) == 0:
		return BoundaryCircle
	case b.Center == nil && len(b.Vertices) > 0:
		return BoundaryPolygon
	default:
		return BoundaryInvalid
	}
}

// Validate checks the boundary shape. vertexCount is the fixed polygon size
// used by the deployment; zero disables the exact-count check.
func (b Boundary) Validate(vertexCount int) error {
	switch b.Kind() {
	case BoundaryCircle:
		if err := b.Center.Validate(); err != nil {
			return fmt.Errorf("%w: center: %v", ErrInvalidBoundary, err)
		}
		if !(b.RadiusMeters > 0) || math.IsInf(b.RadiusMeters, 0) {
			return fmt.Errorf("%w: radius must be greater than 0", ErrInvalidBoundary)
		}
	case BoundaryPolygon:
		if len(b.Vertices) < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 vertices, got %d", ErrInvalidBoundary, len(b.Vertices))
		}
		if vertexCount > 0 && len(b.Vertices) != vertexCount {
			return fmt.Errorf("%w: polygon needs exactly %d vertices, got %d", ErrInvalidBoundary, vertexCount, len(b.Vertices))
		}
		for i, v := range b.Vertices {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("%w: vertex %d: %v", ErrInvalidBoundary, i, err)
			}
		}
	default:
		return fmt.Errorf("%w: boundary must be either a circle or a polygon", ErrInvalidBoundary)
	}
	return nil
}

// Region is a named geographic area evaluated for enter/exit transitions.
// Regions are authored elsewhere; the engine only reads enabled ones.
type Region struct {
	ID        string    `json:"id" bson:"region_id"`
	Namespace string    `json:"namespace,omitempty" bson:"namespace"`
	Name      string    `json:"name" bson:"name"`
	Boundary  Boundary  `json:"boundary" bson:"boundary"`
	Enabled   bool      `json:"enabled" bson:"enabled"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" bson:"updated_at"`
}

// Validate checks identity fields and the boundary.
func (r Region) Validate(vertexCount int) error {
	if r.ID == "" {
		return fmt.Errorf("%w: region id is required", ErrInvalidBoundary)
	}
	if r.Namespace == "" {
		return fmt.Errorf("%w: region namespace is required", ErrInvalidBoundary)
	}
	return r.Boundary.Validate(vertexCount)
}
