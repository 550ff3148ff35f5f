package handler

import (
	"time"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// --- Wire shapes ---

type latLngDTO struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" validate:"required,gte=-180,lte=180"`
}

// boundaryDTO is either {center, radiusMeters} or {vertices}. Shape rules
// are enforced by domain.Boundary.Validate.
type boundaryDTO struct {
	Center       *latLngDTO  `json:"center,omitempty"`
	RadiusMeters float64     `json:"radiusMeters,omitempty"`
	Vertices     []latLngDTO `json:"vertices,omitempty" validate:"omitempty,dive"`
}

type regionDTO struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Boundary boundaryDTO `json:"boundary"`
	Enabled  bool        `json:"enabled"`
}

// --- Positions ---

type positionRequest struct {
	Namespace      string   `json:"namespace"      validate:"required"`
	EntityID       string   `json:"entityId"       validate:"required"`
	Lat            *float64 `json:"lat"            validate:"required,gte=-90,lte=90"`
	Lng            *float64 `json:"lng"            validate:"required,gte=-180,lte=180"`
	AccuracyMeters float64  `json:"accuracyMeters" validate:"gte=0"`
	TimestampMs    int64    `json:"timestampMs"    validate:"gte=0"`
	Speed          *float64 `json:"speed,omitempty"   validate:"omitempty,gte=0"`
	Heading        *float64 `json:"heading,omitempty" validate:"omitempty,gte=0,lt=360"`
}

type transitionDTO struct {
	Type         string    `json:"type"`
	Region       regionDTO `json:"region"`
	TimestampISO string    `json:"timestampIso"`
}

type positionResponse struct {
	Events []transitionDTO `json:"events"`
}

// --- Regions ---

type regionListResponse struct {
	Regions []regionDTO `json:"regions"`
}

type upsertRegionRequest struct {
	Namespace string      `json:"namespace" validate:"required"`
	Name      string      `json:"name"      validate:"required"`
	Boundary  boundaryDTO `json:"boundary"`
	Enabled   *bool       `json:"enabled"`
}

type invalidateRequest struct {
	// Empty means every namespace.
	Namespace string `json:"namespace"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// --- State ---

type stateResponse struct {
	Namespace       string    `json:"namespace"`
	EntityID        string    `json:"entityId"`
	ActiveRegionIDs []string  `json:"activeRegionIds"`
	LastPosition    latLngOut `json:"lastPosition"`
	LastReportedAt  string    `json:"lastReportedAt"`
}

type latLngOut struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// --- Mapping ---

func (d latLngDTO) toDomain() domain.LatLng {
	var p domain.LatLng
	if d.Lat != nil {
		p.Lat = *d.Lat
	}
	if d.Lng != nil {
		p.Lng = *d.Lng
	}
	return p
}

func fromLatLng(p domain.LatLng) latLngDTO {
	lat, lng := p.Lat, p.Lng
	return latLngDTO{Lat: &lat, Lng: &lng}
}

func (b boundaryDTO) toDomain() domain.Boundary {
	var out domain.Boundary
	if b.Center != nil {
		c := b.Center.toDomain()
		out.Center = &c
		out.RadiusMeters = b.RadiusMeters
	}
	for _, v := range b.Vertices {
		out.Vertices = append(out.Vertices, v.toDomain())
	}
	return out
}

func fromBoundary(b domain.Boundary) boundaryDTO {
	var out boundaryDTO
	if b.Center != nil {
		c := fromLatLng(*b.Center)
		out.Center = &c
		out.RadiusMeters = b.RadiusMeters
	}
	for _, v := range b.Vertices {
		out.Vertices = append(out.Vertices, fromLatLng(v))
	}
	return out
}

func fromRegion(r domain.Region) regionDTO {
	return regionDTO{ID: r.ID, Name: r.Name, Boundary: fromBoundary(r.Boundary), Enabled: r.Enabled}
}

func fromEvents(events []domain.TransitionEvent) positionResponse {
	out := positionResponse{Events: make([]transitionDTO, 0, len(events))}
	for _, e := range events {
		out.Events = append(out.Events, transitionDTO{
			Type:         string(e.Kind),
			Region:       fromRegion(e.Region),
			TimestampISO: e.Timestamp.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
