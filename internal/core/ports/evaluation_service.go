package ports

import (
	"context"
	"time"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// PositionInput is the DTO passed from the transport layer to the evaluation service.
type PositionInput struct {
	Namespace      string
	EntityID       string
	Position       domain.LatLng
	AccuracyMeters float64
	Timestamp      time.Time // optional; zero means "now"
	Speed          *float64  // optional, m/s
	Heading        *float64  // optional, degrees
}

// EvaluationService is the server-authoritative evaluation coordinator.
type EvaluationService interface {
	Evaluate(ctx context.Context, in PositionInput) ([]domain.TransitionEvent, error)
	State(ctx context.Context, key domain.TrackingKey) (*domain.EntityRegionState, error)
}
