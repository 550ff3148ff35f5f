package ports

import (
	"context"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// EntityStateRepository persists per-entity region membership.
type EntityStateRepository interface {
	// Get returns domain.ErrStateNotFound when the key was never evaluated.
	Get(ctx context.Context, key domain.TrackingKey) (*domain.EntityRegionState, error)
	// Save replaces the stored state for state.Key, creating it if needed.
	Save(ctx context.Context, state *domain.EntityRegionState) error
}

// TransitionRepository is the audit trail of emitted transition events.
type TransitionRepository interface {
	InsertTransition(ctx context.Context, event *domain.TransitionEvent) error
}
