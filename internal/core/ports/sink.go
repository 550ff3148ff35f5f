package ports

import (
	"context"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// Sink is a downstream destination for transition events.
//
// Implementations must honour ctx and must not panic; the dispatcher treats a
// returned error, a panic and a deadline overrun the same way (log, count,
// continue). Enabled is read once at registration.
type Sink interface {
	Name() string
	Enabled() bool
	OnEnter(ctx context.Context, event domain.TransitionEvent) error
	OnExit(ctx context.Context, event domain.TransitionEvent) error
}

// EventDispatcher hands transition events to the sinks without blocking.
type EventDispatcher interface {
	Dispatch(event domain.TransitionEvent)
}
