// Package sink holds the downstream destinations transition events are
// fanned out to by the dispatcher.
package sink

import (
	"time"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// eventPayload is the JSON shape shared by the webhook and analytics sinks.
type eventPayload struct {
	ID           string        `json:"id"`
	Type         string        `json:"type"`
	Namespace    string        `json:"namespace"`
	EntityID     string        `json:"entityId"`
	Region       regionPayload `json:"region"`
	Position     domain.LatLng `json:"position"`
	TimestampISO string        `json:"timestampIso"`
}

type regionPayload struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func newEventPayload(e domain.TransitionEvent) eventPayload {
	return eventPayload{
		ID:           e.ID,
		Type:         string(e.Kind),
		Namespace:    e.Key.Namespace,
		EntityID:     e.Key.EntityID,
		Region:       regionPayload{ID: e.Region.ID, Name: e.Region.Name},
		Position:     e.Position,
		TimestampISO: e.Timestamp.UTC().Format(time.RFC3339Nano),
	}
}
