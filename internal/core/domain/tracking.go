package domain

import (
	"errors"
	"time"
)

var ErrInvalidPosition = errors.New("invalid position report")
var ErrStateNotFound = errors.New("entity state not found")
var ErrStateStore = errors.New("entity state store failure")
var ErrLockTimeout = errors.New("timed out waiting for tracking key lock")
var ErrForbidden = errors.New("access forbidden")

// TrackingKey identifies one tracked entity inside one namespace (tenant).
// Two namespaces with the same entity id never share state.
type TrackingKey struct {
	Namespace string `json:"namespace" bson:"namespace"`
	EntityID  string `json:"entityId" bson:"entity_id"`
}

func (k TrackingKey) String() string {
	return k.Namespace + "/" + k.EntityID
}

// EntityRegionState is the persisted membership of a tracked entity.
// ActiveRegionIDs has set semantics and is stored sorted.
type EntityRegionState struct {
	Key             TrackingKey `json:"key" bson:"key"`
	ActiveRegionIDs []string    `json:"activeRegionIds" bson:"active_region_ids"`
	LastPosition    LatLng      `json:"lastPosition" bson:"last_position"`
	LastReportedAt  time.Time   `json:"lastReportedAt" bson:"last_reported_at"`
}

// IsActive reports whether regionID is in the active set.
func (s *EntityRegionState) IsActive(regionID string) bool {
	for _, id := range s.ActiveRegionIDs {
		if id == regionID {
			return true
		}
	}
	return false
}

// TransitionKind is the direction of a boundary crossing.
type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

// TransitionEvent records a single enter or exit crossing.
// Region always carries the region id; name and boundary are filled when the
// region is still known at evaluation time.
type TransitionEvent struct {
	ID        string         `json:"id"`
	Key       TrackingKey    `json:"key"`
	Region    Region         `json:"region"`
	Kind      TransitionKind `json:"type"`
	Position  LatLng         `json:"position"`
	Timestamp time.Time      `json:"timestamp"`
}
