// Package transition computes enter/exit deltas between two region
// membership sets. It holds no state; callers own persistence of the new set.
package transition

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// Diff emits one exit for every id in previous but not in current, then one
// enter for every id in current but not in previous. Each group is sorted by
// region id so repeated calls with the same inputs yield the same order.
// Duplicate ids in either input are collapsed.
func Diff(key domain.TrackingKey, previous, current []string, position domain.LatLng, at time.Time) []domain.TransitionEvent {
	prev := toSet(previous)
	curr := toSet(current)

	var events []domain.TransitionEvent
	for _, id := range sortedKeys(prev) {
		if _, ok := curr[id]; !ok {
			events = append(events, newEvent(key, id, domain.TransitionExit, position, at))
		}
	}
	for _, id := range sortedKeys(curr) {
		if _, ok := prev[id]; !ok {
			events = append(events, newEvent(key, id, domain.TransitionEnter, position, at))
		}
	}
	return events
}

// Apply folds events into the active set and returns the resulting sorted ids.
// An enter for an already-active region or an exit for an inactive one is a
// no-op.
func Apply(active []string, events []domain.TransitionEvent) []string {
	set := toSet(active)
	for _, e := range events {
		switch e.Kind {
		case domain.TransitionEnter:
			set[e.Region.ID] = struct{}{}
		case domain.TransitionExit:
			delete(set, e.Region.ID)
		}
	}
	return sortedKeys(set)
}

// Normalize returns ids deduplicated and sorted.
func Normalize(ids []string) []string {
	return sortedKeys(toSet(ids))
}

func newEvent(key domain.TrackingKey, regionID string, kind domain.TransitionKind, position domain.LatLng, at time.Time) domain.TransitionEvent {
	return domain.TransitionEvent{
		ID:        uuid.NewString(),
		Key:       key,
		Region:    domain.Region{ID: regionID, Namespace: key.Namespace},
		Kind:      kind,
		Position:  position,
		Timestamp: at,
	}
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
