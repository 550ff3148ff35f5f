package ports

import (
	"context"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// UpsertRegionInput carries a region definition from the admin API.
type UpsertRegionInput struct {
	Namespace string
	ID        string
	Name      string
	Boundary  domain.Boundary
	Enabled   bool
}

// RegionService exposes the public region feed and the admin mutations.
// Every mutation invalidates the namespace's cache entry.
type RegionService interface {
	ListEnabled(ctx context.Context, namespace string) ([]domain.Region, error)
	Upsert(ctx context.Context, in UpsertRegionInput) (*domain.Region, error)
	Delete(ctx context.Context, namespace, id string) error
	// Invalidate drops the cache entry for namespace, or all entries when empty.
	Invalidate(namespace string)
}
