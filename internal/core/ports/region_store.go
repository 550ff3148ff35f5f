package ports

import (
	"context"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// RegionStore is the read contract of the external region store.
type RegionStore interface {
	// FetchEnabled returns every enabled region of the namespace.
	FetchEnabled(ctx context.Context, namespace string) ([]domain.Region, error)
}

// RegionRepository adds the mutation side used by region administration.
type RegionRepository interface {
	RegionStore
	// FindByID returns domain.ErrRegionNotFound when no region matches.
	FindByID(ctx context.Context, namespace, id string) (*domain.Region, error)
	Upsert(ctx context.Context, region *domain.Region) error
	// Delete returns domain.ErrRegionNotFound when nothing was removed.
	Delete(ctx context.Context, namespace, id string) error
}

// RegionCache is the read-through cache in front of a RegionStore.
type RegionCache interface {
	Get(ctx context.Context, namespace string) ([]domain.Region, error)
	Invalidate(namespace string)
	InvalidateAll()
}
