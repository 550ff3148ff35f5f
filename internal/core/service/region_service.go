package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

type RegionService struct {
	repo        ports.RegionRepository
	cache       ports.RegionCache
	vertexCount int
	logger      zerolog.Logger
}

func NewRegionService(repo ports.RegionRepository, cache ports.RegionCache, vertexCount int, logger zerolog.Logger) *RegionService {
	return &RegionService{repo: repo, cache: cache, vertexCount: vertexCount, logger: logger}
}

// ListEnabled serves the public region feed from the cache.
func (s *RegionService) ListEnabled(ctx context.Context, namespace string) ([]domain.Region, error) {
	return s.cache.Get(ctx, namespace)
}

// Upsert validates and stores a region, then drops the namespace's cache
// entry so the next evaluation sees the change.
func (s *RegionService) Upsert(ctx context.Context, in ports.UpsertRegionInput) (*domain.Region, error) {
	region := &domain.Region{
		ID:        in.ID,
		Namespace: in.Namespace,
		Name:      in.Name,
		Boundary:  in.Boundary,
		Enabled:   in.Enabled,
		UpdatedAt: time.Now().UTC(),
	}
	if err := region.Validate(s.vertexCount); err != nil {
		return nil, fmt.Errorf("upsert region: %w", err)
	}
	if err := s.repo.Upsert(ctx, region); err != nil {
		return nil, fmt.Errorf("upsert region: %w", err)
	}
	s.cache.Invalidate(region.Namespace)

	s.logger.Info().
		Str("namespace", region.Namespace).
		Str("region_id", region.ID).
		Str("kind", string(region.Boundary.Kind())).
		Bool("enabled", region.Enabled).
		Msg("region upserted")
	return region, nil
}

// Delete removes a region. Entities inside it get an exit on their next report.
func (s *RegionService) Delete(ctx context.Context, namespace, id string) error {
	if err := s.repo.Delete(ctx, namespace, id); err != nil {
		return fmt.Errorf("delete region: %w", err)
	}
	s.cache.Invalidate(namespace)
	s.logger.Info().Str("namespace", namespace).Str("region_id", id).Msg("region deleted")
	return nil
}

// Invalidate drops the cache for namespace, or for every namespace when empty.
func (s *RegionService) Invalidate(namespace string) {
	if namespace == "" {
		s.cache.InvalidateAll()
		return
	}
	s.cache.Invalidate(namespace)
}
