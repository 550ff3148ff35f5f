package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
	"github.com/99minutos/geofence-system/internal/pkg/metrics"
)

const (
	DefaultRegionCacheTTL     = 5 * time.Minute
	DefaultRegionFetchTimeout = 5 * time.Second
)

type cacheEntry struct {
	regions   []domain.Region
	fetchedAt time.Time
}

// RegionCache is a TTL read-through cache of enabled regions per namespace.
//
// Concurrent misses for one namespace share a single store fetch. Invalidate
// bumps the namespace generation so a fetch that was already in flight still
// answers its waiters but is not stored. Returned slices are shared and must
// be treated as read-only.
type RegionCache struct {
	store        ports.RegionStore
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          zerolog.Logger

	group singleflight.Group

	mu       sync.Mutex
	entries  map[string]cacheEntry
	gens     map[string]uint64
	epoch    uint64
	inflight map[string]struct{}
}

// NewRegionCache creates a cache in front of store. Non-positive ttl and
// fetchTimeout fall back to the defaults.
func NewRegionCache(store ports.RegionStore, ttl, fetchTimeout time.Duration, log zerolog.Logger) *RegionCache {
	if ttl <= 0 {
		ttl = DefaultRegionCacheTTL
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultRegionFetchTimeout
	}
	return &RegionCache{
		store:        store,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		now:          time.Now,
		log:          log,
		entries:      make(map[string]cacheEntry),
		gens:         make(map[string]uint64),
		inflight:     make(map[string]struct{}),
	}
}

type generation struct {
	ns    uint64
	epoch uint64
}

// Get returns the enabled regions of namespace, fetching them from the store
// on a miss or after the TTL expired.
func (c *RegionCache) Get(ctx context.Context, namespace string) ([]domain.Region, error) {
	c.mu.Lock()
	if e, ok := c.entries[namespace]; ok && c.now().Sub(e.fetchedAt) < c.ttl {
		c.mu.Unlock()
		metrics.RegionCacheTotal.WithLabelValues("hit").Inc()
		return e.regions, nil
	}
	gen := c.generationLocked(namespace)
	c.mu.Unlock()
	metrics.RegionCacheTotal.WithLabelValues("miss").Inc()

	// The fetch runs detached from this caller's cancellation so other
	// waiters are not failed by it; it is bounded by fetchTimeout instead.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(namespace, func() (any, error) {
		return c.fetch(fetchCtx, namespace, gen)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Region), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", domain.ErrRegionStoreUnavailable, ctx.Err())
	}
}

// Invalidate drops the cached entry for namespace immediately.
func (c *RegionCache) Invalidate(namespace string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, namespace)
	c.gens[namespace]++
	c.group.Forget(namespace)
	c.log.Debug().Str("namespace", namespace).Msg("region cache invalidated")
}

// InvalidateAll drops every cached entry.
func (c *RegionCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ns := range c.entries {
		c.group.Forget(ns)
	}
	for ns := range c.inflight {
		c.group.Forget(ns)
	}
	c.entries = make(map[string]cacheEntry)
	c.epoch++
	c.log.Debug().Msg("region cache invalidated for all namespaces")
}

func (c *RegionCache) generationLocked(namespace string) generation {
	return generation{ns: c.gens[namespace], epoch: c.epoch}
}

func (c *RegionCache) fetch(ctx context.Context, namespace string, gen generation) ([]domain.Region, error) {
	c.mu.Lock()
	// A flight that finished between the caller's miss and this call may
	// already have stored a fresh entry.
	if e, ok := c.entries[namespace]; ok && c.now().Sub(e.fetchedAt) < c.ttl {
		c.mu.Unlock()
		return e.regions, nil
	}
	c.inflight[namespace] = struct{}{}
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inflight, namespace)
		c.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	regions, err := c.store.FetchEnabled(ctx, namespace)
	if err != nil {
		metrics.RegionStoreFetchesTotal.WithLabelValues("error").Inc()
		c.log.Error().Err(err).Str("namespace", namespace).Msg("region store fetch failed")
		return nil, fmt.Errorf("fetch regions for %q: %w: %w", namespace, domain.ErrRegionStoreUnavailable, err)
	}
	metrics.RegionStoreFetchesTotal.WithLabelValues("ok").Inc()

	enabled := make([]domain.Region, 0, len(regions))
	for _, r := range regions {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}

	c.mu.Lock()
	if c.generationLocked(namespace) == gen {
		c.entries[namespace] = cacheEntry{regions: enabled, fetchedAt: c.now()}
	}
	c.mu.Unlock()

	c.log.Debug().Str("namespace", namespace).Int("regions", len(enabled)).Msg("region cache populated")
	return enabled, nil
}
