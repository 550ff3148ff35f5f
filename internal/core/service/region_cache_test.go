package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/geofence-system/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stub region store
// ---------------------------------------------------------------------------

type stubRegionStore struct {
	mu      sync.Mutex
	regions map[string][]domain.Region
	errs    []error       // consumed one per call before regions are returned
	gate    chan struct{} // when set, FetchEnabled blocks until it is closed
	started chan struct{} // signalled on every call, if set
	calls   atomic.Int32
}

func newStubRegionStore() *stubRegionStore {
	return &stubRegionStore{regions: make(map[string][]domain.Region)}
}

func (s *stubRegionStore) FetchEnabled(ctx context.Context, namespace string) ([]domain.Region, error) {
	s.calls.Add(1)

	// Snapshot before blocking so a gated fetch returns what was stored when
	// it started.
	s.mu.Lock()
	var err error
	if len(s.errs) > 0 {
		err = s.errs[0]
		s.errs = s.errs[1:]
	}
	out := make([]domain.Region, len(s.regions[namespace]))
	copy(out, s.regions[namespace])
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stubRegionStore) set(namespace string, regions ...domain.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regions[namespace] = regions
}

func circleRegion(namespace, id string, center domain.LatLng, radius float64) domain.Region {
	c := center
	return domain.Region{
		ID:        id,
		Namespace: namespace,
		Name:      "region " + id,
		Boundary:  domain.Boundary{Center: &c, RadiusMeters: radius},
		Enabled:   true,
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRegionCache_HitAvoidsStore(t *testing.T) {
	store := newStubRegionStore()
	store.set("app1", circleRegion("app1", "a", domain.LatLng{}, 10))
	cache := NewRegionCache(store, time.Minute, time.Second, zerolog.Nop())

	for i := 0; i < 5; i++ {
		regions, err := cache.Get(context.Background(), "app1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(regions) != 1 || regions[0].ID != "a" {
			t.Fatalf("expected [a], got: %v", regions)
		}
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("expected 1 store fetch, got: %d", got)
	}
}

func TestRegionCache_FetchReusesEntryStoredByEarlierFlight(t *testing.T) {
	store := newStubRegionStore()
	store.set("app1", circleRegion("app1", "stale", domain.LatLng{}, 10))
	cache := NewRegionCache(store, time.Minute, time.Second, zerolog.Nop())

	// A caller that missed before another flight stored this entry.
	cache.mu.Lock()
	gen := cache.generationLocked("app1")
	cache.entries["app1"] = cacheEntry{
		regions:   []domain.Region{circleRegion("app1", "fresh", domain.LatLng{}, 10)},
		fetchedAt: time.Now(),
	}
	cache.mu.Unlock()

	regions, err := cache.fetch(context.Background(), "app1", gen)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].ID != "fresh" {
		t.Fatalf("expected the stored entry, got: %v", regions)
	}
	if got := store.calls.Load(); got != 0 {
		t.Fatalf("expected no store fetch, got: %d", got)
	}
}

func TestRegionCache_DropsDisabledRegions(t *testing.T) {
	store := newStubRegionStore()
	off := circleRegion("app1", "off", domain.LatLng{}, 10)
	off.Enabled = false
	store.set("app1", circleRegion("app1", "on", domain.LatLng{}, 10), off)
	cache := NewRegionCache(store, time.Minute, time.Second, zerolog.Nop())

	regions, err := cache.Get(context.Background(), "app1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].ID != "on" {
		t.Fatalf("expected only the enabled region, got: %v", regions)
	}
}

func TestRegionCache_ExpiresAfterTTL(t *testing.T) {
	store := newStubRegionStore()
	cache := NewRegionCache(store, time.Minute, time.Second, zerolog.Nop())
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if _, err := cache.Get(context.Background(), "app1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = now.Add(59 * time.Second)
	if _, err := cache.Get(context.Background(), "app1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("expected entry to be fresh before TTL, got %d fetches", got)
	}
	now = now.Add(2 * time.Second)
	if _, err := cache.Get(context.Background(), "app1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.calls.Load(); got != 2 {
		t.Fatalf("expected refetch after TTL, got %d fetches", got)
	}
}

func TestRegionCache_ConcurrentMissesShareOneFetch(t *testing.T) {
	store := newStubRegionStore()
	store.set("app1", circleRegion("app1", "a", domain.LatLng{}, 10))
	store.gate = make(chan struct{})
	cache := NewRegionCache(store, time.Minute, 5*time.Second, zerolog.Nop())

	const callers = 20
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			regions, err := cache.Get(context.Background(), "app1")
			if err == nil && len(regions) != 1 {
				err = errors.New("wrong region count")
			}
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(store.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := store.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 store fetch, got: %d", got)
	}
}

func TestRegionCache_InvalidateForcesRefetch(t *testing.T) {
	store := newStubRegionStore()
	store.set("app1", circleRegion("app1", "a", domain.LatLng{}, 10))
	cache := NewRegionCache(store, time.Minute, time.Second, zerolog.Nop())

	if _, err := cache.Get(context.Background(), "app1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store.set("app1", circleRegion("app1", "b", domain.LatLng{}, 10))
	cache.Invalidate("app1")

	regions, err := cache.Get(context.Background(), "app1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].ID != "b" {
		t.Fatalf("expected fresh region b after invalidate, got: %v", regions)
	}
}

func TestRegionCache_InvalidateAll(t *testing.T) {
	store := newStubRegionStore()
	cache := NewRegionCache(store, time.Minute, time.Second, zerolog.Nop())
	for _, ns := range []string{"app1", "app2"} {
		if _, err := cache.Get(context.Background(), ns); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	cache.InvalidateAll()
	for _, ns := range []string{"app1", "app2"} {
		if _, err := cache.Get(context.Background(), ns); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := store.calls.Load(); got != 4 {
		t.Fatalf("expected 4 fetches, got: %d", got)
	}
}

func TestRegionCache_InvalidateDuringFetchDoesNotStoreStaleResult(t *testing.T) {
	store := newStubRegionStore()
	store.set("app1", circleRegion("app1", "old", domain.LatLng{}, 10))
	store.gate = make(chan struct{})
	store.started = make(chan struct{}, 4)
	cache := NewRegionCache(store, time.Minute, 5*time.Second, zerolog.Nop())

	done := make(chan []domain.Region, 1)
	go func() {
		regions, _ := cache.Get(context.Background(), "app1")
		done <- regions
	}()
	<-store.started

	cache.Invalidate("app1")
	store.set("app1", circleRegion("app1", "new", domain.LatLng{}, 10))
	close(store.gate)

	if stale := <-done; len(stale) != 1 || stale[0].ID != "old" {
		t.Fatalf("expected in-flight waiter to get the old result, got: %v", stale)
	}

	regions, err := cache.Get(context.Background(), "app1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(regions) != 1 || regions[0].ID != "new" {
		t.Fatalf("expected stale result not to be cached, got: %v", regions)
	}
}

func TestRegionCache_FailuresAreNotCached(t *testing.T) {
	store := newStubRegionStore()
	store.set("app1", circleRegion("app1", "a", domain.LatLng{}, 10))
	store.errs = []error{errors.New("connection refused")}
	cache := NewRegionCache(store, time.Minute, time.Second, zerolog.Nop())

	_, err := cache.Get(context.Background(), "app1")
	if !errors.Is(err, domain.ErrRegionStoreUnavailable) {
		t.Fatalf("expected ErrRegionStoreUnavailable, got: %v", err)
	}

	regions, err := cache.Get(context.Background(), "app1")
	if err != nil {
		t.Fatalf("expected retry to succeed, got: %v", err)
	}
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got: %v", regions)
	}
}

func TestRegionCache_CallerCancellationReturnsPromptly(t *testing.T) {
	store := newStubRegionStore()
	store.gate = make(chan struct{})
	defer close(store.gate)
	cache := NewRegionCache(store, time.Minute, 5*time.Second, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := cache.Get(ctx, "app1")
	if !errors.Is(err, domain.ErrRegionStoreUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected unavailable + deadline error, got: %v", err)
	}
}
