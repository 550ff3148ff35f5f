// Package monitor is the client-side counterpart of the evaluation service.
// It polls a position source and either evaluates regions in-process (local
// mode) or forwards movement-gated reports to the API (remote mode),
// delivering enter/exit events to listeners exactly once per transition.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/geo"
	"github.com/99minutos/geofence-system/internal/core/ports"
	"github.com/99minutos/geofence-system/internal/core/transition"
)

var (
	ErrBusy       = errors.New("monitor: a position is already being processed")
	ErrNotRunning = errors.New("monitor: not running")
	ErrNotManual  = errors.New("monitor: test positions require manual mode")
)

// Fix is one reading from a position source.
type Fix struct {
	Position       domain.LatLng
	AccuracyMeters float64
	Timestamp      time.Time // zero means "now"
	Speed          *float64
	Heading        *float64
}

// PositionSource yields the device's current position.
type PositionSource interface {
	Current(ctx context.Context) (Fix, error)
}

// RegionFeed serves the enabled regions of a namespace.
type RegionFeed interface {
	EnabledRegions(ctx context.Context, namespace string) ([]domain.Region, error)
}

// PositionReporter forwards a position to the evaluation service.
type PositionReporter interface {
	Report(ctx context.Context, in ports.PositionInput) ([]domain.TransitionEvent, error)
}

// Listener receives transitions synchronously, in emission order.
type Listener func(event domain.TransitionEvent)

// Monitor owns the polling loop. Exactly one position is processed at a time;
// a tick arriving while another is in flight is dropped.
type Monitor struct {
	cfg      Config
	feed     RegionFeed
	reporter PositionReporter
	source   PositionSource
	log      zerolog.Logger
	now      func() time.Time

	lifecycle sync.Mutex
	runCtx    context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	running   atomic.Bool
	calls     sync.WaitGroup // Refresh and SetTestPosition in flight

	processing atomic.Bool

	mu            sync.Mutex
	regions       []domain.Region
	active        []string
	lastFix       *Fix
	lastReported  *domain.LatLng
	lastReportAt  time.Time
	cooldownUntil time.Time
	listeners     []Listener
}

// New validates cfg against the collaborators it needs. feed is required in
// local mode, reporter in remote mode, source unless cfg.Manual is set.
func New(cfg Config, feed RegionFeed, reporter PositionReporter, source PositionSource, log zerolog.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.Mode == ModeLocal && feed == nil:
		return nil, errors.New("monitor: local mode needs a region feed")
	case cfg.Mode == ModeRemote && reporter == nil:
		return nil, errors.New("monitor: remote mode needs a position reporter")
	case !cfg.Manual && source == nil:
		return nil, errors.New("monitor: polling needs a position source")
	}
	return &Monitor{
		cfg:      cfg,
		feed:     feed,
		reporter: reporter,
		source:   source,
		log:      log.With().Str("mode", string(cfg.Mode)).Str("namespace", cfg.Namespace).Logger(),
		now:      time.Now,
	}, nil
}

// AddListener registers l for every future transition.
func (m *Monitor) AddListener(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// ActiveRegionIDs returns the locally tracked membership.
func (m *Monitor) ActiveRegionIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.active...)
}

// Start loads the region list (local mode) and begins polling. Calling Start
// on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.running.Load() {
		return nil
	}

	if m.cfg.Mode == ModeLocal {
		if err := m.loadRegions(ctx); err != nil {
			return err
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.runCtx, m.cancel = loopCtx, cancel
	m.done = make(chan struct{})
	m.running.Store(true)

	if m.cfg.Manual {
		close(m.done)
	} else {
		go m.loop(loopCtx, m.done)
	}
	m.log.Info().Bool("manual", m.cfg.Manual).Dur("poll_interval", m.cfg.PollInterval).Msg("monitor started")
	return nil
}

// Stop cancels the polling loop and any in-flight report, including one made
// by Refresh or SetTestPosition, then waits for them to return. It is
// idempotent.
func (m *Monitor) Stop() {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if !m.running.Load() {
		return
	}
	m.running.Store(false)
	m.cancel()
	<-m.done
	m.calls.Wait()
	m.runCtx, m.cancel, m.done = nil, nil, nil
	m.log.Info().Msg("monitor stopped")
}

// begin registers a caller-driven operation. The returned context is
// cancelled when either ctx or the monitor's run is done; end must be called
// once the operation returns.
func (m *Monitor) begin(ctx context.Context) (opCtx context.Context, end func(), err error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if !m.running.Load() {
		return nil, nil, ErrNotRunning
	}
	m.calls.Add(1)

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.runCtx, cancel)
	return opCtx, func() {
		stop()
		cancel()
		m.calls.Done()
	}, nil
}

// Refresh re-fetches regions (local mode) and re-evaluates the last known
// position without waiting for the next tick. Remote mode skips the report
// gates for this call.
func (m *Monitor) Refresh(ctx context.Context) error {
	ctx, end, err := m.begin(ctx)
	if err != nil {
		return err
	}
	defer end()
	if !m.processing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.processing.Store(false)

	if m.cfg.Mode == ModeLocal {
		if err := m.loadRegions(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	last := m.lastFix
	m.mu.Unlock()
	if last == nil {
		return nil
	}
	return m.process(ctx, *last, true)
}

// SetTestPosition processes fix in manual mode through the same path as a
// polled position.
func (m *Monitor) SetTestPosition(ctx context.Context, fix Fix) error {
	if !m.cfg.Manual {
		return ErrNotManual
	}
	ctx, end, err := m.begin(ctx)
	if err != nil {
		return err
	}
	defer end()
	if !m.processing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer m.processing.Store(false)
	return m.process(ctx, fix, false)
}

func (m *Monitor) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if !m.processing.CompareAndSwap(false, true) {
		m.log.Debug().Msg("tick dropped, previous position still in flight")
		return
	}
	defer m.processing.Store(false)

	fix, err := m.source.Current(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn().Err(err).Msg("position source failed")
		}
		return
	}
	if err := m.process(ctx, fix, false); err != nil && ctx.Err() == nil {
		m.log.Warn().Err(err).Msg("position processing failed")
	}
}

func (m *Monitor) loadRegions(ctx context.Context) error {
	regions, err := m.feed.EnabledRegions(ctx, m.cfg.Namespace)
	if err != nil {
		return fmt.Errorf("monitor: load regions: %w", err)
	}
	enabled := make([]domain.Region, 0, len(regions))
	for _, r := range regions {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	m.mu.Lock()
	m.regions = enabled
	m.mu.Unlock()
	m.log.Debug().Int("regions", len(enabled)).Msg("regions loaded")
	return nil
}

// process must be called with the in-flight flag held.
func (m *Monitor) process(ctx context.Context, fix Fix, force bool) error {
	if err := fix.Position.Validate(); err != nil {
		return err
	}
	if m.cfg.Mode == ModeRemote {
		return m.processRemote(ctx, fix, force)
	}
	m.processLocal(fix)
	return nil
}

func (m *Monitor) processLocal(fix Fix) {
	at := fix.Timestamp
	if at.IsZero() {
		at = m.now()
	}
	key := domain.TrackingKey{Namespace: m.cfg.Namespace, EntityID: m.cfg.EntityID}

	m.mu.Lock()
	byID := make(map[string]domain.Region, len(m.regions))
	var inside []string
	for _, r := range m.regions {
		byID[r.ID] = r
		ok, err := geo.Contains(r, fix.Position, m.cfg.VertexCount)
		if err != nil {
			m.log.Warn().Err(err).Str("region_id", r.ID).Msg("skipping malformed region")
			continue
		}
		if ok {
			inside = append(inside, r.ID)
		}
	}
	events := transition.Diff(key, m.active, inside, fix.Position, at.UTC())
	for i := range events {
		if r, ok := byID[events[i].Region.ID]; ok {
			events[i].Region = r
		}
	}
	m.active = transition.Normalize(inside)
	f := fix
	m.lastFix = &f
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.emit(listeners, events)
}

func (m *Monitor) processRemote(ctx context.Context, fix Fix, force bool) error {
	now := m.now()

	m.mu.Lock()
	f := fix
	m.lastFix = &f
	skip := !force && m.gated(fix.Position, now)
	m.mu.Unlock()
	if skip {
		return nil
	}

	events, err := m.reporter.Report(ctx, ports.PositionInput{
		Namespace:      m.cfg.Namespace,
		EntityID:       m.cfg.EntityID,
		Position:       fix.Position,
		AccuracyMeters: fix.AccuracyMeters,
		Timestamp:      fix.Timestamp,
		Speed:          fix.Speed,
		Heading:        fix.Heading,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	reported := fix.Position
	m.lastReported = &reported
	m.lastReportAt = now
	if len(events) > 0 {
		m.cooldownUntil = now.Add(m.cfg.EventCooldown)
	}
	emitted := m.reconcile(events)
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	m.log.Debug().
		Int("server_events", len(events)).
		Int("emitted", len(emitted)).
		Msg("position reported")
	m.emit(listeners, emitted)
	return nil
}

// gated reports whether a report at p must be held back. The first report is
// never gated. Caller holds mu.
func (m *Monitor) gated(p domain.LatLng, now time.Time) bool {
	if m.lastReported == nil {
		return false
	}
	if geo.DistanceMeters(*m.lastReported, p) < m.cfg.MinMovementMeters {
		return true
	}
	if now.Sub(m.lastReportAt) < m.cfg.MinReportInterval {
		return true
	}
	return now.Before(m.cooldownUntil)
}

// reconcile keeps server events that change the local active set and applies
// them. Caller holds mu.
func (m *Monitor) reconcile(events []domain.TransitionEvent) []domain.TransitionEvent {
	var out []domain.TransitionEvent
	for _, e := range events {
		active := false
		for _, id := range m.active {
			if id == e.Region.ID {
				active = true
				break
			}
		}
		switch {
		case e.Kind == domain.TransitionEnter && !active,
			e.Kind == domain.TransitionExit && active:
			m.active = transition.Apply(m.active, []domain.TransitionEvent{e})
			out = append(out, e)
		}
	}
	return out
}

func (m *Monitor) emit(listeners []Listener, events []domain.TransitionEvent) {
	for _, e := range events {
		m.log.Info().
			Str("kind", string(e.Kind)).
			Str("region_id", e.Region.ID).
			Msg("transition")
		for _, l := range listeners {
			l(e)
		}
	}
}
