package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/geo"
	"github.com/99minutos/geofence-system/internal/core/ports"
	"github.com/99minutos/geofence-system/internal/core/transition"
	"github.com/99minutos/geofence-system/internal/pkg/metrics"
)

const (
	DefaultVertexCount     = 8
	DefaultLockWaitTimeout = 10 * time.Second
)

// EvaluationConfig tunes the coordinator.
type EvaluationConfig struct {
	// VertexCount is the fixed polygon size; zero accepts any ring of 3+.
	VertexCount     int
	LockWaitTimeout time.Duration
}

// EvaluationService is the server-authoritative coordinator. Every call for a
// tracking key runs under that key's lock, so evaluations of one entity are
// applied one after another against the state the previous one persisted.
type EvaluationService struct {
	regions    ports.RegionCache
	states     ports.EntityStateRepository
	dispatcher ports.EventDispatcher
	locker     ports.KeyLocker
	cfg        EvaluationConfig
	now        func() time.Time
	tracer     trace.Tracer
	log        zerolog.Logger
}

func NewEvaluationService(
	regions ports.RegionCache,
	states ports.EntityStateRepository,
	dispatcher ports.EventDispatcher,
	locker ports.KeyLocker,
	cfg EvaluationConfig,
	log zerolog.Logger,
) *EvaluationService {
	if cfg.LockWaitTimeout <= 0 {
		cfg.LockWaitTimeout = DefaultLockWaitTimeout
	}
	return &EvaluationService{
		regions:    regions,
		states:     states,
		dispatcher: dispatcher,
		locker:     locker,
		cfg:        cfg,
		now:        time.Now,
		tracer:     otel.Tracer("github.com/99minutos/geofence-system/internal/core/service"),
		log:        log,
	}
}

// Evaluate checks one reported position and returns the transitions it caused.
func (s *EvaluationService) Evaluate(ctx context.Context, in ports.PositionInput) (events []domain.TransitionEvent, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "geofence.evaluate", trace.WithAttributes(
		attribute.String("geofence.namespace", in.Namespace),
		attribute.String("geofence.entity_id", in.EntityID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("geofence.transitions", len(events)))
		span.End()
		metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
		metrics.EvaluationsTotal.WithLabelValues(evaluationResult(err)).Inc()
	}()

	// 1. Reject malformed input before touching any shared state.
	if err := validatePosition(in); err != nil {
		return nil, err
	}
	key := domain.TrackingKey{Namespace: in.Namespace, EntityID: in.EntityID}

	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockWaitTimeout)
	release, err := s.locker.Acquire(lockCtx, key.String())
	cancel()
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", key, err)
	}
	defer release()

	// 2. Load state, lazily creating it on first sight.
	state, err := s.states.Get(ctx, key)
	switch {
	case errors.Is(err, domain.ErrStateNotFound):
		state = &domain.EntityRegionState{Key: key}
	case err != nil:
		return nil, fmt.Errorf("evaluate %s: load state: %w: %w", key, domain.ErrStateStore, err)
	}

	// 3. Regions; a store failure aborts before anything is mutated.
	regions, err := s.regions.Get(ctx, key.Namespace)
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", key, err)
	}

	// 4. Membership.
	current, known := s.membership(key, regions, in.Position)

	// 5. Diff.
	at := in.Timestamp
	if at.IsZero() {
		at = s.now()
	}
	at = at.UTC()
	events = transition.Diff(key, state.ActiveRegionIDs, current, in.Position, at)
	for i := range events {
		if r, ok := known[events[i].Region.ID]; ok {
			events[i].Region = r
		}
	}

	// 6. Persist.
	next := &domain.EntityRegionState{
		Key:             key,
		ActiveRegionIDs: transition.Normalize(current),
		LastPosition:    in.Position,
		LastReportedAt:  at,
	}
	if err := s.states.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("evaluate %s: save state: %w: %w", key, domain.ErrStateStore, err)
	}

	// 7. Dispatch; never blocks on the sinks.
	for _, e := range events {
		metrics.TransitionsTotal.WithLabelValues(string(e.Kind)).Inc()
		s.dispatcher.Dispatch(e)
	}

	if len(events) > 0 {
		s.log.Info().
			Str("namespace", key.Namespace).
			Str("entity_id", key.EntityID).
			Int("transitions", len(events)).
			Strs("active_regions", next.ActiveRegionIDs).
			Msg("position evaluated")
	} else {
		s.log.Debug().
			Str("namespace", key.Namespace).
			Str("entity_id", key.EntityID).
			Msg("position evaluated, no transitions")
	}
	return events, nil
}

// State returns the persisted membership of key.
func (s *EvaluationService) State(ctx context.Context, key domain.TrackingKey) (*domain.EntityRegionState, error) {
	state, err := s.states.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrStateNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("state %s: %w: %w", key, domain.ErrStateStore, err)
	}
	return state, nil
}

// membership returns the ids of the regions that contain p, plus every region
// indexed by id so event snapshots can be filled. Malformed regions never
// contain anything.
func (s *EvaluationService) membership(key domain.TrackingKey, regions []domain.Region, p domain.LatLng) ([]string, map[string]domain.Region) {
	var inside []string
	known := make(map[string]domain.Region, len(regions))
	for _, r := range regions {
		known[r.ID] = r
		ok, err := geo.Contains(r, p, s.cfg.VertexCount)
		if err != nil {
			metrics.InvalidRegionsTotal.Inc()
			s.log.Warn().Err(err).
				Str("namespace", key.Namespace).
				Str("region_id", r.ID).
				Msg("skipping malformed region")
			continue
		}
		if ok {
			inside = append(inside, r.ID)
		}
	}
	return inside, known
}

func validatePosition(in ports.PositionInput) error {
	if in.Namespace == "" || in.EntityID == "" {
		return fmt.Errorf("%w: namespace and entity id are required", domain.ErrInvalidPosition)
	}
	if err := in.Position.Validate(); err != nil {
		return err
	}
	if math.IsNaN(in.AccuracyMeters) || math.IsInf(in.AccuracyMeters, 0) || in.AccuracyMeters < 0 {
		return fmt.Errorf("%w: accuracy must be a non-negative number", domain.ErrInvalidPosition)
	}
	return nil
}

func evaluationResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidCoordinates), errors.Is(err, domain.ErrInvalidPosition):
		return "invalid_input"
	case errors.Is(err, domain.ErrRegionStoreUnavailable):
		return "store_error"
	case errors.Is(err, domain.ErrStateStore):
		return "state_error"
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "error"
	}
}
