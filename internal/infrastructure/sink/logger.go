package sink

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
)

// LoggerSink is always enabled: it writes a structured log line for every
// transition and appends it to the audit trail when a repository is set.
type LoggerSink struct {
	repo ports.TransitionRepository
	log  zerolog.Logger
}

// NewLoggerSink returns a LoggerSink. repo may be nil; then events are only logged.
func NewLoggerSink(repo ports.TransitionRepository, log zerolog.Logger) *LoggerSink {
	return &LoggerSink{repo: repo, log: log}
}

func (s *LoggerSink) Name() string  { return "logger" }
func (s *LoggerSink) Enabled() bool { return true }

func (s *LoggerSink) OnEnter(ctx context.Context, e domain.TransitionEvent) error {
	return s.record(ctx, e)
}

func (s *LoggerSink) OnExit(ctx context.Context, e domain.TransitionEvent) error {
	return s.record(ctx, e)
}

func (s *LoggerSink) record(ctx context.Context, e domain.TransitionEvent) error {
	s.log.Info().
		Str("event_id", e.ID).
		Str("type", string(e.Kind)).
		Str("namespace", e.Key.Namespace).
		Str("entity_id", e.Key.EntityID).
		Str("region_id", e.Region.ID).
		Str("region_name", e.Region.Name).
		Float64("lat", e.Position.Lat).
		Float64("lng", e.Position.Lng).
		Time("timestamp", e.Timestamp).
		Msg("geofence transition")

	if s.repo == nil {
		return nil
	}
	if err := s.repo.InsertTransition(ctx, &e); err != nil {
		return fmt.Errorf("audit transition %s: %w", e.ID, err)
	}
	return nil
}
