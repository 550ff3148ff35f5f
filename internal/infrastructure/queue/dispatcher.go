package queue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/99minutos/geofence-system/internal/core/domain"
	"github.com/99minutos/geofence-system/internal/core/ports"
	"github.com/99minutos/geofence-system/internal/pkg/metrics"
)

const (
	defaultWorkers     = 8
	channelBuffer      = 256
	defaultSinkTimeout = 5 * time.Second
)

// Options configures a Dispatcher. Zero values fall back to the defaults.
// Workers and QueueSize apply to each registered sink.
type Options struct {
	Workers     int
	QueueSize   int
	SinkTimeout time.Duration
}

// lane is one sink with its own sharded worker queues.
type lane struct {
	sink   ports.Sink
	name   string
	shards []chan domain.TransitionEvent
}

// Dispatcher fans transition events out to every registered sink. Each sink
// owns a set of workers selected by consistent hashing on the tracking key,
// which keeps per-entity order per sink. A slow sink only backs up, and drops
// from, its own queues.
type Dispatcher struct {
	workers     int
	queueSize   int
	sinkTimeout time.Duration
	tracer      trace.Tracer
	log         zerolog.Logger

	mu      sync.RWMutex
	lanes   []*lane
	runCtx  context.Context
	started bool
	closed  bool

	wg sync.WaitGroup
}

// NewDispatcher creates a Dispatcher; call Start before events can flow.
func NewDispatcher(opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = channelBuffer
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = defaultSinkTimeout
	}
	return &Dispatcher{
		workers:     opts.Workers,
		queueSize:   opts.QueueSize,
		sinkTimeout: opts.SinkTimeout,
		tracer:      otel.Tracer("github.com/99minutos/geofence-system/internal/infrastructure/queue"),
		log:         log,
	}
}

// Register adds sink when it reports itself enabled. Enablement is read once.
// A sink registered after Start gets its workers immediately.
func (d *Dispatcher) Register(sink ports.Sink) bool {
	if !sink.Enabled() {
		d.log.Info().Str("sink", sink.Name()).Msg("sink disabled, not registered")
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	l := &lane{sink: sink, name: sink.Name(), shards: make([]chan domain.TransitionEvent, d.workers)}
	for i := range l.shards {
		l.shards[i] = make(chan domain.TransitionEvent, d.queueSize)
	}
	d.lanes = append(d.lanes, l)
	if d.started {
		d.startLane(l)
	}
	d.log.Info().Str("sink", l.name).Int("workers", d.workers).Msg("sink registered")
	return true
}

// Start launches the workers of every registered sink. Cancelling ctx stops
// them without draining; use Shutdown for a graceful stop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.runCtx = ctx
	for _, l := range d.lanes {
		d.startLane(l)
	}
}

// startLane must be called with mu held.
func (d *Dispatcher) startLane(l *lane) {
	for i, ch := range l.shards {
		d.wg.Add(1)
		go d.runWorker(d.runCtx, l, i, ch)
	}
}

// Dispatch queues event on every sink's worker owning its tracking key. It
// never blocks: when one sink's queue is full the event is dropped for that
// sink only.
func (d *Dispatcher) Dispatch(event domain.TransitionEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.DispatchDroppedTotal.WithLabelValues("all", "shutdown").Inc()
		d.log.Warn().Str("event_id", event.ID).Msg("dispatcher closed, event dropped")
		return
	}

	idx := d.shardIndex(event.Key.String())
	for _, l := range d.lanes {
		ch := l.shards[idx]
		select {
		case ch <- event:
			metrics.DispatchQueueDepth.WithLabelValues(l.name, strconv.Itoa(idx)).Set(float64(len(ch)))
		default:
			metrics.DispatchDroppedTotal.WithLabelValues(l.name, "queue_full").Inc()
			d.log.Error().
				Str("sink", l.name).
				Str("event_id", event.ID).
				Str("namespace", event.Key.Namespace).
				Str("entity_id", event.Key.EntityID).
				Str("region_id", event.Region.ID).
				Int("worker_id", idx).
				Msg("sink queue full, event dropped")
		}
	}
}

// Shutdown stops accepting events, drains the queues and waits for the
// in-flight sink calls, bounded by ctx.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, l := range d.lanes {
			for _, ch := range l.shards {
				close(ch)
			}
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.log.Info().Msg("dispatcher drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

// shardIndex maps a tracking key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(d.workers))
}

func (d *Dispatcher) runWorker(ctx context.Context, l *lane, id int, ch <-chan domain.TransitionEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.DispatchQueueDepth.WithLabelValues(l.name, label).Set(float64(len(ch)))
			if err := d.callSink(l.sink, event); err != nil {
				d.log.Warn().Err(err).
					Str("sink", l.name).
					Str("event_id", event.ID).
					Str("namespace", event.Key.Namespace).
					Str("entity_id", event.Key.EntityID).
					Str("region_id", event.Region.ID).
					Str("kind", string(event.Kind)).
					Msg("sink delivery failed")
			}
		}
	}
}

// PanicError wraps a value recovered from a sink.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("sink panicked: %v", e.Value)
}

func (d *Dispatcher) callSink(s ports.Sink, event domain.TransitionEvent) error {
	name := s.Name()
	ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
	defer cancel()
	ctx, span := d.tracer.Start(ctx, "geofence.sink."+name, trace.WithAttributes(
		attribute.String("geofence.sink", name),
		attribute.String("geofence.transition", string(event.Kind)),
		attribute.String("geofence.region_id", event.Region.ID),
	))
	defer span.End()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- &PanicError{Value: r}
			}
		}()
		if event.Kind == domain.TransitionExit {
			done <- s.OnExit(ctx, event)
		} else {
			done <- s.OnEnter(ctx, event)
		}
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	metrics.SinkDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	var panicErr *PanicError
	result := "ok"
	switch {
	case err == nil:
	case errors.As(err, &panicErr):
		result = "panic"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}
	metrics.SinkCallsTotal.WithLabelValues(name, result).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	return err
}
