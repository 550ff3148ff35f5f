// Package metrics defines and registers all custom Prometheus metrics for the
// geofence service. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at package
// init through promauto; importing the package is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "geofence"

// ── Evaluation metrics ────────────────────────────────────────────────────────

// EvaluationsTotal counts position evaluations.
// Label:
//   - result: "ok", "invalid_input", "store_error", "state_error" or "lock_timeout"
var EvaluationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluations_total",
		Help:      "Total number of position evaluations, by result.",
	},
	[]string{"result"},
)

// EvaluationDuration measures a single evaluation including lock wait.
var EvaluationDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of a position evaluation from lock acquisition request to persisted state.",
		Buckets:   prometheus.DefBuckets,
	},
)

// TransitionsTotal counts emitted transitions.
// Label:
//   - kind: "enter" or "exit"
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of transition events emitted, by kind.",
	},
	[]string{"kind"},
)

// InvalidRegionsTotal counts regions skipped during evaluation because their
// boundary was malformed.
var InvalidRegionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invalid_regions_total",
		Help:      "Total number of malformed regions skipped during evaluation.",
	},
)

// ── Region cache metrics ──────────────────────────────────────────────────────

// RegionCacheTotal counts cache lookups.
// Label:
//   - result: "hit" or "miss"
var RegionCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "region_cache_total",
		Help:      "Total number of region cache lookups, labelled by result (hit/miss).",
	},
	[]string{"result"},
)

// RegionStoreFetchesTotal counts calls to the region store.
// Label:
//   - result: "ok" or "error"
var RegionStoreFetchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "region_store_fetches_total",
		Help:      "Total number of region store fetches, by result.",
	},
	[]string{"result"},
)

// ── Dispatch metrics ──────────────────────────────────────────────────────────

// SinkCallsTotal counts sink invocations.
// Labels:
//   - sink: the sink name (e.g. "logger", "webhook", "analytics")
//   - result: "ok", "error", "timeout" or "panic"
var SinkCallsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sink_calls_total",
		Help:      "Total number of sink invocations, by sink and result.",
	},
	[]string{"sink", "result"},
)

// SinkDuration measures how long a sink call took (capped by the sink timeout).
var SinkDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sink_duration_seconds",
		Help:      "Duration of a single sink invocation.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"sink"},
)

// DispatchDroppedTotal counts events dropped because a sink's worker queue was
// full or the dispatcher was shutting down.
// Labels:
//   - sink:   sink name, "all" when dropped before fan-out
//   - reason: "queue_full" or "shutdown"
var DispatchDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dispatch_dropped_total",
		Help:      "Total number of transition events dropped before reaching a sink.",
	},
	[]string{"sink", "reason"},
)

// DispatchQueueDepth tracks the number of events pending in each worker channel.
// Labels:
//   - sink:      sink name
//   - worker_id: numeric worker index within the sink (e.g. "0", "1")
var DispatchQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "dispatch_queue_depth",
		Help:      "Current number of events pending in each dispatcher worker channel.",
	},
	[]string{"sink", "worker_id"},
)
