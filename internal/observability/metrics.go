// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the pipeline.
type Metrics struct {
	// Ingest metrics
	LogsReceived       *prometheus.CounterVec
	SignaturesEnqueued prometheus.Counter
	HighestSlotSeen    prometheus.Gauge

	// Resolver metrics
	SignaturesResolved prometheus.Counter
	ResolveFailures    *prometheus.CounterVec
	RPCCallLatency     *prometheus.HistogramVec

	// Parser metrics
	SwapEventsParsed prometheus.Counter
	LpEventsParsed   prometheus.Counter
	ParserSkips      *prometheus.CounterVec
	ParserCursorSlot *prometheus.GaugeVec

	// Feature metrics
	FeaturePoolsComputed prometheus.Counter
	FeatureRunDuration   prometheus.Histogram

	// Detector metrics
	SignalsEmitted     prometheus.Counter
	SignalsSuppressed  prometheus.Counter
	DetectorRejections *prometheus.CounterVec

	// Trading metrics
	PositionsOpened prometheus.Counter
	PartialExits    prometheus.Counter
	FullCloses      *prometheus.CounterVec

	// Supervisor metrics
	TaskRestarts  *prometheus.CounterVec
	UptimeSeconds prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "scf_pipeline"
	}

	return &Metrics{
		LogsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "logs_received_total",
			Help:      "Total number of log notifications received by program",
		}, []string{"program"}),
		SignaturesEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "signatures_enqueued_total",
			Help:      "Total number of signatures written to the queue",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		SignaturesResolved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "signatures_resolved_total",
			Help:      "Total number of signatures resolved to raw payloads",
		}),
		ResolveFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "resolver",
			Name:      "failures_total",
			Help:      "Total number of resolve failures by cause",
		}, []string{"cause"}),
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		SwapEventsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "swap_events_total",
			Help:      "Total number of swap events written",
		}),
		LpEventsParsed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "lp_events_total",
			Help:      "Total number of LP events written",
		}),
		ParserSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "skips_total",
			Help:      "Total number of payloads skipped by parser and cause",
		}, []string{"parser", "cause"}),
		ParserCursorSlot: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "parser",
			Name:      "cursor_slot",
			Help:      "Persisted slot cursor per parser",
		}, []string{"parser"}),

		FeaturePoolsComputed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "pools_computed_total",
			Help:      "Total number of per-pool feature computations",
		}),
		FeatureRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "run_duration_seconds",
			Help:      "Feature worker run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		SignalsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "signals_emitted_total",
			Help:      "Total number of signals written",
		}),
		SignalsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "signals_suppressed_total",
			Help:      "Total number of signals suppressed by the dedup window",
		}),
		DetectorRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "rejections_total",
			Help:      "Total number of pools rejected by cause",
		}, []string{"cause"}),

		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "positions_opened_total",
			Help:      "Total number of positions opened",
		}),
		PartialExits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "partial_exits_total",
			Help:      "Total number of partial exits executed",
		}),
		FullCloses: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trading",
			Name:      "full_closes_total",
			Help:      "Total number of full closes by reason",
		}, []string{"reason"}),

		TaskRestarts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "task_restarts_total",
			Help:      "Total number of task restarts by task",
		}, []string{"task"}),
		UptimeSeconds: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "supervisor",
			Name:      "uptime_seconds_total",
			Help:      "Total uptime in seconds",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")
