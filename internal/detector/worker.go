package detector

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// Default worker settings.
const (
	DefaultPoll     = 2 * time.Second
	DefaultDedup    = 300 * time.Second
	DefaultRowLimit = 1000
)

// Worker polls features_latest, applies the rule to every pool, and writes
// deduplicated signals. One instance per signal domain is assumed; the
// guarded insert keeps duplicates out even if more run.
type Worker struct {
	feats      storage.FeatureStore
	signals    storage.SignalStore
	thresholds Thresholds
	poll       time.Duration
	dedup      time.Duration
	rowLimit   int
	metrics    *observability.Metrics
	logger     *log.Logger
}

// Options configures the detector worker.
type Options struct {
	Feats      storage.FeatureStore
	Signals    storage.SignalStore
	Thresholds Thresholds
	Poll       time.Duration
	Dedup      time.Duration
	RowLimit   int
	Metrics    *observability.Metrics
	Logger     *log.Logger
}

// NewWorker creates a new detector worker.
func NewWorker(opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[detector] ", log.LstdFlags)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	dedup := opts.Dedup
	if dedup <= 0 {
		dedup = DefaultDedup
	}
	rowLimit := opts.RowLimit
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	th := opts.Thresholds
	if th == (Thresholds{}) {
		th = DefaultThresholds()
	}
	return &Worker{
		feats:      opts.Feats,
		signals:    opts.Signals,
		thresholds: th,
		poll:       poll,
		dedup:      dedup,
		rowLimit:   rowLimit,
		metrics:    metrics,
		logger:     logger,
	}
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if err := w.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Printf("poll: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runOnce evaluates one sweep over the latest feature rows and touches the
// heartbeat afterwards.
func (w *Worker) runOnce(ctx context.Context) error {
	rows, err := w.feats.LatestRows(ctx, w.rowLimit)
	if err != nil {
		return err
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}

		pool := row.Pool()
		if pool == "" {
			continue
		}

		result := EvaluateRow(row, w.thresholds)
		if !result.Pass {
			w.metrics.DetectorRejections.WithLabelValues(rejectionCause(result.Reason)).Inc()
			continue
		}

		snapshot, err := json.Marshal(row)
		if err != nil {
			w.logger.Printf("encode snapshot for %s: %v", pool, err)
			continue
		}

		inserted, err := w.signals.InsertDeduped(ctx, pool, domain.SignalTypeLong, result.Reason, snapshot, w.dedup)
		if err != nil {
			w.logger.Printf("insert signal for %s: %v", pool, err)
			continue
		}
		if inserted {
			w.metrics.SignalsEmitted.Inc()
			w.logger.Printf("signal pool=%s reason=%s", pool, result.Reason)
		} else {
			w.metrics.SignalsSuppressed.Inc()
		}
	}

	return w.feats.TouchDetectorCursor(ctx)
}
