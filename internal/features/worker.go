package features

import (
	"context"
	"log"
	"time"

	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// Default worker settings.
const (
	DefaultPoll       = 10 * time.Second
	DefaultWindow     = 36 * time.Hour
	activePoolsWindow = 24 * time.Hour
)

// Worker recomputes features_latest on a fixed interval. Pools with too few
// swaps are skipped and keep their previous snapshot.
type Worker struct {
	swaps   storage.SwapEventStore
	feats   storage.FeatureStore
	archive storage.FeatureArchive // optional
	poll    time.Duration
	window  time.Duration
	metrics *observability.Metrics
	logger  *log.Logger
}

// Options configures the feature worker.
type Options struct {
	Swaps   storage.SwapEventStore
	Feats   storage.FeatureStore
	Archive storage.FeatureArchive
	Poll    time.Duration
	Window  time.Duration
	Metrics *observability.Metrics
	Logger  *log.Logger
}

// NewWorker creates a new feature worker.
func NewWorker(opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[features] ", log.LstdFlags)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	window := opts.Window
	if window <= 0 {
		window = DefaultWindow
	}
	return &Worker{
		swaps:   opts.Swaps,
		feats:   opts.Feats,
		archive: opts.Archive,
		poll:    poll,
		window:  window,
		metrics: metrics,
		logger:  logger,
	}
}

// Run recomputes features until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if err := w.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Printf("run: %v", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runOnce recomputes every active pool. Per-pool failures are logged and do
// not stop the sweep.
func (w *Worker) runOnce(ctx context.Context) error {
	start := time.Now()
	defer func() {
		w.metrics.FeatureRunDuration.Observe(time.Since(start).Seconds())
	}()

	pools, err := w.swaps.ActivePools(ctx, activePoolsWindow)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, pool := range pools {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.computePool(ctx, pool, now); err != nil {
			w.logger.Printf("pool %s: %v", pool, err)
		}
	}
	return nil
}

func (w *Worker) computePool(ctx context.Context, pool string, now time.Time) error {
	events, err := w.swaps.Series(ctx, pool, w.window)
	if err != nil {
		return err
	}

	snap := Compute(pool, events, now)
	if snap == nil {
		return nil
	}

	if err := w.feats.Upsert(ctx, snap); err != nil {
		return err
	}
	w.metrics.FeaturePoolsComputed.Inc()

	if w.archive != nil {
		// Archive writes are best-effort; the Postgres snapshot is the
		// source of truth.
		if err := w.archive.Append(ctx, snap); err != nil {
			w.logger.Printf("archive %s: %v", pool, err)
		}
	}
	return nil
}
