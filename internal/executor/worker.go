package executor

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// Default worker settings.
const (
	DefaultPoll   = 2 * time.Second
	DefaultWindow = 10 * time.Minute
	DefaultBatch  = 200
)

// Worker polls recent signals and opens at most one position per signal.
// Only one executor instance runs per signal domain; the exists-then-open
// dedup is race-free under that assumption.
type Worker struct {
	signals   storage.SignalStore
	positions storage.PositionStore
	strategy  Strategy
	poll      time.Duration
	window    time.Duration
	batch     int
	metrics   *observability.Metrics
	logger    *log.Logger
}

// Options configures the executor worker.
type Options struct {
	Signals   storage.SignalStore
	Positions storage.PositionStore
	Strategy  Strategy
	Poll      time.Duration
	Window    time.Duration
	Batch     int
	Metrics   *observability.Metrics
	Logger    *log.Logger
}

// NewWorker creates a new executor worker.
func NewWorker(opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[executor] ", log.LstdFlags)
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
	batch := opts.Batch
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Worker{
		signals:   opts.Signals,
		positions: opts.Positions,
		strategy:  opts.Strategy,
		poll:      poll,
		window:    window,
		batch:     batch,
		metrics:   metrics,
		logger:    logger,
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

// runOnce opens positions for unseen signals in the window, oldest first.
func (w *Worker) runOnce(ctx context.Context) error {
	signals, err := w.signals.Recent(ctx, w.window, w.batch)
	if err != nil {
		return err
	}

	for _, sig := range signals {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.execute(ctx, sig); err != nil {
			w.logger.Printf("signal %d: %v", sig.ID, err)
		}
	}
	return nil
}

// execute opens one position for one signal unless one already exists.
func (w *Worker) execute(ctx context.Context, sig *domain.DetectorSignal) error {
	signalID := strconv.FormatInt(sig.ID, 10)

	exists, err := w.positions.ExistsForSignal(ctx, signalID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	plan, err := w.strategy.Plan(ctx, sig)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	pos := &domain.Position{
		ID:          uuid.New(),
		OpenedAt:    now,
		Pool:        sig.Pool,
		Token:       sig.Pool,
		Size:        plan.Size,
		EntryPx:     plan.EntryPx,
		SlippageBps: plan.SlippageBps,
		State:       domain.PositionOpen,
		Status:      "open",
		SignalType:  sig.SignalType,
		Reason:      sig.Reason,
		EntryPrice:  plan.EntryPx,
		Meta: domain.PositionMeta{
			SignalID: signalID,
			Source:   "detector_signal",
			Mode:     w.strategy.Mode(),
		},
	}
	entry := &domain.Fill{
		TS:    now,
		PosID: pos.ID,
		Side:  domain.FillEntry,
		Px:    plan.EntryPx,
		Qty:   plan.Size,
		Tx:    plan.Tx,
	}

	if err := w.positions.Open(ctx, pos, entry); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil
		}
		return err
	}

	w.metrics.PositionsOpened.Inc()
	w.logger.Printf("opened position %s pool=%s signal=%s mode=%s", pos.ID, pos.Pool, signalID, w.strategy.Mode())
	return nil
}
