package exitengine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// Default worker settings.
const (
	DefaultPoll   = 5 * time.Second
	DefaultTPMult = 2.0
	DefaultSLMult = 0.30
)

// Worker drives the exit state machine for every open position. It must run
// as a singleton; partial-exit transitions are not safe against concurrent
// writers of the same position.
type Worker struct {
	positions storage.PositionStore
	swaps     storage.SwapEventStore
	poll      time.Duration
	tpMult    float64
	slMult    float64
	tpLevels  []PartialLevel
	slLevels  []PartialLevel
	metrics   *observability.Metrics
	logger    *log.Logger
}

// Options configures the exit worker. TPPartials and SLPartials use the
// "level:ratio,level:ratio" format.
type Options struct {
	Positions  storage.PositionStore
	Swaps      storage.SwapEventStore
	Poll       time.Duration
	TPMult     float64
	SLMult     float64
	TPPartials string
	SLPartials string
	Metrics    *observability.Metrics
	Logger     *log.Logger
}

// NewWorker creates a new exit worker.
func NewWorker(opts Options) (*Worker, error) {
	tpLevels, err := ParsePartials(opts.TPPartials)
	if err != nil {
		return nil, fmt.Errorf("TP partials: %w", err)
	}
	slLevels, err := ParsePartials(opts.SLPartials)
	if err != nil {
		return nil, fmt.Errorf("SL partials: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[exit] ", log.LstdFlags)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	tpMult := opts.TPMult
	if tpMult <= 0 {
		tpMult = DefaultTPMult
	}
	slMult := opts.SLMult
	if slMult <= 0 {
		slMult = DefaultSLMult
	}

	return &Worker{
		positions: opts.Positions,
		swaps:     opts.Swaps,
		poll:      poll,
		tpMult:    tpMult,
		slMult:    slMult,
		tpLevels:  tpLevels,
		slLevels:  slLevels,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// Run polls until the context is canceled. An invariant violation aborts
// the worker; the supervisor restarts it with backoff.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if err := w.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, storage.ErrInvariantViolation) {
				return err
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

// runOnce evaluates every open position against its latest price.
func (w *Worker) runOnce(ctx context.Context) error {
	positions, err := w.positions.OpenPositions(ctx)
	if err != nil {
		return err
	}

	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := w.evaluate(ctx, pos); err != nil {
			if errors.Is(err, storage.ErrInvariantViolation) {
				return err
			}
			w.logger.Printf("position %s: %v", pos.ID, err)
		}
	}
	return nil
}

// evaluate runs one tick of the state machine for one position: partials
// for newly crossed levels first, then the full close when no partial fired
// this tick.
func (w *Worker) evaluate(ctx context.Context, pos *domain.Position) error {
	price, err := w.swaps.LatestPrice(ctx, pos.Pool)
	if err != nil {
		return err
	}
	if price == nil || *price <= 0 {
		return nil
	}
	px := *price

	if pos.EntryPx <= 0 {
		return nil
	}

	fired, err := w.applyPartials(ctx, pos, px)
	if err != nil || fired {
		return err
	}

	return w.applyFullClose(ctx, pos, px)
}

// applyPartials executes every untagged level the price has crossed, TP list
// then SL list, each in ascending level order. Both lists share one crossing
// test: a level is crossed once px/entry reaches it. Reports whether any
// partial fired.
func (w *Worker) applyPartials(ctx context.Context, pos *domain.Position, px float64) (bool, error) {
	ratio := px / pos.EntryPx
	fired := false

	for _, lvl := range w.tpLevels {
		if ratio < lvl.Level {
			break
		}
		ok, err := w.applyPartial(ctx, pos, lvl, domain.PartialTP, px)
		if err != nil {
			return fired, err
		}
		fired = fired || ok
	}

	for _, lvl := range w.slLevels {
		if ratio < lvl.Level {
			break
		}
		ok, err := w.applyPartial(ctx, pos, lvl, domain.PartialSL, px)
		if err != nil {
			return fired, err
		}
		fired = fired || ok
	}

	return fired, nil
}

func (w *Worker) applyPartial(ctx context.Context, pos *domain.Position, lvl PartialLevel, side domain.PartialSide, px float64) (bool, error) {
	tag := lvl.Tag(side)
	if pos.Meta.HasPartial(tag) {
		return false, nil
	}
	if pos.Size <= 0 {
		return false, nil
	}

	qty := pos.Size * lvl.Ratio
	meta := map[string]interface{}{
		"level": lvl.Level,
		"ratio": lvl.Ratio,
		"px":    px,
	}

	if err := w.positions.ApplyPartial(ctx, pos.ID, tag, px, qty, meta); err != nil {
		return false, err
	}

	pos.Size -= qty
	pos.Meta.MarkPartial(tag)
	w.metrics.PartialExits.Inc()
	w.logger.Printf("partial %s pos=%s px=%g qty=%g", tag, pos.ID, px, qty)
	return true, nil
}

// applyFullClose closes the position when the price has crossed tp_px or
// sl_px.
func (w *Worker) applyFullClose(ctx context.Context, pos *domain.Position, px float64) error {
	tpPx := pos.EntryPx * w.tpMult
	slPx := pos.EntryPx * w.slMult

	var reason string
	meta := map[string]interface{}{
		"entry_px": pos.EntryPx,
		"exit_px":  px,
	}
	switch {
	case px >= tpPx:
		reason = domain.ExitTPHit
		meta["tp_mult"] = w.tpMult
	case px <= slPx:
		reason = domain.ExitSLHit
		meta["sl_mult"] = w.slMult
	default:
		return nil
	}

	if err := w.positions.CloseFull(ctx, pos.ID, px, reason, meta); err != nil {
		return err
	}

	pos.State = domain.PositionClosed
	w.metrics.FullCloses.WithLabelValues(reason).Inc()
	w.logger.Printf("closed pos=%s reason=%s px=%g", pos.ID, reason, px)
	return nil
}
