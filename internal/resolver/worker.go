// Package resolver claims queued signatures and resolves them into raw
// transaction payloads by RPC.
package resolver

import (
	"context"
	"errors"
	"log"
	"time"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/solana"
	"scf-pipeline/internal/storage"
)

// DefaultIdleDelay is the sleep applied when the queue is empty.
const DefaultIdleDelay = 1 * time.Second

// Worker drains tx_queue into tx_raw one claim at a time. Claims use
// skip-locked row locks, so several workers can run side by side without
// fighting over rows.
type Worker struct {
	queue     storage.TxQueueStore
	raw       storage.TxRawStore
	rpc       solana.RPCClient
	idleDelay time.Duration
	metrics   *observability.Metrics
	logger    *log.Logger
}

// Options configures the resolver worker.
type Options struct {
	Queue     storage.TxQueueStore
	Raw       storage.TxRawStore
	RPC       solana.RPCClient
	IdleDelay time.Duration
	Metrics   *observability.Metrics
	Logger    *log.Logger
}

// NewWorker creates a new resolver worker.
func NewWorker(opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[resolver] ", log.LstdFlags)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	idle := opts.IdleDelay
	if idle <= 0 {
		idle = DefaultIdleDelay
	}
	return &Worker{
		queue:     opts.Queue,
		raw:       opts.Raw,
		rpc:       opts.RPC,
		idleDelay: idle,
		metrics:   metrics,
		logger:    logger,
	}
}

// Run claims and resolves signatures until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		claimed, err := w.queue.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				if !sleep(ctx, w.idleDelay) {
					return ctx.Err()
				}
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Printf("claim: %v", err)
			if !sleep(ctx, w.idleDelay) {
				return ctx.Err()
			}
			continue
		}

		w.resolveOne(ctx, claimed)
	}
}

// resolveOne fetches the payload for one claimed signature and settles the
// queue row either way.
func (w *Worker) resolveOne(ctx context.Context, claimed *domain.QueuedSignature) {
	start := time.Now()
	envelope, err := w.rpc.GetTransactionRaw(ctx, claimed.Signature)
	w.metrics.RPCCallLatency.WithLabelValues("getTransaction").Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		cause := "rpc_error"
		if errors.Is(err, solana.ErrTransactionNotFound) {
			cause = "not_found"
		}
		w.metrics.ResolveFailures.WithLabelValues(cause).Inc()
		if markErr := w.queue.MarkFailed(ctx, claimed.Signature, err.Error()); markErr != nil {
			w.logger.Printf("mark failed %s: %v", claimed.Signature, markErr)
		}
		return
	}

	raw := &domain.RawTransaction{
		Signature: envelope.Signature,
		Slot:      envelope.Slot,
		Payload:   envelope.Payload,
	}
	if err := w.raw.Insert(ctx, raw); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.metrics.ResolveFailures.WithLabelValues("store_error").Inc()
		if markErr := w.queue.MarkFailed(ctx, claimed.Signature, err.Error()); markErr != nil {
			w.logger.Printf("mark failed %s: %v", claimed.Signature, markErr)
		}
		return
	}

	if err := w.queue.MarkResolved(ctx, claimed.Signature); err != nil {
		w.logger.Printf("mark resolved %s: %v", claimed.Signature, err)
		return
	}
	w.metrics.SignaturesResolved.Inc()
}

// sleep waits for d or until the context is canceled. Returns false when
// canceled.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
