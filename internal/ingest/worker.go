// Package ingest subscribes to program log notifications and enqueues
// observed transaction signatures.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"

	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/solana"
	"scf-pipeline/internal/storage"
)

// StreamFactory opens one log stream for a program ID. Split out so tests
// can substitute an in-memory source.
type StreamFactory func(ctx context.Context, program string) (solana.LogSource, error)

// Worker maintains one subscription per configured program and writes every
// observed signature into tx_queue. The database absorbs bursts; nothing is
// buffered in memory beyond the stream channels.
type Worker struct {
	programs   []string
	commitment string
	newStream  StreamFactory
	queue      storage.TxQueueStore
	metrics    *observability.Metrics
	logger     *log.Logger
}

// Options configures the ingest worker.
type Options struct {
	Programs   []string
	Commitment string
	NewStream  StreamFactory
	Queue      storage.TxQueueStore
	Metrics    *observability.Metrics
	Logger     *log.Logger
}

// NewWorker creates a new ingest worker.
func NewWorker(opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &Worker{
		programs:   opts.Programs,
		commitment: opts.Commitment,
		newStream:  opts.NewStream,
		queue:      opts.Queue,
		metrics:    metrics,
		logger:     logger,
	}
}

// NewWSStreamFactory returns a StreamFactory dialing the given WebSocket
// endpoint with the configured commitment.
func NewWSStreamFactory(endpoint, commitment string, logger *log.Logger) StreamFactory {
	return func(ctx context.Context, program string) (solana.LogSource, error) {
		return solana.NewLogStream(ctx, endpoint, solana.LogsFilter{
			Mention:    program,
			Commitment: commitment,
		}, nil, logger)
	}
}

// Run opens all streams and consumes them until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if len(w.programs) == 0 {
		return fmt.Errorf("no programs configured")
	}

	streams := make([]solana.LogSource, 0, len(w.programs))
	for _, program := range w.programs {
		stream, err := w.newStream(ctx, program)
		if err != nil {
			for _, s := range streams {
				s.Close()
			}
			return fmt.Errorf("open log stream for %s: %w", program, err)
		}
		streams = append(streams, stream)
		w.logger.Printf("subscribed to %s", program)
	}

	var wg sync.WaitGroup
	for i, stream := range streams {
		wg.Add(1)
		go func(program string, src solana.LogSource) {
			defer wg.Done()
			w.consume(ctx, program, src)
		}(w.programs[i], stream)
	}

	<-ctx.Done()
	for _, stream := range streams {
		stream.Close()
	}
	wg.Wait()
	return ctx.Err()
}

// consume drains one stream into tx_queue.
func (w *Worker) consume(ctx context.Context, program string, src solana.LogSource) {
	for {
		select {
		case <-ctx.Done():
			return
		case notif, ok := <-src.Notifications():
			if !ok {
				return
			}
			w.handle(ctx, program, notif)
		}
	}
}

func (w *Worker) handle(ctx context.Context, program string, notif solana.LogNotification) {
	if notif.Signature == "" {
		return
	}

	w.metrics.LogsReceived.WithLabelValues(program).Inc()
	if notif.Slot > 0 {
		w.metrics.HighestSlotSeen.Set(float64(notif.Slot))
	}

	prog := notif.Program
	var progPtr *string
	if prog != "" {
		progPtr = &prog
	}

	if err := w.queue.Enqueue(ctx, notif.Signature, progPtr, notif.Slot); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Printf("enqueue %s: %v", notif.Signature, err)
		return
	}
	w.metrics.SignaturesEnqueued.Inc()
}
