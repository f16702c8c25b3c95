package parser

import (
	"context"
	"log"
	"time"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// Default worker settings.
const (
	DefaultPoll  = 2 * time.Second
	DefaultBatch = 500
)

// Parser processes one raw transaction, emitting zero or more event rows.
// A nil error means the signature can be marked processed; unparseable
// payloads are "nothing to emit", not errors.
type Parser interface {
	// Name is the cursor name, e.g. "parser_swap".
	Name() string

	// Kind selects which parsed_sig flag this parser marks.
	Kind() domain.ParserKind

	// Process handles one transaction.
	Process(ctx context.Context, tx *domain.RawTransaction) error
}

// Worker drives one parser over tx_raw in strict ascending slot order,
// persisting the slot cursor after each batch.
type Worker struct {
	parser  Parser
	raw     storage.TxRawStore
	parsed  storage.ParsedSigStore
	cursors storage.CursorStore
	poll    time.Duration
	batch   int
	metrics *observability.Metrics
	logger  *log.Logger
}

// Options configures a parser worker.
type Options struct {
	Parser  Parser
	Raw     storage.TxRawStore
	Parsed  storage.ParsedSigStore
	Cursors storage.CursorStore
	Poll    time.Duration
	Batch   int
	Metrics *observability.Metrics
	Logger  *log.Logger
}

// NewWorker creates a new parser worker.
func NewWorker(opts Options) *Worker {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "["+opts.Parser.Name()+"] ", log.LstdFlags)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	poll := opts.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	batch := opts.Batch
	if batch <= 0 {
		batch = DefaultBatch
	}
	return &Worker{
		parser:  opts.Parser,
		raw:     opts.Raw,
		parsed:  opts.Parsed,
		cursors: opts.Cursors,
		poll:    poll,
		batch:   batch,
		metrics: metrics,
		logger:  logger,
	}
}

// Run polls tx_raw until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := w.runBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Printf("batch: %v", err)
		}

		if processed == 0 {
			timer := time.NewTimer(w.poll)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// runBatch processes up to one batch of rows past the cursor. The cursor
// only advances over rows that were fully handled, so a store error mid-batch
// re-processes from the failed row; unique constraints and parsed_sig flags
// absorb the replay.
func (w *Worker) runBatch(ctx context.Context) (int, error) {
	last, err := w.cursors.LastSlot(ctx, w.parser.Name())
	if err != nil {
		return 0, err
	}

	rows, err := w.raw.FetchAfterSlot(ctx, last, w.batch)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	processed := 0
	maxSlot := last
	for _, tx := range rows {
		if err := ctx.Err(); err != nil {
			break
		}

		if err := w.parser.Process(ctx, tx); err != nil {
			// Never advance past the failed row's slot; rows sharing
			// it would otherwise be skipped on the next fetch.
			w.commitCursor(ctx, min64(maxSlot, tx.Slot-1), last)
			return processed, err
		}
		if err := w.parsed.Mark(ctx, tx.Signature, w.parser.Kind()); err != nil {
			w.commitCursor(ctx, min64(maxSlot, tx.Slot-1), last)
			return processed, err
		}

		if tx.Slot > maxSlot {
			maxSlot = tx.Slot
		}
		processed++
	}

	w.commitCursor(ctx, maxSlot, last)
	return processed, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func (w *Worker) commitCursor(ctx context.Context, slot, prev int64) {
	if slot <= prev {
		return
	}
	if err := w.cursors.SetLastSlot(ctx, w.parser.Name(), slot); err != nil {
		w.logger.Printf("persist cursor: %v", err)
		return
	}
	w.metrics.ParserCursorSlot.WithLabelValues(w.parser.Name()).Set(float64(slot))
}
