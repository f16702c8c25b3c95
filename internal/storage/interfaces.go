package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"scf-pipeline/internal/domain"
)

// TxQueueStore provides access to tx_queue, the ingest-side signature queue.
type TxQueueStore interface {
	// Enqueue inserts a signature with status=queued. Conflicts on an
	// existing signature are ignored; the insert is idempotent.
	Enqueue(ctx context.Context, sig string, programID *string, slot int64) error

	// ClaimNext atomically claims the oldest queued signature, moving it
	// to resolving under a row lock that skips locked rows. Returns
	// ErrNotFound when the queue is empty.
	ClaimNext(ctx context.Context) (*domain.QueuedSignature, error)

	// MarkResolved transitions a claimed signature to resolved.
	MarkResolved(ctx context.Context, sig string) error

	// MarkFailed increments retries and returns the row to queued, or
	// moves it to error once retries reach the budget. The error message
	// is truncated to 255 characters.
	MarkFailed(ctx context.Context, sig string, cause string) error
}

// TxRawStore provides access to tx_raw, the resolved payload table.
type TxRawStore interface {
	// Insert persists a resolved payload. Conflicts on signature are
	// ignored.
	Insert(ctx context.Context, tx *domain.RawTransaction) error

	// FetchAfterSlot returns up to limit rows with slot > after, in
	// ascending slot order.
	FetchAfterSlot(ctx context.Context, after int64, limit int) ([]*domain.RawTransaction, error)
}

// ParsedSigStore tracks the per-parser watermark flags of parsed_sig.
type ParsedSigStore interface {
	// Mark upserts the flag for one parser on a signature.
	Mark(ctx context.Context, sig string, kind domain.ParserKind) error

	// Get returns the watermark row, or ErrNotFound.
	Get(ctx context.Context, sig string) (*domain.ParsedSignature, error)
}

// SwapEventStore provides access to swap_event.
type SwapEventStore interface {
	// Insert appends one swap event. Conflicts are ignored so parser
	// replays do not duplicate rows.
	Insert(ctx context.Context, e *domain.SwapEvent) error

	// LatestPrice returns the most recent price for a pool, or nil when
	// the pool has no priced swaps yet.
	LatestPrice(ctx context.Context, pool string) (*float64, error)

	// ActivePools lists distinct pools with swaps newer than the window.
	ActivePools(ctx context.Context, window time.Duration) ([]string, error)

	// Series returns a pool's swaps newer than the window in ascending
	// time order.
	Series(ctx context.Context, pool string, window time.Duration) ([]*domain.SwapEvent, error)
}

// LpEventStore provides access to lp_event.
type LpEventStore interface {
	Insert(ctx context.Context, e *domain.LpEvent) error
}

// AuthorityEventStore provides access to authority_event.
type AuthorityEventStore interface {
	Insert(ctx context.Context, e *domain.AuthorityEvent) error
}

// CursorStore persists per-parser slot cursors in cursor_state.
type CursorStore interface {
	// LastSlot returns the persisted cursor, or 0 when none exists.
	LastSlot(ctx context.Context, name string) (int64, error)

	// SetLastSlot upserts the cursor value.
	SetLastSlot(ctx context.Context, name string, slot int64) error
}

// FeatureStore provides access to features_latest and the detector cursor.
type FeatureStore interface {
	// Upsert writes the latest snapshot for a pool, replacing any
	// previous row.
	Upsert(ctx context.Context, s *domain.FeatureSnapshot) error

	// LatestRows returns up to limit rows ordered by ts descending, as
	// dynamic column maps including columns this worker does not write.
	LatestRows(ctx context.Context, limit int) ([]domain.FeatureRow, error)

	// TouchDetectorCursor upserts the detector heartbeat.
	TouchDetectorCursor(ctx context.Context) error
}

// SignalStore provides access to detector_signal.
type SignalStore interface {
	// InsertDeduped appends a signal unless one with the same
	// (pool, signal_type) was created within the dedup window. The guard
	// and the insert are a single statement. Returns true when a row was
	// written.
	InsertDeduped(ctx context.Context, pool, signalType, reason string, snapshot json.RawMessage, window time.Duration) (bool, error)

	// Recent returns signals created within the window, ascending by
	// created_at, up to limit rows.
	Recent(ctx context.Context, window time.Duration, limit int) ([]*domain.DetectorSignal, error)
}

// PositionStore provides access to position, fill, and exit_event.
type PositionStore interface {
	// ExistsForSignal reports whether any position references the signal
	// id in its meta.
	ExistsForSignal(ctx context.Context, signalID string) (bool, error)

	// Open inserts the position and its entry fill in one transaction.
	Open(ctx context.Context, p *domain.Position, entry *domain.Fill) error

	// OpenPositions returns all positions in state OPEN.
	OpenPositions(ctx context.Context) ([]*domain.Position, error)

	// ApplyPartial executes one partial exit atomically: SELL fill,
	// size decrement, meta tag merge, and exit event. Returns
	// ErrInvariantViolation if the decrement would leave a negative size.
	ApplyPartial(ctx context.Context, posID uuid.UUID, tag domain.PartialTag, px, qty float64, meta map[string]interface{}) error

	// CloseFull closes the position at px for its full remaining size:
	// SELL fill, state transition to CLOSED, and exit event, atomically.
	CloseFull(ctx context.Context, posID uuid.UUID, px float64, reason string, meta map[string]interface{}) error
}

// FeatureArchive is an optional append-only sink for computed snapshots.
type FeatureArchive interface {
	Append(ctx context.Context, s *domain.FeatureSnapshot) error
}

// HealthStore reads aggregate pipeline progress for the health monitor and
// the diag command.
type HealthStore interface {
	// Snapshot returns per-table row counts and parser output freshness.
	Snapshot(ctx context.Context) (*domain.HealthSnapshot, error)

	// Tables lists the public tables present in the database.
	Tables(ctx context.Context) ([]string, error)
}
