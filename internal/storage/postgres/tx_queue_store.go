package postgres

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// TxQueueStore implements storage.TxQueueStore using PostgreSQL.
type TxQueueStore struct {
	pool *Pool
}

// NewTxQueueStore creates a new TxQueueStore.
func NewTxQueueStore(pool *Pool) *TxQueueStore {
	return &TxQueueStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TxQueueStore = (*TxQueueStore)(nil)

// Enqueue inserts a signature with status=queued, ignoring duplicates.
func (s *TxQueueStore) Enqueue(ctx context.Context, sig string, programID *string, slot int64) error {
	query := `
		INSERT INTO tx_queue (signature, program_id, slot, status)
		VALUES ($1, $2, $3, 'queued')
		ON CONFLICT (signature) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, sig, programID, slot); err != nil {
		return fmt.Errorf("enqueue signature: %w", err)
	}
	return nil
}

// ClaimNext claims the oldest queued signature. The CTE selects under
// FOR UPDATE SKIP LOCKED so concurrent resolvers never contend on a row.
func (s *TxQueueStore) ClaimNext(ctx context.Context) (*domain.QueuedSignature, error) {
	query := `
		WITH picked AS (
			SELECT signature
			FROM tx_queue
			WHERE status = 'queued'
			ORDER BY enqueued_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE tx_queue q
		SET status = 'resolving'
		FROM picked p
		WHERE q.signature = p.signature
		RETURNING q.signature, q.program_id, q.slot, q.status, q.retries, q.last_error, q.enqueued_at
	`

	var row domain.QueuedSignature
	err := s.pool.QueryRow(ctx, query).Scan(
		&row.Signature,
		&row.ProgramID,
		&row.Slot,
		&row.Status,
		&row.Retries,
		&row.LastError,
		&row.EnqueuedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("claim next signature: %w", err)
	}
	return &row, nil
}

// MarkResolved transitions a claimed signature to resolved.
func (s *TxQueueStore) MarkResolved(ctx context.Context, sig string) error {
	query := `UPDATE tx_queue SET status = 'resolved' WHERE signature = $1`

	if _, err := s.pool.Exec(ctx, query, sig); err != nil {
		return fmt.Errorf("mark signature resolved: %w", err)
	}
	return nil
}

// MarkFailed returns a signature to queued or, at the retry budget, parks it
// in the error state with the truncated cause.
func (s *TxQueueStore) MarkFailed(ctx context.Context, sig string, cause string) error {
	query := `
		UPDATE tx_queue
		SET status = CASE WHEN retries >= $3 THEN 'error' ELSE 'queued' END,
		    retries = retries + 1,
		    last_error = left($2, 255)
		WHERE signature = $1
	`

	if _, err := s.pool.Exec(ctx, query, sig, cause, domain.MaxResolveRetries); err != nil {
		return fmt.Errorf("mark signature failed: %w", err)
	}
	return nil
}
