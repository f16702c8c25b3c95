package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// InsertDeduped appends a signal unless one with the same (pool, signal_type)
// exists inside the dedup window. Guard and insert are one statement, so two
// detectors racing on the same snapshot still produce a single row.
func (s *SignalStore) InsertDeduped(ctx context.Context, pool, signalType, reason string, snapshot json.RawMessage, window time.Duration) (bool, error) {
	query := `
		INSERT INTO detector_signal (pool, signal_type, reason, feature_snapshot)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1 FROM detector_signal ds
			WHERE ds.pool = $1
			  AND ds.signal_type = $2
			  AND ds.created_at >= NOW() - make_interval(secs => $5)
		)
	`

	tag, err := s.pool.Exec(ctx, query, pool, signalType, reason, snapshot, window.Seconds())
	if err != nil {
		return false, fmt.Errorf("insert detector signal: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Recent returns signals created within the window, oldest first.
func (s *SignalStore) Recent(ctx context.Context, window time.Duration, limit int) ([]*domain.DetectorSignal, error) {
	query := `
		SELECT id, pool, signal_type, COALESCE(reason, ''), feature_snapshot, created_at
		FROM detector_signal
		WHERE created_at > NOW() - make_interval(secs => $1)
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, window.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("select recent signals: %w", err)
	}
	defer rows.Close()

	var signals []*domain.DetectorSignal
	for rows.Next() {
		var sig domain.DetectorSignal
		err := rows.Scan(&sig.ID, &sig.Pool, &sig.SignalType, &sig.Reason, &sig.FeatureSnapshot, &sig.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, &sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}

	return signals, nil
}
