package postgres

import (
	"context"
	"fmt"
	"time"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// healthTables is the fixed set of stage tables the monitor counts.
var healthTables = []string{
	"tx_queue",
	"tx_raw",
	"swap_event",
	"lp_event",
	"authority_event",
	"features_latest",
	"detector_signal",
	"position",
	"fill",
	"exit_event",
}

// HealthStore implements storage.HealthStore using PostgreSQL.
type HealthStore struct {
	pool *Pool
}

// NewHealthStore creates a new HealthStore.
func NewHealthStore(pool *Pool) *HealthStore {
	return &HealthStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HealthStore = (*HealthStore)(nil)

// Snapshot counts every stage table and reads the newest swap and LP event
// timestamps. Counts run one query per table; the tables are small enough
// that exact counts stay cheap.
func (s *HealthStore) Snapshot(ctx context.Context) (*domain.HealthSnapshot, error) {
	snap := &domain.HealthSnapshot{
		Counts: make(map[string]int64, len(healthTables)),
	}

	for _, table := range healthTables {
		// Table names come from the fixed list above, never from input.
		query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table)

		var n int64
		if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		snap.Counts[table] = n
	}

	var swapTS, lpTS *time.Time
	freshness := `
		SELECT (SELECT MAX(ts) FROM swap_event),
		       (SELECT MAX(ts) FROM lp_event)
	`
	if err := s.pool.QueryRow(ctx, freshness).Scan(&swapTS, &lpTS); err != nil {
		return nil, fmt.Errorf("read event freshness: %w", err)
	}
	snap.LastSwapTS = swapTS
	snap.LastLpTS = lpTS

	return snap, nil
}

// Tables lists the public schema's tables in name order.
func (s *HealthStore) Tables(ctx context.Context) ([]string, error) {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		tables = append(tables, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table names: %w", err)
	}

	return tables, nil
}
