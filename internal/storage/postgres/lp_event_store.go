package postgres

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// LpEventStore implements storage.LpEventStore using PostgreSQL.
type LpEventStore struct {
	pool *Pool
}

// NewLpEventStore creates a new LpEventStore.
func NewLpEventStore(pool *Pool) *LpEventStore {
	return &LpEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LpEventStore = (*LpEventStore)(nil)

// Insert appends a liquidity-pool event, ignoring replays.
func (s *LpEventStore) Insert(ctx context.Context, e *domain.LpEvent) error {
	query := `
		INSERT INTO lp_event (sig, ts, slot, pool, x_reserve, y_reserve, fee_bps, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		e.Sig, e.TS, e.Slot, e.Pool, e.XReserve, e.YReserve, e.FeeBps, e.Kind,
	)
	if err != nil {
		return fmt.Errorf("insert lp event: %w", err)
	}
	return nil
}
