package postgres

import (
	"context"
	"fmt"
	"time"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// SwapEventStore implements storage.SwapEventStore using PostgreSQL.
type SwapEventStore struct {
	pool *Pool
}

// NewSwapEventStore creates a new SwapEventStore.
func NewSwapEventStore(pool *Pool) *SwapEventStore {
	return &SwapEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapEventStore = (*SwapEventStore)(nil)

// Insert appends a swap event. Replays hit the unique constraint and are
// silently ignored.
func (s *SwapEventStore) Insert(ctx context.Context, e *domain.SwapEvent) error {
	query := `
		INSERT INTO swap_event (ts, sig, slot, pool, token, side, price, base_amt, quote_amt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
	`

	_, err := s.pool.Exec(ctx, query,
		e.TS, e.Sig, e.Slot, e.Pool, e.Token, e.Side, e.Price, e.BaseAmt, e.QuoteAmt,
	)
	if err != nil {
		return fmt.Errorf("insert swap event: %w", err)
	}
	return nil
}

// LatestPrice returns the most recent price for a pool, nil when the pool has
// no swaps yet.
func (s *SwapEventStore) LatestPrice(ctx context.Context, pool string) (*float64, error) {
	query := `
		SELECT price
		FROM swap_event
		WHERE pool = $1
		ORDER BY ts DESC
		LIMIT 1
	`

	var price float64
	err := s.pool.QueryRow(ctx, query, pool).Scan(&price)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest price: %w", err)
	}
	return &price, nil
}

// ActivePools lists distinct pools with swap activity inside the window.
func (s *SwapEventStore) ActivePools(ctx context.Context, window time.Duration) ([]string, error) {
	query := `
		SELECT DISTINCT pool
		FROM swap_event
		WHERE ts > NOW() - make_interval(secs => $1)
	`

	rows, err := s.pool.Query(ctx, query, window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("active pools: %w", err)
	}
	defer rows.Close()

	var pools []string
	for rows.Next() {
		var pool string
		if err := rows.Scan(&pool); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, pool)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}

	return pools, nil
}

// Series returns a pool's swaps inside the window in ascending time order.
func (s *SwapEventStore) Series(ctx context.Context, pool string, window time.Duration) ([]*domain.SwapEvent, error) {
	query := `
		SELECT ts, sig, slot, pool, token, side, price, base_amt, quote_amt
		FROM swap_event
		WHERE pool = $1 AND ts > NOW() - make_interval(secs => $2)
		ORDER BY ts ASC
	`

	rows, err := s.pool.Query(ctx, query, pool, window.Seconds())
	if err != nil {
		return nil, fmt.Errorf("swap series: %w", err)
	}
	defer rows.Close()

	var events []*domain.SwapEvent
	for rows.Next() {
		var e domain.SwapEvent
		err := rows.Scan(&e.TS, &e.Sig, &e.Slot, &e.Pool, &e.Token, &e.Side, &e.Price, &e.BaseAmt, &e.QuoteAmt)
		if err != nil {
			return nil, fmt.Errorf("scan swap event row: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap event rows: %w", err)
	}

	return events, nil
}
