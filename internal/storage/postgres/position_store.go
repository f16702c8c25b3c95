package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL. All
// multi-row mutations (open, partial exit, full close) run in a single
// transaction; a crash can never leave a fill without its matching size and
// meta updates.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

// ExistsForSignal reports whether any position already references the signal.
func (s *PositionStore) ExistsForSignal(ctx context.Context, signalID string) (bool, error) {
	query := `SELECT 1 FROM position WHERE (meta->>'signal_id') = $1 LIMIT 1`

	var one int
	err := s.pool.QueryRow(ctx, query, signalID).Scan(&one)
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("check position for signal: %w", err)
	}
	return true, nil
}

// Open inserts the position and its entry fill atomically.
func (s *PositionStore) Open(ctx context.Context, p *domain.Position, entry *domain.Fill) error {
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("encode position meta: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	insertPosition := `
		INSERT INTO position (
			id, opened_at, pool, token, size, entry_px, slippage_bps,
			state, status, signal_type, reason, entry_price, meta
		) VALUES ($1, NOW(), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.Exec(ctx, insertPosition,
		p.ID, p.Pool, p.Token, p.Size, p.EntryPx, p.SlippageBps,
		p.State, p.Status, p.SignalType, p.Reason, p.EntryPrice, meta,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert position: %w", err)
	}

	insertFill := `
		INSERT INTO fill (ts, pos_id, side, px, qty, tx)
		VALUES (NOW(), $1, $2, $3, $4, $5)
	`

	if _, err := tx.Exec(ctx, insertFill, p.ID, entry.Side, entry.Px, entry.Qty, entry.Tx); err != nil {
		return fmt.Errorf("insert entry fill: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit open position: %w", err)
	}
	return nil
}

// OpenPositions returns every position in state OPEN.
func (s *PositionStore) OpenPositions(ctx context.Context) ([]*domain.Position, error) {
	query := `
		SELECT id, opened_at, pool, token, size, entry_px, slippage_bps,
		       state, status, COALESCE(signal_type, ''), COALESCE(reason, ''),
		       COALESCE(entry_price, 0), COALESCE(meta, '{}'::jsonb)
		FROM position
		WHERE state = 'OPEN'
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select open positions: %w", err)
	}
	defer rows.Close()

	var positions []*domain.Position
	for rows.Next() {
		var p domain.Position
		var meta []byte
		err := rows.Scan(
			&p.ID, &p.OpenedAt, &p.Pool, &p.Token, &p.Size, &p.EntryPx, &p.SlippageBps,
			&p.State, &p.Status, &p.SignalType, &p.Reason, &p.EntryPrice, &meta,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		if err := json.Unmarshal(meta, &p.Meta); err != nil {
			return nil, fmt.Errorf("decode position meta: %w", err)
		}
		positions = append(positions, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}

// ApplyPartial executes one partial exit in a single transaction: SELL fill,
// size decrement, meta tag merge, exit event. The decrement is rejected with
// ErrInvariantViolation if it would drive the remaining size negative.
func (s *PositionStore) ApplyPartial(ctx context.Context, posID uuid.UUID, tag domain.PartialTag, px, qty float64, meta map[string]interface{}) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var remaining float64
	decrement := `
		UPDATE position
		SET size = size - $2
		WHERE id = $1 AND state = 'OPEN'
		RETURNING size
	`
	if err := tx.QueryRow(ctx, decrement, posID, qty).Scan(&remaining); err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("decrement position size: %w", err)
	}
	if remaining < 0 {
		return fmt.Errorf("position %s size %f after partial of %f: %w",
			posID, remaining, qty, storage.ErrInvariantViolation)
	}

	insertFill := `
		INSERT INTO fill (ts, pos_id, side, px, qty, tx)
		VALUES (NOW(), $1, $2, $3, $4, NULL)
	`
	if _, err := tx.Exec(ctx, insertFill, posID, domain.FillSell, px, qty); err != nil {
		return fmt.Errorf("insert partial fill: %w", err)
	}

	tagPatch, err := json.Marshal(map[string]bool{tag.String(): true})
	if err != nil {
		return fmt.Errorf("encode partial tag: %w", err)
	}
	mergeMeta := `
		UPDATE position
		SET meta = COALESCE(meta, '{}'::jsonb) || $2::jsonb
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, mergeMeta, posID, tagPatch); err != nil {
		return fmt.Errorf("merge partial tag: %w", err)
	}

	if err := insertExitEvent(ctx, tx, posID, tag.ExitReason(), meta); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit partial exit: %w", err)
	}
	return nil
}

// CloseFull sells the full remaining size at px and moves the position to
// CLOSED, atomically with the exit event.
func (s *PositionStore) CloseFull(ctx context.Context, posID uuid.UUID, px float64, reason string, meta map[string]interface{}) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var qty float64
	lockSize := `SELECT size FROM position WHERE id = $1 AND state = 'OPEN' FOR UPDATE`
	if err := tx.QueryRow(ctx, lockSize, posID).Scan(&qty); err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("lock position size: %w", err)
	}

	insertFill := `
		INSERT INTO fill (ts, pos_id, side, px, qty, tx)
		VALUES (NOW(), $1, $2, $3, $4, NULL)
	`
	if _, err := tx.Exec(ctx, insertFill, posID, domain.FillSell, px, qty); err != nil {
		return fmt.Errorf("insert close fill: %w", err)
	}

	closePosition := `UPDATE position SET state = 'CLOSED' WHERE id = $1`
	if _, err := tx.Exec(ctx, closePosition, posID); err != nil {
		return fmt.Errorf("close position: %w", err)
	}

	if err := insertExitEvent(ctx, tx, posID, reason, meta); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit full close: %w", err)
	}
	return nil
}

// insertExitEvent appends one exit_event row inside the caller's transaction.
func insertExitEvent(ctx context.Context, tx pgx.Tx, posID uuid.UUID, reason string, meta map[string]interface{}) error {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode exit meta: %w", err)
	}

	query := `
		INSERT INTO exit_event (ts, pos_id, reason, meta)
		VALUES (NOW(), $1, $2, $3)
	`
	if _, err := tx.Exec(ctx, query, posID, reason, raw); err != nil {
		return fmt.Errorf("insert exit event: %w", err)
	}
	return nil
}
