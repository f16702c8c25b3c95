package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"scf-pipeline/internal/storage"
)

// CursorStore implements storage.CursorStore using the cursor_state table.
// Cursor values are stored as {"last_slot": N} JSON objects.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new CursorStore.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

type cursorValue struct {
	LastSlot int64 `json:"last_slot"`
}

// LastSlot returns the persisted slot cursor, or 0 when no row exists.
func (s *CursorStore) LastSlot(ctx context.Context, name string) (int64, error) {
	query := `SELECT value FROM cursor_state WHERE name = $1`

	var raw []byte
	err := s.pool.QueryRow(ctx, query, name).Scan(&raw)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get cursor %s: %w", name, err)
	}

	var v cursorValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("decode cursor %s: %w", name, err)
	}
	return v.LastSlot, nil
}

// SetLastSlot upserts the slot cursor.
func (s *CursorStore) SetLastSlot(ctx context.Context, name string, slot int64) error {
	raw, err := json.Marshal(cursorValue{LastSlot: slot})
	if err != nil {
		return fmt.Errorf("encode cursor %s: %w", name, err)
	}

	query := `
		INSERT INTO cursor_state (name, value)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value
	`

	if _, err := s.pool.Exec(ctx, query, name, raw); err != nil {
		return fmt.Errorf("set cursor %s: %w", name, err)
	}
	return nil
}
