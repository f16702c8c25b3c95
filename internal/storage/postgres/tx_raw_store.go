package postgres

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// TxRawStore implements storage.TxRawStore using PostgreSQL.
type TxRawStore struct {
	pool *Pool
}

// NewTxRawStore creates a new TxRawStore.
func NewTxRawStore(pool *Pool) *TxRawStore {
	return &TxRawStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TxRawStore = (*TxRawStore)(nil)

// Insert persists a resolved payload verbatim, ignoring duplicates.
func (s *TxRawStore) Insert(ctx context.Context, tx *domain.RawTransaction) error {
	query := `
		INSERT INTO tx_raw (signature, slot, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (signature) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, tx.Signature, tx.Slot, tx.Payload); err != nil {
		return fmt.Errorf("insert raw transaction: %w", err)
	}
	return nil
}

// FetchAfterSlot returns up to limit rows with slot > after in ascending slot
// order; this is the shared parser cursor read.
func (s *TxRawStore) FetchAfterSlot(ctx context.Context, after int64, limit int) ([]*domain.RawTransaction, error) {
	query := `
		SELECT signature, slot, payload
		FROM tx_raw
		WHERE slot > $1
		ORDER BY slot ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, after, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch raw transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.RawTransaction
	for rows.Next() {
		var tx domain.RawTransaction
		if err := rows.Scan(&tx.Signature, &tx.Slot, &tx.Payload); err != nil {
			return nil, fmt.Errorf("scan raw transaction row: %w", err)
		}
		txs = append(txs, &tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw transaction rows: %w", err)
	}

	return txs, nil
}
