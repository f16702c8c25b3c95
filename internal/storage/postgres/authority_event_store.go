package postgres

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// AuthorityEventStore implements storage.AuthorityEventStore using PostgreSQL.
type AuthorityEventStore struct {
	pool *Pool
}

// NewAuthorityEventStore creates a new AuthorityEventStore.
func NewAuthorityEventStore(pool *Pool) *AuthorityEventStore {
	return &AuthorityEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AuthorityEventStore = (*AuthorityEventStore)(nil)

// Insert appends a scaffold authority row. Mint is "unknown" until a real
// authority decoder is wired; permission columns stay NULL.
func (s *AuthorityEventStore) Insert(ctx context.Context, e *domain.AuthorityEvent) error {
	mint := e.Mint
	if mint == "" {
		mint = "unknown"
	}

	query := `
		INSERT INTO authority_event (ts, mint, pool, fee_switch, tax_flag, mint_auth, freeze_auth)
		VALUES ($1, $2, $3, NULL, NULL, NULL, NULL)
	`

	if _, err := s.pool.Exec(ctx, query, e.TS, mint, e.Pool); err != nil {
		return fmt.Errorf("insert authority event: %w", err)
	}
	return nil
}
