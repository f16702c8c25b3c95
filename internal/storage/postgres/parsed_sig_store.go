package postgres

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// ParsedSigStore implements storage.ParsedSigStore using PostgreSQL.
type ParsedSigStore struct {
	pool *Pool
}

// NewParsedSigStore creates a new ParsedSigStore.
func NewParsedSigStore(pool *Pool) *ParsedSigStore {
	return &ParsedSigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ParsedSigStore = (*ParsedSigStore)(nil)

// Mark upserts one parser's watermark flag for a signature.
func (s *ParsedSigStore) Mark(ctx context.Context, sig string, kind domain.ParserKind) error {
	var column string
	switch kind {
	case domain.ParserSwap:
		column = "has_swap"
	case domain.ParserLP:
		column = "has_lp"
	case domain.ParserAuthority:
		column = "has_auth"
	default:
		return fmt.Errorf("unknown parser kind %q", kind)
	}

	// column comes from the switch above, never from input
	query := fmt.Sprintf(`
		INSERT INTO parsed_sig (signature, %[1]s)
		VALUES ($1, TRUE)
		ON CONFLICT (signature) DO UPDATE SET %[1]s = TRUE
	`, column)

	if _, err := s.pool.Exec(ctx, query, sig); err != nil {
		return fmt.Errorf("mark parsed signature: %w", err)
	}
	return nil
}

// Get returns the watermark row for a signature.
func (s *ParsedSigStore) Get(ctx context.Context, sig string) (*domain.ParsedSignature, error) {
	query := `
		SELECT signature, has_swap, has_lp, has_auth
		FROM parsed_sig
		WHERE signature = $1
	`

	var row domain.ParsedSignature
	err := s.pool.QueryRow(ctx, query, sig).Scan(&row.Signature, &row.HasSwap, &row.HasLP, &row.HasAuth)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get parsed signature: %w", err)
	}
	return &row, nil
}
