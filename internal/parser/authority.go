package parser

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// AuthorityParser is the scaffold for mint-permission tracking. It records
// one placeholder row per transaction touching a known AMM program; a real
// authority decoder would replace the body of Process.
type AuthorityParser struct {
	store       storage.AuthorityEventStore
	ammPrograms map[string]struct{}
	metrics     *observability.Metrics
}

// NewAuthorityParser creates a new AuthorityParser.
func NewAuthorityParser(store storage.AuthorityEventStore, ammPrograms map[string]struct{}, metrics *observability.Metrics) *AuthorityParser {
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &AuthorityParser{
		store:       store,
		ammPrograms: ammPrograms,
		metrics:     metrics,
	}
}

// Compile-time interface check.
var _ Parser = (*AuthorityParser)(nil)

func (p *AuthorityParser) Name() string { return "parser_auth" }

func (p *AuthorityParser) Kind() domain.ParserKind { return domain.ParserAuthority }

// Process stores one scaffold row for transactions on known AMM programs.
func (p *AuthorityParser) Process(ctx context.Context, tx *domain.RawTransaction) error {
	payload, err := decodePayload(tx.Payload)
	if err != nil {
		p.metrics.ParserSkips.WithLabelValues(p.Name(), "decode").Inc()
		return nil
	}

	program := payload.matchProgram(p.ammPrograms)
	if program == "" {
		p.metrics.ParserSkips.WithLabelValues(p.Name(), "unknown_program").Inc()
		return nil
	}

	event := &domain.AuthorityEvent{
		TS:   payload.timestamp(),
		Mint: "unknown",
		Pool: &program,
	}
	if err := p.store.Insert(ctx, event); err != nil {
		return fmt.Errorf("insert authority event %s: %w", tx.Signature, err)
	}
	return nil
}
