package parser

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// LpParser emits a scaffold liquidity-pool row for every transaction that
// references a configured AMM program. Reserves are not inferred here and
// stay NULL.
type LpParser struct {
	store       storage.LpEventStore
	ammPrograms map[string]struct{}
	metrics     *observability.Metrics
}

// NewLpParser creates a new LpParser.
func NewLpParser(store storage.LpEventStore, ammPrograms map[string]struct{}, metrics *observability.Metrics) *LpParser {
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &LpParser{
		store:       store,
		ammPrograms: ammPrograms,
		metrics:     metrics,
	}
}

// Compile-time interface check.
var _ Parser = (*LpParser)(nil)

func (p *LpParser) Name() string { return "parser_lp" }

func (p *LpParser) Kind() domain.ParserKind { return domain.ParserLP }

// Process stores one scaffold row when a known AMM program is present.
func (p *LpParser) Process(ctx context.Context, tx *domain.RawTransaction) error {
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

	event := &domain.LpEvent{
		Sig:  tx.Signature,
		TS:   payload.timestamp(),
		Slot: tx.Slot,
		Pool: program,
		Kind: "scaffold",
	}
	if err := p.store.Insert(ctx, event); err != nil {
		return fmt.Errorf("insert lp event %s: %w", tx.Signature, err)
	}
	p.metrics.LpEventsParsed.Inc()
	return nil
}
