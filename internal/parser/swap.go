package parser

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/observability"
	"scf-pipeline/internal/storage"
)

// SwapParser derives swap events from token balance deltas. Transactions
// whose deltas do not form a sane swap are skipped; nothing synthetic is
// ever written.
type SwapParser struct {
	store       storage.SwapEventStore
	wsolMint    string
	ammPrograms map[string]struct{}
	metrics     *observability.Metrics
}

// NewSwapParser creates a new SwapParser.
func NewSwapParser(store storage.SwapEventStore, wsolMint string, ammPrograms map[string]struct{}, metrics *observability.Metrics) *SwapParser {
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	return &SwapParser{
		store:       store,
		wsolMint:    wsolMint,
		ammPrograms: ammPrograms,
		metrics:     metrics,
	}
}

// Compile-time interface check.
var _ Parser = (*SwapParser)(nil)

func (p *SwapParser) Name() string { return "parser_swap" }

func (p *SwapParser) Kind() domain.ParserKind { return domain.ParserSwap }

// Process infers and stores at most one swap per transaction.
func (p *SwapParser) Process(ctx context.Context, tx *domain.RawTransaction) error {
	payload, err := decodePayload(tx.Payload)
	if err != nil {
		p.metrics.ParserSkips.WithLabelValues(p.Name(), "decode").Inc()
		return nil
	}

	inf, ok := inferSwap(payload, p.wsolMint, p.ammPrograms)
	if !ok {
		p.metrics.ParserSkips.WithLabelValues(p.Name(), "no_swap").Inc()
		return nil
	}

	event := &domain.SwapEvent{
		TS:       payload.timestamp(),
		Sig:      tx.Signature,
		Slot:     tx.Slot,
		Pool:     inf.Pool,
		Token:    inf.Token,
		Side:     inf.Side,
		Price:    inf.Price,
		BaseAmt:  inf.BaseAmt,
		QuoteAmt: inf.QuoteAmt,
	}
	if err := p.store.Insert(ctx, event); err != nil {
		return fmt.Errorf("insert swap event %s: %w", tx.Signature, err)
	}
	p.metrics.SwapEventsParsed.Inc()
	return nil
}
