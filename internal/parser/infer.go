package parser

import (
	"math"

	"scf-pipeline/internal/domain"
)

// SwapInference is the decoded effect of one swap, derived purely from token
// balance deltas.
type SwapInference struct {
	Pool     string
	Token    string
	Side     int
	Price    float64
	BaseAmt  float64
	QuoteAmt float64
}

// mintDeltas aggregates post-minus-pre balance changes per mint. Accounts
// without a reported uiAmount contribute nothing.
func mintDeltas(pre, post []tokenBalance) map[string]float64 {
	deltas := make(map[string]float64)
	for _, b := range pre {
		if b.UITokenAmt.UIAmount != nil {
			deltas[b.Mint] -= *b.UITokenAmt.UIAmount
		}
	}
	for _, b := range post {
		if b.UITokenAmt.UIAmount != nil {
			deltas[b.Mint] += *b.UITokenAmt.UIAmount
		}
	}
	return deltas
}

// topOpposite picks the two mints with the largest absolute delta that have
// opposite signs. Returns false when no such pair exists.
func topOpposite(deltas map[string]float64) (posMint string, posAmt float64, negMint string, negAmt float64, ok bool) {
	for mint, d := range deltas {
		switch {
		case d > 0 && d > posAmt:
			posMint, posAmt = mint, d
		case d < 0 && -d > negAmt:
			negMint, negAmt = mint, -d
		}
	}
	if posMint == "" || negMint == "" {
		return "", 0, "", 0, false
	}
	return posMint, posAmt, negMint, negAmt, true
}

// inferSwap derives one swap from a payload's balance deltas. Returns false
// when the transaction does not look like a swap; the caller skips rather
// than writing zeros.
func inferSwap(p *txPayload, wsolMint string, ammPrograms map[string]struct{}) (*SwapInference, bool) {
	if p.Meta == nil {
		return nil, false
	}

	deltas := mintDeltas(p.Meta.PreTokenBalances, p.Meta.PostTokenBalances)
	base, baseAmt, quote, quoteAmt, ok := topOpposite(deltas)
	if !ok {
		return nil, false
	}
	if baseAmt <= 0 || quoteAmt <= 0 {
		return nil, false
	}

	price := quoteAmt / baseAmt
	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return nil, false
	}

	side := domain.SideUnknown
	switch {
	case base != wsolMint && quote == wsolMint:
		side = domain.SideBuy
	case base == wsolMint:
		side = domain.SideSell
	}

	pool := p.matchProgram(ammPrograms)
	if pool == "" {
		pool = base + "-" + quote
	}

	return &SwapInference{
		Pool:     pool,
		Token:    base,
		Side:     side,
		Price:    price,
		BaseAmt:  baseAmt,
		QuoteAmt: quoteAmt,
	}, true
}
