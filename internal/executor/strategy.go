// Package executor turns detector signals into positions with entry fills.
package executor

import (
	"context"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// Plan is the sizing decision for one signal.
type Plan struct {
	Size        float64
	EntryPx     float64
	SlippageBps int
	Tx          *string
}

// Strategy decides how a signal becomes an order. The paper strategy fills
// nothing real; a live implementation must fetch a price, size the order,
// submit it, and only report a plan once the venue confirms.
type Strategy interface {
	// Mode is recorded into position meta ("paper", "live_stub").
	Mode() string

	// Plan produces the entry parameters for one signal.
	Plan(ctx context.Context, sig *domain.DetectorSignal) (*Plan, error)
}

// PaperStrategy opens zero-size positions at a synthetic price. It exists to
// validate the signal→position→exit path end to end without touching a
// venue.
type PaperStrategy struct{}

// Compile-time interface check.
var _ Strategy = (*PaperStrategy)(nil)

func (PaperStrategy) Mode() string { return "paper" }

func (PaperStrategy) Plan(_ context.Context, _ *domain.DetectorSignal) (*Plan, error) {
	return &Plan{Size: 0, EntryPx: 1.0, SlippageBps: 0}, nil
}

// LiveStubStrategy is the placeholder for venue integration. It prices the
// entry from the latest observed swap and records a small fixed size, but
// submits nothing; the tx reference stays null until a real venue client is
// wired in.
type LiveStubStrategy struct {
	swaps storage.SwapEventStore
}

// NewLiveStubStrategy creates a new LiveStubStrategy.
func NewLiveStubStrategy(swaps storage.SwapEventStore) *LiveStubStrategy {
	return &LiveStubStrategy{swaps: swaps}
}

// Compile-time interface check.
var _ Strategy = (*LiveStubStrategy)(nil)

func (*LiveStubStrategy) Mode() string { return "live_stub" }

func (s *LiveStubStrategy) Plan(ctx context.Context, sig *domain.DetectorSignal) (*Plan, error) {
	entryPx := 1.0
	if price, err := s.swaps.LatestPrice(ctx, sig.Pool); err == nil && price != nil && *price > 0 {
		entryPx = *price
	}
	return &Plan{Size: 0.01, EntryPx: entryPx, SlippageBps: 50}, nil
}
