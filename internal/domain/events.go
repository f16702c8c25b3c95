package domain

import "time"

// Swap sides. Zero means direction could not be inferred.
const (
	SideBuy     = 1
	SideSell    = -1
	SideUnknown = 0
)

// SwapEvent is one decoded swap, append-only. Price is quote-per-base and
// both amounts are strictly positive; a transaction where either could not be
// inferred produces no row at all.
type SwapEvent struct {
	TS       time.Time
	Sig      string
	Slot     int64
	Pool     string
	Token    string
	Side     int
	Price    float64
	BaseAmt  float64
	QuoteAmt float64
}

// LpEvent is one liquidity-pool event, append-only. Reserves are nil when not
// inferrable; the scaffold never writes synthetic zeros.
type LpEvent struct {
	Sig      string
	TS       time.Time
	Slot     int64
	Pool     string
	XReserve *float64
	YReserve *float64
	FeeBps   *int
	Kind     string
}

// AuthorityEvent is the scaffold row for future authority / mint-permission
// tracking. Only timestamp and an optional pool (program ID) are populated.
type AuthorityEvent struct {
	TS   time.Time
	Mint string
	Pool *string
}
