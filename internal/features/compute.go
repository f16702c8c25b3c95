// Package features computes rolling per-pool microstructure features from
// recent swap events.
package features

import (
	"math"
	"time"

	"scf-pipeline/internal/domain"
)

// MinObservations is the smallest swap series worth computing features for.
const MinObservations = 5

// ATRPct is the mean absolute price-to-price step over a price series,
// divided by the mean price, in percent. Needs at least three prices and a
// positive mean; returns nil otherwise.
func ATRPct(prices []float64) *float64 {
	if len(prices) < 3 {
		return nil
	}

	var sum float64
	for _, p := range prices {
		sum += p
	}
	mean := sum / float64(len(prices))
	if mean <= 0 {
		return nil
	}

	var stepSum float64
	for i := 1; i < len(prices); i++ {
		stepSum += math.Abs(prices[i] - prices[i-1])
	}
	meanStep := stepSum / float64(len(prices)-1)

	v := meanStep / mean * 100
	return &v
}

// CVDSlope builds the cumulative signed base-volume series and returns the
// slope over the last five steps. Needs at least two points.
func CVDSlope(events []*domain.SwapEvent) *float64 {
	if len(events) < 2 {
		return nil
	}

	cvd := make([]float64, len(events))
	var running float64
	for i, e := range events {
		running += float64(e.Side) * e.BaseAmt
		cvd[i] = running
	}

	last := len(cvd) - 1
	from := last - 5
	if from < 0 {
		from = 0
	}
	v := (cvd[last] - cvd[from]) / 5
	return &v
}

// Compute derives one feature snapshot from a pool's swap series, which must
// be in ascending time order. Returns nil when the series is too short.
func Compute(pool string, events []*domain.SwapEvent, now time.Time) *domain.FeatureSnapshot {
	if len(events) < MinObservations {
		return nil
	}

	var prices15m, prices24h []float64
	cut15m := now.Add(-15 * time.Minute)
	cut24h := now.Add(-24 * time.Hour)
	for _, e := range events {
		if e.Price <= 0 {
			continue
		}
		if e.TS.After(cut24h) {
			prices24h = append(prices24h, e.Price)
		}
		if e.TS.After(cut15m) {
			prices15m = append(prices15m, e.Price)
		}
	}

	snap := &domain.FeatureSnapshot{
		Pool:       pool,
		TS:         now,
		ATRPct15m:  ATRPct(prices15m),
		ATRPct24h:  ATRPct(prices24h),
		CVDSlope5m: CVDSlope(events),
		Obs:        len(events),
	}

	if snap.ATRPct15m != nil && snap.ATRPct24h != nil && *snap.ATRPct24h > 0 {
		v := *snap.ATRPct15m / *snap.ATRPct24h
		snap.VCRatio = &v
	}

	return snap
}
