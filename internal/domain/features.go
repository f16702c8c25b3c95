package domain

import "time"

// FeatureSnapshot is the per-pool rolling feature row upserted into
// features_latest by the feature worker. Nil fields mean the window did not
// have enough data; they are stored as NULL, never as zero.
type FeatureSnapshot struct {
	Pool       string
	TS         time.Time
	ATRPct15m  *float64
	ATRPct24h  *float64
	VCRatio    *float64
	CVDSlope5m *float64
	Obs        int
}

// FeatureRow is a dynamically-typed features_latest row as the detector sees
// it: column name to value, including columns the feature worker does not
// write. Missing and NULL columns are both represented by absent/nil values.
type FeatureRow map[string]interface{}

// Pool returns the row's pool identifier, or "" if absent.
func (r FeatureRow) Pool() string {
	v, ok := r["pool"]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}
