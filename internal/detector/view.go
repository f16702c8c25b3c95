// Package detector evaluates the five-condition entry rule over the latest
// per-pool feature snapshots.
package detector

import (
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"

	"scf-pipeline/internal/domain"
)

// Logical rule inputs, in evaluation order.
var inputOrder = []string{"vc", "ofs", "lt", "wc", "rq"}

// candidateColumns maps each logical input to physical columns, tried in
// order; the first non-null value wins. The feature row is read dynamically,
// so columns written by other producers resolve here without code changes.
var candidateColumns = map[string][]string{
	"vc":  {"atr15", "atr_pct_15m"},
	"ofs": {"cvd_slope_1m", "cvd_slope_5m"},
	"lt":  {"depth_1p0"},
	"wc":  {"wc_quality_arrivals"},
	"rq":  {"watchers_slope"},
}

// Inputs holds the resolved rule inputs.
type Inputs struct {
	VC  float64
	OFS float64
	LT  float64
	WC  float64
	RQ  float64
}

// resolveInputs reads the rule inputs out of one feature row. Returns the
// logical names that had no non-null candidate, and whether any present
// value failed to coerce to a float. Missing names take precedence: a cast
// failure is only reported once every input is present.
func resolveInputs(row domain.FeatureRow) (*Inputs, []string, bool) {
	values := make(map[string]float64, len(inputOrder))
	var missing []string
	castFail := false

	for _, name := range inputOrder {
		v, found, ok := lookup(row, candidateColumns[name])
		if !found {
			missing = append(missing, name)
			continue
		}
		if !ok {
			castFail = true
			continue
		}
		values[name] = v
	}

	if len(missing) > 0 {
		return nil, missing, false
	}
	if castFail {
		return nil, nil, true
	}

	return &Inputs{
		VC:  values["vc"],
		OFS: values["ofs"],
		LT:  values["lt"],
		WC:  values["wc"],
		RQ:  values["rq"],
	}, nil, false
}

// lookup returns the first non-null candidate value. found reports whether
// any candidate was present; ok whether it coerced to a float.
func lookup(row domain.FeatureRow, candidates []string) (v float64, found, ok bool) {
	for _, col := range candidates {
		raw, exists := row[col]
		if !exists || raw == nil {
			continue
		}
		f, castOK := toFloat(raw)
		return f, true, castOK
	}
	return 0, false, false
}

// toFloat coerces the value types pgx produces for numeric-ish columns.
// NUMERIC columns scan as pgtype.Numeric, floats as float64, integers as
// int32/int64.
func toFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case pgtype.Numeric:
		fv, err := x.Float64Value()
		if err != nil || !fv.Valid {
			return 0, false
		}
		return fv.Float64, true
	default:
		return 0, false
	}
}
