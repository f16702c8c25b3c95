package detector

import (
	"math"
	"strconv"
	"strings"

	"scf-pipeline/internal/domain"
)

// Thresholds are the five rule bounds.
type Thresholds struct {
	VCMax  float64
	OFSMax float64
	LTMax  float64
	WCMin  float64
	RQMax  float64
}

// DefaultThresholds returns the stock rule bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		VCMax:  0.015,
		OFSMax: 0.001,
		LTMax:  5000,
		WCMin:  0.6,
		RQMax:  0.5,
	}
}

// Result is one rule evaluation outcome. Reason explains a rejection or, on
// a pass, names the thresholds that were met.
type Result struct {
	Pass   bool
	Reason string
}

// EvaluateRow applies the five-condition rule to one feature row.
func EvaluateRow(row domain.FeatureRow, th Thresholds) Result {
	in, missing, castFail := resolveInputs(row)
	if len(missing) > 0 {
		return Result{Reason: "missing:" + strings.Join(missing, ",")}
	}
	if castFail {
		return Result{Reason: "type_cast_fail"}
	}
	return Evaluate(in, th)
}

// Evaluate applies the rule to resolved inputs.
func Evaluate(in *Inputs, th Thresholds) Result {
	var failed []string
	if !(in.VC <= th.VCMax) {
		failed = append(failed, "VC")
	}
	if !(math.Abs(in.OFS) <= th.OFSMax) {
		failed = append(failed, "OFS")
	}
	if !(in.LT <= th.LTMax) {
		failed = append(failed, "LT")
	}
	if !(in.WC >= th.WCMin) {
		failed = append(failed, "WC")
	}
	if !(in.RQ <= th.RQMax) {
		failed = append(failed, "RQ")
	}

	if len(failed) > 0 {
		return Result{Reason: "fail:" + strings.Join(failed, ",")}
	}
	return Result{Pass: true, Reason: th.PassReason()}
}

// PassReason renders the signal reason for a full pass.
func (th Thresholds) PassReason() string {
	var b strings.Builder
	b.WriteString("SCF5:vc<=")
	b.WriteString(num(th.VCMax))
	b.WriteString(",|ofs|<=")
	b.WriteString(num(th.OFSMax))
	b.WriteString(",lt<=")
	b.WriteString(num(th.LTMax))
	b.WriteString(",wc>=")
	b.WriteString(num(th.WCMin))
	b.WriteString(",rq<=")
	b.WriteString(num(th.RQMax))
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// rejectionCause buckets a rejection reason for metrics.
func rejectionCause(reason string) string {
	switch {
	case strings.HasPrefix(reason, "missing:"):
		return "missing"
	case reason == "type_cast_fail":
		return "type_cast_fail"
	default:
		return "fail"
	}
}
