package domain

import (
	"encoding/json"
	"time"
)

// SignalTypeLong is the only signal type the detector currently emits; the
// rule set is long-only.
const SignalTypeLong = "long"

// DetectorSignal is one emitted trade signal, append-only. FeatureSnapshot
// holds the full feature row that satisfied the rule.
type DetectorSignal struct {
	ID              int64
	Pool            string
	SignalType      string
	Reason          string
	FeatureSnapshot json.RawMessage
	CreatedAt       time.Time
}
