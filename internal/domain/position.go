package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Position states.
const (
	PositionOpen   = "OPEN"
	PositionClosed = "CLOSED"
)

// Fill sides. Partial and full exits both record SELL fills.
const (
	FillEntry = "entry"
	FillSell  = "SELL"
)

// Exit reasons.
const (
	ExitTPHit     = "TP_HIT"
	ExitSLHit     = "SL_HIT"
	ExitTPPartial = "TP_PARTIAL"
	ExitSLPartial = "SL_PARTIAL"
)

// PartialSide distinguishes take-profit from stop-loss partial levels.
type PartialSide string

const (
	PartialTP PartialSide = "TP"
	PartialSL PartialSide = "SL"
)

// PartialTag identifies one partial-exit level of a position. Its string form
// is the idempotence marker stored in Position.Meta.
type PartialTag struct {
	Side  PartialSide
	Level float64
}

// String renders the meta key, e.g. "partial_TP_1.5". Whole levels keep one
// decimal so 2.0 reads "partial_TP_2.0".
func (t PartialTag) String() string {
	lvl := strconv.FormatFloat(t.Level, 'f', -1, 64)
	if !strings.Contains(lvl, ".") {
		lvl += ".0"
	}
	return fmt.Sprintf("partial_%s_%s", t.Side, lvl)
}

// ExitReason returns the exit-event reason for this tag's side.
func (t PartialTag) ExitReason() string {
	if t.Side == PartialSL {
		return ExitSLPartial
	}
	return ExitTPPartial
}

// PositionMeta is the typed view of the position.meta JSONB column. Partial
// tags are flattened to top-level "partial_*": true keys on the wire so the
// column stays queryable the way the executor and exit worker expect.
type PositionMeta struct {
	SignalID string
	Source   string
	Mode     string
	Partials map[string]bool
}

// HasPartial reports whether the given level has already been taken.
func (m *PositionMeta) HasPartial(tag PartialTag) bool {
	return m.Partials[tag.String()]
}

// MarkPartial records the level as taken.
func (m *PositionMeta) MarkPartial(tag PartialTag) {
	if m.Partials == nil {
		m.Partials = make(map[string]bool)
	}
	m.Partials[tag.String()] = true
}

// MarshalJSON flattens the meta into the wire shape:
// {"signal_id":..,"source":..,"mode":..,"partial_TP_1.5":true,...}
func (m PositionMeta) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, 3+len(m.Partials))
	if m.SignalID != "" {
		out["signal_id"] = m.SignalID
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	if m.Mode != "" {
		out["mode"] = m.Mode
	}
	for tag, taken := range m.Partials {
		if taken {
			out[tag] = true
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON collects "partial_*" keys into the tag set and ignores any
// other unknown keys.
func (m *PositionMeta) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = PositionMeta{}
	for k, v := range raw {
		switch k {
		case "signal_id":
			m.SignalID, _ = v.(string)
		case "source":
			m.Source, _ = v.(string)
		case "mode":
			m.Mode, _ = v.(string)
		default:
			if strings.HasPrefix(k, "partial_") {
				if taken, ok := v.(bool); ok && taken {
					if m.Partials == nil {
						m.Partials = make(map[string]bool)
					}
					m.Partials[k] = true
				}
			}
		}
	}
	return nil
}

// Position is one opened (paper or live) position. At most one position
// exists per detector signal; the link lives in Meta.SignalID.
type Position struct {
	ID          uuid.UUID
	OpenedAt    time.Time
	Pool        string
	Token       string
	Size        float64
	EntryPx     float64
	SlippageBps int
	State       string
	Status      string
	SignalType  string
	Reason      string
	EntryPrice  float64
	Meta        PositionMeta
}

// Fill is one execution record, append-only.
type Fill struct {
	TS    time.Time
	PosID uuid.UUID
	Side  string
	Px    float64
	Qty   float64
	Tx    *string
}

// ExitEvent is one exit decision record, append-only.
type ExitEvent struct {
	TS     time.Time
	PosID  uuid.UUID
	Reason string
	Meta   map[string]interface{}
}
