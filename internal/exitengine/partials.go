// Package exitengine monitors open positions against latest prices and
// applies partial and full take-profit / stop-loss exits.
package exitengine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"scf-pipeline/internal/domain"
)

// PartialLevel is one configured partial exit: sell Ratio of the current
// size when price crosses Level × entry.
type PartialLevel struct {
	Level float64
	Ratio float64
}

// Tag returns the idempotence tag for this level on the given side.
func (p PartialLevel) Tag(side domain.PartialSide) domain.PartialTag {
	return domain.PartialTag{Side: side, Level: p.Level}
}

// ParsePartials parses a "level:ratio,level:ratio" list. Levels must be
// positive, ratios in (0, 1]. The result is sorted ascending by level. An
// empty string yields nil.
func ParsePartials(s string) ([]PartialLevel, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []PartialLevel
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lv, ratio, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("partial %q: want level:ratio", part)
		}

		level, err := strconv.ParseFloat(strings.TrimSpace(lv), 64)
		if err != nil {
			return nil, fmt.Errorf("partial %q: bad level: %w", part, err)
		}
		r, err := strconv.ParseFloat(strings.TrimSpace(ratio), 64)
		if err != nil {
			return nil, fmt.Errorf("partial %q: bad ratio: %w", part, err)
		}

		if level <= 0 {
			return nil, fmt.Errorf("partial %q: level must be positive", part)
		}
		if r <= 0 || r > 1 {
			return nil, fmt.Errorf("partial %q: ratio must be in (0, 1]", part)
		}

		out = append(out, PartialLevel{Level: level, Ratio: r})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Level < out[j].Level })
	return out, nil
}
