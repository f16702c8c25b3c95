package domain

import "time"

// HealthSnapshot is one aggregate reading of pipeline progress: row counts
// per stage table plus the freshness of the two parser outputs.
type HealthSnapshot struct {
	Counts     map[string]int64
	LastSwapTS *time.Time
	LastLpTS   *time.Time
}

// SwapAge returns how stale the newest swap event is at now, or a negative
// duration when no swap has ever been written.
func (h *HealthSnapshot) SwapAge(now time.Time) time.Duration {
	if h.LastSwapTS == nil {
		return -1
	}
	return now.Sub(*h.LastSwapTS)
}

// LpAge returns how stale the newest LP event is at now, or a negative
// duration when no LP event has ever been written.
func (h *HealthSnapshot) LpAge(now time.Time) time.Duration {
	if h.LastLpTS == nil {
		return -1
	}
	return now.Sub(*h.LastLpTS)
}
