package supervisor

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"scf-pipeline/internal/storage"
)

// DefaultHealthInterval is how often the health line is printed.
const DefaultHealthInterval = 5 * time.Second

// Health monitor table order for the one-line summary.
var healthOrder = []string{
	"tx_queue", "tx_raw", "swap_event", "lp_event", "authority_event",
	"features_latest", "detector_signal", "position", "fill", "exit_event",
}

// HealthMonitor prints a one-line snapshot of row counts and parser output
// freshness. Its output is the primary operational signal.
type HealthMonitor struct {
	store    storage.HealthStore
	interval time.Duration
	logger   *log.Logger
}

// NewHealthMonitor creates a new health monitor.
func NewHealthMonitor(store storage.HealthStore, interval time.Duration, logger *log.Logger) *HealthMonitor {
	if interval <= 0 {
		interval = DefaultHealthInterval
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[health] ", log.LstdFlags)
	}
	return &HealthMonitor{store: store, interval: interval, logger: logger}
}

// Task adapts the monitor for the supervisor.
func (h *HealthMonitor) Task() Task {
	return Task{Name: "health", Run: h.Run}
}

// Run prints the summary line on every tick until canceled.
func (h *HealthMonitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		snap, err := h.store.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			h.logger.Printf("snapshot: %v", err)
			continue
		}

		var b strings.Builder
		for i, table := range healthOrder {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%d", table, snap.Counts[table])
		}
		now := time.Now().UTC()
		fmt.Fprintf(&b, " swap_age=%s lp_age=%s", age(snap.SwapAge(now)), age(snap.LpAge(now)))

		h.logger.Println(b.String())
	}
}

func age(d time.Duration) string {
	if d < 0 {
		return "never"
	}
	return d.Truncate(time.Second).String()
}
