package clickhouse

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// FeatureHistoryStore implements storage.FeatureArchive using ClickHouse.
// features_latest in Postgres only keeps the newest snapshot per pool; this
// store retains every computed snapshot for offline analysis. MergeTree does
// not enforce uniqueness, so replays can produce duplicate rows; readers are
// expected to deduplicate on (pool, ts).
type FeatureHistoryStore struct {
	conn *Conn
}

// NewFeatureHistoryStore creates a new FeatureHistoryStore.
func NewFeatureHistoryStore(conn *Conn) *FeatureHistoryStore {
	return &FeatureHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureArchive = (*FeatureHistoryStore)(nil)

// Append writes one snapshot row.
func (s *FeatureHistoryStore) Append(ctx context.Context, snap *domain.FeatureSnapshot) error {
	query := `
		INSERT INTO feature_history (
			pool, ts, atr_pct_15m, atr_pct_24h, vc_ratio, cvd_slope_5m, obs
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		snap.Pool, snap.TS,
		snap.ATRPct15m, snap.ATRPct24h, snap.VCRatio, snap.CVDSlope5m,
		uint32(snap.Obs),
	)
	if err != nil {
		return fmt.Errorf("append feature history for %s: %w", snap.Pool, err)
	}
	return nil
}
