package postgres

import (
	"context"
	"fmt"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

// FeatureStore implements storage.FeatureStore using PostgreSQL.
type FeatureStore struct {
	pool *Pool
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(pool *Pool) *FeatureStore {
	return &FeatureStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// Upsert replaces the latest snapshot for a pool. Nil feature values are
// written as NULL.
func (s *FeatureStore) Upsert(ctx context.Context, snap *domain.FeatureSnapshot) error {
	query := `
		INSERT INTO features_latest (pool, ts, atr_pct_15m, atr_pct_24h, vc_ratio, cvd_slope_5m, obs)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (pool) DO UPDATE SET
			ts = EXCLUDED.ts,
			atr_pct_15m = EXCLUDED.atr_pct_15m,
			atr_pct_24h = EXCLUDED.atr_pct_24h,
			vc_ratio = EXCLUDED.vc_ratio,
			cvd_slope_5m = EXCLUDED.cvd_slope_5m,
			obs = EXCLUDED.obs
	`

	_, err := s.pool.Exec(ctx, query,
		snap.Pool, snap.TS, snap.ATRPct15m, snap.ATRPct24h, snap.VCRatio, snap.CVDSlope5m, snap.Obs,
	)
	if err != nil {
		return fmt.Errorf("upsert features for %s: %w", snap.Pool, err)
	}
	return nil
}

// LatestRows reads features_latest as dynamic rows. SELECT * is deliberate:
// the detector resolves its inputs against whatever columns the live schema
// carries, including ones this worker never writes.
func (s *FeatureStore) LatestRows(ctx context.Context, limit int) ([]domain.FeatureRow, error) {
	query := `
		SELECT *
		FROM features_latest
		ORDER BY ts DESC NULLS LAST
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("select latest features: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	var out []domain.FeatureRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read feature row values: %w", err)
		}
		row := make(domain.FeatureRow, len(fields))
		for i, fd := range fields {
			row[string(fd.Name)] = values[i]
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}

	return out, nil
}

// TouchDetectorCursor upserts the single-row detector heartbeat.
func (s *FeatureStore) TouchDetectorCursor(ctx context.Context) error {
	query := `
		INSERT INTO detector_cursor (id, last_seen)
		VALUES (1, NOW())
		ON CONFLICT (id) DO UPDATE SET last_seen = EXCLUDED.last_seen
	`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("touch detector cursor: %w", err)
	}
	return nil
}
