package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scf-pipeline/internal/domain"
)

func TestFeatureStore_UpsertWritesNilAsNull(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureStore(pool)

	snap := &domain.FeatureSnapshot{
		Pool:      "pool-a",
		TS:        time.Now().UTC(),
		ATRPct15m: ptr(1.25),
		Obs:       7,
	}
	require.NoError(t, store.Upsert(ctx, snap))

	var atr15 *float64
	var atr24 *float64
	var obs int
	err := pool.QueryRow(ctx, `SELECT atr_pct_15m, atr_pct_24h, obs FROM features_latest WHERE pool = 'pool-a'`).
		Scan(&atr15, &atr24, &obs)
	require.NoError(t, err)
	require.NotNil(t, atr15)
	assert.InDelta(t, 1.25, *atr15, 1e-9)
	assert.Nil(t, atr24)
	assert.Equal(t, 7, obs)

	// A second upsert replaces the row in place.
	snap.ATRPct15m = ptr(2.5)
	snap.ATRPct24h = ptr(5.0)
	snap.Obs = 9
	require.NoError(t, store.Upsert(ctx, snap))

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM features_latest`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	err = pool.QueryRow(ctx, `SELECT atr_pct_15m, atr_pct_24h, obs FROM features_latest WHERE pool = 'pool-a'`).
		Scan(&atr15, &atr24, &obs)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, *atr15, 1e-9)
	assert.InDelta(t, 5.0, *atr24, 1e-9)
	assert.Equal(t, 9, obs)
}

func TestFeatureStore_LatestRowsExposesFullSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureStore(pool)

	require.NoError(t, store.Upsert(ctx, &domain.FeatureSnapshot{
		Pool:      "pool-a",
		TS:        time.Now().UTC(),
		ATRPct15m: ptr(1.25),
		Obs:       5,
	}))

	// Columns the worker never writes still come back through the dynamic
	// row, so the detector's candidate lookup can see them.
	_, err := pool.Exec(ctx, `UPDATE features_latest SET depth_1p0 = 4200 WHERE pool = 'pool-a'`)
	require.NoError(t, err)

	rows, err := store.LatestRows(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, "pool-a", row.Pool())
	assert.Contains(t, row, "atr15")
	assert.Contains(t, row, "watchers_slope")
	assert.NotNil(t, row["atr_pct_15m"])
	assert.NotNil(t, row["depth_1p0"])
	assert.Nil(t, row["cvd_slope_5m"])
}

func TestFeatureStore_LatestRowsOrderAndLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureStore(pool)

	now := time.Now().UTC()
	for i, p := range []string{"pool-old", "pool-mid", "pool-new"} {
		require.NoError(t, store.Upsert(ctx, &domain.FeatureSnapshot{
			Pool: p,
			TS:   now.Add(time.Duration(i) * time.Minute),
			Obs:  1,
		}))
	}

	rows, err := store.LatestRows(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "pool-new", rows[0].Pool())
	assert.Equal(t, "pool-mid", rows[1].Pool())
}

func TestFeatureStore_TouchDetectorCursor(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewFeatureStore(pool)

	require.NoError(t, store.TouchDetectorCursor(ctx))
	require.NoError(t, store.TouchDetectorCursor(ctx))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM detector_cursor`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var lastSeen *time.Time
	err = pool.QueryRow(ctx, `SELECT last_seen FROM detector_cursor WHERE id = 1`).Scan(&lastSeen)
	require.NoError(t, err)
	assert.NotNil(t, lastSeen)
}
