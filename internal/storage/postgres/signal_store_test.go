package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalStore_InsertDedupedSuppressesWithinWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)
	snapshot := json.RawMessage(`{"pool":"pool-a","vc_ratio":0.01}`)

	inserted, err := store.InsertDeduped(ctx, "pool-a", "long", "SCF5:vc<=0.01", snapshot, 300*time.Second)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.InsertDeduped(ctx, "pool-a", "long", "SCF5:vc<=0.01", snapshot, 300*time.Second)
	require.NoError(t, err)
	assert.False(t, inserted)

	// A different pool is its own dedup scope.
	inserted, err = store.InsertDeduped(ctx, "pool-b", "long", "SCF5:vc<=0.01", snapshot, 300*time.Second)
	require.NoError(t, err)
	assert.True(t, inserted)

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM detector_signal`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSignalStore_InsertDedupedAllowsAfterWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)
	snapshot := json.RawMessage(`{"pool":"pool-a"}`)

	inserted, err := store.InsertDeduped(ctx, "pool-a", "long", "r", snapshot, 300*time.Second)
	require.NoError(t, err)
	require.True(t, inserted)

	// Age the existing signal past the window.
	_, err = pool.Exec(ctx, `UPDATE detector_signal SET created_at = created_at - INTERVAL '10 minutes'`)
	require.NoError(t, err)

	inserted, err = store.InsertDeduped(ctx, "pool-a", "long", "r", snapshot, 300*time.Second)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestSignalStore_RecentReturnsOldestFirst(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSignalStore(pool)
	snapshot := json.RawMessage(`{}`)

	for _, p := range []string{"pool-a", "pool-b", "pool-c"} {
		inserted, err := store.InsertDeduped(ctx, p, "long", "r", snapshot, time.Second)
		require.NoError(t, err)
		require.True(t, inserted)
	}
	_, err := pool.Exec(ctx, `UPDATE detector_signal SET created_at = created_at - INTERVAL '2 minutes' WHERE pool = 'pool-a'`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `UPDATE detector_signal SET created_at = created_at - INTERVAL '1 minute' WHERE pool = 'pool-b'`)
	require.NoError(t, err)

	signals, err := store.Recent(ctx, 10*time.Minute, 100)
	require.NoError(t, err)
	require.Len(t, signals, 3)
	assert.Equal(t, "pool-a", signals[0].Pool)
	assert.Equal(t, "pool-b", signals[1].Pool)
	assert.Equal(t, "pool-c", signals[2].Pool)
	assert.Equal(t, "long", signals[0].SignalType)

	// Outside the window nothing is returned.
	signals, err = store.Recent(ctx, 30*time.Second, 100)
	require.NoError(t, err)
	assert.Len(t, signals, 1)
}
