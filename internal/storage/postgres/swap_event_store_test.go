package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scf-pipeline/internal/domain"
)

func testSwap(pool string, ts time.Time, price float64) *domain.SwapEvent {
	return &domain.SwapEvent{
		TS:       ts,
		Sig:      "sig-" + ts.Format("150405.000000"),
		Slot:     100,
		Pool:     pool,
		Token:    "mint-a",
		Side:     domain.SideBuy,
		Price:    price,
		BaseAmt:  10,
		QuoteAmt: 10 * price,
	}
}

func TestSwapEventStore_InsertIgnoresReplay(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapEventStore(pool)

	e := testSwap("pool-a", time.Now().UTC(), 1.5)
	require.NoError(t, store.Insert(ctx, e))
	require.NoError(t, store.Insert(ctx, e))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM swap_event`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSwapEventStore_LatestPrice(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapEventStore(pool)

	price, err := store.LatestPrice(ctx, "pool-a")
	require.NoError(t, err)
	assert.Nil(t, price)

	now := time.Now().UTC()
	require.NoError(t, store.Insert(ctx, testSwap("pool-a", now.Add(-2*time.Minute), 1.0)))
	require.NoError(t, store.Insert(ctx, testSwap("pool-a", now.Add(-1*time.Minute), 2.0)))
	require.NoError(t, store.Insert(ctx, testSwap("pool-b", now, 9.0)))

	price, err = store.LatestPrice(ctx, "pool-a")
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.InDelta(t, 2.0, *price, 1e-9)
}

func TestSwapEventStore_ActivePools(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapEventStore(pool)

	now := time.Now().UTC()
	require.NoError(t, store.Insert(ctx, testSwap("pool-fresh", now.Add(-10*time.Minute), 1.0)))
	require.NoError(t, store.Insert(ctx, testSwap("pool-stale", now.Add(-48*time.Hour), 1.0)))

	pools, err := store.ActivePools(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"pool-fresh"}, pools)
}

func TestSwapEventStore_SeriesAscending(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSwapEventStore(pool)

	now := time.Now().UTC()
	require.NoError(t, store.Insert(ctx, testSwap("pool-a", now.Add(-1*time.Minute), 3.0)))
	require.NoError(t, store.Insert(ctx, testSwap("pool-a", now.Add(-3*time.Minute), 1.0)))
	require.NoError(t, store.Insert(ctx, testSwap("pool-a", now.Add(-2*time.Minute), 2.0)))
	require.NoError(t, store.Insert(ctx, testSwap("pool-a", now.Add(-2*time.Hour), 99.0)))
	require.NoError(t, store.Insert(ctx, testSwap("pool-b", now, 42.0)))

	events, err := store.Series(ctx, "pool-a", time.Hour)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.InDelta(t, 1.0, events[0].Price, 1e-9)
	assert.InDelta(t, 2.0, events[1].Price, 1e-9)
	assert.InDelta(t, 3.0, events[2].Price, 1e-9)
	assert.Equal(t, "pool-a", events[0].Pool)
	assert.Equal(t, domain.SideBuy, events[0].Side)
}
