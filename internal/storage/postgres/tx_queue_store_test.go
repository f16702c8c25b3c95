package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

func TestTxQueueStore_EnqueueIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTxQueueStore(pool)

	require.NoError(t, store.Enqueue(ctx, "sig-1", ptr("program-a"), 100))
	require.NoError(t, store.Enqueue(ctx, "sig-1", ptr("program-a"), 100))

	var count int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM tx_queue`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTxQueueStore_ClaimNextReturnsOldest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTxQueueStore(pool)

	require.NoError(t, store.Enqueue(ctx, "sig-old", ptr("program-a"), 100))
	require.NoError(t, store.Enqueue(ctx, "sig-new", ptr("program-a"), 101))

	// Enqueue timestamps default to NOW(); force a strict ordering.
	_, err := pool.Exec(ctx, `UPDATE tx_queue SET enqueued_at = enqueued_at - INTERVAL '1 minute' WHERE signature = 'sig-old'`)
	require.NoError(t, err)

	claimed, err := store.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sig-old", claimed.Signature)
	assert.Equal(t, domain.TxResolving, claimed.Status)
	require.NotNil(t, claimed.ProgramID)
	assert.Equal(t, "program-a", *claimed.ProgramID)
	assert.Equal(t, int64(100), claimed.Slot)

	claimed, err = store.ClaimNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sig-new", claimed.Signature)

	_, err = store.ClaimNext(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTxQueueStore_MarkResolved(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTxQueueStore(pool)

	require.NoError(t, store.Enqueue(ctx, "sig-1", nil, 100))

	claimed, err := store.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, store.MarkResolved(ctx, claimed.Signature))

	var status string
	err = pool.QueryRow(ctx, `SELECT status FROM tx_queue WHERE signature = 'sig-1'`).Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "resolved", status)

	_, err = store.ClaimNext(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTxQueueStore_MarkFailedRequeuesUntilBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTxQueueStore(pool)

	require.NoError(t, store.Enqueue(ctx, "sig-1", nil, 100))

	// The first MaxResolveRetries failures return the signature to the queue.
	for i := 0; i < domain.MaxResolveRetries; i++ {
		claimed, err := store.ClaimNext(ctx)
		require.NoError(t, err)
		require.NoError(t, store.MarkFailed(ctx, claimed.Signature, "rpc timeout"))

		var status string
		var retries int
		err = pool.QueryRow(ctx, `SELECT status, retries FROM tx_queue WHERE signature = 'sig-1'`).Scan(&status, &retries)
		require.NoError(t, err)
		assert.Equal(t, "queued", status)
		assert.Equal(t, i+1, retries)
	}

	// One more failure exhausts the budget.
	claimed, err := store.ClaimNext(ctx)
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(ctx, claimed.Signature, "rpc timeout"))

	var status string
	var lastError string
	err = pool.QueryRow(ctx, `SELECT status, last_error FROM tx_queue WHERE signature = 'sig-1'`).Scan(&status, &lastError)
	require.NoError(t, err)
	assert.Equal(t, "error", status)
	assert.Equal(t, "rpc timeout", lastError)

	_, err = store.ClaimNext(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
