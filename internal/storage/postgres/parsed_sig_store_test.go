package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scf-pipeline/internal/domain"
	"scf-pipeline/internal/storage"
)

func TestParsedSigStore_MarkAccumulatesFlags(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewParsedSigStore(pool)

	require.NoError(t, store.Mark(ctx, "sig-1", domain.ParserSwap))
	require.NoError(t, store.Mark(ctx, "sig-1", domain.ParserLP))
	// Marking the same parser twice is a no-op.
	require.NoError(t, store.Mark(ctx, "sig-1", domain.ParserSwap))

	row, err := store.Get(ctx, "sig-1")
	require.NoError(t, err)
	assert.True(t, row.HasSwap)
	assert.True(t, row.HasLP)
	assert.False(t, row.HasAuth)

	require.NoError(t, store.Mark(ctx, "sig-1", domain.ParserAuthority))
	row, err = store.Get(ctx, "sig-1")
	require.NoError(t, err)
	assert.True(t, row.HasAuth)
}

func TestParsedSigStore_MarkRejectsUnknownKind(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewParsedSigStore(pool)

	err := store.Mark(ctx, "sig-1", domain.ParserKind("bogus"))
	assert.Error(t, err)
}

func TestParsedSigStore_GetNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewParsedSigStore(pool)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTxRawStore_FetchAfterSlot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTxRawStore(pool)

	payload := json.RawMessage(`{"slot":1,"meta":null}`)
	require.NoError(t, store.Insert(ctx, &domain.RawTransaction{Signature: "sig-a", Slot: 10, Payload: payload}))
	require.NoError(t, store.Insert(ctx, &domain.RawTransaction{Signature: "sig-b", Slot: 30, Payload: payload}))
	require.NoError(t, store.Insert(ctx, &domain.RawTransaction{Signature: "sig-c", Slot: 20, Payload: payload}))
	// Replay keeps the original row.
	require.NoError(t, store.Insert(ctx, &domain.RawTransaction{Signature: "sig-a", Slot: 999, Payload: payload}))

	txs, err := store.FetchAfterSlot(ctx, 10, 100)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "sig-c", txs[0].Signature)
	assert.Equal(t, "sig-b", txs[1].Signature)
	assert.JSONEq(t, string(payload), string(txs[0].Payload))

	txs, err = store.FetchAfterSlot(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(10), txs[0].Slot)

	txs, err = store.FetchAfterSlot(ctx, 30, 100)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
