package detector

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scf-pipeline/internal/domain"
)

// fakeFeatureStore serves fixed rows and counts heartbeat touches.
type fakeFeatureStore struct {
	rows    []domain.FeatureRow
	touches int
}

func (s *fakeFeatureStore) Upsert(ctx context.Context, snap *domain.FeatureSnapshot) error {
	return nil
}

func (s *fakeFeatureStore) LatestRows(ctx context.Context, limit int) ([]domain.FeatureRow, error) {
	if limit < len(s.rows) {
		return s.rows[:limit], nil
	}
	return s.rows, nil
}

func (s *fakeFeatureStore) TouchDetectorCursor(ctx context.Context) error {
	s.touches++
	return nil
}

type insertedSignal struct {
	pool   string
	reason string
}

// fakeSignalStore dedups in memory per (pool, type).
type fakeSignalStore struct {
	inserted []insertedSignal
	seen     map[string]bool
}

func (s *fakeSignalStore) InsertDeduped(ctx context.Context, pool, signalType, reason string, snapshot json.RawMessage, window time.Duration) (bool, error) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	key := pool + "/" + signalType
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	s.inserted = append(s.inserted, insertedSignal{pool: pool, reason: reason})
	return true, nil
}

func (s *fakeSignalStore) Recent(ctx context.Context, window time.Duration, limit int) ([]*domain.DetectorSignal, error) {
	return nil, nil
}

func newTestWorker(feats *fakeFeatureStore, signals *fakeSignalStore) *Worker {
	return NewWorker(Options{
		Feats:   feats,
		Signals: signals,
		Logger:  log.New(io.Discard, "", 0),
	})
}

func TestWorker_EmitsOnlyPassingPools(t *testing.T) {
	ctx := context.Background()

	passing := passingRow()
	failing := passingRow()
	failing["pool"] = "pool-b"
	failing["wc_quality_arrivals"] = 0.1
	incomplete := domain.FeatureRow{"pool": "pool-c", "atr15": 0.01}
	unnamed := passingRow()
	delete(unnamed, "pool")

	feats := &fakeFeatureStore{rows: []domain.FeatureRow{passing, failing, incomplete, unnamed}}
	signals := &fakeSignalStore{}

	w := newTestWorker(feats, signals)
	require.NoError(t, w.runOnce(ctx))

	require.Len(t, signals.inserted, 1)
	assert.Equal(t, "pool-a", signals.inserted[0].pool)
	assert.Equal(t, DefaultThresholds().PassReason(), signals.inserted[0].reason)
	assert.Equal(t, 1, feats.touches)
}

func TestWorker_SecondSweepIsSuppressed(t *testing.T) {
	ctx := context.Background()

	feats := &fakeFeatureStore{rows: []domain.FeatureRow{passingRow()}}
	signals := &fakeSignalStore{}

	w := newTestWorker(feats, signals)
	require.NoError(t, w.runOnce(ctx))
	require.NoError(t, w.runOnce(ctx))

	assert.Len(t, signals.inserted, 1)
	assert.Equal(t, 2, feats.touches)
}
