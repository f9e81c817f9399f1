package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

var testPair = domain.PairID{Chain: "solana", Address: "PoolMemAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"}

func TestAlertRecordStore_LoadMissing(t *testing.T) {
	store := NewAlertRecordStore()

	_, err := store.Load(context.Background(), "gem", testPair)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlertRecordStore_SaveAndLoad(t *testing.T) {
	store := NewAlertRecordStore()
	ctx := context.Background()

	rec := &domain.AlertRecord{
		Profile:     "gem",
		Pair:        testPair,
		LastAlertAt: 1000,
		LastScore:   72.5,
		AlertCount:  1,
		UpdatedAt:   1000,
	}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx, "gem", testPair)
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Same pair under a different profile is a separate record.
	_, err = store.Load(ctx, "alpha", testPair)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlertRecordStore_SaveUpserts(t *testing.T) {
	store := NewAlertRecordStore()
	ctx := context.Background()

	rec := &domain.AlertRecord{Profile: "gem", Pair: testPair, LastAlertAt: 1000, LastScore: 60, AlertCount: 1}
	require.NoError(t, store.Save(ctx, rec))

	rec.LastAlertAt = 2000
	rec.LastScore = 75
	rec.AlertCount = 2
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx, "gem", testPair)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.LastAlertAt)
	assert.Equal(t, 2, got.AlertCount)
}

func TestAlertRecordStore_SaveValidatesInput(t *testing.T) {
	store := NewAlertRecordStore()
	ctx := context.Background()

	require.ErrorIs(t, store.Save(ctx, nil), storage.ErrInvalidInput)
	require.ErrorIs(t, store.Save(ctx, &domain.AlertRecord{Pair: testPair}), storage.ErrInvalidInput)
}

func TestAlertRecordStore_ReturnsCopies(t *testing.T) {
	store := NewAlertRecordStore()
	ctx := context.Background()

	rec := &domain.AlertRecord{Profile: "gem", Pair: testPair, LastScore: 60}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Load(ctx, "gem", testPair)
	require.NoError(t, err)
	got.LastScore = 99

	again, err := store.Load(ctx, "gem", testPair)
	require.NoError(t, err)
	assert.Equal(t, 60.0, again.LastScore)
}
