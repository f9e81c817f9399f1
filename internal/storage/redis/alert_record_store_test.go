package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

func testRecord() *domain.AlertRecord {
	return &domain.AlertRecord{
		Profile:     "gem",
		Pair:        domain.PairID{Chain: "solana", Address: "So11111111111111111111111111111111111111112"},
		LastAlertAt: 1700000000000,
		LastScore:   82.5,
		AlertCount:  3,
		UpdatedAt:   1700000000000,
	}
}

func TestAlertRecordStore_Save(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewAlertRecordStoreWithClient(client, 24*time.Hour)

	rec := testRecord()
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectSet(recordKey(rec.Profile, rec.Pair), data, 24*time.Hour).SetVal("OK")

	require.NoError(t, store.Save(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRecordStore_Load(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewAlertRecordStoreWithClient(client, 0)

	rec := testRecord()
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectGet(recordKey(rec.Profile, rec.Pair)).SetVal(string(data))

	loaded, err := store.Load(context.Background(), rec.Profile, rec.Pair)
	require.NoError(t, err)
	assert.Equal(t, rec, loaded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRecordStore_LoadNotFound(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewAlertRecordStoreWithClient(client, 0)

	pair := domain.PairID{Chain: "solana", Address: "missing"}
	mock.ExpectGet(recordKey("gem", pair)).RedisNil()

	_, err := store.Load(context.Background(), "gem", pair)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAlertRecordStore_InputValidation(t *testing.T) {
	client, _ := redismock.NewClientMock()
	store := NewAlertRecordStoreWithClient(client, 0)
	ctx := context.Background()

	_, err := store.Load(ctx, "", domain.PairID{Chain: "solana", Address: "addr"})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	_, err = store.Load(ctx, "gem", domain.PairID{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	assert.ErrorIs(t, store.Save(ctx, nil), storage.ErrInvalidInput)

	rec := testRecord()
	rec.Pair.Address = ""
	assert.ErrorIs(t, store.Save(ctx, rec), storage.ErrInvalidInput)
}
