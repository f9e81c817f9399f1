// Package redis provides a Redis-backed implementation of the alert
// record store. Records are stored as JSON values under per-pair keys so
// that multiple scanner instances can share cooldown state.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

const keyPrefix = "pairscan:alert:"

// Options configures the Redis alert record store.
type Options struct {
	Addr     string
	Password string
	DB       int

	// TTL bounds how long a record survives without updates. Zero means
	// records never expire.
	TTL time.Duration
}

// AlertRecordStore persists alert records in Redis.
type AlertRecordStore struct {
	client *redis.Client
	ttl    time.Duration
}

// Compile-time check that AlertRecordStore implements storage.AlertRecordStore.
var _ storage.AlertRecordStore = (*AlertRecordStore)(nil)

// NewAlertRecordStore connects to Redis and verifies the connection.
func NewAlertRecordStore(ctx context.Context, opts Options) (*AlertRecordStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &AlertRecordStore{client: client, ttl: opts.TTL}, nil
}

// NewAlertRecordStoreWithClient wraps an existing client. Used by tests.
func NewAlertRecordStoreWithClient(client *redis.Client, ttl time.Duration) *AlertRecordStore {
	return &AlertRecordStore{client: client, ttl: ttl}
}

func recordKey(profile string, pair domain.PairID) string {
	return keyPrefix + profile + ":" + pair.String()
}

// Load retrieves the alert record for a profile/pair combination.
func (s *AlertRecordStore) Load(ctx context.Context, profile string, pair domain.PairID) (*domain.AlertRecord, error) {
	if profile == "" || pair.Chain == "" || pair.Address == "" {
		return nil, fmt.Errorf("%w: profile and pair are required", storage.ErrInvalidInput)
	}

	data, err := s.client.Get(ctx, recordKey(profile, pair)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: alert record %s/%s", storage.ErrNotFound, profile, pair.String())
		}
		return nil, fmt.Errorf("failed to load alert record: %w", err)
	}

	var rec domain.AlertRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alert record: %w", err)
	}
	return &rec, nil
}

// Save upserts an alert record.
func (s *AlertRecordStore) Save(ctx context.Context, rec *domain.AlertRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: record is nil", storage.ErrInvalidInput)
	}
	if rec.Profile == "" || rec.Pair.Chain == "" || rec.Pair.Address == "" {
		return fmt.Errorf("%w: profile and pair are required", storage.ErrInvalidInput)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal alert record: %w", err)
	}
	if err := s.client.Set(ctx, recordKey(rec.Profile, rec.Pair), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save alert record: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *AlertRecordStore) Close() error {
	return s.client.Close()
}
