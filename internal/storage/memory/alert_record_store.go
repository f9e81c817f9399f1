package memory

import (
	"context"
	"sync"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

// AlertRecordStore is an in-memory implementation of storage.AlertRecordStore.
type AlertRecordStore struct {
	mu   sync.RWMutex
	data map[string]*domain.AlertRecord // keyed by profile + "|" + pair
}

// NewAlertRecordStore creates a new in-memory alert record store.
func NewAlertRecordStore() *AlertRecordStore {
	return &AlertRecordStore{
		data: make(map[string]*domain.AlertRecord),
	}
}

// Verify interface compliance at compile time.
var _ storage.AlertRecordStore = (*AlertRecordStore)(nil)

func recordKey(profile string, pair domain.PairID) string {
	return profile + "|" + pair.String()
}

// Load retrieves the record for (profile, pair). Returns ErrNotFound
// if the pair has never been alerted.
func (s *AlertRecordStore) Load(_ context.Context, profile string, pair domain.PairID) (*domain.AlertRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[recordKey(profile, pair)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	// Return a copy
	recCopy := *rec
	return &recCopy, nil
}

// Save upserts the record for (rec.Profile, rec.Pair).
func (s *AlertRecordStore) Save(_ context.Context, rec *domain.AlertRecord) error {
	if rec == nil || rec.Profile == "" || rec.Pair.Chain == "" || rec.Pair.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	recCopy := *rec
	s.data[recordKey(rec.Profile, rec.Pair)] = &recCopy
	return nil
}
