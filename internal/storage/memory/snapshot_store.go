package memory

import (
	"context"
	"sort"
	"sync"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[domain.PairID]map[int64]*domain.Snapshot // pair -> observed_at -> snapshot
}

// NewSnapshotStore creates a new in-memory snapshot archive.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[domain.PairID]map[int64]*domain.Snapshot),
	}
}

// Verify interface compliance at compile time.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds a batch of snapshots. Fails the entire batch with
// ErrDuplicateKey on any duplicate (pair, observed_at).
func (s *SnapshotStore) InsertBulk(_ context.Context, snaps []*domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Check for intra-batch and existing duplicates before writing
	type key struct {
		pair       domain.PairID
		observedAt int64
	}
	seen := make(map[key]struct{})
	for _, snap := range snaps {
		if snap == nil {
			return storage.ErrInvalidInput
		}
		k := key{snap.Pair, snap.ObservedAt}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		if byTime, ok := s.data[snap.Pair]; ok {
			if _, dup := byTime[snap.ObservedAt]; dup {
				return storage.ErrDuplicateKey
			}
		}
	}

	for _, snap := range snaps {
		byTime, ok := s.data[snap.Pair]
		if !ok {
			byTime = make(map[int64]*domain.Snapshot)
			s.data[snap.Pair] = byTime
		}
		snapCopy := *snap
		byTime[snap.ObservedAt] = &snapCopy
	}
	return nil
}

// GetByPair retrieves archived snapshots for a pair, ordered by
// observation time ASC.
func (s *SnapshotStore) GetByPair(_ context.Context, pair domain.PairID) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Snapshot
	for _, snap := range s.data[pair] {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt < result[j].ObservedAt
	})
	return result, nil
}

// GetByTimeRange retrieves snapshots for a pair within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(_ context.Context, pair domain.PairID, start, end int64) ([]*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Snapshot
	for observedAt, snap := range s.data[pair] {
		if observedAt >= start && observedAt <= end {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt < result[j].ObservedAt
	})
	return result, nil
}
