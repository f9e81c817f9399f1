package storage

import (
	"context"

	"pairscan/internal/domain"
)

// AlertRecordStore is the optional durable backing for alert state.
// The engine works without one (the tracker is in-memory); a store
// only adds durability across restarts.
type AlertRecordStore interface {
	// Load retrieves the record for (profile, pair).
	// Returns ErrNotFound if the pair has never been alerted.
	Load(ctx context.Context, profile string, pair domain.PairID) (*domain.AlertRecord, error)

	// Save upserts the record for (rec.Profile, rec.Pair). Alert records
	// are mutable by nature: each alert overwrites the last.
	Save(ctx context.Context, rec *domain.AlertRecord) error
}

// SnapshotStore archives observed snapshots for later analysis.
// Append-only: InsertBulk returns ErrDuplicateKey when a snapshot for
// the same (pair, observed_at) already exists.
type SnapshotStore interface {
	// InsertBulk adds a batch of snapshots.
	InsertBulk(ctx context.Context, snaps []*domain.Snapshot) error

	// GetByPair retrieves archived snapshots for a pair, ordered by
	// observation time ASC.
	GetByPair(ctx context.Context, pair domain.PairID) ([]*domain.Snapshot, error)

	// GetByTimeRange retrieves snapshots for a pair within [start, end]
	// (inclusive, milliseconds), ordered by observation time ASC.
	GetByTimeRange(ctx context.Context, pair domain.PairID, start, end int64) ([]*domain.Snapshot, error)
}
