package postgres

import (
	"context"
	"fmt"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

// AlertRecordStore implements storage.AlertRecordStore using PostgreSQL.
type AlertRecordStore struct {
	pool *Pool
}

// NewAlertRecordStore creates a new AlertRecordStore.
func NewAlertRecordStore(pool *Pool) *AlertRecordStore {
	return &AlertRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertRecordStore = (*AlertRecordStore)(nil)

// Load retrieves the record for (profile, pair).
// Returns ErrNotFound if the pair has never been alerted.
func (s *AlertRecordStore) Load(ctx context.Context, profile string, pair domain.PairID) (*domain.AlertRecord, error) {
	query := `
		SELECT profile, chain, address, last_alert_at, last_score, alert_count, updated_at
		FROM alert_records
		WHERE profile = $1 AND chain = $2 AND address = $3
	`

	row := s.pool.QueryRow(ctx, query, profile, pair.Chain, pair.Address)

	var rec domain.AlertRecord
	err := row.Scan(
		&rec.Profile,
		&rec.Pair.Chain,
		&rec.Pair.Address,
		&rec.LastAlertAt,
		&rec.LastScore,
		&rec.AlertCount,
		&rec.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("load alert record: %w", err)
	}
	return &rec, nil
}

// Save upserts the record for (rec.Profile, rec.Pair).
func (s *AlertRecordStore) Save(ctx context.Context, rec *domain.AlertRecord) error {
	if rec == nil || rec.Profile == "" || rec.Pair.Chain == "" || rec.Pair.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO alert_records (
			profile, chain, address, last_alert_at, last_score, alert_count, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (profile, chain, address) DO UPDATE SET
			last_alert_at = EXCLUDED.last_alert_at,
			last_score = EXCLUDED.last_score,
			alert_count = EXCLUDED.alert_count,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		rec.Profile,
		rec.Pair.Chain,
		rec.Pair.Address,
		rec.LastAlertAt,
		rec.LastScore,
		rec.AlertCount,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save alert record: %w", err)
	}
	return nil
}
