package clickhouse

import (
	"context"
	"fmt"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

const snapshotColumns = `
	chain, address, base_symbol, quote_symbol, dex_id,
	price_usd, liquidity_usd, volume_24h_usd, volume_1h_usd,
	market_cap_usd, price_change_5m, price_change_1h, price_change_24h,
	social_mentions, pair_created_at, observed_at
`

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails the entire batch on a
// duplicate (pair, observed_at) key.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snaps []*domain.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		pair       domain.PairID
		observedAt int64
	}
	seen := make(map[key]struct{})
	for _, snap := range snaps {
		k := key{snap.Pair, snap.ObservedAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, snap := range snaps {
		exists, err := s.exists(ctx, snap.Pair, snap.ObservedAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO pair_snapshots (`+snapshotColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snaps {
		var social *int32
		if snap.SocialMentions != nil {
			v := int32(*snap.SocialMentions)
			social = &v
		}
		err = batch.Append(
			snap.Pair.Chain, snap.Pair.Address, snap.BaseSymbol, snap.QuoteSymbol, snap.DexID,
			snap.PriceUSD, snap.LiquidityUSD, snap.Volume24hUSD, snap.Volume1hUSD,
			snap.MarketCapUSD, snap.PriceChange5m, snap.PriceChange1h, snap.PriceChange24h,
			social, snap.PairCreatedAt, snap.ObservedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByPair retrieves all snapshots for a pair, ordered by observed_at ASC.
func (s *SnapshotStore) GetByPair(ctx context.Context, pair domain.PairID) ([]*domain.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM pair_snapshots
		WHERE chain = ? AND address = ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, pair.Chain, pair.Address)
	if err != nil {
		return nil, fmt.Errorf("query by pair: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// GetByTimeRange retrieves snapshots for a pair within [start, end] (inclusive).
func (s *SnapshotStore) GetByTimeRange(ctx context.Context, pair domain.PairID, start, end int64) ([]*domain.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM pair_snapshots
		WHERE chain = ? AND address = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`

	rows, err := s.conn.Query(ctx, query, pair.Chain, pair.Address, start, end)
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// exists checks if a snapshot with the given key exists.
func (s *SnapshotStore) exists(ctx context.Context, pair domain.PairID, observedAt int64) (bool, error) {
	query := `
		SELECT count(*) FROM pair_snapshots
		WHERE chain = ? AND address = ? AND observed_at = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, pair.Chain, pair.Address, observedAt).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanSnapshots scans multiple rows.
func scanSnapshots(rows chRows) ([]*domain.Snapshot, error) {
	var snaps []*domain.Snapshot

	for rows.Next() {
		var snap domain.Snapshot
		var social *int32

		err := rows.Scan(
			&snap.Pair.Chain, &snap.Pair.Address, &snap.BaseSymbol, &snap.QuoteSymbol, &snap.DexID,
			&snap.PriceUSD, &snap.LiquidityUSD, &snap.Volume24hUSD, &snap.Volume1hUSD,
			&snap.MarketCapUSD, &snap.PriceChange5m, &snap.PriceChange1h, &snap.PriceChange24h,
			&social, &snap.PairCreatedAt, &snap.ObservedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		if social != nil {
			v := int(*social)
			snap.SocialMentions = &v
		}
		snaps = append(snaps, &snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}
