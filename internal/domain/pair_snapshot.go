package domain

import (
	"errors"
	"fmt"
)

// Snapshot validation errors.
var (
	// ErrInvalidSnapshot is returned when a snapshot fails field validation.
	// Malformed records are skipped and counted, never aborting a batch.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// PairID uniquely identifies a tradable pair: chain + pool contract address.
type PairID struct {
	Chain   string
	Address string
}

// String returns the canonical "chain:address" form used as a storage key.
func (p PairID) String() string {
	return p.Chain + ":" + p.Address
}

// Snapshot is one observation of a pair's market state at a point in time.
// Immutable once constructed. Two snapshots of the same pair are ordered
// by ObservedAt.
type Snapshot struct {
	Pair        PairID
	BaseSymbol  string
	QuoteSymbol string
	DexID       string

	PriceUSD     float64
	LiquidityUSD float64
	Volume24hUSD float64
	Volume1hUSD  float64
	MarketCapUSD *float64 // nil when the provider did not supply it

	// Price change percentages over standard windows.
	PriceChange5m  float64
	PriceChange1h  float64
	PriceChange24h float64

	SocialMentions *int // nil when the provider did not supply it

	PairCreatedAt int64 // Unix timestamp in milliseconds
	ObservedAt    int64 // Unix timestamp in milliseconds
}

// Validate checks snapshot field invariants.
// Returns an error wrapping ErrInvalidSnapshot on the first violation.
func (s *Snapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}
	if s.Pair.Chain == "" || s.Pair.Address == "" {
		return fmt.Errorf("%w: missing pair identifier", ErrInvalidSnapshot)
	}
	if s.ObservedAt <= 0 {
		return fmt.Errorf("%w: missing observation timestamp", ErrInvalidSnapshot)
	}
	if s.PairCreatedAt > 0 && s.ObservedAt < s.PairCreatedAt {
		return fmt.Errorf("%w: observed before pair creation (pair=%s)", ErrInvalidSnapshot, s.Pair)
	}
	if s.LiquidityUSD < 0 {
		return fmt.Errorf("%w: negative liquidity (pair=%s)", ErrInvalidSnapshot, s.Pair)
	}
	if s.Volume24hUSD < 0 || s.Volume1hUSD < 0 {
		return fmt.Errorf("%w: negative volume (pair=%s)", ErrInvalidSnapshot, s.Pair)
	}
	return nil
}

// AgeMs returns the pair age at observation time, in milliseconds.
// Returns 0 when the creation timestamp is unknown.
func (s *Snapshot) AgeMs() int64 {
	if s.PairCreatedAt <= 0 {
		return 0
	}
	return s.ObservedAt - s.PairCreatedAt
}
