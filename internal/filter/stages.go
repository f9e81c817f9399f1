// Package filter evaluates eligibility stages against pair snapshots.
// Stages are pure predicates; the chain short-circuits on first failure.
package filter

import (
	"pairscan/internal/domain"
	"pairscan/internal/history"
)

// Stage names reported in FilterResult.FailedStage.
const (
	StageAge         = "age"
	StageLiquidity   = "liquidity"
	StageVolumeFloor = "volume_floor"
	StageVolumeSpike = "volume_spike"
	StageMarketCap   = "market_cap"
)

// Stage is a single eligibility predicate. Implementations must be
// side-effect free and deterministic for a given input.
type Stage interface {
	// Name identifies the stage in filter results and metrics.
	Name() string

	// Evaluate reports whether the snapshot passes. nowMs is the cycle's
	// evaluation time; hist may be nil for stages that need no history.
	Evaluate(s *domain.Snapshot, hist *history.Window, nowMs int64) bool
}

// AgeStage passes pairs created within MaxAgeMs of evaluation time.
// Pairs with an unknown creation timestamp fail: a pair that cannot
// prove its age is not a fresh pair.
type AgeStage struct {
	MaxAgeMs int64
}

func (a AgeStage) Name() string { return StageAge }

func (a AgeStage) Evaluate(s *domain.Snapshot, _ *history.Window, nowMs int64) bool {
	if s.PairCreatedAt <= 0 {
		return false
	}
	return nowMs-s.PairCreatedAt <= a.MaxAgeMs
}

// LiquidityStage passes snapshots with at least MinLiquidityUSD locked.
type LiquidityStage struct {
	MinLiquidityUSD float64
}

func (l LiquidityStage) Name() string { return StageLiquidity }

func (l LiquidityStage) Evaluate(s *domain.Snapshot, _ *history.Window, _ int64) bool {
	return s.LiquidityUSD >= l.MinLiquidityUSD
}

// VolumeFloorStage passes snapshots with at least MinVolumeUSD of
// absolute 24h volume.
type VolumeFloorStage struct {
	MinVolumeUSD float64
}

func (v VolumeFloorStage) Name() string { return StageVolumeFloor }

func (v VolumeFloorStage) Evaluate(s *domain.Snapshot, _ *history.Window, _ int64) bool {
	return s.Volume24hUSD >= v.MinVolumeUSD
}

// VolumeSpikeStage passes when current volume exceeds the window
// baseline by at least MinSpikeRatio. Baseline is the earliest volume
// in the retained history; a zero baseline is an automatic pass (the
// spike is unbounded, division undefined).
type VolumeSpikeStage struct {
	MinSpikeRatio float64
}

func (v VolumeSpikeStage) Name() string { return StageVolumeSpike }

func (v VolumeSpikeStage) Evaluate(s *domain.Snapshot, hist *history.Window, _ int64) bool {
	if hist == nil {
		return true
	}
	earliest := hist.Earliest()
	if earliest == nil || earliest.Volume24hUSD <= 0 {
		return true
	}
	baseline := earliest.Volume24hUSD
	return (s.Volume24hUSD-baseline)/baseline >= v.MinSpikeRatio
}

// MarketCapStage passes market caps within [MinUSD, MaxUSD]. The stage
// is skipped (pass) when the provider did not supply a market cap; a
// MaxUSD of zero means no upper bound.
type MarketCapStage struct {
	MinUSD float64
	MaxUSD float64
}

func (m MarketCapStage) Name() string { return StageMarketCap }

func (m MarketCapStage) Evaluate(s *domain.Snapshot, _ *history.Window, _ int64) bool {
	if s.MarketCapUSD == nil {
		return true
	}
	mcap := *s.MarketCapUSD
	if mcap < m.MinUSD {
		return false
	}
	if m.MaxUSD > 0 && mcap > m.MaxUSD {
		return false
	}
	return true
}
