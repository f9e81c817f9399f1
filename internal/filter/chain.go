package filter

import (
	"pairscan/internal/domain"
	"pairscan/internal/history"
)

// Chain runs stages in declared order, cheapest first, and
// short-circuits on the first failing stage.
type Chain struct {
	stages []Stage
}

// NewChain builds a chain from explicit stages, evaluated in order.
func NewChain(stages ...Stage) *Chain {
	return &Chain{stages: stages}
}

// FromProfile assembles the standard chain for a profile. Stages whose
// threshold is zero are omitted entirely. Order: age, liquidity,
// volume floor, volume spike, market cap. History-free checks run first.
func FromProfile(p domain.Profile) *Chain {
	var stages []Stage
	if p.MaxAge > 0 {
		stages = append(stages, AgeStage{MaxAgeMs: p.MaxAge.Milliseconds()})
	}
	if p.MinLiquidityUSD > 0 {
		stages = append(stages, LiquidityStage{MinLiquidityUSD: p.MinLiquidityUSD})
	}
	if p.MinVolume24hUSD > 0 {
		stages = append(stages, VolumeFloorStage{MinVolumeUSD: p.MinVolume24hUSD})
	}
	if p.MinSpikeRatio > 0 {
		stages = append(stages, VolumeSpikeStage{MinSpikeRatio: p.MinSpikeRatio})
	}
	if p.MinMarketCapUSD > 0 || p.MaxMarketCapUSD > 0 {
		stages = append(stages, MarketCapStage{MinUSD: p.MinMarketCapUSD, MaxUSD: p.MaxMarketCapUSD})
	}
	return NewChain(stages...)
}

// Evaluate runs the chain against a snapshot and its history.
func (c *Chain) Evaluate(s *domain.Snapshot, hist *history.Window, nowMs int64) domain.FilterResult {
	for _, stage := range c.stages {
		if !stage.Evaluate(s, hist, nowMs) {
			return domain.FailedAt(stage.Name())
		}
	}
	return domain.Passed()
}

// Stages returns the stage names in evaluation order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, stage := range c.stages {
		names[i] = stage.Name()
	}
	return names
}
