package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairscan/internal/domain"
	"pairscan/internal/history"
)

const hourMs = int64(time.Hour / time.Millisecond)

func testSnap(mutate func(*domain.Snapshot)) *domain.Snapshot {
	now := int64(1_700_000_000_000)
	s := &domain.Snapshot{
		Pair:          domain.PairID{Chain: "solana", Address: "PoolXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX"},
		BaseSymbol:    "WIF",
		QuoteSymbol:   "SOL",
		LiquidityUSD:  5_000,
		Volume24hUSD:  35_000,
		PairCreatedAt: now - 10*hourMs,
		ObservedAt:    now,
	}
	if mutate != nil {
		mutate(s)
	}
	return s
}

func historyWithBaseline(volume float64, s *domain.Snapshot) *history.Window {
	w := history.NewWindow(10, 0)
	base := *s
	base.ObservedAt = s.ObservedAt - hourMs
	base.Volume24hUSD = volume
	w.Append(&base)
	w.Append(s)
	return w
}

func TestAgeStage(t *testing.T) {
	stage := AgeStage{MaxAgeMs: 72 * hourMs}
	now := testSnap(nil).ObservedAt

	assert.True(t, stage.Evaluate(testSnap(nil), nil, now))
	assert.False(t, stage.Evaluate(testSnap(func(s *domain.Snapshot) {
		s.PairCreatedAt = now - 100*hourMs
	}), nil, now))
	// Unknown creation time cannot prove freshness.
	assert.False(t, stage.Evaluate(testSnap(func(s *domain.Snapshot) {
		s.PairCreatedAt = 0
	}), nil, now))
}

func TestLiquidityStage_RejectsBelowMinRegardlessOfOtherFields(t *testing.T) {
	stage := LiquidityStage{MinLiquidityUSD: 2_000}

	rich := testSnap(func(s *domain.Snapshot) {
		s.LiquidityUSD = 1_999.99
		s.Volume24hUSD = 10_000_000 // other fields cannot save it
		s.PriceChange24h = 500
	})
	assert.False(t, stage.Evaluate(rich, nil, rich.ObservedAt))

	ok := testSnap(func(s *domain.Snapshot) { s.LiquidityUSD = 2_000 })
	assert.True(t, stage.Evaluate(ok, nil, ok.ObservedAt))
}

func TestVolumeSpikeStage(t *testing.T) {
	stage := VolumeSpikeStage{MinSpikeRatio: 2.0}

	s := testSnap(func(s *domain.Snapshot) { s.Volume24hUSD = 35_000 })

	// 10k -> 35k is a 250% increase: passes at ratio 2.0.
	assert.True(t, stage.Evaluate(s, historyWithBaseline(10_000, s), s.ObservedAt))

	// 20k -> 35k is only 75%.
	assert.False(t, stage.Evaluate(s, historyWithBaseline(20_000, s), s.ObservedAt))

	// Zero baseline: automatic pass, spike is unbounded.
	assert.True(t, stage.Evaluate(s, historyWithBaseline(0, s), s.ObservedAt))

	// No history at all: automatic pass.
	assert.True(t, stage.Evaluate(s, nil, s.ObservedAt))
}

func TestMarketCapStage(t *testing.T) {
	stage := MarketCapStage{MinUSD: 5_000, MaxUSD: 500_000}
	within := 50_000.0
	below := 1_000.0
	above := 900_000.0

	tests := []struct {
		name string
		mcap *float64
		want bool
	}{
		{"missing market cap is skipped, never a fail", nil, true},
		{"within range", &within, true},
		{"below min", &below, false},
		{"above max", &above, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSnap(func(s *domain.Snapshot) { s.MarketCapUSD = tt.mcap })
			assert.Equal(t, tt.want, stage.Evaluate(s, nil, s.ObservedAt))
		})
	}

	unbounded := MarketCapStage{MinUSD: 5_000}
	s := testSnap(func(s *domain.Snapshot) { s.MarketCapUSD = &above })
	assert.True(t, unbounded.Evaluate(s, nil, s.ObservedAt))
}

func TestChain_ShortCircuitsAtFirstFailingStage(t *testing.T) {
	chain := NewChain(
		AgeStage{MaxAgeMs: 72 * hourMs},
		LiquidityStage{MinLiquidityUSD: 2_000},
		VolumeSpikeStage{MinSpikeRatio: 2.0},
	)

	s := testSnap(func(s *domain.Snapshot) { s.LiquidityUSD = 100 })
	// The spike stage would also fail here, but liquidity is reported:
	// it comes first and the chain stops there.
	res := chain.Evaluate(s, historyWithBaseline(30_000, s), s.ObservedAt)
	require.False(t, res.Pass)
	assert.Equal(t, StageLiquidity, res.FailedStage)
}

func TestChain_GemProfileScenario(t *testing.T) {
	// Pair created 10 hours ago, $5k liquidity, volume up 250% vs
	// baseline: passes every stage of a gem-style profile.
	p := domain.Profile{
		Name:            "gem",
		Chains:          []string{"solana"},
		MaxAge:          72 * time.Hour,
		MinLiquidityUSD: 2_000,
		MinSpikeRatio:   2.0,
	}
	chain := FromProfile(p)

	s := testSnap(nil) // liq 5000, vol 35k, age 10h
	res := chain.Evaluate(s, historyWithBaseline(10_000, s), s.ObservedAt)
	assert.True(t, res.Pass, "failed at %s", res.FailedStage)
}

func TestChain_AlphaProfileRejectsSamePairOnVolumeFloor(t *testing.T) {
	// The same pair under an alpha-style profile fails the absolute
	// volume floor even though the gem profile passed it.
	p := domain.Profile{
		Name:            "alpha",
		Chains:          []string{"solana"},
		MaxAge:          30 * 24 * time.Hour,
		MinVolume24hUSD: 50_000,
	}
	chain := FromProfile(p)

	s := testSnap(nil) // vol 35k < 50k floor
	res := chain.Evaluate(s, historyWithBaseline(10_000, s), s.ObservedAt)
	require.False(t, res.Pass)
	assert.Equal(t, StageVolumeFloor, res.FailedStage)
}

func TestFromProfile_ZeroThresholdsOmitStages(t *testing.T) {
	p := domain.Profile{Name: "bare", Chains: []string{"solana"}, MinLiquidityUSD: 1_000}
	chain := FromProfile(p)
	assert.Equal(t, []string{StageLiquidity}, chain.Stages())
}
