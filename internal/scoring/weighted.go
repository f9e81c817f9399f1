package scoring

import (
	"math"

	"pairscan/internal/domain"
	"pairscan/internal/history"
)

// Normalization scales. Each feature is clipped to [0,1] before
// weighting; these constants define where a feature saturates.
const (
	// liquidityFullDepthUSD: log-scale liquidity saturates at $1M.
	liquidityFullDepthUSD = 1_000_000
	// volumeSpikeSaturation: a 4x volume spike scores 1.0.
	volumeSpikeSaturation = 4.0
	// priceChange1hSaturation / priceChange24hSaturation in percent.
	priceChange1hSaturation  = 50.0
	priceChange24hSaturation = 100.0
	// socialSaturation: 100 mentions score 1.0.
	socialSaturation = 100.0
)

// WeightedScorer is the default scorer: a weighted sum of normalized
// features, scaled to 0-100. Weights come from the scanner profile and
// are validated to sum to 1.0 at profile load.
type WeightedScorer struct {
	weights domain.ScoreWeights
}

// NewWeightedScorer creates a scorer from profile weights. The caller
// is expected to have validated the profile.
func NewWeightedScorer(weights domain.ScoreWeights) *WeightedScorer {
	return &WeightedScorer{weights: weights}
}

var _ Scorer = (*WeightedScorer)(nil)

// Score computes the composite score and its feature breakdown.
func (ws *WeightedScorer) Score(s *domain.Snapshot, hist *history.Window) domain.ScoreResult {
	features := map[string]float64{
		FeatureLiquidityDepth: liquidityDepth(s),
		FeatureVolumeMomentum: volumeMomentum(s, hist),
		FeaturePriceMomentum:  priceMomentum(s),
		FeatureSocialGrowth:   socialGrowth(s),
	}

	score := 100 * (ws.weights.LiquidityDepth*features[FeatureLiquidityDepth] +
		ws.weights.VolumeMomentum*features[FeatureVolumeMomentum] +
		ws.weights.PriceMomentum*features[FeaturePriceMomentum] +
		ws.weights.SocialGrowth*features[FeatureSocialGrowth])

	return domain.ScoreResult{
		Score:    score,
		Features: features,
		Category: domain.CategoryFor(score),
	}
}

// liquidityDepth maps liquidity to [0,1] on a log10 scale: $1 -> 0,
// $1M and above -> 1.
func liquidityDepth(s *domain.Snapshot) float64 {
	if s.LiquidityUSD <= 1 {
		return 0
	}
	return clip01(math.Log10(s.LiquidityUSD) / math.Log10(liquidityFullDepthUSD))
}

// volumeMomentum measures the volume spike against the history
// baseline. Without history it falls back to the 1h-vs-expected-hourly
// ratio, so a single fresh observation still carries a signal.
func volumeMomentum(s *domain.Snapshot, hist *history.Window) float64 {
	ratio := 0.0

	if hist != nil && hist.Earliest() != nil && hist.Earliest().Volume24hUSD > 0 {
		baseline := hist.Earliest().Volume24hUSD
		ratio = (s.Volume24hUSD - baseline) / baseline
	} else if s.Volume24hUSD > 0 && s.Volume1hUSD > 0 {
		expectedHourly := s.Volume24hUSD / 24
		ratio = s.Volume1hUSD/expectedHourly - 1
	}

	if ratio <= 0 {
		return 0
	}
	return clip01(ratio / volumeSpikeSaturation)
}

// priceMomentum blends short- and long-window price changes equally.
// Negative moves contribute nothing; this is an opportunity score.
func priceMomentum(s *domain.Snapshot) float64 {
	short := clip01(s.PriceChange1h / priceChange1hSaturation)
	long := clip01(s.PriceChange24h / priceChange24hSaturation)
	return 0.5*short + 0.5*long
}

// socialGrowth maps the mention count to [0,1]; missing data scores 0.
func socialGrowth(s *domain.Snapshot) float64 {
	if s.SocialMentions == nil {
		return 0
	}
	return clip01(float64(*s.SocialMentions) / socialSaturation)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
