// Package scoring computes bounded opportunity scores for snapshots.
package scoring

import (
	"pairscan/internal/domain"
	"pairscan/internal/history"
)

// Feature names reported in ScoreResult.Features.
const (
	FeatureLiquidityDepth = "liquidity_depth"
	FeatureVolumeMomentum = "volume_momentum"
	FeaturePriceMomentum  = "price_momentum"
	FeatureSocialGrowth   = "social_growth"
)

// Scorer maps a snapshot and its history to a ScoreResult. This is the
// seam an external scoring model may plug into; implementations must be
// deterministic and side-effect free for a given input.
type Scorer interface {
	Score(s *domain.Snapshot, hist *history.Window) domain.ScoreResult
}
