package domain

import "time"

// ScoreWeights are the scorer's feature weights. They must sum to 1.0
// within tolerance; profile.Validate enforces this at load time.
type ScoreWeights struct {
	LiquidityDepth float64
	VolumeMomentum float64
	PriceMomentum  float64
	SocialGrowth   float64
}

// Profile is one scanning strategy: filter thresholds, scoring weights
// and alerting policy. Immutable for the lifetime of a scan session.
// "Alpha" and "Gem" are two instances of this type, not two code paths.
type Profile struct {
	Name string

	// Chains scanned each cycle.
	Chains []string

	// Filter thresholds. A zero value disables the corresponding stage.
	MaxAge          time.Duration
	MinLiquidityUSD float64
	MinVolume24hUSD float64
	MinSpikeRatio   float64
	MinMarketCapUSD float64
	MaxMarketCapUSD float64

	Weights ScoreWeights

	// Alerting policy.
	Cooldown      time.Duration
	MinScoreDelta float64

	// History window horizon.
	MaxHistory    int
	MaxHistoryAge time.Duration

	// Scan cadence for pull adapters.
	ScanInterval time.Duration
}
