// Package profile validates and supplies scanner profiles.
// A profile that fails validation must never start a scan session.
package profile

import (
	"fmt"
	"math"
	"time"

	"pairscan/internal/domain"
)

// WeightTolerance is the allowed deviation of the weight sum from 1.0.
const WeightTolerance = 1e-6

// ConfigError marks an invalid profile. Fatal at load time.
type ConfigError struct {
	Profile string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid profile %q: %s", e.Profile, e.Reason)
}

func configErrf(name, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Profile: name, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks a profile for configuration errors.
// Returns *ConfigError on the first violation.
func Validate(p domain.Profile) error {
	if p.Name == "" {
		return configErrf(p.Name, "name is required")
	}
	if len(p.Chains) == 0 {
		return configErrf(p.Name, "at least one chain is required")
	}
	if p.MaxAge < 0 || p.MinLiquidityUSD < 0 || p.MinVolume24hUSD < 0 || p.MinSpikeRatio < 0 {
		return configErrf(p.Name, "thresholds must be non-negative")
	}
	if p.MinMarketCapUSD < 0 || p.MaxMarketCapUSD < 0 {
		return configErrf(p.Name, "market cap bounds must be non-negative")
	}
	if p.MaxMarketCapUSD > 0 && p.MinMarketCapUSD > p.MaxMarketCapUSD {
		return configErrf(p.Name, "market cap bounds inverted: min %.0f > max %.0f",
			p.MinMarketCapUSD, p.MaxMarketCapUSD)
	}

	sum := p.Weights.LiquidityDepth + p.Weights.VolumeMomentum +
		p.Weights.PriceMomentum + p.Weights.SocialGrowth
	if math.Abs(sum-1.0) > WeightTolerance {
		return configErrf(p.Name, "scoring weights sum to %.6f, want 1.0", sum)
	}
	if p.Weights.LiquidityDepth < 0 || p.Weights.VolumeMomentum < 0 ||
		p.Weights.PriceMomentum < 0 || p.Weights.SocialGrowth < 0 {
		return configErrf(p.Name, "scoring weights must be non-negative")
	}

	if p.Cooldown < 0 {
		return configErrf(p.Name, "cooldown must be non-negative")
	}
	if p.MinScoreDelta < 0 {
		return configErrf(p.Name, "min score delta must be non-negative")
	}
	if p.MaxHistory < 0 {
		return configErrf(p.Name, "max history must be non-negative")
	}
	return nil
}

// Alpha is the broad momentum-driven profile. Criteria follow the
// alpha scanner: established volume and liquidity, up to 30 days old.
func Alpha() domain.Profile {
	return domain.Profile{
		Name:            "alpha",
		Chains:          []string{"solana", "ethereum", "bsc", "polygon", "arbitrum", "base"},
		MaxAge:          30 * 24 * time.Hour,
		MinLiquidityUSD: 25_000,
		MinVolume24hUSD: 50_000,
		MinMarketCapUSD: 100_000,
		Weights: domain.ScoreWeights{
			LiquidityDepth: 0.20,
			VolumeMomentum: 0.35,
			PriceMomentum:  0.30,
			SocialGrowth:   0.15,
		},
		Cooldown:      30 * time.Minute,
		MinScoreDelta: 5,
		MaxHistory:    48,
		MaxHistoryAge: 24 * time.Hour,
		ScanInterval:  time.Minute,
	}
}

// Gem is the narrow early-stage profile: very young pairs, modest
// liquidity, a strong volume spike, capped market cap.
func Gem() domain.Profile {
	return domain.Profile{
		Name:            "gem",
		Chains:          []string{"solana"},
		MaxAge:          72 * time.Hour,
		MinLiquidityUSD: 2_000,
		MinSpikeRatio:   2.0,
		MinMarketCapUSD: 5_000,
		MaxMarketCapUSD: 500_000,
		Weights: domain.ScoreWeights{
			LiquidityDepth: 0.15,
			VolumeMomentum: 0.45,
			PriceMomentum:  0.25,
			SocialGrowth:   0.15,
		},
		Cooldown:      15 * time.Minute,
		MinScoreDelta: 8,
		MaxHistory:    24,
		MaxHistoryAge: 6 * time.Hour,
		ScanInterval:  30 * time.Second,
	}
}

// Builtin returns a named built-in profile, validated.
func Builtin(name string) (domain.Profile, error) {
	var p domain.Profile
	switch name {
	case "alpha":
		p = Alpha()
	case "gem":
		p = Gem()
	default:
		return domain.Profile{}, configErrf(name, "unknown built-in profile")
	}
	if err := Validate(p); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}
