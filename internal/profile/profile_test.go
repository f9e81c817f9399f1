package profile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Builtins(t *testing.T) {
	require.NoError(t, Validate(Alpha()))
	require.NoError(t, Validate(Gem()))
}

func TestValidate_WeightsMustSumToOne(t *testing.T) {
	p := Gem()
	p.Weights.VolumeMomentum -= 0.1 // sum = 0.9
	err := Validate(p)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "gem", cfgErr.Profile)
	assert.Contains(t, cfgErr.Reason, "weights sum")
}

func TestValidate_WeightToleranceAccepted(t *testing.T) {
	p := Alpha()
	p.Weights.SocialGrowth += 5e-7 // within 1e-6 tolerance
	require.NoError(t, Validate(p))

	p.Weights.SocialGrowth += 1e-5 // beyond tolerance
	require.Error(t, Validate(p))
}

func TestValidate_InvertedMarketCapBounds(t *testing.T) {
	p := Gem()
	p.MinMarketCapUSD = 600_000
	p.MaxMarketCapUSD = 500_000
	err := Validate(p)
	require.Error(t, err)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Reason, "inverted")
}

func TestValidate_RequiresChains(t *testing.T) {
	p := Alpha()
	p.Chains = nil
	require.Error(t, Validate(p))
}

func TestBuiltin_Unknown(t *testing.T) {
	_, err := Builtin("moon")
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_YAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nightowl.yaml")
	data := `
name: nightowl
chains: [solana]
max_age: 12h
min_liquidity_usd: 3000
min_spike_ratio: 1.5
weights:
  liquidity_depth: 0.25
  volume_momentum: 0.25
  price_momentum: 0.25
  social_growth: 0.25
cooldown: 10m
min_score_delta: 4
max_history: 20
max_history_age: 2h
scan_interval: 45s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "nightowl", p.Name)
	assert.Equal(t, 12*time.Hour, p.MaxAge)
	assert.Equal(t, 3000.0, p.MinLiquidityUSD)
	assert.Equal(t, 1.5, p.MinSpikeRatio)
	assert.Equal(t, 45*time.Second, p.ScanInterval)
}

func TestLoad_InvalidWeightsFailFatal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	data := `
name: broken
chains: [solana]
weights:
  liquidity_depth: 0.4
  volume_momentum: 0.4
  price_momentum: 0.1
  social_growth: 0.0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := Load(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoadDir_SortedAndValidated(t *testing.T) {
	dir := t.TempDir()
	write := func(name, profileName string) {
		data := `
name: ` + profileName + `
chains: [solana]
weights:
  liquidity_depth: 0.25
  volume_momentum: 0.25
  price_momentum: 0.25
  social_growth: 0.25
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	write("02_beta.yaml", "beta")
	write("01_alpha.yaml", "alpha")

	profiles, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "alpha", profiles[0].Name)
	assert.Equal(t, "beta", profiles[1].Name)
}
