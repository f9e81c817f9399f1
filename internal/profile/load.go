package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"pairscan/internal/domain"
)

// duration parses YAML scalars like "30s" or "72h" via time.ParseDuration.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = duration(parsed)
	return nil
}

// fileProfile is the YAML schema for profile files.
type fileProfile struct {
	Name            string   `yaml:"name"`
	Chains          []string `yaml:"chains"`
	MaxAge          duration `yaml:"max_age"`
	MinLiquidityUSD float64  `yaml:"min_liquidity_usd"`
	MinVolume24hUSD float64  `yaml:"min_volume_24h_usd"`
	MinSpikeRatio   float64  `yaml:"min_spike_ratio"`
	MinMarketCapUSD float64  `yaml:"min_market_cap_usd"`
	MaxMarketCapUSD float64  `yaml:"max_market_cap_usd"`
	Weights         struct {
		LiquidityDepth float64 `yaml:"liquidity_depth"`
		VolumeMomentum float64 `yaml:"volume_momentum"`
		PriceMomentum  float64 `yaml:"price_momentum"`
		SocialGrowth   float64 `yaml:"social_growth"`
	} `yaml:"weights"`
	Cooldown      duration `yaml:"cooldown"`
	MinScoreDelta float64  `yaml:"min_score_delta"`
	MaxHistory    int      `yaml:"max_history"`
	MaxHistoryAge duration `yaml:"max_history_age"`
	ScanInterval  duration `yaml:"scan_interval"`
}

func (f *fileProfile) toDomain() domain.Profile {
	return domain.Profile{
		Name:            f.Name,
		Chains:          f.Chains,
		MaxAge:          time.Duration(f.MaxAge),
		MinLiquidityUSD: f.MinLiquidityUSD,
		MinVolume24hUSD: f.MinVolume24hUSD,
		MinSpikeRatio:   f.MinSpikeRatio,
		MinMarketCapUSD: f.MinMarketCapUSD,
		MaxMarketCapUSD: f.MaxMarketCapUSD,
		Weights: domain.ScoreWeights{
			LiquidityDepth: f.Weights.LiquidityDepth,
			VolumeMomentum: f.Weights.VolumeMomentum,
			PriceMomentum:  f.Weights.PriceMomentum,
			SocialGrowth:   f.Weights.SocialGrowth,
		},
		Cooldown:      time.Duration(f.Cooldown),
		MinScoreDelta: f.MinScoreDelta,
		MaxHistory:    f.MaxHistory,
		MaxHistoryAge: time.Duration(f.MaxHistoryAge),
		ScanInterval:  time.Duration(f.ScanInterval),
	}
}

// Load reads a single profile from a YAML file and validates it.
func Load(path string) (domain.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	var f fileProfile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return domain.Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}

	p := f.toDomain()
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := Validate(p); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// LoadDir loads all *.yaml/*.yml profiles from a directory, sorted by
// file name. Any invalid profile fails the whole load.
func LoadDir(dir string) ([]domain.Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	profiles := make([]domain.Profile, 0, len(files))
	for _, file := range files {
		p, err := Load(filepath.Join(dir, file))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}
