package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"pairscan/internal/alerting"
	"pairscan/internal/domain"
	"pairscan/internal/profile"
	"pairscan/internal/provider"
	"pairscan/internal/provider/dexscreener"
	"pairscan/internal/scanner"
	"pairscan/internal/storage/memory"
)

func main() {
	// Parse flags
	profileName := flag.String("profile", "gem", "Built-in profile name")
	profilePath := flag.String("profile-file", "", "Profile YAML file (overrides --profile)")
	chains := flag.String("chains", "", "Comma-separated chain override")
	cycles := flag.Int("cycles", 1, "Number of scan cycles to run")
	wait := flag.Duration("wait", 30*time.Second, "Delay between cycles when --cycles > 1")
	fetchTimeout := flag.Duration("fetch-timeout", 20*time.Second, "Per-chain fetch timeout")
	flag.Parse()

	logger := log.New(os.Stderr, "[scan] ", log.LstdFlags)

	p, err := resolveProfile(*profileName, *profilePath, *chains)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// One-shot wiring: in-memory records, stdout sink, no archive.
	tracker := alerting.NewTracker(alerting.TrackerOptions{
		Profile:       p.Name,
		Cooldown:      p.Cooldown,
		MinScoreDelta: p.MinScoreDelta,
		Store:         memory.NewAlertRecordStore(),
		Logger:        logger,
	})
	dispatcher := alerting.NewDispatcher(alerting.DispatcherOptions{
		Sinks:  []alerting.Sink{&stdoutSink{}},
		Logger: logger,
	})

	session, err := scanner.NewSession(scanner.Options{
		Profile: p,
		Adapters: []provider.Adapter{
			dexscreener.New(dexscreener.Options{Logger: logger}),
		},
		Tracker:      tracker,
		Dispatcher:   dispatcher,
		Logger:       logger,
		FetchTimeout: *fetchTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Scanning profile %s on chains %v\n", p.Name, p.Chains)

	for i := 0; i < *cycles; i++ {
		if i > 0 {
			logger.Printf("Waiting %s before next cycle", *wait)
			time.Sleep(*wait)
		}

		stats, err := session.RunCycle(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cycle %d: %v\n", i+1, err)
			os.Exit(1)
		}

		// Drain queued alerts to stdout before printing the summary.
		drainCtx, cancel := context.WithCancel(ctx)
		cancel()
		dispatcher.Run(drainCtx)

		fmt.Printf("\nCycle %d/%d: fetched=%d invalid=%d filtered=%d scored=%d alerted=%d suppressed=%d (%s)\n",
			i+1, *cycles, stats.Fetched, stats.Invalid, stats.Filtered,
			stats.Scored, stats.Alerted, stats.Suppressed, stats.Duration.Round(time.Millisecond))
		if stats.ProviderErrors > 0 {
			fmt.Printf("  provider errors: %d\n", stats.ProviderErrors)
		}
	}
}

// resolveProfile loads the profile from a YAML file or the built-ins and
// applies an optional chain override.
func resolveProfile(name, path, chainOverride string) (domain.Profile, error) {
	var (
		p   domain.Profile
		err error
	)

	if path != "" {
		p, err = profile.Load(path)
	} else {
		p, err = profile.Builtin(name)
	}
	if err != nil {
		return domain.Profile{}, err
	}

	if chainOverride != "" {
		var override []string
		for _, c := range strings.Split(chainOverride, ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				override = append(override, c)
			}
		}
		p.Chains = override
	}

	if err := profile.Validate(p); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// stdoutSink prints alerts as aligned rows for terminal reading.
type stdoutSink struct{}

var _ alerting.Sink = (*stdoutSink)(nil)

func (s *stdoutSink) Name() string { return "stdout" }

func (s *stdoutSink) Deliver(_ context.Context, event *domain.AlertEvent) error {
	snap := event.Snapshot
	fmt.Printf("%-16s %-10s %-44s score=%6.2f %-15s liq=$%.0f vol24h=$%.0f\n",
		snap.BaseSymbol, event.Pair.Chain, event.Pair.Address,
		event.Score.Score, event.Score.Category,
		snap.LiquidityUSD, snap.Volume24hUSD)
	return nil
}
