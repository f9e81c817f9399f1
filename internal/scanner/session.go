// Package scanner runs the scan loop: fetch snapshots from providers,
// filter, score, decide alerts and hand them to the dispatcher.
// Flow per cycle: Fetching → Filtering → Scoring → Deciding → Dispatching.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pairscan/internal/alerting"
	"pairscan/internal/domain"
	"pairscan/internal/filter"
	"pairscan/internal/history"
	"pairscan/internal/observability"
	"pairscan/internal/profile"
	"pairscan/internal/provider"
	"pairscan/internal/scoring"
	"pairscan/internal/storage"
)

// State is the session's position in the cycle state machine.
type State string

// Session states. A session is Idle between cycles.
const (
	StateIdle        State = "idle"
	StateFetching    State = "fetching"
	StateFiltering   State = "filtering"
	StateScoring     State = "scoring"
	StateDeciding    State = "deciding"
	StateDispatching State = "dispatching"
)

// Options for creating a Session.
type Options struct {
	// Profile drives thresholds, weights and cadence. Validated at
	// construction; an invalid profile is fatal.
	Profile domain.Profile

	// Adapters are the snapshot sources, fanned out per chain each cycle.
	Adapters []provider.Adapter

	// Scorer defaults to the profile's weighted scorer when nil.
	Scorer scoring.Scorer

	Tracker    *alerting.Tracker
	Dispatcher *alerting.Dispatcher

	// Archive optionally persists every valid snapshot. Nil disables.
	Archive storage.SnapshotStore

	// Metrics is optional. Nil disables instrumentation.
	Metrics *observability.Metrics

	Logger *log.Logger

	// FetchTimeout caps one adapter fetch for one chain. Zero uses 20s.
	FetchTimeout time.Duration

	// CycleTimeout caps a whole cycle. Zero uses 2m.
	CycleTimeout time.Duration

	// NowMs overrides the clock. Used by tests.
	NowMs func() int64
}

const (
	defaultFetchTimeout = 20 * time.Second
	defaultCycleTimeout = 2 * time.Minute
)

// Session owns one profile's scan loop and all its per-pair state.
// A session is single-threaded: one cycle runs at a time.
type Session struct {
	profile    domain.Profile
	adapters   []provider.Adapter
	chain      *filter.Chain
	scorer     scoring.Scorer
	tracker    *alerting.Tracker
	dispatcher *alerting.Dispatcher
	archive    storage.SnapshotStore
	metrics    *observability.Metrics
	logger     *log.Logger

	fetchTimeout time.Duration
	cycleTimeout time.Duration
	nowMs        func() int64

	book *history.Book

	stateMu sync.Mutex
	state   State
}

// CycleStats summarizes one completed cycle.
type CycleStats struct {
	Fetched        int
	ProviderErrors int
	Invalid        int
	Filtered       int
	Scored         int
	Alerted        int
	Suppressed     int
	Dropped        int
	Duration       time.Duration
}

// NewSession creates a Session for a profile. Returns a
// *profile.ConfigError when the profile is invalid.
func NewSession(opts Options) (*Session, error) {
	if err := profile.Validate(opts.Profile); err != nil {
		return nil, err
	}
	if len(opts.Adapters) == 0 {
		return nil, fmt.Errorf("session %s: at least one adapter required", opts.Profile.Name)
	}
	if opts.Tracker == nil || opts.Dispatcher == nil {
		return nil, fmt.Errorf("session %s: tracker and dispatcher required", opts.Profile.Name)
	}

	scorer := opts.Scorer
	if scorer == nil {
		scorer = scoring.NewWeightedScorer(opts.Profile.Weights)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = defaultFetchTimeout
	}
	cycleTimeout := opts.CycleTimeout
	if cycleTimeout <= 0 {
		cycleTimeout = defaultCycleTimeout
	}
	nowMs := opts.NowMs
	if nowMs == nil {
		nowMs = func() int64 { return time.Now().UnixMilli() }
	}
	if opts.Profile.ScanInterval <= 0 {
		opts.Profile.ScanInterval = time.Minute
	}

	return &Session{
		profile:      opts.Profile,
		adapters:     opts.Adapters,
		chain:        filter.FromProfile(opts.Profile),
		scorer:       scorer,
		tracker:      opts.Tracker,
		dispatcher:   opts.Dispatcher,
		archive:      opts.Archive,
		metrics:      opts.Metrics,
		logger:       logger,
		fetchTimeout: fetchTimeout,
		cycleTimeout: cycleTimeout,
		nowMs:        nowMs,
		book:         history.NewBook(opts.Profile.MaxHistory, opts.Profile.MaxHistoryAge.Milliseconds()),
		state:        StateIdle,
	}, nil
}

// State returns the session's current cycle phase.
func (s *Session) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Session) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// Run executes cycles at the profile's scan interval until ctx is
// canceled. An in-flight cycle always completes: cycles run on a
// detached timeout context, so cancellation takes effect between
// cycles, never in the middle of one.
func (s *Session) Run(ctx context.Context) {
	ticker := time.NewTicker(s.profile.ScanInterval)
	defer ticker.Stop()

	s.runDetachedCycle()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runDetachedCycle()
		}
	}
}

func (s *Session) runDetachedCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cycleTimeout)
	defer cancel()

	stats, err := s.RunCycle(ctx)
	if err != nil {
		s.logger.Printf("[scanner] profile=%s cycle failed: %v", s.profile.Name, err)
		return
	}
	s.logger.Printf("[scanner] profile=%s cycle done: fetched=%d invalid=%d filtered=%d scored=%d alerted=%d suppressed=%d dropped=%d providerErrors=%d in %s",
		s.profile.Name, stats.Fetched, stats.Invalid, stats.Filtered, stats.Scored,
		stats.Alerted, stats.Suppressed, stats.Dropped, stats.ProviderErrors, stats.Duration)
}

// RunCycle executes one full scan cycle. Provider failures degrade the
// cycle (the failing adapter/chain contributes nothing); the cycle only
// errors when every fetch failed or the context was canceled.
func (s *Session) RunCycle(ctx context.Context) (CycleStats, error) {
	started := time.Now()
	stats := CycleStats{}
	defer func() {
		stats.Duration = time.Since(started)
		s.setState(StateIdle)
	}()

	// Fetching
	s.setState(StateFetching)
	snaps, fetchErrs := s.fetchAll(ctx)
	stats.Fetched = len(snaps)
	stats.ProviderErrors = fetchErrs

	if err := ctx.Err(); err != nil {
		s.countCycle("canceled")
		return stats, err
	}
	if len(snaps) == 0 && fetchErrs > 0 {
		s.countCycle("failed")
		return stats, fmt.Errorf("profile %s: all provider fetches failed", s.profile.Name)
	}

	s.archiveSnapshots(ctx, snaps)

	// Filtering
	s.setState(StateFiltering)
	type scoredPair struct {
		snap  *domain.Snapshot
		hist  *history.Window
		score domain.ScoreResult
	}
	var survivors []scoredPair

	nowMs := s.nowMs()
	for _, snap := range snaps {
		if err := snap.Validate(); err != nil {
			stats.Invalid++
			continue
		}

		// Evaluate against history that predates this snapshot: a first
		// sighting has no baseline, which the spike stage treats as an
		// automatic pass. The snapshot is observed either way so
		// baselines build for pairs that fail early stages.
		result := s.chain.Evaluate(snap, s.book.Window(snap.Pair), nowMs)

		hist := s.book.Observe(snap)
		if !result.Pass {
			stats.Filtered++
			if s.metrics != nil {
				s.metrics.PairsFiltered.WithLabelValues(s.profile.Name, result.FailedStage).Inc()
			}
			continue
		}
		survivors = append(survivors, scoredPair{snap: snap, hist: hist})
	}
	if s.metrics != nil {
		s.metrics.RecordsSkipped.WithLabelValues(s.profile.Name).Add(float64(stats.Invalid))
		s.metrics.HistoryWindows.WithLabelValues(s.profile.Name).Set(float64(s.book.Pairs()))
	}

	// Scoring
	s.setState(StateScoring)
	for i := range survivors {
		survivors[i].score = s.scorer.Score(survivors[i].snap, survivors[i].hist)
		stats.Scored++
		if s.metrics != nil {
			s.metrics.PairsScored.WithLabelValues(s.profile.Name).Inc()
			s.metrics.ScoreDistribution.WithLabelValues(s.profile.Name).Observe(survivors[i].score.Score)
		}
	}

	// Deciding
	s.setState(StateDeciding)
	var alerts []*domain.AlertEvent
	for _, sp := range survivors {
		if !s.tracker.DecideAndRecord(ctx, sp.snap.Pair, sp.score.Score, nowMs) {
			stats.Suppressed++
			if s.metrics != nil {
				s.metrics.AlertsSuppressed.WithLabelValues(s.profile.Name).Inc()
			}
			continue
		}
		alerts = append(alerts, &domain.AlertEvent{
			Pair:      sp.snap.Pair,
			Profile:   s.profile.Name,
			Snapshot:  sp.snap,
			Score:     sp.score,
			Timestamp: nowMs,
		})
	}
	if s.metrics != nil {
		s.metrics.TrackedPairs.WithLabelValues(s.profile.Name).Set(float64(s.tracker.Len()))
	}

	// Dispatching
	s.setState(StateDispatching)
	for _, event := range alerts {
		if err := s.dispatcher.Enqueue(event); err != nil {
			stats.Dropped++
			if s.metrics != nil {
				s.metrics.AlertsDropped.WithLabelValues(s.profile.Name).Inc()
			}
			s.logger.Printf("[scanner] profile=%s dropped alert %s: %v", s.profile.Name, event.Pair, err)
			continue
		}
		stats.Alerted++
		if s.metrics != nil {
			s.metrics.AlertsEmitted.WithLabelValues(s.profile.Name, string(event.Score.Category)).Inc()
		}
	}

	// Bound memory for pairs that stopped appearing.
	if s.profile.MaxHistoryAge > 0 {
		s.book.PruneBefore(nowMs - s.profile.MaxHistoryAge.Milliseconds())
	}

	status := "ok"
	if fetchErrs > 0 {
		status = "degraded"
	}
	s.countCycle(status)
	if s.metrics != nil {
		s.metrics.CycleDuration.WithLabelValues(s.profile.Name).Observe(time.Since(started).Seconds())
		s.metrics.LastSuccessfulCycle.WithLabelValues(s.profile.Name).Set(float64(s.nowMs()) / 1000)
	}
	return stats, nil
}

// fetchAll fans out one fetch per adapter per chain, each under its own
// timeout, and merges the results deduplicated by pair (newest
// observation wins). Returns the merged snapshots and the failure count.
func (s *Session) fetchAll(ctx context.Context) ([]*domain.Snapshot, int) {
	type fetchResult struct {
		adapter string
		chain   string
		snaps   []*domain.Snapshot
		err     error
	}

	results := make(chan fetchResult, len(s.adapters)*len(s.profile.Chains))
	var wg sync.WaitGroup

	for _, adapter := range s.adapters {
		for _, chain := range s.profile.Chains {
			wg.Add(1)
			go func(adapter provider.Adapter, chain string) {
				defer wg.Done()

				fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
				defer cancel()

				fetchStart := time.Now()
				snaps, err := adapter.Fetch(fetchCtx, chain)
				if s.metrics != nil {
					s.metrics.FetchesTotal.WithLabelValues(adapter.Name(), chain).Inc()
					s.metrics.FetchLatency.WithLabelValues(adapter.Name()).Observe(time.Since(fetchStart).Seconds())
				}
				results <- fetchResult{adapter: adapter.Name(), chain: chain, snaps: snaps, err: err}
			}(adapter, chain)
		}
	}

	wg.Wait()
	close(results)

	merged := make(map[domain.PairID]*domain.Snapshot)
	failures := 0

	for res := range results {
		if res.err != nil {
			failures++
			if s.metrics != nil {
				s.metrics.FetchErrors.WithLabelValues(res.adapter, res.chain).Inc()
			}
			var provErr *provider.Error
			if errors.As(res.err, &provErr) {
				s.logger.Printf("[scanner] profile=%s %v", s.profile.Name, provErr)
			} else {
				s.logger.Printf("[scanner] profile=%s fetch %s/%s: %v", s.profile.Name, res.adapter, res.chain, res.err)
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.SnapshotsFetched.WithLabelValues(res.adapter, res.chain).Add(float64(len(res.snaps)))
		}
		for _, snap := range res.snaps {
			if prev, ok := merged[snap.Pair]; ok && prev.ObservedAt >= snap.ObservedAt {
				continue
			}
			merged[snap.Pair] = snap
		}
	}

	snaps := make([]*domain.Snapshot, 0, len(merged))
	for _, snap := range merged {
		snaps = append(snaps, snap)
	}
	return snaps, failures
}

// archiveSnapshots persists the cycle's snapshots, best effort.
// Duplicate keys happen when a provider re-serves an observation and are
// not failures.
func (s *Session) archiveSnapshots(ctx context.Context, snaps []*domain.Snapshot) {
	if s.archive == nil || len(snaps) == 0 {
		return
	}
	if err := s.archive.InsertBulk(ctx, snaps); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return
		}
		s.logger.Printf("[scanner] profile=%s archive: %v", s.profile.Name, err)
	}
}

func (s *Session) countCycle(status string) {
	if s.metrics != nil {
		s.metrics.CyclesTotal.WithLabelValues(s.profile.Name, status).Inc()
	}
}
