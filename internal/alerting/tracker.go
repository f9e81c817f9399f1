// Package alerting owns the alert lifecycle after scoring: the per-pair
// state tracker that decides whether an alert fires, the bounded dispatch
// queue, and the delivery sinks.
package alerting

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"math"
	"sync"
	"time"

	"pairscan/internal/domain"
	"pairscan/internal/storage"
)

const trackerShards = 16

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// Profile names the scan profile this tracker serves. Records are
	// keyed per profile so the same pair can alert independently under
	// different profiles.
	Profile string

	// Cooldown is the minimum interval between alerts for the same pair.
	Cooldown time.Duration

	// MinScoreDelta is the minimum score movement (in either direction)
	// required to re-alert after the cooldown has elapsed.
	MinScoreDelta float64

	// MaxEntries bounds the number of in-memory records. Zero uses a
	// default. Least recently updated records are evicted first.
	MaxEntries int

	// Store optionally persists records across restarts. Load and save
	// failures are logged and never block alerting.
	Store storage.AlertRecordStore

	Logger *log.Logger
}

const defaultMaxEntries = 16384

// Tracker decides whether a scored pair should alert, and remembers the
// outcome. The decision and the commit happen under the same per-pair
// critical section, so two concurrent evaluations of one pair can never
// both fire.
type Tracker struct {
	profile       string
	cooldownMs    int64
	minScoreDelta float64
	maxPerShard   int
	store         storage.AlertRecordStore
	logger        *log.Logger

	shards [trackerShards]trackerShard
}

type trackerShard struct {
	mu      sync.Mutex
	records map[domain.PairID]*domain.AlertRecord
}

// NewTracker creates a Tracker.
func NewTracker(opts TrackerOptions) *Tracker {
	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	maxPerShard := maxEntries / trackerShards
	if maxPerShard < 1 {
		maxPerShard = 1
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	t := &Tracker{
		profile:       opts.Profile,
		cooldownMs:    opts.Cooldown.Milliseconds(),
		minScoreDelta: opts.MinScoreDelta,
		maxPerShard:   maxPerShard,
		store:         opts.Store,
		logger:        logger,
	}
	for i := range t.shards {
		t.shards[i].records = make(map[domain.PairID]*domain.AlertRecord)
	}
	return t
}

func (t *Tracker) shardFor(pair domain.PairID) *trackerShard {
	h := fnv.New32a()
	h.Write([]byte(pair.Chain))
	h.Write([]byte{':'})
	h.Write([]byte(pair.Address))
	return &t.shards[h.Sum32()%trackerShards]
}

// ShouldAlert reports whether an alert would fire for the pair at the
// given score and time, without committing anything.
func (t *Tracker) ShouldAlert(ctx context.Context, pair domain.PairID, score float64, nowMs int64) bool {
	shard := t.shardFor(pair)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	return t.decide(t.lookup(ctx, shard, pair), score, nowMs)
}

// Record commits an alert for the pair. Call only after the alert has
// been accepted for dispatch.
func (t *Tracker) Record(ctx context.Context, pair domain.PairID, score float64, nowMs int64) {
	shard := t.shardFor(pair)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	t.commit(ctx, shard, pair, score, nowMs)
}

// DecideAndRecord atomically decides and, when the decision is to alert,
// commits the record in the same critical section. This is what the scan
// cycle uses: the record is written before dispatch, so a crash or a
// failed delivery results in a missed alert rather than a duplicate.
func (t *Tracker) DecideAndRecord(ctx context.Context, pair domain.PairID, score float64, nowMs int64) bool {
	shard := t.shardFor(pair)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if !t.decide(t.lookup(ctx, shard, pair), score, nowMs) {
		return false
	}
	t.commit(ctx, shard, pair, score, nowMs)
	return true
}

// Len returns the number of in-memory records.
func (t *Tracker) Len() int {
	n := 0
	for i := range t.shards {
		t.shards[i].mu.Lock()
		n += len(t.shards[i].records)
		t.shards[i].mu.Unlock()
	}
	return n
}

// decide applies the re-alert rule: first sight always fires; afterwards
// the cooldown must have fully elapsed and the score must have moved by
// at least the minimum delta, in either direction.
func (t *Tracker) decide(rec *domain.AlertRecord, score float64, nowMs int64) bool {
	if rec == nil {
		return true
	}
	if nowMs-rec.LastAlertAt < t.cooldownMs {
		return false
	}
	if math.Abs(score-rec.LastScore) < t.minScoreDelta {
		return false
	}
	return true
}

// lookup returns the record for a pair, consulting the durable store on
// an in-memory miss. Caller holds the shard lock.
func (t *Tracker) lookup(ctx context.Context, shard *trackerShard, pair domain.PairID) *domain.AlertRecord {
	if rec, ok := shard.records[pair]; ok {
		return rec
	}
	if t.store == nil {
		return nil
	}

	rec, err := t.store.Load(ctx, t.profile, pair)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			t.logger.Printf("[tracker] load record %s: %v", pair, err)
		}
		return nil
	}

	shard.records[pair] = rec
	t.evict(shard)
	return rec
}

// commit writes the record in memory and best-effort to the durable
// store. Caller holds the shard lock.
func (t *Tracker) commit(ctx context.Context, shard *trackerShard, pair domain.PairID, score float64, nowMs int64) {
	rec, ok := shard.records[pair]
	if !ok {
		rec = &domain.AlertRecord{Profile: t.profile, Pair: pair}
		shard.records[pair] = rec
	}
	rec.LastAlertAt = nowMs
	rec.LastScore = score
	rec.AlertCount++
	rec.UpdatedAt = nowMs

	t.evict(shard)

	if t.store != nil {
		if err := t.store.Save(ctx, rec); err != nil {
			t.logger.Printf("[tracker] save record %s: %v", pair, err)
		}
	}
}

// evict drops least recently updated records while the shard is over its
// cap. Caller holds the shard lock.
func (t *Tracker) evict(shard *trackerShard) {
	for len(shard.records) > t.maxPerShard {
		var (
			oldestPair domain.PairID
			oldestAt   int64 = math.MaxInt64
		)
		for pair, rec := range shard.records {
			if rec.UpdatedAt < oldestAt {
				oldestAt = rec.UpdatedAt
				oldestPair = pair
			}
		}
		delete(shard.records, oldestPair)
	}
}
