// Package history maintains per-pair sliding windows of snapshots.
// Windows are owned by a single scan session and are not shared.
package history

import (
	"sort"

	"pairscan/internal/domain"
)

// Window is a bounded, time-ordered sequence of snapshots for one pair.
// Oldest entries are evicted once the horizon is exceeded.
type Window struct {
	maxObservations int
	maxAgeMs        int64
	snaps           []*domain.Snapshot // ordered by ObservedAt ASC
}

// NewWindow creates a window with the given horizon. A zero
// maxObservations or maxAgeMs disables that bound.
func NewWindow(maxObservations int, maxAgeMs int64) *Window {
	return &Window{
		maxObservations: maxObservations,
		maxAgeMs:        maxAgeMs,
	}
}

// Append inserts a snapshot keeping ObservedAt order, then evicts past
// the horizon. A snapshot with the same ObservedAt as an existing entry
// replaces it (re-fetch of the same observation).
func (w *Window) Append(s *domain.Snapshot) {
	idx := sort.Search(len(w.snaps), func(i int) bool {
		return w.snaps[i].ObservedAt >= s.ObservedAt
	})

	if idx < len(w.snaps) && w.snaps[idx].ObservedAt == s.ObservedAt {
		w.snaps[idx] = s
	} else {
		w.snaps = append(w.snaps, nil)
		copy(w.snaps[idx+1:], w.snaps[idx:])
		w.snaps[idx] = s
	}

	w.evict()
}

// evict drops the oldest entries beyond the count or age horizon.
func (w *Window) evict() {
	if w.maxObservations > 0 {
		for len(w.snaps) > w.maxObservations {
			w.snaps = w.snaps[1:]
		}
	}
	if w.maxAgeMs > 0 && len(w.snaps) > 0 {
		cutoff := w.snaps[len(w.snaps)-1].ObservedAt - w.maxAgeMs
		start := 0
		for start < len(w.snaps)-1 && w.snaps[start].ObservedAt < cutoff {
			start++
		}
		w.snaps = w.snaps[start:]
	}
}

// Len returns the number of retained snapshots.
func (w *Window) Len() int {
	return len(w.snaps)
}

// Earliest returns the oldest retained snapshot, or nil when empty.
// The volume-spike baseline is the earliest volume in the window.
func (w *Window) Earliest() *domain.Snapshot {
	if len(w.snaps) == 0 {
		return nil
	}
	return w.snaps[0]
}

// Latest returns the newest retained snapshot, or nil when empty.
func (w *Window) Latest() *domain.Snapshot {
	if len(w.snaps) == 0 {
		return nil
	}
	return w.snaps[len(w.snaps)-1]
}

// Snapshots returns the retained snapshots in ObservedAt order.
// The returned slice is a copy; entries are shared immutable snapshots.
func (w *Window) Snapshots() []*domain.Snapshot {
	out := make([]*domain.Snapshot, len(w.snaps))
	copy(out, w.snaps)
	return out
}

// Book holds the windows for all pairs a session has observed.
type Book struct {
	maxObservations int
	maxAgeMs        int64
	windows         map[domain.PairID]*Window
}

// NewBook creates an empty book; per-pair windows inherit the horizon.
func NewBook(maxObservations int, maxAgeMs int64) *Book {
	return &Book{
		maxObservations: maxObservations,
		maxAgeMs:        maxAgeMs,
		windows:         make(map[domain.PairID]*Window),
	}
}

// Observe appends the snapshot to its pair's window, creating the
// window on first observation, and returns the window.
func (b *Book) Observe(s *domain.Snapshot) *Window {
	w, ok := b.windows[s.Pair]
	if !ok {
		w = NewWindow(b.maxObservations, b.maxAgeMs)
		b.windows[s.Pair] = w
	}
	w.Append(s)
	return w
}

// Window returns the window for a pair, or nil if never observed.
func (b *Book) Window(pair domain.PairID) *Window {
	return b.windows[pair]
}

// Pairs returns the number of tracked pairs.
func (b *Book) Pairs() int {
	return len(b.windows)
}

// PruneBefore removes pairs whose newest observation is older than
// cutoffMs, bounding memory for pairs that stopped appearing in scans.
func (b *Book) PruneBefore(cutoffMs int64) int {
	removed := 0
	for pair, w := range b.windows {
		latest := w.Latest()
		if latest == nil || latest.ObservedAt < cutoffMs {
			delete(b.windows, pair)
			removed++
		}
	}
	return removed
}
