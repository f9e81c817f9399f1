// Package stub provides a canned provider adapter for tests and dry
// runs.
package stub

import (
	"context"

	"pairscan/internal/domain"
	"pairscan/internal/provider"
)

// Adapter implements provider.Adapter from in-memory data.
type Adapter struct {
	// AdapterName is reported by Name. Defaults to "stub".
	AdapterName string

	// Snapshots maps chain to the snapshots Fetch returns.
	Snapshots map[string][]*domain.Snapshot

	// Errs maps chain to a forced Fetch error.
	Errs map[string]error

	// FetchFn, when set, overrides the map lookups entirely.
	FetchFn func(ctx context.Context, chain string) ([]*domain.Snapshot, error)

	// Calls counts Fetch invocations per chain.
	Calls map[string]int
}

// New creates an empty stub adapter.
func New() *Adapter {
	return &Adapter{
		Snapshots: make(map[string][]*domain.Snapshot),
		Errs:      make(map[string]error),
		Calls:     make(map[string]int),
	}
}

// Compile-time interface check.
var _ provider.Adapter = (*Adapter)(nil)

func (a *Adapter) Name() string {
	if a.AdapterName != "" {
		return a.AdapterName
	}
	return "stub"
}

// Fetch returns the canned snapshots or error for a chain.
func (a *Adapter) Fetch(ctx context.Context, chain string) ([]*domain.Snapshot, error) {
	if a.Calls != nil {
		a.Calls[chain]++
	}
	if a.FetchFn != nil {
		return a.FetchFn(ctx, chain)
	}
	if err := a.Errs[chain]; err != nil {
		return nil, err
	}
	return a.Snapshots[chain], nil
}
