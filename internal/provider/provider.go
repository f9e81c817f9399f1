// Package provider defines the adapter seam between external market-data
// sources and the scan engine. Adapters translate whatever a source
// speaks into validated domain snapshots.
package provider

import (
	"context"
	"fmt"

	"pairscan/internal/domain"
)

// Adapter is a source of pair snapshots for one or more chains.
// Fetch returns whatever the source currently knows for the chain; push
// based adapters buffer incoming records and drain the buffer here, so
// the orchestrator sees one contract.
type Adapter interface {
	// Name identifies the adapter in logs and metrics.
	Name() string

	// Fetch returns snapshots for a chain. A non-nil error means the
	// source failed as a whole; individual malformed records are
	// skipped by the adapter, never surfaced as an error.
	Fetch(ctx context.Context, chain string) ([]*domain.Snapshot, error)
}

// Error reports a provider-level failure: the source was unreachable,
// timed out, or returned an undecodable payload.
type Error struct {
	Provider string
	Chain    string
	Op       string // "fetch", "decode", "connect"
	Err      error
}

func (e *Error) Error() string {
	if e.Chain != "" {
		return fmt.Sprintf("provider %s: %s %s: %v", e.Provider, e.Op, e.Chain, e.Err)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
