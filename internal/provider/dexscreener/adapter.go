// Package dexscreener implements the pull adapter for the DexScreener
// public API. One Fetch runs the configured search queries, keeps the
// pairs belonging to the requested chain and normalizes them into
// domain snapshots.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mr-tron/base58"

	"pairscan/internal/domain"
	"pairscan/internal/provider"
)

const (
	defaultBaseURL = "https://api.dexscreener.com/latest"
	adapterName    = "dexscreener"
)

// defaultQueries mirror the discovery terms the engine scans with when
// none are configured. Broad on purpose: the filter chain does the
// narrowing.
var defaultQueries = []string{"new", "launched", "pump", "meme"}

// Options configures the adapter.
type Options struct {
	// BaseURL overrides the API root. Used by tests.
	BaseURL string

	// Queries are the search terms issued per Fetch. Empty uses defaults.
	Queries []string

	// Timeout caps one HTTP request. Zero uses 15s.
	Timeout time.Duration

	Logger *log.Logger
}

// Adapter pulls pair data from DexScreener.
type Adapter struct {
	baseURL string
	queries []string
	client  *resty.Client
	logger  *log.Logger
}

// Compile-time interface check.
var _ provider.Adapter = (*Adapter)(nil)

// New creates a DexScreener adapter.
func New(opts Options) *Adapter {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	queries := opts.Queries
	if len(queries) == 0 {
		queries = defaultQueries
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Adapter{
		baseURL: baseURL,
		queries: queries,
		client:  resty.New().SetTimeout(timeout),
		logger:  logger,
	}
}

func (a *Adapter) Name() string { return adapterName }

// Fetch runs all search queries and returns the chain's pairs as
// snapshots, deduplicated by pair address. Malformed records are skipped
// and counted; only a whole-source failure returns an error.
func (a *Adapter) Fetch(ctx context.Context, chain string) ([]*domain.Snapshot, error) {
	observedAt := time.Now().UnixMilli()

	var (
		snaps   []*domain.Snapshot
		seen    = make(map[string]struct{})
		skipped int
	)

	for _, query := range a.queries {
		pairs, err := a.search(ctx, chain, query)
		if err != nil {
			return nil, err
		}

		for i := range pairs {
			p := &pairs[i]
			if p.ChainID != chain {
				continue
			}
			if _, dup := seen[p.PairAddress]; dup {
				continue
			}

			snap, err := normalize(p, observedAt)
			if err != nil {
				skipped++
				continue
			}

			seen[p.PairAddress] = struct{}{}
			snaps = append(snaps, snap)
		}
	}

	if skipped > 0 {
		a.logger.Printf("[dexscreener] chain=%s skipped %d malformed records", chain, skipped)
	}
	return snaps, nil
}

func (a *Adapter) search(ctx context.Context, chain, query string) ([]wirePair, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get(a.baseURL + "/dex/search")
	if err != nil {
		return nil, &provider.Error{Provider: adapterName, Chain: chain, Op: "fetch", Err: err}
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &provider.Error{
			Provider: adapterName, Chain: chain, Op: "fetch",
			Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode()),
		}
	}

	var result searchResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, &provider.Error{Provider: adapterName, Chain: chain, Op: "decode", Err: err}
	}
	return result.Pairs, nil
}

// normalize converts one wire pair into a validated snapshot.
func normalize(p *wirePair, observedAt int64) (*domain.Snapshot, error) {
	if p.PairAddress == "" {
		return nil, fmt.Errorf("%w: missing pair address", domain.ErrInvalidSnapshot)
	}
	if p.ChainID == "solana" && !validSolanaAddress(p.PairAddress) {
		return nil, fmt.Errorf("%w: malformed solana address %q", domain.ErrInvalidSnapshot, p.PairAddress)
	}

	var priceUSD float64
	if p.PriceUSD != "" {
		v, err := strconv.ParseFloat(p.PriceUSD, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable price %q", domain.ErrInvalidSnapshot, p.PriceUSD)
		}
		priceUSD = v
	}

	marketCap := p.MarketCap
	if marketCap == nil {
		marketCap = p.FDV // fall back to fully diluted valuation
	}

	snap := &domain.Snapshot{
		Pair:           domain.PairID{Chain: p.ChainID, Address: p.PairAddress},
		BaseSymbol:     p.BaseToken.Symbol,
		QuoteSymbol:    p.QuoteToken.Symbol,
		DexID:          p.DexID,
		PriceUSD:       priceUSD,
		LiquidityUSD:   p.Liquidity.USD,
		Volume24hUSD:   p.Volume.H24,
		Volume1hUSD:    p.Volume.H1,
		MarketCapUSD:   marketCap,
		PriceChange5m:  p.PriceChange.M5,
		PriceChange1h:  p.PriceChange.H1,
		PriceChange24h: p.PriceChange.H24,
		PairCreatedAt:  p.PairCreatedAt,
		ObservedAt:     observedAt,
	}

	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// validSolanaAddress reports whether s decodes as a 32-byte base58 key.
func validSolanaAddress(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}
