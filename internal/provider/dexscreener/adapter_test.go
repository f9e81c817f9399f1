package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairscan/internal/domain"
	"pairscan/internal/provider"
)

// Valid 32-byte base58 addresses.
const (
	wsolMint    = "So11111111111111111111111111111111111111112"
	raydiumAMM  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	createdAtMs = int64(1_700_000_000_000)
)

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter := New(Options{BaseURL: server.URL, Queries: []string{"new"}})
	return adapter, server
}

func searchPayload(pairs string) string {
	return `{"pairs":[` + pairs + `]}`
}

func solanaPair(address, symbol string) string {
	return `{
		"chainId": "solana",
		"dexId": "raydium",
		"pairAddress": "` + address + `",
		"baseToken": {"address": "` + address + `", "symbol": "` + symbol + `"},
		"quoteToken": {"address": "` + wsolMint + `", "symbol": "SOL"},
		"priceUsd": "0.00123",
		"liquidity": {"usd": 5000},
		"volume": {"h24": 35000, "h1": 4000},
		"priceChange": {"m5": 1.5, "h1": 12, "h24": 80},
		"marketCap": 250000,
		"pairCreatedAt": 1700000000000
	}`
}

func TestAdapter_FetchNormalizes(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/dex/search", r.URL.Path)
		assert.Equal(t, "new", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchPayload(solanaPair(raydiumAMM, "GEM"))))
	})

	snaps, err := adapter.Fetch(context.Background(), "solana")
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	snap := snaps[0]
	assert.Equal(t, domain.PairID{Chain: "solana", Address: raydiumAMM}, snap.Pair)
	assert.Equal(t, "GEM", snap.BaseSymbol)
	assert.Equal(t, "SOL", snap.QuoteSymbol)
	assert.Equal(t, "raydium", snap.DexID)
	assert.Equal(t, 0.00123, snap.PriceUSD)
	assert.Equal(t, 5000.0, snap.LiquidityUSD)
	assert.Equal(t, 35000.0, snap.Volume24hUSD)
	assert.Equal(t, 4000.0, snap.Volume1hUSD)
	require.NotNil(t, snap.MarketCapUSD)
	assert.Equal(t, 250000.0, *snap.MarketCapUSD)
	assert.Equal(t, 12.0, snap.PriceChange1h)
	assert.Equal(t, createdAtMs, snap.PairCreatedAt)
	assert.Greater(t, snap.ObservedAt, createdAtMs)
}

func TestAdapter_FetchFiltersOtherChains(t *testing.T) {
	ethPair := `{
		"chainId": "ethereum",
		"dexId": "uniswap",
		"pairAddress": "0xabc",
		"baseToken": {"symbol": "ALPHA"},
		"quoteToken": {"symbol": "WETH"},
		"priceUsd": "1.0",
		"liquidity": {"usd": 90000},
		"volume": {"h24": 120000, "h1": 8000},
		"priceChange": {},
		"pairCreatedAt": 1700000000000
	}`
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchPayload(solanaPair(raydiumAMM, "GEM") + "," + ethPair)))
	})

	snaps, err := adapter.Fetch(context.Background(), "ethereum")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "ethereum", snaps[0].Pair.Chain)
	assert.Equal(t, "0xabc", snaps[0].Pair.Address)
}

func TestAdapter_FetchSkipsMalformedRecords(t *testing.T) {
	// One good record, one with an address that is not a 32-byte key,
	// one with an unparseable price. Only the good one survives; the
	// batch never aborts.
	badAddress := solanaPair("not-a-real-address!!", "BAD")
	badPrice := `{
		"chainId": "solana",
		"dexId": "raydium",
		"pairAddress": "` + wsolMint + `",
		"baseToken": {"symbol": "X"},
		"quoteToken": {"symbol": "SOL"},
		"priceUsd": "not-a-number",
		"liquidity": {"usd": 100},
		"volume": {"h24": 100, "h1": 10},
		"priceChange": {},
		"pairCreatedAt": 1700000000000
	}`
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchPayload(solanaPair(raydiumAMM, "GEM") + "," + badAddress + "," + badPrice)))
	})

	snaps, err := adapter.Fetch(context.Background(), "solana")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, raydiumAMM, snaps[0].Pair.Address)
}

func TestAdapter_FetchDeduplicatesAcrossQueries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(searchPayload(solanaPair(raydiumAMM, "GEM"))))
	}))
	defer server.Close()

	adapter := New(Options{BaseURL: server.URL, Queries: []string{"new", "pump"}})

	snaps, err := adapter.Fetch(context.Background(), "solana")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestAdapter_FetchServerError(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := adapter.Fetch(context.Background(), "solana")
	require.Error(t, err)

	var provErr *provider.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "dexscreener", provErr.Provider)
	assert.Equal(t, "fetch", provErr.Op)
}

func TestAdapter_FetchDecodeError(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := adapter.Fetch(context.Background(), "solana")
	require.Error(t, err)

	var provErr *provider.Error
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "decode", provErr.Op)
}

func TestNormalize_FDVFallback(t *testing.T) {
	fdv := 42000.0
	p := &wirePair{
		ChainID:     "solana",
		DexID:       "raydium",
		PairAddress: raydiumAMM,
		PriceUSD:    "0.5",
		FDV:         &fdv,
	}
	p.Liquidity.USD = 1000
	p.Volume.H24 = 500
	p.PairCreatedAt = createdAtMs

	snap, err := normalize(p, createdAtMs+1000)
	require.NoError(t, err)
	require.NotNil(t, snap.MarketCapUSD)
	assert.Equal(t, fdv, *snap.MarketCapUSD)
}

func TestValidSolanaAddress(t *testing.T) {
	assert.True(t, validSolanaAddress(wsolMint))
	assert.True(t, validSolanaAddress(raydiumAMM))
	assert.False(t, validSolanaAddress("abc"))            // too short
	assert.False(t, validSolanaAddress("0OIl+invalid"))   // not base58
	assert.False(t, validSolanaAddress(""))
}
