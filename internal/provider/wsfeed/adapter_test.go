package wsfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairscan/internal/domain"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// startFeedServer runs a WebSocket server that pushes the given raw
// messages to every client, then holds the connection open.
func startFeedServer(t *testing.T, messages ...string) string {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func feedJSON(chain, address string, liquidity float64) string {
	return `{
		"chain": "` + chain + `",
		"address": "` + address + `",
		"baseSymbol": "GEM",
		"quoteSymbol": "SOL",
		"dexId": "raydium",
		"priceUsd": 0.001,
		"liquidityUsd": ` + formatFloat(liquidity) + `,
		"volume24hUsd": 35000,
		"volume1hUsd": 4000,
		"pairCreatedAt": 1700000000000,
		"observedAt": 1700000100000
	}`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func TestAdapter_ReceivesAndFetches(t *testing.T) {
	url := startFeedServer(t,
		feedJSON("solana", "PairA", 5000),
		feedJSON("solana", "PairB", 9000),
		feedJSON("ethereum", "0xabc", 50000),
	)

	adapter, err := New(context.Background(), url, nil)
	require.NoError(t, err)
	defer adapter.Close()

	var snaps []*domain.Snapshot
	require.Eventually(t, func() bool {
		batch, err := adapter.Fetch(context.Background(), "solana")
		if err != nil {
			return false
		}
		snaps = append(snaps, batch...)
		return len(snaps) == 2
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, "PairA", snaps[0].Pair.Address)
	assert.Equal(t, "PairB", snaps[1].Pair.Address)

	// The other chain's record stays buffered under its own key.
	require.Eventually(t, func() bool {
		batch, err := adapter.Fetch(context.Background(), "ethereum")
		return err == nil && len(batch) == 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAdapter_FetchDrainsBuffer(t *testing.T) {
	url := startFeedServer(t, feedJSON("solana", "PairA", 5000))

	adapter, err := New(context.Background(), url, nil)
	require.NoError(t, err)
	defer adapter.Close()

	require.Eventually(t, func() bool {
		batch, err := adapter.Fetch(context.Background(), "solana")
		return err == nil && len(batch) == 1
	}, 2*time.Second, 20*time.Millisecond)

	// Second fetch sees an empty, not re-delivered, buffer.
	batch, err := adapter.Fetch(context.Background(), "solana")
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestAdapter_SkipsMalformedMessages(t *testing.T) {
	url := startFeedServer(t,
		"not json at all",
		`{"chain": "solana", "address": ""}`, // fails validation
		feedJSON("solana", "PairA", 5000),
	)

	adapter, err := New(context.Background(), url, nil)
	require.NoError(t, err)
	defer adapter.Close()

	require.Eventually(t, func() bool {
		batch, err := adapter.Fetch(context.Background(), "solana")
		return err == nil && len(batch) == 1
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, int64(2), adapter.Skipped())
}

func TestAdapter_BufferOverflowDropsOldest(t *testing.T) {
	url := startFeedServer(t,
		feedJSON("solana", "PairA", 1000),
		feedJSON("solana", "PairB", 2000),
		feedJSON("solana", "PairC", 3000),
	)

	opts := DefaultOptions()
	opts.ChainBuffer = 2
	adapter, err := New(context.Background(), url, &opts)
	require.NoError(t, err)
	defer adapter.Close()

	require.Eventually(t, func() bool {
		return adapter.Dropped() == 1
	}, 2*time.Second, 20*time.Millisecond)

	batch, err := adapter.Fetch(context.Background(), "solana")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "PairB", batch[0].Pair.Address)
	assert.Equal(t, "PairC", batch[1].Pair.Address)
}

func TestAdapter_CloseStopsFetch(t *testing.T) {
	url := startFeedServer(t)

	adapter, err := New(context.Background(), url, nil)
	require.NoError(t, err)

	require.NoError(t, adapter.Close())

	_, err = adapter.Fetch(context.Background(), "solana")
	assert.Error(t, err)
}
