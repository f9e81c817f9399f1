// Package wsfeed implements the push adapter: a WebSocket feed of pair
// snapshots. Pushed records accumulate in a bounded per-chain buffer and
// are drained by Fetch, so the orchestrator drives push and pull sources
// through the same interface.
package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pairscan/internal/domain"
	"pairscan/internal/provider"
)

const adapterName = "wsfeed"

// Options configures the feed adapter.
type Options struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff.
	MaxReconnectDelay time.Duration
	// PingInterval is the interval for ping frames.
	PingInterval time.Duration
	// ReadTimeout is the timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is the timeout for writing messages.
	WriteTimeout time.Duration

	// ChainBuffer bounds buffered snapshots per chain. When full, the
	// oldest buffered snapshot is dropped. Zero uses a default.
	ChainBuffer int

	Logger *log.Logger
}

// DefaultOptions returns the default feed configuration.
func DefaultOptions() Options {
	return Options{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		ChainBuffer:       4096,
	}
}

// feedMessage is the wire format the feed pushes: one flat snapshot.
type feedMessage struct {
	Chain       string `json:"chain"`
	Address     string `json:"address"`
	BaseSymbol  string `json:"baseSymbol"`
	QuoteSymbol string `json:"quoteSymbol"`
	DexID       string `json:"dexId"`

	PriceUSD     float64  `json:"priceUsd"`
	LiquidityUSD float64  `json:"liquidityUsd"`
	Volume24hUSD float64  `json:"volume24hUsd"`
	Volume1hUSD  float64  `json:"volume1hUsd"`
	MarketCapUSD *float64 `json:"marketCapUsd"`

	PriceChange5m  float64 `json:"priceChange5m"`
	PriceChange1h  float64 `json:"priceChange1h"`
	PriceChange24h float64 `json:"priceChange24h"`

	SocialMentions *int `json:"socialMentions"`

	PairCreatedAt int64 `json:"pairCreatedAt"`
	ObservedAt    int64 `json:"observedAt"`
}

// Adapter consumes a snapshot feed over WebSocket.
type Adapter struct {
	endpoint string
	opts     Options
	logger   *log.Logger

	conn         *websocket.Conn
	connMu       sync.Mutex
	closed       atomic.Bool
	reconnecting atomic.Bool

	buf   map[string][]*domain.Snapshot // keyed by chain
	bufMu sync.Mutex

	skipped atomic.Int64
	dropped atomic.Int64

	done chan struct{}
	wg   sync.WaitGroup
}

// Compile-time interface check.
var _ provider.Adapter = (*Adapter)(nil)

// New connects to the feed and starts the read and ping loops.
func New(ctx context.Context, endpoint string, opts *Options) (*Adapter, error) {
	cfg := DefaultOptions()
	if opts != nil {
		cfg = *opts
		if cfg.ChainBuffer <= 0 {
			cfg.ChainBuffer = 4096
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	a := &Adapter{
		endpoint: endpoint,
		opts:     cfg,
		logger:   logger,
		buf:      make(map[string][]*domain.Snapshot),
		done:     make(chan struct{}),
	}

	if err := a.connect(ctx); err != nil {
		return nil, &provider.Error{Provider: adapterName, Op: "connect", Err: err}
	}

	a.wg.Add(1)
	go a.readLoop()

	a.wg.Add(1)
	go a.pingLoop()

	return a, nil
}

func (a *Adapter) Name() string { return adapterName }

// Fetch drains the buffered snapshots for a chain. It never blocks: a
// quiet feed yields an empty batch, not an error.
func (a *Adapter) Fetch(_ context.Context, chain string) ([]*domain.Snapshot, error) {
	if a.closed.Load() {
		return nil, &provider.Error{Provider: adapterName, Chain: chain, Op: "fetch", Err: fmt.Errorf("adapter closed")}
	}

	a.bufMu.Lock()
	snaps := a.buf[chain]
	delete(a.buf, chain)
	a.bufMu.Unlock()

	return snaps, nil
}

// Skipped returns the count of malformed records dropped so far.
func (a *Adapter) Skipped() int64 { return a.skipped.Load() }

// Dropped returns the count of valid records evicted by buffer overflow.
func (a *Adapter) Dropped() int64 { return a.dropped.Load() }

// Close shuts the connection down and stops the loops.
func (a *Adapter) Close() error {
	if a.closed.Swap(true) {
		return nil // already closed
	}

	close(a.done)

	a.connMu.Lock()
	if a.conn != nil {
		a.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		a.conn.Close()
	}
	a.connMu.Unlock()

	a.wg.Wait()
	return nil
}

// connect establishes the WebSocket connection.
func (a *Adapter) connect(ctx context.Context) error {
	a.connMu.Lock()
	defer a.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, a.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	a.conn = conn
	return nil
}

// readLoop reads messages and buffers snapshots, reconnecting with
// exponential backoff on connection errors.
func (a *Adapter) readLoop() {
	defer a.wg.Done()

	reconnectDelay := a.opts.ReconnectDelay

	for !a.closed.Load() {
		a.connMu.Lock()
		conn := a.conn
		a.connMu.Unlock()

		if conn == nil {
			select {
			case <-a.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(a.opts.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if a.closed.Load() {
				return
			}

			if !a.reconnecting.Swap(true) {
				go a.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > a.opts.MaxReconnectDelay {
				reconnectDelay = a.opts.MaxReconnectDelay
			}

			select {
			case <-a.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = a.opts.ReconnectDelay

		a.handleMessage(message)
	}
}

// reconnect waits out the backoff delay and re-dials.
func (a *Adapter) reconnect(delay time.Duration) {
	defer a.reconnecting.Store(false)

	if a.closed.Load() {
		return
	}

	select {
	case <-a.done:
		return
	case <-time.After(delay):
	}

	a.connMu.Lock()
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.connect(ctx); err != nil {
		// Reconnect failed, will retry on next read error
		a.logger.Printf("[wsfeed] reconnect: %v", err)
	}
}

// handleMessage decodes one pushed record and buffers it. Malformed
// records are skipped and counted, never fatal.
func (a *Adapter) handleMessage(message []byte) {
	var msg feedMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		a.skipped.Add(1)
		return
	}

	snap := &domain.Snapshot{
		Pair:           domain.PairID{Chain: msg.Chain, Address: msg.Address},
		BaseSymbol:     msg.BaseSymbol,
		QuoteSymbol:    msg.QuoteSymbol,
		DexID:          msg.DexID,
		PriceUSD:       msg.PriceUSD,
		LiquidityUSD:   msg.LiquidityUSD,
		Volume24hUSD:   msg.Volume24hUSD,
		Volume1hUSD:    msg.Volume1hUSD,
		MarketCapUSD:   msg.MarketCapUSD,
		PriceChange5m:  msg.PriceChange5m,
		PriceChange1h:  msg.PriceChange1h,
		PriceChange24h: msg.PriceChange24h,
		SocialMentions: msg.SocialMentions,
		PairCreatedAt:  msg.PairCreatedAt,
		ObservedAt:     msg.ObservedAt,
	}
	if snap.ObservedAt <= 0 {
		snap.ObservedAt = time.Now().UnixMilli()
	}

	if err := snap.Validate(); err != nil {
		a.skipped.Add(1)
		return
	}

	a.bufMu.Lock()
	chain := a.buf[snap.Pair.Chain]
	if len(chain) >= a.opts.ChainBuffer {
		// Evict the oldest buffered snapshot
		copy(chain, chain[1:])
		chain = chain[:len(chain)-1]
		a.dropped.Add(1)
	}
	a.buf[snap.Pair.Chain] = append(chain, snap)
	a.bufMu.Unlock()
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (a *Adapter) pingLoop() {
	defer a.wg.Done()

	ticker := time.NewTicker(a.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-a.done:
			return
		case <-ticker.C:
			a.connMu.Lock()
			if a.conn != nil {
				a.conn.SetWriteDeadline(time.Now().Add(a.opts.WriteTimeout))
				if err := a.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			a.connMu.Unlock()
		}
	}
}
