package alerting

import (
	"context"
	"log"

	"pairscan/internal/domain"
)

// Sink delivers finalized alert events to the outside world.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Deliver sends one alert event. Implementations return a
	// *DispatchError on failure.
	Deliver(ctx context.Context, event *domain.AlertEvent) error
}

// LogSink writes alerts to a logger. Used by the CLI and as a fallback
// when no webhook is configured.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the default logger.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSink{logger: logger}
}

// Compile-time interface check.
var _ Sink = (*LogSink)(nil)

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, event *domain.AlertEvent) error {
	s.logger.Printf("[alert] profile=%s pair=%s symbol=%s/%s score=%.1f category=%s liquidity=%.0f volume24h=%.0f",
		event.Profile, event.Pair, event.Snapshot.BaseSymbol, event.Snapshot.QuoteSymbol,
		event.Score.Score, event.Score.Category,
		event.Snapshot.LiquidityUSD, event.Snapshot.Volume24hUSD)
	return nil
}
