package alerting

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"pairscan/internal/domain"
	"pairscan/internal/observability"
)

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	// QueueSize bounds the dispatch queue. Zero uses a default.
	QueueSize int

	// Sinks receive every dispatched event, in order.
	Sinks []Sink

	// DeliverTimeout caps delivery of one event to one sink. Zero uses
	// a 15s default.
	DeliverTimeout time.Duration

	// Metrics is optional. Nil disables instrumentation.
	Metrics *observability.Metrics

	Logger *log.Logger
}

const (
	defaultQueueSize      = 256
	defaultDeliverTimeout = 15 * time.Second
)

// Dispatcher moves alert events from the scan cycle to the sinks through
// a bounded queue. Enqueue never blocks the cycle: when the queue is full
// the event is dropped and counted.
type Dispatcher struct {
	queue          chan *domain.AlertEvent
	sinks          []Sink
	deliverTimeout time.Duration
	metrics        *observability.Metrics
	logger         *log.Logger

	enqueued  atomic.Int64
	dropped   atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	deliverTimeout := opts.DeliverTimeout
	if deliverTimeout <= 0 {
		deliverTimeout = defaultDeliverTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Dispatcher{
		queue:          make(chan *domain.AlertEvent, queueSize),
		sinks:          opts.Sinks,
		deliverTimeout: deliverTimeout,
		metrics:        opts.Metrics,
		logger:         logger,
	}
}

// Enqueue hands an event to the dispatcher. Returns ErrQueueFull when
// the queue is at capacity; the event is dropped.
func (d *Dispatcher) Enqueue(event *domain.AlertEvent) error {
	select {
	case d.queue <- event:
		d.enqueued.Add(1)
		return nil
	default:
		d.dropped.Add(1)
		return ErrQueueFull
	}
}

// Run delivers queued events until ctx is canceled, then drains whatever
// is already queued before returning. Queued events are delivered on a
// detached timeout context so shutdown never truncates an accepted alert.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case event := <-d.queue:
			d.deliver(event)
		}
	}
}

// drain flushes the queue without blocking on new events.
func (d *Dispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(event *domain.AlertEvent) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.deliverTimeout)
		err := sink.Deliver(ctx, event)
		cancel()

		if err != nil {
			d.failed.Add(1)
			if d.metrics != nil {
				d.metrics.DispatchErrors.WithLabelValues(sink.Name()).Inc()
			}
			d.logger.Printf("[dispatcher] deliver %s via %s: %v", event.Pair, sink.Name(), err)
			continue
		}
		d.delivered.Add(1)
	}
}

// Stats is a point-in-time snapshot of dispatcher counters.
type Stats struct {
	Enqueued  int64
	Dropped   int64
	Delivered int64
	Failed    int64
}

// Stats returns current counter values.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Enqueued:  d.enqueued.Load(),
		Dropped:   d.dropped.Load(),
		Delivered: d.delivered.Load(),
		Failed:    d.failed.Load(),
	}
}
