package alerting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"pairscan/internal/domain"
	"pairscan/internal/idhash"
)

// WebhookOptions configures a WebhookSink.
type WebhookOptions struct {
	URL string

	// RetryCount bounds delivery retries. Zero disables retries.
	RetryCount int

	// Timeout caps one delivery attempt. Zero uses a 10s default.
	Timeout time.Duration
}

// WebhookSink POSTs alert events as JSON to a configured URL.
type WebhookSink struct {
	url    string
	client *resty.Client
}

// Compile-time interface check.
var _ Sink = (*WebhookSink)(nil)

// NewWebhookSink creates a WebhookSink.
func NewWebhookSink(opts WebhookOptions) *WebhookSink {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			return err != nil || resp.StatusCode() >= http.StatusInternalServerError
		})

	return &WebhookSink{url: opts.URL, client: client}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Deliver POSTs the event. The X-Alert-Id header carries a deterministic
// event hash so receivers can drop retried deliveries. Non-2xx responses
// and transport failures are wrapped in a *DispatchError.
func (s *WebhookSink) Deliver(ctx context.Context, event *domain.AlertEvent) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Alert-Id", idhash.AlertEventID(event.Profile, event.Pair, event.Timestamp)).
		SetBody(event).
		Post(s.url)
	if err != nil {
		return &DispatchError{Sink: s.Name(), Err: err}
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return &DispatchError{Sink: s.Name(), Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode())}
	}
	return nil
}
