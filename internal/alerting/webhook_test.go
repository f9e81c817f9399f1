package alerting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSink_Deliver(t *testing.T) {
	var body atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Len(t, r.Header.Get("X-Alert-Id"), 64)
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		body.Store(data)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(WebhookOptions{URL: server.URL})
	event := testEvent("pair-a")

	require.NoError(t, sink.Deliver(context.Background(), event))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body.Load().([]byte), &decoded))
	assert.Equal(t, "gem", decoded["profile"])
	assert.NotNil(t, decoded["snapshot"])
	assert.NotNil(t, decoded["score"])
}

func TestWebhookSink_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewWebhookSink(WebhookOptions{URL: server.URL})

	err := sink.Deliver(context.Background(), testEvent("pair-a"))
	require.Error(t, err)

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, "webhook", dispatchErr.Sink)
}

func TestWebhookSink_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink := NewWebhookSink(WebhookOptions{URL: server.URL, RetryCount: 3})

	require.NoError(t, sink.Deliver(context.Background(), testEvent("pair-a")))
	assert.Equal(t, int32(3), calls.Load())
}
