// Package sse streams replies from an HTTP endpoint that pushes
// Server-Sent Events, one JSON-encoded reply event per SSE data frame.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
)

const eventChannelCapacity = 16

type Client struct {
	endpoint   string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mostly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint: endpoint,
		// No overall timeout: the response body is a long-lived stream.
		// Cancellation comes from the request context.
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Open starts one streamed reply. The returned channel carries the raw wire
// events in arrival order and is closed when the stream ends, errors out, or
// ctx is cancelled.
func (c *Client) Open(ctx context.Context, req replystream.Request) (<-chan replystream.Event, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode reply request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build reply request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to open reply stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("reply stream refused with status %d", resp.StatusCode)
	}

	events := make(chan replystream.Event, eventChannelCapacity)
	go c.readEvents(ctx, resp.Body, events)

	return events, nil
}

func (c *Client) readEvents(ctx context.Context, body io.ReadCloser, events chan<- replystream.Event) {
	defer close(events)
	defer body.Close()

	sseReader := newReader(body)
	for {
		ev, err := sseReader.next()
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				log.Printf("reply stream read failed: %v", err)
			}
			return
		}

		var wireEvent replystream.Event
		if err := json.Unmarshal([]byte(ev.Data), &wireEvent); err != nil {
			// Forward the frame undecoded; the consumer owns the
			// skip-malformed-chunks policy.
			wireEvent = replystream.Event{Sequence: -1, Error: fmt.Sprintf("undecodable event: %v", err)}
		}

		select {
		case events <- wireEvent:
		case <-ctx.Done():
			return
		}
	}
}
