// Package wsstream streams replies over a websocket connection: the request
// is sent as one JSON message, then the service pushes JSON reply events
// until it closes the connection.
package wsstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"

	"github.com/kaiwa-labs/kaiwa-core/core/replystream"
)

const eventChannelCapacity = 16

type Client struct {
	endpoint string
	dialer   *websocket.Dialer
}

type ClientOption func(*Client)

// WithDialer replaces the websocket dialer, mostly for tests.
func WithDialer(dialer *websocket.Dialer) ClientOption {
	return func(c *Client) { c.dialer = dialer }
}

func NewClient(endpoint string, opts ...ClientOption) *Client {
	client := &Client{
		endpoint: endpoint,
		dialer:   websocket.DefaultDialer,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Open starts one streamed reply. The returned channel carries the raw wire
// events in arrival order and is closed when the service closes the
// connection, the transport fails, or ctx is cancelled.
func (c *Client) Open(ctx context.Context, req replystream.Request) (<-chan replystream.Event, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to reply service: %w", err)
	}

	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send reply request: %w", err)
	}

	events := make(chan replystream.Event, eventChannelCapacity)
	go readEvents(ctx, conn, events)

	return events, nil
}

func readEvents(ctx context.Context, conn *websocket.Conn, events chan<- replystream.Event) {
	defer close(events)
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.Printf("reply stream read failed: %v", err)
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		var wireEvent replystream.Event
		if err := json.Unmarshal(msg, &wireEvent); err != nil {
			wireEvent = replystream.Event{Sequence: -1, Error: fmt.Sprintf("undecodable event: %v", err)}
		}

		select {
		case events <- wireEvent:
		case <-ctx.Done():
			return
		}
	}
}
