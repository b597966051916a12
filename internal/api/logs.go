package api

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/axefleet/axectl/internal/logging"
)

// StreamLogs connects to the device's WebSocket log endpoint and calls
// handler for each log line until the context is cancelled or the
// connection drops. AxeOS streams its serial console over /api/ws.
func (c *Client) StreamLogs(ctx context.Context, handler func(line string)) error {
	wsURL := fmt.Sprintf("ws://%s/api/ws", c.IP)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return NewHTTPError(resp.StatusCode, fmt.Sprintf("websocket upgrade failed: %v", err))
		}
		return ClassifyNetworkError(err, c.IP)
	}
	defer func() { _ = conn.Close() }()

	logging.Debug("Log stream connected")

	// Close the connection when the context ends so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return NewNetworkError("log stream closed", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		handler(string(data))
	}
}
