package link

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"jxscout/internal/errors"
	"jxscout/internal/protocol"
)

// readLoop reads frames until the connection fails, then hands over to handleClose.
func (c *Client) readLoop(conn *websocket.Conn, generation uint64) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(generation, err)
			return
		}
		c.dispatch(data)
	}
}

// dispatch routes one inbound frame. Malformed frames and unknown types are logged and
// dropped; they never affect the connection.
func (c *Client) dispatch(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		c.logger.Warn("Error parsing WebSocket message", "error", err)
		return
	}

	switch msg.Type {
	case protocol.GetAnalysisResponse:
		c.handleAnalysisResponse(msg)

	case protocol.Error:
		message := msg.ErrorMessage()
		c.logger.Error("Server error", "message", message)
		if c.opts.OnServerError != nil {
			c.opts.OnServerError(message)
		}

	default:
		c.logger.Warn("Unknown message type", "type", string(msg.Type), "id", msg.ID)
	}
}

func (c *Client) handleAnalysisResponse(msg *protocol.Message) {
	var out outcome
	if msg.HasError() {
		message := msg.ErrorMessage()
		out.err = errors.New(errors.Classify(message), message, nil)
	} else {
		result, err := protocol.DecodeAnalysisResult(msg.Payload)
		if err != nil {
			c.logger.Warn("Malformed analysis response", "id", msg.ID, "error", err)
			out.err = errors.New(errors.ProtocolError, "malformed analysis response", err)
		} else {
			out.result = result
		}
	}

	if !c.settle(msg.ID, out) {
		c.logger.Debug("Dropping response for unknown request", "id", msg.ID)
		return
	}
	c.logger.Debug("Settled analysis request", "id", msg.ID, "failed", out.err != nil)
}

// handleClose runs when the read loop of connection generation ends. Superseded
// connections are ignored; the current one is torn down and a reconnect is scheduled
// unless Disconnect was called.
func (c *Client) handleClose(generation uint64, cause error) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}

	conn := c.conn
	c.conn = nil
	c.failPendingLocked(errors.New(errors.ConnectionLost, "WebSocket connection closed", cause))
	c.resetReadyLocked()
	notify := c.setStatusLocked(StatusDisconnected, cause)
	if !c.stopped {
		c.scheduleReconnectLocked()
	}
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	c.logger.Info("WebSocket connection closed", "error", cause)
	notify()
}

// scheduleReconnectLocked arms the single reconnect timer, replacing any armed one.
func (c *Client) scheduleReconnectLocked() {
	c.cancelReconnectLocked()
	c.reconnectTimer = time.AfterFunc(c.opts.ReconnectDelay, c.reconnect)
}

func (c *Client) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Client) reconnect() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.reconnectTimer = nil
	c.mu.Unlock()

	c.logger.Info("Attempting to reconnect...")

	ctx, cancel := context.WithTimeout(context.Background(), c.dialer.HandshakeTimeout+c.opts.ReconnectDelay)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		c.logger.Warn("Reconnection failed", "error", err)

		c.mu.Lock()
		if !c.stopped && c.conn == nil {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
	}
}
