package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocket timeout constants following Gorilla best practices
// See: https://github.com/gorilla/websocket/blob/master/examples/chat/client.go
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

// Client represents a WebSocket client connection
type Client struct {
	server    *HostServer
	conn      *websocket.Conn
	send      chan *SlotsMessage
	sendMsg   chan interface{}
	id        string
	closeOnce sync.Once // Prevents double-close panics
}

// enqueue queues a slots message without blocking the caller
func (c *Client) enqueue(msg *SlotsMessage) {
	select {
	case c.send <- msg:
	default:
		c.server.logger.Warnw("Client send channel full, dropping message",
			"client_id", c.id,
		)
	}
}

// sendJSON queues a generic message to the client
func (c *Client) sendJSON(data interface{}) {
	select {
	case c.sendMsg <- data:
	default:
		c.server.logger.Warnw("Failed to queue message (channel full)",
			"client_id", c.id,
		)
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		// The hub may already have exited during shutdown, so the
		// unregister send must not block past context cancellation.
		select {
		case c.server.unregister <- c:
		case <-c.server.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	c.server.logger.Debugw("Read pump started", "client_id", c.id)

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			c.server.logger.Warnw("JSON unmarshal error",
				"error", err.Error(),
				"client_id", c.id,
			)
			continue
		}

		c.routeMessage(&msg)
	}
}

// handleReadError logs unexpected WebSocket read errors.
// Expected closure codes (going away, abnormal, no status) are silently ignored.
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		c.server.logger.Warnw("WebSocket read error",
			"error", err.Error(),
			"client_id", c.id,
		)
	}
}

// routeMessage dispatches incoming WebSocket messages to appropriate handlers
func (c *Client) routeMessage(msg *ClientMessage) {
	switch msg.Type {
	case "select_entity":
		c.handleSelectEntity(msg.EntityType)
	case "clear_selection":
		c.handleClearSelection()
	case "set_layer":
		c.handleSetLayer(msg.Layer, msg.Active)
	case "activate":
		c.handleActivation(msg.ModuleID, true)
	case "deactivate":
		c.handleActivation(msg.ModuleID, false)
	case "get_slots":
		c.enqueue(c.server.slotsMessage(c.server.registry.Snapshot().Revision))
	case "ping":
		// Just update deadline, handled by pong handler
	default:
		c.server.logger.Debugw("Unknown message type",
			"type", msg.Type,
			"client_id", c.id,
		)
	}
}

// handleSelectEntity updates the shared selection and recomposes slots
func (c *Client) handleSelectEntity(entityType string) {
	if entityType == "" {
		c.handleClearSelection()
		return
	}

	c.server.viewer.SetSelection(entityType)
	c.server.logger.Debugw("Entity selected",
		"entity_type", entityType,
		"client_id", c.id,
	)
	c.server.broadcastCurrent()
}

func (c *Client) handleClearSelection() {
	c.server.viewer.ClearSelection()
	c.server.logger.Debugw("Selection cleared", "client_id", c.id)
	c.server.broadcastCurrent()
}

// handleSetLayer toggles a map layer and recomposes slots
func (c *Client) handleSetLayer(layer string, active bool) {
	if layer == "" {
		c.server.logger.Warnw("Missing layer name", "client_id", c.id)
		return
	}

	c.server.viewer.SetLayerActive(layer, active)
	c.server.logger.Debugw("Layer toggled",
		"layer", layer,
		"active", active,
		"client_id", c.id,
	)
	c.server.broadcastCurrent()
}

// handleActivation activates or deactivates a module by id
func (c *Client) handleActivation(moduleID string, active bool) {
	if moduleID == "" {
		c.server.logger.Warnw("Missing module id", "client_id", c.id)
		return
	}

	var err error
	if active {
		err = c.server.engine.Activate(moduleID)
	} else {
		err = c.server.engine.Deactivate(moduleID)
	}
	if err != nil {
		c.sendJSON(map[string]interface{}{
			"type":     "error",
			"moduleId": moduleID,
			"error":    err.Error(),
		})
		return
	}

	c.server.logger.Infow("Module activation changed",
		"module_id", moduleID,
		"active", active,
		"client_id", c.id,
	)
	c.server.broadcastCurrent()
}

// writePump writes slot updates and generic messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	c.server.logger.Debugw("Write pump started", "client_id", c.id)

	for {
		select {
		case <-c.server.ctx.Done():
			c.server.logger.Debugw("Write pump stopping due to server shutdown", "client_id", c.id)
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Warnw("Slot update write error",
					"error", err.Error(),
					"client_id", c.id,
				)
				return
			}

		case msg, ok := <-c.sendMsg:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				return
			}

			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debugw("Message write error",
					"error", err.Error(),
					"client_id", c.id,
				)
				// Don't return - message errors shouldn't kill connection
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close safely closes the client's channels using sync.Once to prevent double-close panics
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.send != nil {
			close(c.send)
		}
		if c.sendMsg != nil {
			close(c.sendMsg)
		}
	})
}
