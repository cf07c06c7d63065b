// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package websocket

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/capturzoo/proximity/internal/logging"
	"github.com/capturzoo/proximity/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound buffer per client.
	sendBufferSize = 64

	// Sustained and burst position-update rates per connection. GPS
	// hardware reports at ~1 Hz; anything well past that is a runaway
	// client and gets throttled rather than disconnected.
	positionRatePerSecond = 10
	positionBurst         = 20
)

// positionPayload is the inbound data of an update_position message.
// Pointers distinguish a missing coordinate from a zero one.
type positionPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// Client is a single connected visitor device.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan Message
	connID  string
	limiter *rate.Limiter
}

// NewClient wraps a websocket connection. Each client gets a fresh
// connection id used as its key in the position tracker and as the
// deterministic broadcast ordering.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan Message, sendBufferSize),
		connID:  uuid.NewString(),
		limiter: rate.NewLimiter(rate.Limit(positionRatePerSecond), positionBurst),
	}
}

// ConnectionID returns the client's identity in the position tracker.
func (c *Client) ConnectionID() string {
	return c.connID
}

// Start launches the read and write pumps. The caller must have registered
// the client with the hub first.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// readPump reads messages from the device until the connection drops, then
// unregisters the client. Position updates flow into the hub's sink; a
// payload missing either coordinate is dropped without disturbing the
// connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Str("connection_id", c.connID).Msg("unexpected websocket close")
			}
			return
		}

		var envelope struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			metrics.PositionUpdates.WithLabelValues("malformed").Inc()
			logging.Debug().Err(err).Str("connection_id", c.connID).Msg("unparseable websocket frame")
			continue
		}

		switch envelope.Type {
		case MessageTypeUpdatePosition:
			c.handlePositionUpdate(envelope.Data)
		case MessageTypePing:
			select {
			case c.send <- Message{Type: MessageTypePong}:
			default:
			}
		default:
			logging.Debug().Str("connection_id", c.connID).Str("type", envelope.Type).Msg("ignoring unknown message type")
		}
	}
}

func (c *Client) handlePositionUpdate(data json.RawMessage) {
	if c.limiter != nil && !c.limiter.Allow() {
		metrics.PositionUpdates.WithLabelValues("throttled").Inc()
		logging.Debug().Str("connection_id", c.connID).Msg("position update throttled")
		return
	}

	var payload positionPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Latitude == nil || payload.Longitude == nil {
		metrics.PositionUpdates.WithLabelValues("malformed").Inc()
		logging.Debug().Str("connection_id", c.connID).Msg("position update missing coordinates")
		return
	}

	metrics.PositionUpdates.WithLabelValues("accepted").Inc()
	if c.hub.sink != nil {
		c.hub.sink.RegisterPosition(c.connID, *payload.Latitude, *payload.Longitude)
	}
}

// writePump serializes outbound messages and keeps the connection alive
// with periodic pings. Exits when the hub closes the send channel.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			payload, err := json.Marshal(message)
			if err != nil {
				logging.Error().Err(err).Str("connection_id", c.connID).Msg("failed to marshal outbound message")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
