// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package websocket implements the live visitor channel: each connected
// device streams position updates in, and every occupancy change fans out
// to all devices.
package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/capturzoo/proximity/internal/logging"
	"github.com/capturzoo/proximity/internal/metrics"
	"github.com/capturzoo/proximity/internal/models"
)

// Message types exchanged with visitor devices.
const (
	MessageTypeUpdatePosition = "update_position"
	MessageTypePOIAffluence   = "poi_affluence"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is the envelope for every websocket frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PositionSink receives the position lifecycle of each connection.
// Satisfied by *affluence.Tracker; defined here so the hub does not depend
// on the tracker's package.
type PositionSink interface {
	RegisterPosition(connectionID string, lat, lon float64)
	RemoveConnection(connectionID string)
}

// Hub maintains the set of active clients and fans out broadcasts.
//
// Client lifecycle events always win over pending broadcasts: a
// disconnecting client must be removed from the set (and from the position
// tracker, exactly once) before the next occupancy push is delivered.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	sink       PositionSink
	mu         sync.RWMutex
}

// NewHub creates a hub feeding position events into the given sink.
// The sink may be nil in tests that only exercise fan-out.
func NewHub(sink PositionSink) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		sink:       sink,
	}
}

// Run starts the hub and blocks forever. Prefer RunWithContext for
// supervised operation.
func (h *Hub) Run() {
	for {
		// Lifecycle events first, non-blocking.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.dropClient(client)
			continue
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.dropClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// RunWithContext starts the hub and returns ctx.Err() once the context is
// canceled, after gracefully closing all clients. The signature matches
// suture.Service so the hub can live under the supervisor tree.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Shutdown wins over everything else.
		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		default:
		}

		// Lifecycle events win over pending broadcasts.
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.dropClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown()
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.dropClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(total))
	logging.Info().Str("connection_id", client.connID).Int("total_clients", total).Msg("visitor connected")
}

// dropClient removes the client from the set and its position from the
// tracker. Both happen at most once even if the unregister is duplicated.
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	_, known := h.clients[client]
	if known {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if !known {
		return
	}

	if h.sink != nil {
		h.sink.RemoveConnection(client.connID)
	}

	metrics.WebSocketConnections.Set(float64(total))
	logging.Info().Str("connection_id", client.connID).Int("total_clients", total).Msg("visitor disconnected")
}

// shutdown closes every client. Called once when the context is canceled.
func (h *Hub) shutdown() {
	h.mu.Lock()
	clients := sortedClientsLocked(h.clients)
	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(0)
	logging.Info().
		Str("component", "websocket-hub").
		Int("clients_closed", len(clients)).
		Msg("websocket hub stopped")
}

// broadcastToClients delivers a message to every client in connection-id
// order. Sorted iteration keeps delivery order reproducible in tests; a
// client with a full send buffer is dropped rather than blocking the rest.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := sortedClientsLocked(h.clients)

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		if h.sink != nil {
			h.sink.RemoveConnection(client.connID)
		}
		logging.Warn().Str("connection_id", client.connID).Msg("send buffer full, dropping client")
	}
	if len(toRemove) > 0 {
		metrics.WebSocketConnections.Set(float64(len(h.clients)))
	}
}

func sortedClientsLocked(set map[*Client]bool) []*Client {
	clients := make([]*Client, 0, len(set))
	for client := range set {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].connID < clients[j].connID
	})
	return clients
}

// BroadcastAffluence pushes a freshly computed occupancy list to every
// connected device. Implements affluence.Broadcaster. Enqueueing never
// blocks the caller; if the broadcast queue is full the update is dropped
// with a warning, and the next mutation will carry fresher counts anyway.
func (h *Hub) BroadcastAffluence(pois []models.POIAffluence) {
	message := Message{Type: MessageTypePOIAffluence, Data: pois}

	select {
	case h.broadcast <- message:
	default:
		logging.Warn().Msg("broadcast channel full, dropping affluence update")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
