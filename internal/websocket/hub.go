// Package websocket pushes refresh events to connected UI clients whenever
// the synchronizer's aggregate changes, so the UI re-fetches /api/data
// instead of polling.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message tells clients which entity changed. Clients treat any message as
// "your view of <entity> is stale".
type Message struct {
	Type   string `json:"type"`
	Entity string `json:"entity"`
	Action string `json:"action"`
}

// NewRefresh builds the refresh message for an entity ("chores", "bills",
// "lists", "feed", "users", "session", "error").
func NewRefresh(entity string) Message {
	return Message{
		Type:   entity + "_refresh",
		Entity: entity,
		Action: "refresh",
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients. Clients that cannot
// keep up lose messages rather than blocking the broadcaster; a dropped
// refresh costs nothing because the next one carries the same meaning.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
