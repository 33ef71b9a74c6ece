// Package ws serves the per-user realtime notification socket.
package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ivnmtz09/yonna-akademia/internal/domain/notification"
	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

// sendBuffer is the per-connection outbound queue length. A full queue drops
// the frame; the client catches up from the inbox on reconnect.
const sendBuffer = 64

// Hub tracks live connections per user.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	logger  *logger.Logger
}

// NewHub creates an empty hub.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  log.With(logger.Component("ws_hub")),
	}
}

// Register adds a client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client and closes its queue. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
}

// Connections returns the number of live connections of a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Deliver queues msg on every connection of the user.
func (h *Hub) Deliver(userID string, msg notification.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Warn("failed to encode realtime message", logger.Err(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("realtime queue full, dropping message",
				logger.UserID(userID),
				logger.String("message_type", string(msg.Type)),
			)
		}
	}
}

// Publish implements notification.Publisher for single-process deployments.
func (h *Hub) Publish(_ context.Context, userID string, msg notification.Message) error {
	h.Deliver(userID, msg)
	return nil
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, set := range h.clients {
		for c := range set {
			close(c.send)
		}
		delete(h.clients, userID)
	}
}
