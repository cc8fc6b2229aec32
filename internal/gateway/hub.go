// Package gateway fans live snapshots out to websocket subscribers and
// serves the request/response read endpoints.
package gateway

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mzare-q/pairstream/internal/bus"
)

// Hub is the subscriber registry: the set of live client connections per
// topic. Add/remove/iterate all happen under one lock, so a client may
// disconnect while a broadcast is in flight without corrupting the set.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	topics map[string]map[*Client]struct{}
}

// NewHub creates an empty registry.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		topics: make(map[string]map[*Client]struct{}),
	}
}

// attach registers a client under its topic.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.topics[c.topic]
	if !ok {
		clients = make(map[*Client]struct{})
		h.topics[c.topic] = clients
	}
	clients[c] = struct{}{}
	h.logger.Info("Subscriber attached", "topic", c.topic, "subscribers", len(clients))
}

// detach removes a client and closes its send channel. Safe to call more
// than once for the same client.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	clients, ok := h.topics[c.topic]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.topics, c.topic)
	}
	h.logger.Info("Subscriber detached", "topic", c.topic, "subscribers", len(clients))
}

// Broadcast delivers payload to every current subscriber of topic. A
// subscriber whose buffer is full is pruned rather than allowed to stall
// delivery to the others.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.topics[topic] {
		select {
		case c.send <- payload:
		default:
			h.logger.Warn("Subscriber too slow, pruning", "topic", topic)
			h.removeLocked(c)
		}
	}
}

// Subscribers reports the current subscriber count for topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dispatch drains one bus subscription into the hub until ctx is cancelled.
// Run one dispatch goroutine per pair topic.
func (h *Hub) Dispatch(ctx context.Context, b bus.Bus, topic string) error {
	messages, err := b.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	h.logger.Info("Dispatching bus topic", "topic", topic)
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload, ok := <-messages:
			if !ok {
				return nil
			}
			h.Broadcast(topic, payload)
		}
	}
}
