package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"petalpaint/internal/models"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const outboxSize = 16

// Conn is the write side of a live client connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// Subscription is one live connection of a user.
type Subscription struct {
	userID string
	conn   Conn
	outbox chan []byte
	once   sync.Once
}

// Hub fans order events out to the live connections of their owner.
// Delivery is fire-and-forget: events for users without a connection, or
// for connections whose outbox is full, are dropped.
type Hub struct {
	subs map[string]map[*Subscription]struct{}
	mu   sync.RWMutex
	log  *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
		log:  log,
	}
}

// Subscribe registers conn for userID and starts its writer.
func (h *Hub) Subscribe(userID string, conn Conn) *Subscription {
	sub := &Subscription{
		userID: userID,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
	}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(sub)

	h.log.Debug("Client subscribed", zap.String("user_id", userID))
	return sub
}

// Unsubscribe removes sub and stops its writer. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.userID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, sub.userID)
		}
	}
	// Closed under the write lock, so no publisher is sending concurrently.
	sub.once.Do(func() { close(sub.outbox) })
}

func (h *Hub) writeLoop(sub *Subscription) {
	for msg := range sub.outbox {
		if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.log.Debug("Dropping subscription after write error", zap.String("user_id", sub.userID), zap.Error(err))
			h.Unsubscribe(sub)
			return
		}
	}
}

// Connections returns the number of live connections of userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// PublishOrderEvent delivers event to every live connection of its owner.
func (h *Hub) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	h.deliver(event.UserID, msg)
	return nil
}

// HandleDelivery applies an event received from the broker.
func (h *Hub) HandleDelivery(body []byte) error {
	var event models.OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode order event: %w", err)
	}
	h.deliver(event.UserID, body)
	return nil
}

func (h *Hub) deliver(userID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[userID] {
		select {
		case sub.outbox <- msg:
		default:
			h.log.Warn("Outbox full, dropping event", zap.String("user_id", userID))
		}
	}
}
