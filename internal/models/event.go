package models

import "time"

// EventOrderStatusUpdate is pushed to the owner whenever an order changes status.
const EventOrderStatusUpdate = "orderStatusUpdate"

// OrderEvent is the payload delivered to a user's live connections.
type OrderEvent struct {
	Type          string        `json:"type"`
	OrderID       string        `json:"orderId"`
	UserID        string        `json:"userId"`
	Status        OrderStatus   `json:"status"`
	StatusHistory []StatusEntry `json:"statusHistory"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewOrderStatusEvent snapshots the order's current status for its owner.
func NewOrderStatusEvent(order *Order) OrderEvent {
	return OrderEvent{
		Type:          EventOrderStatusUpdate,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Status:        order.OrderStatus,
		StatusHistory: order.StatusHistory,
		Timestamp:     time.Now().UTC(),
	}
}
