package repositories

import (
	"context"
	"time"

	"petalpaint/internal/models"
)

// OrderFilter pages the admin order listing.
type OrderFilter struct {
	Status models.OrderStatus
	Page   int
	Limit  int
}

// OrderTransition describes one guarded status change of an order.
type OrderTransition struct {
	// From lists the statuses the order must currently be in. Empty means any.
	From []models.OrderStatus
	// ExpectPayment, when set, must equal the current payment status.
	ExpectPayment models.PaymentStatus

	To             models.OrderStatus
	PaymentStatus  models.PaymentStatus // unchanged when empty
	TrackingNumber string               // unchanged when empty
	DeliveryDate   *time.Time
	Note           string
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID string) ([]models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	// Transition applies t atomically and appends one history entry. It fails
	// with an invalid-state error when the guard does not hold.
	Transition(ctx context.Context, id string, t OrderTransition) (*models.Order, error)
}
