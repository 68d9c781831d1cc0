package services

import (
	"context"
	"fmt"
	"time"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"

	"go.uber.org/zap"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders      []models.Order `json:"orders"`
	Count       int            `json:"count"`
	Total       int64          `json:"total"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
}

// UpdateStatusInput is an admin fulfillment update.
type UpdateStatusInput struct {
	Status         models.OrderStatus
	Note           string
	TrackingNumber string
}

// OrderService handles business logic related to orders after checkout.
type OrderService struct {
	orders    repositories.OrderRepository
	publisher EventPublisher
	stock     inventory
	log       *zap.Logger
}

// NewOrderService creates a new OrderService.
func NewOrderService(orders repositories.OrderRepository, products repositories.ProductRepository, publisher EventPublisher, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		stock:     inventory{products: products, log: log},
		log:       log,
	}
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Get returns an order visible to the actor.
func (s *OrderService) Get(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperror.Forbidden("Not authorized to view this order")
	}
	return order, nil
}

// ListAll pages through every order. Admin only.
func (s *OrderService) ListAll(ctx context.Context, actor models.Actor, filter repositories.OrderFilter) (*OrderPage, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("Admin access required")
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperror.Validation("invalid order status: %s", filter.Status)
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultOrderPageSize
	}
	if filter.Limit > maxOrderPageSize {
		filter.Limit = maxOrderPageSize
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderPage{
		Orders:      orders,
		Count:       len(orders),
		Total:       total,
		TotalPages:  int((total + int64(filter.Limit) - 1) / int64(filter.Limit)),
		CurrentPage: filter.Page,
	}, nil
}

// Cancel cancels an order that has not shipped yet. Stock taken by a
// completed payment is given back.
func (s *OrderService) Cancel(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperror.Forbidden("Not authorized to cancel this order")
	}
	switch {
	case order.OrderStatus == models.OrderStatusCancelled:
		return nil, apperror.InvalidState("Order is already cancelled")
	case !order.OrderStatus.Cancellable():
		return nil, apperror.InvalidState("Cannot cancel order that has been shipped or delivered")
	}

	by := "customer"
	if actor.IsAdmin() {
		by = "admin"
	}
	// The guard pins the status and payment state read above, so a concurrent
	// confirmation or cancellation makes this call fail instead of
	// restoring the wrong amount of stock.
	updated, err := s.orders.Transition(ctx, id, repositories.OrderTransition{
		From:          []models.OrderStatus{order.OrderStatus},
		ExpectPayment: order.PaymentInfo.PaymentStatus,
		To:            models.OrderStatusCancelled,
		Note:          "Order cancelled by " + by,
	})
	if err != nil {
		return nil, err
	}

	if order.PaymentInfo.PaymentStatus == models.PaymentStatusCompleted {
		s.stock.restore(ctx, order.Items)
	}
	publish(ctx, s.publisher, s.log, updated)

	s.log.Info("Order cancelled", zap.String("order_id", id), zap.String("by", by))
	return updated, nil
}

// fulfillmentSource is the status each fulfillment step starts from. Leaving
// pending belongs to payment, so only paid orders move and never backwards.
var fulfillmentSource = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusProcessing: {models.OrderStatusProcessing},
	models.OrderStatusShipped:    {models.OrderStatusProcessing},
	models.OrderStatusDelivered:  {models.OrderStatusShipped},
}

// UpdateStatus moves an order one step along fulfillment. Admin only.
func (s *OrderService) UpdateStatus(ctx context.Context, actor models.Actor, id string, in UpdateStatusInput) (*models.Order, error) {
	if !actor.IsAdmin() {
		return nil, apperror.Forbidden("Admin access required")
	}
	switch in.Status {
	case models.OrderStatusProcessing, models.OrderStatusShipped, models.OrderStatusDelivered:
	case models.OrderStatusCancelled:
		return nil, apperror.InvalidState("Use the cancel operation to cancel an order")
	default:
		return nil, apperror.Validation("invalid order status: %s", in.Status)
	}

	note := in.Note
	if note == "" {
		note = fmt.Sprintf("Order status updated to %s", in.Status)
	}
	t := repositories.OrderTransition{
		From:           fulfillmentSource[in.Status],
		ExpectPayment:  models.PaymentStatusCompleted,
		To:             in.Status,
		TrackingNumber: in.TrackingNumber,
		Note:           note,
	}
	if in.Status == models.OrderStatusDelivered {
		now := time.Now()
		t.DeliveryDate = &now
	}

	updated, err := s.orders.Transition(ctx, id, t)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.publisher, s.log, updated)
	return updated, nil
}
