package services

import (
	"context"
	"errors"
	"time"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"
	"petalpaint/pkg/stripepay"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentProcessor is the external payment provider.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*stripepay.Intent, error)
	GetIntent(ctx context.Context, id string) (*stripepay.Intent, error)
	ParseWebhook(payload []byte, signature string) (*stripepay.Event, error)
}

// EventPublisher delivers order events to the owning user.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// CheckoutResult is handed to the client to complete payment with the processor.
type CheckoutResult struct {
	ClientSecret string `json:"clientSecret"`
	OrderID      string `json:"orderId"`
}

// ToMinorUnits converts a decimal amount into integer cents.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// PaymentService turns carts into orders and reconciles them with the
// payment processor.
type PaymentService struct {
	carts     repositories.CartRepository
	orders    repositories.OrderRepository
	products  repositories.ProductRepository
	ledger    repositories.EventLedger
	processor PaymentProcessor
	publisher EventPublisher
	stock     inventory
	currency  string
	log       *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	carts repositories.CartRepository,
	orders repositories.OrderRepository,
	products repositories.ProductRepository,
	ledger repositories.EventLedger,
	processor PaymentProcessor,
	publisher EventPublisher,
	currency string,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		carts:     carts,
		orders:    orders,
		products:  products,
		ledger:    ledger,
		processor: processor,
		publisher: publisher,
		stock:     inventory{products: products, log: log},
		currency:  currency,
		log:       log,
	}
}

// CreateIntent snapshots the user's cart into a pending order and opens a
// payment intent for its total. Stock is checked here but not reserved.
func (s *PaymentService) CreateIntent(ctx context.Context, userID string, address models.ShippingAddress) (*CheckoutResult, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.InvalidState("Cart is empty")
	}
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, apperror.InvalidState("Cart is empty")
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	for _, line := range cart.Items {
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, apperror.InvalidState("%s is no longer available", product.Name)
		}
		if product.Stock < line.Quantity {
			return nil, apperror.Conflict("Insufficient stock for %s", product.Name)
		}
		items = append(items, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Image:     product.FirstImage(),
		})
	}
	cart.Recalculate()

	intent, err := s.processor.CreateIntent(ctx, ToMinorUnits(cart.TotalPrice), s.currency, map[string]string{
		"userId": userID,
	})
	if err != nil {
		s.log.Error("Payment intent creation failed", zap.String("user_id", userID), zap.Error(err))
		return nil, apperror.Upstream("Error creating payment intent", err)
	}

	order := &models.Order{
		UserID:          userID,
		Items:           items,
		TotalAmount:     cart.TotalPrice,
		ShippingAddress: address,
		PaymentInfo: models.PaymentInfo{
			PaymentIntentID: intent.ID,
			PaymentStatus:   models.PaymentStatusPending,
		},
		OrderStatus: models.OrderStatusPending,
		StatusHistory: []models.StatusEntry{{
			Status:    models.OrderStatusPending,
			Note:      "Order placed, awaiting payment",
			Timestamp: time.Now(),
		}},
	}
	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error("Order creation failed after payment intent was opened",
			zap.String("user_id", userID),
			zap.String("payment_intent_id", intent.ID),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("Checkout started",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return &CheckoutResult{ClientSecret: intent.ClientSecret, OrderID: order.ID}, nil
}

// ConfirmPayment finalizes an order after the processor reports the payment
// as succeeded: stock is decremented once, the order moves to processing and
// the owner's cart is emptied.
func (s *PaymentService) ConfirmPayment(ctx context.Context, actor models.Actor, orderID, paymentIntentID string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperror.Forbidden("Not authorized to confirm this order")
	}
	if order.PaymentInfo.PaymentIntentID != paymentIntentID {
		return nil, apperror.InvalidState("Payment intent does not belong to this order")
	}

	intent, err := s.processor.GetIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, apperror.Upstream("Error retrieving payment intent", err)
	}
	if intent.Status != stripepay.StatusSucceeded {
		return nil, apperror.InvalidState("Payment not completed")
	}
	return s.finalize(ctx, order)
}

func (s *PaymentService) finalize(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.PaymentInfo.PaymentStatus == models.PaymentStatusCompleted {
		return nil, apperror.InvalidState("Payment already confirmed for order %s", order.ID)
	}
	if order.OrderStatus != models.OrderStatusPending {
		return nil, apperror.InvalidState("Order %s is %s and can no longer be paid", order.ID, order.OrderStatus)
	}

	if err := s.stock.take(ctx, order.Items); err != nil {
		s.log.Error("Stock decrement failed for a paid order, manual reconciliation required",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return nil, err
	}

	updated, err := s.orders.Transition(ctx, order.ID, repositories.OrderTransition{
		From:          []models.OrderStatus{models.OrderStatusPending},
		ExpectPayment: models.PaymentStatusPending,
		To:            models.OrderStatusProcessing,
		PaymentStatus: models.PaymentStatusCompleted,
		Note:          "Payment completed successfully",
	})
	if err != nil {
		// Another confirmation or a cancellation won the race.
		s.stock.restore(ctx, order.Items)
		return nil, err
	}

	if err := s.emptyCart(ctx, order.UserID); err != nil {
		s.log.Warn("Failed to empty cart after payment", zap.String("user_id", order.UserID), zap.Error(err))
	}
	publish(ctx, s.publisher, s.log, updated)

	s.log.Info("Payment confirmed", zap.String("order_id", updated.ID), zap.String("user_id", updated.UserID))
	return updated, nil
}

func (s *PaymentService) emptyCart(ctx context.Context, userID string) error {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	cart.Empty()
	return s.carts.Save(ctx, cart)
}

// HandleWebhook processes a signed processor event. Each event id is handled
// at most once; a succeeded payment finalizes its order unless that already
// happened through ConfirmPayment.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		s.log.Warn("Webhook signature verification failed", zap.Error(err))
		return &apperror.Error{Kind: apperror.KindValidation, Message: "Invalid webhook", Err: err}
	}

	first, err := s.ledger.MarkProcessed(ctx, event.ID)
	if err != nil {
		return err
	}
	if !first {
		s.log.Info("Skipping duplicate webhook event", zap.String("event_id", event.ID))
		return nil
	}

	if err := s.handleEvent(ctx, event); err != nil {
		// Let the processor redeliver.
		if forgetErr := s.ledger.Forget(ctx, event.ID); forgetErr != nil {
			s.log.Warn("Failed to release webhook event", zap.String("event_id", event.ID), zap.Error(forgetErr))
		}
		return err
	}
	return nil
}

func (s *PaymentService) handleEvent(ctx context.Context, event *stripepay.Event) error {
	s.log.Info("Processing webhook", zap.String("event_type", event.Type), zap.String("event_id", event.ID))

	switch event.Type {
	case stripepay.EventPaymentSucceeded:
		order, err := s.orders.GetByPaymentIntentID(ctx, event.PaymentIntentID)
		if errors.Is(err, apperror.ErrNotFound) {
			s.log.Warn("No order for payment intent", zap.String("payment_intent_id", event.PaymentIntentID))
			return nil
		}
		if err != nil {
			return err
		}
		if order.PaymentInfo.PaymentStatus == models.PaymentStatusCompleted {
			return nil
		}
		if _, err := s.finalize(ctx, order); err != nil {
			switch {
			case errors.Is(err, apperror.ErrInvalidState):
				s.log.Info("Order no longer payable", zap.String("order_id", order.ID), zap.Error(err))
				return nil
			case errors.Is(err, apperror.ErrConflict):
				// Redelivery cannot bring the stock back.
				s.log.Error("Paid order could not be fulfilled, manual reconciliation required",
					zap.String("order_id", order.ID),
					zap.String("payment_intent_id", event.PaymentIntentID),
					zap.Error(err),
				)
				return nil
			}
			return err
		}
	case stripepay.EventPaymentFailed:
		s.log.Warn("Payment failed", zap.String("payment_intent_id", event.PaymentIntentID))
	default:
		s.log.Debug("Unhandled webhook event type", zap.String("event_type", event.Type))
	}
	return nil
}

// publish is fire-and-forget: a failed notification never fails the request.
func publish(ctx context.Context, publisher EventPublisher, log *zap.Logger, order *models.Order) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishOrderEvent(ctx, models.NewOrderStatusEvent(order)); err != nil {
		log.Warn("Failed to publish order event", zap.String("order_id", order.ID), zap.Error(err))
	}
}
