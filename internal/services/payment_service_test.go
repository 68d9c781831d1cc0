package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"
	"petalpaint/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2500), services.ToMinorUnits(decimal.NewFromInt(25)))
	assert.Equal(t, int64(1999), services.ToMinorUnits(decimal.RequireFromString("19.99")))
	assert.Equal(t, int64(1), services.ToMinorUnits(decimal.RequireFromString("0.005")))
}

func TestCheckout_FullFlow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	customer := models.Actor{UserID: "u1", Role: models.RoleCustomer}

	tenner := s.addProduct(t, "Sunflower Bunch", "10.00", 5)
	fiver := s.addProduct(t, "Watercolor Pan", "5.00", 3)

	_, err := s.carts.AddItem(ctx, "u1", tenner.ID, 2)
	require.NoError(t, err)
	cart, err := s.carts.AddItem(ctx, "u1", fiver.ID, 1)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(cart.TotalPrice), cart.TotalPrice.String())

	result, err := s.payments.CreateIntent(ctx, "u1", testAddress)
	require.NoError(t, err)
	assert.NotEmpty(t, result.ClientSecret)

	order, err := s.orderSvc.Get(ctx, customer, result.OrderID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(order.TotalAmount))
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentInfo.PaymentStatus)
	assert.Len(t, order.StatusHistory, 1)
	assert.Equal(t, int64(2500), s.processor.amount(order.PaymentInfo.PaymentIntentID))
	// Checkout only checks stock.
	assert.Equal(t, 5, s.stock(t, tenner.ID))

	intentID := order.PaymentInfo.PaymentIntentID

	_, err = s.payments.ConfirmPayment(ctx, customer, order.ID, intentID)
	assert.True(t, errors.Is(err, apperror.ErrInvalidState), "unpaid intent must not confirm")

	s.processor.succeed(intentID)
	confirmed, err := s.payments.ConfirmPayment(ctx, customer, order.ID, intentID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, confirmed.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, confirmed.PaymentInfo.PaymentStatus)
	assert.Len(t, confirmed.StatusHistory, 2)
	assert.Equal(t, "Payment completed successfully", confirmed.StatusHistory[1].Note)

	assert.Equal(t, 3, s.stock(t, tenner.ID))
	assert.Equal(t, 2, s.stock(t, fiver.ID))

	cart, err = s.carts.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())
	assert.Equal(t, 1, s.publisher.count())

	// A second confirmation moves nothing.
	_, err = s.payments.ConfirmPayment(ctx, customer, order.ID, intentID)
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
	assert.Equal(t, 3, s.stock(t, tenner.ID))
	assert.Equal(t, 2, s.stock(t, fiver.ID))
}

func TestCreateIntent_RejectsQuantityAboveStock(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	lily := s.addProduct(t, "Lily", "8.00", 1)
	_, err := s.carts.AddItem(ctx, "u1", lily.ID, 2)
	require.NoError(t, err)

	_, err = s.payments.CreateIntent(ctx, "u1", testAddress)

	assert.True(t, errors.Is(err, apperror.ErrConflict))
	orders, err := s.orderSvc.ListForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreateIntent_EmptyCart(t *testing.T) {
	s := newStore(t)

	_, err := s.payments.CreateIntent(context.Background(), "nobody", testAddress)

	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
	assert.Equal(t, "Cart is empty", err.Error())
}

func TestCreateIntent_ProcessorFailure(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := s.addProduct(t, "Orchid", "30.00", 4)
	_, err := s.carts.AddItem(ctx, "u1", p.ID, 1)
	require.NoError(t, err)
	s.processor.createErr = errors.New("stripe is down")

	_, err = s.payments.CreateIntent(ctx, "u1", testAddress)

	assert.True(t, errors.Is(err, apperror.ErrUpstream))
	orders, _ := s.orderSvc.ListForUser(ctx, "u1")
	assert.Empty(t, orders)
}

func TestConfirmPayment_ForeignOrderIsForbidden(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	orderID, intentID := checkout(t, s, "u1", 1)
	s.processor.succeed(intentID)

	_, err := s.payments.ConfirmPayment(ctx, models.Actor{UserID: "intruder", Role: models.RoleCustomer}, orderID, intentID)

	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestConfirmPayment_IntentMustBelongToOrder(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	orderID, _ := checkout(t, s, "u1", 1)
	_, otherIntent := checkout(t, s, "u2", 1)
	s.processor.succeed(otherIntent)

	_, err := s.payments.ConfirmPayment(ctx, models.Actor{UserID: "u1"}, orderID, otherIntent)

	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
}

func TestConfirmPayment_AfterCancelKeepsStock(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	customer := models.Actor{UserID: "u1", Role: models.RoleCustomer}
	orderID, intentID := checkout(t, s, "u1", 2)
	order, _ := s.orders.GetByID(ctx, orderID)
	productID := order.Items[0].ProductID

	_, err := s.orderSvc.Cancel(ctx, customer, orderID)
	require.NoError(t, err)

	s.processor.succeed(intentID)
	_, err = s.payments.ConfirmPayment(ctx, customer, orderID, intentID)

	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
	assert.Equal(t, 10, s.stock(t, productID))
}

func TestHandleWebhook_FinalizesOnceAndIgnoresDuplicates(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	orderID, intentID := checkout(t, s, "u1", 3)
	order, _ := s.orders.GetByID(ctx, orderID)
	productID := order.Items[0].ProductID
	s.processor.succeed(intentID)

	payload := []byte(fmt.Sprintf(`{"id":"evt_1","type":"payment_intent.succeeded","paymentIntentId":%q}`, intentID))

	require.NoError(t, s.payments.HandleWebhook(ctx, payload, validSignature))
	require.NoError(t, s.payments.HandleWebhook(ctx, payload, validSignature))

	order, err := s.orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentInfo.PaymentStatus)
	assert.Equal(t, 7, s.stock(t, productID))

	// A distinct event for the same intent is acknowledged without change.
	again := []byte(fmt.Sprintf(`{"id":"evt_2","type":"payment_intent.succeeded","paymentIntentId":%q}`, intentID))
	require.NoError(t, s.payments.HandleWebhook(ctx, again, validSignature))
	assert.Equal(t, 7, s.stock(t, productID))

	// The client confirmation that arrives late is rejected.
	_, err = s.payments.ConfirmPayment(ctx, models.Actor{UserID: "u1"}, orderID, intentID)
	assert.True(t, errors.Is(err, apperror.ErrInvalidState))
	assert.Equal(t, 7, s.stock(t, productID))
}

func TestHandleWebhook_AcknowledgesPaidOrderWithoutStock(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	orderID, intentID := checkout(t, s, "u1", 3)
	order, _ := s.orders.GetByID(ctx, orderID)
	productID := order.Items[0].ProductID
	require.NoError(t, s.products.AdjustStock(ctx, productID, -9))
	s.processor.succeed(intentID)

	payload := []byte(fmt.Sprintf(`{"id":"evt_short","type":"payment_intent.succeeded","paymentIntentId":%q}`, intentID))

	require.NoError(t, s.payments.HandleWebhook(ctx, payload, validSignature))
	order, err := s.orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentInfo.PaymentStatus)
	assert.Equal(t, 1, s.stock(t, productID))

	// The event stays recorded, so a redelivery is skipped.
	require.NoError(t, s.products.AdjustStock(ctx, productID, 9))
	require.NoError(t, s.payments.HandleWebhook(ctx, payload, validSignature))
	order, err = s.orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.OrderStatus)
	assert.Equal(t, 10, s.stock(t, productID))
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	s := newStore(t)

	err := s.payments.HandleWebhook(context.Background(), []byte(`{}`), "t=1,v1=forged")

	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

// checkout places a pending order for qty units of a fresh product with stock 10.
func checkout(t *testing.T, s *store, userID string, qty int) (orderID, intentID string) {
	t.Helper()
	ctx := context.Background()
	p := s.addProduct(t, "Hydrangea "+userID, "12.50", 10)
	_, err := s.carts.AddItem(ctx, userID, p.ID, qty)
	require.NoError(t, err)
	result, err := s.payments.CreateIntent(ctx, userID, testAddress)
	require.NoError(t, err)
	order, err := s.orders.GetByID(ctx, result.OrderID)
	require.NoError(t, err)
	return order.ID, order.PaymentInfo.PaymentIntentID
}
