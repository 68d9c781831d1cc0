package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"petalpaint/internal/database"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"
	"petalpaint/internal/services"
	"petalpaint/pkg/stripepay"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const validSignature = "t=1,v1=valid"

// fakeProcessor stands in for Stripe. Intents stay unpaid until succeed is called.
type fakeProcessor struct {
	mu        sync.Mutex
	intents   map[string]*stripepay.Intent
	seq       int
	createErr error
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{intents: make(map[string]*stripepay.Intent)}
}

func (p *fakeProcessor) CreateIntent(_ context.Context, amount int64, _ string, metadata map[string]string) (*stripepay.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.createErr != nil {
		return nil, p.createErr
	}
	p.seq++
	id := fmt.Sprintf("pi_%d", p.seq)
	intent := &stripepay.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       "requires_payment_method",
		Amount:       amount,
		Metadata:     metadata,
	}
	p.intents[id] = intent
	return intent, nil
}

func (p *fakeProcessor) GetIntent(_ context.Context, id string) (*stripepay.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return nil, errors.New("no such payment_intent")
	}
	cp := *intent
	return &cp, nil
}

func (p *fakeProcessor) ParseWebhook(payload []byte, signature string) (*stripepay.Event, error) {
	if signature != validSignature {
		return nil, errors.New("signature mismatch")
	}
	var event stripepay.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (p *fakeProcessor) succeed(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intents[id].Status = stripepay.StatusSucceeded
}

func (p *fakeProcessor) amount(id string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intents[id].Amount
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *recordingPublisher) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// store bundles real services over an in-memory SQLite database.
type store struct {
	db        *gorm.DB
	products  *repositories.GORMProductRepository
	orders    *repositories.GORMOrderRepository
	processor *fakeProcessor
	publisher *recordingPublisher

	carts    *services.CartService
	payments *services.PaymentService
	orderSvc *services.OrderService
}

func newStore(t *testing.T) *store {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { database.Close(db) })

	log := zap.NewNop()
	products := repositories.NewGORMProductRepository(db)
	carts := repositories.NewGORMCartRepository(db)
	orders := repositories.NewGORMOrderRepository(db)
	processor := newFakeProcessor()
	publisher := &recordingPublisher{}
	ledger := repositories.NewMemoryEventLedger(time.Hour)

	return &store{
		db:        db,
		products:  products,
		orders:    orders,
		processor: processor,
		publisher: publisher,
		carts:     services.NewCartService(carts, products, log),
		payments:  services.NewPaymentService(carts, orders, products, ledger, processor, publisher, "usd", log),
		orderSvc:  services.NewOrderService(orders, products, publisher, log),
	}
}

func (s *store) addProduct(t *testing.T, name, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		Category: models.CategoryFlowers,
		IsActive: true,
	}
	require.NoError(t, s.products.Create(context.Background(), p))
	return p
}

func (s *store) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := s.products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

var testAddress = models.ShippingAddress{
	FullName:   "Ada Gardener",
	Street:     "1 Bloom Street",
	City:       "Utrecht",
	PostalCode: "3511",
	Country:    "NL",
}
