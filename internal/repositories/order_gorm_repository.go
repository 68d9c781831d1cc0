package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

// Create stores the order together with its lines and first history entries.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *GORMOrderRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*models.Order, error) {
	return r.first(ctx, "payment_intent_id = ?", intentID)
}

func (r *GORMOrderRepository) first(ctx context.Context, cond string, arg string) (*models.Order, error) {
	var order models.Order
	if err := withDetails(r.db.WithContext(ctx)).First(&order, cond, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order %s not found", arg)
		}
		return nil, fmt.Errorf("failed to get order %s: %w", arg, err)
	}
	return &order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *GORMOrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := withDetails(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders of user %s: %w", userID, err)
	}
	return orders, nil
}

// List returns one page of all orders, newest first, and the total count.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Status != "" {
		query = query.Where("order_status = ?", string(filter.Status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	err := withDetails(query).
		Order("created_at DESC").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *GORMOrderRepository) Transition(ctx context.Context, id string, t OrderTransition) (*models.Order, error) {
	now := time.Now()
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Order{}).Where("id = ?", id)
		if len(t.From) > 0 {
			from := make([]string, len(t.From))
			for i, s := range t.From {
				from[i] = string(s)
			}
			query = query.Where("order_status IN ?", from)
		}
		if t.ExpectPayment != "" {
			query = query.Where("payment_status = ?", string(t.ExpectPayment))
		}

		updates := map[string]interface{}{
			"order_status": string(t.To),
			"updated_at":   now,
		}
		if t.PaymentStatus != "" {
			updates["payment_status"] = string(t.PaymentStatus)
		}
		if t.TrackingNumber != "" {
			updates["tracking_number"] = t.TrackingNumber
		}
		if t.DeliveryDate != nil {
			updates["delivery_date"] = *t.DeliveryDate
		}

		res := query.Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update order %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to look up order %s: %w", id, err)
			}
			if count == 0 {
				return apperror.NotFound("order %s not found", id)
			}
			return apperror.InvalidState("order %s cannot move to %s from its current state", id, t.To)
		}

		entry := models.StatusEntry{OrderID: id, Status: t.To, Note: t.Note, Timestamp: now}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append status history of order %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
