package repositories

import (
	"context"
	"errors"
	"fmt"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMCartRepository is a GORM implementation of CartRepository.
type GORMCartRepository struct {
	db *gorm.DB
}

// NewGORMCartRepository creates a new instance of GORMCartRepository.
func NewGORMCartRepository(db *gorm.DB) *GORMCartRepository {
	return &GORMCartRepository{db: db}
}

func (r *GORMCartRepository) GetByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("cart for user %s not found", userID)
		}
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID, err)
	}
	return &cart, nil
}

func (r *GORMCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cart.ID == "" {
			cart.ID = uuid.New().String()
			if err := tx.Omit(clause.Associations).Create(cart).Error; err != nil {
				return fmt.Errorf("failed to create cart: %w", err)
			}
		} else if err := tx.Omit(clause.Associations).Save(cart).Error; err != nil {
			return fmt.Errorf("failed to save cart %s: %w", cart.ID, err)
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear lines of cart %s: %w", cart.ID, err)
		}
		if len(cart.Items) == 0 {
			return nil
		}

		rows := make([]models.CartItem, len(cart.Items))
		for i, item := range cart.Items {
			rows[i] = models.CartItem{
				CartID:    cart.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			}
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to write lines of cart %s: %w", cart.ID, err)
		}
		for i := range rows {
			cart.Items[i].ID = rows[i].ID
			cart.Items[i].CartID = cart.ID
		}
		return nil
	})
}
