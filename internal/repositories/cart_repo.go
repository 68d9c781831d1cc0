package repositories

import (
	"context"

	"petalpaint/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// GetByUserID returns the user's cart with products resolved.
	GetByUserID(ctx context.Context, userID string) (*models.Cart, error)
	// Save persists the cart and replaces all of its lines atomically.
	Save(ctx context.Context, cart *models.Cart) error
}
