package services

import (
	"context"
	"errors"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"

	"go.uber.org/zap"
)

// CartService handles business logic related to shopping carts.
type CartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	log      *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(carts repositories.CartRepository, products repositories.ProductRepository, log *zap.Logger) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		log:      log,
	}
}

// GetCart returns the user's cart, or an empty one if nothing was added yet.
func (s *CartService) GetCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cart, err
}

// AddItem adds quantity of a product. An existing line is incremented;
// otherwise a new line captures the product's current price.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, apperror.NotFound("Product not found")
	}

	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	} else if err != nil {
		return nil, err
	}

	if idx := cart.FindItem(productID); idx >= 0 {
		cart.Items[idx].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ProductID: productID,
			Quantity:  quantity,
			Price:     product.Price,
		})
	}
	return s.save(ctx, cart)
}

// UpdateItem sets the quantity of an existing line.
func (s *CartService) UpdateItem(ctx context.Context, userID, productID string, quantity int) (*models.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, apperror.NotFound("Item not found in cart")
	}
	cart.Items[idx].Quantity = quantity
	return s.save(ctx, cart)
}

// RemoveItem drops the line for productID, if present.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) (*models.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	kept := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept
	return s.save(ctx, cart)
}

// Clear empties the cart without deleting it.
func (s *CartService) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Empty()
	return s.save(ctx, cart)
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	cart.Recalculate()
	if err := s.carts.Save(ctx, cart); err != nil {
		s.log.Error("Failed to save cart", zap.String("user_id", cart.UserID), zap.Error(err))
		return nil, err
	}
	// Reload so that new lines carry their resolved product.
	return s.carts.GetByUserID(ctx, cart.UserID)
}
