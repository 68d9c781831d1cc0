package repositories

import (
	"context"

	"petalpaint/internal/models"
)

// ProductQuery filters and pages the public catalog.
type ProductQuery struct {
	Category string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error)
	Featured(ctx context.Context, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Deactivate(ctx context.Context, id string) error
	// AdjustStock adds delta to the product's stock in one conditional
	// statement. A negative delta is applied only if enough stock remains.
	AdjustStock(ctx context.Context, id string, delta int) error
}
