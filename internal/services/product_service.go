package services

import (
	"context"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"
)

const (
	defaultProductPageSize = 12
	maxProductPageSize     = 100
	featuredLimit          = 8
)

// ProductPage is one page of the public catalog.
type ProductPage struct {
	Products    []models.Product `json:"products"`
	Count       int              `json:"count"`
	Total       int64            `json:"total"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// ListProducts returns one page of active products.
func (s *ProductService) ListProducts(ctx context.Context, q repositories.ProductQuery) (*ProductPage, error) {
	if q.Category != "" && q.Category != string(models.CategoryFlowers) && q.Category != string(models.CategoryPaints) {
		return nil, apperror.Validation("unknown category %q", q.Category)
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultProductPageSize
	}
	if q.Limit > maxProductPageSize {
		q.Limit = maxProductPageSize
	}
	if q.Sort == "" {
		q.Sort = "-createdAt"
	}

	products, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &ProductPage{
		Products:    products,
		Count:       len(products),
		Total:       total,
		TotalPages:  int((total + int64(q.Limit) - 1) / int64(q.Limit)),
		CurrentPage: q.Page,
	}, nil
}

// FeaturedProducts returns the newest featured products.
func (s *ProductService) FeaturedProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.Featured(ctx, featuredLimit)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct adds a new, active product.
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	product.ID = ""
	product.IsActive = true
	return s.repo.Create(ctx, product)
}

// UpdateProduct updates an existing product.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	return s.repo.Update(ctx, product)
}

// DeleteProduct deactivates a product.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.Deactivate(ctx, id)
}
