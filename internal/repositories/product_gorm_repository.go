package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// sortColumns whitelists the catalog sort keys accepted from clients.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"price":     "price",
	"name":      "name",
	"rating":    "rating",
}

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// List returns one page of active products and the total number of matches.
func (r *GORMProductRepository) List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(q.Search) + "%"
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", like, like)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := query.Order(orderClause(q.Sort)).
		Limit(q.Limit).
		Offset((q.Page - 1) * q.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func orderClause(sort string) string {
	dir := "ASC"
	key := sort
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		key = sort[1:]
	}
	column, ok := sortColumns[key]
	if !ok {
		return "created_at DESC"
	}
	return column + " " + dir
}

// Featured returns the newest active featured products.
func (r *GORMProductRepository) Featured(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("featured = ? AND is_active = ?", true, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get featured products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update updates an existing product in the database.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	res := r.db.WithContext(ctx).Model(&models.Product{ID: product.ID}).
		Select("name", "description", "price", "stock", "category", "images", "featured", "is_active", "rating", "updated_at").
		Updates(product)
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("product with ID %s not found for update", product.ID)
	}
	return nil
}

// Deactivate hides a product from the catalog. Products are never hard-deleted
// because orders keep referencing them.
func (r *GORMProductRepository) Deactivate(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("product with ID %s not found for deletion", id)
	}
	return nil
}

// AdjustStock changes stock by delta, refusing to go below zero.
func (r *GORMProductRepository) AdjustStock(ctx context.Context, id string, delta int) error {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id)
	if delta < 0 {
		query = query.Where("stock >= ?", -delta)
	}
	res := query.UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("failed to adjust stock of product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	// Nothing matched: either the product is gone or the guard failed.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return apperror.Conflict("insufficient stock for product %s", id)
}
