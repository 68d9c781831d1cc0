package services_test

import (
	"context"
	"errors"
	"testing"

	"petalpaint/internal/apperror"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"
	"petalpaint/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestProductService_ListProductsAppliesDefaults(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	expectedProducts := []models.Product{
		{ID: "1", Name: "Tulip Bunch", Price: decimal.NewFromInt(10), Stock: 100, IsActive: true},
		{ID: "2", Name: "Gouache Set", Price: decimal.NewFromInt(20), Stock: 50, IsActive: true},
	}
	wantQuery := repositories.ProductQuery{Sort: "-createdAt", Page: 1, Limit: 12}
	mockRepo.On("List", mock.Anything, wantQuery).Return(expectedProducts, int64(25), nil).Once()

	page, err := service.ListProducts(context.Background(), repositories.ProductQuery{})

	assert.NoError(t, err)
	assert.Equal(t, expectedProducts, page.Products)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, int64(25), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	mockRepo.AssertExpectations(t)
}

func TestProductService_ListProductsRejectsUnknownCategory(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	_, err := service.ListProducts(context.Background(), repositories.ProductQuery{Category: "garden-tools"})

	assert.True(t, errors.Is(err, apperror.ErrValidation))
	mockRepo.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestProductService_GetProductByID(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)
	ctx := context.Background()

	expectedProduct := &models.Product{ID: "1", Name: "Tulip Bunch", Price: decimal.NewFromInt(10), Stock: 100}

	// Test successful retrieval
	mockRepo.On("GetByID", ctx, "1").Return(expectedProduct, nil).Once()
	product, err := service.GetProductByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	// Test product not found
	mockRepo.On("GetByID", ctx, "99").Return(nil, apperror.NotFound("product with ID 99 not found")).Once()
	product, err = service.GetProductByID(ctx, "99")
	assert.Error(t, err)
	assert.Nil(t, product)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProductActivatesIt(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	product := &models.Product{ID: "client-chosen", Name: "Peony", Price: decimal.NewFromInt(12), Category: models.CategoryFlowers}
	mockRepo.On("Create", mock.Anything, mock.MatchedBy(func(p *models.Product) bool {
		return p.IsActive && p.ID == ""
	})).Return(nil).Once()

	assert.NoError(t, service.CreateProduct(context.Background(), product))
	mockRepo.AssertExpectations(t)
}

func TestProductService_FeaturedProductsLimit(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo)

	mockRepo.On("Featured", mock.Anything, 8).Return([]models.Product{}, nil).Once()

	products, err := service.FeaturedProducts(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, products)
	mockRepo.AssertExpectations(t)
}
