package handlers

import (
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"
	"petalpaint/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
	log      *zap.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, log *zap.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: NewValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the product routes. Reads are public; writes
// need an admin token.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, authRequired, adminOnly fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/featured", h.HandleFeaturedProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
	productRoutes.Post("/", authRequired, adminOnly, h.HandleCreateProduct)
	productRoutes.Put("/:id", authRequired, adminOnly, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", authRequired, adminOnly, h.HandleDeleteProduct)
}

// HandleListProducts returns one filtered page of active products.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	page, err := h.service.ListProducts(c.UserContext(), repositories.ProductQuery{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.Query("sort"),
		Page:     c.QueryInt("page", 1),
		Limit:    c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"products":    page.Products,
		"count":       page.Count,
		"total":       page.Total,
		"totalPages":  page.TotalPages,
		"currentPage": page.CurrentPage,
	})
}

func (h *ProductHandler) HandleFeaturedProducts(c *fiber.Ctx) error {
	products, err := h.service.FeaturedProducts(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"products": products,
		"count":    len(products),
	})
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"product": product})
}

// HandleCreateProduct adds a product to the catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := parseAndValidate(c, h.validate, &product); err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.service.CreateProduct(c.UserContext(), &product); err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusCreated, fiber.Map{
		"message": "Product created successfully",
		"product": product,
	})
}

// HandleUpdateProduct applies the fields present in the body to an existing product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProductByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	id, createdAt := product.ID, product.CreatedAt

	if err := parseAndValidate(c, h.validate, product); err != nil {
		return respondError(c, h.log, err)
	}
	product.ID, product.CreatedAt = id, createdAt

	if err := h.service.UpdateProduct(c.UserContext(), product); err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

// HandleDeleteProduct hides a product from the catalog.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"message": "Product deleted successfully"})
}
