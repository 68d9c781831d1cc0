package handlers

import (
	"petalpaint/internal/middleware"
	"petalpaint/internal/models"
	"petalpaint/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	service  *services.CartService
	validate *validator.Validate
	log      *zap.Logger
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, log *zap.Logger) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: NewValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the cart routes. Every route needs a token.
func (h *CartHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	cartRoutes := router.Group("/cart", authRequired)
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddItem)
	cartRoutes.Put("/", h.HandleUpdateItem)
	cartRoutes.Delete("/:productId", h.HandleRemoveItem)
	cartRoutes.Delete("/", h.HandleClearCart)
}

// CartItemRequest is the body of add and update calls.
type CartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

func cartResponse(c *fiber.Ctx, cart *models.Cart) error {
	return success(c, fiber.StatusOK, fiber.Map{"cart": cart})
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	cart, err := h.service.GetCart(c.UserContext(), middleware.ActorFrom(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return cartResponse(c, cart)
}

// HandleAddItem adds a product to the cart, merging with an existing line.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req CartItemRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, h.log, err)
	}
	cart, err := h.service.AddItem(c.UserContext(), middleware.ActorFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return cartResponse(c, cart)
}

// HandleUpdateItem sets the quantity of a line already in the cart.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req CartItemRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, h.log, err)
	}
	cart, err := h.service.UpdateItem(c.UserContext(), middleware.ActorFrom(c).UserID, req.ProductID, req.Quantity)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return cartResponse(c, cart)
}

func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	cart, err := h.service.RemoveItem(c.UserContext(), middleware.ActorFrom(c).UserID, c.Params("productId"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return cartResponse(c, cart)
}

func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart, err := h.service.Clear(c.UserContext(), middleware.ActorFrom(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Cart cleared",
		"cart":    cart,
	})
}
