package handlers

import (
	"petalpaint/internal/middleware"
	"petalpaint/internal/models"
	"petalpaint/internal/repositories"
	"petalpaint/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
	log      *zap.Logger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: NewValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, authRequired, adminOnly fiber.Handler) {
	orderRoutes := router.Group("/orders", authRequired)
	orderRoutes.Get("/", h.HandleGetMyOrders)
	// Registered before /:id so that "all" is not taken for an order id.
	orderRoutes.Get("/all", adminOnly, h.HandleGetAllOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/cancel", h.HandleCancelOrder)
	orderRoutes.Put("/:id/status", adminOnly, h.HandleUpdateOrderStatus)
}

// UpdateStatusRequest is an admin fulfillment update.
type UpdateStatusRequest struct {
	Status         string `json:"status" validate:"required,oneof=processing shipped delivered cancelled"`
	Note           string `json:"note" validate:"omitempty,max=500"`
	TrackingNumber string `json:"trackingNumber" validate:"omitempty,max=100"`
}

// HandleGetMyOrders lists the caller's orders, newest first.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListForUser(c.UserContext(), middleware.ActorFrom(c).UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"orders": orders,
		"count":  len(orders),
	})
}

// HandleGetAllOrders pages through every order, optionally filtered by status.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	page, err := h.service.ListAll(c.UserContext(), middleware.ActorFrom(c), repositories.OrderFilter{
		Status: models.OrderStatus(c.Query("status")),
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 0),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"orders":      page.Orders,
		"count":       page.Count,
		"total":       page.Total,
		"totalPages":  page.TotalPages,
		"currentPage": page.CurrentPage,
	})
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{"order": order})
}

func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.Cancel(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Order cancelled successfully",
		"order":   order,
	})
}

// HandleUpdateOrderStatus moves an order along fulfillment.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, h.log, err)
	}

	order, err := h.service.UpdateStatus(c.UserContext(), middleware.ActorFrom(c), c.Params("id"), services.UpdateStatusInput{
		Status:         models.OrderStatus(req.Status),
		Note:           req.Note,
		TrackingNumber: req.TrackingNumber,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Order status updated to " + req.Status,
		"order":   order,
	})
}
