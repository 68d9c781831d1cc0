package handlers

import (
	"petalpaint/internal/middleware"
	"petalpaint/internal/models"
	"petalpaint/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PaymentHandler handles checkout and processor callbacks.
type PaymentHandler struct {
	service  *services.PaymentService
	validate *validator.Validate
	log      *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		validate: NewValidator(),
		log:      log,
	}
}

// RegisterRoutes registers the payment routes. The webhook is authenticated
// by its signature instead of a token.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	paymentRoutes := router.Group("/payment")
	paymentRoutes.Post("/webhook", h.HandleWebhook)
	paymentRoutes.Post("/create-intent", authRequired, h.HandleCreateIntent)
	paymentRoutes.Post("/confirm", authRequired, h.HandleConfirm)
}

// CreateIntentRequest starts checkout of the caller's cart.
type CreateIntentRequest struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress"`
}

// ConfirmRequest reports a payment the client completed with the processor.
type ConfirmRequest struct {
	OrderID         string `json:"orderId" validate:"required"`
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
}

func (h *PaymentHandler) HandleCreateIntent(c *fiber.Ctx) error {
	var req CreateIntentRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, h.log, err)
	}
	result, err := h.service.CreateIntent(c.UserContext(), middleware.ActorFrom(c).UserID, req.ShippingAddress)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"clientSecret": result.ClientSecret,
		"orderId":      result.OrderID,
	})
}

func (h *PaymentHandler) HandleConfirm(c *fiber.Ctx) error {
	var req ConfirmRequest
	if err := parseAndValidate(c, h.validate, &req); err != nil {
		return respondError(c, h.log, err)
	}
	order, err := h.service.ConfirmPayment(c.UserContext(), middleware.ActorFrom(c), req.OrderID, req.PaymentIntentID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return success(c, fiber.StatusOK, fiber.Map{
		"message": "Payment confirmed",
		"order":   order,
	})
}

// HandleWebhook verifies and applies a processor event. The raw body is
// needed for the signature check.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	if err := h.service.HandleWebhook(c.UserContext(), c.Body(), c.Get("Stripe-Signature")); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"received": true})
}
