package handlers

import (
	"petalpaint/internal/middleware"
	"petalpaint/internal/notify"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// NotificationHandler upgrades authenticated clients to a websocket that
// receives their order status updates.
type NotificationHandler struct {
	hub *notify.Hub
	log *zap.Logger
}

func NewNotificationHandler(hub *notify.Hub, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{hub: hub, log: log}
}

func (h *NotificationHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	router.Get("/ws", authRequired, h.requireUpgrade, websocket.New(h.serve))
}

func (h *NotificationHandler) requireUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fail(c, fiber.StatusUpgradeRequired, "Websocket upgrade required", nil)
	}
	return c.Next()
}

func (h *NotificationHandler) serve(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.LocalUserID).(string)
	sub := h.hub.Subscribe(userID, conn)
	defer h.hub.Unsubscribe(sub)

	// The client sends nothing meaningful; reading only detects disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.log.Debug("Websocket closed", zap.String("user_id", userID), zap.Error(err))
			return
		}
	}
}
