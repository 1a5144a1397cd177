package handler

import (
	"os"

	"leadqualify-be/internal/pkg/logger"
	internalWS "leadqualify-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AlertHandler upgrades sales-team dashboard connections onto the
// alert websocket hub. The visitor-facing chat never connects here.
type AlertHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewAlertHandler(hub *internalWS.Hub, log logger.ILogger) *AlertHandler {
	return &AlertHandler{
		hub:    hub,
		logger: log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *AlertHandler) ServeWs(c *fiber.Ctx) error {
	// 1. Get Token source
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	// 2. Parse JWT with the same secret the REST middleware uses
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		h.logger.Warn("AlertHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	// 3. Extract TenantID from Claim
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	tenantIDStr, ok := claims["tenant_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing tenant_id"})
	}

	tenantID, err := uuid.Parse(tenantIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid tenant ID format in token"})
	}

	// Upgrade via Fiber WebSocket Middleware
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(c *websocket.Conn) {
			h.logger.Info("AlertHandler", "Starting WebSocket session", map[string]interface{}{"tenant_id": tenantID})
			internalWS.ServeWs(h.hub, c, tenantID)
			h.logger.Info("AlertHandler", "WebSocket session ended", map[string]interface{}{"tenant_id": tenantID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the alert websocket route.
func (h *AlertHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/alerts", h.ServeWs)
}
