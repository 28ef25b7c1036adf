package handler

import (
	"context"

	"chat-app-be/internal/pkg/logger"
	"chat-app-be/internal/pkg/serverutils"
	internalWS "chat-app-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// SocketHandler upgrades /ws requests and hands the connection to the realtime gateway.
// A token is optional at handshake; clients may authenticate with an authenticate event instead.
type SocketHandler struct {
	ctx     context.Context
	hub     *internalWS.Hub
	gateway internalWS.Gateway
	logger  logger.ILogger
}

// NewSocketHandler binds connections to ctx, which should live as long as the server.
func NewSocketHandler(ctx context.Context, hub *internalWS.Hub, gw internalWS.Gateway, log logger.ILogger) *SocketHandler {
	return &SocketHandler{
		ctx:     ctx,
		hub:     hub,
		gateway: gw,
		logger:  log,
	}
}

func (h *SocketHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	// fiber reuses the request context once the connection is hijacked
	token := serverutils.BearerToken(c)
	remote := c.IP()

	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Debug("SocketHandler", "Connection opened", map[string]interface{}{"remote": remote})
		internalWS.ServeWs(h.ctx, h.hub, h.gateway, conn, token, h.logger)
		h.logger.Debug("SocketHandler", "Connection closed", map[string]interface{}{"remote": remote})
	})(c)
}

func (h *SocketHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
