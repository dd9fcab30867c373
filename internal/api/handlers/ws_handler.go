package handlers

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	gorillaws "github.com/gorilla/websocket"

	"github.com/listmill/listmill/internal/websocket"
)

// WSHandler upgrades HTTP connections into hub clients
type WSHandler struct {
	hub      *websocket.Hub
	upgrader gorillaws.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates a new WSHandler
func NewWSHandler(hub *websocket.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:      hub,
		upgrader: websocket.NewSecureUpgrader(logger),
		logger:   logger,
	}
}

// Serve handles GET /ws. Connected clients subscribe to groups and receive
// new-post events as they are ingested.
func (h *WSHandler) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return nil
	}

	client := websocket.NewClient(h.hub, conn, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	return nil
}
