package handler

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/swap-backend/internal/presence"
)

type RealtimeHandler struct {
	hub    *presence.Hub
	logger *slog.Logger
}

func NewRealtimeHandler(hub *presence.Hub, logger *slog.Logger) *RealtimeHandler {
	return &RealtimeHandler{hub: hub, logger: orDefault(logger)}
}

// Connect upgrades to a websocket and blocks until the client leaves.
func (h *RealtimeHandler) Connect(c echo.Context) error {
	uid, ok := requireUID(c)
	if !ok {
		return unauthorized(c)
	}
	if err := h.hub.Serve(c.Response(), c.Request(), uid); err != nil {
		// The upgrader has already answered the request.
		h.logger.Warn("websocket upgrade failed", "uid", uid, "error", err)
	}
	return nil
}
