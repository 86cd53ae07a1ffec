package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/swap-backend/internal/identity"
)

type UserHandler struct {
	directory identity.Directory
	logger    *slog.Logger
}

func NewUserHandler(directory identity.Directory, logger *slog.Logger) *UserHandler {
	return &UserHandler{directory: directory, logger: orDefault(logger)}
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return badRequest(c, "invalid uid")
	}
	profile, err := h.directory.PublicProfile(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
		}
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, profile)
}
