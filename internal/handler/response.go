package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/swap-backend/internal/reqctx"
	"github.com/shinyyama/swap-backend/internal/service"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

// respondError writes err as a JSON error body. Service errors keep their
// message; anything else is logged and reported as internal.
func respondError(c echo.Context, logger *slog.Logger, err error) error {
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		return c.JSON(statusFor(svcErr.Kind), NewErrorResponse(svcErr.Code(), svcErr.Message))
	}
	ctx := c.Request().Context()
	logger.ErrorContext(ctx, "request failed",
		"error", err,
		"method", c.Request().Method,
		"path", c.Path(),
		"request_id", reqctx.RequestID(ctx),
		"uid", reqctx.UID(ctx),
	)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal error"))
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(kind, service.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(kind, service.ErrInvalidOperation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func requireUID(c echo.Context) (string, bool) {
	uid, _ := c.Get("uid").(string)
	return uid, uid != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", msg))
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
