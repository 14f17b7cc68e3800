package handler // handler package contains the HTTP handlers for rooms and bookings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/middleware"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/service"
)

// errorStatus maps the service error taxonomy onto HTTP status codes.
// Unclassified errors are internal.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidRange), errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": reason}.  The cause of an internal
// error is logged and never sent to the client.
func writeError(c echo.Context, logger *zap.Logger, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("request_id", middleware.RequestIDFrom(c)),
		)
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}
	return c.JSON(status, echo.Map{"error": service.Reason(err)})
}

func badRequest(c echo.Context, reason string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": reason})
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// principal returns the caller stored by the authentication middleware.  A
// missing principal yields the zero value, which the managers reject as
// unauthenticated.
func principal(c echo.Context) model.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
