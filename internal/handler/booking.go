package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/service"
)

// BookingHandler exposes bookings over HTTP.
type BookingHandler struct {
	Bookings *service.BookingManager
	Logger   *zap.Logger
}

func NewBookingHandler(bookings *service.BookingManager, logger *zap.Logger) *BookingHandler {
	if bookings == nil {
		panic("nil manager passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Logger: orNop(logger)}
}

// bookingBody is the create payload.  Times are RFC 3339 with an offset.
type bookingBody struct {
	RoomID    uint64     `json:"room_id"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Purpose   *string    `json:"purpose"`
}

// Create handles POST /v1/bookings.  The booking is owned by the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	var body bookingBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.RoomID == 0 || body.StartTime == nil || body.EndTime == nil {
		return badRequest(c, "room_id, start_time and end_time are required")
	}
	// an empty purpose is the same as none
	if body.Purpose != nil && strings.TrimSpace(*body.Purpose) == "" {
		body.Purpose = nil
	}

	b, err := h.Bookings.Create(c.Request().Context(), principal(c), service.BookingInput{
		RoomID:  body.RoomID,
		Start:   *body.StartTime,
		End:     *body.EndTime,
		Purpose: body.Purpose,
	})
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// List handles GET /v1/bookings and returns every booking.
func (h *BookingHandler) List(c echo.Context) error {
	list, err := h.Bookings.List(c.Request().Context(), principal(c))
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Mine handles GET /v1/my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
	list, err := h.Bookings.ListForUser(c.Request().Context(), principal(c))
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	b, err := h.Bookings.Get(c.Request().Context(), principal(c), id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Delete handles DELETE /v1/bookings/:id.  Owners and superusers only.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.Bookings.Delete(c.Request().Context(), principal(c), id); err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
