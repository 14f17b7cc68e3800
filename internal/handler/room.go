package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/service"
)

// CachePurger drops cached room reads.  *middleware.ResponseCache
// satisfies it.
type CachePurger interface {
	Purge(ctx context.Context)
}

// RoomHandler exposes room administration over HTTP.
type RoomHandler struct {
	Rooms    *service.RoomManager
	Bookings *service.BookingManager
	Cache    CachePurger // optional
	Logger   *zap.Logger
}

// NewRoomHandler panics on a nil manager, as misconfiguration is a
// programming error.
func NewRoomHandler(rooms *service.RoomManager, bookings *service.BookingManager, cache CachePurger, logger *zap.Logger) *RoomHandler {
	if rooms == nil || bookings == nil {
		panic("nil manager passed to NewRoomHandler")
	}
	return &RoomHandler{Rooms: rooms, Bookings: bookings, Cache: cache, Logger: orNop(logger)}
}

// roomBody is the create/replace payload.  Capacity may be omitted.
type roomBody struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// roomPatchBody is the PATCH payload; absent fields are left unchanged.
type roomPatchBody struct {
	Name     *string `json:"name"`
	Capacity *int    `json:"capacity"`
}

func (h *RoomHandler) purge(c echo.Context) {
	if h.Cache != nil {
		h.Cache.Purge(c.Request().Context())
	}
}

// Create handles POST /v1/rooms.
func (h *RoomHandler) Create(c echo.Context) error {
	var body roomBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	room, err := h.Rooms.Create(c.Request().Context(), principal(c), service.RoomInput{Name: body.Name, Capacity: body.Capacity})
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, room)
}

// List handles GET /v1/rooms.
func (h *RoomHandler) List(c echo.Context) error {
	rooms, err := h.Rooms.List(c.Request().Context(), principal(c))
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, rooms)
}

// Get handles GET /v1/rooms/:id.
func (h *RoomHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	room, err := h.Rooms.Get(c.Request().Context(), principal(c), id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, room)
}

// Replace handles PUT /v1/rooms/:id; every field is overwritten.
func (h *RoomHandler) Replace(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var body roomBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	in := service.RoomInput{Name: body.Name, Capacity: body.Capacity}
	return h.update(c, id, in.Replace())
}

// Patch handles PATCH /v1/rooms/:id; only the fields sent change.
func (h *RoomHandler) Patch(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var body roomPatchBody
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	return h.update(c, id, service.RoomPatch{Name: body.Name, Capacity: body.Capacity})
}

func (h *RoomHandler) update(c echo.Context, id uint64, p service.RoomPatch) error {
	room, err := h.Rooms.Update(c.Request().Context(), principal(c), id, p)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, room)
}

// Delete handles DELETE /v1/rooms/:id.  The room's bookings go with it.
func (h *RoomHandler) Delete(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	if err := h.Rooms.Delete(c.Request().Context(), principal(c), id); err != nil {
		return writeError(c, h.Logger, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// BookingsOf handles GET /v1/rooms/:id/bookings.
func (h *RoomHandler) BookingsOf(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	list, err := h.Bookings.ListForRoom(c.Request().Context(), principal(c), id)
	if err != nil {
		return writeError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, list)
}
