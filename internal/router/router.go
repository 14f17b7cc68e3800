package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/auth"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/handler"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/middleware"
)

// Deps bundles what the routes need.  RateLimit and RoomCache may be
// pass-through when Redis is unavailable.
type Deps struct {
	Identity  auth.IdentityProvider
	Rooms     *handler.RoomHandler
	Bookings  *handler.BookingHandler
	RateLimit echo.MiddlewareFunc
	RoomCache *middleware.ResponseCache
}

// RegisterRoutes wires the health check and the authenticated /v1 API onto e.
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Unauthenticated liveness check for load balancers.
	e.GET("/healthz", handler.Health)

	// Everything under /v1 requires a bearer token.  Authentication runs
	// before the limiter so buckets are keyed by principal.
	v1 := e.Group("/v1", middleware.Authenticate(d.Identity))
	if d.RateLimit != nil {
		v1.Use(d.RateLimit)
	}

	v1.GET("/me", handler.Me)

	// Room reads are cached; the handlers purge the cache on every change.
	cached := d.RoomCache.Middleware()
	v1.POST("/rooms", d.Rooms.Create)
	v1.GET("/rooms", d.Rooms.List, cached)
	v1.GET("/rooms/:id", d.Rooms.Get, cached)
	v1.PUT("/rooms/:id", d.Rooms.Replace)
	v1.PATCH("/rooms/:id", d.Rooms.Patch)
	v1.DELETE("/rooms/:id", d.Rooms.Delete)
	v1.GET("/rooms/:id/bookings", d.Rooms.BookingsOf)

	v1.POST("/bookings", d.Bookings.Create)
	v1.GET("/bookings", d.Bookings.List)
	v1.GET("/bookings/:id", d.Bookings.Get)
	v1.DELETE("/bookings/:id", d.Bookings.Delete)
	v1.GET("/my-bookings", d.Bookings.Mine)
}
