package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
)

// principalKey is the echo.Context key Authenticate stores the caller under.
const principalKey = "principal"

// PrincipalFrom returns the authenticated caller, if any.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok && p.ID != ""
}

// principalID is used in rate-limit keys and logs; "anon" when the
// request is not authenticated.
func principalID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return p.ID
	}
	return "anon"
}
