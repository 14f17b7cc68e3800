// Package service holds the room and booking managers: authorization,
// validation and the translation of store errors into the domain error
// taxonomy that the HTTP layer maps to status codes.
package service

import (
	"errors"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
)

// Error kinds.  Every error a manager returns for a caller mistake wraps
// exactly one of these; anything else is an internal failure.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrInvalidRange    = errors.New("invalid range")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
)

// Reasons returned to clients.
const (
	ReasonAdminRequired      = "admin privileges required"
	ReasonNotBookingOwner    = "not authorized to delete this booking"
	ReasonRoomNotFound       = "room not found"
	ReasonBookingNotFound    = "booking not found"
	ReasonRoomNameExists     = "room with this name already exists"
	ReasonRoomNameTaken      = "room name already taken"
	ReasonBlankRoomName      = "room name must not be blank"
	ReasonNegativeCapacity   = "capacity must not be negative"
	ReasonStartInPast        = "start time must not precede current time"
	ReasonStartNotBeforeEnd  = "start must precede end"
	ReasonExceedsMaxDuration = "exceeds max duration"
	ReasonRoomAlreadyBooked  = "room already booked for that time range"
	ReasonUnauthenticated    = "authentication required"
)

// Error is a classified failure with a human-readable reason.
type Error struct {
	Kind   error
	Reason string
}

func (e *Error) Error() string { return e.Reason }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func requirePrincipal(actor model.Principal) error {
	if actor.ID == "" {
		return newError(ErrUnauthenticated, ReasonUnauthenticated)
	}
	return nil
}

func requireSuperuser(actor model.Principal) error {
	if err := requirePrincipal(actor); err != nil {
		return err
	}
	if !actor.IsSuperuser {
		return newError(ErrForbidden, ReasonAdminRequired)
	}
	return nil
}

// Reason returns the client-facing reason of err, or "" when err is not a
// classified *Error.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// ErrorKind names the kind of err for log fields.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
