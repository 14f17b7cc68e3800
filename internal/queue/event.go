// Package queue defines the audit events exchanged over the message broker
// and the RabbitMQ publisher and consumer that carry them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
)

// EventType names what happened.  The routing key on the broker is always
// the audit queue; the type travels in the payload.
type EventType string

const (
	RoomCreated      EventType = "room.created"
	RoomUpdated      EventType = "room.updated"
	RoomDeleted      EventType = "room.deleted"
	BookingCreated   EventType = "booking.created"
	BookingCancelled EventType = "booking.cancelled"
)

// Event is published after a room or booking mutation has been committed.
// It carries enough information for the audit consumer to write a line
// without querying the database.
type Event struct {
	ID              string         `json:"id"`
	Type            EventType      `json:"type"`
	OccurredAt      time.Time      `json:"occurred_at"`
	PrincipalID     string         `json:"principal_id"`
	Superuser       bool           `json:"superuser"`
	Room            *model.Room    `json:"room,omitempty"`
	Booking         *model.Booking `json:"booking,omitempty"`
	RemovedBookings int64          `json:"removed_bookings,omitempty"`
}

// NewEvent stamps a fresh id and the given time on an event of type t.
func NewEvent(t EventType, actor model.Principal, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		OccurredAt:  at.UTC(),
		PrincipalID: actor.ID,
		Superuser:   actor.IsSuperuser,
	}
}
