package model

import "time"

// Booking reserves a room for the half-open window [StartTime, EndTime).
// A booking is never edited in place; changing it means deleting it and
// creating a new one.
//
// Fields:
//
//	ID        – primary key identifier assigned by the store.
//	RoomID    – plain foreign key to rooms.id; the room is looked up explicitly.
//	UserID    – identity of the principal that created the booking.
//	StartTime – inclusive start, stored and returned in UTC.
//	EndTime   – exclusive end, stored and returned in UTC.
//	Purpose   – optional free text.
type Booking struct {
	ID        uint64    `json:"id"`                // bookings.id
	RoomID    uint64    `json:"room_id"`           // bookings.room_id
	UserID    string    `json:"user_id"`           // bookings.user_id
	StartTime time.Time `json:"start_time"`        // bookings.start_us
	EndTime   time.Time `json:"end_time"`          // bookings.end_us
	Purpose   *string   `json:"purpose,omitempty"` // bookings.purpose (nullable)
}

// Overlaps reports whether [s1, e1) and [s2, e2) share any instant.
// Windows that only touch at an endpoint do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Overlaps reports whether the booking's window intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return Overlaps(b.StartTime, b.EndTime, start, end)
}

// Duration is the length of the booking window.
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}
