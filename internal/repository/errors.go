// Package repository implements the record store for rooms and bookings on
// top of database/sql.  The sentinel values below let the service layer tell
// store outcomes apart without inspecting driver errors.
package repository

import "errors"

// ErrRoomNotFound is returned when no room has the requested ID.
var ErrRoomNotFound = errors.New("room not found")

// ErrBookingNotFound is returned when no booking has the requested ID.
var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateName is returned when an insert or update would give two
// rooms the same name.  It is raised from the unique index, so it also
// covers concurrent writers that both passed a lookup.
var ErrDuplicateName = errors.New("room name already exists")

// ErrOverlap is returned by CreateIfFree when the room already has a
// booking intersecting the requested window.
var ErrOverlap = errors.New("booking overlaps an existing booking")
