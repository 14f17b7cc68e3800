package service

import (
	"context"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/queue"
)

// RoomStore is the persistence a RoomManager needs.  Implementations
// return the repository package sentinels (ErrRoomNotFound,
// ErrDuplicateName).
type RoomStore interface {
	Create(ctx context.Context, room *model.Room) error
	List(ctx context.Context) ([]model.Room, error)
	GetByID(ctx context.Context, id uint64) (*model.Room, error)
	GetByName(ctx context.Context, name string) (*model.Room, error)
	Update(ctx context.Context, room *model.Room) error
	// DeleteCascade removes the room and its bookings atomically and
	// reports how many bookings went with it.
	DeleteCascade(ctx context.Context, id uint64) (int64, error)
}

// BookingStore is the persistence a BookingManager needs.
type BookingStore interface {
	// CreateIfFree inserts b unless its room is missing (ErrRoomNotFound)
	// or already holds an overlapping booking (ErrOverlap).  The check and
	// the insert are one atomic step.
	CreateIfFree(ctx context.Context, b *model.Booking) error
	List(ctx context.Context) ([]model.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
	ListByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error)
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	Delete(ctx context.Context, id uint64) error
}

// RoomLookup resolves a room by id on behalf of actor, returning an
// ErrNotFound kind when it does not exist.  *RoomManager satisfies it.
type RoomLookup interface {
	Get(ctx context.Context, actor model.Principal, id uint64) (*model.Room, error)
}

// EventPublisher receives audit events after a mutation commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}
