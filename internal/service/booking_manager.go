package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/queue"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/repository"
)

// MaxBookingDuration is the longest window a single booking may hold.
const MaxBookingDuration = 4 * time.Hour

// BookingInput describes a booking request.  The owner is always the
// requesting principal.
type BookingInput struct {
	RoomID  uint64
	Start   time.Time
	End     time.Time
	Purpose *string
}

// BookingManagerOptions tunes a BookingManager.  The zero value is usable.
type BookingManagerOptions struct {
	Logger *zap.Logger
	Events EventPublisher
	Now    func() time.Time
}

// BookingManager validates and records bookings.
type BookingManager struct {
	store  BookingStore
	rooms  RoomLookup
	logger *zap.Logger
	events EventPublisher
	now    func() time.Time
}

func NewBookingManager(store BookingStore, rooms RoomLookup, opts BookingManagerOptions) *BookingManager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BookingManager{
		store:  store,
		rooms:  rooms,
		logger: opts.Logger,
		events: opts.Events,
		now:    opts.Now,
	}
}

// Create books in.RoomID for actor.  The window checks run before the room
// is looked up; the overlap check and the insert are a single store
// operation so two concurrent overlapping requests cannot both succeed.
func (m *BookingManager) Create(ctx context.Context, actor model.Principal, in BookingInput) (booking *model.Booking, err error) {
	logger := opLogger(m.logger, "BookingManager", "Create", actor).With(zap.Uint64("room_id", in.RoomID))
	defer func() {
		if booking != nil {
			logResult(logger, "booking created", err, zap.Uint64("booking_id", booking.ID))
			return
		}
		logResult(logger, "booking create", err)
	}()

	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	if err := validateWindow(in.Start, in.End, m.now()); err != nil {
		return nil, err
	}
	if _, err := m.rooms.Get(ctx, actor, in.RoomID); err != nil {
		return nil, err
	}

	b := &model.Booking{
		RoomID:    in.RoomID,
		UserID:    actor.ID,
		StartTime: in.Start.UTC(),
		EndTime:   in.End.UTC(),
		Purpose:   in.Purpose,
	}
	if err := m.store.CreateIfFree(ctx, b); err != nil {
		switch {
		case errors.Is(err, repository.ErrOverlap):
			return nil, newError(ErrConflict, ReasonRoomAlreadyBooked)
		case errors.Is(err, repository.ErrRoomNotFound):
			return nil, newError(ErrNotFound, ReasonRoomNotFound)
		}
		return nil, fmt.Errorf("create booking: %w", err)
	}

	ev := queue.NewEvent(queue.BookingCreated, actor, m.now())
	ev.Booking = b
	publish(ctx, m.events, logger, ev)
	return b, nil
}

// validateWindow applies the window rules in order: start must be in the
// future, before end, and no more than MaxBookingDuration before end.
func validateWindow(start, end, now time.Time) error {
	if !start.After(now) {
		return newError(ErrInvalidRange, ReasonStartInPast)
	}
	if !start.Before(end) {
		return newError(ErrInvalidRange, ReasonStartNotBeforeEnd)
	}
	if end.Sub(start) > MaxBookingDuration {
		return newError(ErrInvalidRange, ReasonExceedsMaxDuration)
	}
	return nil
}

// List returns every booking ordered by id.  Any authenticated principal
// sees all bookings.
func (m *BookingManager) List(ctx context.Context, actor model.Principal) ([]model.Booking, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	out, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

// Get returns booking id under the same visibility as List.
func (m *BookingManager) Get(ctx context.Context, actor model.Principal, id uint64) (*model.Booking, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	b, err := m.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, newError(ErrNotFound, ReasonBookingNotFound)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// ListForUser returns the bookings owned by actor, earliest first.
func (m *BookingManager) ListForUser(ctx context.Context, actor model.Principal) ([]model.Booking, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	out, err := m.store.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by user: %w", err)
	}
	return out, nil
}

// ListForRoom returns the bookings of room roomID, earliest first.
func (m *BookingManager) ListForRoom(ctx context.Context, actor model.Principal, roomID uint64) ([]model.Booking, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	if _, err := m.rooms.Get(ctx, actor, roomID); err != nil {
		return nil, err
	}
	out, err := m.store.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list bookings by room: %w", err)
	}
	return out, nil
}

// Delete cancels booking id.  Only its owner or a superuser may do so.
func (m *BookingManager) Delete(ctx context.Context, actor model.Principal, id uint64) (err error) {
	logger := opLogger(m.logger, "BookingManager", "Delete", actor).With(zap.Uint64("booking_id", id))
	defer func() { logResult(logger, "booking cancelled", err) }()

	if err := requirePrincipal(actor); err != nil {
		return err
	}
	b, err := m.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.CanCancel(b) {
		return newError(ErrForbidden, ReasonNotBookingOwner)
	}
	if err := m.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return newError(ErrNotFound, ReasonBookingNotFound)
		}
		return fmt.Errorf("delete booking: %w", err)
	}

	ev := queue.NewEvent(queue.BookingCancelled, actor, m.now())
	ev.Booking = b
	publish(ctx, m.events, logger, ev)
	return nil
}
