package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/queue"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/repository"
)

// RoomInput is the full set of writable room fields.  A zero Capacity
// means DefaultRoomCapacity.
type RoomInput struct {
	Name     string
	Capacity int
}

// RoomPatch carries the fields of an update; nil fields are left as they
// are.
type RoomPatch struct {
	Name     *string
	Capacity *int
}

// Replace returns a patch that overwrites every field with in.
func (in RoomInput) Replace() RoomPatch {
	name, capacity := in.Name, in.Capacity
	if capacity == 0 {
		capacity = model.DefaultRoomCapacity
	}
	return RoomPatch{Name: &name, Capacity: &capacity}
}

// RoomManagerOptions tunes a RoomManager.  The zero value is usable.
type RoomManagerOptions struct {
	// AllowSelfRename lets an update keep the room's current name.  When
	// false, repeating the current name is a Conflict like any other
	// taken name.
	AllowSelfRename bool
	Logger          *zap.Logger
	Events          EventPublisher
	Now             func() time.Time
}

// RoomManager implements room administration.  Mutations require a
// superuser; reads are open to any authenticated principal.
type RoomManager struct {
	store           RoomStore
	allowSelfRename bool
	logger          *zap.Logger
	events          EventPublisher
	now             func() time.Time
}

func NewRoomManager(store RoomStore, opts RoomManagerOptions) *RoomManager {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RoomManager{
		store:           store,
		allowSelfRename: opts.AllowSelfRename,
		logger:          opts.Logger,
		events:          opts.Events,
		now:             opts.Now,
	}
}

// Create adds a room named in.Name.
func (m *RoomManager) Create(ctx context.Context, actor model.Principal, in RoomInput) (room *model.Room, err error) {
	logger := opLogger(m.logger, "RoomManager", "Create", actor)
	defer func() {
		if room != nil {
			logResult(logger, "room created", err, zap.Uint64("room_id", room.ID))
			return
		}
		logResult(logger, "room create", err, zap.String("room_name", in.Name))
	}()

	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := validateRoomFields(&in.Name, &in.Capacity); err != nil {
		return nil, err
	}

	if _, err := m.store.GetByName(ctx, in.Name); err == nil {
		return nil, newError(ErrConflict, ReasonRoomNameExists)
	} else if !errors.Is(err, repository.ErrRoomNotFound) {
		return nil, fmt.Errorf("lookup room name: %w", err)
	}

	capacity := in.Capacity
	if capacity == 0 {
		capacity = model.DefaultRoomCapacity
	}
	r := &model.Room{Name: in.Name, Capacity: capacity}
	if err := m.store.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrDuplicateName) {
			// lost a race with a concurrent create of the same name
			return nil, newError(ErrConflict, ReasonRoomNameExists)
		}
		return nil, fmt.Errorf("create room: %w", err)
	}

	ev := queue.NewEvent(queue.RoomCreated, actor, m.now())
	ev.Room = r
	publish(ctx, m.events, logger, ev)
	return r, nil
}

// List returns every room ordered by id.
func (m *RoomManager) List(ctx context.Context, actor model.Principal) ([]model.Room, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	rooms, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// Get returns the room with the given id.
func (m *RoomManager) Get(ctx context.Context, actor model.Principal, id uint64) (*model.Room, error) {
	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	room, err := m.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, newError(ErrNotFound, ReasonRoomNotFound)
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return room, nil
}

// Update applies p to room id.
func (m *RoomManager) Update(ctx context.Context, actor model.Principal, id uint64, p RoomPatch) (room *model.Room, err error) {
	logger := opLogger(m.logger, "RoomManager", "Update", actor).With(zap.Uint64("room_id", id))
	defer func() { logResult(logger, "room updated", err) }()

	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	if err := validateRoomFields(p.Name, p.Capacity); err != nil {
		return nil, err
	}

	current, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		other, lookupErr := m.store.GetByName(ctx, *p.Name)
		switch {
		case lookupErr == nil:
			if other.ID != current.ID || !m.allowSelfRename {
				return nil, newError(ErrConflict, ReasonRoomNameTaken)
			}
		case !errors.Is(lookupErr, repository.ErrRoomNotFound):
			return nil, fmt.Errorf("lookup room name: %w", lookupErr)
		}
		current.Name = *p.Name
	}
	if p.Capacity != nil {
		current.Capacity = *p.Capacity
		if current.Capacity == 0 {
			current.Capacity = model.DefaultRoomCapacity
		}
	}

	if err := m.store.Update(ctx, current); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateName):
			return nil, newError(ErrConflict, ReasonRoomNameTaken)
		case errors.Is(err, repository.ErrRoomNotFound):
			// deleted between the lookup and the write
			return nil, newError(ErrNotFound, ReasonRoomNotFound)
		}
		return nil, fmt.Errorf("update room: %w", err)
	}

	ev := queue.NewEvent(queue.RoomUpdated, actor, m.now())
	ev.Room = current
	publish(ctx, m.events, logger, ev)
	return current, nil
}

// Delete removes room id together with all of its bookings.
func (m *RoomManager) Delete(ctx context.Context, actor model.Principal, id uint64) (err error) {
	logger := opLogger(m.logger, "RoomManager", "Delete", actor).With(zap.Uint64("room_id", id))
	var removed int64
	defer func() { logResult(logger, "room deleted", err, zap.Int64("removed_bookings", removed)) }()

	if err := requireSuperuser(actor); err != nil {
		return err
	}

	room, err := m.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	removed, err = m.store.DeleteCascade(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return newError(ErrNotFound, ReasonRoomNotFound)
		}
		return fmt.Errorf("delete room: %w", err)
	}

	ev := queue.NewEvent(queue.RoomDeleted, actor, m.now())
	ev.Room = room
	ev.RemovedBookings = removed
	publish(ctx, m.events, logger, ev)
	return nil
}

// validateRoomFields checks the fields that are present.
func validateRoomFields(name *string, capacity *int) error {
	if name != nil && strings.TrimSpace(*name) == "" {
		return newError(ErrInvalidInput, ReasonBlankRoomName)
	}
	if capacity != nil && *capacity < 0 {
		return newError(ErrInvalidInput, ReasonNegativeCapacity)
	}
	return nil
}
