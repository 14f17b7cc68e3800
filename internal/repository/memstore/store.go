// Package memstore is an in-memory record store for rooms and bookings.  It
// honours the same contracts as the SQL repositories (sentinel errors,
// ordering, cascade and atomic create) so it can stand in for them in tests
// and in single-process development runs.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/repository"
)

// Store holds rooms and bookings behind one mutex.  Rooms() and Bookings()
// expose the two repository views.
type Store struct {
	mu          sync.Mutex
	rooms       map[uint64]model.Room
	bookings    map[uint64]model.Booking
	nextRoom    uint64
	nextBooking uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		rooms:    make(map[uint64]model.Room),
		bookings: make(map[uint64]model.Booking),
	}
}

// Rooms returns the room repository view of the store.
func (s *Store) Rooms() *RoomRepo { return &RoomRepo{s: s} }

// Bookings returns the booking repository view of the store.
func (s *Store) Bookings() *BookingRepo { return &BookingRepo{s: s} }

// RoomRepo is the rooms table of a Store.
type RoomRepo struct{ s *Store }

func (r *RoomRepo) Create(_ context.Context, room *model.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.nameTakenLocked(room.Name, 0) {
		return repository.ErrDuplicateName
	}
	r.s.nextRoom++
	room.ID = r.s.nextRoom
	r.s.rooms[room.ID] = *room
	return nil
}

func (r *RoomRepo) List(_ context.Context) ([]model.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Room, 0, len(r.s.rooms))
	for _, room := range r.s.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *RoomRepo) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	room, ok := r.s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	return &room, nil
}

func (r *RoomRepo) GetByName(_ context.Context, name string) (*model.Room, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, room := range r.s.rooms {
		if room.Name == name {
			room := room
			return &room, nil
		}
	}
	return nil, repository.ErrRoomNotFound
}

func (r *RoomRepo) Update(_ context.Context, room *model.Room) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[room.ID]; !ok {
		return repository.ErrRoomNotFound
	}
	if r.s.nameTakenLocked(room.Name, room.ID) {
		return repository.ErrDuplicateName
	}
	r.s.rooms[room.ID] = *room
	return nil
}

func (r *RoomRepo) DeleteCascade(_ context.Context, id uint64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[id]; !ok {
		return 0, repository.ErrRoomNotFound
	}
	var removed int64
	for bid, b := range r.s.bookings {
		if b.RoomID == id {
			delete(r.s.bookings, bid)
			removed++
		}
	}
	delete(r.s.rooms, id)
	return removed, nil
}

// nameTakenLocked reports whether a room other than exceptID uses name.
func (s *Store) nameTakenLocked(name string, exceptID uint64) bool {
	for id, room := range s.rooms {
		if id != exceptID && room.Name == name {
			return true
		}
	}
	return false
}

// BookingRepo is the bookings table of a Store.
type BookingRepo struct{ s *Store }

// CreateIfFree checks the room and the overlap predicate and inserts under
// the store mutex.
func (r *BookingRepo) CreateIfFree(_ context.Context, b *model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rooms[b.RoomID]; !ok {
		return repository.ErrRoomNotFound
	}
	// same resolution as the SQL store
	b.StartTime = b.StartTime.UTC().Truncate(time.Microsecond)
	b.EndTime = b.EndTime.UTC().Truncate(time.Microsecond)
	for _, existing := range r.s.bookings {
		if existing.RoomID == b.RoomID && existing.Overlaps(b.StartTime, b.EndTime) {
			return repository.ErrOverlap
		}
	}
	r.s.nextBooking++
	b.ID = r.s.nextBooking
	r.s.bookings[b.ID] = cloneBooking(*b)
	return nil
}

func (r *BookingRepo) List(_ context.Context) ([]model.Booking, error) {
	return r.filter(func(model.Booking) bool { return true }, byID), nil
}

func (r *BookingRepo) ListByUser(_ context.Context, userID string) ([]model.Booking, error) {
	return r.filter(func(b model.Booking) bool { return b.UserID == userID }, byStart), nil
}

func (r *BookingRepo) ListByRoom(_ context.Context, roomID uint64) ([]model.Booking, error) {
	return r.filter(func(b model.Booking) bool { return b.RoomID == roomID }, byStart), nil
}

func (r *BookingRepo) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	b = cloneBooking(b)
	return &b, nil
}

func (r *BookingRepo) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.bookings[id]; !ok {
		return repository.ErrBookingNotFound
	}
	delete(r.s.bookings, id)
	return nil
}

func (r *BookingRepo) filter(keep func(model.Booking) bool, less func(a, b model.Booking) bool) []model.Booking {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Booking, 0)
	for _, b := range r.s.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func byID(a, b model.Booking) bool { return a.ID < b.ID }

func byStart(a, b model.Booking) bool {
	if a.StartTime.Equal(b.StartTime) {
		return a.ID < b.ID
	}
	return a.StartTime.Before(b.StartTime)
}

func cloneBooking(b model.Booking) model.Booking {
	if b.Purpose != nil {
		p := *b.Purpose
		b.Purpose = &p
	}
	return b
}
