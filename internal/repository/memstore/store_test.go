package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/repository"
)

func TestStore_RoomNames(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := &model.Room{Name: "A", Capacity: 1}
	b := &model.Room{Name: "B", Capacity: 1}
	if err := s.Rooms().Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.Rooms().Create(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := s.Rooms().Create(ctx, &model.Room{Name: "A"}); !errors.Is(err, repository.ErrDuplicateName) {
		t.Fatalf("got %v", err)
	}
	if err := s.Rooms().Update(ctx, &model.Room{ID: b.ID, Name: "A"}); !errors.Is(err, repository.ErrDuplicateName) {
		t.Fatalf("got %v", err)
	}
	// the store itself treats a same-name update as a no-op
	if err := s.Rooms().Update(ctx, &model.Room{ID: a.ID, Name: "A", Capacity: 4}); err != nil {
		t.Fatalf("got %v", err)
	}
}

func TestStore_CreateIfFreeConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	room := &model.Room{Name: "Main", Capacity: 1}
	if err := s.Rooms().Create(ctx, room); err != nil {
		t.Fatal(err)
	}
	start := time.Date(2031, 1, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	var ok int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := &model.Booking{RoomID: room.ID, UserID: "u", StartTime: start, EndTime: start.Add(time.Hour)}
			if err := s.Bookings().CreateIfFree(ctx, b); err == nil {
				atomic.AddInt64(&ok, 1)
			} else if !errors.Is(err, repository.ErrOverlap) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()
	if ok != 1 {
		t.Fatalf("successes = %d, want 1", ok)
	}
}

func TestStore_CreateIfFreeTruncatesToMicros(t *testing.T) {
	s := New()
	ctx := context.Background()
	room := &model.Room{Name: "Main", Capacity: 1}
	_ = s.Rooms().Create(ctx, room)
	start := time.Date(2031, 1, 1, 10, 0, 0, 0, time.UTC)
	first := &model.Booking{RoomID: room.ID, UserID: "u", StartTime: start, EndTime: start.Add(time.Hour + 500*time.Nanosecond)}
	if err := s.Bookings().CreateIfFree(ctx, first); err != nil {
		t.Fatal(err)
	}
	if !first.EndTime.Equal(start.Add(time.Hour)) {
		t.Fatalf("EndTime = %v, want %v", first.EndTime, start.Add(time.Hour))
	}
	got, err := s.Bookings().GetByID(ctx, first.ID)
	if err != nil || !got.EndTime.Equal(start.Add(time.Hour)) {
		t.Fatalf("stored EndTime = %v, %v", got, err)
	}

	// touches the truncated end, so it does not overlap
	next := &model.Booking{RoomID: room.ID, UserID: "u", StartTime: start.Add(time.Hour + 200*time.Nanosecond), EndTime: start.Add(2 * time.Hour)}
	if err := s.Bookings().CreateIfFree(ctx, next); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}
	if next.StartTime.Nanosecond()%1000 != 0 {
		t.Fatalf("StartTime not truncated: %v", next.StartTime)
	}
}

func TestStore_DeleteCascade(t *testing.T) {
	s := New()
	ctx := context.Background()
	room := &model.Room{Name: "Main", Capacity: 1}
	_ = s.Rooms().Create(ctx, room)
	start := time.Date(2031, 1, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		b := &model.Booking{RoomID: room.ID, UserID: "u", StartTime: start.Add(time.Duration(i) * time.Hour), EndTime: start.Add(time.Duration(i+1) * time.Hour)}
		if err := s.Bookings().CreateIfFree(ctx, b); err != nil {
			t.Fatal(err)
		}
	}
	n, err := s.Rooms().DeleteCascade(ctx, room.ID)
	if err != nil || n != 3 {
		t.Fatalf("DeleteCascade = %d, %v", n, err)
	}
	left, _ := s.Bookings().List(ctx)
	if len(left) != 0 {
		t.Fatalf("bookings left: %d", len(left))
	}
}
