package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/queue"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/repository/memstore"
)

var (
	admin = model.Principal{ID: "admin", IsSuperuser: true}
	alice = model.Principal{ID: "alice"}
	bob   = model.Principal{ID: "bob"}
	t0    = time.Date(2031, 3, 10, 9, 0, 0, 0, time.UTC)
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	rooms    *RoomManager
	bookings *BookingManager
	events   *recordingPublisher
}

func newFixture(t *testing.T, opts RoomManagerOptions) fixture {
	t.Helper()
	store := memstore.New()
	events := &recordingPublisher{}
	now := func() time.Time { return t0 }
	opts.Events, opts.Now = events, now
	rooms := NewRoomManager(store.Rooms(), opts)
	bookings := NewBookingManager(store.Bookings(), rooms, BookingManagerOptions{Events: events, Now: now})
	return fixture{rooms: rooms, bookings: bookings, events: events}
}

func (f fixture) mustRoom(t *testing.T, name string) *model.Room {
	t.Helper()
	r, err := f.rooms.Create(context.Background(), admin, RoomInput{Name: name, Capacity: 10})
	if err != nil {
		t.Fatalf("create room %q: %v", name, err)
	}
	return r
}

func assertKind(t *testing.T, err, kind error, reason string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	if reason != "" && Reason(err) != reason {
		t.Fatalf("expected reason %q, got %q", reason, Reason(err))
	}
}

func TestRoomManager_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})

	t.Run("non admin is forbidden", func(t *testing.T) {
		_, err := f.rooms.Create(ctx, alice, RoomInput{Name: "Main"})
		assertKind(t, err, ErrForbidden, ReasonAdminRequired)
	})

	t.Run("anonymous is unauthenticated", func(t *testing.T) {
		_, err := f.rooms.Create(ctx, model.Principal{}, RoomInput{Name: "Main"})
		assertKind(t, err, ErrUnauthenticated, "")
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := f.rooms.Create(ctx, admin, RoomInput{Name: "  "})
		assertKind(t, err, ErrInvalidInput, ReasonBlankRoomName)
		_, err = f.rooms.Create(ctx, admin, RoomInput{Name: "Main", Capacity: -1})
		assertKind(t, err, ErrInvalidInput, ReasonNegativeCapacity)
	})

	t.Run("default capacity and duplicate name", func(t *testing.T) {
		r, err := f.rooms.Create(ctx, admin, RoomInput{Name: "Main"})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if r.ID == 0 || r.Capacity != model.DefaultRoomCapacity {
			t.Fatalf("unexpected room %+v", r)
		}
		_, err = f.rooms.Create(ctx, admin, RoomInput{Name: "Main", Capacity: 4})
		assertKind(t, err, ErrConflict, ReasonRoomNameExists)

		// names compare exactly
		if _, err := f.rooms.Create(ctx, admin, RoomInput{Name: "main"}); err != nil {
			t.Fatalf("create differently cased name: %v", err)
		}
	})

	if got := f.events.types(); len(got) != 2 || got[0] != queue.RoomCreated {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestRoomManager_Update(t *testing.T) {
	ctx := context.Background()
	name := func(s string) *string { return &s }

	t.Run("rename rules", func(t *testing.T) {
		f := newFixture(t, RoomManagerOptions{})
		mainRoom := f.mustRoom(t, "Main")
		f.mustRoom(t, "Annex")

		_, err := f.rooms.Update(ctx, alice, mainRoom.ID, RoomPatch{Name: name("X")})
		assertKind(t, err, ErrForbidden, "")

		_, err = f.rooms.Update(ctx, admin, 999, RoomPatch{Name: name("X")})
		assertKind(t, err, ErrNotFound, ReasonRoomNotFound)

		_, err = f.rooms.Update(ctx, admin, mainRoom.ID, RoomPatch{Name: name("Annex")})
		assertKind(t, err, ErrConflict, ReasonRoomNameTaken)

		_, err = f.rooms.Update(ctx, admin, mainRoom.ID, RoomPatch{Name: name("Main")})
		assertKind(t, err, ErrConflict, ReasonRoomNameTaken)

		got, err := f.rooms.Update(ctx, admin, mainRoom.ID, RoomInput{Name: "Board", Capacity: 0}.Replace())
		if err != nil {
			t.Fatalf("rename: %v", err)
		}
		if got.Name != "Board" || got.Capacity != model.DefaultRoomCapacity {
			t.Fatalf("unexpected room %+v", got)
		}
	})

	t.Run("self rename allowed by option", func(t *testing.T) {
		f := newFixture(t, RoomManagerOptions{AllowSelfRename: true})
		r := f.mustRoom(t, "Main")
		capacity := 20
		got, err := f.rooms.Update(ctx, admin, r.ID, RoomPatch{Name: name("Main"), Capacity: &capacity})
		if err != nil {
			t.Fatalf("self rename: %v", err)
		}
		if got.Capacity != 20 {
			t.Fatalf("capacity not updated: %+v", got)
		}
	})

	t.Run("patch keeps absent fields", func(t *testing.T) {
		f := newFixture(t, RoomManagerOptions{})
		r := f.mustRoom(t, "Main")
		capacity := 3
		got, err := f.rooms.Update(ctx, admin, r.ID, RoomPatch{Capacity: &capacity})
		if err != nil {
			t.Fatalf("patch: %v", err)
		}
		if got.Name != "Main" || got.Capacity != 3 {
			t.Fatalf("unexpected room %+v", got)
		}
	})
}

func TestRoomManager_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})
	r := f.mustRoom(t, "Main")
	b, err := f.bookings.Create(ctx, alice, BookingInput{RoomID: r.ID, Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("book: %v", err)
	}

	assertKind(t, f.rooms.Delete(ctx, alice, r.ID), ErrForbidden, "")
	if err := f.rooms.Delete(ctx, admin, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	assertKind(t, f.rooms.Delete(ctx, admin, r.ID), ErrNotFound, ReasonRoomNotFound)

	_, err = f.bookings.Get(ctx, alice, b.ID)
	assertKind(t, err, ErrNotFound, ReasonBookingNotFound)
	all, err := f.bookings.List(ctx, alice)
	if err != nil || len(all) != 0 {
		t.Fatalf("expected no bookings, got %v (err %v)", all, err)
	}
}

func TestBookingManager_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})
	r := f.mustRoom(t, "Main")

	cases := []struct {
		name   string
		roomID uint64
		start  time.Time
		end    time.Time
		kind   error
		reason string
	}{
		{"start equals now", r.ID, t0, t0.Add(time.Hour), ErrInvalidRange, ReasonStartInPast},
		{"start in past", r.ID, t0.Add(-time.Minute), t0.Add(time.Hour), ErrInvalidRange, ReasonStartInPast},
		{"past wins over bad order", r.ID, t0.Add(-time.Hour), t0.Add(-2 * time.Hour), ErrInvalidRange, ReasonStartInPast},
		{"start equals end", r.ID, t0.Add(time.Hour), t0.Add(time.Hour), ErrInvalidRange, ReasonStartNotBeforeEnd},
		{"end before start", r.ID, t0.Add(2 * time.Hour), t0.Add(time.Hour), ErrInvalidRange, ReasonStartNotBeforeEnd},
		{"just over max duration", r.ID, t0.Add(time.Hour), t0.Add(time.Hour + MaxBookingDuration + time.Second), ErrInvalidRange, ReasonExceedsMaxDuration},
		{"range checked before room", 999, t0.Add(time.Hour), t0.Add(6 * time.Hour), ErrInvalidRange, ReasonExceedsMaxDuration},
		{"missing room", 999, t0.Add(time.Hour), t0.Add(2 * time.Hour), ErrNotFound, ReasonRoomNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.bookings.Create(ctx, alice, BookingInput{RoomID: tc.roomID, Start: tc.start, End: tc.end})
			assertKind(t, err, tc.kind, tc.reason)
		})
	}

	t.Run("one second in the future is accepted", func(t *testing.T) {
		if _, err := f.bookings.Create(ctx, alice, BookingInput{RoomID: r.ID, Start: t0.Add(time.Second), End: t0.Add(time.Minute)}); err != nil {
			t.Fatalf("create: %v", err)
		}
	})

	t.Run("exactly max duration is accepted", func(t *testing.T) {
		start := t0.Add(24 * time.Hour)
		b, err := f.bookings.Create(ctx, alice, BookingInput{RoomID: r.ID, Start: start, End: start.Add(MaxBookingDuration)})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if b.UserID != alice.ID {
			t.Fatalf("owner = %q, want %q", b.UserID, alice.ID)
		}
	})
}

func TestBookingManager_Overlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})
	r := f.mustRoom(t, "Main")
	other := f.mustRoom(t, "Annex")
	at := func(h int) time.Time { return t0.Add(time.Duration(h) * time.Hour) }

	if _, err := f.bookings.Create(ctx, alice, BookingInput{RoomID: r.ID, Start: at(1), End: at(3)}); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	_, err := f.bookings.Create(ctx, bob, BookingInput{RoomID: r.ID, Start: at(2), End: at(4)})
	assertKind(t, err, ErrConflict, ReasonRoomAlreadyBooked)

	// touching windows do not overlap
	if _, err := f.bookings.Create(ctx, bob, BookingInput{RoomID: r.ID, Start: at(3), End: at(5)}); err != nil {
		t.Fatalf("adjacent booking: %v", err)
	}
	if _, err := f.bookings.Create(ctx, bob, BookingInput{RoomID: other.ID, Start: at(1), End: at(3)}); err != nil {
		t.Fatalf("other room: %v", err)
	}

	list, err := f.bookings.ListForRoom(ctx, alice, r.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || !list[0].StartTime.Equal(at(1)) || !list[1].StartTime.Equal(at(3)) {
		t.Fatalf("unexpected room bookings %+v", list)
	}
	_, err = f.bookings.ListForRoom(ctx, alice, 999)
	assertKind(t, err, ErrNotFound, ReasonRoomNotFound)

	mine, err := f.bookings.ListForUser(ctx, bob)
	if err != nil || len(mine) != 2 {
		t.Fatalf("expected 2 bookings for bob, got %d (err %v)", len(mine), err)
	}
	all, err := f.bookings.List(ctx, alice)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 bookings visible to alice, got %d (err %v)", len(all), err)
	}
}

func TestBookingManager_ConcurrentCreates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})
	r := f.mustRoom(t, "Main")

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := t0.Add(time.Hour + time.Duration(i)*time.Minute)
			_, err := f.bookings.Create(ctx, alice, BookingInput{RoomID: r.ID, Start: start, End: start.Add(time.Hour)})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	list, _ := f.bookings.ListForRoom(ctx, alice, r.ID)
	for i := range list {
		for j := i + 1; j < len(list); j++ {
			if list[i].Overlaps(list[j].StartTime, list[j].EndTime) {
				t.Fatalf("bookings %d and %d overlap", list[i].ID, list[j].ID)
			}
		}
	}
	if ok != len(list) || ok == 0 {
		t.Fatalf("successes = %d, stored = %d", ok, len(list))
	}
}

func TestBookingManager_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})
	r := f.mustRoom(t, "Main")
	book := func(p model.Principal, h int) *model.Booking {
		t.Helper()
		start := t0.Add(time.Duration(h) * time.Hour)
		b, err := f.bookings.Create(ctx, p, BookingInput{RoomID: r.ID, Start: start, End: start.Add(time.Hour)})
		if err != nil {
			t.Fatalf("book: %v", err)
		}
		return b
	}
	first := book(alice, 1)
	second := book(alice, 2)

	assertKind(t, f.bookings.Delete(ctx, bob, first.ID), ErrForbidden, ReasonNotBookingOwner)
	assertKind(t, f.bookings.Delete(ctx, bob, 999), ErrNotFound, ReasonBookingNotFound)
	assertKind(t, f.bookings.Delete(ctx, model.Principal{}, first.ID), ErrUnauthenticated, "")

	if err := f.bookings.Delete(ctx, alice, first.ID); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if err := f.bookings.Delete(ctx, admin, second.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	assertKind(t, f.bookings.Delete(ctx, alice, first.ID), ErrNotFound, "")

	// the freed window can be booked again
	book(bob, 1)

	types := f.events.types()
	var cancelled int
	for _, typ := range types {
		if typ == queue.BookingCancelled {
			cancelled++
		}
	}
	if cancelled != 2 {
		t.Fatalf("expected 2 cancellation events, got %v", types)
	}
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})
	f.events.err = errors.New("broker down")

	r, err := f.rooms.Create(ctx, admin, RoomInput{Name: "Main"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := f.rooms.Get(ctx, admin, r.ID); err != nil {
		t.Fatalf("room not persisted: %v", err)
	}
}

func TestReadsRequirePrincipal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, RoomManagerOptions{})
	r := f.mustRoom(t, "Main")
	b, err := f.bookings.Create(ctx, alice, BookingInput{RoomID: r.ID, Start: t0.Add(time.Hour), End: t0.Add(2 * time.Hour)})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	anon := model.Principal{}

	_, err = f.rooms.List(ctx, anon)
	assertKind(t, err, ErrUnauthenticated, ReasonUnauthenticated)
	_, err = f.rooms.Get(ctx, anon, r.ID)
	assertKind(t, err, ErrUnauthenticated, ReasonUnauthenticated)
	_, err = f.bookings.List(ctx, anon)
	assertKind(t, err, ErrUnauthenticated, ReasonUnauthenticated)
	_, err = f.bookings.Get(ctx, anon, b.ID)
	assertKind(t, err, ErrUnauthenticated, ReasonUnauthenticated)
	// the principal check runs before the room lookup
	_, err = f.bookings.ListForRoom(ctx, anon, 9999)
	assertKind(t, err, ErrUnauthenticated, ReasonUnauthenticated)

	if rooms, err := f.rooms.List(ctx, bob); err != nil || len(rooms) != 1 {
		t.Fatalf("List as bob = %v, %v", rooms, err)
	}
	if got, err := f.bookings.ListForRoom(ctx, bob, r.ID); err != nil || len(got) != 1 {
		t.Fatalf("ListForRoom as bob = %v, %v", got, err)
	}
}

func TestErrorKind(t *testing.T) {
	if got := ErrorKind(newError(ErrConflict, "x")); got != "conflict" {
		t.Fatalf("ErrorKind = %q", got)
	}
	if got := ErrorKind(errors.New("boom")); got != "internal" {
		t.Fatalf("ErrorKind = %q", got)
	}
	if Reason(errors.New("boom")) != "" {
		t.Fatal("unclassified errors carry no reason")
	}
}
