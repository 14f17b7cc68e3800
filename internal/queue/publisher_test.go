package queue

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
)

// silentBroker accepts TCP connections and never answers the AMQP
// handshake.
func silentBroker(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func TestPublishHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t), nil)
	defer p.Close()
	ev := NewEvent(RoomCreated, model.Principal{ID: "admin", IsSuperuser: true}, time.Now())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	start := time.Now()
	if err := p.Publish(ctx, ev); err == nil {
		t.Fatal("expected an error from a silent broker")
	}
	if d := time.Since(start); d > 2*time.Second {
		t.Fatalf("Publish took %v", d)
	}
}

func TestConcurrentPublishHonoursContextDeadline(t *testing.T) {
	p := NewPublisher(silentBroker(t), nil)
	defer p.Close()
	ev := NewEvent(RoomCreated, model.Principal{ID: "admin", IsSuperuser: true}, time.Now())

	var wg sync.WaitGroup
	errs := make([]error, 2)
	start := time.Now()
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
			defer cancel()
			errs[i] = p.Publish(ctx, ev)
		}(i)
	}
	wg.Wait()
	if d := time.Since(start); d > 2*time.Second {
		t.Fatalf("publishes took %v", d)
	}
	for i, err := range errs {
		if err == nil {
			t.Fatalf("publish %d: expected an error", i)
		}
	}
}

func TestPublishExpiredContext(t *testing.T) {
	p := NewPublisher(silentBroker(t), nil)
	defer p.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Publish(ctx, NewEvent(RoomDeleted, model.Principal{ID: "admin"}, time.Now())); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
