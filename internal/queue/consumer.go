package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads audit events from RabbitMQ and appends one line per event
// to an audit log file.
type Consumer struct {
	URL     string
	LogPath string
	Logger  *zap.Logger
}

// Run connects to the broker, declares the audit queue and consumes until
// ctx is cancelled.  Connection failures are retried with exponential
// backoff; a message that cannot be handled is rejected without requeue so
// it does not loop.
func (c *Consumer) Run(ctx context.Context) error {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit-consumer")

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			logger.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = c.consumeLoop(ctx, conn, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("set QoS failed", zap.Error(err))
	}
	if err := declareQueue(ch, AuditQueue); err != nil {
		return err
	}
	msgs, err := ch.Consume(AuditQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handleMessage(d.Body); err != nil {
				logger.Error("handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleMessage(body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if dir := filepath.Dir(c.LogPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(c.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single human-friendly audit line ending in a
// newline.
func FormatLine(ev Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | event_id=%s | principal=%s", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.ID, ev.PrincipalID)
	if ev.Superuser {
		b.WriteString(" (admin)")
	}
	if ev.Room != nil {
		fmt.Fprintf(&b, " | room_id=%d | room=%q | capacity=%d", ev.Room.ID, ev.Room.Name, ev.Room.Capacity)
	}
	if ev.Booking != nil {
		fmt.Fprintf(&b, " | booking_id=%d | room_id=%d | owner=%s | window=%s/%s",
			ev.Booking.ID, ev.Booking.RoomID, ev.Booking.UserID,
			ev.Booking.StartTime.UTC().Format(time.RFC3339), ev.Booking.EndTime.UTC().Format(time.RFC3339))
		if ev.Booking.Purpose != nil {
			fmt.Fprintf(&b, " | purpose=%q", *ev.Booking.Purpose)
		}
	}
	if ev.RemovedBookings > 0 {
		fmt.Fprintf(&b, " | removed_bookings=%d", ev.RemovedBookings)
	}
	b.WriteByte('\n')
	return b.String()
}

// sleep waits for d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
