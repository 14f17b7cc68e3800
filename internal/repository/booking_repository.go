package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/database"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
)

// BookingRepo provides data access to the bookings table.  Windows are
// stored as Unix microseconds in start_us/end_us and returned in UTC.
type BookingRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB, dialect database.Dialect) *BookingRepo {
	return &BookingRepo{db: db, dialect: dialect}
}

const bookingColumns = `id, room_id, user_id, start_us, end_us, purpose`

// CreateIfFree inserts b unless its room is missing or already booked for
// an intersecting window.  The room row is locked first, so the overlap
// query and the insert form one atomic unit per room: a concurrent caller
// for the same room blocks on the lock and then sees this booking.
//
// Errors: ErrRoomNotFound, ErrOverlap, or a wrapped driver error.
func (r *BookingRepo) CreateIfFree(ctx context.Context, b *model.Booking) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var roomID uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ?`+r.dialect.ForUpdate(), b.RoomID).Scan(&roomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("lock room: %w", err)
		}

		// [start, end) intersects [s, e) iff start < e AND end > s
		const overlapQ = `SELECT id FROM bookings WHERE room_id = ? AND start_us < ? AND end_us > ? LIMIT 1`
		var clash uint64
		err = tx.QueryRowContext(ctx, overlapQ+r.dialect.ForUpdate(), b.RoomID, toMicros(b.EndTime), toMicros(b.StartTime)).Scan(&clash)
		switch {
		case err == nil:
			return ErrOverlap
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("overlap check: %w", err)
		}

		const insertQ = `INSERT INTO bookings (room_id, user_id, start_us, end_us, purpose) VALUES (?, ?, ?, ?, ?)`
		res, err := tx.ExecContext(ctx, insertQ, b.RoomID, b.UserID, toMicros(b.StartTime), toMicros(b.EndTime), nullString(b.Purpose))
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("booking id: %w", err)
		}
		b.ID = uint64(id)
		b.StartTime = fromMicros(toMicros(b.StartTime))
		b.EndTime = fromMicros(toMicros(b.EndTime))
		return nil
	})
}

// List returns every booking ordered by ID.
func (r *BookingRepo) List(ctx context.Context) ([]model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY id`)
}

// ListByUser returns the bookings created by userID, earliest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY start_us, id`, userID)
}

// ListByRoom returns the bookings of one room, earliest first.
func (r *BookingRepo) ListByRoom(ctx context.Context, roomID uint64) ([]model.Booking, error) {
	return r.query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE room_id = ? ORDER BY start_us, id`, roomID)
}

// GetByID retrieves a booking by ID or returns ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

// Delete removes a booking by ID or returns ErrBookingNotFound.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBooking(s scanner) (*model.Booking, error) {
	var (
		b              model.Booking
		startUS, endUS int64
		purpose        sql.NullString
	)
	if err := s.Scan(&b.ID, &b.RoomID, &b.UserID, &startUS, &endUS, &purpose); err != nil {
		return nil, err
	}
	b.StartTime = fromMicros(startUS)
	b.EndTime = fromMicros(endUS)
	if purpose.Valid {
		p := purpose.String
		b.Purpose = &p
	}
	return &b, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
