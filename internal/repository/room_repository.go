package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/database"
	"github.com/arjun-mighty/MeetingRoom-BookingSystem/internal/model"
)

// RoomRepo provides data access to the rooms table.
type RoomRepo struct {
	db      *sql.DB
	dialect database.Dialect
}

// NewRoomRepo returns a RoomRepo bound to the given database.
func NewRoomRepo(db *sql.DB, dialect database.Dialect) *RoomRepo {
	return &RoomRepo{db: db, dialect: dialect}
}

const roomColumns = `id, name, capacity`

// Create inserts a new room and sets its generated ID.  A name collision
// is reported as ErrDuplicateName.
func (r *RoomRepo) Create(ctx context.Context, room *model.Room) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO rooms (name, capacity) VALUES (?, ?)`, room.Name, room.Capacity)
	if err != nil {
		if r.dialect.IsDuplicateKey(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("insert room: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("room id: %w", err)
	}
	room.ID = uint64(id)
	return nil
}

// List returns every room ordered by ID.
func (r *RoomRepo) List(ctx context.Context) ([]model.Room, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	out := make([]model.Room, 0)
	for rows.Next() {
		var room model.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Capacity); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		out = append(out, room)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return out, nil
}

// GetByID retrieves a room by its ID.  It returns ErrRoomNotFound when no
// row is found.
func (r *RoomRepo) GetByID(ctx context.Context, id uint64) (*model.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
}

// GetByName retrieves a room by its exact name.
func (r *RoomRepo) GetByName(ctx context.Context, name string) (*model.Room, error) {
	return r.getOne(ctx, `SELECT `+roomColumns+` FROM rooms WHERE name = ? LIMIT 1`, name)
}

func (r *RoomRepo) getOne(ctx context.Context, q string, arg any) (*model.Room, error) {
	var room model.Room
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&room.ID, &room.Name, &room.Capacity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("get room: %w", err)
	}
	return &room, nil
}

// Update overwrites the name and capacity of an existing room.
func (r *RoomRepo) Update(ctx context.Context, room *model.Room) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rooms SET name = ?, capacity = ? WHERE id = ?`, room.Name, room.Capacity, room.ID)
	if err != nil {
		if r.dialect.IsDuplicateKey(err) {
			return ErrDuplicateName
		}
		return fmt.Errorf("update room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if n == 0 {
		// MySQL reports zero affected rows when the values are unchanged,
		// so confirm the row is really gone before failing.
		if _, err := r.GetByID(ctx, room.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteCascade removes a room and every booking that references it in a
// single transaction.  It returns the number of bookings removed.
func (r *RoomRepo) DeleteCascade(ctx context.Context, id uint64) (int64, error) {
	var removed int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var lockedID uint64
		err := tx.QueryRowContext(ctx, `SELECT id FROM rooms WHERE id = ?`+r.dialect.ForUpdate(), id).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRoomNotFound
			}
			return fmt.Errorf("lock room: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE room_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete room bookings: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("delete room bookings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
