package database

import (
	"context"
	"database/sql"
	"fmt"
)

// rooms.name uses a binary collation on MySQL so uniqueness is
// case-sensitive, matching SQLite's default BINARY collation.  Booking
// windows are stored as Unix microseconds so both engines compare them
// as plain integers.
var schemas = map[Dialect][]string{
	MySQL: {
		`CREATE TABLE IF NOT EXISTS rooms (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			capacity INT NOT NULL DEFAULT 1,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uq_rooms_name (name)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
			room_id BIGINT UNSIGNED NOT NULL,
			user_id VARCHAR(191) NOT NULL,
			start_us BIGINT NOT NULL,
			end_us BIGINT NOT NULL,
			purpose TEXT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			KEY idx_bookings_room_window (room_id, start_us, end_us),
			KEY idx_bookings_user (user_id),
			CONSTRAINT fk_bookings_room FOREIGN KEY (room_id) REFERENCES rooms (id) ON DELETE CASCADE,
			CONSTRAINT chk_bookings_window CHECK (start_us < end_us)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin`,
	},
	SQLite: {
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			capacity INTEGER NOT NULL DEFAULT 1,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL REFERENCES rooms (id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			start_us INTEGER NOT NULL,
			end_us INTEGER NOT NULL,
			purpose TEXT,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now')),
			CHECK (start_us < end_us)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_window ON bookings (room_id, start_us, end_us)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings (user_id)`,
	},
}

// Migrate creates the rooms and bookings tables when they do not exist.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	stmts, ok := schemas[d]
	if !ok {
		return fmt.Errorf("migrate: unsupported dialect %q", d)
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
