package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB wraps sql.DB for Postgres using pgx.
type DB struct {
	Client *sql.DB
}

// NewDB creates a Postgres connection with sane defaults and ensures the schema exists.
func NewDB(connString string) (*DB, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return &DB{Client: db}, err
	}
	if err := Migrate(ctx, db); err != nil {
		return &DB{Client: db}, err
	}
	return &DB{Client: db}, nil
}

// Migrate applies the schema. The unique index on the attendance natural key
// is what turns a double-submitted absent mark into a skipped conflict
// instead of a duplicate row.
func Migrate(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id                    UUID PRIMARY KEY,
		roll_no               TEXT NOT NULL UNIQUE,
		name                  TEXT NOT NULL,
		hosteller_day_scholar TEXT NOT NULL DEFAULT '',
		gender                TEXT NOT NULL DEFAULT '',
		year_of_study         TEXT NOT NULL DEFAULT '',
		branch                TEXT NOT NULL DEFAULT '',
		section               TEXT NOT NULL DEFAULT '-',
		parent_mobile_no      TEXT NOT NULL DEFAULT '',
		student_mobile_no     TEXT NOT NULL DEFAULT '',
		super_pacc            TEXT NOT NULL DEFAULT 'NO'
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id            UUID PRIMARY KEY,
		roll_no       TEXT NOT NULL,
		date          DATE NOT NULL,
		status        TEXT NOT NULL,
		year_of_study TEXT NOT NULL,
		branch        TEXT NOT NULL,
		section       TEXT NOT NULL,
		locked        BOOLEAN NOT NULL DEFAULT FALSE,
		leave_count   INTEGER NOT NULL DEFAULT 0,
		info_status   TEXT NOT NULL DEFAULT 'NotInformed',
		UNIQUE (roll_no, date, year_of_study, branch, section)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_class_date
		ON attendance (year_of_study, branch, section, date);
	CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance (date);

	CREATE TABLE IF NOT EXISTS staff (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'staff'
	);
	`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
