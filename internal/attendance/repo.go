package attendance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/roster"
)

const recordCols = `roll_no, date, status, year_of_study, branch, section, locked, leave_count, info_status`

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ RecordStore = (*Repository)(nil) // interface compliance check

func scanRecord(row interface{ Scan(...any) error }) (Record, error) {
	var rec Record
	err := row.Scan(&rec.RollNo, &rec.Date, &rec.Status, &rec.Class.YearOfStudy,
		&rec.Class.Branch, &rec.Class.Section, &rec.Locked, &rec.LeaveCount, &rec.InfoStatus)
	return rec, err
}

func (r *Repository) queryRecords(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// FindByClassKeyAndDate returns every record for one class and date.
func (r *Repository) FindByClassKeyAndDate(ctx context.Context, key roster.ClassKey, date time.Time) ([]Record, error) {
	return r.queryRecords(ctx, `
		SELECT `+recordCols+` FROM attendance
		WHERE year_of_study = $1 AND branch = $2 AND section = $3 AND date = $4
	`, key.YearOfStudy, key.Branch, key.Section, date)
}

// FindByDate returns every record for one date across all classes. The
// dashboard partitions the result in memory instead of querying per class.
func (r *Repository) FindByDate(ctx context.Context, date time.Time) ([]Record, error) {
	return r.queryRecords(ctx, `SELECT `+recordCols+` FROM attendance WHERE date = $1`, date)
}

// FindLatestBefore returns the most recent record strictly before date for
// the same student and class, or nil when there is none.
func (r *Repository) FindLatestBefore(ctx context.Context, rollNo string, key roster.ClassKey, date time.Time) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordCols+` FROM attendance
		WHERE roll_no = $1 AND year_of_study = $2 AND branch = $3 AND section = $4 AND date < $5
		ORDER BY date DESC
		LIMIT 1
	`, rollNo, key.YearOfStudy, key.Branch, key.Section, date)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// InsertMany inserts records one tuple at a time with ON CONFLICT DO NOTHING
// on the natural key, so a concurrent duplicate mark degrades to a skip
// rather than a second row.
func (r *Repository) InsertMany(ctx context.Context, records []Record) (int, []string, error) {
	inserted := 0
	var skipped []string
	for _, rec := range records {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO attendance (id, `+recordCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (roll_no, date, year_of_study, branch, section) DO NOTHING
		`, uuid.NewString(), rec.RollNo, rec.Date, rec.Status, rec.Class.YearOfStudy,
			rec.Class.Branch, rec.Class.Section, rec.Locked, rec.LeaveCount, rec.InfoStatus)
		if err != nil {
			return inserted, skipped, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		} else {
			skipped = append(skipped, rec.RollNo)
		}
	}
	return inserted, skipped, nil
}

// UpdateWhereAbsent moves matching Absent records to the target status and
// zeroes their leave count.
func (r *Repository) UpdateWhereAbsent(ctx context.Context, key roster.ClassKey, date time.Time, rollNos []string, to Status) (int64, error) {
	if len(rollNos) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(rollNos))
	args := []any{to, key.YearOfStudy, key.Branch, key.Section, date}
	for i, rn := range rollNos {
		args = append(args, rn)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance
		SET status = $1, leave_count = 0
		WHERE year_of_study = $2 AND branch = $3 AND section = $4 AND date = $5
		  AND status = 'Absent'
		  AND roll_no IN (`+strings.Join(placeholders, ",")+`)
	`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateStatus overwrites the status field only.
func (r *Repository) UpdateStatus(ctx context.Context, key roster.ClassKey, date time.Time, rollNo string, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET status = $1
		WHERE roll_no = $2 AND year_of_study = $3 AND branch = $4 AND section = $5 AND date = $6
	`, to, rollNo, key.YearOfStudy, key.Branch, key.Section, date)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateInfoStatus overwrites the notification state for one student and date.
func (r *Repository) UpdateInfoStatus(ctx context.Context, rollNo string, date time.Time, info InfoStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET info_status = $1 WHERE roll_no = $2 AND date = $3
	`, info, rollNo, date)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
