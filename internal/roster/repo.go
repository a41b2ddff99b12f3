package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const studentCols = `roll_no, name, hosteller_day_scholar, gender, year_of_study, branch, section, parent_mobile_no, student_mobile_no, super_pacc`

// Repository persists the student roster in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func scanStudent(row interface{ Scan(...any) error }) (Student, error) {
	var s Student
	err := row.Scan(&s.RollNo, &s.Name, &s.HostellerDayScholar, &s.Gender,
		&s.YearOfStudy, &s.Branch, &s.Section, &s.ParentMobileNo,
		&s.StudentMobileNo, &s.SuperPacc)
	return s, err
}

func (r *Repository) queryStudents(ctx context.Context, query string, args ...any) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Insert adds one student. ErrDuplicate when the roll number is taken.
func (r *Repository) Insert(ctx context.Context, s Student) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, `+studentCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, uuid.NewString(), s.RollNo, s.Name, s.HostellerDayScholar, s.Gender,
		s.YearOfStudy, s.Branch, s.Section, s.ParentMobileNo, s.StudentMobileNo, s.SuperPacc)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// InsertMany bulk-inserts students, skipping roll numbers that already exist.
// Returns the number of rows actually inserted.
func (r *Repository) InsertMany(ctx context.Context, students []Student) (int, error) {
	inserted := 0
	for _, s := range students {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO students (id, `+studentCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (roll_no) DO NOTHING
		`, uuid.NewString(), s.RollNo, s.Name, s.HostellerDayScholar, s.Gender,
			s.YearOfStudy, s.Branch, s.Section, s.ParentMobileNo, s.StudentMobileNo, s.SuperPacc)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// Get fetches one student by roll number.
func (r *Repository) Get(ctx context.Context, rollNo string) (Student, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+studentCols+` FROM students WHERE roll_no = $1`, rollNo)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	return s, err
}

// Update applies a typed patch to one student and returns the updated row.
func (r *Repository) Update(ctx context.Context, rollNo string, p Patch) (Student, error) {
	sets := []string{}
	args := []any{}
	add := func(col string, val *string) {
		if val != nil {
			args = append(args, *val)
			sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("roll_no", p.RollNo)
	add("name", p.Name)
	add("hosteller_day_scholar", p.HostellerDayScholar)
	add("gender", p.Gender)
	add("year_of_study", p.YearOfStudy)
	add("branch", p.Branch)
	add("section", p.Section)
	add("parent_mobile_no", p.ParentMobileNo)
	add("student_mobile_no", p.StudentMobileNo)
	add("super_pacc", p.SuperPacc)
	if len(sets) == 0 {
		return r.Get(ctx, rollNo)
	}
	args = append(args, rollNo)
	query := fmt.Sprintf(`UPDATE students SET %s WHERE roll_no = $%d RETURNING `+studentCols,
		strings.Join(sets, ", "), len(args))

	row := r.db.QueryRowContext(ctx, query, args...)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if isUniqueViolation(err) {
		return Student{}, ErrDuplicate
	}
	return s, err
}

// Delete removes one student by roll number.
func (r *Repository) Delete(ctx context.Context, rollNo string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE roll_no = $1`, rollNo)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWhere removes every student matching the non-empty filter fields.
// An entirely empty filter deletes the whole roster.
func (r *Repository) DeleteWhere(ctx context.Context, key ClassKey) (int64, error) {
	clauses := []string{}
	args := []any{}
	add := func(col, val string) {
		if val != "" {
			args = append(args, val)
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("year_of_study", key.YearOfStudy)
	add("branch", key.Branch)
	add("section", key.Section)

	query := `DELETE FROM students`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindByClassKey returns the roster of one cohort.
func (r *Repository) FindByClassKey(ctx context.Context, key ClassKey) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE year_of_study = $1 AND branch = $2 AND section = $3
		ORDER BY roll_no
	`, key.YearOfStudy, key.Branch, key.Section)
}

// FindSuperPacc returns the cohort members flagged super_pacc = 'YES'.
func (r *Repository) FindSuperPacc(ctx context.Context, key ClassKey) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE year_of_study = $1 AND branch = $2 AND section = $3 AND super_pacc = 'YES'
		ORDER BY roll_no
	`, key.YearOfStudy, key.Branch, key.Section)
}

// All returns the entire roster. Used by the dashboard fan-out, which
// partitions in memory instead of issuing one query per class.
func (r *Repository) All(ctx context.Context) ([]Student, error) {
	return r.queryStudents(ctx, `SELECT `+studentCols+` FROM students ORDER BY roll_no`)
}

// SearchByName returns students whose name contains the fragment, case-insensitive.
func (r *Repository) SearchByName(ctx context.Context, name string) ([]Student, error) {
	return r.queryStudents(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY roll_no
	`, name)
}

// SearchByRollNo returns up to limit students whose roll number contains the fragment.
func (r *Repository) SearchByRollNo(ctx context.Context, rollNo string, limit int) ([]Student, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.queryStudents(ctx, `
		SELECT `+studentCols+` FROM students
		WHERE roll_no ILIKE '%' || $1 || '%'
		ORDER BY roll_no
		LIMIT $2
	`, rollNo, limit)
}

// ListBasic returns every student's identity and class fields for suggestions.
func (r *Repository) ListBasic(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT roll_no, name, year_of_study, branch, section FROM students ORDER BY roll_no
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.RollNo, &s.Name, &s.YearOfStudy, &s.Branch, &s.Section); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ExistingRollNos reports which of the given roll numbers already exist.
func (r *Repository) ExistingRollNos(ctx context.Context, rollNos []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(rollNos))
	if len(rollNos) == 0 {
		return existing, nil
	}
	placeholders := make([]string, len(rollNos))
	args := make([]any, len(rollNos))
	for i, rn := range rollNos {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = rn
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT roll_no FROM students WHERE roll_no IN (`+strings.Join(placeholders, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var rn string
		if err := rows.Scan(&rn); err != nil {
			return nil, err
		}
		existing[rn] = true
	}
	return existing, rows.Err()
}

// SetSuperPacc flips the exemption flag for one student.
func (r *Repository) SetSuperPacc(ctx context.Context, rollNo, value string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET super_pacc = $2 WHERE roll_no = $1`, rollNo, value)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateYear moves every student from one year of study to another.
func (r *Repository) UpdateYear(ctx context.Context, fromYear, toYear string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET year_of_study = $2 WHERE year_of_study = $1`, fromYear, toYear)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DistinctClassKeys returns every distinct cohort with its roster size,
// excluding rows with blank or placeholder class fields.
func (r *Repository) DistinctClassKeys(ctx context.Context) ([]ClassInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT year_of_study, branch, section, COUNT(*)
		FROM students
		WHERE year_of_study NOT IN ('', 'yearOfStudy')
		  AND branch NOT IN ('', 'branch')
		  AND section NOT IN ('', 'section')
		GROUP BY year_of_study, branch, section
		ORDER BY year_of_study, branch, section
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ClassInfo
	for rows.Next() {
		var c ClassInfo
		if err := rows.Scan(&c.YearOfStudy, &c.Branch, &c.Section, &c.StudentCount); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
