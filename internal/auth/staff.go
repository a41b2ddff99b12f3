package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// Staff is a department account allowed to mark or correct attendance.
type Staff struct {
	ID       string
	Name     string
	Username string
	Role     string // "staff" or "admin"
}

var (
	// ErrBadCredentials covers unknown usernames and wrong passwords alike.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrUsernameTaken signals a duplicate account.
	ErrUsernameTaken = errors.New("username already exists")
)

// StaffRepository persists staff accounts in Postgres.
type StaffRepository struct {
	db *sql.DB
}

// NewStaffRepository creates a repo.
func NewStaffRepository(db *sql.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// Create registers an account with a bcrypt-hashed password.
func (r *StaffRepository) Create(ctx context.Context, name, username, password, role string) (Staff, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Staff{}, err
	}
	st := Staff{ID: uuid.NewString(), Name: name, Username: username, Role: role}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO staff (id, name, username, password_hash, role)
		VALUES ($1,$2,$3,$4,$5)
	`, st.ID, st.Name, st.Username, string(hash), st.Role)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Staff{}, ErrUsernameTaken
	}
	if err != nil {
		return Staff{}, err
	}
	return st, nil
}

// EnsureAccount creates an account if the username is free. Used to
// bootstrap the first admin from config.
func (r *StaffRepository) EnsureAccount(ctx context.Context, name, username, password, role string) error {
	if username == "" || password == "" {
		return nil
	}
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM staff WHERE username = $1)`, username).Scan(&exists)
	if err != nil || exists {
		return err
	}
	_, err = r.Create(ctx, name, username, password, role)
	return err
}

// Authenticate verifies credentials for the expected role and returns the account.
func (r *StaffRepository) Authenticate(ctx context.Context, username, password, role string) (Staff, error) {
	var st Staff
	var hash string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, username, password_hash, role FROM staff WHERE username = $1 AND role = $2
	`, username, role).Scan(&st.ID, &st.Name, &st.Username, &hash, &st.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return Staff{}, ErrBadCredentials
	}
	if err != nil {
		return Staff{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Staff{}, ErrBadCredentials
	}
	return st, nil
}

// ChangePassword verifies the current password before replacing it.
func (r *StaffRepository) ChangePassword(ctx context.Context, username, current, next string) error {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM staff WHERE username = $1`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrBadCredentials
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)) != nil {
		return ErrBadCredentials
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE staff SET password_hash = $1 WHERE username = $2`, string(newHash), username)
	return err
}

// TokenFor issues a signed session token for an account.
func TokenFor(st Staff, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	return Issue(st.Username, st.Role, issuer, key, ttl)
}
