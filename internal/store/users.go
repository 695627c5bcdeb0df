package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Roylkrishna/srg-sub001/internal/db"
	"github.com/Roylkrishna/srg-sub001/internal/model"
)

var (
	// ErrDuplicateKey is returned when a write would violate the unique
	// username or email index.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("not found")
)

const userColumns = `id, first_name, last_name, username, email, password_hash, role, is_active, created_at, updated_at`

// Accounts is the SQL-backed account store.
type Accounts struct {
	db *db.DB
}

// NewAccounts returns an account store bound to d.
func NewAccounts(d *db.DB) *Accounts {
	return &Accounts{db: d}
}

func scanUser(row interface{ Scan(...any) error }) (*model.Account, error) {
	u := &model.Account{}
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Email,
		&u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new account and returns it as stored.
func (s *Accounts) Create(ctx context.Context, a *model.Account) (*model.Account, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, s.db.Rebind(
		`INSERT INTO users (first_name, last_name, username, email, password_hash, role, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		a.FirstName, a.LastName, a.Username, a.Email, a.PasswordHash, a.Role, a.IsActive,
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("creating user: %w", ErrDuplicateKey)
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	created, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("creating user: row %d vanished", id)
	}
	return created, nil
}

// FindByID returns an account by ID, or nil if none exists.
func (s *Accounts) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT `+userColumns+` FROM users WHERE id = ?`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// FindByUsernameOrEmail returns the first account whose username equals
// username or whose email equals email. An empty email matches nothing.
// Returns nil if there is no match.
func (s *Accounts) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.Account, error) {
	// Prefer the username match so callers can tell which identifier collided.
	u, err := scanUser(s.db.QueryRowContext(ctx, s.db.Rebind(
		`SELECT `+userColumns+` FROM users
		 WHERE username = ? OR (? <> '' AND email = ?)
		 ORDER BY CASE WHEN username = ? THEN 0 ELSE 1 END, id
		 LIMIT 1`), username, email, email, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username or email: %w", err)
	}
	return u, nil
}

// List returns all accounts ordered by ID.
func (s *Accounts) List(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.Account
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Count returns the number of accounts.
func (s *Accounts) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// Save writes every mutable field of a back to its row.
func (s *Accounts) Save(ctx context.Context, a *model.Account) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE users
		 SET first_name = ?, last_name = ?, username = ?, email = ?, password_hash = ?,
		     role = ?, is_active = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`),
		a.FirstName, a.LastName, a.Username, a.Email, a.PasswordHash, a.Role, a.IsActive, a.ID,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("saving user: %w", ErrDuplicateKey)
		}
		return fmt.Errorf("saving user: %w", err)
	}
	return expectOneRow(result, "saving user")
}

// Delete removes an account.
func (s *Accounts) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return expectOneRow(result, "deleting user")
}

func expectOneRow(result sql.Result, op string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return nil
}
