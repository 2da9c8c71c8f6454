package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/01moynul/storefront-golang/internal/models"
)

const userColumns = `id, name, email, password_hash, is_admin, phone, address_line1, city, postal_code, country, created_at, updated_at`

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin,
		&u.Phone, &u.AddressLine1, &u.City, &u.PostalCode, &u.Country,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new user. Emails are stored lower-cased.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	now := s.now()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Name, u.Email, u.PasswordHash, u.IsAdmin, now, now)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}

	u.ID, err = res.LastInsertId()
	return err
}

// GetUserByID returns a user including the password hash.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByEmail returns a user including the password hash.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// IsAdmin reports whether the user has the admin flag.
func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	var isAdmin bool
	err := s.db.QueryRowContext(ctx, "SELECT is_admin FROM users WHERE id = ?", userID).Scan(&isAdmin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	return isAdmin, err
}

// UpdateUser applies the non-nil fields of upd and returns the stored user.
func (s *Store) UpdateUser(ctx context.Context, id int64, upd models.ProfileUpdate) (*models.User, error) {
	var sets []string
	var args []any

	add := func(col string, v *string) {
		if v != nil {
			sets = append(sets, col+" = ?")
			args = append(args, *v)
		}
	}
	if upd.Email != nil {
		e := strings.ToLower(strings.TrimSpace(*upd.Email))
		upd.Email = &e
	}
	add("name", upd.Name)
	add("email", upd.Email)
	add("phone", upd.Phone)
	add("address_line1", upd.AddressLine1)
	add("city", upd.City)
	add("postal_code", upd.PostalCode)
	add("country", upd.Country)
	add("password_hash", upd.PasswordHash)

	if len(sets) > 0 {
		sets = append(sets, "updated_at = ?")
		args = append(args, s.now(), id)

		query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = ?"
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			if isDuplicateKey(err) {
				return nil, ErrDuplicateEmail
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	return s.GetUserByID(ctx, id)
}
