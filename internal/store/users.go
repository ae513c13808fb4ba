package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"concertdesk/internal/models"
)

var (
	// ErrUserExists signals the email is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound signals a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrResetTokenInvalid indicates an unknown, used or expired reset token.
	ErrResetTokenInvalid = errors.New("reset token is invalid or expired")

	dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")
)

// CreateUser registers a new account with the given stored role.
func (s *Store) CreateUser(ctx context.Context, email, password, role string) (models.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, fmt.Errorf("email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id
	`, email, hash, role).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}

	return models.User{ID: id, Email: email, Role: models.RoleFromStored(role)}, nil
}

// Authenticate checks credentials and returns the matching user.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	var (
		user models.User
		hash []byte
		role string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role
		FROM users
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&user.ID, &user.Email, &hash, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	user.Role = models.RoleFromStored(role)
	return user, nil
}

// UserByID loads a user.
func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	var (
		user models.User
		role string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, role
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Email, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("lookup user: %w", err)
	}
	user.Role = models.RoleFromStored(role)
	return user, nil
}

// UserRole returns the stored role string of a user.
func (s *Store) UserRole(ctx context.Context, id int64) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `
		SELECT role
		FROM users
		WHERE id = $1
	`, id).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup role: %w", err)
	}
	return role, nil
}

// SetUserRole overwrites the stored role of a user.
func (s *Store) SetUserRole(ctx context.Context, id int64, role string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET role = $2
		WHERE id = $1
	`, id, role)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountAdmins reports how many administrators exist.
func (s *Store) CountAdmins(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM users
		WHERE role = 'admin'
	`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

// CreatePasswordReset issues a single-use reset token for email valid until
// expiresAt. Unknown emails yield ErrUserNotFound.
func (s *Store) CreatePasswordReset(ctx context.Context, email string, expiresAt time.Time) (string, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("create token: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO password_resets (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, token, userID, expiresAt); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}
	return token, nil
}

// ResetPassword consumes token and replaces the owner's password.
func (s *Store) ResetPassword(ctx context.Context, token, password string, now time.Time) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var userID int64
		err := tx.QueryRowContext(ctx, `
			DELETE FROM password_resets
			WHERE token = $1 AND expires_at > $2
			RETURNING user_id
		`, token, now).Scan(&userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrResetTokenInvalid
			}
			return fmt.Errorf("consume reset token: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET password_hash = $2
			WHERE id = $1
		`, userID, hash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DeleteExpiredResets removes reset tokens that expired at or before now.
func (s *Store) DeleteExpiredResets(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM password_resets
		WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired resets: %w", err)
	}
	return res.RowsAffected()
}
