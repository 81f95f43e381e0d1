// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suoke-life/auth-service/internal/platform/dberr"
)

// PostgresUserRepository implements UserRepository on auth.users.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepository creates the PostgreSQL-backed user repository.
func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

const userColumns = `
	id, username, email, COALESCE(phone, ''), password_hash, status,
	role, COALESCE(secondary_roles::text, ''),
	two_factor_enabled, COALESCE(two_factor_method, ''),
	last_login_at, created_at, updated_at
`

// FindByID returns a user by primary key.
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {

	query := `SELECT ` + userColumns + ` FROM auth.users WHERE id = $1`

	row := repository.pool.QueryRow(context, query, id)
	return scanUser(row)
}

// FindByLogin resolves a user by username, email, or phone number.
func (repository *PostgresUserRepository) FindByLogin(context context.Context, login string) (*User, error) {

	query := `
		SELECT ` + userColumns + `
		FROM auth.users
		WHERE username = $1 OR email = $1 OR phone = $1
		LIMIT 1
	`

	row := repository.pool.QueryRow(context, query, login)
	return scanUser(row)
}

// FindByEmail returns a user by email.
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {

	query := `SELECT ` + userColumns + ` FROM auth.users WHERE email = $1`

	row := repository.pool.QueryRow(context, query, email)
	return scanUser(row)
}

// Create persists a new account.
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {

	query := `
		INSERT INTO auth.users (
			id, username, email, phone, password_hash, status, role,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NOW(), NOW())
	`

	_, err := repository.pool.Exec(context, query,
		user.ID, user.Username, user.Email, user.Phone,
		user.PasswordHash, user.Status, user.Role,
	)
	if err != nil {
		return dberr.Wrap(err, "Username, email, or phone is already registered")
	}

	return nil
}

// UpdatePassword replaces the stored password hash.
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, passwordHash string) error {

	tag, err := repository.pool.Exec(context,
		`UPDATE auth.users SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("user_password_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// UpdateLastLogin stamps a successful login.
func (repository *PostgresUserRepository) UpdateLastLogin(context context.Context, userID string, at time.Time) error {

	if _, err := repository.pool.Exec(context,
		`UPDATE auth.users SET last_login_at = $2 WHERE id = $1`,
		userID, at,
	); err != nil {
		return fmt.Errorf("user_last_login_update_failed: %w", err)
	}

	return nil
}

func scanUser(row pgx.Row) (*User, error) {
	var user User

	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Phone,
		&user.PasswordHash, &user.Status,
		&user.Role, &user.SecondaryRoles,
		&user.TwoFactorEnabled, &user.TwoFactorMethod,
		&user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "")
	}

	return &user, nil
}
