// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package auth

import (
	"context"
	"time"
)

// UserRepository is the persistence contract for accounts.
type UserRepository interface {
	// FindByID returns a user by primary key.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByLogin resolves a user by username, email, or phone number.
	FindByLogin(ctx context.Context, login string) (*User, error)

	// FindByEmail returns a user by email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Create persists a new account. The caller supplies the password hash.
	Create(ctx context.Context, user *User) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// UpdateLastLogin stamps a successful login.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}
