// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package auth orchestrates the login, refresh, and credential lifecycle flows.

It owns the User entity and composes the focused subsystems — token
authority, session manager, device registry, risk engine, two-factor
service — behind narrow interfaces. All flow decisions (does this login
need device verification? a second factor?) are made here; the subsystems
stay policy-free.
*/
package auth

import "time"

// # Domain Entities

// Account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User represents a registered member of the Suoke Life platform.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`

	PasswordHash string `json:"-"` // Explicitly omitted from JSON for security.

	Status string `json:"status"`

	// Role is the primary role; SecondaryRoles carries the raw stored value
	// (JSON array or comma string) for tolerant parsing downstream.
	Role           string `json:"role"`
	SecondaryRoles string `json:"-"`

	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	TwoFactorMethod  string `json:"two_factor_method,omitempty"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsActive reports whether the account may authenticate.
func (user *User) IsActive() bool {
	return user.Status == StatusActive
}

// # Field Identifiers

// Global field names for validation and identity mapping in the auth domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPhone           = "phone"
	FieldPassword        = "password"
	FieldLogin           = "login"
	FieldCode            = "code"
	FieldToken           = "token"
	FieldSetupID         = "setup_id"
	FieldTempSessionID   = "temp_session_id"
	FieldRefreshToken    = "refresh_token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldMessage         = "message"
)
