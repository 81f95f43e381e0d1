// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package session owns the session state machine and its write-through cache.

A session is created on login. Depending on risk policy it starts in a
pending state (device verification or second factor) or goes straight to
active. Transitions only move toward the terminal states:

	pending_device_verification ─┬─→ pending_2fa ─┬─→ active ─┬─→ expired
	                             └────────────────┘           ├─→ revoked
	                                              active ─→ suspicious ─→ {expired, revoked}

A suspicious session is still bearer-valid; it exists to drive user
notification, not to cut access.
*/
package session

import (
	"time"

	"github.com/suoke-life/auth-service/internal/platform/geo"
)

// # Statuses

const (
	StatusActive                    = "active"
	StatusPendingTwoFactor          = "pending_2fa"
	StatusPendingDeviceVerification = "pending_device_verification"
	StatusExpired                   = "expired"
	StatusRevoked                   = "revoked"
	StatusSuspicious                = "suspicious"
)

// transitions enumerates every legal status change. Terminal states have no
// outgoing edges; every non-terminal state may move to expired or revoked.
var transitions = map[string][]string{
	StatusPendingDeviceVerification: {StatusPendingTwoFactor, StatusActive, StatusExpired, StatusRevoked},
	StatusPendingTwoFactor:          {StatusPendingDeviceVerification, StatusActive, StatusExpired, StatusRevoked},
	StatusActive:                    {StatusSuspicious, StatusExpired, StatusRevoked},
	StatusSuspicious:                {StatusExpired, StatusRevoked},
	StatusExpired:                   {},
	StatusRevoked:                   {},
}

// CanTransition reports whether moving from one status to another is legal.
// A same-status "transition" is allowed as an idempotent no-op.
func CanTransition(from, to string) bool {
	if from == to {
		return true
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func IsTerminal(status string) bool {
	return status == StatusExpired || status == StatusRevoked
}

// IsPending reports whether a status is a temp-session state that is not
// bearer-valid for protected resources.
func IsPending(status string) bool {
	return status == StatusPendingTwoFactor || status == StatusPendingDeviceVerification
}

// # Entity

// Session is one authenticated (or pending) browser/app context.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// TokenID is the jti of the access token bound to this session.
	// Empty while the session is pending.
	TokenID string `json:"token_id,omitempty"`

	// DeviceID references the registered device. An active session always
	// has one; pending sessions may not yet.
	DeviceID string `json:"device_id,omitempty"`

	// Fingerprint is the device fingerprint observed at login.
	Fingerprint string `json:"fingerprint,omitempty"`

	IP        string        `json:"ip,omitempty"`
	UserAgent string        `json:"user_agent,omitempty"`
	Location  *geo.Location `json:"location,omitempty"`

	Status    string `json:"status"`
	IsCurrent bool   `json:"is_current"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the session is an acceptable bearer context for the
// given user right now. A boundary expiry (expires_at == now) counts as
// expired.
func (s *Session) Valid(userID string, now time.Time) bool {
	if s.UserID != userID {
		return false
	}
	if s.Status != StatusActive && s.Status != StatusSuspicious {
		return false
	}
	return s.ExpiresAt.After(now)
}
