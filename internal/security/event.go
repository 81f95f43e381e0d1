// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package security implements the append-only security event log.

Every authentication-relevant action (token issuance, login outcomes,
two-factor lifecycle, suspicious activity) is recorded as a typed event.
Events are written to two places:

  - Redis: a TTL-bounded payload per event plus a per-user sorted-set index
    trimmed to the most recent entries, for fast "recent activity" reads.
  - PostgreSQL: a durable user_events row for audit and offline analysis.

All writes are best-effort: a failed security log write is logged and
swallowed, never bubbled into the parent auth operation.
*/
package security

import "time"

// # Event Types

const (
	EventTokenIssued    = "TOKEN_ISSUED"
	EventTokenRefreshed = "TOKEN_REFRESHED"
	EventTokenRevoked   = "TOKEN_REVOKED"

	EventLoginSuccess = "LOGIN_SUCCESS"
	EventLoginFailure = "LOGIN_FAILURE"
	EventLogout       = "LOGOUT"

	EventTwoFactorEnabled  = "TWO_FACTOR_ENABLED"
	EventTwoFactorVerified = "TWO_FACTOR_VERIFIED"
	EventTwoFactorFailed   = "TWO_FACTOR_FAILED"
	EventTwoFactorDisabled = "TWO_FACTOR_DISABLED"
	EventRecoveryCodeUsed  = "RECOVERY_CODE_USED"

	EventSuspiciousActivity = "SUSPICIOUS_ACTIVITY"

	EventPasswordResetRequested = "PASSWORD_RESET_REQUESTED"
	EventPasswordResetCompleted = "PASSWORD_RESET_COMPLETED"
	EventPasswordChanged        = "PASSWORD_CHANGED"

	EventDeviceVerified = "DEVICE_VERIFIED"
	EventDeviceTrusted  = "DEVICE_TRUSTED"
	EventDeviceRemoved  = "DEVICE_REMOVED"

	EventSMSCodeSent = "SMS_CODE_SENT"

	EventUserRegistered = "USER_REGISTERED"

	EventPermissionsChanged = "PERMISSIONS_CHANGED"
)

// Event is a single security log entry.
//
// # Invariant
//
// Details must never contain raw passwords, token strings, TOTP secrets, or
// recovery codes. Callers record identifiers (jti, session id) only.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	UserID    string         `json:"user_id,omitempty"`
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Recorder is the narrow contract domain services use to emit events.
type Recorder interface {
	Record(event Event)
}

// AccessLog is one appended knowledge-resource permission decision.
type AccessLog struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Action       string    `json:"action"`
	Allowed      bool      `json:"allowed"`
	CreatedAt    time.Time `json:"created_at"`
}
