// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package token implements the credential authority: minting, verifying, and
revoking the service's bearer tokens.

Three token types exist, all HMAC-SHA256 signed JWTs:

  - access: 24h default, carries role and an optional permission snapshot.
  - refresh: 7d default, exchangeable for a fresh pair.
  - reset: 30m single-use password-reset credential.

Revocation is jti-based. Every minted jti is tracked in the cache; a revoked
jti lands on the blacklist with a TTL covering the token's remaining lifetime
plus a clock-skew slack, so verification stays correct across nodes with
drifting clocks.
*/
package token

import "time"

// Pair is the result of issuing credentials.
type Pair struct {
	// AccessToken is the signed access JWT.
	AccessToken string `json:"access_token"`
	// RefreshToken is the signed refresh JWT.
	RefreshToken string `json:"refresh_token"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`
	// RefreshExpiresIn is the refresh token lifetime in seconds.
	RefreshExpiresIn int64 `json:"refresh_expires_in"`
	// JTI is the access token's unique identifier.
	JTI string `json:"-"`
	// RefreshJTI is the refresh token's unique identifier.
	RefreshJTI string `json:"-"`
}

// Metadata is the cache record written per issued token, keyed token:{jti}.
type Metadata struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id,omitempty"`
	DeviceID  string    `json:"device_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IssueInput carries everything needed to mint a token pair.
type IssueInput struct {
	// UserID is the subject. Required.
	UserID string
	// Role is embedded in the access token claims.
	Role string
	// Permissions is an optional snapshot embedded in the access token.
	// It is informational only; authorization re-resolves server-side.
	Permissions []string
	// SessionID binds both tokens to a session (sid claim). Optional.
	SessionID string
	// DeviceID binds both tokens to a device (did claim). Optional.
	DeviceID string
	// AccessTTL overrides the configured access lifetime when positive.
	AccessTTL time.Duration
	// RefreshTTL overrides the configured refresh lifetime when positive.
	RefreshTTL time.Duration
}
