// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package token

import (
	"context"
	"time"
)

// Store is the cache contract of the token authority.
//
// All entries are TTL-bounded; the store never needs explicit garbage
// collection.
type Store interface {
	// SaveMetadata writes the token:{jti} record with the given TTL.
	SaveMetadata(ctx context.Context, jti string, metadata Metadata, ttl time.Duration) error

	// GetMetadata returns the token:{jti} record, or (nil, nil) when absent.
	GetMetadata(ctx context.Context, jti string) (*Metadata, error)

	// DeleteMetadata removes the token:{jti} record. Missing keys are fine.
	DeleteMetadata(ctx context.Context, jti string) error

	// Blacklist marks a jti revoked for the given TTL.
	Blacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted reports whether the jti is currently revoked.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// AddUserTokens registers jtis in the user's active-token set and keeps
	// the set alive at least as long as the longest-lived member.
	AddUserTokens(ctx context.Context, userID string, jtis []string, ttl time.Duration) error

	// RemoveUserToken drops a jti from the user's active-token set.
	RemoveUserToken(ctx context.Context, userID, jti string) error

	// ListUserTokens returns all jtis currently registered for the user.
	ListUserTokens(ctx context.Context, userID string) ([]string, error)

	// SetPasswordResetJTI stores the single currently valid reset jti for a
	// user, replacing any previous one.
	SetPasswordResetJTI(ctx context.Context, userID, jti string, ttl time.Duration) error

	// GetPasswordResetJTI returns the stored reset jti, or "" when absent.
	GetPasswordResetJTI(ctx context.Context, userID string) (string, error)

	// DeletePasswordResetJTI invalidates the stored reset jti.
	DeletePasswordResetJTI(ctx context.Context, userID string) error
}
