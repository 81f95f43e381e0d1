// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package twofactor

import (
	"context"
	"time"
)

// SetupStore parks pending enrollments (Redis).
type SetupStore interface {
	// SaveSetup stores a pending enrollment with a TTL.
	SaveSetup(ctx context.Context, setup *Setup, timeToLive time.Duration) error

	// GetSetup returns the pending enrollment, or (nil, nil) when it does not
	// exist or has expired.
	GetSetup(ctx context.Context, userID, setupID string) (*Setup, error)

	// DeleteSetup removes a pending enrollment.
	DeleteSetup(ctx context.Context, userID, setupID string) error
}

// SettingsStore persists the per-account second-factor state.
type SettingsStore interface {
	// GetSettings returns the user's second-factor state.
	GetSettings(ctx context.Context, userID string) (*Settings, error)

	// Enable persists the method and secret and flips the enabled flag.
	Enable(ctx context.Context, userID, method, secret string) error

	// Disable clears the method and secret and drops the enabled flag.
	Disable(ctx context.Context, userID string) error
}

// RecoveryCodeStore persists hashed recovery codes.
type RecoveryCodeStore interface {
	// ReplaceCodes atomically drops the user's existing codes and inserts the
	// new batch.
	ReplaceCodes(ctx context.Context, userID string, hashes []string) error

	// ListActive returns the user's unused codes.
	ListActive(ctx context.Context, userID string) ([]RecoveryCode, error)

	// MarkUsed burns a code. Burning is terminal.
	MarkUsed(ctx context.Context, codeID string, at time.Time) error

	// CountActive returns how many unused codes remain.
	CountActive(ctx context.Context, userID string) (int, error)

	// DeleteAll removes every code for the user.
	DeleteAll(ctx context.Context, userID string) error
}
