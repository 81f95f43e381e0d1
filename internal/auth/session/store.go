// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package session

import (
	"context"
	"time"
)

// Store is the durable persistence contract for sessions.
type Store interface {
	// Insert persists a new session. When session.IsCurrent is set, the
	// insert must atomically clear the flag on the user's other sessions.
	Insert(ctx context.Context, session *Session) error

	// Get returns a session by id, or dberr.ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// GetByTokenID returns the session bound to a jti, or dberr.ErrNotFound.
	GetByTokenID(ctx context.Context, tokenID string) (*Session, error)

	// List returns a page of the user's sessions (newest first) and the
	// total count. activeOnly restricts to {active, suspicious}.
	List(ctx context.Context, userID string, activeOnly bool, limit, offset int) ([]Session, int, error)

	// ListRecentActive returns the user's most recent bearer-valid sessions,
	// newest first. Used by the risk engine's suspicion heuristic.
	ListRecentActive(ctx context.Context, userID string, limit int) ([]Session, error)

	// UpdateActivity touches last_active_at.
	UpdateActivity(ctx context.Context, id string, at time.Time) error

	// UpdateStatus sets the status and, when expiresAt is non-nil, the new
	// expiry. Legality of the transition is the manager's concern.
	UpdateStatus(ctx context.Context, id, status string, expiresAt *time.Time) error

	// BindToken records the access jti and device for a session going active.
	BindToken(ctx context.Context, id, tokenID, deviceID string) error

	// HasCurrent reports whether the user has any is_current session.
	HasCurrent(ctx context.Context, userID string) (bool, error)

	// SetCurrent transactionally clears is_current on all of the user's
	// sessions and sets it on the target. Returns every session id whose
	// flag changed so cached snapshots can be evicted.
	SetCurrent(ctx context.Context, userID, sessionID string) ([]string, error)

	// RevokeAll marks all of the user's non-terminal sessions revoked,
	// skipping exceptID when non-empty. Returns the affected ids.
	RevokeAll(ctx context.Context, userID, exceptID string) ([]string, error)

	// MarkExpired bulk-transitions sessions whose expiry has passed.
	// Returns the affected ids so the cache can be evicted.
	MarkExpired(ctx context.Context, now time.Time) ([]string, error)
}

// Cache is the volatile snapshot store keyed session:{id}.
type Cache interface {
	Set(ctx context.Context, session *Session, ttl time.Duration) error

	// Get returns (nil, nil) on a cache miss.
	Get(ctx context.Context, id string) (*Session, error)

	Delete(ctx context.Context, id string) error
}
