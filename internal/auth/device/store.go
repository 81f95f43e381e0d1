// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package device

import (
	"context"
	"time"
)

// Store is the durable persistence contract for devices.
type Store interface {
	// Insert persists a new device. A (user_id, fingerprint) duplicate
	// returns dberr-wrapped Conflict; first write wins on races.
	Insert(ctx context.Context, device *Device) error

	// GetByFingerprint returns the user's most recently used device with
	// the fingerprint, or dberr.ErrNotFound.
	GetByFingerprint(ctx context.Context, userID, fingerprint string) (*Device, error)

	// Get returns a device by id scoped to its owner, or dberr.ErrNotFound.
	Get(ctx context.Context, userID, deviceID string) (*Device, error)

	// UpdateLastUsed touches last_used_at.
	UpdateLastUsed(ctx context.Context, deviceID string, at time.Time) error

	// SetTrusted flips the trust flag. Scoped to the owner.
	SetTrusted(ctx context.Context, userID, deviceID string, trusted bool) error

	// List returns all of the user's devices, most recently used first.
	List(ctx context.Context, userID string) ([]Device, error)

	// Delete removes a device scoped to its owner.
	Delete(ctx context.Context, userID, deviceID string) error
}
