// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"context"
	"time"
)

// Source is the authoritative permission data under the caches.
type Source interface {
	// GetUserRoles returns the primary role and the raw secondary-roles
	// value for tolerant parsing.
	GetUserRoles(ctx context.Context, userID string) (primary string, secondary string, err error)

	// GetDirectFlags returns the user's explicit per-permission flags.
	// Absent flags are simply missing from the map; present ones carry the
	// stored true/false.
	GetDirectFlags(ctx context.Context, userID string) (map[string]bool, error)

	// SetDirectFlags upserts explicit flags for the user, leaving flags not
	// in the map untouched.
	SetDirectFlags(ctx context.Context, userID string, flags map[string]bool) error

	// GetGroupGrants returns the union of permissions granted through the
	// user's group memberships.
	GetGroupGrants(ctx context.Context, userID string) ([]string, error)

	// GetRoleGrants returns role_permissions rows for the given roles,
	// keyed by role.
	GetRoleGrants(ctx context.Context, roles []string) (map[string][]string, error)
}

// KV is the shared (Redis) cache tier.
type KV interface {
	// GetDecision returns a cached access decision; ok is false on a miss.
	GetDecision(ctx context.Context, key string) (allowed bool, ok bool, err error)

	// SetDecision caches one access decision.
	SetDecision(ctx context.Context, key string, allowed bool, timeToLive time.Duration) error

	// GetPermissionSet returns a cached effective set; ok is false on a miss.
	GetPermissionSet(ctx context.Context, userID string) (permissions []string, ok bool, err error)

	// SetPermissionSet caches an effective set.
	SetPermissionSet(ctx context.Context, userID string, permissions []string, timeToLive time.Duration) error

	// GetRoleUnion returns the cached resolved grant set for a role
	// combination; ok is false on a miss.
	GetRoleUnion(ctx context.Context, roleKey string) (permissions []string, ok bool, err error)

	// SetRoleUnion caches a role combination's resolved grant set.
	SetRoleUnion(ctx context.Context, roleKey string, permissions []string, timeToLive time.Duration) error

	// InvalidateUser drops the user's cached set and every cached decision.
	InvalidateUser(ctx context.Context, userID string) error
}
