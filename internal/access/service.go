// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"context"
	"log/slog"
	"slices"
	"sort"
	"sync"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/security"
)

// Auditor appends knowledge-resource access decisions to the durable log.
type Auditor interface {
	RecordAccess(entry security.AccessLog)
}

// Resolver computes and caches access decisions.
type Resolver struct {
	memory *MemoryCache
	kv     KV
	source Source
	events security.Recorder
	audit  Auditor
	logger *slog.Logger
}

// NewResolver creates the permission resolver.
func NewResolver(memory *MemoryCache, kv KV, source Source, events security.Recorder, audit Auditor, logger *slog.Logger) *Resolver {
	return &Resolver{
		memory: memory,
		kv:     kv,
		source: source,
		events: events,
		audit:  audit,
		logger: logger,
	}
}

// # Decisions

/*
CanAccess decides whether the user may perform the action on the resource.

Description: The decision is looked up in-process first, then in Redis, and
only then computed from the effective permission set. Computed decisions are
written through both cache tiers with a TTL tier matching the resource
class. The literal "admin" permission is a wildcard grant. Every decision,
cached or computed, is appended to the knowledge access log.

Parameters:
  - context: context.Context
  - userID: string
  - resourceType: string
  - resourceID: string
  - action: string

Returns:
  - bool: The decision
  - error: Source failures (cache failures degrade to a recompute)
*/
func (resolver *Resolver) CanAccess(context context.Context, userID, resourceType, resourceID, action string) (bool, error) {

	allowed, err := resolver.decide(context, userID, resourceType, resourceID, action)
	if err != nil {
		return false, err
	}

	resolver.audit.RecordAccess(security.AccessLog{
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Allowed:      allowed,
	})

	return allowed, nil
}

func (resolver *Resolver) decide(context context.Context, userID, resourceType, resourceID, action string) (bool, error) {

	decisionKey := userID + ":" + resourceType + ":" + resourceID + ":" + action

	// ── 1. In-process tier ────────────────────────────────────────────────
	if cached, ok := resolver.memory.Get(decisionKey); ok {
		if allowed, ok := cached.(bool); ok {
			return allowed, nil
		}
	}

	// ── 2. Shared tier ────────────────────────────────────────────────────
	timeToLive := DecisionTTL(resourceType, action)
	if allowed, ok, err := resolver.kv.GetDecision(context, decisionKey); err != nil {
		resolver.logger.Warn("access_cache_read_failed", slog.Any("error", err))
	} else if ok {
		resolver.memory.Set(decisionKey, allowed, timeToLive)
		return allowed, nil
	}

	// ── 3. Compute from the effective set ─────────────────────────────────
	permissions, err := resolver.EffectivePermissions(context, userID)
	if err != nil {
		return false, err
	}

	required := RequiredPermission(resourceType, action)
	allowed := slices.Contains(permissions, PermissionAdmin) || slices.Contains(permissions, required)

	resolver.memory.Set(decisionKey, allowed, timeToLive)
	if err := resolver.kv.SetDecision(context, decisionKey, allowed, timeToLive); err != nil {
		resolver.logger.Warn("access_cache_write_failed", slog.Any("error", err))
	}

	return allowed, nil
}

// Check is one entry of a batch access query.
type Check struct {
	ResourceType string `json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	Action       string `json:"action"`
}

// Key is the map key the batch result uses for this entry.
func (check Check) Key() string {
	return check.ResourceType + ":" + check.ResourceID + ":" + check.Action
}

// BatchCheck fans CanAccess out over the entries in parallel. A failed
// entry degrades to false and is logged; it never fails the batch.
func (resolver *Resolver) BatchCheck(context context.Context, userID string, checks []Check) map[string]bool {

	results := make(map[string]bool, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, check := range checks {
		wg.Add(1)
		go func(check Check) {
			defer wg.Done()

			allowed, err := resolver.CanAccess(context, userID, check.ResourceType, check.ResourceID, check.Action)
			if err != nil {
				resolver.logger.Warn("batch_check_entry_failed",
					slog.String("user_id", userID),
					slog.String("entry", check.Key()),
					slog.Any("error", err),
				)
				allowed = false
			}

			mu.Lock()
			results[check.Key()] = allowed
			mu.Unlock()
		}(check)
	}

	wg.Wait()
	return results
}

// # Effective Set

/*
EffectivePermissions resolves the user's full permission set.

Description: Merges four sources in precedence order: role grants (built-in
plus role_permissions rows, conflict-resolved by role priority), group
grants, and finally the user's direct flags — an explicit direct flag
overrides everything below it, in both directions. The resolved set is
cached per user; the role layer is additionally cached per role combination
since many users share it.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []string: The sorted effective set
  - error: Source failures
*/
func (resolver *Resolver) EffectivePermissions(context context.Context, userID string) ([]string, error) {

	setKey := constants.RedisPrefixUserPermissions + userID

	if cached, ok := resolver.memory.Get(setKey); ok {
		if permissions, ok := cached.([]string); ok {
			return permissions, nil
		}
	}

	if permissions, ok, err := resolver.kv.GetPermissionSet(context, userID); err != nil {
		resolver.logger.Warn("permission_set_read_failed", slog.Any("error", err))
	} else if ok {
		resolver.memory.Set(setKey, permissions, PermissionSetTTL)
		return permissions, nil
	}

	permissions, err := resolver.resolve(context, userID)
	if err != nil {
		return nil, err
	}

	resolver.memory.Set(setKey, permissions, PermissionSetTTL)
	if err := resolver.kv.SetPermissionSet(context, userID, permissions, PermissionSetTTL); err != nil {
		resolver.logger.Warn("permission_set_write_failed", slog.Any("error", err))
	}

	return permissions, nil
}

// resolve computes the effective set from the source of truth.
func (resolver *Resolver) resolve(context context.Context, userID string) ([]string, error) {

	// ── 1. Roles ──────────────────────────────────────────────────────────
	primary, secondaryRaw, err := resolver.source.GetUserRoles(context, userID)
	if err != nil {
		return nil, err
	}

	roles := []string{}
	if primary != "" {
		roles = append(roles, primary)
	}
	for _, role := range ParseSecondaryRoles(secondaryRaw) {
		if !slices.Contains(roles, role) {
			roles = append(roles, role)
		}
	}

	roleLayer, err := resolver.roleLayer(context, roles)
	if err != nil {
		return nil, err
	}

	// ── 2. Groups ─────────────────────────────────────────────────────────
	groupGrants, err := resolver.source.GetGroupGrants(context, userID)
	if err != nil {
		return nil, err
	}

	// ── 3. Direct flags override ──────────────────────────────────────────
	directFlags, err := resolver.source.GetDirectFlags(context, userID)
	if err != nil {
		return nil, err
	}

	merged := map[string]bool{}
	for _, permission := range roleLayer {
		merged[permission] = true
	}
	for _, permission := range groupGrants {
		merged[permission] = true
	}
	for permission, granted := range directFlags {
		if granted {
			merged[permission] = true
		} else {
			delete(merged, permission)
		}
	}

	permissions := make([]string, 0, len(merged))
	for permission := range merged {
		permissions = append(permissions, permission)
	}
	sort.Strings(permissions)

	return permissions, nil
}

// roleLayer resolves the role-derived grants for a role combination, cached
// under the sorted combination key.
func (resolver *Resolver) roleLayer(context context.Context, roles []string) ([]string, error) {

	if len(roles) == 0 {
		return []string{}, nil
	}

	roleKey := RoleCacheKey(roles)
	if permissions, ok, err := resolver.kv.GetRoleUnion(context, roleKey); err != nil {
		resolver.logger.Warn("role_union_read_failed", slog.Any("error", err))
	} else if ok {
		return permissions, nil
	}

	tableGrants, err := resolver.source.GetRoleGrants(context, roles)
	if err != nil {
		return nil, err
	}

	resolved := ResolveRoleGrants(MarkedGrantsForRoles(roles, tableGrants))

	if err := resolver.kv.SetRoleUnion(context, roleKey, resolved, RolePermissionsTTL); err != nil {
		resolver.logger.Warn("role_union_write_failed", slog.Any("error", err))
	}

	return resolved, nil
}

// # Administration

// AssignPermissions grants direct permissions to a user and invalidates the
// caches so the next read recomputes.
func (resolver *Resolver) AssignPermissions(context context.Context, userID string, permissions []string) error {
	return resolver.setDirect(context, userID, permissions, true)
}

// RevokePermissions writes explicit denies for the permissions. A deny
// overrides role and group grants on the next resolution.
func (resolver *Resolver) RevokePermissions(context context.Context, userID string, permissions []string) error {
	return resolver.setDirect(context, userID, permissions, false)
}

func (resolver *Resolver) setDirect(context context.Context, userID string, permissions []string, granted bool) error {

	if len(permissions) == 0 {
		return apperr.ValidationError("No permissions given")
	}

	flags := make(map[string]bool, len(permissions))
	for _, permission := range permissions {
		if !KnownPermission(permission) {
			return apperr.ValidationError("Unknown permission: " + permission)
		}
		flags[permission] = granted
	}

	if err := resolver.source.SetDirectFlags(context, userID, flags); err != nil {
		return err
	}

	resolver.Invalidate(context, userID)

	resolver.events.Record(security.Event{
		Type:   security.EventPermissionsChanged,
		UserID: userID,
		Details: map[string]any{
			"permissions": permissions,
			"granted":     granted,
		},
	})

	return nil
}

// Invalidate drops the user's cached set and decisions in both tiers.
func (resolver *Resolver) Invalidate(context context.Context, userID string) {

	resolver.memory.Delete(constants.RedisPrefixUserPermissions + userID)
	resolver.memory.DeletePrefix(userID + ":")

	if err := resolver.kv.InvalidateUser(context, userID); err != nil {
		resolver.logger.Warn("access_invalidate_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}
