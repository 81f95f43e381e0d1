// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package access answers "may user U perform action A on resource R" for the
knowledge platform.

Permissions are plain strings of the form "{resource}:{action}". A user's
effective set is merged from four sources: the primary role, secondary
roles, group memberships, and direct per-user flags. Role grants are
conflict-resolved by role priority; direct flags override everything, in
both directions (an explicit deny beats any role grant).

Decisions are served through a three-tier cache: an in-process map, Redis,
and PostgreSQL as the source of truth. Writes invalidate the first two
tiers; the decision TTL depends on how hot the resource class is.
*/
package access

import (
	"strings"
	"time"
)

// PermissionAdmin is the wildcard grant. Its presence in an effective set
// allows every (resource, action).
const PermissionAdmin = "admin"

// # Resource & Action Normalization

// resourceAliases maps concrete resource types to their permission prefix.
// Unknown types pass through unchanged.
var resourceAliases = map[string]string{
	"knowledge_base": "knowledge",
	"knowledge_node": "knowledge",

	"knowledge_graph": "graph",
	"graph_node":      "graph",
	"graph_relation":  "graph",
	"graph_query":     "graph",

	"sensitive_data": "sensitive",

	"tcm_knowledge":                  "tcm",
	"nutrition_knowledge":            "nutrition",
	"mental_health_knowledge":        "mental_health",
	"environmental_health_knowledge": "environmental_health",
	"precision_medicine_knowledge":   "precision_medicine",
}

// actionAliases collapses concrete actions onto read/write. Unknown actions
// pass through unchanged.
var actionAliases = map[string]string{
	"read":   "read",
	"view":   "read",
	"get":    "read",
	"list":   "read",
	"search": "read",
	"query":  "read",

	"write":  "write",
	"create": "write",
	"update": "write",
	"delete": "write",
}

// NormalizeResource maps a resource type to its permission prefix.
func NormalizeResource(resourceType string) string {
	if alias, ok := resourceAliases[resourceType]; ok {
		return alias
	}
	return resourceType
}

// NormalizeAction maps a concrete action to its permission suffix.
func NormalizeAction(action string) string {
	if alias, ok := actionAliases[action]; ok {
		return alias
	}
	return action
}

// RequiredPermission derives the permission string a (type, action) pair
// demands.
func RequiredPermission(resourceType, action string) string {
	return NormalizeResource(resourceType) + ":" + NormalizeAction(action)
}

// # Cache TTL Tiers

const (
	// tierHotTTL serves high-frequency reads on knowledge resources.
	tierHotTTL = 600 * time.Second

	// tierWarmTTL serves knowledge and graph resources generally.
	tierWarmTTL = 1800 * time.Second

	// tierColdTTL serves everything else.
	tierColdTTL = 7200 * time.Second

	// PermissionSetTTL is the cache TTL of a resolved effective set.
	PermissionSetTTL = 1800 * time.Second

	// RolePermissionsTTL is the cache TTL of a role-combination union.
	RolePermissionsTTL = 7200 * time.Second
)

// DecisionTTL picks the cache TTL tier for one access decision.
func DecisionTTL(resourceType, action string) time.Duration {
	prefix := NormalizeResource(resourceType)

	if NormalizeAction(action) == "read" && strings.HasPrefix(resourceType, "knowledge_") {
		return tierHotTTL
	}
	if prefix == "knowledge" || prefix == "graph" {
		return tierWarmTTL
	}
	return tierColdTTL
}
