// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"sort"
	"strconv"
	"strings"
)

// # Built-in Roles

// Role names understood without a role_permissions row.
const (
	RoleUser                 = "user"
	RoleKnowledgeReader      = "knowledge_reader"
	RoleGraphReader          = "graph_reader"
	RoleKnowledgeContributor = "knowledge_contributor"
	RoleSensitiveReader      = "sensitive_reader"
	RoleKnowledgeEditor      = "knowledge_editor"
	RoleGraphEditor          = "graph_editor"
	RoleKnowledgeManager     = "knowledge_manager"
	RoleAdmin                = "admin"
)

// rolePriorities orders built-in roles for conflict resolution. When two
// roles grant the same (resource, action), the higher priority wins. Roles
// absent from the table resolve at priority 0.
var rolePriorities = map[string]int{
	RoleUser:                 0,
	RoleKnowledgeReader:      10,
	RoleGraphReader:          15,
	RoleKnowledgeContributor: 20,
	RoleSensitiveReader:      25,
	RoleKnowledgeEditor:      30,
	RoleGraphEditor:          35,
	RoleKnowledgeManager:     40,
	RoleAdmin:                100,
}

// adminResources is the full resource namespace the admin role spans.
var adminResources = []string{
	"knowledge", "graph", "sensitive", "tcm",
	"nutrition", "mental_health", "environmental_health", "precision_medicine",
}

// builtinRoleGrants maps each built-in role to the permissions it carries.
var builtinRoleGrants = map[string][]string{
	RoleUser:                 {},
	RoleKnowledgeReader:      {"knowledge:read"},
	RoleGraphReader:          {"graph:read"},
	RoleKnowledgeContributor: {"knowledge:read", "knowledge:write"},
	RoleSensitiveReader:      {"sensitive:read"},
	RoleKnowledgeEditor:      {"knowledge:read", "knowledge:write", "knowledge:delete"},
	RoleGraphEditor:          {"graph:read", "graph:write", "graph:delete"},
	RoleKnowledgeManager:     {"knowledge:read", "knowledge:write", "knowledge:delete", "knowledge:admin"},
	RoleAdmin:                adminGrants(),
}

// adminGrants builds the admin role's full grant: read and write on every
// resource, delete and admin on knowledge and graph, plus the wildcard.
func adminGrants() []string {
	grants := []string{PermissionAdmin}
	for _, resource := range adminResources {
		grants = append(grants, resource+":read", resource+":write")
	}
	grants = append(grants,
		"knowledge:delete", "knowledge:admin",
		"graph:delete", "graph:admin",
	)
	return grants
}

// RolePriority returns a role's conflict-resolution priority.
func RolePriority(role string) int {
	return rolePriorities[role]
}

// BuiltinGrants returns the permissions a built-in role carries, nil for
// unknown roles.
func BuiltinGrants(role string) []string {
	return builtinRoleGrants[role]
}

// # Priority Resolution

// priorityMarker separates a candidate permission from the priority of the
// role that granted it while the merge is in flight. Markers never leave
// this file.
const priorityMarker = "#"

// markGrant tags a permission with its granting role's priority.
func markGrant(permission string, priority int) string {
	return permission + priorityMarker + strconv.Itoa(priority)
}

/*
ResolveRoleGrants merges per-role grants into a single permission set.

Description: Each candidate arrives tagged with its role's priority. For
every (resource, action) the highest-priority grant survives; since grants
are additive strings the survivor is textually identical, so resolution
amounts to deduplication with the markers stripped. The mechanism matters
when role definitions diverge between deployments: the priority order, not
map iteration order, decides which role "owns" a permission.

Parameters:
  - marked: []string — candidates in "{resource}:{action}#{priority}" form

Returns:
  - []string: The resolved set, markers stripped, sorted
*/
func ResolveRoleGrants(marked []string) []string {

	winners := map[string]int{}
	for _, candidate := range marked {
		permission := candidate
		priority := 0

		if index := strings.LastIndex(candidate, priorityMarker); index >= 0 {
			permission = candidate[:index]
			if parsed, err := strconv.Atoi(candidate[index+1:]); err == nil {
				priority = parsed
			}
		}

		if existing, ok := winners[permission]; !ok || priority > existing {
			winners[permission] = priority
		}
	}

	resolved := make([]string, 0, len(winners))
	for permission := range winners {
		resolved = append(resolved, permission)
	}
	sort.Strings(resolved)

	return resolved
}

// MarkedGrantsForRoles expands a role list into priority-tagged candidates,
// combining built-in grants with rows from the role_permissions table.
func MarkedGrantsForRoles(roles []string, tableGrants map[string][]string) []string {

	marked := []string{}
	for _, role := range roles {
		priority := RolePriority(role)

		for _, permission := range BuiltinGrants(role) {
			marked = append(marked, markGrant(permission, priority))
		}
		for _, permission := range tableGrants[role] {
			marked = append(marked, markGrant(permission, priority))
		}
	}

	return marked
}

// # Role List Parsing

// ParseSecondaryRoles parses the stored secondary-roles value tolerantly.
// Accepts a JSON array rendering or a comma-separated string; blanks and
// duplicates are dropped.
func ParseSecondaryRoles(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	// JSON array form: strip brackets and quotes, then fall through to the
	// comma path. Tolerates sloppy writers without a full JSON decode.
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")

	seen := map[string]bool{}
	roles := []string{}
	for _, part := range strings.Split(trimmed, ",") {
		role := strings.Trim(strings.TrimSpace(part), `"'`)
		if role == "" || seen[role] {
			continue
		}
		seen[role] = true
		roles = append(roles, role)
	}

	return roles
}

// RoleCacheKey builds the stable cache key for a role combination.
func RoleCacheKey(roles []string) string {
	sorted := append([]string(nil), roles...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
