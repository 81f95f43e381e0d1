// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequiredPermission(t *testing.T) {
	tests := []struct {
		name         string
		resourceType string
		action       string
		required     string
	}{
		{name: "knowledge_base_read", resourceType: "knowledge_base", action: "read", required: "knowledge:read"},
		{name: "knowledge_node_search_is_read", resourceType: "knowledge_node", action: "search", required: "knowledge:read"},
		{name: "graph_query_is_graph_read", resourceType: "graph_query", action: "query", required: "graph:read"},
		{name: "delete_is_write", resourceType: "knowledge_base", action: "delete", required: "knowledge:write"},
		{name: "sensitive_view_is_read", resourceType: "sensitive_data", action: "view", required: "sensitive:read"},
		{name: "domain_knowledge_maps_to_domain", resourceType: "mental_health_knowledge", action: "list", required: "mental_health:read"},
		{name: "unknown_type_passes_through", resourceType: "billing", action: "read", required: "billing:read"},
		{name: "unknown_action_passes_through", resourceType: "knowledge_base", action: "export", required: "knowledge:export"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.required, RequiredPermission(tc.resourceType, tc.action))
		})
	}
}

func TestDecisionTTL(t *testing.T) {
	t.Run("knowledge_reads_are_hot", func(t *testing.T) {
		assert.Equal(t, tierHotTTL, DecisionTTL("knowledge_base", "read"))
		assert.Equal(t, tierHotTTL, DecisionTTL("knowledge_node", "search"))
	})

	t.Run("knowledge_writes_and_graph_are_warm", func(t *testing.T) {
		assert.Equal(t, tierWarmTTL, DecisionTTL("knowledge_base", "write"))
		assert.Equal(t, tierWarmTTL, DecisionTTL("graph_node", "read"))
	})

	t.Run("everything_else_is_cold", func(t *testing.T) {
		assert.Equal(t, tierColdTTL, DecisionTTL("sensitive_data", "read"))
		assert.Equal(t, tierColdTTL, DecisionTTL("billing", "read"))
	})
}

func TestResolveRoleGrants(t *testing.T) {
	t.Run("strips_priority_markers", func(t *testing.T) {
		resolved := ResolveRoleGrants([]string{"knowledge:read#10", "knowledge:write#30"})
		assert.Equal(t, []string{"knowledge:read", "knowledge:write"}, resolved)
	})

	t.Run("deduplicates_overlapping_grants", func(t *testing.T) {
		resolved := ResolveRoleGrants([]string{"knowledge:read#10", "knowledge:read#30"})
		assert.Equal(t, []string{"knowledge:read"}, resolved)
	})

	t.Run("tolerates_unmarked_candidates", func(t *testing.T) {
		resolved := ResolveRoleGrants([]string{"graph:read"})
		assert.Equal(t, []string{"graph:read"}, resolved)
	})
}

func TestMarkedGrantsForRoles(t *testing.T) {
	t.Run("combines_builtin_and_table_grants", func(t *testing.T) {
		marked := MarkedGrantsForRoles(
			[]string{RoleKnowledgeReader},
			map[string][]string{RoleKnowledgeReader: {"tcm:read"}},
		)
		assert.Contains(t, marked, "knowledge:read#10")
		assert.Contains(t, marked, "tcm:read#10")
	})

	t.Run("reader_plus_editor_resolves_to_editor_grants", func(t *testing.T) {
		resolved := ResolveRoleGrants(MarkedGrantsForRoles(
			[]string{RoleKnowledgeReader, RoleKnowledgeEditor}, nil,
		))
		assert.Contains(t, resolved, "knowledge:write")
		assert.Contains(t, resolved, "knowledge:read")
	})
}

func TestAdminGrants(t *testing.T) {
	grants := BuiltinGrants(RoleAdmin)

	assert.Contains(t, grants, PermissionAdmin)
	for _, resource := range adminResources {
		assert.Contains(t, grants, resource+":read")
		assert.Contains(t, grants, resource+":write")
	}
	assert.Contains(t, grants, "knowledge:delete")
	assert.Contains(t, grants, "graph:admin")
}

func TestParseSecondaryRoles(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		roles []string
	}{
		{name: "json_array", raw: `["knowledge_reader","graph_editor"]`, roles: []string{"knowledge_reader", "graph_editor"}},
		{name: "comma_string", raw: "knowledge_reader, graph_editor", roles: []string{"knowledge_reader", "graph_editor"}},
		{name: "single_role", raw: "admin", roles: []string{"admin"}},
		{name: "empty_string", raw: "", roles: nil},
		{name: "empty_json_array", raw: "[]", roles: []string{}},
		{name: "duplicates_dropped", raw: "admin,admin", roles: []string{"admin"}},
		{name: "whitespace_only", raw: "   ", roles: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.roles, ParseSecondaryRoles(tc.raw))
		})
	}
}

func TestRoleCacheKey(t *testing.T) {
	assert.Equal(t,
		RoleCacheKey([]string{"b", "a"}),
		RoleCacheKey([]string{"a", "b"}),
	)
}
