// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/dberr"
)

// permissionColumns is the fixed flag-column layout of the
// access.user_permissions and access.group_permissions tables. Column names
// map to permission strings by splitting on the LAST underscore, so
// multi-word resources like mental_health survive the round trip.
var permissionColumns = []string{
	"knowledge_read", "knowledge_write", "knowledge_delete", "knowledge_admin",
	"graph_read", "graph_write", "graph_delete", "graph_admin",
	"sensitive_read", "sensitive_write",
	"tcm_read", "tcm_write",
	"nutrition_read", "nutrition_write",
	"mental_health_read", "mental_health_write",
	"environmental_health_read", "environmental_health_write",
	"precision_medicine_read", "precision_medicine_write",
}

var columnForPermission = buildColumnIndex()

func buildColumnIndex() map[string]string {
	index := make(map[string]string, len(permissionColumns))
	for _, column := range permissionColumns {
		index[columnToPermission(column)] = column
	}
	return index
}

// columnToPermission turns a flag column name into its permission string.
func columnToPermission(column string) string {
	if index := strings.LastIndex(column, "_"); index > 0 {
		return column[:index] + ":" + column[index+1:]
	}
	return column
}

// KnownPermission reports whether the string maps to a storable flag.
func KnownPermission(permission string) bool {
	_, ok := columnForPermission[permission]
	return ok
}

// PostgresSource implements Source over the access and auth schemas.
type PostgresSource struct {
	pool *pgxpool.Pool
}

// NewPostgresSource creates the PostgreSQL-backed permission source.
func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// GetUserRoles returns the primary role and the raw secondary-roles value.
func (source *PostgresSource) GetUserRoles(context context.Context, userID string) (string, string, error) {

	query := `SELECT role, COALESCE(secondary_roles::text, '') FROM auth.users WHERE id = $1`

	var primary, secondary string
	if err := source.pool.QueryRow(context, query, userID).Scan(&primary, &secondary); err != nil {
		return "", "", dberr.Wrap(err, "")
	}

	return primary, secondary, nil
}

// GetDirectFlags returns the user's explicit per-permission flags. NULL
// columns carry no opinion and are absent from the map.
func (source *PostgresSource) GetDirectFlags(context context.Context, userID string) (map[string]bool, error) {

	query := `SELECT ` + strings.Join(permissionColumns, ", ") + `
		FROM access.user_permissions WHERE user_id = $1`

	rows, err := source.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("direct_flags_query_failed: %w", err)
	}
	defer rows.Close()

	flags := map[string]bool{}
	if rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("direct_flags_scan_failed: %w", err)
		}
		for index, column := range permissionColumns {
			if value, ok := values[index].(bool); ok {
				flags[columnToPermission(column)] = value
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("direct_flags_rows_failed: %w", err)
	}

	return flags, nil
}

// SetDirectFlags upserts explicit flags, leaving other columns untouched.
func (source *PostgresSource) SetDirectFlags(context context.Context, userID string, flags map[string]bool) error {

	if len(flags) == 0 {
		return nil
	}

	columns := []string{}
	values := []any{userID}
	for permission, granted := range flags {
		column, ok := columnForPermission[permission]
		if !ok {
			return apperr.ValidationError("Unknown permission: " + permission)
		}
		columns = append(columns, column)
		values = append(values, granted)
	}

	insertColumns := "user_id"
	insertValues := "$1"
	updates := []string{}
	for index, column := range columns {
		placeholder := "$" + strconv.Itoa(index+2)
		insertColumns += ", " + column
		insertValues += ", " + placeholder
		updates = append(updates, column+" = EXCLUDED."+column)
	}

	query := `
		INSERT INTO access.user_permissions (` + insertColumns + `, updated_at)
		VALUES (` + insertValues + `, NOW())
		ON CONFLICT (user_id) DO UPDATE SET ` + strings.Join(updates, ", ") + `, updated_at = NOW()
	`

	if _, err := source.pool.Exec(context, query, values...); err != nil {
		return fmt.Errorf("direct_flags_upsert_failed: %w", err)
	}

	return nil
}

// GetGroupGrants returns the union of truthy flags across the user's groups.
func (source *PostgresSource) GetGroupGrants(context context.Context, userID string) ([]string, error) {

	selects := make([]string, len(permissionColumns))
	for index, column := range permissionColumns {
		selects[index] = "BOOL_OR(COALESCE(gp." + column + ", FALSE)) AS " + column
	}

	query := `
		SELECT ` + strings.Join(selects, ", ") + `
		FROM access.user_groups ug
		JOIN access.group_permissions gp ON gp.group_id = ug.group_id
		WHERE ug.user_id = $1
	`

	rows, err := source.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("group_grants_query_failed: %w", err)
	}
	defer rows.Close()

	grants := []string{}
	if rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("group_grants_scan_failed: %w", err)
		}
		for index, column := range permissionColumns {
			if value, ok := values[index].(bool); ok && value {
				grants = append(grants, columnToPermission(column))
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("group_grants_rows_failed: %w", err)
	}

	return grants, nil
}

// GetRoleGrants returns role_permissions rows for the given roles.
func (source *PostgresSource) GetRoleGrants(context context.Context, roles []string) (map[string][]string, error) {

	if len(roles) == 0 {
		return map[string][]string{}, nil
	}

	query := `SELECT role, permission FROM access.role_permissions WHERE role = ANY($1)`

	rows, err := source.pool.Query(context, query, roles)
	if err != nil {
		return nil, fmt.Errorf("role_grants_query_failed: %w", err)
	}
	defer rows.Close()

	grants := map[string][]string{}
	for rows.Next() {
		var role, permission string
		if err := rows.Scan(&role, &permission); err != nil {
			return nil, fmt.Errorf("role_grants_scan_failed: %w", err)
		}
		grants[role] = append(grants[role], permission)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("role_grants_rows_failed: %w", err)
	}

	return grants, nil
}
