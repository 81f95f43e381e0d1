// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package security

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAuditStore implements AuditStore on PostgreSQL.
type PostgresAuditStore struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditStore creates a PostgreSQL-backed AuditStore.
func NewPostgresAuditStore(pool *pgxpool.Pool) *PostgresAuditStore {
	return &PostgresAuditStore{pool: pool}
}

/*
InsertUserEvent appends one row to auth.user_events.

Parameters:
  - context: context.Context
  - event: Event

Returns:
  - error: Serialization or execution errors
*/
func (store *PostgresAuditStore) InsertUserEvent(context context.Context, event Event) error {

	// Serialize the free-form details into JSONB
	var details []byte
	if len(event.Details) > 0 {
		encoded, err := json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("user_event_details_marshal_failed: %w", err)
		}
		details = encoded
	}

	query := `
		INSERT INTO auth.user_events (id, user_id, event_type, ip, user_agent, details, created_at)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
	`

	if _, err := store.pool.Exec(context, query,
		event.ID,
		event.UserID,
		event.Type,
		event.IP,
		event.UserAgent,
		details,
		event.CreatedAt,
	); err != nil {
		return fmt.Errorf("user_event_insert_failed: %w", err)
	}

	return nil
}

/*
InsertAccessLog appends one row to auth.knowledge_access_logs.

Parameters:
  - context: context.Context
  - entry: AccessLog

Returns:
  - error: Execution errors
*/
func (store *PostgresAuditStore) InsertAccessLog(context context.Context, entry AccessLog) error {

	query := `
		INSERT INTO auth.knowledge_access_logs (id, user_id, resource_type, resource_id, action, allowed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := store.pool.Exec(context, query,
		entry.ID,
		entry.UserID,
		entry.ResourceType,
		entry.ResourceID,
		entry.Action,
		entry.Allowed,
		entry.CreatedAt,
	); err != nil {
		return fmt.Errorf("access_log_insert_failed: %w", err)
	}

	return nil
}
