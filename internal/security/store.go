// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package security

import (
	"context"
	"time"
)

// EventStore persists event payloads and the per-user recency index in the
// volatile cache.
type EventStore interface {
	// SaveEvent writes the event payload with the retention TTL and indexes
	// it in the owner's sorted set, trimmed to the configured maximum.
	SaveEvent(ctx context.Context, event Event, retention time.Duration, indexSize int) error

	// ListUserEvents returns up to limit of the user's most recent events,
	// newest first. Events whose payload already expired are skipped.
	ListUserEvents(ctx context.Context, userID string, limit int) ([]Event, error)
}

// AuditStore persists durable audit rows.
type AuditStore interface {
	// InsertUserEvent appends one user_events row.
	InsertUserEvent(ctx context.Context, event Event) error

	// InsertAccessLog appends one knowledge_access_logs row.
	InsertAccessLog(ctx context.Context, entry AccessLog) error
}
