// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package security

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/task"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// Service is the security log service. It implements [Recorder].
type Service struct {
	events EventStore
	audit  AuditStore
	runner *task.Runner
	logger *slog.Logger

	retention time.Duration
	indexSize int

	// highPriority event types are written synchronously on the caller's
	// goroutine instead of the background runner, so they cannot be lost to
	// a full queue.
	highPriority []string
}

// Options configures the security log service.
type Options struct {
	// Retention bounds how long event payloads survive in the cache.
	// Zero falls back to [constants.DefaultSecurityLogRetention].
	Retention time.Duration

	// IndexSize caps the per-user recency index.
	// Zero falls back to [constants.SecurityLogUserIndexSize].
	IndexSize int

	// HighPriorityEvents lists event types written synchronously.
	HighPriorityEvents []string
}

// NewService creates the security log service.
func NewService(events EventStore, audit AuditStore, runner *task.Runner, logger *slog.Logger, options Options) *Service {
	if options.Retention <= 0 {
		options.Retention = constants.DefaultSecurityLogRetention
	}
	if options.IndexSize <= 0 {
		options.IndexSize = constants.SecurityLogUserIndexSize
	}

	return &Service{
		events:       events,
		audit:        audit,
		runner:       runner,
		logger:       logger,
		retention:    options.Retention,
		indexSize:    options.IndexSize,
		highPriority: options.HighPriorityEvents,
	}
}

/*
Record persists a security event.

Description: Fills in the event ID and timestamp when absent, then writes the
event to the cache log and the durable audit table. Writes are best-effort:
failures are logged and swallowed so the parent auth operation never fails on
a logging problem. Normal events are handed to the background runner;
high-priority types are written inline.

Parameters:
  - event: Event
*/
func (service *Service) Record(event Event) {

	// ── 1. Normalize ──────────────────────────────────────────────────────
	if event.ID == "" {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// ── 2. Choose the write path ──────────────────────────────────────────
	if slices.Contains(service.highPriority, event.Type) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		service.write(ctx, event)
		return
	}

	submitted := service.runner.Submit("security_event", func(ctx context.Context) {
		service.write(ctx, event)
	})

	// Queue full: fall back to an inline write rather than losing the event
	if !submitted {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		service.write(ctx, event)
	}
}

/*
RecordAccess appends a knowledge-resource permission decision.

Description: Fills in the entry ID and timestamp when absent, then hands the
durable append to the background runner. Access decisions are high-volume and
best-effort: when the queue is full the entry is dropped with a warning
rather than blocking the permission check.

Parameters:
  - entry: AccessLog
*/
func (service *Service) RecordAccess(entry AccessLog) {

	if entry.ID == "" {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	submitted := service.runner.Submit("access_log", func(ctx context.Context) {
		if err := service.audit.InsertAccessLog(ctx, entry); err != nil {
			service.logger.Warn("access_log_write_failed",
				slog.String("user_id", entry.UserID),
				slog.Any("error", err),
			)
		}
	})

	if !submitted {
		service.logger.Warn("access_log_dropped",
			slog.String("user_id", entry.UserID),
			slog.String("resource_type", entry.ResourceType),
		)
	}
}

/*
ListUserEvents returns the user's most recent security events, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - limit: int

Returns:
  - []Event: Up to limit events
  - error: Read failures
*/
func (service *Service) ListUserEvents(context context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > service.indexSize {
		limit = service.indexSize
	}
	return service.events.ListUserEvents(context, userID, limit)
}

// write performs the actual dual write. Errors are logged, never returned.
func (service *Service) write(ctx context.Context, event Event) {
	if err := service.events.SaveEvent(ctx, event, service.retention, service.indexSize); err != nil {
		service.logger.Warn("security_event_cache_write_failed",
			slog.String("event_type", event.Type),
			slog.Any("error", err),
		)
	}

	if err := service.audit.InsertUserEvent(ctx, event); err != nil {
		service.logger.Warn("security_event_audit_write_failed",
			slog.String("event_type", event.Type),
			slog.Any("error", err),
		)
	}
}
