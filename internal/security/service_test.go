// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package security

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suoke-life/auth-service/internal/platform/task"
)

// memoryAuditStore records inserted events in memory for assertions.
type memoryAuditStore struct {
	mu         sync.Mutex
	events     []Event
	accessLogs []AccessLog
}

func (store *memoryAuditStore) InsertUserEvent(_ context.Context, event Event) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.events = append(store.events, event)
	return nil
}

func (store *memoryAuditStore) InsertAccessLog(_ context.Context, entry AccessLog) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.accessLogs = append(store.accessLogs, entry)
	return nil
}

func (store *memoryAuditStore) count() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.events)
}

func (store *memoryAuditStore) accessCount() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.accessLogs)
}

func newTestService(t *testing.T) (*Service, *memoryAuditStore, *task.Runner) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	audit := &memoryAuditStore{}
	runner := task.NewRunner(16, slog.Default())
	service := NewService(NewRedisEventStore(client), audit, runner, slog.Default(), Options{})

	return service, audit, runner
}

func drain(t *testing.T, runner *task.Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, runner.Shutdown(ctx))
}

func TestService_Record(t *testing.T) {
	t.Run("persists_event_to_both_stores", func(t *testing.T) {
		service, audit, runner := newTestService(t)

		service.Record(Event{
			Type:   EventLoginSuccess,
			UserID: "user-1",
			IP:     "203.0.113.4",
		})
		drain(t, runner)

		assert.Equal(t, 1, audit.count())

		events, err := service.ListUserEvents(context.Background(), "user-1", 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, EventLoginSuccess, events[0].Type)
		assert.NotEmpty(t, events[0].ID)
		assert.False(t, events[0].CreatedAt.IsZero())
	})

	t.Run("anonymous_failure_has_no_user_index", func(t *testing.T) {
		service, audit, runner := newTestService(t)

		// Login failure for an unknown identifier carries no user id.
		service.Record(Event{
			Type: EventLoginFailure,
			IP:   "203.0.113.4",
			Details: map[string]any{
				"reason": "user_not_found",
			},
		})
		drain(t, runner)

		assert.Equal(t, 1, audit.count())

		events, err := service.ListUserEvents(context.Background(), "", 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("index_returns_newest_first", func(t *testing.T) {
		service, _, runner := newTestService(t)

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 3; i++ {
			service.Record(Event{
				Type:      EventTokenIssued,
				UserID:    "user-2",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
		}
		drain(t, runner)

		events, err := service.ListUserEvents(context.Background(), "user-2", 10)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.True(t, events[0].CreatedAt.After(events[1].CreatedAt))
		assert.True(t, events[1].CreatedAt.After(events[2].CreatedAt))
	})

	t.Run("index_is_trimmed_to_configured_size", func(t *testing.T) {
		server := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: server.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		runner := task.NewRunner(64, slog.Default())
		service := NewService(NewRedisEventStore(client), &memoryAuditStore{}, runner, slog.Default(), Options{
			IndexSize: 5,
		})

		base := time.Now().Add(-time.Hour)
		for i := 0; i < 8; i++ {
			service.Record(Event{
				Type:      EventTokenIssued,
				UserID:    "user-3",
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			})
		}
		drain(t, runner)

		events, err := service.ListUserEvents(context.Background(), "user-3", 10)
		require.NoError(t, err)
		assert.Len(t, events, 5)
	})

	t.Run("high_priority_event_is_written_inline", func(t *testing.T) {
		server := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: server.Addr()})
		t.Cleanup(func() { _ = client.Close() })

		audit := &memoryAuditStore{}
		runner := task.NewRunner(16, slog.Default())
		service := NewService(NewRedisEventStore(client), audit, runner, slog.Default(), Options{
			HighPriorityEvents: []string{EventSuspiciousActivity},
		})

		service.Record(Event{Type: EventSuspiciousActivity, UserID: "user-4"})

		// No drain needed: the write happened on the calling goroutine.
		assert.Equal(t, 1, audit.count())
	})
}

func TestService_RecordAccess(t *testing.T) {
	t.Run("appends_decision_with_id_and_timestamp", func(t *testing.T) {
		service, audit, runner := newTestService(t)

		service.RecordAccess(AccessLog{
			UserID:       "user-1",
			ResourceType: "knowledge",
			ResourceID:   "article-9",
			Action:       "read",
			Allowed:      true,
		})
		drain(t, runner)

		require.Equal(t, 1, audit.accessCount())
		entry := audit.accessLogs[0]
		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
		assert.True(t, entry.Allowed)
	})

	t.Run("denied_decision_is_also_appended", func(t *testing.T) {
		service, audit, runner := newTestService(t)

		service.RecordAccess(AccessLog{
			UserID:       "user-1",
			ResourceType: "sensitive",
			Action:       "write",
			Allowed:      false,
		})
		drain(t, runner)

		require.Equal(t, 1, audit.accessCount())
		assert.False(t, audit.accessLogs[0].Allowed)
	})
}
