// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suoke-life/auth-service/internal/platform/dberr"
	"github.com/suoke-life/auth-service/internal/security"
)

// # Fakes

// memoryStore is an in-memory Store used to exercise the manager logic.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: make(map[string]*Session)}
}

func (store *memoryStore) Insert(_ context.Context, session *Session) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if session.IsCurrent {
		for _, other := range store.sessions {
			if other.UserID == session.UserID {
				other.IsCurrent = false
			}
		}
	}
	clone := *session
	store.sessions[session.ID] = &clone
	return nil
}

func (store *memoryStore) Get(_ context.Context, id string) (*Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	session, ok := store.sessions[id]
	if !ok {
		return nil, dberr.ErrNotFound
	}
	clone := *session
	return &clone, nil
}

func (store *memoryStore) GetByTokenID(_ context.Context, tokenID string) (*Session, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, session := range store.sessions {
		if session.TokenID == tokenID {
			clone := *session
			return &clone, nil
		}
	}
	return nil, dberr.ErrNotFound
}

func (store *memoryStore) List(_ context.Context, userID string, activeOnly bool, limit, offset int) ([]Session, int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	matched := []Session{}
	for _, session := range store.sessions {
		if session.UserID != userID {
			continue
		}
		if activeOnly && session.Status != StatusActive && session.Status != StatusSuspicious {
			continue
		}
		matched = append(matched, *session)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if offset >= len(matched) {
		return []Session{}, total, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (store *memoryStore) ListRecentActive(ctx context.Context, userID string, limit int) ([]Session, error) {
	sessions, _, err := store.List(ctx, userID, true, limit, 0)
	return sessions, err
}

func (store *memoryStore) UpdateActivity(_ context.Context, id string, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	session, ok := store.sessions[id]
	if !ok {
		return dberr.ErrNotFound
	}
	session.LastActiveAt = at
	return nil
}

func (store *memoryStore) UpdateStatus(_ context.Context, id, status string, expiresAt *time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	session, ok := store.sessions[id]
	if !ok {
		return dberr.ErrNotFound
	}
	session.Status = status
	if expiresAt != nil {
		session.ExpiresAt = *expiresAt
	}
	return nil
}

func (store *memoryStore) BindToken(_ context.Context, id, tokenID, deviceID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	session, ok := store.sessions[id]
	if !ok {
		return dberr.ErrNotFound
	}
	session.TokenID = tokenID
	session.DeviceID = deviceID
	return nil
}

func (store *memoryStore) HasCurrent(_ context.Context, userID string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, session := range store.sessions {
		if session.UserID == userID && session.IsCurrent {
			return true, nil
		}
	}
	return false, nil
}

func (store *memoryStore) SetCurrent(_ context.Context, userID, sessionID string) ([]string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	target, ok := store.sessions[sessionID]
	if !ok || target.UserID != userID {
		return nil, dberr.ErrNotFound
	}
	changed := []string{}
	for id, session := range store.sessions {
		if session.UserID == userID && session.IsCurrent {
			session.IsCurrent = false
			changed = append(changed, id)
		}
	}
	target.IsCurrent = true
	changed = append(changed, sessionID)
	return changed, nil
}

func (store *memoryStore) RevokeAll(_ context.Context, userID, exceptID string) ([]string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	ids := []string{}
	for id, session := range store.sessions {
		if session.UserID != userID || IsTerminal(session.Status) || id == exceptID {
			continue
		}
		session.Status = StatusRevoked
		session.IsCurrent = false
		ids = append(ids, id)
	}
	return ids, nil
}

func (store *memoryStore) MarkExpired(_ context.Context, now time.Time) ([]string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	ids := []string{}
	for id, session := range store.sessions {
		if IsTerminal(session.Status) || session.ExpiresAt.After(now) {
			continue
		}
		session.Status = StatusExpired
		session.IsCurrent = false
		ids = append(ids, id)
	}
	return ids, nil
}

// currentCount reports how many of the user's sessions claim is_current.
func (store *memoryStore) currentCount(userID string) int {
	store.mu.Lock()
	defer store.mu.Unlock()
	count := 0
	for _, session := range store.sessions {
		if session.UserID == userID && session.IsCurrent {
			count++
		}
	}
	return count
}

// nopRecorder discards events.
type nopRecorder struct{}

func (nopRecorder) Record(security.Event) {}

// fixedDetector returns a canned suspicion verdict.
type fixedDetector struct{ suspicious bool }

func (detector fixedDetector) DetectSuspicious(context.Context, string, string, string) (bool, error) {
	return detector.suspicious, nil
}

func newTestManager(t *testing.T, detector SuspicionDetector) (*Manager, *memoryStore) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemoryStore()
	manager := NewManager(
		store, NewRedisCache(client), nil, detector,
		nopRecorder{}, nil, nil, slog.Default(), 0, 0,
	)

	return manager, store
}

// # Tests

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		allowed bool
	}{
		{name: "pending_device_to_active", from: StatusPendingDeviceVerification, to: StatusActive, allowed: true},
		{name: "pending_device_to_pending_2fa", from: StatusPendingDeviceVerification, to: StatusPendingTwoFactor, allowed: true},
		{name: "pending_2fa_to_active", from: StatusPendingTwoFactor, to: StatusActive, allowed: true},
		{name: "pending_2fa_to_pending_device", from: StatusPendingTwoFactor, to: StatusPendingDeviceVerification, allowed: true},
		{name: "active_to_suspicious", from: StatusActive, to: StatusSuspicious, allowed: true},
		{name: "active_to_revoked", from: StatusActive, to: StatusRevoked, allowed: true},
		{name: "suspicious_to_expired", from: StatusSuspicious, to: StatusExpired, allowed: true},
		{name: "active_to_pending_2fa_rejected", from: StatusActive, to: StatusPendingTwoFactor, allowed: false},
		{name: "suspicious_to_active_rejected", from: StatusSuspicious, to: StatusActive, allowed: false},
		{name: "revoked_is_terminal", from: StatusRevoked, to: StatusActive, allowed: false},
		{name: "expired_is_terminal", from: StatusExpired, to: StatusRevoked, allowed: false},
		{name: "same_status_is_noop", from: StatusActive, to: StatusActive, allowed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestSession_Valid(t *testing.T) {
	now := time.Now()
	base := Session{UserID: "u1", Status: StatusActive, ExpiresAt: now.Add(time.Hour)}

	t.Run("active_unexpired_is_valid", func(t *testing.T) {
		assert.True(t, base.Valid("u1", now))
	})

	t.Run("suspicious_is_still_valid", func(t *testing.T) {
		s := base
		s.Status = StatusSuspicious
		assert.True(t, s.Valid("u1", now))
	})

	t.Run("wrong_user_is_invalid", func(t *testing.T) {
		assert.False(t, base.Valid("u2", now))
	})

	t.Run("expiry_boundary_is_expired", func(t *testing.T) {
		s := base
		s.ExpiresAt = now
		assert.False(t, s.Valid("u1", now))
	})

	t.Run("revoked_is_invalid", func(t *testing.T) {
		s := base
		s.Status = StatusRevoked
		assert.False(t, s.Valid("u1", now))
	})
}

func TestManager_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("first_session_becomes_current", func(t *testing.T) {
		manager, store := newTestManager(t, nil)

		first, err := manager.Create(ctx, CreateInput{UserID: "u1", IP: "203.0.113.4"})
		require.NoError(t, err)
		assert.True(t, first.IsCurrent)
		assert.Equal(t, StatusActive, first.Status)

		second, err := manager.Create(ctx, CreateInput{UserID: "u1", IP: "203.0.113.4"})
		require.NoError(t, err)
		assert.False(t, second.IsCurrent)

		assert.Equal(t, 1, store.currentCount("u1"))
	})

	t.Run("pending_session_is_never_current", func(t *testing.T) {
		manager, store := newTestManager(t, nil)

		temp, err := manager.Create(ctx, CreateInput{
			UserID:    "u2",
			Status:    StatusPendingTwoFactor,
			ExpiresIn: 5 * time.Minute,
		})
		require.NoError(t, err)
		assert.False(t, temp.IsCurrent)
		assert.Zero(t, store.currentCount("u2"))
	})

	t.Run("suspicious_verdict_overrides_status", func(t *testing.T) {
		manager, _ := newTestManager(t, fixedDetector{suspicious: true})

		session, err := manager.Create(ctx, CreateInput{UserID: "u3", IP: "198.51.100.7"})
		require.NoError(t, err)
		assert.Equal(t, StatusSuspicious, session.Status)

		// A suspicious session still counts as bearer-valid.
		assert.True(t, manager.IsValid(ctx, session.ID, "u3"))
	})

	t.Run("detector_not_consulted_for_pending", func(t *testing.T) {
		manager, _ := newTestManager(t, fixedDetector{suspicious: true})

		session, err := manager.Create(ctx, CreateInput{
			UserID: "u4",
			Status: StatusPendingDeviceVerification,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusPendingDeviceVerification, session.Status)
	})
}

func TestManager_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects_active_to_pending", func(t *testing.T) {
		manager, _ := newTestManager(t, nil)
		session, err := manager.Create(ctx, CreateInput{UserID: "u1"})
		require.NoError(t, err)

		_, err = manager.UpdateStatus(ctx, session.ID, StatusPendingTwoFactor, 0)
		require.Error(t, err)
	})

	t.Run("terminal_states_are_immutable", func(t *testing.T) {
		manager, _ := newTestManager(t, nil)
		session, err := manager.Create(ctx, CreateInput{UserID: "u1"})
		require.NoError(t, err)

		require.NoError(t, manager.Revoke(ctx, session.ID, "test"))

		_, err = manager.UpdateStatus(ctx, session.ID, StatusActive, 0)
		require.Error(t, err)
	})

	t.Run("activation_rewrites_expiry", func(t *testing.T) {
		manager, _ := newTestManager(t, nil)
		temp, err := manager.Create(ctx, CreateInput{
			UserID:    "u1",
			Status:    StatusPendingTwoFactor,
			ExpiresIn: 5 * time.Minute,
		})
		require.NoError(t, err)

		activated, err := manager.Activate(ctx, temp.ID, 24*time.Hour, "jti-1", "device-1")
		require.NoError(t, err)
		assert.Equal(t, StatusActive, activated.Status)
		assert.Equal(t, "jti-1", activated.TokenID)
		assert.True(t, activated.ExpiresAt.After(time.Now().Add(23*time.Hour)))
	})
}

func TestManager_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("activated_session_is_elected_current", func(t *testing.T) {
		manager, store := newTestManager(t, nil)
		temp, err := manager.Create(ctx, CreateInput{
			UserID:    "u1",
			Status:    StatusPendingTwoFactor,
			ExpiresIn: 5 * time.Minute,
		})
		require.NoError(t, err)
		require.False(t, temp.IsCurrent)

		// The user's only session went through step-up, so activation must
		// elect it; nothing else ever will.
		activated, err := manager.Activate(ctx, temp.ID, 24*time.Hour, "jti-1", "device-1")
		require.NoError(t, err)
		assert.True(t, activated.IsCurrent)
		assert.Equal(t, 1, store.currentCount("u1"))
	})

	t.Run("existing_current_session_is_kept", func(t *testing.T) {
		manager, store := newTestManager(t, nil)
		current, err := manager.Create(ctx, CreateInput{UserID: "u2"})
		require.NoError(t, err)
		require.True(t, current.IsCurrent)

		temp, err := manager.Create(ctx, CreateInput{
			UserID:    "u2",
			Status:    StatusPendingTwoFactor,
			ExpiresIn: 5 * time.Minute,
		})
		require.NoError(t, err)

		activated, err := manager.Activate(ctx, temp.ID, 24*time.Hour, "jti-2", "device-2")
		require.NoError(t, err)
		assert.False(t, activated.IsCurrent)
		assert.Equal(t, 1, store.currentCount("u2"))

		kept, err := manager.Get(ctx, current.ID)
		require.NoError(t, err)
		assert.True(t, kept.IsCurrent)
	})

	t.Run("suspicious_verdict_demotes_on_activation", func(t *testing.T) {
		manager, _ := newTestManager(t, fixedDetector{suspicious: true})
		temp, err := manager.Create(ctx, CreateInput{
			UserID:    "u3",
			Status:    StatusPendingDeviceVerification,
			ExpiresIn: 15 * time.Minute,
			IP:        "198.51.100.7",
		})
		require.NoError(t, err)
		require.Equal(t, StatusPendingDeviceVerification, temp.Status)

		activated, err := manager.Activate(ctx, temp.ID, 24*time.Hour, "jti-3", "device-3")
		require.NoError(t, err)
		assert.Equal(t, StatusSuspicious, activated.Status)

		// Still bearer-valid, matching a directly created suspicious session.
		assert.True(t, manager.IsValid(ctx, activated.ID, "u3"))
	})
}

func TestManager_RevocationAndValidity(t *testing.T) {
	ctx := context.Background()

	t.Run("revoked_session_is_invalid", func(t *testing.T) {
		manager, _ := newTestManager(t, nil)
		session, err := manager.Create(ctx, CreateInput{UserID: "u1"})
		require.NoError(t, err)
		require.True(t, manager.IsValid(ctx, session.ID, "u1"))

		require.NoError(t, manager.Revoke(ctx, session.ID, "logout"))
		assert.False(t, manager.IsValid(ctx, session.ID, "u1"))
	})

	t.Run("revoke_all_spares_exception", func(t *testing.T) {
		manager, _ := newTestManager(t, nil)
		keep, err := manager.Create(ctx, CreateInput{UserID: "u2"})
		require.NoError(t, err)
		drop, err := manager.Create(ctx, CreateInput{UserID: "u2"})
		require.NoError(t, err)

		count, err := manager.RevokeAll(ctx, "u2", keep.ID, "admin")
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		assert.True(t, manager.IsValid(ctx, keep.ID, "u2"))
		assert.False(t, manager.IsValid(ctx, drop.ID, "u2"))
	})

	t.Run("cleanup_marks_overdue_sessions", func(t *testing.T) {
		manager, _ := newTestManager(t, nil)
		short, err := manager.Create(ctx, CreateInput{UserID: "u3", ExpiresIn: time.Nanosecond})
		require.NoError(t, err)
		long, err := manager.Create(ctx, CreateInput{UserID: "u3", ExpiresIn: time.Hour})
		require.NoError(t, err)

		time.Sleep(time.Millisecond)

		count, err := manager.CleanupExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		assert.False(t, manager.IsValid(ctx, short.ID, "u3"))
		assert.True(t, manager.IsValid(ctx, long.ID, "u3"))
	})
}

func TestManager_SetCurrent(t *testing.T) {
	ctx := context.Background()
	manager, store := newTestManager(t, nil)

	first, err := manager.Create(ctx, CreateInput{UserID: "u1"})
	require.NoError(t, err)
	second, err := manager.Create(ctx, CreateInput{UserID: "u1"})
	require.NoError(t, err)

	require.NoError(t, manager.SetCurrent(ctx, "u1", second.ID))
	assert.Equal(t, 1, store.currentCount("u1"))

	updated, err := manager.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, updated.IsCurrent)

	older, err := manager.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, older.IsCurrent)
}
