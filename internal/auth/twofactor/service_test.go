// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package twofactor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/sec"
	"github.com/suoke-life/auth-service/internal/security"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// memorySettingsStore holds per-user settings in a map.
type memorySettingsStore struct {
	mu       sync.Mutex
	settings map[string]Settings
}

func newMemorySettingsStore() *memorySettingsStore {
	return &memorySettingsStore{settings: make(map[string]Settings)}
}

func (store *memorySettingsStore) GetSettings(_ context.Context, userID string) (*Settings, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	settings := store.settings[userID]
	return &settings, nil
}

func (store *memorySettingsStore) Enable(_ context.Context, userID, method, secret string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.settings[userID] = Settings{Enabled: true, Method: method, Secret: secret}
	return nil
}

func (store *memorySettingsStore) Disable(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.settings[userID] = Settings{}
	return nil
}

// memoryCodeStore holds recovery codes in a map.
type memoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]*RecoveryCode
}

func newMemoryCodeStore() *memoryCodeStore {
	return &memoryCodeStore{codes: make(map[string]*RecoveryCode)}
}

func (store *memoryCodeStore) ReplaceCodes(_ context.Context, userID string, hashes []string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for id, code := range store.codes {
		if code.UserID == userID {
			delete(store.codes, id)
		}
	}
	for _, hash := range hashes {
		id := uuid.New()
		store.codes[id] = &RecoveryCode{ID: id, UserID: userID, CodeHash: hash, CreatedAt: time.Now()}
	}
	return nil
}

func (store *memoryCodeStore) ListActive(_ context.Context, userID string) ([]RecoveryCode, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	active := []RecoveryCode{}
	for _, code := range store.codes {
		if code.UserID == userID && !code.Used {
			active = append(active, *code)
		}
	}
	return active, nil
}

func (store *memoryCodeStore) MarkUsed(_ context.Context, codeID string, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if code, ok := store.codes[codeID]; ok && !code.Used {
		code.Used = true
		code.UsedAt = &at
	}
	return nil
}

func (store *memoryCodeStore) CountActive(_ context.Context, userID string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	count := 0
	for _, code := range store.codes {
		if code.UserID == userID && !code.Used {
			count++
		}
	}
	return count, nil
}

func (store *memoryCodeStore) DeleteAll(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for id, code := range store.codes {
		if code.UserID == userID {
			delete(store.codes, id)
		}
	}
	return nil
}

type eventSink struct {
	mu     sync.Mutex
	events []security.Event
}

func (sink *eventSink) Record(event security.Event) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.events = append(sink.events, event)
}

func (sink *eventSink) has(eventType string) bool {
	_, ok := sink.last(eventType)
	return ok
}

func (sink *eventSink) last(eventType string) (security.Event, bool) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	for index := len(sink.events) - 1; index >= 0; index-- {
		if sink.events[index].Type == eventType {
			return sink.events[index], true
		}
	}
	return security.Event{}, false
}

type fixture struct {
	service *Service
	redis   *miniredis.Miniredis
	codes   *memoryCodeStore
	sink    *eventSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	codes := newMemoryCodeStore()
	sink := &eventSink{}
	service := NewService(
		NewRedisSetupStore(client),
		newMemorySettingsStore(),
		codes,
		sink,
		slog.Default(),
	)

	return &fixture{service: service, redis: server, codes: codes, sink: sink}
}

// enroll provisions and activates 2FA for a user, returning the secret and
// the plaintext recovery codes.
func enroll(t *testing.T, fx *fixture, userID string) (string, []string) {
	t.Helper()
	ctx := context.Background()

	provisioned, err := fx.service.Provision(ctx, userID, userID+"@suoke.life")
	require.NoError(t, err)

	code, err := sec.GenerateTOTP(provisioned.Secret, time.Now())
	require.NoError(t, err)

	recoveryCodes, err := fx.service.Activate(ctx, userID, provisioned.SetupID, code)
	require.NoError(t, err)

	return provisioned.Secret, recoveryCodes
}

func TestProvision(t *testing.T) {
	ctx := context.Background()

	t.Run("returns_secret_uri_and_qr", func(t *testing.T) {
		fx := newFixture(t)

		result, err := fx.service.Provision(ctx, "u1", "u1@suoke.life")
		require.NoError(t, err)

		assert.NotEmpty(t, result.SetupID)
		assert.Regexp(t, `^[A-Z2-7]+$`, result.Secret)
		assert.Contains(t, result.OTPAuthURL, "otpauth://totp/")
		assert.Contains(t, result.OTPAuthURL, "secret="+result.Secret)
		assert.True(t, strings.HasPrefix(result.QRCode, "data:image/png;base64,"))
		assert.Equal(t, int64(constants.TwoFactorSetupTTL.Seconds()), result.ExpiresIn)
	})

	t.Run("rejected_when_already_enabled", func(t *testing.T) {
		fx := newFixture(t)
		enroll(t, fx, "u1")

		_, err := fx.service.Provision(ctx, "u1", "u1@suoke.life")
		assert.True(t, apperr.IsKind(err, "CONFLICT"))
	})

	t.Run("records_pending_enrollment_event", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.service.Provision(ctx, "u1", "u1@suoke.life")
		require.NoError(t, err)

		event, ok := fx.sink.last(security.EventTwoFactorEnabled)
		require.True(t, ok)
		assert.Equal(t, "u1", event.UserID)
		assert.Equal(t, "pending", event.Details["status"])
	})
}

func TestActivate(t *testing.T) {
	ctx := context.Background()

	t.Run("activates_and_returns_recovery_codes", func(t *testing.T) {
		fx := newFixture(t)
		_, recoveryCodes := enroll(t, fx, "u1")

		require.Len(t, recoveryCodes, constants.RecoveryCodeCount)
		for _, code := range recoveryCodes {
			assert.Regexp(t, `^[0-9A-F]{8}-[0-9A-F]{8}-[0-9A-F]{8}-[0-9A-F]{8}$`, code)
		}

		enabled, err := fx.service.Enabled(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, enabled)
		event, ok := fx.sink.last(security.EventTwoFactorEnabled)
		require.True(t, ok)
		assert.Equal(t, "active", event.Details["status"])
	})

	t.Run("wrong_code_is_rejected", func(t *testing.T) {
		fx := newFixture(t)

		provisioned, err := fx.service.Provision(ctx, "u1", "u1@suoke.life")
		require.NoError(t, err)

		_, err = fx.service.Activate(ctx, "u1", provisioned.SetupID, "000000")
		assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
		assert.True(t, fx.sink.has(security.EventTwoFactorFailed))
	})

	t.Run("expired_setup_is_gone", func(t *testing.T) {
		fx := newFixture(t)

		provisioned, err := fx.service.Provision(ctx, "u1", "u1@suoke.life")
		require.NoError(t, err)

		fx.redis.FastForward(constants.TwoFactorSetupTTL + time.Second)

		code, err := sec.GenerateTOTP(provisioned.Secret, time.Now())
		require.NoError(t, err)

		_, err = fx.service.Activate(ctx, "u1", provisioned.SetupID, code)
		assert.True(t, apperr.IsKind(err, "NOT_FOUND"))
	})

	t.Run("setup_is_single_use", func(t *testing.T) {
		fx := newFixture(t)

		provisioned, err := fx.service.Provision(ctx, "u1", "u1@suoke.life")
		require.NoError(t, err)

		code, err := sec.GenerateTOTP(provisioned.Secret, time.Now())
		require.NoError(t, err)

		_, err = fx.service.Activate(ctx, "u1", provisioned.SetupID, code)
		require.NoError(t, err)

		_, err = fx.service.Activate(ctx, "u1", provisioned.SetupID, code)
		assert.True(t, apperr.IsKind(err, "NOT_FOUND"))
	})
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("live_code_verifies", func(t *testing.T) {
		fx := newFixture(t)
		secret, _ := enroll(t, fx, "u1")

		code, err := sec.GenerateTOTP(secret, time.Now())
		require.NoError(t, err)

		require.NoError(t, fx.service.Verify(ctx, "u1", code))
		assert.True(t, fx.sink.has(security.EventTwoFactorVerified))
	})

	t.Run("wrong_code_is_rejected", func(t *testing.T) {
		fx := newFixture(t)
		enroll(t, fx, "u1")

		err := fx.service.Verify(ctx, "u1", "000000")
		assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
		assert.True(t, fx.sink.has(security.EventTwoFactorFailed))
	})

	t.Run("rejected_when_not_enabled", func(t *testing.T) {
		fx := newFixture(t)

		err := fx.service.Verify(ctx, "u1", "123456")
		assert.True(t, apperr.IsKind(err, "CONFLICT"))
	})

	t.Run("recovery_code_verifies_exactly_once", func(t *testing.T) {
		fx := newFixture(t)
		_, recoveryCodes := enroll(t, fx, "u1")

		require.NoError(t, fx.service.Verify(ctx, "u1", recoveryCodes[0]))
		assert.True(t, fx.sink.has(security.EventRecoveryCodeUsed))

		remaining, err := fx.service.RemainingRecoveryCodes(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, constants.RecoveryCodeCount-1, remaining)

		err = fx.service.Verify(ctx, "u1", recoveryCodes[0])
		assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
	})
}

func TestRegenerateRecoveryCodes(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	_, oldCodes := enroll(t, fx, "u1")

	newCodes, err := fx.service.RegenerateRecoveryCodes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, newCodes, constants.RecoveryCodeCount)

	t.Run("old_codes_stop_working", func(t *testing.T) {
		err := fx.service.Verify(ctx, "u1", oldCodes[0])
		assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
	})

	t.Run("new_codes_work", func(t *testing.T) {
		require.NoError(t, fx.service.Verify(ctx, "u1", newCodes[0]))
	})
}

func TestDisable(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	secret, _ := enroll(t, fx, "u1")

	require.NoError(t, fx.service.Disable(ctx, "u1"))
	assert.True(t, fx.sink.has(security.EventTwoFactorDisabled))

	t.Run("verify_after_disable_is_rejected", func(t *testing.T) {
		code, err := sec.GenerateTOTP(secret, time.Now())
		require.NoError(t, err)

		err = fx.service.Verify(ctx, "u1", code)
		assert.True(t, apperr.IsKind(err, "CONFLICT"))
	})

	t.Run("recovery_codes_are_destroyed", func(t *testing.T) {
		remaining, err := fx.service.RemainingRecoveryCodes(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, remaining)
	})

	t.Run("disable_twice_is_rejected", func(t *testing.T) {
		err := fx.service.Disable(ctx, "u1")
		assert.True(t, apperr.IsKind(err, "CONFLICT"))
	})
}
