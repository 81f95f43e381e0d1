// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package auth

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
)

type captureSms struct {
	mu       sync.Mutex
	messages []string
	phones   []string
}

func (transport *captureSms) SendSMS(_ context.Context, phone, message string) error {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	transport.phones = append(transport.phones, phone)
	transport.messages = append(transport.messages, message)
	return nil
}

// lastCode extracts the code from the most recent delivered message.
func (transport *captureSms) lastCode(t *testing.T) string {
	t.Helper()
	transport.mu.Lock()
	defer transport.mu.Unlock()
	require.NotEmpty(t, transport.messages)
	message := transport.messages[len(transport.messages)-1]
	return message[strings.LastIndex(message, " ")+1:]
}

func newSMSFixture(t *testing.T) (*SMSCodeService, *captureSms, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	transport := &captureSms{}
	service := NewSMSCodeService(client, transport, &eventSink{}, slog.Default(), time.Minute)
	return service, transport, server
}

func TestSMSCodeService(t *testing.T) {
	ctx := context.Background()
	phone := "+8613800138000"

	t.Run("correct_code_consumes_itself", func(t *testing.T) {
		service, transport, _ := newSMSFixture(t)

		require.NoError(t, service.SendCode(ctx, "user-1", phone))
		code := transport.lastCode(t)
		require.Len(t, code, 6)

		require.NoError(t, service.VerifyCode(ctx, phone, code))

		// Consumed: the same code no longer verifies.
		err := service.VerifyCode(ctx, phone, code)
		assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
	})

	t.Run("resend_is_throttled", func(t *testing.T) {
		service, _, server := newSMSFixture(t)

		require.NoError(t, service.SendCode(ctx, "user-1", phone))

		err := service.SendCode(ctx, "user-1", phone)
		assert.True(t, apperr.IsKind(err, "RATE_LIMITED"))

		server.FastForward(constants.SMSResendThrottle + time.Second)
		assert.NoError(t, service.SendCode(ctx, "user-1", phone))
	})

	t.Run("resend_replaces_the_previous_code", func(t *testing.T) {
		service, transport, server := newSMSFixture(t)

		require.NoError(t, service.SendCode(ctx, "user-1", phone))
		first := transport.lastCode(t)

		server.FastForward(constants.SMSResendThrottle + time.Second)
		require.NoError(t, service.SendCode(ctx, "user-1", phone))
		second := transport.lastCode(t)

		if first != second {
			err := service.VerifyCode(ctx, phone, first)
			assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
		}
		assert.NoError(t, service.VerifyCode(ctx, phone, second))
	})

	t.Run("wrong_guesses_exhaust_the_code", func(t *testing.T) {
		service, transport, _ := newSMSFixture(t)

		require.NoError(t, service.SendCode(ctx, "user-1", phone))
		code := transport.lastCode(t)

		wrong := "000000"
		if wrong == code {
			wrong = "111111"
		}
		for i := 0; i < constants.SMSMaxAttempts; i++ {
			err := service.VerifyCode(ctx, phone, wrong)
			assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
		}

		// Budget spent: even the correct code is refused and evicted.
		err := service.VerifyCode(ctx, phone, code)
		assert.True(t, apperr.IsKind(err, "RATE_LIMITED"))
	})

	t.Run("expired_code_is_rejected", func(t *testing.T) {
		service, transport, server := newSMSFixture(t)

		require.NoError(t, service.SendCode(ctx, "user-1", phone))
		code := transport.lastCode(t)

		server.FastForward(2 * time.Minute)

		err := service.VerifyCode(ctx, phone, code)
		assert.True(t, apperr.IsKind(err, "UNAUTHORIZED"))
	})
}
