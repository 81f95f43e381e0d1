// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/notify"
	"github.com/suoke-life/auth-service/internal/platform/sec"
	"github.com/suoke-life/auth-service/internal/security"
)

// smsCodeDigits is the length of a verification code.
const smsCodeDigits = 6

// SMSCodeService issues and checks the short-lived SMS codes used for
// device verification.
type SMSCodeService struct {
	client    *redis.Client
	transport notify.SmsTransport
	events    security.Recorder
	logger    *slog.Logger
	codeTTL   time.Duration
}

// NewSMSCodeService creates the SMS code service. A non-positive codeTTL
// falls back to [constants.SMSCodeTTL].
func NewSMSCodeService(client *redis.Client, transport notify.SmsTransport, events security.Recorder, logger *slog.Logger, codeTTL time.Duration) *SMSCodeService {
	if codeTTL <= 0 {
		codeTTL = constants.SMSCodeTTL
	}
	return &SMSCodeService{
		client:    client,
		transport: transport,
		events:    events,
		logger:    logger,
		codeTTL:   codeTTL,
	}
}

/*
SendCode generates and delivers a verification code to a phone number.

Description: A fresh 6-digit code replaces any previous one and resets the
attempt counter. Sends are throttled to one per minute per number.

Parameters:
  - context: context.Context
  - userID: string — for the audit event, may be empty
  - phone: string

Returns:
  - error: RATE_LIMITED inside the resend window, transport failures
*/
func (service *SMSCodeService) SendCode(context context.Context, userID, phone string) error {

	// ── 1. Resend throttle ────────────────────────────────────────────────
	throttled, err := service.client.Exists(context, constants.RedisPrefixSMSThrottle+phone).Result()
	if err != nil {
		return fmt.Errorf("sms_throttle_check_failed: %w", err)
	}
	if throttled > 0 {
		return apperr.RateLimited(int(constants.SMSResendThrottle.Seconds()))
	}

	// ── 2. Store a fresh code, reset attempts ─────────────────────────────
	code, err := sec.GenerateNumericCode(smsCodeDigits)
	if err != nil {
		return err
	}

	pipeline := service.client.Pipeline()
	pipeline.Set(context, constants.RedisPrefixSMSCode+phone, code, service.codeTTL)
	pipeline.Del(context, constants.RedisPrefixSMSAttempts+phone)
	pipeline.Set(context, constants.RedisPrefixSMSThrottle+phone, "1", constants.SMSResendThrottle)
	if _, err := pipeline.Exec(context); err != nil {
		return fmt.Errorf("sms_code_store_failed: %w", err)
	}

	// ── 3. Deliver ────────────────────────────────────────────────────────
	message := "Your Suoke Life verification code is " + code
	if err := service.transport.SendSMS(context, phone, message); err != nil {
		return fmt.Errorf("sms_code_send_failed: %w", err)
	}

	service.events.Record(security.Event{
		Type:   security.EventSMSCodeSent,
		UserID: userID,
	})

	return nil
}

/*
VerifyCode checks a submitted code against the stored one.

Description: Five wrong guesses exhaust the code. The exhausted attempt (and
every later one) fails RATE_LIMITED and evicts the stored code, forcing a
fresh SendCode. A correct code consumes itself.

Parameters:
  - context: context.Context
  - phone: string
  - code: string

Returns:
  - error: UNAUTHORIZED on mismatch or expiry, RATE_LIMITED when exhausted
*/
func (service *SMSCodeService) VerifyCode(context context.Context, phone, code string) error {

	// ── 1. Attempt budget ─────────────────────────────────────────────────
	attempts, err := service.client.Get(context, constants.RedisPrefixSMSAttempts+phone).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("sms_attempts_read_failed: %w", err)
	}
	if attempts >= constants.SMSMaxAttempts {
		service.evict(context, phone)
		return apperr.RateLimited(int(constants.SMSResendThrottle.Seconds()))
	}

	// ── 2. Compare ────────────────────────────────────────────────────────
	stored, err := service.client.Get(context, constants.RedisPrefixSMSCode+phone).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return apperr.Unauthorized("Invalid or expired verification code")
		}
		return fmt.Errorf("sms_code_read_failed: %w", err)
	}

	if stored != code {
		pipeline := service.client.Pipeline()
		pipeline.Incr(context, constants.RedisPrefixSMSAttempts+phone)
		pipeline.Expire(context, constants.RedisPrefixSMSAttempts+phone, service.codeTTL)
		if _, err := pipeline.Exec(context); err != nil {
			service.logger.Warn("sms_attempts_update_failed", slog.Any("error", err))
		}
		return apperr.Unauthorized("Invalid or expired verification code")
	}

	// ── 3. Consume ────────────────────────────────────────────────────────
	service.evict(context, phone)
	return nil
}

func (service *SMSCodeService) evict(context context.Context, phone string) {
	if err := service.client.Del(context,
		constants.RedisPrefixSMSCode+phone,
		constants.RedisPrefixSMSAttempts+phone,
	).Err(); err != nil {
		service.logger.Warn("sms_code_evict_failed", slog.Any("error", err))
	}
}
