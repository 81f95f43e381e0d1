// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package twofactor

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/sec"
	"github.com/suoke-life/auth-service/internal/security"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// totpIssuer is the issuer label shown in authenticator apps.
const totpIssuer = "Suoke Life"

// qrCodeSize is the edge length of the generated QR PNG in pixels.
const qrCodeSize = 256

// Service implements second-factor enrollment and verification.
type Service struct {
	setups   SetupStore
	settings SettingsStore
	codes    RecoveryCodeStore
	events   security.Recorder
	logger   *slog.Logger
}

// NewService creates the two-factor service.
func NewService(setups SetupStore, settings SettingsStore, codes RecoveryCodeStore, events security.Recorder, logger *slog.Logger) *Service {
	return &Service{
		setups:   setups,
		settings: settings,
		codes:    codes,
		events:   events,
		logger:   logger,
	}
}

// # Enrollment

/*
Provision starts TOTP enrollment for a user.

Description: Generates a fresh secret and parks it under a setup id with a
short TTL. Nothing on the account changes until Activate proves possession
of the secret. Re-provisioning while a setup is pending simply creates
another independent setup; the TTL garbage-collects the losers. Each
provision is recorded in the security log with status=pending.

Parameters:
  - context: context.Context
  - userID: string
  - accountName: string — the label shown in the authenticator app

Returns:
  - *ProvisionResult: Setup id, secret, otpauth URI, and QR data URI
  - error: CONFLICT when already enabled, persistence failures
*/
func (service *Service) Provision(context context.Context, userID, accountName string) (*ProvisionResult, error) {

	settings, err := service.settings.GetSettings(context, userID)
	if err != nil {
		return nil, err
	}
	if settings.Enabled {
		return nil, apperr.Conflict("Two-factor authentication is already enabled")
	}

	secret, err := sec.GenerateTOTPSecret()
	if err != nil {
		return nil, err
	}

	setup := &Setup{
		ID:        uuid.New(),
		UserID:    userID,
		Method:    MethodTOTP,
		Secret:    secret,
		CreatedAt: time.Now(),
	}
	if err := service.setups.SaveSetup(context, setup, constants.TwoFactorSetupTTL); err != nil {
		return nil, err
	}

	otpAuthURL := sec.TOTPProvisioningURI(secret, accountName, totpIssuer)

	qrPNG, err := qrcode.Encode(otpAuthURL, qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("two_factor_qr_encode_failed: %w", err)
	}

	service.events.Record(security.Event{
		Type:   security.EventTwoFactorEnabled,
		UserID: userID,
		Details: map[string]any{
			"status": "pending",
			"method": setup.Method,
		},
	})

	return &ProvisionResult{
		SetupID:    setup.ID,
		Secret:     secret,
		OTPAuthURL: otpAuthURL,
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrPNG),
		ExpiresIn:  int64(constants.TwoFactorSetupTTL.Seconds()),
	}, nil
}

/*
Activate completes enrollment by proving possession of the secret.

Description: The submitted code must match the parked secret within the
standard drift window. On success the secret is persisted on the account,
the setup blob is deleted, and one batch of recovery codes is generated.
The plaintext codes are returned exactly once and stored only as bcrypt
hashes.

Parameters:
  - context: context.Context
  - userID: string
  - setupID: string
  - code: string

Returns:
  - []string: The plaintext recovery codes
  - error: NOT_FOUND on expired setup, UNAUTHORIZED on code mismatch
*/
func (service *Service) Activate(context context.Context, userID, setupID, code string) ([]string, error) {

	setup, err := service.setups.GetSetup(context, userID, setupID)
	if err != nil {
		return nil, err
	}
	if setup == nil {
		return nil, apperr.NotFound("Two-factor setup")
	}

	valid, err := sec.ValidateTOTP(setup.Secret, code, time.Now(), sec.TOTPWindow)
	if err != nil {
		return nil, err
	}
	if !valid {
		service.recordFailure(userID, "activation_code_mismatch")
		return nil, apperr.Unauthorized("Invalid verification code")
	}

	if err := service.settings.Enable(context, userID, setup.Method, setup.Secret); err != nil {
		return nil, err
	}

	recoveryCodes, err := service.replaceRecoveryCodes(context, userID)
	if err != nil {
		return nil, err
	}

	if err := service.setups.DeleteSetup(context, userID, setupID); err != nil {
		service.logger.Warn("two_factor_setup_cleanup_failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	service.events.Record(security.Event{
		Type:   security.EventTwoFactorEnabled,
		UserID: userID,
		Details: map[string]any{
			"status": "active",
			"method": setup.Method,
		},
	})

	return recoveryCodes, nil
}

// # Verification

// Enabled reports whether the user has an active second factor.
func (service *Service) Enabled(context context.Context, userID string) (bool, error) {
	settings, err := service.settings.GetSettings(context, userID)
	if err != nil {
		return false, err
	}
	return settings.Enabled, nil
}

/*
Verify checks a second-factor code for a user with 2FA enabled.

Description: The code is first tried as a live TOTP code within the drift
window. On mismatch it falls back to the recovery codes; a matching
recovery code burns on use and never verifies again.

Parameters:
  - context: context.Context
  - userID: string
  - code: string

Returns:
  - error: CONFLICT when 2FA is not enabled, UNAUTHORIZED on mismatch
*/
func (service *Service) Verify(context context.Context, userID, code string) error {

	settings, err := service.settings.GetSettings(context, userID)
	if err != nil {
		return err
	}
	if !settings.Enabled {
		return apperr.Conflict("Two-factor authentication is not enabled")
	}

	// ── 1. Live TOTP code ─────────────────────────────────────────────────
	valid, err := sec.ValidateTOTP(settings.Secret, code, time.Now(), sec.TOTPWindow)
	if err != nil {
		return err
	}
	if valid {
		service.events.Record(security.Event{
			Type:   security.EventTwoFactorVerified,
			UserID: userID,
		})
		return nil
	}

	// ── 2. Recovery code fallback ─────────────────────────────────────────
	burned, err := service.tryRecoveryCode(context, userID, code)
	if err != nil {
		return err
	}
	if burned {
		return nil
	}

	service.recordFailure(userID, "code_mismatch")
	return apperr.Unauthorized("Invalid verification code")
}

// # Teardown

// Disable turns the second factor off and destroys the recovery codes. The
// caller is responsible for re-authenticating the user first.
func (service *Service) Disable(context context.Context, userID string) error {

	settings, err := service.settings.GetSettings(context, userID)
	if err != nil {
		return err
	}
	if !settings.Enabled {
		return apperr.Conflict("Two-factor authentication is not enabled")
	}

	if err := service.settings.Disable(context, userID); err != nil {
		return err
	}
	if err := service.codes.DeleteAll(context, userID); err != nil {
		return err
	}

	service.events.Record(security.Event{
		Type:   security.EventTwoFactorDisabled,
		UserID: userID,
	})

	return nil
}

// # Recovery Codes

// RegenerateRecoveryCodes replaces the user's batch with a fresh one. The
// old codes stop working immediately.
func (service *Service) RegenerateRecoveryCodes(context context.Context, userID string) ([]string, error) {

	settings, err := service.settings.GetSettings(context, userID)
	if err != nil {
		return nil, err
	}
	if !settings.Enabled {
		return nil, apperr.Conflict("Two-factor authentication is not enabled")
	}

	return service.replaceRecoveryCodes(context, userID)
}

// RemainingRecoveryCodes returns how many unused codes the user has left.
func (service *Service) RemainingRecoveryCodes(context context.Context, userID string) (int, error) {
	return service.codes.CountActive(context, userID)
}

// replaceRecoveryCodes generates a batch, stores the hashes, and returns the
// plaintexts.
func (service *Service) replaceRecoveryCodes(context context.Context, userID string) ([]string, error) {

	plaintexts := make([]string, 0, constants.RecoveryCodeCount)
	hashes := make([]string, 0, constants.RecoveryCodeCount)

	for index := 0; index < constants.RecoveryCodeCount; index++ {
		code, err := sec.GenerateRecoveryCode()
		if err != nil {
			return nil, err
		}
		hash, err := sec.HashPassword(code)
		if err != nil {
			return nil, err
		}
		plaintexts = append(plaintexts, code)
		hashes = append(hashes, hash)
	}

	if err := service.codes.ReplaceCodes(context, userID, hashes); err != nil {
		return nil, err
	}

	return plaintexts, nil
}

// tryRecoveryCode matches the code against the unused batch and burns the
// hit. Returns false on no match.
func (service *Service) tryRecoveryCode(context context.Context, userID, code string) (bool, error) {

	active, err := service.codes.ListActive(context, userID)
	if err != nil {
		return false, err
	}

	for _, candidate := range active {
		if !sec.CheckPasswordHash(code, candidate.CodeHash) {
			continue
		}

		if err := service.codes.MarkUsed(context, candidate.ID, time.Now()); err != nil {
			return false, err
		}

		remaining, err := service.codes.CountActive(context, userID)
		if err != nil {
			remaining = -1
		}

		service.events.Record(security.Event{
			Type:   security.EventRecoveryCodeUsed,
			UserID: userID,
			Details: map[string]any{
				"remaining": remaining,
			},
		})

		return true, nil
	}

	return false, nil
}

func (service *Service) recordFailure(userID, reason string) {
	service.events.Record(security.Event{
		Type:   security.EventTwoFactorFailed,
		UserID: userID,
		Details: map[string]any{
			"reason": reason,
		},
	})
}
