// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/suoke-life/auth-service/internal/auth/device"
	"github.com/suoke-life/auth-service/internal/auth/risk"
	"github.com/suoke-life/auth-service/internal/auth/session"
	"github.com/suoke-life/auth-service/internal/auth/token"
	"github.com/suoke-life/auth-service/internal/auth/twofactor"
	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/dberr"
	"github.com/suoke-life/auth-service/internal/platform/notify"
	"github.com/suoke-life/auth-service/internal/platform/sec"
	"github.com/suoke-life/auth-service/internal/platform/task"
	"github.com/suoke-life/auth-service/internal/security"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// # Subsystem Contracts
//
// The orchestrator depends on the focused subsystems through narrow
// interfaces so flows can be exercised against fakes and no subsystem ever
// needs a back-edge into this package.

// TokenAuthority issues and revokes the JWT pairs.
type TokenAuthority interface {
	IssueTokens(ctx context.Context, input token.IssueInput) (*token.Pair, error)
	VerifyAccess(ctx context.Context, tokenString string) (*sec.TokenClaims, error)
	VerifyRefresh(ctx context.Context, tokenString string) (*sec.TokenClaims, error)
	Revoke(ctx context.Context, tokenOrJTI string) (bool, error)
	RevokeAll(ctx context.Context, userID string) (int, error)
	IssuePasswordReset(ctx context.Context, userID, email string) (string, error)
	VerifyPasswordResetToken(ctx context.Context, tokenString string) (*sec.TokenClaims, error)
	ConsumePasswordReset(ctx context.Context, userID, jti string) error
}

// SessionManager owns the session state machine.
type SessionManager interface {
	Create(ctx context.Context, input session.CreateInput) (*session.Session, error)
	Get(ctx context.Context, id string) (*session.Session, error)
	Activate(ctx context.Context, id string, duration time.Duration, tokenID, deviceID string) (*session.Session, error)
	UpdateStatus(ctx context.Context, id, newStatus string, expiresIn time.Duration) (*session.Session, error)
	UpdateActivity(ctx context.Context, id string) error
	Revoke(ctx context.Context, id, reason string) error
	RevokeAll(ctx context.Context, userID, exceptID, reason string) (int, error)
}

// DeviceRegistry resolves and trusts devices.
type DeviceRegistry interface {
	RegisterAndTrust(ctx context.Context, userID string, info device.Info, autoTrust bool) (*device.Device, error)
}

// TwoFactorService verifies second-factor codes.
type TwoFactorService interface {
	Enabled(ctx context.Context, userID string) (bool, error)
	Verify(ctx context.Context, userID, code string) error
}

// RiskEngine evaluates login attempts.
type RiskEngine interface {
	ProcessLoginSecurity(ctx context.Context, input risk.LoginSecurityInput) (*risk.LoginSecurityResult, error)
	RecordLoginSuccess(attempt risk.LoginAttempt)
	RecordLoginFailure(attempt risk.LoginAttempt)
}

// DeviceCodeSender delivers and checks device-verification SMS codes.
type DeviceCodeSender interface {
	SendCode(ctx context.Context, userID, phone string) error
	VerifyCode(ctx context.Context, phone, code string) error
}

// PermissionReader supplies the permission snapshot embedded in access
// tokens. The snapshot is informational; guards re-resolve.
type PermissionReader interface {
	EffectivePermissions(ctx context.Context, userID string) ([]string, error)
}

// # Orchestrator

// Durations sets the session lifetimes a completed login grants. Zero
// fields fall back to the package defaults in [constants].
type Durations struct {
	// Session is the standard active-session lifetime.
	Session time.Duration

	// TrustedSession is the extended lifetime granted on a trusted device.
	TrustedSession time.Duration
}

// Orchestrator implements the end-to-end authentication flows.
type Orchestrator struct {
	users       UserRepository
	tokens      TokenAuthority
	sessions    SessionManager
	devices     DeviceRegistry
	twoFactor   TwoFactorService
	riskEngine  RiskEngine
	deviceCodes DeviceCodeSender
	permissions PermissionReader
	email       notify.EmailTransport
	runner      *task.Runner
	events      security.Recorder
	logger      *slog.Logger
	durations   Durations
}

// NewOrchestrator wires the authentication flows together.
func NewOrchestrator(
	users UserRepository,
	tokens TokenAuthority,
	sessions SessionManager,
	devices DeviceRegistry,
	twoFactor TwoFactorService,
	riskEngine RiskEngine,
	deviceCodes DeviceCodeSender,
	permissions PermissionReader,
	email notify.EmailTransport,
	runner *task.Runner,
	events security.Recorder,
	logger *slog.Logger,
	durations Durations,
) *Orchestrator {
	if durations.Session <= 0 {
		durations.Session = constants.DefaultSessionDuration
	}
	if durations.TrustedSession <= 0 {
		durations.TrustedSession = constants.TrustedDeviceSessionDuration
	}
	return &Orchestrator{
		users:       users,
		tokens:      tokens,
		sessions:    sessions,
		devices:     devices,
		twoFactor:   twoFactor,
		riskEngine:  riskEngine,
		deviceCodes: deviceCodes,
		permissions: permissions,
		email:       email,
		runner:      runner,
		events:      events,
		logger:      logger,
		durations:   durations,
	}
}

// # Login Flow

// LoginInput carries one authentication attempt.
type LoginInput struct {
	Login      string
	Password   string
	IP         string
	UserAgent  string
	DeviceInfo device.Info
}

// LoginResult is the outcome of Login and of the two step-up verifications.
// Exactly one of the three shapes is populated: a pending device
// verification, a pending second factor, or a completed login.
type LoginResult struct {
	RequiresDeviceVerification bool                   `json:"requires_device_verification,omitempty"`
	RequiresTwoFactor          bool                   `json:"requires_two_factor,omitempty"`
	TwoFactorMethod            string                 `json:"two_factor_method,omitempty"`
	TempSessionID              string                 `json:"temp_session_id,omitempty"`
	UserID                     string                 `json:"user_id,omitempty"`
	VerificationInfo           *risk.VerificationInfo `json:"verification_info,omitempty"`

	Tokens  *token.Pair      `json:"tokens,omitempty"`
	Session *session.Session `json:"session,omitempty"`
	User    *User            `json:"user,omitempty"`
}

/*
Login authenticates credentials and routes the attempt through risk policy.

Description: Credential failures are uniform ("Invalid login credentials")
whether the user exists or not, to prevent enumeration. A structurally
valid login may still be diverted: an unknown device on an established
account parks the attempt in a pending_device_verification temp session; an
enabled second factor parks it in pending_2fa. Only a clean pass issues
tokens directly.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginResult: Completed login or step-up instruction
  - error: UNAUTHORIZED, FORBIDDEN (disabled account), or internal failures
*/
func (orchestrator *Orchestrator) Login(context context.Context, input LoginInput) (*LoginResult, error) {

	// ── 1. Resolve the account ────────────────────────────────────────────
	user, err := orchestrator.users.FindByLogin(context, input.Login)
	if err != nil {
		orchestrator.riskEngine.RecordLoginFailure(risk.LoginAttempt{
			IP: input.IP, UserAgent: input.UserAgent, Reason: "user_not_found",
		})
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// ── 2. Account status gate ────────────────────────────────────────────
	if !user.IsActive() {
		orchestrator.riskEngine.RecordLoginFailure(risk.LoginAttempt{
			UserID: user.ID, IP: input.IP, UserAgent: input.UserAgent, Reason: "account_disabled",
		})
		return nil, apperr.Forbidden("Account is disabled")
	}

	// ── 3. Verify the password ────────────────────────────────────────────
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		orchestrator.riskEngine.RecordLoginFailure(risk.LoginAttempt{
			UserID: user.ID, IP: input.IP, UserAgent: input.UserAgent, Reason: "invalid_password",
		})
		return nil, apperr.Unauthorized("Invalid login credentials")
	}

	// ── 4. Device risk policy ─────────────────────────────────────────────
	securityResult, err := orchestrator.riskEngine.ProcessLoginSecurity(context, risk.LoginSecurityInput{
		UserID:    user.ID,
		Info:      input.DeviceInfo,
		IP:        input.IP,
		UserAgent: input.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	if securityResult.VerificationRequired {
		return orchestrator.parkForDeviceVerification(context, user, input, securityResult)
	}

	// ── 5. Second factor gate ─────────────────────────────────────────────
	twoFactorEnabled, err := orchestrator.twoFactor.Enabled(context, user.ID)
	if err != nil {
		return nil, err
	}
	if twoFactorEnabled {
		return orchestrator.parkForTwoFactor(context, user, input, securityResult.DeviceFingerprint)
	}

	// ── 6. Clean pass: complete immediately ───────────────────────────────
	rememberDevice := securityResult.Device != nil && securityResult.Device.IsTrusted
	return orchestrator.completeLogin(context, user, input.DeviceInfo, input.IP, input.UserAgent, rememberDevice, "")
}

// parkForDeviceVerification creates the pending_device_verification temp
// session and kicks off SMS delivery.
func (orchestrator *Orchestrator) parkForDeviceVerification(context context.Context, user *User, input LoginInput, securityResult *risk.LoginSecurityResult) (*LoginResult, error) {

	tempSession, err := orchestrator.sessions.Create(context, session.CreateInput{
		UserID:      user.ID,
		Status:      session.StatusPendingDeviceVerification,
		ExpiresIn:   constants.PendingDeviceVerificationTTL,
		IP:          input.IP,
		UserAgent:   input.UserAgent,
		Fingerprint: securityResult.DeviceFingerprint,
	})
	if err != nil {
		return nil, err
	}

	if user.Phone != "" {
		if err := orchestrator.deviceCodes.SendCode(context, user.ID, user.Phone); err != nil {
			orchestrator.logger.Warn("device_verification_code_send_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
	}

	return &LoginResult{
		RequiresDeviceVerification: true,
		TempSessionID:              tempSession.ID,
		UserID:                     user.ID,
		VerificationInfo:           securityResult.VerificationInfo,
	}, nil
}

// parkForTwoFactor creates the pending_2fa temp session.
func (orchestrator *Orchestrator) parkForTwoFactor(context context.Context, user *User, input LoginInput, fingerprint string) (*LoginResult, error) {

	tempSession, err := orchestrator.sessions.Create(context, session.CreateInput{
		UserID:      user.ID,
		Status:      session.StatusPendingTwoFactor,
		ExpiresIn:   constants.PendingTwoFactorTTL,
		IP:          input.IP,
		UserAgent:   input.UserAgent,
		Fingerprint: fingerprint,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		RequiresTwoFactor: true,
		TwoFactorMethod:   twofactor.MethodTOTP,
		TempSessionID:     tempSession.ID,
		UserID:            user.ID,
	}, nil
}

/*
completeLogin finishes any authentication path by issuing the session and
token pair.

Description: Resolves (or registers) the device, activates the session with
a duration that reflects device trust, issues the pair with the session and
device bound into the claims, and stamps last_login. The permission
snapshot embedded in the access token is best-effort.
*/
func (orchestrator *Orchestrator) completeLogin(context context.Context, user *User, info device.Info, ip, userAgent string, rememberDevice bool, tempSessionID string) (*LoginResult, error) {

	// ── 1. Resolve the device ─────────────────────────────────────────────
	resolvedDevice, err := orchestrator.devices.RegisterAndTrust(context, user.ID, info, rememberDevice)
	if err != nil {
		return nil, err
	}

	duration := orchestrator.durations.Session
	if resolvedDevice.IsTrusted {
		duration = orchestrator.durations.TrustedSession
	}

	// ── 2. Session: activate the temp one or create fresh ─────────────────
	var activeSession *session.Session
	if tempSessionID == "" {
		activeSession, err = orchestrator.sessions.Create(context, session.CreateInput{
			UserID:      user.ID,
			Status:      session.StatusActive,
			ExpiresIn:   duration,
			IP:          ip,
			UserAgent:   userAgent,
			Fingerprint: resolvedDevice.Fingerprint,
			DeviceID:    resolvedDevice.ID,
		})
	} else {
		activeSession, err = orchestrator.sessions.Get(context, tempSessionID)
	}
	if err != nil {
		return nil, err
	}

	// ── 3. Issue the pair with a best-effort permission snapshot ──────────
	permissions, err := orchestrator.permissions.EffectivePermissions(context, user.ID)
	if err != nil {
		orchestrator.logger.Warn("permission_snapshot_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
		permissions = nil
	}

	pair, err := orchestrator.tokens.IssueTokens(context, token.IssueInput{
		UserID:      user.ID,
		Role:        user.Role,
		Permissions: permissions,
		SessionID:   activeSession.ID,
		DeviceID:    resolvedDevice.ID,
	})
	if err != nil {
		return nil, err
	}

	// ── 4. Activate and bind ──────────────────────────────────────────────
	activeSession, err = orchestrator.sessions.Activate(context, activeSession.ID, duration, pair.JTI, resolvedDevice.ID)
	if err != nil {
		return nil, err
	}

	// ── 5. Bookkeeping ────────────────────────────────────────────────────
	if err := orchestrator.users.UpdateLastLogin(context, user.ID, time.Now()); err != nil {
		orchestrator.logger.Warn("last_login_update_failed", slog.Any("error", err))
	}

	orchestrator.riskEngine.RecordLoginSuccess(risk.LoginAttempt{
		UserID:    user.ID,
		IP:        ip,
		UserAgent: userAgent,
		SessionID: activeSession.ID,
		DeviceID:  resolvedDevice.ID,
	})

	return &LoginResult{
		Tokens:  pair,
		Session: activeSession,
		User:    user,
	}, nil
}

// # Step-up Verification

/*
VerifyTwoFactorAndLogin completes a login parked in pending_2fa.

Description: The temp session must belong to the user, still be pending,
and not be past its short TTL. The code is checked as TOTP first with a
recovery-code fallback. A passed code does not bypass device policy: the
presented device is re-evaluated, and an unknown one diverts the temp
session to pending_device_verification instead of completing. On success
the temp session is activated in place and the token pair issued;
rememberDevice additionally trusts the device, extending the session
duration.

Parameters:
  - context: context.Context
  - userID: string
  - tempSessionID: string
  - code: string
  - rememberDevice: bool
  - info: device.Info
  - ip: string
  - userAgent: string

Returns:
  - *LoginResult: Completed login
  - error: UNAUTHORIZED on invalid temp session or code
*/
func (orchestrator *Orchestrator) VerifyTwoFactorAndLogin(context context.Context, userID, tempSessionID, code string, rememberDevice bool, info device.Info, ip, userAgent string) (*LoginResult, error) {

	user, err := orchestrator.validateTempSession(context, userID, tempSessionID, session.StatusPendingTwoFactor)
	if err != nil {
		return nil, err
	}

	if err := orchestrator.twoFactor.Verify(context, userID, code); err != nil {
		orchestrator.riskEngine.RecordLoginFailure(risk.LoginAttempt{
			UserID: userID, IP: ip, UserAgent: userAgent,
			Reason: "invalid_2fa_code", SessionID: tempSessionID,
		})
		return nil, err
	}

	// Re-run device policy on the info presented NOW: step B may come from
	// different hardware than the attempt that parked the session.
	securityResult, err := orchestrator.riskEngine.ProcessLoginSecurity(context, risk.LoginSecurityInput{
		UserID:    user.ID,
		Info:      info,
		IP:        ip,
		UserAgent: userAgent,
	})
	if err != nil {
		return nil, err
	}
	if securityResult.VerificationRequired {
		return orchestrator.divertToDeviceVerification(context, user, tempSessionID, securityResult)
	}

	return orchestrator.completeLogin(context, user, info, ip, userAgent, rememberDevice, tempSessionID)
}

// divertToDeviceVerification moves an existing temp session into
// pending_device_verification and kicks off SMS delivery.
func (orchestrator *Orchestrator) divertToDeviceVerification(context context.Context, user *User, tempSessionID string, securityResult *risk.LoginSecurityResult) (*LoginResult, error) {

	if _, err := orchestrator.sessions.UpdateStatus(context, tempSessionID, session.StatusPendingDeviceVerification, constants.PendingDeviceVerificationTTL); err != nil {
		return nil, err
	}

	if user.Phone != "" {
		if err := orchestrator.deviceCodes.SendCode(context, user.ID, user.Phone); err != nil {
			orchestrator.logger.Warn("device_verification_code_send_failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
	}

	return &LoginResult{
		RequiresDeviceVerification: true,
		TempSessionID:              tempSessionID,
		UserID:                     user.ID,
		VerificationInfo:           securityResult.VerificationInfo,
	}, nil
}

/*
VerifyDeviceAndLogin completes a login parked in pending_device_verification.

Description: The SMS code proves control of the account's phone number. The
verified device is registered as trusted. If the account also has a second
factor enabled, the temp session moves to pending_2fa instead of
completing.

Parameters:
  - context: context.Context
  - userID: string
  - tempSessionID: string
  - smsCode: string
  - info: device.Info
  - ip: string
  - userAgent: string

Returns:
  - *LoginResult: Completed login or a pending_2fa instruction
  - error: UNAUTHORIZED or RATE_LIMITED from code verification
*/
func (orchestrator *Orchestrator) VerifyDeviceAndLogin(context context.Context, userID, tempSessionID, smsCode string, info device.Info, ip, userAgent string) (*LoginResult, error) {

	user, err := orchestrator.validateTempSession(context, userID, tempSessionID, session.StatusPendingDeviceVerification)
	if err != nil {
		return nil, err
	}

	if user.Phone == "" {
		return nil, apperr.Conflict("Account has no phone number for device verification")
	}
	if err := orchestrator.deviceCodes.VerifyCode(context, user.Phone, smsCode); err != nil {
		return nil, err
	}

	orchestrator.events.Record(security.Event{
		Type:      security.EventDeviceVerified,
		UserID:    userID,
		IP:        ip,
		UserAgent: userAgent,
	})

	// Account also carries a second factor: hand over to the 2FA step
	twoFactorEnabled, err := orchestrator.twoFactor.Enabled(context, userID)
	if err != nil {
		return nil, err
	}
	if twoFactorEnabled {
		if _, err := orchestrator.sessions.UpdateStatus(context, tempSessionID, session.StatusPendingTwoFactor, constants.PendingTwoFactorTTL); err != nil {
			return nil, err
		}
		return &LoginResult{
			RequiresTwoFactor: true,
			TwoFactorMethod:   twofactor.MethodTOTP,
			TempSessionID:     tempSessionID,
			UserID:            userID,
		}, nil
	}

	// A device that passed SMS verification is trusted going forward
	return orchestrator.completeLogin(context, user, info, ip, userAgent, true, tempSessionID)
}

// validateTempSession checks ownership, status, and expiry of a temp
// session and returns its active account.
func (orchestrator *Orchestrator) validateTempSession(context context.Context, userID, tempSessionID, expectedStatus string) (*User, error) {

	tempSession, err := orchestrator.sessions.Get(context, tempSessionID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) || apperr.IsKind(err, "NOT_FOUND") {
			return nil, apperr.Unauthorized("Invalid login session")
		}
		return nil, err
	}

	if tempSession.UserID != userID || tempSession.Status != expectedStatus {
		return nil, apperr.Unauthorized("Invalid login session")
	}
	if !tempSession.ExpiresAt.After(time.Now()) {
		return nil, apperr.Unauthorized("Login session expired")
	}

	user, err := orchestrator.users.FindByID(context, userID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid login session")
	}
	if !user.IsActive() {
		return nil, apperr.Forbidden("Account is disabled")
	}

	return user, nil
}

// # Refresh Flow

/*
Refresh rotates a token pair.

Description: The old refresh jti is revoked BEFORE the new pair is issued,
so a racing second refresh of the same token fails Revoked instead of
minting a second pair. Session and device bindings carry over unchanged.

Parameters:
  - context: context.Context
  - refreshToken: string
  - ip: string
  - userAgent: string

Returns:
  - *LoginResult: The new pair with the refreshed session
  - error: UNAUTHORIZED on invalid/revoked token, FORBIDDEN on disabled account
*/
func (orchestrator *Orchestrator) Refresh(context context.Context, refreshToken, ip, userAgent string) (*LoginResult, error) {

	// ── 1. Verify the incoming token ──────────────────────────────────────
	claims, err := orchestrator.tokens.VerifyRefresh(context, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := orchestrator.users.FindByID(context, claims.UserID())
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	if !user.IsActive() {
		return nil, apperr.Forbidden("Account is disabled")
	}

	// ── 2. Revoke BEFORE issue: the racing loser must fail ────────────────
	if _, err := orchestrator.tokens.Revoke(context, refreshToken); err != nil {
		return nil, fmt.Errorf("refresh_revoke_failed: %w", err)
	}

	// ── 3. Issue the replacement pair with the same bindings ──────────────
	permissions, err := orchestrator.permissions.EffectivePermissions(context, user.ID)
	if err != nil {
		permissions = nil
	}

	pair, err := orchestrator.tokens.IssueTokens(context, token.IssueInput{
		UserID:      user.ID,
		Role:        user.Role,
		Permissions: permissions,
		SessionID:   claims.SessionID,
		DeviceID:    claims.DeviceID,
	})
	if err != nil {
		return nil, err
	}

	// ── 4. Touch the session ──────────────────────────────────────────────
	if claims.SessionID != "" {
		if err := orchestrator.sessions.UpdateActivity(context, claims.SessionID); err != nil {
			orchestrator.logger.Warn("session_activity_update_failed",
				slog.String("session_id", claims.SessionID),
				slog.Any("error", err),
			)
		}
	}

	orchestrator.events.Record(security.Event{
		Type:      security.EventTokenRefreshed,
		UserID:    user.ID,
		IP:        ip,
		UserAgent: userAgent,
		Details: map[string]any{
			"session_id": claims.SessionID,
		},
	})

	return &LoginResult{Tokens: pair, User: user}, nil
}

// # Logout Flow

// LogoutInput identifies what to terminate.
type LogoutInput struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	AllDevices   bool
}

/*
Logout revokes tokens and their sessions.

Description: With AllDevices, every tracked jti and every session of the
user dies. Otherwise only the presented tokens and the session bound to the
access token's sid are revoked. Partial failures are aggregated into the
returned error but never abort the remaining revocations.

Parameters:
  - context: context.Context
  - input: LogoutInput

Returns:
  - error: Aggregate of partial failures, nil when everything succeeded
*/
func (orchestrator *Orchestrator) Logout(context context.Context, input LogoutInput) error {

	var failures []error

	if input.AllDevices {
		if _, err := orchestrator.tokens.RevokeAll(context, input.UserID); err != nil {
			failures = append(failures, fmt.Errorf("logout_tokens_failed: %w", err))
		}
		if _, err := orchestrator.sessions.RevokeAll(context, input.UserID, "", "logout_all"); err != nil {
			failures = append(failures, fmt.Errorf("logout_sessions_failed: %w", err))
		}
	} else {
		sessionID := ""
		if input.AccessToken != "" {
			if claims, err := orchestrator.tokens.VerifyAccess(context, input.AccessToken); err == nil {
				sessionID = claims.SessionID
			}
			if _, err := orchestrator.tokens.Revoke(context, input.AccessToken); err != nil {
				failures = append(failures, fmt.Errorf("logout_access_revoke_failed: %w", err))
			}
		}
		if input.RefreshToken != "" {
			if _, err := orchestrator.tokens.Revoke(context, input.RefreshToken); err != nil {
				failures = append(failures, fmt.Errorf("logout_refresh_revoke_failed: %w", err))
			}
		}
		if sessionID != "" {
			if err := orchestrator.sessions.Revoke(context, sessionID, "logout"); err != nil {
				failures = append(failures, fmt.Errorf("logout_session_revoke_failed: %w", err))
			}
		}
	}

	orchestrator.events.Record(security.Event{
		Type:   security.EventLogout,
		UserID: input.UserID,
		Details: map[string]any{
			"all_devices": input.AllDevices,
		},
	})

	return errors.Join(failures...)
}

// # Registration

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

/*
Register validates, hashes, and persists a brand new user account.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *User: Created entity
  - error: CONFLICT when the identity exists, storage failures
*/
func (orchestrator *Orchestrator) Register(ctx context.Context, input RegisterInput) (*User, error) {

	// Prevent storing plain-text passwords
	passwordHash, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("register_hash_failed: %w", err)
	}

	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: passwordHash,
		Status:       StatusActive,
		Role:         "user",
	}

	// The unique indexes arbitrate races; a lost race is a clean Conflict
	if err := orchestrator.users.Create(ctx, user); err != nil {
		return nil, err
	}

	orchestrator.events.Record(security.Event{
		Type:   security.EventUserRegistered,
		UserID: user.ID,
	})

	// Welcome email is fire-and-forget
	if orchestrator.runner != nil {
		email := user.Email
		orchestrator.runner.Submit("welcome_email", func(taskContext context.Context) {
			if err := orchestrator.email.SendEmail(taskContext, email,
				"Welcome to Suoke Life",
				"Your account is ready. If this was not you, contact support immediately.",
			); err != nil {
				orchestrator.logger.Warn("welcome_email_failed", slog.Any("error", err))
			}
		})
	}

	return user, nil
}

// # Password Lifecycle

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Always reports success to the caller; whether the email maps
to an account is never revealed. When it does, a single-use 30-minute reset
token is issued and mailed.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - error: Only internal failures; an unknown email is NOT an error
*/
func (orchestrator *Orchestrator) RequestPasswordReset(context context.Context, email string) error {

	user, err := orchestrator.users.FindByEmail(context, email)
	if err != nil {
		// Anti-enumeration: unknown email reports success
		return nil
	}

	resetToken, err := orchestrator.tokens.IssuePasswordReset(context, user.ID, user.Email)
	if err != nil {
		return fmt.Errorf("password_reset_issue_failed: %w", err)
	}

	orchestrator.events.Record(security.Event{
		Type:   security.EventPasswordResetRequested,
		UserID: user.ID,
	})

	if err := orchestrator.email.SendEmail(context, user.Email,
		"Reset your Suoke Life password",
		"Use this link within 30 minutes: https://suoke.life/reset-password?token="+resetToken,
	); err != nil {
		orchestrator.logger.Warn("password_reset_email_failed",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	return nil
}

/*
ConfirmPasswordReset completes the forgot-password flow.

Description: Verifies the single-use reset token, rehashes the password,
consumes the token, and revokes every outstanding token and session of the
account.

Parameters:
  - context: context.Context
  - resetToken: string
  - newPassword: string

Returns:
  - error: UNAUTHORIZED on an invalid or consumed token
*/
func (orchestrator *Orchestrator) ConfirmPasswordReset(context context.Context, resetToken, newPassword string) error {

	claims, err := orchestrator.tokens.VerifyPasswordResetToken(context, resetToken)
	if err != nil {
		return err
	}
	userID := claims.UserID()

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("password_reset_hash_failed: %w", err)
	}

	if err := orchestrator.users.UpdatePassword(context, userID, passwordHash); err != nil {
		return fmt.Errorf("password_reset_update_failed: %w", err)
	}

	if err := orchestrator.tokens.ConsumePasswordReset(context, userID, claims.JTI()); err != nil {
		orchestrator.logger.Warn("password_reset_consume_failed", slog.Any("error", err))
	}

	// Security cleanup: every other credential dies with the old password
	if _, err := orchestrator.tokens.RevokeAll(context, userID); err != nil {
		orchestrator.logger.Warn("password_reset_revoke_all_failed", slog.Any("error", err))
	}
	if _, err := orchestrator.sessions.RevokeAll(context, userID, "", "password_reset"); err != nil {
		orchestrator.logger.Warn("password_reset_sessions_failed", slog.Any("error", err))
	}

	orchestrator.events.Record(security.Event{
		Type:   security.EventPasswordResetCompleted,
		UserID: userID,
	})

	return nil
}

/*
ChangePassword rotates the password of an authenticated user.

Description: Requires the current password. All sessions except the calling
one are revoked, forcing re-login on other devices.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string
  - currentSessionID: string — spared from the bulk revocation, may be empty

Returns:
  - error: UNAUTHORIZED when the current password is wrong
*/
func (orchestrator *Orchestrator) ChangePassword(context context.Context, userID, currentPassword, newPassword, currentSessionID string) error {

	user, err := orchestrator.users.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !sec.CheckPasswordHash(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	passwordHash, err := sec.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("change_password_hash_failed: %w", err)
	}

	if err := orchestrator.users.UpdatePassword(context, userID, passwordHash); err != nil {
		return fmt.Errorf("change_password_update_failed: %w", err)
	}

	if _, err := orchestrator.sessions.RevokeAll(context, userID, currentSessionID, "password_changed"); err != nil {
		orchestrator.logger.Warn("change_password_sessions_failed", slog.Any("error", err))
	}

	orchestrator.events.Record(security.Event{
		Type:   security.EventPasswordChanged,
		UserID: userID,
	})

	return nil
}

// VerifyPassword re-checks an authenticated user's password. Management
// endpoints that make destructive security changes (disabling the second
// factor) require it as proof of identity.
func (orchestrator *Orchestrator) VerifyPassword(context context.Context, userID, password string) error {

	user, err := orchestrator.users.FindByID(context, userID)
	if err != nil {
		return apperr.Unauthorized("Invalid password")
	}

	if !sec.CheckPasswordHash(password, user.PasswordHash) {
		return apperr.Unauthorized("Invalid password")
	}

	return nil
}
