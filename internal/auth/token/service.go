// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/sec"
	"github.com/suoke-life/auth-service/internal/security"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// ErrRevoked marks a structurally valid token whose jti is blacklisted.
// It is carried as the cause of the Unauthorized error so the refresh flow
// can distinguish a lost revocation race from a forged token.
var ErrRevoked = errors.New("token_revoked")

// Authority mints, verifies, and revokes the service's bearer tokens.
type Authority struct {
	signer *sec.Signer
	store  Store
	events security.Recorder
	logger *slog.Logger

	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewAuthority creates the token authority.
//
// Zero TTLs fall back to the constants defaults (24h access, 7d refresh).
func NewAuthority(signer *sec.Signer, store Store, events security.Recorder, logger *slog.Logger, accessTTL, refreshTTL time.Duration) *Authority {
	if accessTTL <= 0 {
		accessTTL = constants.DefaultAccessTokenTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = constants.DefaultRefreshTokenTTL
	}

	return &Authority{
		signer:     signer,
		store:      store,
		events:     events,
		logger:     logger,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// # Issuance

/*
IssueTokens mints an access + refresh pair for a user.

Description: Both tokens get fresh UUIDv4 jtis. A metadata record keyed
token:{jti} is written for each token with TTL = its own lifetime, and both
jtis join the user_tokens:{user_id} set so RevokeAll can find them. Emits
TOKEN_ISSUED.

Parameters:
  - context: context.Context
  - input: IssueInput

Returns:
  - *Pair: The signed tokens and their lifetimes
  - error: Signing or cache-write failures
*/
func (authority *Authority) IssueTokens(context context.Context, input IssueInput) (*Pair, error) {

	// ── 1. Resolve lifetimes ──────────────────────────────────────────────
	accessTTL := input.AccessTTL
	if accessTTL <= 0 {
		accessTTL = authority.accessTTL
	}
	refreshTTL := input.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = authority.refreshTTL
	}

	// ── 2. Sign the access token ──────────────────────────────────────────
	accessJTI := uuid.NewV4()
	accessClaims := &sec.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: input.UserID,
			ID:      accessJTI,
		},
		Role:        input.Role,
		Permissions: input.Permissions,
		TokenType:   sec.TokenTypeAccess,
		SessionID:   input.SessionID,
		DeviceID:    input.DeviceID,
	}

	accessToken, err := authority.signer.Sign(accessClaims, accessTTL)
	if err != nil {
		return nil, fmt.Errorf("access_token_sign_failed: %w", err)
	}

	// ── 3. Sign the refresh token ─────────────────────────────────────────
	refreshJTI := uuid.NewV4()
	refreshClaims := &sec.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: input.UserID,
			ID:      refreshJTI,
		},
		TokenType: sec.TokenTypeRefresh,
		SessionID: input.SessionID,
		DeviceID:  input.DeviceID,
	}

	refreshToken, err := authority.signer.Sign(refreshClaims, refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("refresh_token_sign_failed: %w", err)
	}

	// ── 4. Track metadata and membership ──────────────────────────────────
	now := time.Now()
	accessMetadata := Metadata{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		DeviceID:  input.DeviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(accessTTL),
	}

	if err := authority.store.SaveMetadata(context, accessJTI, accessMetadata, accessTTL); err != nil {
		return nil, err
	}

	// The refresh jti needs its own record: a bare-jti revocation (RevokeAll)
	// must know the real remaining lifetime, or the blacklist entry would
	// outlive only the floor while the token itself stays valid for days.
	refreshMetadata := Metadata{
		UserID:    input.UserID,
		SessionID: input.SessionID,
		DeviceID:  input.DeviceID,
		CreatedAt: now,
		ExpiresAt: now.Add(refreshTTL),
	}

	if err := authority.store.SaveMetadata(context, refreshJTI, refreshMetadata, refreshTTL); err != nil {
		return nil, err
	}

	if err := authority.store.AddUserTokens(context, input.UserID, []string{accessJTI, refreshJTI}, refreshTTL); err != nil {
		return nil, err
	}

	// ── 5. Audit ──────────────────────────────────────────────────────────
	authority.events.Record(security.Event{
		Type:   security.EventTokenIssued,
		UserID: input.UserID,
		Details: map[string]any{
			"jti":        accessJTI,
			"session_id": input.SessionID,
		},
	})

	return &Pair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int64(accessTTL.Seconds()),
		RefreshExpiresIn: int64(refreshTTL.Seconds()),
		JTI:              accessJTI,
		RefreshJTI:       refreshJTI,
	}, nil
}

// # Verification

/*
VerifyAccess validates an access token end to end.

Description: Checks signature, algorithm (HS256 only), issuer, audience,
expiry, token type, jti presence, and the revocation blacklist. Every
failure surfaces as a uniform Unauthorized; the internal cause is preserved
for logging.

Parameters:
  - context: context.Context
  - tokenString: string

Returns:
  - *sec.TokenClaims: The verified claims
  - error: Unauthorized on any verification failure
*/
func (authority *Authority) VerifyAccess(context context.Context, tokenString string) (*sec.TokenClaims, error) {
	return authority.verify(context, tokenString, sec.TokenTypeAccess)
}

// VerifyRefresh validates a refresh token the same way [VerifyAccess]
// validates an access token.
func (authority *Authority) VerifyRefresh(context context.Context, tokenString string) (*sec.TokenClaims, error) {
	return authority.verify(context, tokenString, sec.TokenTypeRefresh)
}

// verify is the shared verification path for access and refresh tokens.
func (authority *Authority) verify(context context.Context, tokenString, expectedType string) (*sec.TokenClaims, error) {

	claims, err := authority.signer.Verify(tokenString, expectedType)
	if err != nil {
		authority.logger.Debug("token_verification_failed",
			slog.String("expected_type", expectedType),
			slog.Any("error", err),
		)
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(err)
	}

	revoked, err := authority.store.IsBlacklisted(context, claims.JTI())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if revoked {
		authority.logger.Debug("token_revoked",
			slog.String("jti", claims.JTI()),
			slog.String("user_id", claims.UserID()),
		)
		return nil, apperr.Unauthorized("Invalid or expired token").WithCause(ErrRevoked)
	}

	return claims, nil
}

// # Revocation

/*
Revoke invalidates a single token.

Description: Accepts either a full JWT string or a bare jti. The blacklist
TTL is the token's remaining lifetime plus a 60s clock-skew slack, floored
at one hour. Revoking an unknown or already-expired token is a no-op
success, which makes retries idempotent.

Parameters:
  - context: context.Context
  - tokenOrJTI: string

Returns:
  - bool: Always true on success (including no-ops)
  - error: Cache-write failures
*/
func (authority *Authority) Revoke(context context.Context, tokenOrJTI string) (bool, error) {

	if tokenOrJTI == "" {
		return true, nil
	}

	// ── 1. Resolve the jti and what we know about its lifetime ────────────
	jti := tokenOrJTI
	userID := ""
	var expiresAt time.Time

	if strings.Contains(tokenOrJTI, ".") {
		// Full JWT: decode without verification to extract jti/sub/exp.
		claims, err := authority.signer.Decode(tokenOrJTI)
		if err != nil {
			// Garbage input revokes nothing but is still a success
			return true, nil
		}
		jti = claims.JTI()
		userID = claims.UserID()
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}

	if jti == "" {
		return true, nil
	}

	// Metadata, when present, is the authoritative lifetime source
	if metadata, err := authority.store.GetMetadata(context, jti); err == nil && metadata != nil {
		expiresAt = metadata.ExpiresAt
		if userID == "" {
			userID = metadata.UserID
		}
	}

	// ── 2. Blacklist with remaining lifetime + slack, floored ─────────────
	blacklistTTL := constants.BlacklistFloor
	if !expiresAt.IsZero() {
		remaining := time.Until(expiresAt) + constants.BlacklistSlack
		if remaining > blacklistTTL {
			blacklistTTL = remaining
		}
	}

	if err := authority.store.Blacklist(context, jti, blacklistTTL); err != nil {
		return false, err
	}

	// ── 3. Drop tracking state ────────────────────────────────────────────
	if err := authority.store.DeleteMetadata(context, jti); err != nil {
		authority.logger.Warn("token_metadata_cleanup_failed", slog.Any("error", err))
	}
	if userID != "" {
		if err := authority.store.RemoveUserToken(context, userID, jti); err != nil {
			authority.logger.Warn("user_tokens_cleanup_failed", slog.Any("error", err))
		}
	}

	return true, nil
}

/*
RevokeAll revokes every tracked token of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int: Number of jtis revoked
  - error: Listing or blacklist failures
*/
func (authority *Authority) RevokeAll(context context.Context, userID string) (int, error) {

	jtis, err := authority.store.ListUserTokens(context, userID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, jti := range jtis {
		if _, err := authority.Revoke(context, jti); err != nil {
			authority.logger.Warn("revoke_all_entry_failed",
				slog.String("jti", jti),
				slog.Any("error", err),
			)
			continue
		}
		// Revoke resolved the jti without user context; unlink explicitly
		if err := authority.store.RemoveUserToken(context, userID, jti); err != nil {
			authority.logger.Warn("user_tokens_cleanup_failed", slog.Any("error", err))
		}
		revoked++
	}

	return revoked, nil
}

// # Password Reset

/*
IssuePasswordReset mints a single-use 30-minute reset token.

Description: The issued jti is stored at password_reset:{user_id}; a later
verification requires the presented jti to match the stored one, which
invalidates older reset emails the moment a newer one is issued.

Parameters:
  - context: context.Context
  - userID: string
  - email: string

Returns:
  - string: The signed reset JWT
  - error: Signing or cache failures
*/
func (authority *Authority) IssuePasswordReset(context context.Context, userID, email string) (string, error) {

	jti := uuid.NewV4()
	claims := &sec.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID,
			ID:      jti,
		},
		TokenType: sec.TokenTypeReset,
		Email:     email,
	}

	resetToken, err := authority.signer.Sign(claims, constants.PasswordResetTokenTTL)
	if err != nil {
		return "", fmt.Errorf("reset_token_sign_failed: %w", err)
	}

	if err := authority.store.SetPasswordResetJTI(context, userID, jti, constants.PasswordResetTokenTTL); err != nil {
		return "", err
	}

	return resetToken, nil
}

/*
VerifyPasswordResetToken validates a reset token.

Description: On top of the standard JWT checks, the embedded jti must match
the jti currently stored for the user. This prevents replay of a superseded
reset token.

Parameters:
  - context: context.Context
  - tokenString: string

Returns:
  - *sec.TokenClaims: The verified claims (Subject = user id)
  - error: Unauthorized on any failure
*/
func (authority *Authority) VerifyPasswordResetToken(context context.Context, tokenString string) (*sec.TokenClaims, error) {

	claims, err := authority.verify(context, tokenString, sec.TokenTypeReset)
	if err != nil {
		return nil, err
	}

	storedJTI, err := authority.store.GetPasswordResetJTI(context, claims.UserID())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if storedJTI == "" || storedJTI != claims.JTI() {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	return claims, nil
}

/*
ConsumePasswordReset burns a verified reset token after use.

Parameters:
  - context: context.Context
  - userID: string
  - jti: string

Returns:
  - error: Cache failures
*/
func (authority *Authority) ConsumePasswordReset(context context.Context, userID, jti string) error {

	if err := authority.store.DeletePasswordResetJTI(context, userID); err != nil {
		return err
	}

	if err := authority.store.Blacklist(context, jti, constants.PasswordResetTokenTTL+constants.BlacklistSlack); err != nil {
		return err
	}

	return nil
}
