// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

// Package sec provides cryptographic primitives and token codecs.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT signing, TOTP,
// secure randomness) from the domain logic. It acts as an Infrastructure
// service injected into the Application layer via narrow interfaces.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// # Token Types

const (
	// TokenTypeAccess marks a bearer token for protected resources.
	TokenTypeAccess = "access"

	// TokenTypeRefresh marks a token exchangeable for a new token pair.
	TokenTypeRefresh = "refresh"

	// TokenTypeReset marks a single-use password-reset token.
	TokenTypeReset = "reset"
)

// # Verification Errors

var (
	// ErrTokenExpired is returned when the exp claim is in the past.
	ErrTokenExpired = errors.New("sec: token expired")

	// ErrTokenInvalid covers signature mismatch, wrong algorithm, malformed
	// payloads, and issuer/audience mismatch.
	ErrTokenInvalid = errors.New("sec: token invalid")

	// ErrTokenWrongType is returned when a token of one type (e.g. refresh)
	// is presented where another type is required.
	ErrTokenWrongType = errors.New("sec: token type mismatch")
)

// # Claims

// TokenClaims is the payload embedded inside every JWT the service mints.
//
// # Why custom claims?
//
// By embedding the role and an optional permission snapshot directly inside
// the access JWT, middleware can reconstruct the caller context WITHOUT
// querying the database on every request. The permissions claim is a cache
// snapshot only — authorization decisions must re-resolve through the
// permission engine.
type TokenClaims struct {
	jwt.RegisteredClaims

	// Role is the user's primary role, present on access tokens.
	Role string `json:"role,omitempty"`

	// Permissions is an optional snapshot of the resolved permission set.
	Permissions []string `json:"permissions,omitempty"`

	// TokenType discriminates access/refresh/reset tokens.
	TokenType string `json:"type"`

	// SessionID binds the token to a session lifecycle.
	SessionID string `json:"sid,omitempty"`

	// DeviceID binds the token to a registered device.
	DeviceID string `json:"did,omitempty"`

	// Email is carried only on reset tokens for delivery correlation.
	Email string `json:"email,omitempty"`
}

// UserID returns the subject claim (the user id).
func (c *TokenClaims) UserID() string { return c.Subject }

// JTI returns the unique token identifier used for revocation.
func (c *TokenClaims) JTI() string { return c.ID }

// # Signer

// Signer handles generation and verification of JWT tokens using HS256.
//
// The algorithm allowlist is exactly {HS256}: tokens signed with any other
// method, including "none", fail verification.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
}

// NewSigner creates a new HMAC-SHA256 [Signer].
func NewSigner(secret, issuer, audience string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("sec: JWT secret must not be empty")
	}
	return &Signer{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}, nil
}

// Sign produces a signed JWT string for the given claims, filling in the
// registered iss/aud/iat/exp fields.
func (signer *Signer) Sign(claims *TokenClaims, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()

	claims.Issuer = signer.issuer
	claims.Audience = jwt.ClaimStrings{signer.audience}
	claims.IssuedAt = jwt.NewNumericDate(currentTime)
	claims.ExpiresAt = jwt.NewNumericDate(currentTime.Add(timeToLive))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature, algorithm, issuer, audience, and expiry of a
// JWT string and asserts the embedded token type.
//
// # Returns
//   - *TokenClaims: The verified payload.
//   - error: [ErrTokenExpired], [ErrTokenWrongType], or [ErrTokenInvalid].
func (signer *Signer) Verify(tokenString, expectedType string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&TokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			return signer.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(signer.issuer),
		jwt.WithAudience(signer.audience),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	// A jti is mandatory: without it the token can never be revoked.
	if claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	if claims.TokenType != expectedType {
		return nil, ErrTokenWrongType
	}

	return claims, nil
}

// Decode parses a JWT without verifying its signature or expiry.
//
// # Safety
//
// Used only to extract the jti/user of an already-held token during
// revocation. Never use the result to grant access.
func (signer *Signer) Decode(tokenString string) (*TokenClaims, error) {
	parser := jwt.NewParser()
	claims := &TokenClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	return claims, nil
}
