// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package constants provides centralized, immutable values for the auth service.

It defines default timeouts, token lifetimes, rate limits, and the Redis key
taxonomy shared between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Token Lifetimes: Access/Refresh/Reset TTLs and clock-skew slack.
  - Redis Prefixes: The stable, enumerated key-value cache layout.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "suoke-auth-service"
	AppVersion = "1.4.0"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	// bcrypt verification alone can take 10-100ms, so this stays generous.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Token Lifetimes

const (
	// DefaultAccessTokenTTL is the lifetime of an access JWT.
	DefaultAccessTokenTTL = 24 * time.Hour

	// DefaultRefreshTokenTTL is the lifetime of a refresh JWT.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	// PasswordResetTokenTTL is the lifetime of a single-use reset JWT.
	PasswordResetTokenTTL = 30 * time.Minute

	// BlacklistSlack is added to the remaining token lifetime when a jti is
	// blacklisted, to tolerate clock skew between nodes.
	BlacklistSlack = 60 * time.Second

	// BlacklistFloor is the minimum TTL of a blacklist entry. Even a token that
	// looks expired locally stays blacklisted this long.
	BlacklistFloor = time.Hour
)

// # Session Lifetimes

const (
	// DefaultSessionDuration is the lifetime of a standard active session.
	DefaultSessionDuration = 24 * time.Hour

	// TrustedDeviceSessionDuration is the extended lifetime granted when the
	// user logs in from a trusted device (or checks "remember this device").
	TrustedDeviceSessionDuration = 30 * 24 * time.Hour

	// PendingTwoFactorTTL bounds how long a login may sit in pending_2fa.
	PendingTwoFactorTTL = 5 * time.Minute

	// PendingDeviceVerificationTTL bounds the pending_device_verification state.
	PendingDeviceVerificationTTL = 15 * time.Minute

	// DefaultSessionCacheTTL is the Redis TTL of a cached session snapshot.
	DefaultSessionCacheTTL = time.Hour

	// SessionCleanupInterval is how often expired sessions are bulk-marked.
	SessionCleanupInterval = 10 * time.Minute
)

// # Two-Factor & Codes

const (
	// TwoFactorSetupTTL bounds how long a provisioned-but-unactivated TOTP
	// secret survives in Redis.
	TwoFactorSetupTTL = 10 * time.Minute

	// RecoveryCodeCount is the number of recovery codes generated per batch.
	RecoveryCodeCount = 10

	// SMSCodeTTL is the lifetime of an SMS verification code.
	SMSCodeTTL = 5 * time.Minute

	// SMSResendThrottle is the minimum interval between two code sends.
	SMSResendThrottle = 60 * time.Second

	// SMSMaxAttempts is the number of wrong guesses before the code is evicted.
	SMSMaxAttempts = 5
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Security Log Retention

const (
	// DefaultSecurityLogRetention is how long event payloads survive in Redis.
	DefaultSecurityLogRetention = 30 * 24 * time.Hour

	// SecurityLogUserIndexSize caps the per-user event index to the N most recent.
	SecurityLogUserIndexSize = 100
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
)

// # Redis Prefixes (Cache Taxonomy)
//
// The key layout is stable and enumerated; every key the service ever writes
// to Redis starts with one of these prefixes.

const (
	// RedisPrefixToken keys hold token metadata hashes: token:{jti}.
	RedisPrefixToken = "token:"

	// RedisPrefixBlacklist keys mark revoked jtis: blacklist:{jti}.
	RedisPrefixBlacklist = "blacklist:"

	// RedisPrefixUserTokens keys hold the set of live jtis: user_tokens:{user_id}.
	RedisPrefixUserTokens = "user_tokens:"

	// RedisPrefixPasswordReset keys hold the current reset jti: password_reset:{user_id}.
	RedisPrefixPasswordReset = "password_reset:"

	// RedisPrefixSession keys hold session snapshots: session:{id}.
	RedisPrefixSession = "session:"

	// RedisPrefixTwoFactorSetup keys hold pending TOTP setups: 2fa_setup:{user_id}:{setup_id}.
	RedisPrefixTwoFactorSetup = "2fa_setup:"

	// RedisPrefixSMSCode keys hold SMS verification codes: sms:code:{phone}.
	RedisPrefixSMSCode = "sms:code:"

	// RedisPrefixSMSAttempts keys count wrong guesses: sms:attempts:{phone}.
	RedisPrefixSMSAttempts = "sms:attempts:"

	// RedisPrefixSMSThrottle keys flag recent sends: sms:throttle:{phone}.
	RedisPrefixSMSThrottle = "sms:throttle:"

	// RedisPrefixAccess keys cache access decisions: access:{user}:{type}:{id}:{action}.
	RedisPrefixAccess = "access:"

	// RedisPrefixUserPermissions keys cache resolved sets: user_permissions:{user_id}.
	RedisPrefixUserPermissions = "user_permissions:"

	// RedisPrefixRolePermissions keys cache role unions: role_permissions:{sorted,roles}.
	RedisPrefixRolePermissions = "role_permissions:"

	// RedisPrefixSecurityLog keys hold event payloads: security_log:{type}:{id}.
	RedisPrefixSecurityLog = "security_log:"

	// RedisPrefixSecurityLogUser keys hold per-user indexes: security_log:user:{user_id}:events.
	RedisPrefixSecurityLogUser = "security_log:user:"
)

// # Database Schemas

const (
	SchemaAuth   = "auth"
	SchemaAccess = "access"
)
