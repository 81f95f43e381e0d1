// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package risk decides, per login, whether extra verification is required and
classifies completed logins as suspicious.

The heuristics are deliberately coarse. They compare the incoming login
against the user's recent session history: unknown device, improbable
country change, sudden device-type change. False positives cost the user a
verification step or a notification, never access.
*/
package risk

import (
	"context"
	"log/slog"
	"time"

	"github.com/suoke-life/auth-service/internal/auth/device"
	"github.com/suoke-life/auth-service/internal/auth/session"
	"github.com/suoke-life/auth-service/internal/platform/geo"
	"github.com/suoke-life/auth-service/internal/security"
)

// Heuristic windows for the suspicion classifier.
const (
	// recentSessionSample is how many recent sessions are examined.
	recentSessionSample = 5

	// countryChangeWindow flags a login from a different country than the
	// previous session when less time than this has passed.
	countryChangeWindow = 24 * time.Hour

	// deviceTypeChangeWindow flags a login from a never-seen device type
	// when less time than this has passed since the last session.
	deviceTypeChangeWindow = 12 * time.Hour
)

// SessionReader is the slice of session persistence the engine needs.
type SessionReader interface {
	ListRecentActive(ctx context.Context, userID string, limit int) ([]session.Session, error)
}

// DeviceResolver is the slice of the device registry the engine needs.
type DeviceResolver interface {
	Identify(ctx context.Context, userID string, info device.Info) (*device.Device, error)
	List(ctx context.Context, userID string) ([]device.Device, error)
}

// Engine implements the per-login risk policy.
type Engine struct {
	sessions SessionReader
	devices  DeviceResolver
	geo      geo.Lookup
	events   security.Recorder
	logger   *slog.Logger
}

// NewEngine creates the risk engine.
func NewEngine(sessions SessionReader, devices DeviceResolver, geoLookup geo.Lookup, events security.Recorder, logger *slog.Logger) *Engine {
	return &Engine{
		sessions: sessions,
		devices:  devices,
		geo:      geoLookup,
		events:   events,
		logger:   logger,
	}
}

// # Login Security

// LoginSecurityInput describes the incoming login attempt.
type LoginSecurityInput struct {
	UserID    string
	Info      device.Info
	IP        string
	UserAgent string
}

// VerificationInfo tells the client how to complete device verification.
type VerificationInfo struct {
	Method    string `json:"method"`
	ExpiresIn int64  `json:"expires_in"`
}

// LoginSecurityResult is the engine's verdict for one login attempt.
type LoginSecurityResult struct {
	// VerificationRequired is true when the device must be verified before
	// the login can complete.
	VerificationRequired bool

	// VerificationInfo is set when VerificationRequired is true.
	VerificationInfo *VerificationInfo

	// DeviceFingerprint is the computed fingerprint of the incoming device.
	DeviceFingerprint string

	// Device is the resolved known device, nil when unseen.
	Device *device.Device
}

/*
ProcessLoginSecurity evaluates the incoming device against policy.

Description: The device info is fingerprinted and matched against the user's
registered devices. A known device passes. An unknown device requires
verification — unless the user has no registered devices at all, which is
the first-ever login and must not dead-end.

Parameters:
  - context: context.Context
  - input: LoginSecurityInput

Returns:
  - *LoginSecurityResult: The verdict
  - error: Lookup failures
*/
func (engine *Engine) ProcessLoginSecurity(context context.Context, input LoginSecurityInput) (*LoginSecurityResult, error) {

	info := input.Info
	if info.UserAgent == "" {
		info.UserAgent = input.UserAgent
	}
	fingerprint := device.Fingerprint(info)

	// ── 1. Known device passes ────────────────────────────────────────────
	known, err := engine.devices.Identify(context, input.UserID, info)
	if err != nil {
		return nil, err
	}
	if known != nil {
		return &LoginSecurityResult{
			DeviceFingerprint: fingerprint,
			Device:            known,
		}, nil
	}

	// ── 2. First-ever device skips verification ───────────────────────────
	registered, err := engine.devices.List(context, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(registered) == 0 {
		return &LoginSecurityResult{DeviceFingerprint: fingerprint}, nil
	}

	// ── 3. Unknown device on an established account needs verification ────
	return &LoginSecurityResult{
		VerificationRequired: true,
		VerificationInfo: &VerificationInfo{
			Method:    "sms",
			ExpiresIn: int64((15 * time.Minute).Seconds()),
		},
		DeviceFingerprint: fingerprint,
	}, nil
}

// # Suspicion Heuristic

/*
DetectSuspicious classifies a completed login attempt.

Description: Examines up to the five most recent bearer-valid sessions.
The first-ever session is never suspicious. A login is flagged when:

  - the IP is not in the known set AND the previous session came from a
    different country less than 24h ago, or
  - the device type differs from every prior session's and the previous
    session is less than 12h old.

Parameters:
  - context: context.Context
  - userID: string
  - ip: string
  - userAgent: string

Returns:
  - bool: True when the login should be flagged
  - error: Session lookup failures (geo failures degrade to not-suspicious)
*/
func (engine *Engine) DetectSuspicious(context context.Context, userID, ip, userAgent string) (bool, error) {

	recent, err := engine.sessions.ListRecentActive(context, userID, recentSessionSample)
	if err != nil {
		return false, err
	}

	// First session ever: nothing to compare against
	if len(recent) == 0 {
		return false, nil
	}

	last := recent[0]
	sinceLast := time.Since(last.CreatedAt)

	// ── 1. Known IP passes outright ───────────────────────────────────────
	knownIP := false
	for _, prior := range recent {
		if prior.IP == ip {
			knownIP = true
			break
		}
	}

	// ── 2. Rapid country change ───────────────────────────────────────────
	if !knownIP && sinceLast < countryChangeWindow {
		currentCountry := engine.countryOf(context, ip)
		lastCountry := ""
		if last.Location != nil {
			lastCountry = last.Location.Country
		}
		if currentCountry != "" && lastCountry != "" && currentCountry != lastCountry {
			return true, nil
		}
	}

	// ── 3. Rapid device-type change ───────────────────────────────────────
	if sinceLast < deviceTypeChangeWindow {
		currentType := device.Normalize(device.Info{UserAgent: userAgent}).DeviceType
		seen := false
		for _, prior := range recent {
			priorType := device.Normalize(device.Info{UserAgent: prior.UserAgent}).DeviceType
			if priorType == currentType {
				seen = true
				break
			}
		}
		if !seen && currentType != "unknown" {
			return true, nil
		}
	}

	return false, nil
}

// # Login Audit

// LoginAttempt carries the context of a login outcome.
type LoginAttempt struct {
	UserID    string
	IP        string
	UserAgent string
	Reason    string
	DeviceID  string
	SessionID string
}

// RecordLoginSuccess writes a LOGIN_SUCCESS event.
func (engine *Engine) RecordLoginSuccess(attempt LoginAttempt) {
	engine.events.Record(security.Event{
		Type:      security.EventLoginSuccess,
		UserID:    attempt.UserID,
		IP:        attempt.IP,
		UserAgent: attempt.UserAgent,
		Details:   attempt.details(),
	})
}

// RecordLoginFailure writes a LOGIN_FAILURE event. Failures on unknown
// identifiers are recorded without a user id so enumeration attacks remain
// visible in the log.
func (engine *Engine) RecordLoginFailure(attempt LoginAttempt) {
	engine.events.Record(security.Event{
		Type:      security.EventLoginFailure,
		UserID:    attempt.UserID,
		IP:        attempt.IP,
		UserAgent: attempt.UserAgent,
		Details:   attempt.details(),
	})
}

func (attempt LoginAttempt) details() map[string]any {
	details := map[string]any{}
	if attempt.Reason != "" {
		details["reason"] = attempt.Reason
	}
	if attempt.DeviceID != "" {
		details["device_id"] = attempt.DeviceID
	}
	if attempt.SessionID != "" {
		details["session_id"] = attempt.SessionID
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// countryOf resolves the IP's country best-effort.
func (engine *Engine) countryOf(context context.Context, ip string) string {
	if engine.geo == nil || ip == "" {
		return ""
	}
	location, err := engine.geo.Locate(context, ip)
	if err != nil {
		engine.logger.Warn("risk_geo_lookup_failed", slog.Any("error", err))
		return ""
	}
	return location.Country
}
