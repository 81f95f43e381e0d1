// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/constants"
	"github.com/suoke-life/auth-service/internal/platform/dberr"
	"github.com/suoke-life/auth-service/internal/platform/geo"
	"github.com/suoke-life/auth-service/internal/platform/notify"
	"github.com/suoke-life/auth-service/internal/platform/task"
	"github.com/suoke-life/auth-service/internal/security"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// SuspicionDetector classifies a login as suspicious. Implemented by the
// risk engine; declared here so this package carries no dependency on it.
type SuspicionDetector interface {
	DetectSuspicious(ctx context.Context, userID, ip, userAgent string) (bool, error)
}

// Manager owns the session lifecycle.
type Manager struct {
	store    Store
	cache    Cache
	geo      geo.Lookup
	detector SuspicionDetector
	events   security.Recorder
	notifier notify.NotificationDispatch
	runner   *task.Runner
	logger   *slog.Logger

	cacheTTL        time.Duration
	defaultDuration time.Duration
}

// NewManager creates the session manager. detector may be nil, in which case
// no suspicion classification happens at create time.
func NewManager(
	store Store,
	cache Cache,
	geoLookup geo.Lookup,
	detector SuspicionDetector,
	events security.Recorder,
	notifier notify.NotificationDispatch,
	runner *task.Runner,
	logger *slog.Logger,
	cacheTTL time.Duration,
	defaultDuration time.Duration,
) *Manager {
	if cacheTTL <= 0 {
		cacheTTL = constants.DefaultSessionCacheTTL
	}
	if defaultDuration <= 0 {
		defaultDuration = constants.DefaultSessionDuration
	}

	return &Manager{
		store:           store,
		cache:           cache,
		geo:             geoLookup,
		detector:        detector,
		events:          events,
		notifier:        notifier,
		runner:          runner,
		logger:          logger,
		cacheTTL:        cacheTTL,
		defaultDuration: defaultDuration,
	}
}

// CreateInput configures a new session.
type CreateInput struct {
	// UserID is the owner. Required.
	UserID string
	// Status defaults to active. Pending statuses create a temp session.
	Status string
	// ExpiresIn defaults to the configured session duration.
	ExpiresIn time.Duration
	// IP and UserAgent are the observed client attributes.
	IP        string
	UserAgent string
	// Fingerprint is the device fingerprint computed by the risk flow.
	Fingerprint string
	// DeviceID links an already-registered device. Optional for temp sessions.
	DeviceID string
	// TokenID binds the access jti. Usually set later via [Manager.Activate].
	TokenID string
}

/*
Create persists a new session.

Description: The location is derived from the IP best-effort. When the
session is created directly in active status, the suspicion detector is
consulted; a positive signal persists the session as suspicious, records a
SUSPICIOUS_ACTIVITY event, and dispatches an async user notification — the
login itself still proceeds. The first session a user has becomes current.

Parameters:
  - context: context.Context
  - input: CreateInput

Returns:
  - *Session: The persisted session
  - error: Persistence failures
*/
func (manager *Manager) Create(context context.Context, input CreateInput) (*Session, error) {

	// ── 1. Defaults ───────────────────────────────────────────────────────
	status := input.Status
	if status == "" {
		status = StatusActive
	}
	expiresIn := input.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = manager.defaultDuration
	}

	// ── 2. Best-effort geo lookup ─────────────────────────────────────────
	var location *geo.Location
	if manager.geo != nil && input.IP != "" {
		resolved, err := manager.geo.Locate(context, input.IP)
		if err != nil {
			manager.logger.Warn("session_geo_lookup_failed", slog.Any("error", err))
		} else if resolved != (geo.Location{}) {
			location = &resolved
		}
	}

	// ── 3. Suspicion classification (active sessions only) ────────────────
	suspicious := false
	if status == StatusActive && manager.detector != nil {
		flagged, err := manager.detector.DetectSuspicious(context, input.UserID, input.IP, input.UserAgent)
		if err != nil {
			manager.logger.Warn("session_suspicion_check_failed", slog.Any("error", err))
		} else {
			suspicious = flagged
		}
	}
	if suspicious {
		status = StatusSuspicious
	}

	// ── 4. Current-session election ───────────────────────────────────────
	hasCurrent, err := manager.store.HasCurrent(context, input.UserID)
	if err != nil {
		return nil, err
	}

	// ── 5. Persist ────────────────────────────────────────────────────────
	now := time.Now()
	session := &Session{
		ID:           uuid.New(),
		UserID:       input.UserID,
		TokenID:      input.TokenID,
		DeviceID:     input.DeviceID,
		Fingerprint:  input.Fingerprint,
		IP:           input.IP,
		UserAgent:    input.UserAgent,
		Location:     location,
		Status:       status,
		IsCurrent:    !hasCurrent && !IsPending(status),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    now.Add(expiresIn),
	}

	if err := manager.store.Insert(context, session); err != nil {
		return nil, err
	}

	manager.writeCache(context, session)

	// ── 6. Suspicious follow-up ───────────────────────────────────────────
	if suspicious {
		manager.events.Record(security.Event{
			Type:      security.EventSuspiciousActivity,
			UserID:    session.UserID,
			IP:        session.IP,
			UserAgent: session.UserAgent,
			Details: map[string]any{
				"session_id": session.ID,
			},
		})
		manager.notifySuspicious(session)
	}

	return session, nil
}

// Get returns a session, cache-first with store fallback.
func (manager *Manager) Get(context context.Context, id string) (*Session, error) {

	if cached, err := manager.cache.Get(context, id); err != nil {
		manager.logger.Warn("session_cache_read_failed", slog.Any("error", err))
	} else if cached != nil {
		return cached, nil
	}

	session, err := manager.store.Get(context, id)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("Session")
		}
		return nil, err
	}

	// Repopulate the cache after a miss
	manager.writeCache(context, session)

	return session, nil
}

// GetByTokenID returns the session bound to an access jti.
func (manager *Manager) GetByTokenID(context context.Context, tokenID string) (*Session, error) {
	session, err := manager.store.GetByTokenID(context, tokenID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("Session")
		}
		return nil, err
	}
	return session, nil
}

// List returns a page of the user's sessions plus the total count.
func (manager *Manager) List(context context.Context, userID string, activeOnly bool, limit, offset int) ([]Session, int, error) {
	if limit <= 0 {
		limit = 20
	}
	return manager.store.List(context, userID, activeOnly, limit, offset)
}

// UpdateActivity touches last_active_at in both the store and the cache.
func (manager *Manager) UpdateActivity(context context.Context, id string) error {

	now := time.Now()
	if err := manager.store.UpdateActivity(context, id, now); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Session")
		}
		return err
	}

	if cached, err := manager.cache.Get(context, id); err == nil && cached != nil {
		cached.LastActiveAt = now
		manager.writeCache(context, cached)
	}

	return nil
}

/*
UpdateStatus transitions a session to a new status.

Description: Transition legality is enforced by the state machine: terminal
states are immutable and active never returns to a pending state. When
expiresIn is positive the expiry is rewritten, which is how temp sessions
get their final duration on activation. Any status change evicts the cache
snapshot.

Parameters:
  - context: context.Context
  - id: string
  - newStatus: string
  - expiresIn: time.Duration (<= 0 keeps the current expiry)

Returns:
  - *Session: The updated session
  - error: apperr.Conflict on an illegal transition
*/
func (manager *Manager) UpdateStatus(context context.Context, id, newStatus string, expiresIn time.Duration) (*Session, error) {

	session, err := manager.Get(context, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(session.Status, newStatus) {
		return nil, apperr.Conflict("Illegal session status transition")
	}

	var expiresAt *time.Time
	if expiresIn > 0 {
		at := time.Now().Add(expiresIn)
		expiresAt = &at
	}

	if err := manager.store.UpdateStatus(context, id, newStatus, expiresAt); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, apperr.NotFound("Session")
		}
		return nil, err
	}

	// Status mutations always evict; readers repopulate from the store
	manager.evictCache(context, id)

	session.Status = newStatus
	if expiresAt != nil {
		session.ExpiresAt = *expiresAt
	}

	return session, nil
}

/*
Activate promotes a session to active and binds its token and device.

Description: Activation runs the same post-login bookkeeping as a directly
active Create: the suspicion detector is consulted and a positive signal
demotes the fresh session to suspicious with an event and an async user
notification, and when the user has no current session the activated one is
elected. Failures in that bookkeeping are logged, not returned — the login
behind the activation has already succeeded.

Parameters:
  - context: context.Context
  - id: string
  - duration: time.Duration (the new session lifetime)
  - tokenID: string (access jti)
  - deviceID: string

Returns:
  - *Session: The activated session
  - error: apperr.Conflict on an illegal transition
*/
func (manager *Manager) Activate(context context.Context, id string, duration time.Duration, tokenID, deviceID string) (*Session, error) {

	session, err := manager.UpdateStatus(context, id, StatusActive, duration)
	if err != nil {
		return nil, err
	}

	if err := manager.store.BindToken(context, id, tokenID, deviceID); err != nil {
		return nil, err
	}
	session.TokenID = tokenID
	session.DeviceID = deviceID

	// ── Suspicion classification ──────────────────────────────────────────
	// Pending sessions skip the check in Create, so a step-up login is only
	// ever classified here.
	if manager.detector != nil {
		flagged, err := manager.detector.DetectSuspicious(context, session.UserID, session.IP, session.UserAgent)
		if err != nil {
			manager.logger.Warn("session_suspicion_check_failed", slog.Any("error", err))
		} else if flagged {
			if _, err := manager.UpdateStatus(context, id, StatusSuspicious, 0); err != nil {
				manager.logger.Warn("session_suspicious_demotion_failed", slog.Any("error", err))
			} else {
				session.Status = StatusSuspicious
				manager.events.Record(security.Event{
					Type:      security.EventSuspiciousActivity,
					UserID:    session.UserID,
					IP:        session.IP,
					UserAgent: session.UserAgent,
					Details: map[string]any{
						"session_id": session.ID,
					},
				})
				manager.notifySuspicious(session)
			}
		}
	}

	// ── Current-session election ──────────────────────────────────────────
	// Create's election skips pending sessions, so an activated one must
	// stand for election now.
	hasCurrent, err := manager.store.HasCurrent(context, session.UserID)
	if err != nil {
		manager.logger.Warn("session_current_check_failed", slog.Any("error", err))
	} else if !hasCurrent {
		if err := manager.SetCurrent(context, session.UserID, id); err != nil {
			manager.logger.Warn("session_current_election_failed", slog.Any("error", err))
		} else {
			session.IsCurrent = true
		}
	}

	manager.evictCache(context, id)

	return session, nil
}

// SetCurrent makes one session the user's current session.
func (manager *Manager) SetCurrent(context context.Context, userID, sessionID string) error {
	changed, err := manager.store.SetCurrent(context, userID, sessionID)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Session")
		}
		return err
	}

	// Evict every snapshot whose is_current flag moved
	for _, id := range changed {
		manager.evictCache(context, id)
	}
	return nil
}

/*
Revoke terminates a single session.

Parameters:
  - context: context.Context
  - id: string
  - reason: string (recorded in the audit log)

Returns:
  - error: apperr.NotFound when the session does not exist
*/
func (manager *Manager) Revoke(context context.Context, id, reason string) error {

	session, err := manager.UpdateStatus(context, id, StatusRevoked, 0)
	if err != nil {
		return err
	}

	manager.events.Record(security.Event{
		Type:   security.EventLogout,
		UserID: session.UserID,
		Details: map[string]any{
			"session_id": id,
			"reason":     reason,
		},
	})

	return nil
}

// RevokeAll terminates all of the user's sessions, optionally sparing one.
// Returns the number of sessions revoked.
func (manager *Manager) RevokeAll(context context.Context, userID, exceptID, reason string) (int, error) {

	ids, err := manager.store.RevokeAll(context, userID, exceptID)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		manager.evictCache(context, id)
	}

	if len(ids) > 0 {
		manager.events.Record(security.Event{
			Type:   security.EventLogout,
			UserID: userID,
			Details: map[string]any{
				"revoked_count": len(ids),
				"reason":        reason,
			},
		})
	}

	return len(ids), nil
}

// CleanupExpired bulk-marks overdue sessions as expired. Intended to run on
// a periodic scheduler. Returns the number of sessions expired.
func (manager *Manager) CleanupExpired(context context.Context) (int, error) {

	ids, err := manager.store.MarkExpired(context, time.Now())
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		manager.evictCache(context, id)
	}

	return len(ids), nil
}

// IsValid reports whether a session is an acceptable bearer context for the
// user: status in {active, suspicious}, owner matches, not yet expired.
func (manager *Manager) IsValid(context context.Context, id, userID string) bool {

	session, err := manager.Get(context, id)
	if err != nil {
		return false
	}

	return session.Valid(userID, time.Now())
}

// # Internal

// writeCache stores the snapshot; failures are logged, never returned.
func (manager *Manager) writeCache(context context.Context, session *Session) {
	if err := manager.cache.Set(context, session, manager.cacheTTL); err != nil {
		manager.logger.Warn("session_cache_write_failed",
			slog.String("session_id", session.ID),
			slog.Any("error", err),
		)
	}
}

// evictCache drops the snapshot; failures are logged, never returned.
func (manager *Manager) evictCache(context context.Context, id string) {
	if err := manager.cache.Delete(context, id); err != nil {
		manager.logger.Warn("session_cache_evict_failed",
			slog.String("session_id", id),
			slog.Any("error", err),
		)
	}
}

// notifySuspicious hands the user notification to the background runner.
func (manager *Manager) notifySuspicious(session *Session) {
	if manager.notifier == nil || manager.runner == nil {
		return
	}

	sessionID := session.ID
	userID := session.UserID
	ip := session.IP

	manager.runner.Submit("suspicious_login_notification", func(ctx context.Context) {
		body := "A sign-in from an unrecognized location was detected (IP " + ip + "). " +
			"If this was not you, revoke the session and change your password."
		if err := manager.notifier.NotifyUser(ctx, userID, "New sign-in detected", body); err != nil {
			manager.logger.Warn("suspicious_login_notify_failed",
				slog.String("session_id", sessionID),
				slog.Any("error", err),
			)
		}
	})
}
