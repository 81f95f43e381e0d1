// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package device

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/dberr"
	"github.com/suoke-life/auth-service/internal/security"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// Registry manages device identity and trust for users.
type Registry struct {
	store  Store
	events security.Recorder
	logger *slog.Logger
}

// NewRegistry creates the device registry.
func NewRegistry(store Store, events security.Recorder, logger *slog.Logger) *Registry {
	return &Registry{store: store, events: events, logger: logger}
}

/*
Register stores a new device for a user.

Description: The device info is normalized and fingerprinted first. A
concurrent registration of the same fingerprint loses the insert race and
resolves to the already-stored device (first write wins).

Parameters:
  - context: context.Context
  - userID: string
  - info: Info
  - trusted: bool

Returns:
  - *Device: The stored device
  - error: Persistence failures
*/
func (registry *Registry) Register(context context.Context, userID string, info Info, trusted bool) (*Device, error) {

	normalized := Normalize(info)
	now := time.Now()

	device := &Device{
		ID:             uuid.New(),
		UserID:         userID,
		Fingerprint:    Fingerprint(normalized),
		DeviceType:     normalized.DeviceType,
		OSName:         normalized.OSName,
		OSVersion:      normalized.OSVersion,
		BrowserName:    normalized.BrowserName,
		BrowserVersion: normalized.BrowserVersion,
		IsTrusted:      trusted,
		CreatedAt:      now,
		LastUsedAt:     now,
	}

	if err := registry.store.Insert(context, device); err != nil {
		// Lost a registration race: the existing row is authoritative
		if apperr.IsKind(err, "CONFLICT") {
			return registry.Identify(context, userID, info)
		}
		return nil, err
	}

	return device, nil
}

/*
Identify resolves a device by its fingerprint.

Description: On a hit, last_used_at is touched best-effort. A miss returns
(nil, nil) — an unknown device is a normal outcome, not an error.

Parameters:
  - context: context.Context
  - userID: string
  - info: Info

Returns:
  - *Device: The known device, or nil when unseen
  - error: Query failures
*/
func (registry *Registry) Identify(context context.Context, userID string, info Info) (*Device, error) {

	fingerprint := Fingerprint(info)

	device, err := registry.store.GetByFingerprint(context, userID, fingerprint)
	if err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if err := registry.store.UpdateLastUsed(context, device.ID, time.Now()); err != nil {
		registry.logger.Warn("device_touch_failed",
			slog.String("device_id", device.ID),
			slog.Any("error", err),
		)
	}

	return device, nil
}

// Trust marks a device trusted. The ownership check is implicit in the
// user-scoped update.
func (registry *Registry) Trust(context context.Context, userID, deviceID string) error {
	if err := registry.setTrusted(context, userID, deviceID, true); err != nil {
		return err
	}

	registry.events.Record(security.Event{
		Type:   security.EventDeviceTrusted,
		UserID: userID,
		Details: map[string]any{
			"device_id": deviceID,
		},
	})

	return nil
}

// Untrust removes the trust flag from a device.
func (registry *Registry) Untrust(context context.Context, userID, deviceID string) error {
	return registry.setTrusted(context, userID, deviceID, false)
}

/*
RegisterAndTrust resolves-or-registers a device, optionally trusting it.

Description: Used after a successful second-factor verification with
"remember this device". An already-known device is upgraded to trusted
in place rather than duplicated.

Parameters:
  - context: context.Context
  - userID: string
  - info: Info
  - autoTrust: bool

Returns:
  - *Device: The resolved device
  - error: Persistence failures
*/
func (registry *Registry) RegisterAndTrust(context context.Context, userID string, info Info, autoTrust bool) (*Device, error) {

	device, err := registry.Identify(context, userID, info)
	if err != nil {
		return nil, err
	}

	if device == nil {
		return registry.Register(context, userID, info, autoTrust)
	}

	if autoTrust && !device.IsTrusted {
		if err := registry.Trust(context, userID, device.ID); err != nil {
			return nil, err
		}
		device.IsTrusted = true
	}

	return device, nil
}

// List returns all of the user's devices, most recently used first.
func (registry *Registry) List(context context.Context, userID string) ([]Device, error) {
	return registry.store.List(context, userID)
}

// Remove deletes a device after the implicit ownership check.
func (registry *Registry) Remove(context context.Context, userID, deviceID string) error {

	if err := registry.store.Delete(context, userID, deviceID); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Device")
		}
		return err
	}

	registry.events.Record(security.Event{
		Type:   security.EventDeviceRemoved,
		UserID: userID,
		Details: map[string]any{
			"device_id": deviceID,
		},
	})

	return nil
}

func (registry *Registry) setTrusted(context context.Context, userID, deviceID string, trusted bool) error {
	if err := registry.store.SetTrusted(context, userID, deviceID, trusted); err != nil {
		if errors.Is(err, dberr.ErrNotFound) {
			return apperr.NotFound("Device")
		}
		return err
	}
	return nil
}
