// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package device

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
	"github.com/suoke-life/auth-service/internal/platform/dberr"
	"github.com/suoke-life/auth-service/internal/security"
)

const (
	chromeOnWindows = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	safariOnIPhone  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
	firefoxOnLinux  = "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0"
	safariOnIPad    = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	edgeOnWindows   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name        string
		userAgent   string
		deviceType  string
		osName      string
		browserName string
	}{
		{name: "chrome_on_windows_is_desktop", userAgent: chromeOnWindows, deviceType: "desktop", osName: "Windows", browserName: "Chrome"},
		{name: "safari_on_iphone_is_mobile", userAgent: safariOnIPhone, deviceType: "mobile", osName: "iOS", browserName: "Safari"},
		{name: "firefox_on_linux_is_desktop", userAgent: firefoxOnLinux, deviceType: "desktop", osName: "Linux", browserName: "Firefox"},
		{name: "ipad_is_tablet", userAgent: safariOnIPad, deviceType: "tablet", osName: "iOS", browserName: "Safari"},
		{name: "edge_is_not_chrome", userAgent: edgeOnWindows, deviceType: "desktop", osName: "Windows", browserName: "Edge"},
		{name: "empty_ua_is_unknown", userAgent: "", deviceType: "unknown", osName: "unknown", browserName: "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			normalized := Normalize(Info{UserAgent: tc.userAgent})
			assert.Equal(t, tc.deviceType, normalized.DeviceType)
			assert.Equal(t, tc.osName, normalized.OSName)
			assert.Equal(t, tc.browserName, normalized.BrowserName)
		})
	}

	t.Run("explicit_fields_win_over_derivation", func(t *testing.T) {
		normalized := Normalize(Info{UserAgent: chromeOnWindows, DeviceType: "mobile"})
		assert.Equal(t, "mobile", normalized.DeviceType)
	})
}

func TestFingerprint(t *testing.T) {
	t.Run("is_deterministic", func(t *testing.T) {
		info := Info{UserAgent: chromeOnWindows, ClientID: "client-1", AppVersion: "2.3.0"}
		assert.Equal(t, Fingerprint(info), Fingerprint(info))
	})

	t.Run("is_64_hex_characters", func(t *testing.T) {
		fingerprint := Fingerprint(Info{UserAgent: chromeOnWindows})
		assert.Regexp(t, `^[0-9a-f]{64}$`, fingerprint)
	})

	t.Run("is_idempotent_over_normalization", func(t *testing.T) {
		info := Info{UserAgent: safariOnIPhone}
		assert.Equal(t, Fingerprint(info), Fingerprint(Normalize(info)))
		assert.Equal(t, Fingerprint(Normalize(info)), Fingerprint(Normalize(Normalize(info))))
	})

	t.Run("differs_across_devices", func(t *testing.T) {
		assert.NotEqual(t,
			Fingerprint(Info{UserAgent: chromeOnWindows}),
			Fingerprint(Info{UserAgent: safariOnIPhone}),
		)
	})

	t.Run("client_id_contributes", func(t *testing.T) {
		assert.NotEqual(t,
			Fingerprint(Info{UserAgent: chromeOnWindows, ClientID: "a"}),
			Fingerprint(Info{UserAgent: chromeOnWindows, ClientID: "b"}),
		)
	})
}

// # Registry tests

// memoryDeviceStore is an in-memory Store.
type memoryDeviceStore struct {
	mu      sync.Mutex
	devices map[string]*Device
}

func newMemoryDeviceStore() *memoryDeviceStore {
	return &memoryDeviceStore{devices: make(map[string]*Device)}
}

func (store *memoryDeviceStore) Insert(_ context.Context, device *Device) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, existing := range store.devices {
		if existing.UserID == device.UserID && existing.Fingerprint == device.Fingerprint {
			return apperr.Conflict("Device already registered")
		}
	}
	clone := *device
	store.devices[device.ID] = &clone
	return nil
}

func (store *memoryDeviceStore) GetByFingerprint(_ context.Context, userID, fingerprint string) (*Device, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	var newest *Device
	for _, device := range store.devices {
		if device.UserID != userID || device.Fingerprint != fingerprint {
			continue
		}
		if newest == nil || device.LastUsedAt.After(newest.LastUsedAt) {
			newest = device
		}
	}
	if newest == nil {
		return nil, dberr.ErrNotFound
	}
	clone := *newest
	return &clone, nil
}

func (store *memoryDeviceStore) Get(_ context.Context, userID, deviceID string) (*Device, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	device, ok := store.devices[deviceID]
	if !ok || device.UserID != userID {
		return nil, dberr.ErrNotFound
	}
	clone := *device
	return &clone, nil
}

func (store *memoryDeviceStore) UpdateLastUsed(_ context.Context, deviceID string, at time.Time) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	if device, ok := store.devices[deviceID]; ok {
		device.LastUsedAt = at
	}
	return nil
}

func (store *memoryDeviceStore) SetTrusted(_ context.Context, userID, deviceID string, trusted bool) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	device, ok := store.devices[deviceID]
	if !ok || device.UserID != userID {
		return dberr.ErrNotFound
	}
	device.IsTrusted = trusted
	return nil
}

func (store *memoryDeviceStore) List(_ context.Context, userID string) ([]Device, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	devices := []Device{}
	for _, device := range store.devices {
		if device.UserID == userID {
			devices = append(devices, *device)
		}
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].LastUsedAt.After(devices[j].LastUsedAt) })
	return devices, nil
}

func (store *memoryDeviceStore) Delete(_ context.Context, userID, deviceID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	device, ok := store.devices[deviceID]
	if !ok || device.UserID != userID {
		return dberr.ErrNotFound
	}
	delete(store.devices, deviceID)
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Record(security.Event) {}

func newTestRegistry() *Registry {
	return NewRegistry(newMemoryDeviceStore(), nopRecorder{}, slog.Default())
}

func TestRegistry_RegisterAndIdentify(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	info := Info{UserAgent: chromeOnWindows}

	t.Run("unseen_device_identifies_as_nil", func(t *testing.T) {
		device, err := registry.Identify(ctx, "u1", info)
		require.NoError(t, err)
		assert.Nil(t, device)
	})

	t.Run("registered_device_is_identified", func(t *testing.T) {
		registered, err := registry.Register(ctx, "u1", info, false)
		require.NoError(t, err)
		assert.False(t, registered.IsTrusted)
		assert.Equal(t, "desktop", registered.DeviceType)

		identified, err := registry.Identify(ctx, "u1", info)
		require.NoError(t, err)
		require.NotNil(t, identified)
		assert.Equal(t, registered.ID, identified.ID)
	})

	t.Run("duplicate_register_resolves_to_existing", func(t *testing.T) {
		first, err := registry.Register(ctx, "u2", info, false)
		require.NoError(t, err)

		second, err := registry.Register(ctx, "u2", info, false)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("devices_are_scoped_per_user", func(t *testing.T) {
		device, err := registry.Identify(ctx, "someone-else", info)
		require.NoError(t, err)
		assert.Nil(t, device)
	})
}

func TestRegistry_Trust(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()
	info := Info{UserAgent: safariOnIPhone}

	device, err := registry.Register(ctx, "u1", info, false)
	require.NoError(t, err)

	t.Run("trust_and_untrust_round_trip", func(t *testing.T) {
		require.NoError(t, registry.Trust(ctx, "u1", device.ID))
		trusted, err := registry.Identify(ctx, "u1", info)
		require.NoError(t, err)
		assert.True(t, trusted.IsTrusted)

		require.NoError(t, registry.Untrust(ctx, "u1", device.ID))
		untrusted, err := registry.Identify(ctx, "u1", info)
		require.NoError(t, err)
		assert.False(t, untrusted.IsTrusted)
	})

	t.Run("trusting_another_users_device_fails", func(t *testing.T) {
		err := registry.Trust(ctx, "attacker", device.ID)
		assert.True(t, apperr.IsKind(err, "NOT_FOUND"))
	})

	t.Run("register_and_trust_upgrades_known_device", func(t *testing.T) {
		resolved, err := registry.RegisterAndTrust(ctx, "u1", info, true)
		require.NoError(t, err)
		assert.Equal(t, device.ID, resolved.ID)
		assert.True(t, resolved.IsTrusted)
	})

	t.Run("register_and_trust_creates_unknown_device", func(t *testing.T) {
		resolved, err := registry.RegisterAndTrust(ctx, "u1", Info{UserAgent: firefoxOnLinux}, true)
		require.NoError(t, err)
		assert.NotEqual(t, device.ID, resolved.ID)
		assert.True(t, resolved.IsTrusted)
	})
}

func TestRegistry_Remove(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry()

	device, err := registry.Register(ctx, "u1", Info{UserAgent: chromeOnWindows}, false)
	require.NoError(t, err)

	require.NoError(t, registry.Remove(ctx, "u1", device.ID))

	devices, err := registry.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, devices)

	err = registry.Remove(ctx, "u1", device.ID)
	assert.True(t, apperr.IsKind(err, "NOT_FOUND"))
}
