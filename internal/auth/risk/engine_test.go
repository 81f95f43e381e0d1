// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package risk

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suoke-life/auth-service/internal/auth/device"
	"github.com/suoke-life/auth-service/internal/auth/session"
	"github.com/suoke-life/auth-service/internal/platform/geo"
	"github.com/suoke-life/auth-service/internal/security"
)

const (
	desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	mobileUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1"
)

// fakeSessions serves canned recent sessions.
type fakeSessions struct {
	sessions []session.Session
}

func (fake *fakeSessions) ListRecentActive(_ context.Context, _ string, limit int) ([]session.Session, error) {
	if len(fake.sessions) > limit {
		return fake.sessions[:limit], nil
	}
	return fake.sessions, nil
}

// fakeDevices serves a fixed device set keyed by fingerprint.
type fakeDevices struct {
	byFingerprint map[string]*device.Device
	all           []device.Device
}

func (fake *fakeDevices) Identify(_ context.Context, _ string, info device.Info) (*device.Device, error) {
	if known, ok := fake.byFingerprint[device.Fingerprint(info)]; ok {
		clone := *known
		return &clone, nil
	}
	return nil, nil
}

func (fake *fakeDevices) List(_ context.Context, _ string) ([]device.Device, error) {
	return fake.all, nil
}

// mapGeo resolves countries from a fixed ip table.
type mapGeo struct {
	countries map[string]string
}

func (lookup mapGeo) Locate(_ context.Context, ip string) (geo.Location, error) {
	return geo.Location{Country: lookup.countries[ip]}, nil
}

// eventSink collects recorded events.
type eventSink struct {
	mu     sync.Mutex
	events []security.Event
}

func (sink *eventSink) Record(event security.Event) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.events = append(sink.events, event)
}

func (sink *eventSink) byType(eventType string) []security.Event {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	matched := []security.Event{}
	for _, event := range sink.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

func newTestEngine(sessions *fakeSessions, devices *fakeDevices, countries map[string]string) (*Engine, *eventSink) {
	sink := &eventSink{}
	engine := NewEngine(sessions, devices, mapGeo{countries: countries}, sink, slog.Default())
	return engine, sink
}

func activeSession(ip, userAgent, country string, age time.Duration) session.Session {
	return session.Session{
		ID:        "s-" + ip,
		UserID:    "u1",
		IP:        ip,
		UserAgent: userAgent,
		Location:  &geo.Location{Country: country},
		Status:    session.StatusActive,
		CreatedAt: time.Now().Add(-age),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestProcessLoginSecurity(t *testing.T) {
	ctx := context.Background()
	info := device.Info{UserAgent: desktopUA}
	fingerprint := device.Fingerprint(info)

	t.Run("known_device_skips_verification", func(t *testing.T) {
		known := &device.Device{ID: "d1", UserID: "u1", Fingerprint: fingerprint}
		engine, _ := newTestEngine(&fakeSessions{}, &fakeDevices{
			byFingerprint: map[string]*device.Device{fingerprint: known},
			all:           []device.Device{*known},
		}, nil)

		result, err := engine.ProcessLoginSecurity(ctx, LoginSecurityInput{UserID: "u1", Info: info})
		require.NoError(t, err)
		assert.False(t, result.VerificationRequired)
		assert.Equal(t, fingerprint, result.DeviceFingerprint)
		require.NotNil(t, result.Device)
		assert.Equal(t, "d1", result.Device.ID)
	})

	t.Run("first_ever_device_skips_verification", func(t *testing.T) {
		engine, _ := newTestEngine(&fakeSessions{}, &fakeDevices{byFingerprint: map[string]*device.Device{}}, nil)

		result, err := engine.ProcessLoginSecurity(ctx, LoginSecurityInput{UserID: "u1", Info: info})
		require.NoError(t, err)
		assert.False(t, result.VerificationRequired)
		assert.Nil(t, result.Device)
	})

	t.Run("unknown_device_on_established_account_requires_verification", func(t *testing.T) {
		prior := device.Device{ID: "d0", UserID: "u1", Fingerprint: device.Fingerprint(device.Info{UserAgent: mobileUA})}
		engine, _ := newTestEngine(&fakeSessions{}, &fakeDevices{
			byFingerprint: map[string]*device.Device{prior.Fingerprint: &prior},
			all:           []device.Device{prior},
		}, nil)

		result, err := engine.ProcessLoginSecurity(ctx, LoginSecurityInput{UserID: "u1", Info: info})
		require.NoError(t, err)
		assert.True(t, result.VerificationRequired)
		require.NotNil(t, result.VerificationInfo)
		assert.Equal(t, "sms", result.VerificationInfo.Method)
		assert.Equal(t, fingerprint, result.DeviceFingerprint)
	})

	t.Run("top_level_user_agent_fills_missing_info", func(t *testing.T) {
		engine, _ := newTestEngine(&fakeSessions{}, &fakeDevices{byFingerprint: map[string]*device.Device{}}, nil)

		result, err := engine.ProcessLoginSecurity(ctx, LoginSecurityInput{UserID: "u1", UserAgent: desktopUA})
		require.NoError(t, err)
		assert.Equal(t, fingerprint, result.DeviceFingerprint)
	})
}

func TestDetectSuspicious(t *testing.T) {
	ctx := context.Background()
	countries := map[string]string{
		"1.1.1.1": "CN",
		"2.2.2.2": "US",
		"3.3.3.3": "CN",
	}

	t.Run("first_session_is_never_suspicious", func(t *testing.T) {
		engine, _ := newTestEngine(&fakeSessions{}, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "2.2.2.2", desktopUA)
		require.NoError(t, err)
		assert.False(t, suspicious)
	})

	t.Run("known_ip_is_not_suspicious", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "1.1.1.1", desktopUA)
		require.NoError(t, err)
		assert.False(t, suspicious)
	})

	t.Run("rapid_country_change_is_suspicious", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", 2*time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "2.2.2.2", desktopUA)
		require.NoError(t, err)
		assert.True(t, suspicious)
	})

	t.Run("slow_country_change_is_fine", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", 48*time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "2.2.2.2", desktopUA)
		require.NoError(t, err)
		assert.False(t, suspicious)
	})

	t.Run("same_country_new_ip_is_fine", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "3.3.3.3", desktopUA)
		require.NoError(t, err)
		assert.False(t, suspicious)
	})

	t.Run("rapid_device_type_change_is_suspicious", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		// Same IP set would pass the IP check, so use a same-country IP.
		suspicious, err := engine.DetectSuspicious(ctx, "u1", "3.3.3.3", mobileUA)
		require.NoError(t, err)
		assert.True(t, suspicious)
	})

	t.Run("previously_seen_device_type_is_fine", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", time.Hour),
			activeSession("3.3.3.3", mobileUA, "CN", 3*time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "4.4.4.4", mobileUA)
		require.NoError(t, err)
		assert.False(t, suspicious)
	})

	t.Run("stale_device_type_change_is_fine", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", 20*time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "3.3.3.3", mobileUA)
		require.NoError(t, err)
		assert.False(t, suspicious)
	})

	t.Run("unknown_user_agent_does_not_trip_device_check", func(t *testing.T) {
		sessions := &fakeSessions{sessions: []session.Session{
			activeSession("1.1.1.1", desktopUA, "CN", time.Hour),
		}}
		engine, _ := newTestEngine(sessions, &fakeDevices{}, countries)

		suspicious, err := engine.DetectSuspicious(ctx, "u1", "3.3.3.3", "")
		require.NoError(t, err)
		assert.False(t, suspicious)
	})
}

func TestRecordLoginOutcomes(t *testing.T) {
	engine, sink := newTestEngine(&fakeSessions{}, &fakeDevices{}, nil)

	engine.RecordLoginSuccess(LoginAttempt{UserID: "u1", IP: "1.1.1.1", SessionID: "s1", DeviceID: "d1"})
	engine.RecordLoginFailure(LoginAttempt{IP: "2.2.2.2", Reason: "user_not_found"})
	engine.RecordLoginFailure(LoginAttempt{UserID: "u1", IP: "1.1.1.1", Reason: "invalid_password"})

	successes := sink.byType(security.EventLoginSuccess)
	require.Len(t, successes, 1)
	assert.Equal(t, "u1", successes[0].UserID)
	assert.Equal(t, "s1", successes[0].Details["session_id"])

	failures := sink.byType(security.EventLoginFailure)
	require.Len(t, failures, 2)
	assert.Empty(t, failures[0].UserID)
	assert.Equal(t, "user_not_found", failures[0].Details["reason"])
	assert.Equal(t, "u1", failures[1].UserID)
}
