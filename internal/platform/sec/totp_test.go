// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package sec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rfcTestSecret is the ASCII secret "12345678901234567890" from RFC 6238
// Appendix B, base32-encoded.
const rfcTestSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestGenerateTOTP(t *testing.T) {
	// Expected 6-digit codes derived from the RFC 6238 SHA-1 reference vectors
	// (the published 8-digit values truncated to their last 6 digits).
	tests := []struct {
		name     string
		unixTime int64
		expected string
	}{
		{name: "rfc_vector_t59", unixTime: 59, expected: "287082"},
		{name: "rfc_vector_t1111111109", unixTime: 1111111109, expected: "081804"},
		{name: "rfc_vector_t1234567890", unixTime: 1234567890, expected: "005924"},
		{name: "rfc_vector_t2000000000", unixTime: 2000000000, expected: "279037"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, err := GenerateTOTP(rfcTestSecret, time.Unix(tc.unixTime, 0))
			require.NoError(t, err)
			assert.Equal(t, tc.expected, code)
		})
	}
}

func TestValidateTOTP(t *testing.T) {
	now := time.Unix(1700000000, 0)

	secret, err := GenerateTOTPSecret()
	require.NoError(t, err)

	currentCode, err := GenerateTOTP(secret, now)
	require.NoError(t, err)

	t.Run("accepts_current_code", func(t *testing.T) {
		ok, err := ValidateTOTP(secret, currentCode, now, TOTPWindow)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("accepts_previous_step_within_window", func(t *testing.T) {
		previousCode, err := GenerateTOTP(secret, now.Add(-TOTPPeriod*time.Second))
		require.NoError(t, err)

		ok, err := ValidateTOTP(secret, previousCode, now, TOTPWindow)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("accepts_next_step_within_window", func(t *testing.T) {
		nextCode, err := GenerateTOTP(secret, now.Add(TOTPPeriod*time.Second))
		require.NoError(t, err)

		ok, err := ValidateTOTP(secret, nextCode, now, TOTPWindow)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejects_code_two_steps_away", func(t *testing.T) {
		staleCode, err := GenerateTOTP(secret, now.Add(-2*TOTPPeriod*time.Second))
		require.NoError(t, err)

		ok, err := ValidateTOTP(secret, staleCode, now, TOTPWindow)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects_wrong_length_code", func(t *testing.T) {
		ok, err := ValidateTOTP(secret, "12345", now, TOTPWindow)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects_invalid_secret_encoding", func(t *testing.T) {
		_, err := ValidateTOTP("not base32!!", currentCode, now, TOTPWindow)
		assert.Error(t, err)
	})

	t.Run("tolerates_lowercase_and_padded_secret", func(t *testing.T) {
		padded := rfcTestSecret + "===="
		code, err := GenerateTOTP(rfcTestSecret, now)
		require.NoError(t, err)

		ok, err := ValidateTOTP(padded, code, now, TOTPWindow)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestGenerateTOTPSecret(t *testing.T) {
	first, err := GenerateTOTPSecret()
	require.NoError(t, err)

	second, err := GenerateTOTPSecret()
	require.NoError(t, err)

	// 20 raw bytes -> 32 base32 characters without padding.
	assert.Len(t, first, 32)
	assert.NotEqual(t, first, second)
}

func TestTOTPProvisioningURI(t *testing.T) {
	uri := TOTPProvisioningURI(rfcTestSecret, "user@suoke.life", "Suoke Life")

	assert.Contains(t, uri, "otpauth://totp/")
	assert.Contains(t, uri, "secret="+rfcTestSecret)
	assert.Contains(t, uri, "algorithm=SHA1")
	assert.Contains(t, uri, "digits=6")
	assert.Contains(t, uri, "period=30")
}
