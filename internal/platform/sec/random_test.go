// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package sec

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRecoveryCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-F]{8}-[0-9A-F]{8}-[0-9A-F]{8}-[0-9A-F]{8}$`)

	t.Run("matches_expected_format", func(t *testing.T) {
		code, err := GenerateRecoveryCode()
		require.NoError(t, err)

		assert.Len(t, code, 35)
		assert.Regexp(t, pattern, code)
	})

	t.Run("generates_unique_codes", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 50; i++ {
			code, err := GenerateRecoveryCode()
			require.NoError(t, err)
			assert.False(t, seen[code])
			seen[code] = true
		}
	})
}

func TestGenerateNumericCode(t *testing.T) {
	t.Run("zero_pads_to_requested_digits", func(t *testing.T) {
		for i := 0; i < 20; i++ {
			code, err := GenerateNumericCode(6)
			require.NoError(t, err)
			assert.Regexp(t, `^[0-9]{6}$`, code)
		}
	})
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)

	// 32 bytes hex-encoded.
	assert.Len(t, token, 64)
	assert.Regexp(t, `^[0-9a-f]+$`, token)
}
