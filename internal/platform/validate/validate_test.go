// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suoke-life/auth-service/internal/platform/apperr"
)

func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "non_empty_value_passes", value: "hello", wantErr: false},
		{name: "empty_value_fails", value: "", wantErr: true},
		{name: "whitespace_only_fails", value: "   ", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validator{}
			err := v.Required("field", tc.value).Err()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_Email(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid_email_passes", value: "user@suoke.life", wantErr: false},
		{name: "missing_at_fails", value: "user.suoke.life", wantErr: true},
		{name: "empty_fails", value: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validator{}
			err := v.Email("email", tc.value).Err()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_Phone(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "e164_with_plus_passes", value: "+8613812345678", wantErr: false},
		{name: "digits_only_passes", value: "13812345678", wantErr: false},
		{name: "leading_zero_fails", value: "0123456", wantErr: true},
		{name: "too_short_fails", value: "+861", wantErr: true},
		{name: "letters_fail", value: "+86abc12345", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validator{}
			err := v.Phone("phone", tc.value).Err()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_UUID(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "lowercase_uuid_passes", value: "018f4d62-1a2b-7c3d-8e4f-5a6b7c8d9e0f", wantErr: false},
		{name: "uppercase_uuid_passes", value: "018F4D62-1A2B-7C3D-8E4F-5A6B7C8D9E0F", wantErr: false},
		{name: "missing_group_fails", value: "018f4d62-1a2b-7c3d-8e4f", wantErr: true},
		{name: "random_string_fails", value: "not-a-uuid", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validator{}
			err := v.UUID("id", tc.value).Err()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_SecondFactorCode(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "totp_code_passes", value: "123456", wantErr: false},
		{name: "recovery_code_passes", value: "1A2B3C4D-5E6F7A8B-9C0D1E2F-3A4B5C6D", wantErr: false},
		{name: "lowercase_recovery_code_passes", value: "1a2b3c4d-5e6f7a8b-9c0d1e2f-3a4b5c6d", wantErr: false},
		{name: "five_digit_code_fails", value: "12345", wantErr: true},
		{name: "short_recovery_code_fails", value: "1A2B-3C4D-5E6F", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := &Validator{}
			err := v.SecondFactorCode("code", tc.value).Err()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ChainCollectsAllErrors(t *testing.T) {
	v := &Validator{}
	err := v.
		Required("email", "").
		Required("password", "").
		MinLen("password", "", 8).
		Err()

	require.Error(t, err)

	appError := apperr.As(err)
	require.NotNil(t, appError)
	assert.Equal(t, "VALIDATION_ERROR", appError.Code)
	assert.Len(t, appError.Details, 3)
}

func TestValidator_NoErrorsOnValidInput(t *testing.T) {
	v := &Validator{}
	err := v.
		Required("email", "user@suoke.life").
		Email("email", "user@suoke.life").
		MinLen("password", "supersecret", 8).
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}
