// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package twofactor implements TOTP-based second-factor enrollment and
verification with single-use recovery codes.

Enrollment is two-phase. Provision generates a secret and parks it in Redis
under a short-lived setup id; nothing on the account changes yet. Activate
proves possession of the secret with a live code, persists it, and hands the
user one batch of recovery codes. Codes are stored bcrypt-hashed and burn on
first use.
*/
package twofactor

import "time"

// Methods supported for the second factor.
const (
	MethodTOTP = "totp"
)

// Settings is the per-user second-factor state persisted on the account.
type Settings struct {
	Enabled bool
	Method  string

	// Secret is the base32 TOTP shared secret. Empty when disabled.
	Secret string
}

// Setup is a provisioned-but-unactivated enrollment parked in Redis.
type Setup struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Method    string    `json:"method"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

// RecoveryCode is one stored (hashed) backup code.
type RecoveryCode struct {
	ID        string
	UserID    string
	CodeHash  string
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
}

// ProvisionResult is handed to the client to complete enrollment.
type ProvisionResult struct {
	SetupID string `json:"setup_id"`

	// Secret is the base32 secret for manual entry.
	Secret string `json:"secret"`

	// OTPAuthURL is the otpauth:// provisioning URI.
	OTPAuthURL string `json:"otpauth_url"`

	// QRCode is a data: URI holding a PNG rendering of OTPAuthURL.
	QRCode string `json:"qr_code"`

	ExpiresIn int64 `json:"expires_in"`
}
