// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package sec

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// # TOTP (RFC 6238)

const (
	// TOTPDigits is the number of digits in a generated code.
	TOTPDigits = 6

	// TOTPPeriod is the time-step size in seconds.
	TOTPPeriod = 30

	// TOTPSecretLength is the raw secret size in bytes before base32 encoding.
	TOTPSecretLength = 20

	// TOTPWindow is the default verification window in steps on each side of
	// now, tolerating one step of clock drift between server and device.
	TOTPWindow = 1
)

// base32NoPadding matches what authenticator apps expect in otpauth URIs.
var base32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateTOTPSecret produces a new random base32-encoded shared secret.
func GenerateTOTPSecret() (string, error) {
	raw, err := RandomBytes(TOTPSecretLength)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate TOTP secret: %w", err)
	}
	return base32NoPadding.EncodeToString(raw), nil
}

// GenerateTOTP computes the 6-digit code for the secret at the given time.
func GenerateTOTP(secretBase32 string, at time.Time) (string, error) {
	secret, err := decodeTOTPSecret(secretBase32)
	if err != nil {
		return "", err
	}
	counter := uint64(at.Unix()) / TOTPPeriod
	return hotp(secret, counter), nil
}

// ValidateTOTP reports whether the code matches the secret within ±window
// time steps of the given time.
//
// A code exactly one step ahead or behind verifies true with the default
// window; two steps away verifies false.
func ValidateTOTP(secretBase32, code string, at time.Time, window int) (bool, error) {
	secret, err := decodeTOTPSecret(secretBase32)
	if err != nil {
		return false, err
	}

	if len(code) != TOTPDigits {
		return false, nil
	}

	counter := int64(uint64(at.Unix()) / TOTPPeriod)
	for offset := -int64(window); offset <= int64(window); offset++ {
		step := counter + offset
		if step < 0 {
			continue
		}
		if hmac.Equal([]byte(hotp(secret, uint64(step))), []byte(code)) {
			return true, nil
		}
	}

	return false, nil
}

// TOTPProvisioningURI builds the otpauth:// URI encoded into setup QR codes.
//
// Format follows the Key Uri convention understood by Google Authenticator,
// Authy, 1Password, and friends.
func TOTPProvisioningURI(secretBase32, accountName, issuer string) string {
	query := url.Values{}
	query.Set("secret", secretBase32)
	query.Set("issuer", issuer)
	query.Set("algorithm", "SHA1")
	query.Set("digits", fmt.Sprintf("%d", TOTPDigits))
	query.Set("period", fmt.Sprintf("%d", TOTPPeriod))

	label := url.PathEscape(issuer + ":" + accountName)
	return "otpauth://totp/" + label + "?" + query.Encode()
}

// decodeTOTPSecret decodes a base32 secret, tolerating lowercase and padding.
func decodeTOTPSecret(secretBase32 string) ([]byte, error) {
	normalized := strings.ToUpper(strings.TrimRight(secretBase32, "="))
	secret, err := base32NoPadding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("sec: invalid TOTP secret encoding: %w", err)
	}
	return secret, nil
}

// hotp computes the RFC 4226 HMAC-based one-time password for a counter.
func hotp(secret []byte, counter uint64) string {
	var counterBytes [8]byte
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	mac := hmac.New(sha1.New, secret)
	mac.Write(counterBytes[:])
	sum := mac.Sum(nil)

	// Dynamic truncation (RFC 4226 §5.3).
	offset := sum[len(sum)-1] & 0x0f
	binCode := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%06d", binCode%1000000)
}
