// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package sec

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// # Secure Randomness

// RandomBytes returns n bytes from the operating system's CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	buffer := make([]byte, n)
	if _, err := rand.Read(buffer); err != nil {
		return nil, fmt.Errorf("sec: failed to read random bytes: %w", err)
	}
	return buffer, nil
}

// GenerateSecureToken returns a hex-encoded random token of byteLength bytes.
func GenerateSecureToken(byteLength int) (string, error) {
	raw, err := RandomBytes(byteLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// GenerateNumericCode returns a zero-padded random code of the given number
// of decimal digits, e.g. "042913" for 6 digits. Used for SMS verification.
func GenerateNumericCode(digits int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	value, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate numeric code: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, value), nil
}

// GenerateRecoveryCode returns a single recovery code literal in the format
// XXXX-XXXX-XXXX-XXXX: four groups of 8 uppercase hex characters joined with
// '-' (35 characters total).
func GenerateRecoveryCode() (string, error) {
	raw, err := RandomBytes(16)
	if err != nil {
		return "", err
	}

	full := strings.ToUpper(hex.EncodeToString(raw))
	groups := []string{full[0:8], full[8:16], full[16:24], full[24:32]}
	return strings.Join(groups, "-"), nil
}
