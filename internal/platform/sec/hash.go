// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text secret using the bcrypt algorithm.
//
// Used for both account passwords and one-time recovery codes; neither is
// ever persisted in plain text.
func HashPassword(plainTextSecret string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextSecret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash secret: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text secret with its bcrypt hash.
//
// bcrypt's comparison is constant-time, which prevents timing attacks.
// Note this is CPU-bound work in the 10-100ms range; callers should treat it
// as blocking I/O for concurrency budgeting.
func CheckPasswordHash(plainTextSecret, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextSecret))
	return err == nil
}
