// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

/*
Package uuid provides unique identifiers for the platform.

It wraps the standard UUID library to generate Version 7 values for database
primary keys and Version 4 values for token identifiers (jti).

Advantages of v7 for primary keys:

  - Sortable: Naturally ordered by creation time (millisecond precision).
  - Friendly: Prevents index fragmentation in PostgreSQL (B-tree optimal).
  - Compact: 128-bit storage, compatible with standard 'uuid' types.

Token identifiers use v4 instead: jti values are embedded in JWTs handed to
clients, so they must carry no timing information.
*/
package uuid

import "github.com/google/uuid"

// # Generators

// New generates a new UUIDv7 string.
func New() string {

	// Create a new version 7 UUID (time-sortable)
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUID: " + err.Error())
	}

	// Convert the UUID to a string
	return id.String()
}

// NewV4 generates a new random UUIDv4 string, used for JWT jti claims.
func NewV4() string {
	return uuid.New().String()
}

// IsValid reports whether the given string parses as a UUID of any version.
func IsValid(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
