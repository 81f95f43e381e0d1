// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package device

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suoke-life/auth-service/internal/platform/dberr"
)

// PostgresStore implements Store on PostgreSQL (auth.user_devices).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed device Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const deviceColumns = `
	id, user_id, fingerprint, device_type, os_name, os_version,
	browser_name, browser_version, is_trusted, created_at, last_used_at
`

// Insert persists a new device.
func (store *PostgresStore) Insert(context context.Context, device *Device) error {

	query := `
		INSERT INTO auth.user_devices (` + deviceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := store.pool.Exec(context, query,
		device.ID, device.UserID, device.Fingerprint,
		device.DeviceType, device.OSName, device.OSVersion,
		device.BrowserName, device.BrowserVersion,
		device.IsTrusted, device.CreatedAt, device.LastUsedAt,
	)
	if err != nil {
		return dberr.Wrap(err, "Device already registered")
	}

	return nil
}

// GetByFingerprint returns the most recently used matching device.
func (store *PostgresStore) GetByFingerprint(context context.Context, userID, fingerprint string) (*Device, error) {

	query := `
		SELECT ` + deviceColumns + `
		FROM auth.user_devices
		WHERE user_id = $1 AND fingerprint = $2
		ORDER BY last_used_at DESC
		LIMIT 1
	`

	row := store.pool.QueryRow(context, query, userID, fingerprint)
	return scanDevice(row)
}

// Get returns a device by id scoped to its owner.
func (store *PostgresStore) Get(context context.Context, userID, deviceID string) (*Device, error) {

	query := `SELECT ` + deviceColumns + ` FROM auth.user_devices WHERE id = $1 AND user_id = $2`

	row := store.pool.QueryRow(context, query, deviceID, userID)
	return scanDevice(row)
}

// UpdateLastUsed touches last_used_at.
func (store *PostgresStore) UpdateLastUsed(context context.Context, deviceID string, at time.Time) error {

	if _, err := store.pool.Exec(context,
		`UPDATE auth.user_devices SET last_used_at = $2 WHERE id = $1`,
		deviceID, at,
	); err != nil {
		return fmt.Errorf("device_touch_failed: %w", err)
	}

	return nil
}

// SetTrusted flips the trust flag, scoped to the owner.
func (store *PostgresStore) SetTrusted(context context.Context, userID, deviceID string, trusted bool) error {

	tag, err := store.pool.Exec(context,
		`UPDATE auth.user_devices SET is_trusted = $3 WHERE id = $1 AND user_id = $2`,
		deviceID, userID, trusted,
	)
	if err != nil {
		return fmt.Errorf("device_trust_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// List returns all of the user's devices, most recently used first.
func (store *PostgresStore) List(context context.Context, userID string) ([]Device, error) {

	query := `
		SELECT ` + deviceColumns + `
		FROM auth.user_devices
		WHERE user_id = $1
		ORDER BY last_used_at DESC
	`

	rows, err := store.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("device_list_failed: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("device_rows_failed: %w", err)
	}

	return devices, nil
}

// Delete removes a device scoped to its owner.
func (store *PostgresStore) Delete(context context.Context, userID, deviceID string) error {

	tag, err := store.pool.Exec(context,
		`DELETE FROM auth.user_devices WHERE id = $1 AND user_id = $2`,
		deviceID, userID,
	)
	if err != nil {
		return fmt.Errorf("device_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

func scanDevice(row pgx.Row) (*Device, error) {
	var device Device

	err := row.Scan(
		&device.ID, &device.UserID, &device.Fingerprint,
		&device.DeviceType, &device.OSName, &device.OSVersion,
		&device.BrowserName, &device.BrowserVersion,
		&device.IsTrusted, &device.CreatedAt, &device.LastUsedAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "")
	}

	return &device, nil
}
