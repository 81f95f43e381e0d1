// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package twofactor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suoke-life/auth-service/internal/platform/dberr"
	"github.com/suoke-life/auth-service/pkg/uuid"
)

// PostgresStore implements SettingsStore on auth.users and RecoveryCodeStore
// on auth.two_factor_recovery_codes.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the PostgreSQL-backed two-factor store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// # Settings

// GetSettings returns the user's second-factor state.
func (store *PostgresStore) GetSettings(context context.Context, userID string) (*Settings, error) {

	query := `
		SELECT two_factor_enabled, COALESCE(two_factor_method, ''), COALESCE(two_factor_secret, '')
		FROM auth.users
		WHERE id = $1
	`

	var settings Settings
	err := store.pool.QueryRow(context, query, userID).
		Scan(&settings.Enabled, &settings.Method, &settings.Secret)
	if err != nil {
		return nil, dberr.Wrap(err, "")
	}

	return &settings, nil
}

// Enable persists the method and secret and flips the enabled flag.
func (store *PostgresStore) Enable(context context.Context, userID, method, secret string) error {

	query := `
		UPDATE auth.users
		SET two_factor_enabled = TRUE,
		    two_factor_method = $2,
		    two_factor_secret = $3,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := store.pool.Exec(context, query, userID, method, secret)
	if err != nil {
		return fmt.Errorf("two_factor_enable_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// Disable clears the method and secret and drops the enabled flag.
func (store *PostgresStore) Disable(context context.Context, userID string) error {

	query := `
		UPDATE auth.users
		SET two_factor_enabled = FALSE,
		    two_factor_method = NULL,
		    two_factor_secret = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`

	tag, err := store.pool.Exec(context, query, userID)
	if err != nil {
		return fmt.Errorf("two_factor_disable_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// # Recovery Codes

// ReplaceCodes atomically swaps the user's recovery code batch.
func (store *PostgresStore) ReplaceCodes(context context.Context, userID string, hashes []string) error {

	transaction, err := store.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("recovery_codes_begin_failed: %w", err)
	}
	defer transaction.Rollback(context)

	if _, err := transaction.Exec(context,
		`DELETE FROM auth.two_factor_recovery_codes WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("recovery_codes_clear_failed: %w", err)
	}

	now := time.Now()
	for _, hash := range hashes {
		if _, err := transaction.Exec(context,
			`INSERT INTO auth.two_factor_recovery_codes (id, user_id, code_hash, used, created_at)
			 VALUES ($1, $2, $3, FALSE, $4)`,
			uuid.New(), userID, hash, now,
		); err != nil {
			return fmt.Errorf("recovery_codes_insert_failed: %w", err)
		}
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("recovery_codes_commit_failed: %w", err)
	}

	return nil
}

// ListActive returns the user's unused codes.
func (store *PostgresStore) ListActive(context context.Context, userID string) ([]RecoveryCode, error) {

	query := `
		SELECT id, user_id, code_hash, used, used_at, created_at
		FROM auth.two_factor_recovery_codes
		WHERE user_id = $1 AND used = FALSE
		ORDER BY created_at
	`

	rows, err := store.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("recovery_codes_list_failed: %w", err)
	}
	defer rows.Close()

	codes := []RecoveryCode{}
	for rows.Next() {
		code, err := scanRecoveryCode(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, *code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recovery_codes_rows_failed: %w", err)
	}

	return codes, nil
}

// MarkUsed burns a code. A second burn of the same code is a no-op miss.
func (store *PostgresStore) MarkUsed(context context.Context, codeID string, at time.Time) error {

	tag, err := store.pool.Exec(context,
		`UPDATE auth.two_factor_recovery_codes SET used = TRUE, used_at = $2 WHERE id = $1 AND used = FALSE`,
		codeID, at,
	)
	if err != nil {
		return fmt.Errorf("recovery_code_burn_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// CountActive returns how many unused codes remain.
func (store *PostgresStore) CountActive(context context.Context, userID string) (int, error) {

	var count int
	err := store.pool.QueryRow(context,
		`SELECT COUNT(*) FROM auth.two_factor_recovery_codes WHERE user_id = $1 AND used = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("recovery_codes_count_failed: %w", err)
	}

	return count, nil
}

// DeleteAll removes every code for the user.
func (store *PostgresStore) DeleteAll(context context.Context, userID string) error {

	if _, err := store.pool.Exec(context,
		`DELETE FROM auth.two_factor_recovery_codes WHERE user_id = $1`, userID,
	); err != nil {
		return fmt.Errorf("recovery_codes_delete_failed: %w", err)
	}

	return nil
}

func scanRecoveryCode(row pgx.Row) (*RecoveryCode, error) {
	var code RecoveryCode

	err := row.Scan(&code.ID, &code.UserID, &code.CodeHash, &code.Used, &code.UsedAt, &code.CreatedAt)
	if err != nil {
		return nil, dberr.Wrap(err, "")
	}

	return &code, nil
}
