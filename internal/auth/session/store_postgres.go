// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suoke-life/auth-service/internal/platform/dberr"
	"github.com/suoke-life/auth-service/internal/platform/geo"
)

// PostgresStore implements Store on PostgreSQL (auth.user_sessions).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed session Store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sessionColumns = `
	id, user_id, token_id, device_id, fingerprint, ip, user_agent,
	location, status, is_current, created_at, last_active_at, expires_at
`

/*
Insert persists a new session.

Description: When the session claims is_current, the user's other sessions
are cleared first inside one transaction so the at-most-one invariant holds
even under concurrent logins.

Parameters:
  - context: context.Context
  - session: *Session

Returns:
  - error: Serialization or execution errors
*/
func (store *PostgresStore) Insert(context context.Context, session *Session) error {

	location, err := marshalLocation(session.Location)
	if err != nil {
		return err
	}

	insert := `
		INSERT INTO auth.user_sessions (` + sessionColumns + `)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	args := []any{
		session.ID, session.UserID, session.TokenID, session.DeviceID,
		session.Fingerprint, session.IP, session.UserAgent, location,
		session.Status, session.IsCurrent,
		session.CreatedAt, session.LastActiveAt, session.ExpiresAt,
	}

	// Fast path: not current, single-row insert
	if !session.IsCurrent {
		if _, err := store.pool.Exec(context, insert, args...); err != nil {
			return dberr.Wrap(err, "Session already exists")
		}
		return nil
	}

	// Current session: clear siblings and insert atomically
	transaction, err := store.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("session_insert_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	if _, err := transaction.Exec(context,
		`UPDATE auth.user_sessions SET is_current = FALSE WHERE user_id = $1 AND is_current`,
		session.UserID,
	); err != nil {
		return fmt.Errorf("session_clear_current_failed: %w", err)
	}

	if _, err := transaction.Exec(context, insert, args...); err != nil {
		return dberr.Wrap(err, "Session already exists")
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("session_insert_commit_failed: %w", err)
	}

	return nil
}

// Get returns a session by id.
func (store *PostgresStore) Get(context context.Context, id string) (*Session, error) {

	query := `SELECT ` + sessionColumns + ` FROM auth.user_sessions WHERE id = $1`

	row := store.pool.QueryRow(context, query, id)
	return scanSession(row)
}

// GetByTokenID returns the session bound to an access jti.
func (store *PostgresStore) GetByTokenID(context context.Context, tokenID string) (*Session, error) {

	query := `SELECT ` + sessionColumns + ` FROM auth.user_sessions WHERE token_id = $1`

	row := store.pool.QueryRow(context, query, tokenID)
	return scanSession(row)
}

/*
List returns a page of the user's sessions, newest first, plus the total.

Parameters:
  - context: context.Context
  - userID: string
  - activeOnly: bool
  - limit: int
  - offset: int

Returns:
  - []Session: The page
  - int: Total matching rows
  - error: Query failures
*/
func (store *PostgresStore) List(context context.Context, userID string, activeOnly bool, limit, offset int) ([]Session, int, error) {

	filter := `WHERE user_id = $1`
	if activeOnly {
		filter += ` AND status IN ('active', 'suspicious')`
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM auth.user_sessions ` + filter
	if err := store.pool.QueryRow(context, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("session_count_failed: %w", err)
	}

	listQuery := `
		SELECT ` + sessionColumns + `
		FROM auth.user_sessions ` + filter + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := store.pool.Query(context, listQuery, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("session_list_failed: %w", err)
	}
	defer rows.Close()

	sessions, err := collectSessions(rows)
	if err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

// ListRecentActive returns the user's most recent bearer-valid sessions.
func (store *PostgresStore) ListRecentActive(context context.Context, userID string, limit int) ([]Session, error) {

	query := `
		SELECT ` + sessionColumns + `
		FROM auth.user_sessions
		WHERE user_id = $1
		  AND status IN ('active', 'suspicious')
		  AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := store.pool.Query(context, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("session_recent_list_failed: %w", err)
	}
	defer rows.Close()

	return collectSessions(rows)
}

// UpdateActivity touches last_active_at.
func (store *PostgresStore) UpdateActivity(context context.Context, id string, at time.Time) error {

	tag, err := store.pool.Exec(context,
		`UPDATE auth.user_sessions SET last_active_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("session_activity_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// UpdateStatus sets the status and optionally a new expiry.
func (store *PostgresStore) UpdateStatus(context context.Context, id, status string, expiresAt *time.Time) error {

	var (
		tag pgconn.CommandTag
		err error
	)
	if expiresAt != nil {
		tag, err = store.pool.Exec(context,
			`UPDATE auth.user_sessions SET status = $2, expires_at = $3 WHERE id = $1`,
			id, status, *expiresAt,
		)
	} else {
		tag, err = store.pool.Exec(context,
			`UPDATE auth.user_sessions SET status = $2 WHERE id = $1`,
			id, status,
		)
	}
	if err != nil {
		return fmt.Errorf("session_status_update_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// BindToken records the access jti and device of a session going active.
func (store *PostgresStore) BindToken(context context.Context, id, tokenID, deviceID string) error {

	tag, err := store.pool.Exec(context,
		`UPDATE auth.user_sessions SET token_id = $2, device_id = NULLIF($3, '') WHERE id = $1`,
		id, tokenID, deviceID,
	)
	if err != nil {
		return fmt.Errorf("session_token_bind_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}

	return nil
}

// HasCurrent reports whether the user has any is_current session.
func (store *PostgresStore) HasCurrent(context context.Context, userID string) (bool, error) {

	var exists bool
	err := store.pool.QueryRow(context,
		`SELECT EXISTS (SELECT 1 FROM auth.user_sessions WHERE user_id = $1 AND is_current)`,
		userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("session_current_check_failed: %w", err)
	}

	return exists, nil
}

/*
SetCurrent transactionally makes one session the user's current session.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: dberr.ErrNotFound if the target does not belong to the user
*/
func (store *PostgresStore) SetCurrent(context context.Context, userID, sessionID string) ([]string, error) {

	transaction, err := store.pool.Begin(context)
	if err != nil {
		return nil, fmt.Errorf("session_set_current_begin_failed: %w", err)
	}
	defer func() { _ = transaction.Rollback(context) }()

	rows, err := transaction.Query(context,
		`UPDATE auth.user_sessions SET is_current = FALSE WHERE user_id = $1 AND is_current RETURNING id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("session_clear_current_failed: %w", err)
	}
	changed, err := collectIDs(rows)
	if err != nil {
		return nil, err
	}

	tag, err := transaction.Exec(context,
		`UPDATE auth.user_sessions SET is_current = TRUE WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("session_mark_current_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, dberr.ErrNotFound
	}
	changed = append(changed, sessionID)

	if err := transaction.Commit(context); err != nil {
		return nil, fmt.Errorf("session_set_current_commit_failed: %w", err)
	}

	return changed, nil
}

// RevokeAll marks all non-terminal sessions revoked, optionally sparing one.
func (store *PostgresStore) RevokeAll(context context.Context, userID, exceptID string) ([]string, error) {

	query := `
		UPDATE auth.user_sessions
		SET status = 'revoked', is_current = FALSE
		WHERE user_id = $1
		  AND status NOT IN ('expired', 'revoked')
		  AND ($2 = '' OR id <> $2)
		RETURNING id
	`
	rows, err := store.pool.Query(context, query, userID, exceptID)
	if err != nil {
		return nil, fmt.Errorf("session_revoke_all_failed: %w", err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

// MarkExpired bulk-transitions overdue sessions to expired.
func (store *PostgresStore) MarkExpired(context context.Context, now time.Time) ([]string, error) {

	query := `
		UPDATE auth.user_sessions
		SET status = 'expired', is_current = FALSE
		WHERE expires_at <= $1
		  AND status NOT IN ('expired', 'revoked')
		RETURNING id
	`
	rows, err := store.pool.Query(context, query, now)
	if err != nil {
		return nil, fmt.Errorf("session_expire_sweep_failed: %w", err)
	}
	defer rows.Close()

	return collectIDs(rows)
}

// # Scan Helpers

func scanSession(row pgx.Row) (*Session, error) {
	var (
		session  Session
		tokenID  *string
		deviceID *string
		location []byte
	)

	err := row.Scan(
		&session.ID, &session.UserID, &tokenID, &deviceID,
		&session.Fingerprint, &session.IP, &session.UserAgent,
		&location, &session.Status, &session.IsCurrent,
		&session.CreatedAt, &session.LastActiveAt, &session.ExpiresAt,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "")
	}

	if tokenID != nil {
		session.TokenID = *tokenID
	}
	if deviceID != nil {
		session.DeviceID = *deviceID
	}
	if len(location) > 0 {
		var loc geo.Location
		if err := json.Unmarshal(location, &loc); err == nil {
			session.Location = &loc
		}
	}

	return &session, nil
}

func collectSessions(rows pgx.Rows) ([]Session, error) {
	sessions := []Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session_rows_failed: %w", err)
	}
	return sessions, nil
}

func collectIDs(rows pgx.Rows) ([]string, error) {
	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("session_id_scan_failed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session_rows_failed: %w", err)
	}
	return ids, nil
}

func marshalLocation(location *geo.Location) ([]byte, error) {
	if location == nil {
		return nil, nil
	}
	payload, err := json.Marshal(location)
	if err != nil {
		return nil, fmt.Errorf("session_location_marshal_failed: %w", err)
	}
	return payload, nil
}
