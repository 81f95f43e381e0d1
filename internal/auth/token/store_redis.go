// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suoke-life/auth-service/internal/platform/constants"
)

// RedisStore implements Store on Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed token Store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

/*
SaveMetadata writes the token:{jti} record.

Parameters:
  - context: context.Context
  - jti: string
  - metadata: Metadata
  - ttl: time.Duration

Returns:
  - error: Serialization or connectivity errors
*/
func (store *RedisStore) SaveMetadata(context context.Context, jti string, metadata Metadata, ttl time.Duration) error {

	payload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("token_metadata_marshal_failed: %w", err)
	}

	key := constants.RedisPrefixToken + jti
	if err := store.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("token_metadata_set_failed: %w", err)
	}

	return nil
}

/*
GetMetadata returns the token:{jti} record.

Description: Returns (nil, nil) when the record is absent or expired, so
callers can treat "unknown jti" as a soft condition.

Parameters:
  - context: context.Context
  - jti: string

Returns:
  - *Metadata: The record, or nil when absent
  - error: Connectivity errors
*/
func (store *RedisStore) GetMetadata(context context.Context, jti string) (*Metadata, error) {

	key := constants.RedisPrefixToken + jti
	raw, err := store.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("token_metadata_get_failed: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("token_metadata_unmarshal_failed: %w", err)
	}

	return &metadata, nil
}

// DeleteMetadata removes the token:{jti} record.
func (store *RedisStore) DeleteMetadata(context context.Context, jti string) error {
	key := constants.RedisPrefixToken + jti
	if err := store.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("token_metadata_delete_failed: %w", err)
	}
	return nil
}

/*
Blacklist marks a jti revoked.

Parameters:
  - context: context.Context
  - jti: string
  - ttl: time.Duration

Returns:
  - error: Connectivity errors
*/
func (store *RedisStore) Blacklist(context context.Context, jti string, ttl time.Duration) error {

	key := constants.RedisPrefixBlacklist + jti
	if err := store.client.Set(context, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("token_blacklist_set_failed: %w", err)
	}

	return nil
}

// IsBlacklisted reports whether a jti is revoked.
func (store *RedisStore) IsBlacklisted(context context.Context, jti string) (bool, error) {

	key := constants.RedisPrefixBlacklist + jti
	count, err := store.client.Exists(context, key).Result()
	if err != nil {
		return false, fmt.Errorf("token_blacklist_check_failed: %w", err)
	}

	return count > 0, nil
}

/*
AddUserTokens registers jtis in the user_tokens:{user_id} set.

Description: The set's TTL is pushed out to at least the given token TTL so
the set never outlives its longest-lived member by much, yet is never
evicted while members are still live.

Parameters:
  - context: context.Context
  - userID: string
  - jtis: []string
  - ttl: time.Duration

Returns:
  - error: Connectivity errors
*/
func (store *RedisStore) AddUserTokens(context context.Context, userID string, jtis []string, ttl time.Duration) error {

	if len(jtis) == 0 {
		return nil
	}

	key := constants.RedisPrefixUserTokens + userID
	members := make([]any, len(jtis))
	for i, jti := range jtis {
		members[i] = jti
	}

	pipe := store.client.Pipeline()
	pipe.SAdd(context, key, members...)
	// ExpireGT only extends the TTL, never shortens it
	pipe.ExpireGT(context, key, ttl)
	pipe.ExpireNX(context, key, ttl)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("user_tokens_add_failed: %w", err)
	}

	return nil
}

// RemoveUserToken drops a jti from the user_tokens:{user_id} set.
func (store *RedisStore) RemoveUserToken(context context.Context, userID, jti string) error {

	key := constants.RedisPrefixUserTokens + userID
	if err := store.client.SRem(context, key, jti).Err(); err != nil {
		return fmt.Errorf("user_tokens_remove_failed: %w", err)
	}

	return nil
}

// ListUserTokens returns all jtis registered for the user.
func (store *RedisStore) ListUserTokens(context context.Context, userID string) ([]string, error) {

	key := constants.RedisPrefixUserTokens + userID
	jtis, err := store.client.SMembers(context, key).Result()
	if err != nil {
		return nil, fmt.Errorf("user_tokens_list_failed: %w", err)
	}

	return jtis, nil
}

// SetPasswordResetJTI stores the currently valid reset jti for a user.
func (store *RedisStore) SetPasswordResetJTI(context context.Context, userID, jti string, ttl time.Duration) error {

	key := constants.RedisPrefixPasswordReset + userID
	if err := store.client.Set(context, key, jti, ttl).Err(); err != nil {
		return fmt.Errorf("password_reset_set_failed: %w", err)
	}

	return nil
}

// GetPasswordResetJTI returns the stored reset jti, or "" when absent.
func (store *RedisStore) GetPasswordResetJTI(context context.Context, userID string) (string, error) {

	key := constants.RedisPrefixPasswordReset + userID
	jti, err := store.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("password_reset_get_failed: %w", err)
	}

	return jti, nil
}

// DeletePasswordResetJTI invalidates the stored reset jti.
func (store *RedisStore) DeletePasswordResetJTI(context context.Context, userID string) error {

	key := constants.RedisPrefixPasswordReset + userID
	if err := store.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("password_reset_delete_failed: %w", err)
	}

	return nil
}
