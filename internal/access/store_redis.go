// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suoke-life/auth-service/internal/platform/constants"
)

// invalidationScanCount is the SCAN batch size used when sweeping a user's
// decision keys.
const invalidationScanCount = 200

// RedisKV implements KV on Redis.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates the Redis-backed cache tier.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// GetDecision returns a cached access decision.
func (store *RedisKV) GetDecision(context context.Context, key string) (bool, bool, error) {

	value, err := store.client.Get(context, constants.RedisPrefixAccess+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil
		}
		return false, false, fmt.Errorf("access_decision_get_failed: %w", err)
	}

	return value == "true", true, nil
}

// SetDecision caches one access decision.
func (store *RedisKV) SetDecision(context context.Context, key string, allowed bool, timeToLive time.Duration) error {

	value := "false"
	if allowed {
		value = "true"
	}

	if err := store.client.Set(context, constants.RedisPrefixAccess+key, value, timeToLive).Err(); err != nil {
		return fmt.Errorf("access_decision_set_failed: %w", err)
	}

	return nil
}

// GetPermissionSet returns a cached effective set.
func (store *RedisKV) GetPermissionSet(context context.Context, userID string) ([]string, bool, error) {
	return store.getList(context, constants.RedisPrefixUserPermissions+userID)
}

// SetPermissionSet caches an effective set.
func (store *RedisKV) SetPermissionSet(context context.Context, userID string, permissions []string, timeToLive time.Duration) error {
	return store.setList(context, constants.RedisPrefixUserPermissions+userID, permissions, timeToLive)
}

// GetRoleUnion returns the cached resolved grants for a role combination.
func (store *RedisKV) GetRoleUnion(context context.Context, roleKey string) ([]string, bool, error) {
	return store.getList(context, constants.RedisPrefixRolePermissions+roleKey)
}

// SetRoleUnion caches a role combination's resolved grants.
func (store *RedisKV) SetRoleUnion(context context.Context, roleKey string, permissions []string, timeToLive time.Duration) error {
	return store.setList(context, constants.RedisPrefixRolePermissions+roleKey, permissions, timeToLive)
}

// InvalidateUser drops the cached set and sweeps the user's decision keys
// with a cursor SCAN, never a blocking KEYS.
func (store *RedisKV) InvalidateUser(context context.Context, userID string) error {

	if err := store.client.Del(context, constants.RedisPrefixUserPermissions+userID).Err(); err != nil {
		return fmt.Errorf("permission_set_invalidate_failed: %w", err)
	}

	pattern := constants.RedisPrefixAccess + userID + ":*"
	var cursor uint64
	for {
		keys, next, err := store.client.Scan(context, cursor, pattern, invalidationScanCount).Result()
		if err != nil {
			return fmt.Errorf("access_decision_scan_failed: %w", err)
		}
		if len(keys) > 0 {
			if err := store.client.Del(context, keys...).Err(); err != nil {
				return fmt.Errorf("access_decision_invalidate_failed: %w", err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (store *RedisKV) getList(context context.Context, key string) ([]string, bool, error) {

	payload, err := store.client.Get(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("permission_list_get_failed: %w", err)
	}

	var list []string
	if err := json.Unmarshal(payload, &list); err != nil {
		// Corrupt snapshot: treat as a miss, the writer will repopulate
		return nil, false, nil
	}

	return list, true, nil
}

func (store *RedisKV) setList(context context.Context, key string, list []string, timeToLive time.Duration) error {

	payload, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("permission_list_encode_failed: %w", err)
	}

	if err := store.client.Set(context, key, payload, timeToLive).Err(); err != nil {
		return fmt.Errorf("permission_list_set_failed: %w", err)
	}

	return nil
}
