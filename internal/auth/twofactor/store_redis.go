// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package twofactor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suoke-life/auth-service/internal/platform/constants"
)

// RedisSetupStore implements SetupStore on Redis.
type RedisSetupStore struct {
	client *redis.Client
}

// NewRedisSetupStore creates a Redis-backed SetupStore.
func NewRedisSetupStore(client *redis.Client) *RedisSetupStore {
	return &RedisSetupStore{client: client}
}

func setupKey(userID, setupID string) string {
	return constants.RedisPrefixTwoFactorSetup + userID + ":" + setupID
}

// SaveSetup stores a pending enrollment with a TTL.
func (store *RedisSetupStore) SaveSetup(context context.Context, setup *Setup, timeToLive time.Duration) error {

	payload, err := json.Marshal(setup)
	if err != nil {
		return fmt.Errorf("two_factor_setup_encode_failed: %w", err)
	}

	if err := store.client.Set(context, setupKey(setup.UserID, setup.ID), payload, timeToLive).Err(); err != nil {
		return fmt.Errorf("two_factor_setup_save_failed: %w", err)
	}

	return nil
}

// GetSetup returns the pending enrollment, or (nil, nil) after expiry.
func (store *RedisSetupStore) GetSetup(context context.Context, userID, setupID string) (*Setup, error) {

	payload, err := store.client.Get(context, setupKey(userID, setupID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("two_factor_setup_get_failed: %w", err)
	}

	var setup Setup
	if err := json.Unmarshal(payload, &setup); err != nil {
		return nil, fmt.Errorf("two_factor_setup_decode_failed: %w", err)
	}

	return &setup, nil
}

// DeleteSetup removes a pending enrollment.
func (store *RedisSetupStore) DeleteSetup(context context.Context, userID, setupID string) error {

	if err := store.client.Del(context, setupKey(userID, setupID)).Err(); err != nil {
		return fmt.Errorf("two_factor_setup_delete_failed: %w", err)
	}

	return nil
}
