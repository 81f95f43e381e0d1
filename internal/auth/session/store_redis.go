// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suoke-life/auth-service/internal/platform/constants"
)

// RedisCache implements Cache on Redis, keyed session:{id}.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a Redis-backed session Cache.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Set writes the session snapshot with the given TTL.
func (cache *RedisCache) Set(context context.Context, session *Session, ttl time.Duration) error {

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session_cache_marshal_failed: %w", err)
	}

	key := constants.RedisPrefixSession + session.ID
	if err := cache.client.Set(context, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("session_cache_set_failed: %w", err)
	}

	return nil
}

// Get returns the cached snapshot, or (nil, nil) on a miss.
func (cache *RedisCache) Get(context context.Context, id string) (*Session, error) {

	key := constants.RedisPrefixSession + id
	raw, err := cache.client.Get(context, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("session_cache_get_failed: %w", err)
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		// A corrupt snapshot is treated as a miss; the store is authoritative
		return nil, nil
	}

	return &session, nil
}

// Delete evicts the snapshot. Missing keys are fine.
func (cache *RedisCache) Delete(context context.Context, id string) error {

	key := constants.RedisPrefixSession + id
	if err := cache.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("session_cache_delete_failed: %w", err)
	}

	return nil
}
