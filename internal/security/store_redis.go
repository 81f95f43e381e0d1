// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package security

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/suoke-life/auth-service/internal/platform/constants"
)

// RedisEventStore implements EventStore on Redis.
//
// # Key layout
//
//   - security_log:{type}:{id}           JSON payload, TTL = retention
//   - security_log:user:{uid}:events     sorted set, score = unix millis,
//     member = "{type}:{id}", trimmed to the index size
type RedisEventStore struct {
	client *redis.Client
}

// NewRedisEventStore creates a Redis-backed EventStore.
func NewRedisEventStore(client *redis.Client) *RedisEventStore {
	return &RedisEventStore{client: client}
}

/*
SaveEvent writes the payload and updates the per-user index.

Description: The payload write and the index update are independent
best-effort operations; a partially written event self-heals via TTL.

Parameters:
  - context: context.Context
  - event: Event
  - retention: time.Duration
  - indexSize: int

Returns:
  - error: Serialization or connectivity errors
*/
func (store *RedisEventStore) SaveEvent(context context.Context, event Event, retention time.Duration, indexSize int) error {

	// Serialize the payload
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("security_event_marshal_failed: %w", err)
	}

	// Write the payload with the retention TTL
	payloadKey := eventKey(event.Type, event.ID)
	if err := store.client.Set(context, payloadKey, payload, retention).Err(); err != nil {
		return fmt.Errorf("security_event_set_failed: %w", err)
	}

	// Anonymous events carry no per-user index
	if event.UserID == "" {
		return nil
	}

	// Index the event in the user's recency set
	indexKey := userIndexKey(event.UserID)
	member := event.Type + ":" + event.ID
	score := float64(event.CreatedAt.UnixMilli())

	pipe := store.client.Pipeline()
	pipe.ZAdd(context, indexKey, redis.Z{Score: score, Member: member})
	// Keep only the indexSize highest-scored (most recent) members
	pipe.ZRemRangeByRank(context, indexKey, 0, int64(-(indexSize + 1)))
	pipe.Expire(context, indexKey, retention)

	if _, err := pipe.Exec(context); err != nil {
		return fmt.Errorf("security_event_index_failed: %w", err)
	}

	return nil
}

/*
ListUserEvents returns the most recent events for a user, newest first.

Parameters:
  - context: context.Context
  - userID: string
  - limit: int

Returns:
  - []Event: Decoded events; expired payloads are skipped silently
  - error: Connectivity errors
*/
func (store *RedisEventStore) ListUserEvents(context context.Context, userID string, limit int) ([]Event, error) {

	// Read the newest members from the index
	indexKey := userIndexKey(userID)
	members, err := store.client.ZRevRange(context, indexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("security_event_index_read_failed: %w", err)
	}

	events := make([]Event, 0, len(members))
	for _, member := range members {

		// Member format is "{type}:{id}"; the payload key shares that suffix
		payloadKey := constants.RedisPrefixSecurityLog + member
		raw, err := store.client.Get(context, payloadKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Payload expired before the index entry; skip
				continue
			}
			return nil, fmt.Errorf("security_event_read_failed: %w", err)
		}

		var event Event
		if err := json.Unmarshal([]byte(raw), &event); err != nil {
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// eventKey builds the payload key: security_log:{type}:{id}.
func eventKey(eventType, eventID string) string {
	return constants.RedisPrefixSecurityLog + eventType + ":" + eventID
}

// userIndexKey builds the index key: security_log:user:{uid}:events.
func userIndexKey(userID string) string {
	return constants.RedisPrefixSecurityLogUser + userID + ":events"
}
