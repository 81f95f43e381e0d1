// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCache(t *testing.T) {
	t.Run("set_get_round_trip", func(t *testing.T) {
		cache := NewMemoryCache()
		cache.Set("k", true, time.Minute)

		value, ok := cache.Get("k")
		assert.True(t, ok)
		assert.Equal(t, true, value)
	})

	t.Run("miss_returns_not_ok", func(t *testing.T) {
		cache := NewMemoryCache()

		_, ok := cache.Get("absent")
		assert.False(t, ok)
	})

	t.Run("expired_entry_is_a_miss", func(t *testing.T) {
		cache := NewMemoryCache()
		cache.Set("k", true, -time.Second)

		_, ok := cache.Get("k")
		assert.False(t, ok)
	})

	t.Run("sweep_evicts_only_expired", func(t *testing.T) {
		cache := NewMemoryCache()
		cache.Set("dead", 1, -time.Second)
		cache.Set("alive", 2, time.Minute)

		assert.Equal(t, 1, cache.Sweep())
		assert.Equal(t, 1, cache.Len())

		_, ok := cache.Get("alive")
		assert.True(t, ok)
	})

	t.Run("delete_prefix_scopes_to_prefix", func(t *testing.T) {
		cache := NewMemoryCache()
		cache.Set("u1:knowledge_base:kb1:read", true, time.Minute)
		cache.Set("u1:graph_node:g1:read", false, time.Minute)
		cache.Set("u2:knowledge_base:kb1:read", true, time.Minute)

		cache.DeletePrefix("u1:")

		_, ok := cache.Get("u1:knowledge_base:kb1:read")
		assert.False(t, ok)
		_, ok = cache.Get("u2:knowledge_base:kb1:read")
		assert.True(t, ok)
	})
}
