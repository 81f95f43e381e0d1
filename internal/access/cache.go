// Copyright (c) 2026 Suoke Life. All rights reserved.
// Author: dev@suoke.life

package access

import (
	"context"
	"strings"
	"sync"
	"time"
)

// SweepInterval is how often the in-process cache evicts expired entries.
const SweepInterval = 5 * time.Minute

// memoryEntry is one cached value with its absolute expiry.
type memoryEntry struct {
	value     any
	expiresAt time.Time
}

// MemoryCache is the in-process decision cache shared across request
// goroutines. Reads take the read lock only; the sweep holds the write lock
// for the expired entries it actually deletes.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Get returns the cached value, or (nil, false) on a miss or an expired
// entry. Expired entries are left for the sweep.
func (cache *MemoryCache) Get(key string) (any, bool) {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	entry, ok := cache.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.value, true
}

// Set stores a value with a TTL.
func (cache *MemoryCache) Set(key string, value any, timeToLive time.Duration) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(timeToLive)}
}

// Delete removes one entry.
func (cache *MemoryCache) Delete(key string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	delete(cache.entries, key)
}

// DeletePrefix removes every entry whose key starts with the prefix.
func (cache *MemoryCache) DeletePrefix(prefix string) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	for key := range cache.entries {
		if strings.HasPrefix(key, prefix) {
			delete(cache.entries, key)
		}
	}
}

// Sweep evicts expired entries and returns how many were removed.
func (cache *MemoryCache) Sweep() int {
	now := time.Now()

	cache.mu.Lock()
	defer cache.mu.Unlock()

	removed := 0
	for key, entry := range cache.entries {
		if now.After(entry.expiresAt) {
			delete(cache.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the current entry count, expired entries included.
func (cache *MemoryCache) Len() int {
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return len(cache.entries)
}

// StartSweeper runs the periodic eviction until the context is canceled.
func (cache *MemoryCache) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cache.Sweep()
			}
		}
	}()
}
