package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seminar-ops/scheduling-api/internal/models"
	appErrors "github.com/seminar-ops/scheduling-api/pkg/errors"
)

// SuggestionCache stores computed match results keyed by a freshness
// signature of the course and trainer pool. Entries are immutable once
// written; expired entries are ignored and later overwritten.
type SuggestionCache interface {
	Get(ctx context.Context, key string) (*models.TrainerMatchResult, bool)
	Set(ctx context.Context, key string, result models.TrainerMatchResult)
}

type memoryCacheEntry struct {
	expiresAt time.Time
	result    models.TrainerMatchResult
}

// MemorySuggestionCache is the in-process cache. The clock is injected so
// tests can drive TTL expiry deterministically.
type MemorySuggestionCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemorySuggestionCache constructs a cache with the given TTL. A nil
// clock defaults to time.Now.
func NewMemorySuggestionCache(ttl time.Duration, now func() time.Time) *MemorySuggestionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &MemorySuggestionCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get returns the cached result when present and unexpired.
func (c *MemorySuggestionCache) Get(_ context.Context, key string) (*models.TrainerMatchResult, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !entry.expiresAt.After(c.now()) {
		return nil, false
	}
	result := entry.result
	return &result, true
}

// Set stores the result under the key for one TTL window.
func (c *MemorySuggestionCache) Set(_ context.Context, key string, result models.TrainerMatchResult) {
	c.mu.Lock()
	c.entries[key] = memoryCacheEntry{expiresAt: c.now().Add(c.ttl), result: result}
	c.mu.Unlock()
}

type redisCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RedisSuggestionCache shares match results across processes through
// Redis. Lookup failures degrade to a miss; write failures are logged and
// swallowed so caching never breaks a match request.
type RedisSuggestionCache struct {
	store  redisCacheStore
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSuggestionCache constructs the Redis-backed cache.
func NewRedisSuggestionCache(store redisCacheStore, ttl time.Duration, logger *zap.Logger) *RedisSuggestionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisSuggestionCache{store: store, ttl: ttl, logger: logger}
}

// Get returns the cached result when present.
func (c *RedisSuggestionCache) Get(ctx context.Context, key string) (*models.TrainerMatchResult, bool) {
	var result models.TrainerMatchResult
	if err := c.store.Get(ctx, key, &result); err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("match cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &result, true
}

// Set stores the result for one TTL window.
func (c *RedisSuggestionCache) Set(ctx context.Context, key string, result models.TrainerMatchResult) {
	if err := c.store.Set(ctx, key, result, c.ttl); err != nil {
		c.logger.Warn("match cache set failed", zap.String("key", key), zap.Error(err))
	}
}
