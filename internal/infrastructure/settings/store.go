package settings

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "settings:"

// Store resolves marketplace settings through a TTL cache. Values live
// in redis; each lookup is served from a local cache until its TTL
// expires, and a failed refresh falls back to the last cached value
// rather than failing the caller. A bid must never be rejected because
// the settings backend hiccuped.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]cachedValue
}

type cachedValue struct {
	value     string
	fetchedAt time.Time
}

// NewStore creates a settings store with the given cache TTL
func NewStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		ttl:    ttl,
		logger: logger,
		cache:  make(map[string]cachedValue),
	}
}

// GetString resolves a setting, falling back in order: fresh cache,
// backend, stale cache, supplied default.
func (s *Store) GetString(ctx context.Context, key, fallback string) string {
	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()

	if ok && time.Since(cached.fetchedAt) < s.ttl {
		return cached.value
	}

	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	switch {
	case err == nil:
		s.mu.Lock()
		s.cache[key] = cachedValue{value: val, fetchedAt: time.Now()}
		s.mu.Unlock()
		return val
	case err == redis.Nil:
		return fallback
	default:
		s.logger.Warn("settings lookup failed, using cached or default value",
			zap.String("key", key),
			zap.Error(err))
		if ok {
			return cached.value
		}
		return fallback
	}
}

// GetInt resolves a numeric setting; non-numeric stored values fall back
func (s *Store) GetInt(ctx context.Context, key string, fallback int) int {
	raw := s.GetString(ctx, key, strconv.Itoa(fallback))
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("non-numeric setting value",
			zap.String("key", key),
			zap.String("value", raw))
		return fallback
	}
	return n
}

// Set writes a setting through to the backend and refreshes the cache
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, 0).Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cache[key] = cachedValue{value: value, fetchedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

// Invalidate drops a key from the local cache, forcing the next lookup
// to hit the backend.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}
