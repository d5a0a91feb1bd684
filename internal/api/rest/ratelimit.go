package rest

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hungtmh/online-auction-system-sub000/internal/infrastructure/config"
)

// RedisRateLimiter enforces a per-client request budget using a fixed
// one-second window in Redis. When Redis is unreachable it degrades to
// a per-process token bucket instead of failing open entirely.
type RedisRateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig

	mu    sync.Mutex
	local map[string]*rate.Limiter
}

// NewRedisRateLimiter creates a new Redis-backed rate limiter
func NewRedisRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{
		client: client,
		cfg:    cfg,
		local:  make(map[string]*rate.Limiter),
	}
}

// Middleware returns the rate limiting middleware
func (rl *RedisRateLimiter) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.cfg.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			if !rl.allow(r) {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.RequestsPerSecond))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				http.Error(w, `{"code":"RATE_LIMITED","message":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RedisRateLimiter) allow(r *http.Request) bool {
	key := clientKey(r)

	window := time.Now().Truncate(time.Second).Unix()
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, window)

	count, err := rl.client.Incr(r.Context(), redisKey).Result()
	if err != nil {
		return rl.allowLocal(key)
	}
	if count == 1 {
		rl.client.Expire(r.Context(), redisKey, 2*time.Second)
	}
	return count <= int64(rl.cfg.RequestsPerSecond)
}

func (rl *RedisRateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.local[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.BurstSize)
		rl.local[key] = limiter
	}
	return limiter.Allow()
}

func clientKey(r *http.Request) string {
	if userID := r.Header.Get("X-User-ID"); userID != "" {
		return "user:" + userID
	}
	ip := r.Header.Get("X-Real-IP")
	if ip == "" {
		ip = r.Header.Get("X-Forwarded-For")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
