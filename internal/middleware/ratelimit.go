package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-key token bucket refilled at limit events per window.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	every      rate.Limit
	burst      int
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:    map[string]*bucket{},
		every:      rate.Every(window / time.Duration(limit)),
		burst:      limit,
		ttl:        10 * time.Minute,
		maxEntries: 10000,
		now:        time.Now,
	}
}

func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.buckets[key]
	if !ok {
		if len(rl.buckets) >= rl.maxEntries {
			rl.pruneLocked(now)
			if len(rl.buckets) >= rl.maxEntries {
				return false, nil
			}
		}
		entry = &bucket{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.buckets[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1), nil
}

func (rl *RateLimiter) pruneLocked(now time.Time) {
	for key, entry := range rl.buckets {
		if now.Sub(entry.lastSeen) > rl.ttl {
			delete(rl.buckets, key)
		}
	}
}

// RedisRateLimiter is a fixed window counter shared by every server
// instance pointing at the same Redis.
type RedisRateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	prefix string
}

func NewRedisRateLimiter(redisURL string, limit int, window time.Duration) (*RedisRateLimiter, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisRateLimiter{
		client: redis.NewClient(opt),
		limit:  int64(limit),
		window: window,
		prefix: "teamflow:ratelimit:",
	}, nil
}

func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := rl.prefix + key
	count, err := rl.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := rl.client.Expire(ctx, redisKey, rl.window).Err(); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= rl.limit, nil
}

func (rl *RedisRateLimiter) Ping(ctx context.Context) error {
	return rl.client.Ping(ctx).Err()
}

func (rl *RedisRateLimiter) Close() error {
	return rl.client.Close()
}
