package ratelimit

import (
	"context"
	"errors"
	"time"

	"receiptd/internal/domain"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "receiptd:ratelimit:"

// RedisLimiter shares fixed-window counters between replicas.
type RedisLimiter struct {
	client *redis.Client
	now    func() time.Time
}

var allowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

func NewRedisLimiter(addr, password string, db int, now func() time.Time) (*RedisLimiter, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisLimiterWithClient(client, now), nil
}

func NewRedisLimiterWithClient(client *redis.Client, now func() time.Time) *RedisLimiter {
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{client: client, now: now}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	periodMillis := period.Milliseconds()
	if periodMillis <= 0 {
		periodMillis = 1000
	}
	values, err := allowScript.Run(ctx, r.client, []string{keyPrefix + key}, periodMillis).Int64Slice()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	if len(values) < 2 {
		return domain.RateLimitDecision{}, errors.New("unexpected redis rate limit response")
	}
	return decisionFromCounter(values[0], values[1], limit, r.now()), nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}

func decisionFromCounter(current, ttlMillis int64, limit int, now time.Time) domain.RateLimitDecision {
	resetAt := now
	if ttlMillis > 0 {
		resetAt = now.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   current <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
