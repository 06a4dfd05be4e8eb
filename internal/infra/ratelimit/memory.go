package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"receiptd/internal/domain"
)

var errCapacity = errors.New("rate limiter capacity exceeded")

// MemoryLimiter keeps the redis limiter's counters in process memory: every
// hit increments the counter, rejected ones included, and the window is fixed
// by the first hit. Decisions come from decisionFromCounter, as for redis.
type MemoryLimiter struct {
	mu       sync.Mutex
	now      func() time.Time
	counters map[string]*counter
	maxKeys  int
}

type counter struct {
	hits      int64
	expiresAt time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryLimiter(cfg MemoryLimiterConfig) *MemoryLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &MemoryLimiter{
		now:      cfg.Now,
		counters: make(map[string]*counter),
		maxKeys:  cfg.MaxKeys,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, period time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if period < time.Millisecond {
		period = time.Second
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[key]
	if !ok {
		if len(m.counters) >= m.maxKeys {
			m.evictExpired(now)
		}
		if len(m.counters) >= m.maxKeys {
			return domain.RateLimitDecision{}, errCapacity
		}
		c = &counter{}
		m.counters[key] = c
	}
	if !now.Before(c.expiresAt) {
		c.hits = 0
		c.expiresAt = now.Add(period)
	}
	c.hits++
	return decisionFromCounter(c.hits, c.expiresAt.Sub(now).Milliseconds(), limit, now), nil
}

func (m *MemoryLimiter) evictExpired(now time.Time) {
	for key, c := range m.counters {
		if !now.Before(c.expiresAt) {
			delete(m.counters, key)
		}
	}
}
