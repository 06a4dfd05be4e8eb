package ratelimit

import (
	"log/slog"

	"receiptd/internal/config"
	"receiptd/internal/domain"
)

// NewFromConfig returns nil when rate limiting is disabled.
func NewFromConfig(cfg config.Config, log *slog.Logger) (domain.RateLimiter, error) {
	if cfg.RateLimitRequests <= 0 {
		return nil, nil
	}
	if cfg.RedisAddr != "" {
		log.Info("rate limiting with redis", "addr", cfg.RedisAddr, "requests", cfg.RateLimitRequests, "window", cfg.RateLimitWindow())
		limiter, err := NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, nil)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}
	log.Info("rate limiting in memory", "requests", cfg.RateLimitRequests, "window", cfg.RateLimitWindow())
	return NewMemoryLimiter(MemoryLimiterConfig{MaxKeys: cfg.RateLimitMaxKeys}), nil
}
