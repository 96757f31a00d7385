// Package ratelimit throttles recovery requests per identifier with a Redis
// fixed-window counter.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("rate limiter redis unavailable")
)

// hitLua increments the counter and sets the window TTL whenever the key has
// none, so a counter can never outlive its window.
var hitLua = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

type Config struct {
	Prefix string
	Limit  int
	Window time.Duration
}

// Limiter allows at most Limit hits per key within Window
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

func NewLimiter(redisClient redis.UniversalClient, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "rl:recovery"
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records a hit for key and returns ErrRateLimited once the window's budget is spent
func (l *Limiter) Allow(ctx context.Context, key string) error {
	if l.config.Limit <= 0 {
		return nil
	}

	count, err := hitLua.Run(ctx, l.redis,
		[]string{l.config.Prefix + ":" + key},
		l.config.Window.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count > int64(l.config.Limit) {
		return ErrRateLimited
	}
	return nil
}
