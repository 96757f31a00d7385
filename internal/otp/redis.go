package otp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// checkCodeLua applies the expiry, lockout and match rules in one step.
// Times are unix milliseconds. The stored code is a SHA-256 hex digest.
var checkCodeLua = redis.NewScript(`
local rec = redis.call('HMGET', KEYS[1], 'code_hash', 'expires_at', 'attempts', 'verified')
if not rec[1] then
  return 'not_found'
end

local providedHash = ARGV[1]
local nowMs = tonumber(ARGV[2])
local maxAttempts = tonumber(ARGV[3])
local consume = ARGV[4] == '1'

local expiresAt = tonumber(rec[2])
local attempts = tonumber(rec[3]) or 0
local verified = rec[4] == '1'

if expiresAt == nil or nowMs > expiresAt then
  redis.call('DEL', KEYS[1])
  return 'expired'
end

if not verified and attempts >= maxAttempts then
  redis.call('DEL', KEYS[1])
  return 'locked_out'
end

if rec[1] == providedHash then
  if consume then
    redis.call('DEL', KEYS[1])
  elseif not verified then
    redis.call('HSET', KEYS[1], 'verified', '1')
  end
  return 'success'
end

if not verified then
  redis.call('HINCRBY', KEYS[1], 'attempts', 1)
end
return 'mismatch'
`)

// RedisStore keeps one hash per identifier and applies every check in a
// server-side script, so concurrent callers never race or retry. Keys live
// for TTL plus retention so an aged-out record is still reported as Expired
// before Redis drops it.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedisStore creates a Redis-backed Store
func NewRedisStore(redisClient redis.UniversalClient, prefix string, cfg Config) *RedisStore {
	if prefix == "" {
		prefix = "otp:recovery"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
		cfg:    cfg.withDefaults(),
	}
}

func (s *RedisStore) key(identifier string) string {
	return s.prefix + ":" + identifier
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

func (s *RedisStore) Issue(ctx context.Context, identifier string) (string, error) {
	code, err := s.cfg.Generate()
	if err != nil {
		return "", err
	}

	rec := newRecord(identifier, code, s.cfg.Now(), s.cfg.TTL)
	key := s.key(identifier)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			"code_hash", hashCode(rec.Code),
			"issued_at", rec.IssuedAt.UnixMilli(),
			"expires_at", rec.ExpiresAt.UnixMilli(),
			"attempts", 0,
			"verified", "0",
		)
		pipe.Expire(ctx, key, s.cfg.TTL+s.cfg.Retention)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return code, nil
}

func (s *RedisStore) Verify(ctx context.Context, identifier, code string) (Result, error) {
	return s.apply(ctx, identifier, code, false)
}

func (s *RedisStore) Consume(ctx context.Context, identifier, code string) (Result, error) {
	return s.apply(ctx, identifier, code, true)
}

func (s *RedisStore) apply(ctx context.Context, identifier, code string, consume bool) (Result, error) {
	consumeArg := "0"
	if consume {
		consumeArg = "1"
	}

	out, err := checkCodeLua.Run(ctx, s.redis,
		[]string{s.key(identifier)},
		hashCode(code),
		s.cfg.Now().UnixMilli(),
		s.cfg.MaxAttempts,
		consumeArg,
	).Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch result := Result(out); result {
	case Success, NotFound, Expired, LockedOut, Mismatch:
		return result, nil
	default:
		return "", fmt.Errorf("%w: unexpected script result %q", ErrUnavailable, out)
	}
}

func (s *RedisStore) Invalidate(ctx context.Context, identifier string) error {
	if err := s.redis.Del(ctx, s.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
