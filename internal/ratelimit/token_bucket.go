package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// millitokens keeps fractional refill exact across the integer-only
// redis reply.
const millitokens = 1000

// KEYS[1] bucket, ARGV[1] refill per second in millitokens, ARGV[2] capacity
// in millitokens, ARGV[3] key ttl in ms. Replies {allowed, remaining}.
const tokenBucketScript = `
local refill = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "level", "at")
local level = tonumber(state[1]) or capacity
local at = tonumber(state[2]) or now
if now > at then
  level = math.min(capacity, level + math.floor((now - at) * refill / 1000))
end

local allowed = 0
if level >= 1000 then
  allowed = 1
  level = level - 1000
end

redis.call("HSET", KEYS[1], "level", level, "at", now)
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return {allowed, level}
`

// Decision is the outcome of taking one token.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// TokenBucket is a redis token bucket with a fixed refill rate and capacity
// shared by every key.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
}

func NewTokenBucket(client *redis.Client, rate float64, burst int) (*TokenBucket, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if rate <= 0 || burst <= 0 {
		return nil, errors.New("token bucket rate and burst must be positive")
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		rate:   rate,
		burst:  burst,
	}, nil
}

// Take removes one token from key's bucket.
func (b *TokenBucket) Take(ctx context.Context, key string) (Decision, error) {
	if key == "" {
		return Decision{}, errors.New("token bucket key is empty")
	}

	res, err := b.script.Run(ctx, b.client, []string{key},
		int64(b.rate*millitokens),
		int64(b.burst)*millitokens,
		b.ttl().Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(res) != 2 {
		return Decision{}, errors.New("token bucket: unexpected script reply")
	}

	return b.decide(res[0] == 1, res[1]), nil
}

func (b *TokenBucket) decide(allowed bool, level int64) Decision {
	d := Decision{Allowed: allowed, Remaining: int(level / millitokens)}
	if !allowed {
		missing := float64(millitokens-level) / millitokens
		d.RetryAfter = time.Duration(missing / b.rate * float64(time.Second))
	}
	return d
}

// ttl lets an idle bucket expire once it would have refilled twice over.
func (b *TokenBucket) ttl() time.Duration {
	seconds := math.Ceil(float64(b.burst) / b.rate * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
