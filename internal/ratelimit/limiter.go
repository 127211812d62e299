package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	keyTokenEndpoint = "auth:token:ip:%s"
	keySlugLock      = "orders:slug:lock:%s"

	lockPollInterval = 25 * time.Millisecond
)

var ErrLockTimeout = errors.New("lock wait timed out")

// Limiter throttles credential exchange per client and guards slug
// assignment. A nil Limiter allows everything and locks nothing.
type Limiter struct {
	bucket  *TokenBucket
	locker  *Locker
	metrics *metrics.Metrics
	log     *zap.Logger

	slugLockTTL time.Duration
}

type Options struct {
	TokenRate   float64
	TokenBurst  int
	SlugLockTTL time.Duration
}

// NewLimiter builds the redis-backed limiter, or returns nil when rate
// limiting is disabled.
func NewLimiter(lc fx.Lifecycle, cfg config.Config, m *metrics.Metrics, log *zap.Logger) (*Limiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	limiter, err := New(client, Options{
		TokenRate:   limitCfg.TokenRate,
		TokenBurst:  limitCfg.TokenBurst,
		SlugLockTTL: limitCfg.SlugLockTTL,
	}, m, log)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return client.Close()
			},
		})
	}
	return limiter, nil
}

func New(client *redis.Client, opts Options, m *metrics.Metrics, log *zap.Logger) (*Limiter, error) {
	bucket, err := NewTokenBucket(client, opts.TokenRate, opts.TokenBurst)
	if err != nil {
		return nil, err
	}
	if opts.SlugLockTTL <= 0 {
		return nil, errors.New("slug lock ttl must be positive")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Limiter{
		bucket:      bucket,
		locker:      NewLocker(client),
		metrics:     m,
		log:         log.Named("ratelimit"),
		slugLockTTL: opts.SlugLockTTL,
	}, nil
}

func (l *Limiter) Enabled() bool {
	return l != nil
}

// AllowTokenRequest consumes one token from the caller's bucket. Redis
// failures fail open so an outage does not lock users out.
func (l *Limiter) AllowTokenRequest(ctx context.Context, clientIP string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}

	key := fmt.Sprintf(keyTokenEndpoint, strings.TrimSpace(clientIP))
	d, err := l.bucket.Take(ctx, key)
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if !d.Allowed {
		l.metrics.RecordRateLimitDenied(ctx, "/token/", "exhausted")
	}
	return d, nil
}

// LockSlug waits for the per-slug lock for at most the lock TTL.
func (l *Limiter) LockSlug(ctx context.Context, base string) (func(), error) {
	if !l.Enabled() {
		return func() {}, nil
	}

	key := fmt.Sprintf(keySlugLock, base)
	token, err := l.locker.Acquire(ctx, key, l.slugLockTTL, l.slugLockTTL)
	if err != nil {
		return func() {}, err
	}

	return func() {
		// the caller's context may already be cancelled
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := l.locker.Release(releaseCtx, key, token); err != nil {
			l.log.Warn("slug lock release failed", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
