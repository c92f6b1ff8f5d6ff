package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/logging"
	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "taskkeeper:ratelimit:"

type redisLimiter struct {
	client  *redis.Client
	log     logging.Logger
	timeout time.Duration
}

// NewRedis connects to Redis and returns a Limiter shared by every server
// using the same instance. Redis failures let the request through.
func NewRedis(ctx context.Context, addr, password string, db int, log logging.Logger) (Limiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisLimiter{
		client:  client,
		log:     log.With("module", "ratelimit"),
		timeout: 250 * time.Millisecond,
	}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string, limit int, win time.Duration) Decision {
	if limit <= 0 {
		return Decision{Allowed: true}
	}
	if win <= 0 {
		win = DefaultWindow
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	redisKey := redisKeyPrefix + key
	counter, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		l.log.Error(ctx, "redis rate limiter error", "op", "incr", "error", err)
		return Decision{Allowed: true}
	}
	if counter == 1 {
		if err := l.client.Expire(ctx, redisKey, win).Err(); err != nil {
			l.log.Error(ctx, "redis rate limiter error", "op", "expire", "error", err)
		}
	}
	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = win
	}
	return Decision{
		Allowed:   int(counter) <= limit,
		Count:     int(counter),
		WindowEnd: time.Now().Add(ttl),
	}
}

func (l *redisLimiter) Close() error {
	return l.client.Close()
}
