package lock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long a crashed holder can keep the lock. A live
// holder renews the lease every third of the TTL until Release.
const DefaultRedisTTL = 10 * time.Minute

// releaseScript deletes the key only if this holder still owns it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// renewScript extends the lease only if this holder still owns it.
const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`

// RedisClient is the subset of *redis.Client the provider needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

type RedisProvider struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisProvider(client RedisClient, ttl time.Duration) *RedisProvider {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisProvider{client: client, prefix: "lock:", ttl: ttl}
}

func (p *RedisProvider) Acquire(ctx context.Context, name string, timeout time.Duration) (Lock, error) {
	key := p.prefix + name
	return acquire(ctx, timeout, func(ctx context.Context) (Lock, bool, error) {
		token := uuid.NewString()
		ok, err := p.client.SetNX(ctx, key, token, p.ttl).Result()
		if err != nil {
			return nil, false, fmt.Errorf("redis lock: %w", err)
		}
		if !ok {
			return nil, false, nil
		}
		l := &redisLock{
			client: p.client,
			key:    key,
			token:  token,
			ttl:    p.ttl,
			stop:   make(chan struct{}),
			done:   make(chan struct{}),
		}
		go l.keepAlive()
		return l, true, nil
	})
}

type redisLock struct {
	client RedisClient
	key    string
	token  string
	ttl    time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func (l *redisLock) keepAlive() {
	defer close(l.done)
	interval := l.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := l.client.Eval(ctx, renewScript, []string{l.key}, l.token, l.ttl.Milliseconds()).Int64()
			cancel()
			if err != nil {
				slog.Warn("redis lock renewal failed", slog.String("key", l.key), slog.Any("error", err))
				continue
			}
			if n == 0 {
				slog.Error("redis lock lost before release", slog.String("key", l.key))
				return
			}
		}
	}
}

func (l *redisLock) Release(ctx context.Context) error {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
	if err := l.client.Eval(ctx, releaseScript, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("redis unlock: %w", err)
	}
	return nil
}
