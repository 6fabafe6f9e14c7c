package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisLocker is a Locker backed by redsync mutexes, so the per-flight
// critical section holds across several API instances.  TTL bounds how
// long a crashed holder can block others.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisLocker builds a RedisLocker on an existing client.
func NewRedisLocker(client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: "lock:",
		ttl:    ttl,
		log:    log,
	}
}

// Lock acquires the distributed mutex for key, retrying until ctx is done
// or redsync gives up.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	m := l.rs.NewMutex(l.prefix+key,
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(64),
		redsync.WithRetryDelay(25*time.Millisecond),
	)
	if err := m.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	return func() {
		if _, err := m.UnlockContext(context.Background()); err != nil {
			l.log.Warn("release lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
