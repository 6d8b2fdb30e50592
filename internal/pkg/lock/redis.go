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

// Options configures RedLock acquisition
type Options struct {
	// Expiry is how long the lock lives if the holder dies
	Expiry time.Duration
	// Tries is the number of acquisition attempts
	Tries int
	// RetryDelay is the pause between attempts
	RetryDelay time.Duration
}

// DefaultOptions returns the defaults used for borrower locks
func DefaultOptions() Options {
	return Options{
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// RedisLocker is a distributed lock on the RedLock algorithm
type RedisLocker struct {
	rs   *redsync.Redsync
	opts Options
	log  *zap.Logger
}

// NewRedisLocker creates a locker on top of client
func NewRedisLocker(client redis.UniversalClient, opts Options, log *zap.Logger) *RedisLocker {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisLocker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
		log:  log,
	}
}

// WithLock executes fn while holding key. The lock is released when fn returns.
func (l *RedisLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		l.log.Warn("failed to acquire lock", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, err)
	}

	defer func() {
		// Release with a fresh context so an expired request context still unlocks.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			l.log.Error("failed to release lock", zap.String("key", key), zap.Bool("ok", ok), zap.Error(err))
		}
	}()

	return fn(ctx)
}
