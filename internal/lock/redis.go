package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
)

// RedisOptions configures the RedLock mutexes.
type RedisOptions struct {
	// Prefix is prepended to every key, e.g. "ledger:lock:".
	Prefix string
	// Expiry is how long a lock survives a crashed holder.
	Expiry time.Duration
	// Tries is the number of acquisition attempts per key.
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// DriftFactor accounts for clock drift between redis nodes.
	DriftFactor float64
}

// DefaultRedisOptions returns the settings used when the config leaves them unset.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:      "ledger:lock:",
		Expiry:      10 * time.Second,
		Tries:       32,
		RetryDelay:  50 * time.Millisecond,
		DriftFactor: 0.01,
	}
}

// RedisLocker provides the same per-record exclusion as LocalLocker across
// several server instances sharing one redis.
type RedisLocker struct {
	rs     *redsync.Redsync
	opts   RedisOptions
	logger *zap.Logger
}

// NewRedisLocker validates opts and builds a locker over client. A nil logger
// discards logs.
func NewRedisLocker(client redis.UniversalClient, opts RedisOptions, logger *zap.Logger) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("lock: redis client is nil")
	}
	if opts.Expiry <= 0 {
		return nil, errors.New("lock: expiry must be greater than 0")
	}
	if opts.Tries < 1 {
		return nil, errors.New("lock: tries must be at least 1")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger.With(zap.String("component", "redis_locker")),
	}, nil
}

// WithLock acquires every key in sorted order and runs fn. fn's context
// expires when the first of the held locks does, so fn cannot keep working
// after another instance may have taken over a key. Locks are released even
// if ctx was cancelled in the meantime.
func (l *RedisLocker) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilLockFn
	}
	ordered, err := normalizeKeys(keys)
	if err != nil {
		return err
	}

	held := make([]*redsync.Mutex, 0, len(ordered))
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(releaseCtx); !ok || err != nil {
				l.logger.Warn("failed to release lock",
					zap.String("lock_key", held[i].Name()), zap.Bool("unlock_ok", ok), zap.Error(err))
			}
		}
	}()

	for _, k := range ordered {
		mutex := l.rs.NewMutex(
			l.opts.Prefix+k,
			redsync.WithExpiry(l.opts.Expiry),
			redsync.WithTries(l.opts.Tries),
			redsync.WithRetryDelay(l.opts.RetryDelay),
			redsync.WithDriftFactor(l.opts.DriftFactor),
		)
		if err := mutex.LockContext(ctx); err != nil {
			l.logger.Error("failed to acquire lock", zap.String("lock_key", mutex.Name()), zap.Error(err))
			return fmt.Errorf("%w: %s: %v", ErrNotAcquired, k, err)
		}
		held = append(held, mutex)
	}

	fnCtx, cancel := context.WithDeadline(ctx, validUntil(held))
	defer cancel()
	return fn(fnCtx)
}

// validUntil is the earliest expiry among held.
func validUntil(held []*redsync.Mutex) time.Time {
	var until time.Time
	for _, m := range held {
		if u := m.Until(); until.IsZero() || u.Before(until) {
			until = u
		}
	}
	return until
}

var _ interfaces.Locker = (*RedisLocker)(nil)
