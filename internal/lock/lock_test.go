package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
)

func TestNormalizeKeys(t *testing.T) {
	got, err := normalizeKeys([]string{"b", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	_, err = normalizeKeys(nil)
	assert.ErrorIs(t, err, ErrNoKeys)

	_, err = normalizeKeys([]string{"a", " "})
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func newRedisLocker(t *testing.T) *RedisLocker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := DefaultRedisOptions()
	opts.Tries = 200
	opts.RetryDelay = 5 * time.Millisecond

	l, err := NewRedisLocker(client, opts, zap.NewNop())
	require.NoError(t, err)
	return l
}

func lockers(t *testing.T) map[string]interfaces.Locker {
	return map[string]interfaces.Locker{
		"local": NewLocalLocker(),
		"redis": newRedisLocker(t),
	}
}

func TestLocker_PropagatesError(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			boom := errors.New("boom")
			err := l.WithLock(context.Background(), []string{"acct"}, func(context.Context) error {
				return boom
			})
			assert.ErrorIs(t, err, boom)

			assert.ErrorIs(t, l.WithLock(context.Background(), []string{"acct"}, nil), ErrNilLockFn)
		})
	}
}

func TestLocker_MutualExclusion(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			const n = 10
			var current, maxSeen, total int32
			var wg sync.WaitGroup
			wg.Add(n)

			for i := 0; i < n; i++ {
				// every goroutine shares "record", the second key varies
				keys := []string{"record", "authority-" + string(rune('a'+i%2))}
				if i%2 == 0 {
					keys[0], keys[1] = keys[1], keys[0]
				}
				go func() {
					defer wg.Done()
					err := l.WithLock(context.Background(), keys, func(context.Context) error {
						c := atomic.AddInt32(&current, 1)
						for {
							m := atomic.LoadInt32(&maxSeen)
							if c <= m || atomic.CompareAndSwapInt32(&maxSeen, m, c) {
								break
							}
						}
						atomic.AddInt32(&total, 1)
						time.Sleep(2 * time.Millisecond)
						atomic.AddInt32(&current, -1)
						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.Equal(t, int32(n), total)
			assert.Equal(t, int32(1), maxSeen)
		})
	}
}

func TestLocalLocker_DistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocalLocker()
	inside := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = l.WithLock(context.Background(), []string{"a"}, func(context.Context) error {
			close(inside)
			<-release
			return nil
		})
	}()
	<-inside

	done := make(chan struct{})
	go func() {
		_ = l.WithLock(context.Background(), []string{"b"}, func(context.Context) error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
	close(release)
}

func TestRedisLocker_BusyKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	opts := DefaultRedisOptions()
	opts.Tries = 1
	l, err := NewRedisLocker(client, opts, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, mr.Set(opts.Prefix+"acct", "someone-else"))

	called := false
	err = l.WithLock(context.Background(), []string{"acct"}, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
	assert.False(t, called)
}

func TestNewRedisLocker_Validation(t *testing.T) {
	_, err := NewRedisLocker(nil, DefaultRedisOptions(), nil)
	assert.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()
	opts := DefaultRedisOptions()
	opts.Tries = 0
	_, err = NewRedisLocker(client, opts, nil)
	assert.Error(t, err)
}

func newTestRedisLocker(t *testing.T, opts RedisOptions) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	l, err := NewRedisLocker(client, opts, zap.NewNop())
	require.NoError(t, err)
	return l, mr
}

func TestRedisLocker_ReleasesAfterCallerCancel(t *testing.T) {
	opts := DefaultRedisOptions()
	l, mr := newTestRedisLocker(t, opts)

	ctx, cancel := context.WithCancel(context.Background())
	err := l.WithLock(ctx, []string{"acct"}, func(context.Context) error {
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(opts.Prefix+"acct"), "lock key left behind until expiry")

	err = l.WithLock(context.Background(), []string{"acct"}, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestRedisLocker_WorkBoundedByExpiry(t *testing.T) {
	opts := DefaultRedisOptions()
	opts.Expiry = 2 * time.Second
	l, _ := newTestRedisLocker(t, opts)

	start := time.Now()
	err := l.WithLock(context.Background(), []string{"a", "b"}, func(ctx context.Context) error {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, start.Add(opts.Expiry), deadline, opts.Expiry/2)
		return nil
	})
	require.NoError(t, err)
}
