package lock

import (
	"context"
	"sync"

	interfaces "github.com/sheikh-saqib/custodial-ledger/internal/interfaces"
)

// LocalLocker keeps one mutex per key for the lifetime of the process.
type LocalLocker struct {
	muMap map[string]*sync.Mutex // stores the *sync.Mutex for each key
	mapMu sync.Mutex             // protects the muMap itself
}

// NewLocalLocker returns a locker that only excludes callers in this process.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		muMap: make(map[string]*sync.Mutex),
	}
}

func (l *LocalLocker) getLock(key string) *sync.Mutex {
	l.mapMu.Lock()
	defer l.mapMu.Unlock()

	if _, exists := l.muMap[key]; !exists {
		l.muMap[key] = &sync.Mutex{}
	}
	return l.muMap[key]
}

// WithLock takes every key's mutex in sorted order, runs fn, and releases
// them in reverse order. fn's error is returned unchanged.
func (l *LocalLocker) WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilLockFn
	}
	ordered, err := normalizeKeys(keys)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	held := make([]*sync.Mutex, 0, len(ordered))
	for _, k := range ordered {
		mu := l.getLock(k)
		mu.Lock()
		held = append(held, mu)
	}
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}()

	return fn(ctx)
}

var _ interfaces.Locker = (*LocalLocker)(nil)
