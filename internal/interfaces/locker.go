package interfaces

import "context"

// Locker runs fn while holding every key. Implementations acquire keys in a
// stable order so overlapping key sets cannot deadlock.
type Locker interface {
	WithLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}
