// Package lock serializes operations that touch the same ledger record.
package lock

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrNoKeys      = errors.New("lock: no keys given")
	ErrEmptyKey    = errors.New("lock: key cannot be empty")
	ErrNilLockFn   = errors.New("lock: function is nil")
	ErrNotAcquired = errors.New("lock: not acquired")
)

// normalizeKeys sorts and dedups keys. Acquiring in sorted order is what
// keeps two callers with overlapping key sets from deadlocking.
func normalizeKeys(keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			return nil, ErrEmptyKey
		}
		out = append(out, k)
	}
	sort.Strings(out)

	uniq := out[:1]
	for _, k := range out[1:] {
		if k != uniq[len(uniq)-1] {
			uniq = append(uniq, k)
		}
	}
	return uniq, nil
}
