// Package locker provides per-key mutual exclusion for stock-mutating
// operations. Callers pass keys in a fixed (sorted) order so that two
// holders never wait on each other.
package locker

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a key could not be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for lock")

// Locker acquires every key in order and returns a release func that
// frees them in reverse. On error nothing is held.
type Locker interface {
	Lock(ctx context.Context, keys []string) (release func(), err error)
}
