// Package shardlock guards against two live attempts on the same shard.
//
// The lock is advisory and lives next to the ledger files as rank_{s}.lock.
// The ledger does not depend on it; it only turns an accidental double
// submission into an immediate error instead of interleaved appends.
//
// Status and schedule probe liveness by taking a shared lock for a moment,
// so Acquire retries briefly before reporting the shard as held.
package shardlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrHeld indicates another process holds the shard lock.
var ErrHeld = errors.New("shard lock held by another process")

var (
	acquireAttempts   = 5
	acquireRetryDelay = 50 * time.Millisecond
)

// Lock is an acquired shard lock.
type Lock struct {
	path string
	lock *flock.Flock
}

// Path returns the lock file for shard inside dir.
func Path(dir string, shard int) string {
	return filepath.Join(dir, fmt.Sprintf("rank_%d.lock", shard))
}

// Acquire takes the lock for shard, waiting at most a few hundred
// milliseconds for a liveness probe to let go.
func Acquire(dir string, shard int) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	path := Path(dir, shard)
	lock := flock.New(path)
	for attempt := 1; ; attempt++ {
		ok, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", path, err)
		}
		if ok {
			return &Lock{path: path, lock: lock}, nil
		}
		if attempt >= acquireAttempts {
			return nil, fmt.Errorf("%w: %s", ErrHeld, path)
		}
		time.Sleep(acquireRetryDelay)
	}
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks the shard. The lock file is left in place.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

// Held reports whether some process currently holds the lock for shard. A
// missing lock file means no attempt has ever locked the shard.
func Held(dir string, shard int) (bool, error) {
	path := Path(dir, shard)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	probe := flock.New(path)
	ok, err := probe.TryRLock()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	_ = probe.Unlock()
	return false, nil
}
