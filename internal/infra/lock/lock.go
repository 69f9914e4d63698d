// Package lock provides named cross-process mutual exclusion used to keep at
// most one queue drain running per deployment.
package lock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAlreadyLocked is returned by a non-blocking acquire that found the lock held.
	ErrAlreadyLocked = errors.New("lock already held")

	// ErrLockTimeout is returned when the lock stayed held for the whole wait timeout.
	ErrLockTimeout = errors.New("timed out waiting for lock")
)

// PollInterval is how often a waiting acquire retries.
const PollInterval = 100 * time.Millisecond

// Lock is a held lock. Release must be called exactly once.
type Lock interface {
	Release(ctx context.Context) error
}

// Provider acquires named locks. A timeout <= 0 means do not wait: a held
// lock yields ErrAlreadyLocked immediately. A positive timeout retries until
// the lock frees up or the timeout expires with ErrLockTimeout.
type Provider interface {
	Acquire(ctx context.Context, name string, timeout time.Duration) (Lock, error)
}

// tryFunc makes one attempt. ok=false with a nil error means the lock is held.
type tryFunc func(ctx context.Context) (l Lock, ok bool, err error)

func acquire(ctx context.Context, timeout time.Duration, try tryFunc) (Lock, error) {
	l, ok, err := try(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return l, nil
	}
	if timeout <= 0 {
		return nil, ErrAlreadyLocked
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, ErrLockTimeout
		case <-ticker.C:
			l, ok, err := try(ctx)
			if err != nil {
				return nil, err
			}
			if ok {
				return l, nil
			}
		}
	}
}
