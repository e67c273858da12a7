package actions

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/redock/pkg/types"
)

// KeyedLock provides mutual exclusion per key. Holders of different keys never
// wait for each other.
type KeyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

// lockEntry is a single-slot channel shared by everyone interested in a key.
type lockEntry struct {
	slot chan struct{}
	refs int
}

// NewKeyedLock creates an empty KeyedLock.
//
// Returns:
//   - *KeyedLock: Lock with no keys held.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{entries: make(map[string]*lockEntry)}
}

// Acquire blocks until the key is free, the wait bound passes or ctx is done.
//
// Parameters:
//   - ctx: Context whose cancellation abandons the wait.
//   - key: Key to lock.
//   - wait: Maximum wait, zero to wait until ctx is done.
//
// Returns:
//   - func(): Release function, safe to call more than once.
//   - error: Conflict error when the lock could not be obtained.
func (l *KeyedLock) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	entry := l.ref(key)
	clog := logrus.WithField("key", key)

	var timeout <-chan time.Time

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		timeout = timer.C
	}

	select {
	case entry.slot <- struct{}{}:
		clog.Trace("Acquired update lock")

		var once sync.Once

		return func() {
			once.Do(func() {
				<-entry.slot
				l.unref(key, entry)
				clog.Trace("Released update lock")
			})
		}, nil
	case <-timeout:
		l.unref(key, entry)

		return nil, types.NewUpdateError(
			types.ErrConflict,
			"Update already in progress",
			fmt.Errorf("%w after %s", errLockTimeout, wait),
		)
	case <-ctx.Done():
		l.unref(key, entry)

		return nil, types.NewUpdateError(
			types.ErrConflict,
			"Update already in progress",
			fmt.Errorf("%w: %w", errLockCancelled, ctx.Err()),
		)
	}
}

// Len reports how many keys are currently held or awaited.
//
// Returns:
//   - int: Number of live keys.
func (l *KeyedLock) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

func (l *KeyedLock) ref(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		entry = &lockEntry{slot: make(chan struct{}, 1)}
		l.entries[key] = entry
	}

	entry.refs++

	return entry
}

func (l *KeyedLock) unref(key string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(l.entries, key)
	}
}
