package relocate

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/mutex/v2"
)

// LockName is the machine-wide name of the relocation lock.
const LockName = "tripkeeper-relocation"

// Locker serializes relocation across processes.
type Locker interface {
	Lock(ctx context.Context) (release func(), err error)
}

// MutexLocker is a Locker backed by a juju named mutex, which both the
// app and the share extension can acquire without sharing memory.
type MutexLocker struct {
	Name    string
	Timeout time.Duration
	Delay   time.Duration
	Clock   clock.Clock
}

// NewMutexLocker returns a locker on LockName that gives up after timeout.
func NewMutexLocker(timeout time.Duration) MutexLocker {
	return MutexLocker{
		Name:    LockName,
		Timeout: timeout,
		Delay:   20 * time.Millisecond,
		Clock:   clock.WallClock,
	}
}

// Lock implements Locker. It fails with an error wrapping
// mutex.ErrTimeout when the lock stays held past Timeout.
func (l MutexLocker) Lock(ctx context.Context) (func(), error) {
	releaser, err := mutex.Acquire(mutex.Spec{
		Name:    l.Name,
		Clock:   l.Clock,
		Delay:   l.Delay,
		Timeout: l.Timeout,
		Cancel:  ctx.Done(),
	})
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", l.Name, err)
	}
	return releaser.Release, nil
}
