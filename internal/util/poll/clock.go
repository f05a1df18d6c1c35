// Package poll provides the injectable clock used by every waiter and retry
// loop, so tests can advance time without sleeping.
package poll

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// Clock supplies the current time and a context-aware sleep.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is a Clock backed by the wall clock.
type RealClock struct {
	c clock.Clock
}

// NewRealClock returns a Clock backed by the system time.
func NewRealClock() *RealClock {
	return &RealClock{c: clock.RealClock{}}
}

// Now returns the current time.
func (r *RealClock) Now() time.Time {
	return r.c.Now()
}

// Sleep waits for d or until ctx is cancelled.
func (r *RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := r.c.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// Deadline returns now+timeout. A timeout that is not positive yields a
// deadline that has already passed.
func Deadline(c Clock, timeout time.Duration) time.Time {
	if timeout <= 0 {
		return c.Now()
	}
	return c.Now().Add(timeout)
}

// Expired reports whether the deadline has passed.
func Expired(c Clock, deadline time.Time) bool {
	return !c.Now().Before(deadline)
}
