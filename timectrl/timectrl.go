package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock is an interface for reading the current time. Routing, status
// caching and fare selection depend on it rather than on time.Now so tests
// can pin the calendar.
type Clock interface {
	Now() time.Time
}

// SystemClock reads wall-clock time, optionally converted to a fixed location.
type SystemClock struct {
	Location *time.Location
}

// Now returns the current wall-clock time.
func (c SystemClock) Now() time.Time {
	now := time.Now()
	if c.Location != nil {
		now = now.In(c.Location)
	}
	return now
}

// ManualClock is a Clock whose time only moves when told to.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time

	listeners []func(time.Time)
}

// NewManualClock constructs a clock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the clock's current time. Implements Clock.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// SetTime jumps the clock to t and notifies listeners.
func (c *ManualClock) SetTime(t time.Time) {
	c.mu.Lock()
	c.now = t
	listeners := append([]func(time.Time){}, c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.SetTime(c.Now().Add(d))
}

// AddListener registers a callback invoked whenever the time changes.
func (c *ManualClock) AddListener(fn func(time.Time)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Every runs fn immediately and then once per interval until ctx is done.
// It returns a channel that is closed when the loop exits.
func Every(ctx context.Context, interval time.Duration, fn func(context.Context)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if interval <= 0 {
			return
		}

		fn(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
	return done
}
