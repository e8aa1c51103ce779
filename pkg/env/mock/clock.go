package mock

import (
	"context"
	"sync"
	"time"
)

// Epoch is the instant every mock clock starts at.
var Epoch = time.Date(2014, time.February, 14, 20, 21, 21, 320_000_000, time.UTC)

// Clock is a virtual clock. Sleeping advances it instantly.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now returns the virtual time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Sleep advances the clock by d unless ctx is already done.
func (c *Clock) Sleep(ctx context.Context, d time.Duration) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	c.Advance(d)

	return nil
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}
