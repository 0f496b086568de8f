package testutil

import (
	"sync"
	"time"
)

// FakeClock is a manually advanced clock for exercising delay scheduling
// without real waiting. Advance fires every timer whose deadline has passed.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan time.Time, 1)

	if d <= 0 {
		ch <- c.now

		return ch
	}

	c.waiters = append(c.waiters, &fakeWaiter{at: c.now.Add(d), ch: ch})

	return ch
}

// Advance moves the clock forward and releases every timer that has expired.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)

	remaining := c.waiters[:0]

	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
		} else {
			remaining = append(remaining, w)
		}
	}

	c.waiters = remaining
}

// WaiterCount returns the number of timers currently armed.
func (c *FakeClock) WaiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters)
}

// BlockUntilWaiters polls until at least n timers are armed or the timeout
// elapses. Lets a test wait for a goroutine to reach its delay point.
func (c *FakeClock) BlockUntilWaiters(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if c.WaiterCount() >= n {
			return true
		}

		time.Sleep(time.Millisecond)
	}

	return false
}
