package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/mcoot/drawguess/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Timers only fire when Advance or Set moves the clock past their deadline.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	timers      []*mockTimer
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// AfterFunc registers f to run once the clock reaches now+d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{clock: c, when: c.CurrentTime.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by the given duration, firing due timers
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.CurrentTime = c.CurrentTime.Add(d)
	due := c.collectDue()
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Set sets the clock to the given time, firing due timers
func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.CurrentTime = t
	due := c.collectDue()
	c.mu.Unlock()

	for _, timer := range due {
		timer.f()
	}
}

// PendingTimers returns the number of timers that have not fired or been stopped
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// collectDue removes and returns timers whose deadline has passed, earliest first.
// Caller must hold c.mu.
func (c *MockClock) collectDue() []*mockTimer {
	var due, pending []*mockTimer
	for _, t := range c.timers {
		if !t.when.After(c.CurrentTime) {
			t.done = true
			due = append(due, t)
		} else {
			pending = append(pending, t)
		}
	}
	c.timers = pending
	sort.SliceStable(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })
	return due
}

type mockTimer struct {
	clock *MockClock
	when  time.Time
	f     func()
	done  bool
}

func (t *mockTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	for i, other := range c.timers {
		if other == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			break
		}
	}
	return true
}
