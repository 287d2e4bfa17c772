// Package clocktest provides a manually advanced clock for deterministic
// alarm tests.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/MrEthical07/goAccess/clock"
)

// Fake is a clock.Clock whose time only moves on Advance or Set. Due
// callbacks run synchronously on the goroutine that moves the clock, in
// fire-time order, with no internal lock held.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*fakeTimer
}

type fakeTimer struct {
	clock  *Fake
	at     time.Time
	seq    uint64
	f      func()
	done   bool
	stored bool
}

var _ clock.Clock = (*Fake)(nil)

// New returns a fake clock set to start.
func New(start time.Time) *Fake {
	return &Fake{now: start}
}

// Now returns the fake's current time.
func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc registers f to run once the fake reaches now+d. A non-positive d
// is due on the next Tick or Advance.
func (c *Fake) AfterFunc(d time.Duration, f func()) clock.Timer {
	if d < 0 {
		d = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &fakeTimer{clock: c, at: c.now.Add(d), seq: c.seq, f: f, stored: true}
	c.timers = append(c.timers, t)
	return t
}

// Stop implements clock.Timer.
func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()

	if t.done {
		return false
	}
	t.done = true
	c.removeLocked(t)
	return true
}

// Advance moves the clock forward by d and runs every callback that became
// due, including callbacks scheduled by earlier callbacks in the same pass.
func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	c.fireDue()
}

// Set moves the clock to t (never backwards) and fires due callbacks.
func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	if t.After(c.now) {
		c.now = t
	}
	c.mu.Unlock()
	c.fireDue()
}

// Tick runs callbacks due at the current time without moving the clock.
func (c *Fake) Tick() {
	c.fireDue()
}

// Pending reports how many callbacks are registered and not yet run.
func (c *Fake) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// NextAt reports the earliest pending fire time.
func (c *Fake) NextAt() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.timers) == 0 {
		return time.Time{}, false
	}
	c.sortLocked()
	return c.timers[0].at, true
}

func (c *Fake) fireDue() {
	for {
		c.mu.Lock()
		c.sortLocked()
		if len(c.timers) == 0 || c.timers[0].at.After(c.now) {
			c.mu.Unlock()
			return
		}
		t := c.timers[0]
		t.done = true
		c.removeLocked(t)
		c.mu.Unlock()

		t.f()
	}
}

func (c *Fake) sortLocked() {
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].at.Equal(c.timers[j].at) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at.Before(c.timers[j].at)
	})
}

func (c *Fake) removeLocked(t *fakeTimer) {
	if !t.stored {
		return
	}
	for i, cur := range c.timers {
		if cur == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			break
		}
	}
	t.stored = false
}
