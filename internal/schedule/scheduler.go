// Package schedule owns the two expiry alarms of an access manager.
//
// # Design
//
// Each alarm moves through Unscheduled → Pending → Fired or Cancelled. Every
// Schedule call starts a new generation; a timer callback fires its alarm only
// if, under the owner's lock, the alarm is still Pending in the generation the
// timer was armed for. Stopping a timer is therefore an optimisation, never
// the guarantee.
//
// # Architecture boundaries
//
// The Scheduler has no mutex of its own. It borrows the owner's sync.Locker
// so token state and alarm state serialize through one boundary. Schedule,
// Reschedule, Cancel and Close must be called with that lock held; the fire
// path acquires it itself and releases it before invoking the handler.
//
// # What this package must NOT do
//
//   - Invoke the fire handler with the owner's lock held.
//   - Fire an alarm inline from Schedule; due alarms go through the clock.
package schedule

import (
	"sync"
	"time"

	"github.com/MrEthical07/goAccess/clock"
)

// DefaultLead is how long before expiry the WillExpire alarm fires.
const DefaultLead = 3 * time.Minute

// Kind identifies one of the two alarms.
type Kind uint8

const (
	// WillExpire fires Lead before expiry, or immediately inside that window.
	WillExpire Kind = iota
	// Expired fires at expiry, or immediately once expiry has passed.
	Expired
	kindCount
)

func (k Kind) String() string {
	switch k {
	case WillExpire:
		return "will_expire"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// State is the lifecycle position of one alarm.
type State uint8

const (
	Unscheduled State = iota
	Pending
	Fired
	Cancelled
)

func (s State) String() string {
	switch s {
	case Unscheduled:
		return "unscheduled"
	case Pending:
		return "pending"
	case Fired:
		return "fired"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Handler receives fired alarms together with the expiry they were armed
// against. It runs without the owner's lock.
type Handler func(k Kind, expiry time.Time)

type alarm struct {
	state  State
	fireAt time.Time
	expiry time.Time
	gen    uint64
	timer  clock.Timer
}

// Scheduler arms and cancels the WillExpire and Expired alarms.
type Scheduler struct {
	clock  clock.Clock
	lead   time.Duration
	mu     sync.Locker
	onFire Handler

	gen    uint64
	closed bool
	alarms [kindCount]alarm
}

// New creates a scheduler that guards its state with mu. A non-positive lead
// falls back to DefaultLead.
func New(c clock.Clock, lead time.Duration, mu sync.Locker, onFire Handler) *Scheduler {
	if c == nil {
		c = clock.Real()
	}
	if lead <= 0 {
		lead = DefaultLead
	}
	if onFire == nil {
		onFire = func(Kind, time.Time) {}
	}
	return &Scheduler{
		clock:  c,
		lead:   lead,
		mu:     mu,
		onFire: onFire,
	}
}

// Lead returns the WillExpire offset.
func (s *Scheduler) Lead() time.Duration {
	return s.lead
}

// Schedule arms both alarms against expiry, replacing any pending ones. It
// returns the number of alarms that were already due. Caller holds the lock.
func (s *Scheduler) Schedule(expiry time.Time) int {
	if s.closed {
		return 0
	}
	s.cancelLocked()

	s.gen++
	gen := s.gen
	now := s.clock.Now()

	s.alarms[WillExpire] = alarm{state: Pending, fireAt: expiry.Add(-s.lead), expiry: expiry, gen: gen}
	s.alarms[Expired] = alarm{state: Pending, fireAt: expiry, expiry: expiry, gen: gen}

	due := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		a := &s.alarms[k]
		if !a.fireAt.After(now) {
			due = append(due, k)
			continue
		}
		kind := k
		a.timer = s.clock.AfterFunc(a.fireAt.Sub(now), func() { s.fire(gen, kind) })
	}

	if len(due) > 0 {
		t := s.clock.AfterFunc(0, func() { s.fire(gen, due...) })
		for _, k := range due {
			s.alarms[k].timer = t
		}
	}
	return len(due)
}

// Reschedule cancels both alarms and arms them against the new expiry in one
// lock hold, reporting how many pending alarms were voided and how many of the
// new ones were already due. Caller holds the lock.
func (s *Scheduler) Reschedule(expiry time.Time) (cancelled, due int) {
	if s.closed {
		return 0, 0
	}
	cancelled = s.cancelLocked()
	due = s.Schedule(expiry)
	return cancelled, due
}

// Cancel moves pending alarms to Cancelled and returns how many were pending.
// Caller holds the lock.
func (s *Scheduler) Cancel() int {
	return s.cancelLocked()
}

// Close cancels both alarms and refuses further scheduling and firing.
// Caller holds the lock. Close is idempotent.
func (s *Scheduler) Close() int {
	if s.closed {
		return 0
	}
	s.closed = true
	return s.cancelLocked()
}

// Closed reports whether Close was called. Caller holds the lock.
func (s *Scheduler) Closed() bool {
	return s.closed
}

// State returns the state of alarm k. Caller holds the lock.
func (s *Scheduler) State(k Kind) State {
	if k >= kindCount {
		return Unscheduled
	}
	return s.alarms[k].state
}

// FireAt returns the fire time of alarm k for the current generation.
// Caller holds the lock.
func (s *Scheduler) FireAt(k Kind) time.Time {
	if k >= kindCount {
		return time.Time{}
	}
	return s.alarms[k].fireAt
}

func (s *Scheduler) cancelLocked() int {
	n := 0
	for k := Kind(0); k < kindCount; k++ {
		a := &s.alarms[k]
		if a.state != Pending {
			continue
		}
		if a.timer != nil {
			a.timer.Stop()
			a.timer = nil
		}
		a.state = Cancelled
		n++
	}
	return n
}

// fire runs on the clock substrate. Each kind is checked separately so a
// handler that reschedules during WillExpire also voids the Expired half of a
// shared dispatch.
func (s *Scheduler) fire(gen uint64, kinds ...Kind) {
	for _, k := range kinds {
		s.mu.Lock()
		a := &s.alarms[k]
		ok := !s.closed && a.gen == gen && a.state == Pending
		expiry := a.expiry
		if ok {
			a.state = Fired
			a.timer = nil
		}
		s.mu.Unlock()

		if ok {
			s.onFire(k, expiry)
		}
	}
}
