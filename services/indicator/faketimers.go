package indicator

import (
	"time"

	"statusled-go/errcode"
)

// FakeTimers is a deterministic TimerService for tests. Timers never fire on
// their own; tests drive expirations explicitly.
type FakeTimers struct {
	Timers []*FakeTimer

	// AllocBudget limits how many timers NewTimer hands out before failing.
	// Negative means unlimited.
	AllocBudget int
}

func NewFakeTimers() *FakeTimers {
	return &FakeTimers{AllocBudget: -1}
}

func (f *FakeTimers) NewTimer(cb func()) (Timer, error) {
	if f.AllocBudget == 0 {
		return nil, errcode.TimerAlloc
	}
	if f.AllocBudget > 0 {
		f.AllocBudget--
	}
	t := &FakeTimer{cb: cb}
	f.Timers = append(f.Timers, t)
	return t, nil
}

// Step returns the engine's step timer (allocated first).
func (f *FakeTimers) Step() *FakeTimer { return f.Timers[0] }

// AutoStop returns the engine's auto-stop timer (allocated second).
func (f *FakeTimers) AutoStop() *FakeTimer { return f.Timers[1] }

// FakeTimer records arms and cancels and fires only when told to.
type FakeTimer struct {
	cb     func()
	armed  bool
	delay  time.Duration
	starts int
}

func (t *FakeTimer) Start(d time.Duration) {
	t.armed = true
	t.delay = d
	t.starts++
}

func (t *FakeTimer) Stop() { t.armed = false }

// Armed reports whether an expiration is pending.
func (t *FakeTimer) Armed() bool { return t.armed }

// Delay returns the most recently armed delay.
func (t *FakeTimer) Delay() time.Duration { return t.delay }

// Starts returns how many times the timer has been armed.
func (t *FakeTimer) Starts() int { return t.starts }

// Fire delivers the pending expiration, if any, and reports whether one was
// delivered.
func (t *FakeTimer) Fire() bool {
	if !t.armed {
		return false
	}
	t.armed = false
	t.cb()
	return true
}

// FireLate delivers an expiration regardless of arming, modelling a callback
// already in flight when the timer was cancelled.
func (t *FakeTimer) FireLate() { t.cb() }
