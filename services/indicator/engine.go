// Package indicator drives a single status LED through a catalogue of blink
// patterns. The engine is a reactive state machine: it never sleeps, every
// delay is expressed as "arm a timer and return", and all playback state is
// advanced either by a caller (Set/Stop) or by a timer expiration.
package indicator

import (
	"sync"
	"time"

	"statusled-go/drivers/led"
	"statusled-go/errcode"
	"statusled-go/types"
	"statusled-go/x/timex"
)

// solidRecheck is the housekeeping interval for static steps, which have no
// natural exit and are only left via a new Set call.
const solidRecheck = time.Second

// Engine walks one pattern at a time over an LED sink. All mutation happens
// under mu; timer callbacks arrive on their own goroutines.
type Engine struct {
	cat   Catalogue
	sink  led.Sink
	stepT Timer
	stopT Timer

	mu             sync.Mutex
	status         types.Status
	phase          types.Phase
	stepIndex      int
	flashIndex     int
	ledOn          bool
	stepStartMs    int64
	patternStartMs int64

	notify     func(types.Status, types.Phase)
	lastStatus types.Status
	lastPhase  types.Phase
}

// New allocates the engine's two timers (step and auto-stop) from the timer
// service and forces the LED off. A nil catalogue selects the built-in one.
func New(cat Catalogue, timers TimerService, sink led.Sink) (*Engine, error) {
	if cat == nil {
		cat = Default()
	}
	e := &Engine{
		cat:        cat,
		sink:       sink,
		status:     types.StatusOff,
		phase:      types.PhaseIdle,
		lastStatus: types.StatusOff,
		lastPhase:  types.PhaseIdle,
	}
	var err error
	if e.stepT, err = timers.NewTimer(e.onStepTimer); err != nil {
		return nil, &errcode.E{C: errcode.TimerAlloc, Op: "indicator.New", Err: err}
	}
	if e.stopT, err = timers.NewTimer(e.onAutoStop); err != nil {
		return nil, &errcode.E{C: errcode.TimerAlloc, Op: "indicator.New", Err: err}
	}
	e.setLED(false)
	return e, nil
}

// SetNotify installs an observer for status/phase transitions. The observer
// runs outside the engine lock and must not call back into the engine.
func (e *Engine) SetNotify(fn func(types.Status, types.Phase)) {
	e.mu.Lock()
	e.notify = fn
	e.mu.Unlock()
}

// Set starts playback of the given status's pattern. Any running pattern is
// superseded: both timers are cancelled before the new pattern emits its
// first transition. A status outside the catalogue is rejected with no state
// change.
func (e *Engine) Set(status types.Status) error {
	e.mu.Lock()
	p, ok := e.cat.Lookup(status)
	if !ok {
		e.mu.Unlock()
		return errcode.InvalidStatus
	}

	e.stepT.Stop()
	e.stopT.Stop()

	e.status = status
	e.phase = types.PhaseActive
	e.stepIndex = 0
	e.flashIndex = 0
	e.patternStartMs = timex.NowMs()

	if p.renderOff() {
		e.setLED(false)
		e.phase = types.PhaseComplete
	} else {
		e.advance(p)
	}
	e.mu.Unlock()

	e.notifyState()
	return nil
}

// Current returns the active status (StatusOff when idle).
func (e *Engine) Current() types.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Phase returns the engine-level playback phase.
func (e *Engine) Phase() types.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Active reports whether a pattern is currently playing.
func (e *Engine) Active() bool { return e.Phase() == types.PhaseActive }

// LEDOn reports the last commanded LED level.
func (e *Engine) LEDOn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledOn
}

// Stop cancels both timers, forces the LED off and returns to Idle. Safe to
// call repeatedly.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
	e.notifyState()
}

func (e *Engine) stopLocked() {
	e.stepT.Stop()
	e.stopT.Stop()
	e.setLED(false)
	e.phase = types.PhaseIdle
	e.status = types.StatusOff
}

// advance enters steps until a timer is armed or the pattern ends. When the
// step sequence is exhausted it either wraps (infinite repeat, read from the
// first step) or completes the pattern.
func (e *Engine) advance(p *Pattern) {
	for {
		if e.stepIndex >= len(p.Steps) {
			if !p.infinite() {
				e.complete(p)
				return
			}
			e.stepIndex = 0
		}
		e.flashIndex = 0
		e.stepStartMs = timex.NowMs()
		if e.playStep(p) {
			return
		}
	}
}

// playStep emits LED transitions for the current step until a non-zero delay
// is armed or the step's flash budget is spent. It returns true when a timer
// was armed. Zero-delay transitions resolve synchronously; every pass
// increments either flashIndex or stepIndex, so the loop is bounded by
// step count times flash count.
func (e *Engine) playStep(p *Pattern) bool {
	for {
		step := p.Steps[e.stepIndex]
		if step.Flashes > 0 && e.flashIndex >= int(step.Flashes) {
			e.stepIndex++
			return false
		}

		var on bool
		var delay time.Duration
		switch {
		case step.solid():
			// Static step: hold the LED off and re-check later. Only a new
			// Set call exits this step.
			delay = solidRecheck
		case !e.ledOn:
			on = true
			delay = step.On
		default:
			delay = step.Off
			e.flashIndex++
		}

		e.setLED(on)
		if delay > 0 {
			e.stepT.Start(delay)
			return true
		}
	}
}

// complete finishes a finite pattern: LED off, phase Complete, and the
// auto-stop timer armed when the pattern asks for it.
func (e *Engine) complete(p *Pattern) {
	e.phase = types.PhaseComplete
	e.setLED(false)
	if p.AutoStop && p.AutoStopDelay > 0 {
		e.stopT.Start(p.AutoStopDelay)
	}
}

// onStepTimer resumes playback on a step-timer expiration. Expirations
// outside the Active phase are stale arrivals from a superseded pattern and
// are ignored.
func (e *Engine) onStepTimer() {
	e.mu.Lock()
	if e.phase != types.PhaseActive {
		e.mu.Unlock()
		return
	}
	p, ok := e.cat.Lookup(e.status)
	if !ok {
		e.mu.Unlock()
		return
	}
	if !e.playStep(p) {
		e.advance(p)
	}
	e.mu.Unlock()
	e.notifyState()
}

// onAutoStop is deliberately not guarded by phase: it is fire-and-forget
// cleanup that always lands in Idle with the LED off.
func (e *Engine) onAutoStop() {
	e.mu.Lock()
	e.stopLocked()
	e.mu.Unlock()
	e.notifyState()
}

func (e *Engine) setLED(on bool) {
	e.ledOn = on
	e.sink.Set(on)
}

// notifyState reports a status/phase transition to the observer, collapsing
// repeats so retained bus state is only republished on change.
func (e *Engine) notifyState() {
	e.mu.Lock()
	fn := e.notify
	st, ph := e.status, e.phase
	changed := st != e.lastStatus || ph != e.lastPhase
	if changed {
		e.lastStatus = st
		e.lastPhase = ph
	}
	e.mu.Unlock()
	if fn != nil && changed {
		fn(st, ph)
	}
}
