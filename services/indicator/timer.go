package indicator

import (
	"sync"
	"time"
)

// TimerService allocates single-shot timers. The engine acquires its two
// timers once, at construction.
type TimerService interface {
	NewTimer(cb func()) (Timer, error)
}

// Timer is a re-armable one-shot. Start supersedes any previous arm; Stop is
// an idempotent cancel and a no-op when the timer is not armed.
type Timer interface {
	Start(d time.Duration)
	Stop()
}

// Clock returns a TimerService backed by the runtime clock. Callbacks are
// delivered on their own goroutine; this is why the engine serializes state
// access with a mutex.
func Clock() TimerService { return clockService{} }

type clockService struct{}

func (clockService) NewTimer(cb func()) (Timer, error) {
	return &clockTimer{cb: cb}, nil
}

type clockTimer struct {
	mu  sync.Mutex
	gen uint64
	t   *time.Timer
	cb  func()
}

func (t *clockTimer) Start(d time.Duration) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	t.gen++
	g := t.gen
	if t.t != nil {
		t.t.Stop()
	}
	t.t = time.AfterFunc(d, func() { t.fire(g) })
	t.mu.Unlock()
}

func (t *clockTimer) Stop() {
	t.mu.Lock()
	t.gen++
	if t.t != nil {
		t.t.Stop()
	}
	t.mu.Unlock()
}

// fire drops expirations from a superseded arm. A callback that slips past
// this check after a concurrent Stop is absorbed by the engine's phase guard.
func (t *clockTimer) fire(g uint64) {
	t.mu.Lock()
	live := t.gen == g
	t.mu.Unlock()
	if live {
		t.cb()
	}
}
