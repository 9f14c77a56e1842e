package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClockTimerFiresOnce(t *testing.T) {
	fired := make(chan struct{}, 4)
	tm, err := Clock().NewTimer(func() { fired <- struct{}{} })
	require.NoError(t, err)

	tm.Start(5 * time.Millisecond)
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	select {
	case <-fired:
		t.Fatal("one-shot timer fired twice")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestClockTimerStopIsIdempotent(t *testing.T) {
	fired := make(chan struct{}, 4)
	tm, err := Clock().NewTimer(func() { fired <- struct{}{} })
	require.NoError(t, err)

	tm.Stop() // cancel-when-not-armed is a no-op
	tm.Start(10 * time.Millisecond)
	tm.Stop()
	tm.Stop()

	select {
	case <-fired:
		t.Fatal("cancelled timer fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClockTimerRestartSupersedes(t *testing.T) {
	fired := make(chan struct{}, 4)
	tm, err := Clock().NewTimer(func() { fired <- struct{}{} })
	require.NoError(t, err)

	tm.Start(5 * time.Millisecond)
	tm.Start(40 * time.Millisecond)

	select {
	case <-fired:
		t.Fatal("superseded arm fired")
	case <-time.After(20 * time.Millisecond):
	}
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("re-armed timer did not fire")
	}
}
