package indicator

import (
	"time"

	"statusled-go/types"
)

// Step is one timing unit of a pattern.
//
// A step with both durations zero is a solid/static step: the engine renders
// the LED off and re-checks on a housekeeping interval instead of flash
// counting. Repeat is a pattern-level property and is only read from the
// first step of a pattern; zero means the whole pattern repeats forever.
type Step struct {
	On      time.Duration
	Off     time.Duration
	Repeat  uint8
	Flashes uint8 // on/off cycles before the step completes
}

// solid reports the static-step case (neither duration set).
func (s Step) solid() bool { return s.On == 0 && s.Off == 0 }

// Pattern is one status's full definition. Steps play in order.
type Pattern struct {
	Steps         []Step
	AutoStop      bool
	AutoStopDelay time.Duration
}

// infinite reports whether the pattern repeats forever. Repeat semantics are
// read from the first step only.
func (p *Pattern) infinite() bool {
	return len(p.Steps) > 0 && p.Steps[0].Repeat == 0
}

// renderOff reports the dedicated all-zero "off" pattern: a single step with
// no durations and no flashes. Set short-circuits it to Complete.
func (p *Pattern) renderOff() bool {
	if len(p.Steps) != 1 {
		return false
	}
	s := p.Steps[0]
	return s.solid() && s.Flashes == 0
}

// Catalogue maps each status to exactly one pattern. It is built once and
// shared read-only by the engine.
type Catalogue map[types.Status]*Pattern

// Lookup returns the pattern for a status, or false for a status outside the
// catalogue's closed set.
func (c Catalogue) Lookup(status types.Status) (*Pattern, bool) {
	p, ok := c[status]
	return p, ok
}

var (
	patternPowerOn = &Pattern{
		Steps:    []Step{{On: 2 * time.Second, Repeat: 1, Flashes: 1}},
		AutoStop: true,
	}
	patternBLEPairing = &Pattern{
		Steps: []Step{{On: 200 * time.Millisecond, Off: 800 * time.Millisecond, Flashes: 1}},
	}
	patternBLEPairSuccess = &Pattern{
		Steps:    []Step{{On: 2 * time.Second, Repeat: 1, Flashes: 1}},
		AutoStop: true,
	}
	patternBLEPairFail = &Pattern{
		Steps: []Step{
			{On: 200 * time.Millisecond, Off: 200 * time.Millisecond, Flashes: 2},
			{Off: 600 * time.Millisecond, Repeat: 1, Flashes: 1}, // stretch the pause to a full second
			{On: 200 * time.Millisecond, Off: 200 * time.Millisecond, Flashes: 2},
		},
	}
	patternFactoryReset = &Pattern{
		Steps:    []Step{{On: 2 * time.Second, Repeat: 1, Flashes: 1}},
		AutoStop: true,
	}
	patternOTAUpdate = &Pattern{
		Steps: []Step{{On: 200 * time.Millisecond, Off: 2800 * time.Millisecond, Flashes: 1}},
	}
	patternOTAFail = &Pattern{
		Steps: []Step{
			{On: 100 * time.Millisecond, Off: 100 * time.Millisecond, Repeat: 1, Flashes: 3},
			{Off: 2700 * time.Millisecond, Repeat: 1, Flashes: 1},
		},
	}
	patternOff = &Pattern{
		Steps:    []Step{{Repeat: 0, Flashes: 0}},
		AutoStop: true,
	}
)

// Default returns the built-in status catalogue.
func Default() Catalogue {
	return Catalogue{
		types.StatusPowerOn:        patternPowerOn,
		types.StatusBLEPairing:     patternBLEPairing,
		types.StatusBLEPairSuccess: patternBLEPairSuccess,
		types.StatusBLEPairFail:    patternBLEPairFail,
		types.StatusFactoryReset:   patternFactoryReset,
		types.StatusOTAUpdate:      patternOTAUpdate,
		types.StatusOTASuccess:     patternOff,
		types.StatusOTAFail:        patternOTAFail,
		types.StatusOff:            patternOff,
	}
}
