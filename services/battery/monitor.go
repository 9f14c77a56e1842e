// Package battery classifies externally supplied battery readings against
// fixed thresholds and announces state changes on the bus. It performs no
// measurement of its own; readings are injected by a sampler or by callers.
package battery

import (
	"context"
	"log"
	"sync"
	"time"

	"statusled-go/bus"
	"statusled-go/types"
	"statusled-go/x/mathx"
	"statusled-go/x/timex"
)

// Default thresholds, from the device power budget.
const (
	DefaultLowPercent      = 20
	DefaultCriticalPercent = 10
	DefaultFullPercent     = 95

	// Minimum charge current that counts as charging.
	DefaultChargeThresholdMilliA = 50

	DefaultPeriod = 5 * time.Second
)

var (
	topicState = bus.T("battery", "state")
	topicValue = bus.T("battery", "value")
)

// Sampler supplies one reading per poll tick.
type Sampler func() types.BatteryReading

// stubSampler stands in until a real power source feeds the monitor.
func stubSampler() types.BatteryReading {
	return types.BatteryReading{Percent: 85, PackMilliV: 3800}
}

type Config struct {
	LowPercent            uint8
	CriticalPercent       uint8
	FullPercent           uint8
	ChargeThresholdMilliA int32
	Period                time.Duration
	Sampler               Sampler
}

func (c *Config) applyDefaults() {
	if c.LowPercent == 0 {
		c.LowPercent = DefaultLowPercent
	}
	if c.CriticalPercent == 0 {
		c.CriticalPercent = DefaultCriticalPercent
	}
	if c.FullPercent == 0 {
		c.FullPercent = DefaultFullPercent
	}
	if c.ChargeThresholdMilliA == 0 {
		c.ChargeThresholdMilliA = DefaultChargeThresholdMilliA
	}
	if c.Period <= 0 {
		c.Period = DefaultPeriod
	}
	if c.Sampler == nil {
		c.Sampler = stubSampler
	}
}

// Monitor holds the current snapshot and publishes transitions. A nil bus
// connection is allowed for library use; publishing is then skipped.
type Monitor struct {
	cfg  Config
	conn *bus.Connection

	mu     sync.Mutex
	status types.BatteryStatus
	cancel context.CancelFunc
}

func New(conn *bus.Connection, cfg Config) *Monitor {
	cfg.applyDefaults()
	return &Monitor{
		cfg:  cfg,
		conn: conn,
		status: types.BatteryStatus{
			Reading: types.BatteryReading{Percent: 100, PackMilliV: 4200},
			State:   types.BatteryNormal,
			TSms:    timex.NowMs(),
		},
	}
}

// Snapshot returns the current monitor state.
func (m *Monitor) Snapshot() types.BatteryStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Update ingests a reading, reclassifies, and publishes a retained state
// change when the classification moved.
func (m *Monitor) Update(r types.BatteryReading) {
	r.Percent = mathx.Clamp(r.Percent, 0, 100)

	m.mu.Lock()
	old := m.status.State
	m.status.Reading = r
	m.status.Charging = r.ChargeMilli > m.cfg.ChargeThresholdMilliA
	m.status.State = m.classify(r)
	m.status.TSms = timex.NowMs()

	switch m.status.State {
	case types.BatteryLow, types.BatteryCritical:
		m.status.LowWarningActive = true
	default:
		m.status.LowWarningActive = false
	}
	snap := m.status
	m.mu.Unlock()

	m.publishValue(snap)
	if snap.State != old {
		log.Printf("battery: state %s -> %s (%d%%, %dmV, %dmA)",
			old, snap.State, r.Percent, r.PackMilliV, r.ChargeMilli)
		m.publishChange(old, snap)
	}
}

// classify maps a reading onto the battery state ladder. Charging wins over
// the discharge thresholds.
func (m *Monitor) classify(r types.BatteryReading) types.BatteryState {
	if r.ChargeMilli > m.cfg.ChargeThresholdMilliA {
		if r.Percent >= m.cfg.FullPercent {
			return types.BatteryFull
		}
		return types.BatteryCharging
	}
	switch {
	case r.Percent <= m.cfg.CriticalPercent:
		return types.BatteryCritical
	case r.Percent <= m.cfg.LowPercent:
		return types.BatteryLow
	default:
		return types.BatteryNormal
	}
}

// ForceUpdate reclassifies the current reading and republishes it.
func (m *Monitor) ForceUpdate() {
	m.Update(m.Snapshot().Reading)
}

// Start launches the periodic sampling loop. Returns immediately; the loop
// runs until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.mu.Unlock()

	go m.sampleLoop(ctx)
}

// Stop ends the sampling loop and clears any low-battery warning.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.status.LowWarningActive = false
	m.mu.Unlock()
}

func (m *Monitor) sampleLoop(ctx context.Context) {
	tick := time.NewTicker(m.cfg.Period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			m.Update(m.cfg.Sampler())
		}
	}
}

func (m *Monitor) publishValue(snap types.BatteryStatus) {
	if m.conn == nil {
		return
	}
	m.conn.Publish(m.conn.NewMessage(topicValue, snap, true))
}

func (m *Monitor) publishChange(old types.BatteryState, snap types.BatteryStatus) {
	if m.conn == nil {
		return
	}
	m.conn.Publish(m.conn.NewMessage(topicState, types.BatteryStateChange{
		Old:    old,
		New:    snap.State,
		Status: snap,
	}, true))
}
