package types

// ---- Status enumeration ----

// Status identifies one of the device states the indicator can render.
// The set is closed; anything else is rejected by the engine.
type Status string

const (
	StatusPowerOn        Status = "power_on"         // solid for 2 seconds
	StatusBLEPairing     Status = "ble_pairing"      // flash every 1 second
	StatusBLEPairSuccess Status = "ble_pair_success" // solid for 2 seconds
	StatusBLEPairFail    Status = "ble_pair_fail"    // double flash, 1 s pause, repeat
	StatusFactoryReset   Status = "factory_reset"    // solid for 2 seconds
	StatusOTAUpdate      Status = "ota_update"       // flash every 3 seconds
	StatusOTASuccess     Status = "ota_success"      // off
	StatusOTAFail        Status = "ota_fail"         // triple fast flash every 3 seconds
	StatusOff            Status = "off"
)

// Phase is the engine-level playback state, distinct from the step and
// flash indices inside a pattern.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseActive   Phase = "active"
	PhaseComplete Phase = "complete"
)

// ---- Indicator payloads ----

// IndicatorSet is the control payload for indicator/control/set.
type IndicatorSet struct {
	Status Status `json:"status"`
}

// IndicatorStatus is the retained state published on indicator/status.
type IndicatorStatus struct {
	Status Status `json:"status"`
	Phase  Phase  `json:"phase"`
	TSms   int64  `json:"ts_ms"`
}

// ---- LED payloads ----

// LEDValue is the retained value published on indicator/led/value.
type LEDValue struct {
	Level uint8 `json:"level"` // 0 or 1
	TSms  int64 `json:"ts_ms"`
}

// ---- Battery payloads ----

// BatteryState classifies a battery reading against the configured thresholds.
type BatteryState string

const (
	BatteryUnknown  BatteryState = "unknown"
	BatteryNormal   BatteryState = "normal"
	BatteryLow      BatteryState = "low"
	BatteryCritical BatteryState = "critical"
	BatteryCharging BatteryState = "charging"
	BatteryFull     BatteryState = "full"
)

// BatteryReading is one externally supplied measurement.
// Fixed-point integer units keep payloads allocation-friendly.
type BatteryReading struct {
	Percent     uint8 `json:"percent"`
	PackMilliV  int32 `json:"pack_mv"`
	ChargeMilli int32 `json:"charge_ma"` // positive while charging
}

// BatteryStatus is the full monitor snapshot.
type BatteryStatus struct {
	Reading          BatteryReading `json:"reading"`
	State            BatteryState   `json:"state"`
	Charging         bool           `json:"charging"`
	LowWarningActive bool           `json:"low_warning_active"`
	TSms             int64          `json:"ts_ms"`
}

// BatteryStateChange is published retained on battery/state whenever the
// classified state changes.
type BatteryStateChange struct {
	Old    BatteryState  `json:"old"`
	New    BatteryState  `json:"new"`
	Status BatteryStatus `json:"status"`
}

// ---- Generic replies ----

type OKReply struct {
	OK bool `json:"ok"`
}

type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
