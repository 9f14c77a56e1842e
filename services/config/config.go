// Package config loads the device configuration (TOML) and publishes each
// section as a retained message on config/<section>, so services pick up
// their settings from the bus rather than from files.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"statusled-go/bus"
	"statusled-go/errcode"
)

const configPrefix = "config"

// File is the full on-disk configuration.
type File struct {
	Indicator Indicator `toml:"indicator"`
	Battery   Battery   `toml:"battery"`
	Bridge    Bridge    `toml:"bridge"`
}

type Indicator struct {
	LEDChip string `toml:"led_chip" json:"led_chip"`
	LEDPin  int    `toml:"led_pin" json:"led_pin"`
}

type Battery struct {
	LowPercent            uint8  `toml:"low_percent" json:"low_percent"`
	CriticalPercent       uint8  `toml:"critical_percent" json:"critical_percent"`
	FullPercent           uint8  `toml:"full_percent" json:"full_percent"`
	ChargeThresholdMilliA int32  `toml:"charge_threshold_ma" json:"charge_threshold_ma"`
	PeriodMs              uint32 `toml:"period_ms" json:"period_ms"`
}

func (b Battery) Period() time.Duration {
	return time.Duration(b.PeriodMs) * time.Millisecond
}

type Bridge struct {
	Enabled     bool   `toml:"enabled" json:"enabled"`
	Broker      string `toml:"broker" json:"broker"`
	ClientID    string `toml:"client_id" json:"client_id"`
	TopicPrefix string `toml:"topic_prefix" json:"topic_prefix"`
}

// Load parses the file at path, or the embedded defaults when path is empty.
func Load(path string) (File, error) {
	raw := []byte(defaultConfig)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return File{}, err
		}
		raw = b
	}
	// Defaults first, then the file on top.
	var f File
	if err := toml.Unmarshal([]byte(defaultConfig), &f); err != nil {
		return File{}, &errcode.E{C: errcode.ConfigDecode, Op: "config.Load", Err: err}
	}
	if err := toml.Unmarshal(raw, &f); err != nil {
		return File{}, &errcode.E{C: errcode.ConfigDecode, Op: "config.Load", Err: err}
	}
	return f, nil
}

// Publish announces every section retained on config/<section>.
func Publish(conn *bus.Connection, f File) {
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "indicator"), f.Indicator, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "battery"), f.Battery, true))
	conn.Publish(conn.NewMessage(bus.T(configPrefix, "bridge"), f.Bridge, true))
}
