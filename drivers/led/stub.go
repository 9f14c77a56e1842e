//go:build !linux

package led

import "errors"

// GPIO is unavailable off Linux; NewGPIO always fails so callers fall back
// to the console sink.
type GPIO struct{}

func NewGPIO(chip string, pin int) (*GPIO, error) {
	return nil, errors.New("gpio led requires linux")
}

func (g *GPIO) Set(on bool) {}

func (g *GPIO) Close() error { return nil }
