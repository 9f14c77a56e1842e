//go:build linux

package led

import (
	"fmt"
	"log"

	"github.com/warthog618/go-gpiocdev"
)

// GPIO drives a single LED line through the Linux GPIO character device.
type GPIO struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewGPIO requests the given line as an output, initially off.
func NewGPIO(chip string, pin int) (*GPIO, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chip, err)
	}
	l, err := c.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("request led pin %d: %w", pin, err)
	}
	return &GPIO{chip: c, line: l}, nil
}

func (g *GPIO) Set(on bool) {
	v := 0
	if on {
		v = 1
	}
	if err := g.line.SetValue(v); err != nil {
		log.Printf("led: set pin: %v", err)
	}
}

// Close releases the line and chip.
func (g *GPIO) Close() error {
	var errs []error
	if g.line != nil {
		if err := g.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	if g.chip != nil {
		if err := g.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
