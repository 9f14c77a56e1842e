// Package led provides the LED output sink capability.
// The real implementation drives a GPIO line through the Linux character
// device; the fake records commands for tests.
package led

// Sink accepts on/off commands. Calls are fire-and-forget and safe to
// repeat with the same value.
type Sink interface {
	Set(on bool)
}

// Func adapts a function to a Sink.
type Func func(on bool)

func (f Func) Set(on bool) { f(on) }

// Emitting wraps a sink and reports every commanded level, e.g. to publish
// retained LED values on the bus.
func Emitting(next Sink, emit func(on bool)) Sink {
	return Func(func(on bool) {
		next.Set(on)
		emit(on)
	})
}
