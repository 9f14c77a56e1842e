package led

import "sync"

// Fake is a test double that records every commanded level.
type Fake struct {
	mu       sync.Mutex
	on       bool
	commands []bool
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Set(on bool) {
	f.mu.Lock()
	f.on = on
	f.commands = append(f.commands, on)
	f.mu.Unlock()
}

// On reports the last commanded level.
func (f *Fake) On() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.on
}

// Commands returns a copy of every level commanded so far.
func (f *Fake) Commands() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.commands))
	copy(out, f.commands)
	return out
}

// Reset clears the recorded history, keeping the current level.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.commands = nil
	f.mu.Unlock()
}
