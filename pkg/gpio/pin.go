package gpio

import "sync/atomic"

// Pin reads a digital input level. Get returns true for a high level.
type Pin interface {
	Get() bool
}

// LED is a digital indicator output.
type LED interface {
	Set(on bool)
	Toggle()
}

// Button is a push button wired to a Pin.
type Button struct {
	Name string
	Pin  Pin

	// ActiveLow is set when the button pulls the pin to ground while held.
	// The switch board uses pull-up inputs, so this is the usual wiring.
	ActiveLow bool
}

// Pressed reports whether the button is held right now.
func (b Button) Pressed() bool {
	if b.Pin == nil {
		return false
	}
	return b.Pin.Get() != b.ActiveLow
}

// AnyPressed reports whether at least one of the buttons is held.
func AnyPressed(buttons []Button) bool {
	for _, b := range buttons {
		if b.Pressed() {
			return true
		}
	}
	return false
}

// SimPin is an input pin whose level is set by software.
// The zero value reads low. It is safe for concurrent use.
type SimPin struct {
	level atomic.Bool
}

// NewSimPin creates a pin at the given level.
func NewSimPin(high bool) *SimPin {
	p := &SimPin{}
	p.level.Store(high)
	return p
}

// Get returns the current level.
func (p *SimPin) Get() bool { return p.level.Load() }

// Set drives the level.
func (p *SimPin) Set(high bool) { p.level.Store(high) }

// SimLED is an LED that only remembers its state.
type SimLED struct {
	on      atomic.Bool
	toggles atomic.Uint32
}

// Set switches the LED.
func (l *SimLED) Set(on bool) { l.on.Store(on) }

// Toggle inverts the LED.
func (l *SimLED) Toggle() {
	for {
		old := l.on.Load()
		if l.on.CompareAndSwap(old, !old) {
			l.toggles.Add(1)
			return
		}
	}
}

// On reports whether the LED is lit.
func (l *SimLED) On() bool { return l.on.Load() }

// Toggles returns how many times Toggle was called.
func (l *SimLED) Toggles() int { return int(l.toggles.Load()) }

// Compile-time interface satisfaction checks.
var (
	_ Pin = (*SimPin)(nil)
	_ LED = (*SimLED)(nil)
)
