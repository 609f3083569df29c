// Package gpio models the switch board's buttons and indicator LEDs and
// the interrupt-side producer that turns button edges into external
// signals for the stack.
//
// The Producer runs in interrupt context. It only reads a pin level and
// appends one signal to a SignalQueue, which is a fixed-size
// single-producer/single-consumer ring built on atomics. Nothing on that
// path locks or allocates. The stack side drains the queue into
// stack.ExternalSignal events.
package gpio
