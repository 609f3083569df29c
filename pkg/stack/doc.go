// Package stack defines the boundary between the node lifecycle core and the
// collaborator Bluetooth mesh stack.
//
// The collaborator owns the radio, the mesh protocol, the GATT database and
// persistent storage. The core consumes it through two surfaces:
//
//   - EventSource: a blocking wait for the next stack event plus a
//     pre-dispatch filter owned by the mesh library.
//   - Commands: synchronous, fire-and-forget requests whose completion (if
//     any) arrives later as a distinct Event.
//
// # Events
//
// Event is a closed sum type. Every variant implements ID and an unexported
// marker method, so only this package can add variants. Identifiers the core
// does not know are delivered as Unknown and are no-ops for the dispatcher.
//
// # Timer Ticks
//
// Soft timers are expressed in ticks of the 32768 Hz low-frequency clock.
// TimerStop (zero ticks) cancels a timer.
package stack
