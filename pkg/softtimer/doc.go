// Package softtimer multiplexes logical soft timers over one timer resource.
//
// Soft timers are identified by a small integer ID (stack.TimerID) and are
// either one-shot or periodic. Periods are given in 32768 Hz ticks.
//
// # Timer Replacement
//
// Starting a timer with an ID that is already running replaces it. There is
// no stacking or accumulation. Starting with stack.TimerStop (zero ticks)
// cancels the timer.
//
// # Registry
//
// Registry is the bookkeeping table only: it records which IDs are armed
// and with what period. It is not safe for concurrent use and is meant to be
// owned by a single goroutine (the node keeps one as its view of the timers
// it armed).
//
// # Multiplexer
//
// Multiplexer is the host implementation of the soft timer resource used by
// the simulated stack. It keeps a Registry of deadlines and a single
// time.Timer armed for the earliest one. On expiry it invokes the callback
// once per elapsed ID, in deadline order, outside its lock.
package softtimer
