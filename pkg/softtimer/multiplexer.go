package softtimer

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// ErrClosed is returned when starting a timer on a closed multiplexer.
var ErrClosed = errors.New("soft timer multiplexer closed")

// Config configures a Multiplexer.
type Config struct {
	// TickDuration overrides the wall-clock length of one tick.
	// Tests shrink it to run timers faster. Zero runs on the real
	// 32768 Hz clock, with periods converted exactly.
	TickDuration time.Duration

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// Multiplexer drives many logical soft timers from a single time.Timer.
type Multiplexer struct {
	mu sync.Mutex

	// Zero means the real clock
	tick time.Duration
	now  func() time.Time

	// Armed timers with their next deadline
	reg *Registry

	// The single underlying timer resource
	timer *time.Timer

	// Callback when a logical timer elapses
	onElapsed func(id stack.TimerID)

	closed bool
}

// NewMultiplexer creates a multiplexer that calls onElapsed for every expiry.
func NewMultiplexer(cfg Config, onElapsed func(id stack.TimerID)) *Multiplexer {
	if cfg.TickDuration < 0 {
		cfg.TickDuration = 0
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Multiplexer{
		tick:      cfg.TickDuration,
		now:       cfg.Now,
		reg:       NewRegistry(),
		onElapsed: onElapsed,
	}
}

// Set starts, replaces or (with stack.TimerStop) stops the timer id.
func (m *Multiplexer) Set(ticks stack.Ticks, id stack.TimerID, singleShot bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	m.reg.Start(id, ticks, singleShot)
	if ticks != stack.TimerStop {
		m.reg.setDeadline(id, m.now().Add(m.period(ticks)))
	}
	m.rearm()
	return nil
}

// Stop cancels the timer id without invoking the callback.
// It reports whether the timer was running.
func (m *Multiplexer) Stop(id stack.TimerID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ok := m.reg.Stop(id)
	m.rearm()
	return ok
}

// Get returns a copy of the entry for id.
func (m *Multiplexer) Get(id stack.TimerID) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.Get(id)
}

// Pending returns all armed timers ordered by ID.
func (m *Multiplexer) Pending() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reg.Entries()
}

// Remaining returns the time until id elapses, or 0 if it is not armed.
func (m *Multiplexer) Remaining(id stack.TimerID) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.reg.Get(id)
	if !ok {
		return 0
	}
	if d := e.Deadline.Sub(m.now()); d > 0 {
		return d
	}
	return 0
}

// Reset cancels every timer. The multiplexer stays usable.
func (m *Multiplexer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reg.Clear()
	m.rearm()
}

// Close cancels every timer and rejects further Set calls.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.reg.Clear()
	m.rearm()
}

func (m *Multiplexer) period(ticks stack.Ticks) time.Duration {
	if m.tick == 0 {
		return ticks.Duration()
	}
	return time.Duration(ticks) * m.tick
}

// rearm points the single timer at the earliest deadline. Caller holds mu.
func (m *Multiplexer) rearm() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}

	next, ok := m.reg.earliest()
	if !ok {
		return
	}

	wait := next.Deadline.Sub(m.now())
	if wait < 0 {
		wait = 0
	}
	m.timer = time.AfterFunc(wait, m.fire)
}

// fire collects every due timer, reschedules periodic ones and reports them.
func (m *Multiplexer) fire() {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return
	}

	now := m.now()
	var due []Entry
	for _, e := range m.reg.Entries() {
		if !e.Deadline.After(now) {
			due = append(due, e)
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].Deadline.Before(due[j].Deadline) })

	for _, e := range due {
		if e.OneShot {
			m.reg.Stop(e.ID)
			continue
		}
		next := e.Deadline.Add(m.period(e.Ticks))
		if !next.After(now) {
			next = now.Add(m.period(e.Ticks))
		}
		m.reg.setDeadline(e.ID, next)
	}

	m.rearm()
	callback := m.onElapsed

	m.mu.Unlock()

	// Call callback outside lock
	if callback == nil {
		return
	}
	for _, e := range due {
		callback(e.ID)
	}
}
