package softtimer

import (
	"sort"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Entry describes one armed timer.
type Entry struct {
	// ID identifies the timer.
	ID stack.TimerID

	// Ticks is the period (or one-shot delay) in 32768 Hz ticks.
	Ticks stack.Ticks

	// OneShot is true for single-shot timers.
	OneShot bool

	// Deadline is the next expiry. Zero when the owner does not track time.
	Deadline time.Time
}

// Registry maps timer IDs to their armed state.
type Registry struct {
	entries map[stack.TimerID]Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[stack.TimerID]Entry)}
}

// Start records a timer, replacing any previous entry for the same ID.
// Starting with stack.TimerStop removes the entry instead.
func (r *Registry) Start(id stack.TimerID, ticks stack.Ticks, oneShot bool) {
	if ticks == stack.TimerStop {
		delete(r.entries, id)
		return
	}
	r.entries[id] = Entry{ID: id, Ticks: ticks, OneShot: oneShot}
}

// Stop removes a timer. It reports whether the timer was running.
func (r *Registry) Stop(id stack.TimerID) bool {
	_, ok := r.entries[id]
	delete(r.entries, id)
	return ok
}

// Elapsed records an expiry: one-shot timers are removed, periodic ones stay.
func (r *Registry) Elapsed(id stack.TimerID) {
	if e, ok := r.entries[id]; ok && e.OneShot {
		delete(r.entries, id)
	}
}

// Get returns the entry for id.
func (r *Registry) Get(id stack.TimerID) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Running reports whether id is armed.
func (r *Registry) Running(id stack.TimerID) bool {
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of armed timers.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns all armed timers ordered by ID.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Clear removes every entry.
func (r *Registry) Clear() {
	clear(r.entries)
}

func (r *Registry) setDeadline(id stack.TimerID, at time.Time) {
	if e, ok := r.entries[id]; ok {
		e.Deadline = at
		r.entries[id] = e
	}
}

// earliest returns the entry with the earliest deadline.
func (r *Registry) earliest() (Entry, bool) {
	var best Entry
	found := false
	for _, e := range r.entries {
		if !found || e.Deadline.Before(best.Deadline) ||
			(e.Deadline.Equal(best.Deadline) && e.ID < best.ID) {
			best = e
			found = true
		}
	}
	return best, found
}
