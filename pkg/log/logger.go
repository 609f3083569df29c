package log

import (
	"time"

	"github.com/google/uuid"
)

// Logger receives node trace events.
// Pass nil or NoopLogger to disable tracing.
type Logger interface {
	// Log records a trace event. Implementations must be thread-safe and
	// must not block for long; the dispatcher calls Log inline.
	Log(event Event)
}

// NoopLogger discards all events.
// It is safe for concurrent use and usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}

// NewSessionID returns a fresh identifier for one node run. IDs are
// UUIDv7, so they sort by the time the run started.
func NewSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SessionStart returns the start time encoded in a session ID. IDs that are
// not UUIDv7, such as scenario IDs, report false.
func SessionStart(id string) (time.Time, bool) {
	u, err := uuid.Parse(id)
	if err != nil || u.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec), true
}
