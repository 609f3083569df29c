package log

import "time"

// MultiLogger fans events out to several loggers, typically a SlogAdapter
// for the console and a FileLogger for the capture. Nil entries are skipped.
// An event without a timestamp is stamped once, so every sink records the
// same instant.
type MultiLogger struct {
	loggers []Logger
	now     func() time.Time
}

// NewMultiLogger creates a MultiLogger over the given loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	kept := make([]Logger, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &MultiLogger{loggers: kept, now: time.Now}
}

// Log sends the event to every logger in order.
func (m *MultiLogger) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	for _, l := range m.loggers {
		l.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
