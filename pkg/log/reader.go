package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects trace events. Empty/nil fields match everything.
type Filter struct {
	// SessionID filters by exact session match.
	SessionID string

	// Direction filters by flow direction.
	Direction *Direction

	// Category filters by event category.
	Category *Category

	// Entity filters state changes by entity. Other categories never match.
	Entity *StateEntity

	// Name matches the stack event name or the command name.
	Name string

	// FailedOnly keeps only failed commands and error events.
	FailedOnly bool

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// Matches reports whether event satisfies every criterion.
func (f *Filter) Matches(event Event) bool {
	if f.SessionID != "" && event.SessionID != f.SessionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Entity != nil && (event.StateChange == nil || event.StateChange.Entity != *f.Entity) {
		return false
	}
	if f.Name != "" && eventName(event) != f.Name {
		return false
	}
	if f.FailedOnly && !failed(event) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

func eventName(event Event) string {
	switch {
	case event.StackEvent != nil:
		return event.StackEvent.Name
	case event.Command != nil:
		return event.Command.Name
	}
	return ""
}

func failed(event Event) bool {
	if event.Error != nil {
		return true
	}
	return event.Command != nil && event.Command.Failed()
}

// Reader streams trace events from a file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
	headers []Header
}

// NewReader opens a trace file and reads every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a trace file and reads events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var raw cbor.RawMessage
		if err := r.decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}

		if isTagged(raw) {
			hdr, err := DecodeHeader(raw)
			if err != nil {
				return Event{}, fmt.Errorf("segment %d: %w", len(r.headers)+1, err)
			}
			r.headers = append(r.headers, hdr)
			continue
		}

		event, err := DecodeEvent(raw)
		if err != nil {
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Segments returns the headers of the segments read so far. Files written
// before segment headers existed have none.
func (r *Reader) Segments() []Header {
	return r.headers
}

// ReadAll returns every remaining matching event.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		event, err := r.Next()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
