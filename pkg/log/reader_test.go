package log

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

func createTestTrace(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ntrace")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create test trace: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func sampleTrace(base time.Time) []Event {
	return []Event{
		{
			Timestamp: base, SessionID: "a", Direction: DirectionIn, Category: CategoryEvent,
			StackEvent: &StackEventData{ID: stack.EventBoot, Name: "system_boot"},
		},
		{
			Timestamp: base.Add(time.Millisecond), SessionID: "a", Direction: DirectionOut, Category: CategoryCommand,
			Command: &CommandData{Name: stack.CmdNodeInit},
		},
		{
			Timestamp: base.Add(2 * time.Millisecond), SessionID: "a", Direction: DirectionOut, Category: CategoryCommand,
			Command: &CommandData{Name: stack.CmdLPNInit, Result: stack.ResultInvalidState},
		},
		{
			Timestamp: base.Add(3 * time.Millisecond), SessionID: "b", Direction: DirectionLocal, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityConnection, OldState: "0", NewState: "1"},
		},
		{
			Timestamp: base.Add(4 * time.Millisecond), SessionID: "b", Direction: DirectionLocal, Category: CategoryState,
			StateChange: &StateChangeEvent{Entity: StateEntityLPN, OldState: "on", NewState: "off"},
		},
	}
}

func readFiltered(t *testing.T, path string, f Filter) []Event {
	t.Helper()
	r, err := NewFilteredReader(path, f)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer r.Close()
	events, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	return events
}

func TestReaderIteratesInOrder(t *testing.T) {
	path := createTestTrace(t, sampleTrace(time.Now()))

	events := readFiltered(t, path, Filter{})
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	if events[0].StackEvent == nil || events[0].StackEvent.Name != "system_boot" {
		t.Errorf("first event: got %+v", events[0])
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Now()
	path := createTestTrace(t, sampleTrace(base))

	cmd := CategoryCommand
	out := DirectionOut
	lpn := StateEntityLPN
	start := base.Add(2 * time.Millisecond)
	end := base.Add(4 * time.Millisecond)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"session", Filter{SessionID: "b"}, 2},
		{"category", Filter{Category: &cmd}, 2},
		{"direction", Filter{Direction: &out}, 2},
		{"entity", Filter{Entity: &lpn}, 1},
		{"name", Filter{Name: stack.CmdNodeInit}, 1},
		{"failed only", Filter{FailedOnly: true}, 1},
		{"time window", Filter{TimeStart: &start, TimeEnd: &end}, 2},
		{"combined", Filter{SessionID: "a", Category: &cmd, FailedOnly: true}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := readFiltered(t, path, tt.filter)
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestNewReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "none.ntrace")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestReaderWithoutSegmentHeaders(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.ntrace")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	enc := NewEncoder(f)
	for i := 0; i < 2; i++ {
		if err := enc.Encode(Event{Category: CategoryEvent}); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}
	f.Close()

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()
	events, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(events) != 2 || len(reader.Segments()) != 0 {
		t.Errorf("got %d events and %d segments, want 2 and 0", len(events), len(reader.Segments()))
	}
}

func TestReaderRejectsNewerFormat(t *testing.T) {
	hdr, err := EncodeHeader(Header{Version: FormatVersion + 1, Opened: time.Now()})
	if err != nil {
		t.Fatalf("EncodeHeader failed: %v", err)
	}
	ev, err := EncodeEvent(Event{Category: CategoryEvent})
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "future.ntrace")
	if err := os.WriteFile(path, append(hdr, ev...), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	reader, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}
	defer reader.Close()
	if _, err := reader.Next(); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Next() = %v, want ErrUnsupportedFormat", err)
	}
}
