// Package display drives the switch's four-line status display.
//
// The node only ever prints whole lines to fixed rows. Sinks decide where
// the lines go: memory for tests, a styled terminal panel for the host
// build, or retained MQTT topics for a remote dashboard.
package display

import (
	"fmt"
	"sync"
)

// Row is a display line.
type Row uint8

// Display rows, top to bottom.
const (
	RowName Row = iota
	RowStatus
	RowConnection
	RowLPN

	NumRows = 4
)

// String returns the row name.
func (r Row) String() string {
	switch r {
	case RowName:
		return "name"
	case RowStatus:
		return "status"
	case RowConnection:
		return "connection"
	case RowLPN:
		return "lpn"
	default:
		return fmt.Sprintf("row%d", uint8(r))
	}
}

// Texts shown by the node.
const (
	TextLPNOn         = "LPN on"
	TextLPNOff        = "LPN off"
	TextLPNWithFriend = "LPN with friend"
	TextNoFriend      = "no friend"
	TextFriendLost    = "friend lost"
	TextConnected     = "connected"
	TextProvisioning  = "provisioning..."
	TextProvFailed    = "prov failed"
	TextUnprovisioned = "unprovisioned"
	TextProvisioned   = "provisioned"
	TextFactoryReset  = "FACTORY RESET"
	textInitFailedFmt = "init failed (%s)"
)

// InitFailed formats the status line for a failed node initialization.
func InitFailed(code fmt.Stringer) string {
	return fmt.Sprintf(textInitFailedFmt, code)
}

// Sink receives display lines. Print replaces the whole row.
type Sink interface {
	Print(row Row, text string)
}

// Nop discards every line.
type Nop struct{}

// Print does nothing.
func (Nop) Print(Row, string) {}

// Line is one printed row.
type Line struct {
	Row  Row
	Text string
}

// Memory keeps the current rows and the full print history.
// It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	rows    [NumRows]string
	history []Line
}

// Print stores text as the content of row.
func (m *Memory) Print(row Row, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(row) < NumRows {
		m.rows[row] = text
	}
	m.history = append(m.history, Line{Row: row, Text: text})
}

// Row returns the current text of row.
func (m *Memory) Row(row Row) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(row) >= NumRows {
		return ""
	}
	return m.rows[row]
}

// Rows returns a snapshot of all rows.
func (m *Memory) Rows() [NumRows]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows
}

// History returns every line printed so far.
func (m *Memory) History() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Line, len(m.history))
	copy(out, m.history)
	return out
}

// Printed reports whether text was ever printed to row.
func (m *Memory) Printed(row Row, text string) bool {
	for _, l := range m.History() {
		if l.Row == row && l.Text == text {
			return true
		}
	}
	return false
}

// Clear blanks the rows and forgets the history.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = [NumRows]string{}
	m.history = nil
}

// Multi prints to several sinks in order.
type Multi []Sink

// Print forwards the line to every non-nil sink.
func (m Multi) Print(row Row, text string) {
	for _, s := range m {
		if s != nil {
			s.Print(row, text)
		}
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Sink = Nop{}
	_ Sink = (*Memory)(nil)
	_ Sink = Multi(nil)
)
