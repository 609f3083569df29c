// Package log provides the structured node trace for the switch firmware.
//
// The trace is separate from operational logging (slog). It is a complete
// machine-readable record of what the node saw and did: every stack event
// dispatched to it, every command it issued together with the result, and
// every change of lifecycle, connection, LPN and timer state.
//
// # Basic Usage
//
// Applications configure tracing by providing a Logger implementation:
//
//	// For development: trace to console via slog
//	cfg.Trace = log.NewSlogAdapter(slog.Default())
//
//	// For field captures: write to a binary file
//	cfg.Trace, _ = log.NewFileLogger("switch.ntrace")
//
//	// Both
//	cfg.Trace = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Each Event carries exactly one payload:
//   - StackEvent: an event delivered by the stack (direction IN)
//   - Command: a command issued to the stack and its result (direction OUT)
//   - StateChange: a node state transition
//   - Error: a failure the node could not act on
//
// # File Format
//
// Trace files are a stream of CBOR-encoded events with integer keys,
// conventionally with the .ntrace extension. The lpnswitch-log tool
// provides viewing, filtering, statistics and export.
package log
