// Package commands implements the lpnswitch-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/lpnswitch/lpnswitch-go/pkg/log"
)

const timeFormat = "2006-01-02T15:04:05.000000Z"

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [session] DIRECTION CATEGORY label
	ts := event.Timestamp.UTC().Format(timeFormat)
	fmt.Fprintf(w, "%s [%s] %-5s %-7s %s\n",
		ts, shortenSessionID(event.SessionID), event.Direction, event.Category, eventLabel(event))

	if event.Node != "" || event.Address != 0 {
		fmt.Fprintf(w, "  Node: %s", event.Node)
		if event.Address != 0 {
			fmt.Fprintf(w, " (%s)", event.Address)
		}
		fmt.Fprintln(w)
	}

	switch {
	case event.StackEvent != nil:
		if event.StackEvent.Detail != "" {
			fmt.Fprintf(w, "  %s\n", event.StackEvent.Detail)
		}
	case event.Command != nil:
		formatCommandDetails(w, event.Command)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// eventLabel names the payload of an event.
func eventLabel(event log.Event) string {
	switch {
	case event.StackEvent != nil:
		return event.StackEvent.Name
	case event.Command != nil:
		return event.Command.Name
	case event.StateChange != nil:
		return event.StateChange.Entity.String()
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// shortenSessionID returns the first 8 characters of the session ID.
func shortenSessionID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatCommandDetails(w io.Writer, cmd *log.CommandData) {
	if cmd.Args != "" {
		fmt.Fprintf(w, "  Args: %s\n", cmd.Args)
	}
	if cmd.Failed() {
		fmt.Fprintf(w, "  Result: %s (failed)\n", cmd.Result)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %s\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	case "local":
		return log.DirectionLocal, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in, out, or local)", s)
	}
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	if c, ok := log.ParseCategory(strings.ToUpper(s)); ok {
		return c, nil
	}
	return 0, fmt.Errorf("invalid category: %s (must be event, command, state, or error)", s)
}

// ParseEntityFlag parses a state entity string (case-insensitive).
func ParseEntityFlag(s string) (log.StateEntity, error) {
	for e := log.StateEntityLifecycle; e <= log.StateEntityIdentity; e++ {
		if strings.EqualFold(e.String(), s) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("invalid entity: %s (must be lifecycle, connection, lpn, timer, or identity)", s)
}

// RunView writes every event matching filter to output.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
