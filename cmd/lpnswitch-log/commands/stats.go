package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lpnswitch/lpnswitch-go/pkg/log"
	"github.com/lpnswitch/lpnswitch-go/pkg/stack"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	StackEvents       map[string]int
	Commands          map[string]*CommandStats
	Sessions          map[string]*SessionStats
	Errors            int
	Segments          []log.Header
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// CommandStats counts one command.
type CommandStats struct {
	Issued int
	Failed int
}

// SessionStats holds statistics for a single node run.
type SessionStats struct {
	// Started is the run start encoded in the session ID, when it has one.
	Started   time.Time
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Node      string
	Address   stack.Address
	Boots     int
	LastState string
}

// CollectStats reads every event of path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		StackEvents:       make(map[string]int),
		Commands:          make(map[string]*CommandStats),
		Sessions:          make(map[string]*SessionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	stats.Segments = reader.Segments()
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	// Track time range
	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		sess.Started, _ = log.SessionStart(event.SessionID)
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}
	if event.Node != "" {
		sess.Node = event.Node
	}
	if event.Address != 0 {
		sess.Address = event.Address
	}

	switch {
	case event.StackEvent != nil:
		s.StackEvents[event.StackEvent.Name]++
		if event.StackEvent.ID == stack.EventBoot {
			sess.Boots++
		}
	case event.Command != nil:
		cs, ok := s.Commands[event.Command.Name]
		if !ok {
			cs = &CommandStats{}
			s.Commands[event.Command.Name] = cs
		}
		cs.Issued++
		if event.Command.Failed() {
			cs.Failed++
		}
	case event.StateChange != nil:
		if event.StateChange.Entity == log.StateEntityLifecycle {
			sess.LastState = event.StateChange.NewState
		}
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Switch Node Trace Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	if len(stats.Segments) > 0 {
		fmt.Fprintf(w, "Segments:     %d (format v%d)\n", len(stats.Segments), stats.Segments[len(stats.Segments)-1].Version)
		for _, h := range stats.Segments {
			fmt.Fprintf(w, "  opened %s by %s\n", h.Opened.Format(time.RFC3339), h.Writer)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryEvent, log.CategoryCommand, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut, log.DirectionLocal} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.StackEvents) > 0 {
		fmt.Fprintln(w, "Stack Events:")
		for _, name := range sortedKeys(stats.StackEvents) {
			fmt.Fprintf(w, "  %-34s %d\n", name, stats.StackEvents[name])
		}
		fmt.Fprintln(w)
	}

	if len(stats.Commands) > 0 {
		fmt.Fprintln(w, "Commands:")
		for _, name := range sortedKeys(stats.Commands) {
			cs := stats.Commands[name]
			fmt.Fprintf(w, "  %-34s %d", name, cs.Issued)
			if cs.Failed > 0 {
				fmt.Fprintf(w, " (%d failed)", cs.Failed)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, %d boots, duration %s\n",
				shortenSessionID(s.id), s.stats.Events, s.stats.Boots, duration)
			if !s.stats.Started.IsZero() {
				fmt.Fprintf(w, "           Started: %s\n", s.stats.Started.Format(time.RFC3339))
			}
			if s.stats.Node != "" {
				fmt.Fprintf(w, "           Node: %s\n", s.stats.Node)
			}
			if s.stats.Address != 0 {
				fmt.Fprintf(w, "           Address: %s\n", s.stats.Address)
			}
			if s.stats.LastState != "" {
				fmt.Fprintf(w, "           State: %s\n", s.stats.LastState)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
