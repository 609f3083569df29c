package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	yellow = lipgloss.Color("214")
	purple = lipgloss.Color("99")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")

	labelStyle   = lipgloss.NewStyle().Foreground(dim)
	successStyle = lipgloss.NewStyle().Foreground(green)
	warnStyle    = lipgloss.NewStyle().Foreground(yellow)
	errorStyle   = lipgloss.NewStyle().Foreground(red).Bold(true)
	plainStyle   = lipgloss.NewStyle()
)

// styleFor picks a color for a display text.
func styleFor(text string) lipgloss.Style {
	switch {
	case text == TextFactoryReset, strings.HasPrefix(text, "init failed"):
		return errorStyle
	case text == TextProvFailed, text == TextFriendLost, text == TextNoFriend:
		return warnStyle
	case text == TextProvisioned, text == TextLPNWithFriend, text == TextConnected:
		return successStyle
	default:
		return plainStyle
	}
}

// Terminal renders the display to a terminal. Every Print writes one
// styled line; Panel renders the whole display as a table.
type Terminal struct {
	mu   sync.Mutex
	w    io.Writer
	rows [NumRows]string
}

// NewTerminal creates a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Print updates row and echoes the change.
func (t *Terminal) Print(row Row, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(row) < NumRows {
		t.rows[row] = text
	}
	label := labelStyle.Render(fmt.Sprintf("%-11s", row.String()+":"))
	fmt.Fprintf(t.w, "%s %s\n", label, styleFor(text).Render(text))
}

// Panel renders all rows in a bordered table.
func (t *Terminal) Panel() string {
	t.mu.Lock()
	rows := t.rows
	t.mu.Unlock()

	data := make([][]string, 0, NumRows)
	for i, text := range rows {
		data = append(data, []string{Row(i).String(), styleFor(text).Render(text)})
	}

	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 {
				return cellStyle.Foreground(dim)
			}
			return cellStyle
		}).
		Headers("row", "text").
		Rows(data...)

	return tbl.String()
}

// Compile-time interface satisfaction check.
var _ Sink = (*Terminal)(nil)
