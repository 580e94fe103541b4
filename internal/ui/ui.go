// Package ui provides the interactive terminal picker.
// Items are rendered as plain table cells; nothing from remote metadata
// is interpreted by a shell or the terminal.
package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrCancelled is returned when the user leaves the picker without choosing.
var ErrCancelled = errors.New("selection cancelled")

var (
	titleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	helpStyle  = lipgloss.NewStyle().Faint(true).MarginTop(1)
	frameStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
)

// Column describes one picker column.
type Column struct {
	Title string
	Width int
}

// Interactive reports whether both stdin and stderr are terminals,
// which the picker needs for input and drawing.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// Select shows rows in a table and returns the index of the chosen row.
func Select(title string, columns []Column, rows [][]string) (int, error) {
	if len(rows) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}
	if !Interactive() {
		return -1, fmt.Errorf("interactive selection needs a terminal")
	}

	final, err := tea.NewProgram(newPicker(title, columns, rows), tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}

	p, ok := final.(picker)
	if !ok || p.cancelled {
		return -1, ErrCancelled
	}
	return p.chosen, nil
}

// picker is the Bubble Tea model behind Select.
type picker struct {
	title     string
	table     table.Model
	chosen    int
	cancelled bool
}

func newPicker(title string, columns []Column, rows [][]string) picker {
	cols := make([]table.Column, len(columns))
	for i, c := range columns {
		cols[i] = table.Column{Title: c.Title, Width: c.Width}
	}
	trows := make([]table.Row, len(rows))
	for i, r := range rows {
		trows[i] = table.Row(sanitizeRow(r, len(cols)))
	}

	// Leave room for the header and its border.
	height := len(trows) + 2
	if height > 17 {
		height = 17
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57"))

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(trows),
		table.WithFocused(true),
		table.WithHeight(height),
		table.WithStyles(styles),
	)

	return picker{title: title, table: t, chosen: -1}
}

func (p picker) Init() tea.Cmd {
	return nil
}

func (p picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			p.chosen = p.table.Cursor()
			return p, tea.Quit
		case "q", "esc", "ctrl+c":
			p.cancelled = true
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	p.table, cmd = p.table.Update(msg)
	return p, cmd
}

func (p picker) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(p.title))
	b.WriteString("\n")
	b.WriteString(frameStyle.Render(p.table.View()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓ move • enter select • q quit"))
	b.WriteString("\n")
	return b.String()
}

// sanitizeRow pads or trims r to n cells and strips control characters
// so remote titles cannot emit terminal escape sequences.
func sanitizeRow(r []string, n int) []string {
	out := make([]string, n)
	for i := 0; i < n && i < len(r); i++ {
		out[i] = strings.Map(func(c rune) rune {
			if c < 0x20 || c == 0x7f {
				return -1
			}
			return c
		}, r[i])
	}
	return out
}
