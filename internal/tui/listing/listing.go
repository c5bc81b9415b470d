// ABOUTME: Table listing with a loading spinner for backend collections
// ABOUTME: Used by the models and token screens

package listing

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/record-admin/internal/tui/icons"
	"github.com/markalston/record-admin/internal/tui/styles"
)

// chrome is the height taken by the title and help lines
const chrome = 4

// Listing shows a spinner until rows or an error arrive
type Listing struct {
	title   string
	empty   string
	table   table.Model
	spinner spinner.Model
	loading bool
	err     string
	width   int
	height  int
}

// New creates a listing in the loading state
func New(title, empty string, columns []table.Column) *Listing {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(styles.Text).
		Background(styles.Primary)
	t.SetStyles(ts)

	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &Listing{
		title:   title,
		empty:   empty,
		table:   t,
		spinner: s,
		loading: true,
	}
}

// Init starts the spinner
func (l *Listing) Init() tea.Cmd {
	return l.spinner.Tick
}

// SetRows replaces the rows and ends the loading state
func (l *Listing) SetRows(rows []table.Row) {
	l.table.SetRows(rows)
	l.loading = false
	l.err = ""
}

// SetError ends the loading state with an error
func (l *Listing) SetError(msg string) {
	l.loading = false
	l.err = msg
}

// Reload puts the listing back into the loading state
func (l *Listing) Reload() tea.Cmd {
	l.loading = true
	l.err = ""
	return l.spinner.Tick
}

// Loading reports whether rows are still pending
func (l *Listing) Loading() bool {
	return l.loading
}

// Err returns the error being shown, if any
func (l *Listing) Err() string {
	return l.err
}

// Len returns the number of rows
func (l *Listing) Len() int {
	return len(l.table.Rows())
}

// SelectedRow returns the row under the cursor, or nil
func (l *Listing) SelectedRow() table.Row {
	return l.table.SelectedRow()
}

// SetSize fits the table into the available area
func (l *Listing) SetSize(width, height int) {
	l.width = width
	l.height = height
	if height > chrome {
		l.table.SetHeight(height - chrome)
	}
	if width > 0 {
		l.table.SetWidth(width)
	}
}

// Update forwards spinner ticks while loading and keys otherwise
func (l *Listing) Update(msg tea.Msg) (*Listing, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); ok {
		if !l.loading {
			return l, nil
		}
		var cmd tea.Cmd
		l.spinner, cmd = l.spinner.Update(msg)
		return l, cmd
	}

	if l.loading {
		return l, nil
	}
	var cmd tea.Cmd
	l.table, cmd = l.table.Update(msg)
	return l, cmd
}

// View renders the listing
func (l *Listing) View() string {
	var sb strings.Builder

	sb.WriteString(styles.Title.Render(l.title))
	sb.WriteString("\n")

	switch {
	case l.loading:
		sb.WriteString(l.spinner.View() + " Loading...")
	case l.err != "":
		sb.WriteString(styles.Error(icons.Critical.String() + " " + l.err))
	case l.Len() == 0:
		sb.WriteString(styles.Subtitle.Render(l.empty))
	default:
		sb.WriteString(l.table.View())
	}
	return sb.String()
}
