// ABOUTME: Status badge widgets for quick visual status indication
// ABOUTME: Maps token expiry and quota usage onto ok/warning/critical levels

package widgets

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/markalston/record-admin/internal/tui/icons"
	"github.com/markalston/record-admin/internal/tui/styles"
)

// StatusLevel represents the severity of a status
type StatusLevel int

const (
	StatusOK StatusLevel = iota
	StatusWarning
	StatusCritical
	StatusNeutral
)

// ExpiryWarning is how close to expiry a token is flagged
const ExpiryWarning = 7 * 24 * time.Hour

func levelColor(level StatusLevel) lipgloss.Color {
	switch level {
	case StatusOK:
		return styles.Secondary
	case StatusWarning:
		return styles.Warning
	case StatusCritical:
		return styles.Danger
	default:
		return styles.Muted
	}
}

// Badge renders a colored status badge
func Badge(text string, level StatusLevel) string {
	fg := lipgloss.Color("#FFFFFF")
	if level == StatusWarning {
		fg = lipgloss.Color("#000000")
	}
	return lipgloss.NewStyle().
		Background(levelColor(level)).
		Foreground(fg).
		Padding(0, 1).
		Bold(true).
		Render(text)
}

// StatusIcon returns the icon for a status level
func StatusIcon(level StatusLevel) string {
	style := lipgloss.NewStyle().Foreground(levelColor(level))
	switch level {
	case StatusOK:
		return style.Render(icons.CheckOK.String())
	case StatusWarning:
		return style.Render(icons.Warning.String())
	case StatusCritical:
		return style.Render(icons.Critical.String())
	default:
		return style.Render("•")
	}
}

// StatusText returns styled status text with icon
func StatusText(text string, level StatusLevel) string {
	textStyle := lipgloss.NewStyle().Foreground(levelColor(level))
	return fmt.Sprintf("%s %s", StatusIcon(level), textStyle.Render(text))
}

// ExpiryLevel classifies a token expiry relative to now
func ExpiryLevel(expiresAt, now time.Time) StatusLevel {
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return StatusCritical
	}
	if remaining <= ExpiryWarning {
		return StatusWarning
	}
	return StatusOK
}

// ExpiryLabel describes an RFC 3339 expiry as plain text. Values that do not
// parse are returned unchanged.
func ExpiryLabel(raw string, now time.Time) string {
	expiresAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}

	remaining := expiresAt.Sub(now)
	days := int(remaining.Hours() / 24)
	switch {
	case remaining <= 0:
		return "expired"
	case days == 0:
		return "today"
	case days == 1:
		return "in 1 day"
	default:
		return fmt.Sprintf("in %d days", days)
	}
}
